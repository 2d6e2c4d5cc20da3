// Package entity defines the entities and errors used in the application.
// It includes the Link struct, which maps a short code to a target URL and
// carries its click statistics, along with the error definitions shared by
// the use case and adapter layers.
package entity

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidTargetURL is returned when the target URL is missing or is not an absolute URL.
	ErrInvalidTargetURL = errors.New("invalid target_url")
	// ErrInvalidCode is returned when a caller supplied code does not match the code format.
	ErrInvalidCode = errors.New("invalid code format")
	// ErrCodeExists is returned when attempting to create a link with a code that is already taken.
	ErrCodeExists = errors.New("code already exists")
	// ErrLinkNotFound is returned when no link exists for the specified code.
	ErrLinkNotFound = errors.New("link not found")
)

// Link represents a shortened link.
type Link struct {
	ID        uuid.UUID // ID is the unique identifier of the link in the database.
	Code      string    // Code is the short code visitors use to reach the target URL.
	TargetURL string    // TargetURL is the full URL that the code redirects to.
	LinkStats           // LinkStats contains click statistics about the link.
	CreatedAt time.Time // CreatedAt is the timestamp when the link was created.
}

// LinkStats contains click statistics of a link.
// LastClicked is nil until the first redirect.
type LinkStats struct {
	TotalClicks int64      // TotalClicks is the number of successful redirects.
	LastClicked *time.Time // LastClicked is the time of the most recent redirect.
}
