// Package usecase implements the link lifecycle: creation with code
// generation, redirects that record clicks, lookups and deletion.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/link-shortener/internal/entity"
	"github.com/vadimbarashkov/link-shortener/internal/shortcode"
)

// maxCodeChecks caps how many generated codes are checked for existence
// before the last candidate is handed to the store as is.
const maxCodeChecks = 5

// reservedCodes are top-level paths of the HTTP surface. A link with one of
// these codes could never be reached through its short URL.
var reservedCodes = map[string]struct{}{
	"healthz": {},
	"swagger": {},
}

// IsReservedCode reports whether code collides with a top-level route.
func IsReservedCode(code string) bool {
	_, ok := reservedCodes[code]
	return ok
}

type linkRepository interface {
	Save(ctx context.Context, code, targetURL string) (*entity.Link, error)
	RetrieveByCode(ctx context.Context, code string) (*entity.Link, error)
	RetrieveAll(ctx context.Context) ([]*entity.Link, error)
	IncrementClicks(ctx context.Context, code string) (*entity.Link, error)
	Remove(ctx context.Context, code string) (*entity.Link, error)
}

type LinkUseCase struct {
	baseURL      string
	generateCode func() (string, error)
	validate     *validator.Validate
	linkRepo     linkRepository
}

// New creates a LinkUseCase. baseURL is the address short URLs are composed from.
func New(baseURL string, linkRepo linkRepository) *LinkUseCase {
	return &LinkUseCase{
		baseURL:      strings.TrimRight(baseURL, "/"),
		generateCode: shortcode.Generate,
		validate:     validator.New(),
		linkRepo:     linkRepo,
	}
}

// ShortURL returns the public address of the link with the given code.
func (uc *LinkUseCase) ShortURL(code string) string {
	return uc.baseURL + "/" + code
}

// CreateLink stores a link to targetURL. A non-empty code is used as is and
// is never retried. Otherwise a code is generated; generated candidates are
// checked for existence up to maxCodeChecks times, and the store's unique
// constraint decides the final outcome.
func (uc *LinkUseCase) CreateLink(ctx context.Context, targetURL, code string) (*entity.Link, error) {
	const op = "usecase.LinkUseCase.CreateLink"

	if err := uc.validate.Var(targetURL, "required,url"); err != nil {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrInvalidTargetURL)
	}

	if code != "" {
		if !shortcode.Validate(code) || IsReservedCode(code) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrInvalidCode)
		}
	} else {
		var err error

		code, err = uc.pickCode(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	link, err := uc.linkRepo.Save(ctx, code, targetURL)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create link: %w", op, err)
	}

	return link, nil
}

func (uc *LinkUseCase) pickCode(ctx context.Context) (string, error) {
	code, err := uc.generateCode()
	if err != nil {
		return "", err
	}

	for i := 0; i < maxCodeChecks; i++ {
		_, err := uc.linkRepo.RetrieveByCode(ctx, code)
		if errors.Is(err, entity.ErrLinkNotFound) {
			return code, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to check code: %w", err)
		}

		code, err = uc.generateCode()
		if err != nil {
			return "", err
		}
	}

	return code, nil
}

// Redirect resolves code to its target URL and records the click.
// If the link disappears between the lookup and the update, ErrLinkNotFound is
// returned instead of a stale target.
func (uc *LinkUseCase) Redirect(ctx context.Context, code string) (string, error) {
	const op = "usecase.LinkUseCase.Redirect"

	if _, err := uc.linkRepo.RetrieveByCode(ctx, code); err != nil {
		return "", fmt.Errorf("%s: failed to resolve code: %w", op, err)
	}

	link, err := uc.linkRepo.IncrementClicks(ctx, code)
	if err != nil {
		return "", fmt.Errorf("%s: failed to record click: %w", op, err)
	}

	return link.TargetURL, nil
}

func (uc *LinkUseCase) GetLink(ctx context.Context, code string) (*entity.Link, error) {
	const op = "usecase.LinkUseCase.GetLink"

	link, err := uc.linkRepo.RetrieveByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get link: %w", op, err)
	}

	return link, nil
}

// ListLinks returns all links, newest first.
func (uc *LinkUseCase) ListLinks(ctx context.Context) ([]*entity.Link, error) {
	const op = "usecase.LinkUseCase.ListLinks"

	links, err := uc.linkRepo.RetrieveAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list links: %w", op, err)
	}

	return links, nil
}

func (uc *LinkUseCase) DeleteLink(ctx context.Context, code string) error {
	const op = "usecase.LinkUseCase.DeleteLink"

	if _, err := uc.linkRepo.Remove(ctx, code); err != nil {
		return fmt.Errorf("%s: failed to delete link: %w", op, err)
	}

	return nil
}
