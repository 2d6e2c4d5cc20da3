package http

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/vadimbarashkov/link-shortener/internal/entity"
	"github.com/vadimbarashkov/link-shortener/internal/shortcode"
)

const statusError = "error"

// createLinkRequest represents the structure for a request to create a link.
// Code is optional; a random one is generated when it is empty.
type createLinkRequest struct {
	TargetURL string `json:"target_url" validate:"required,url"`
	Code      string `json:"code,omitempty" validate:"omitempty,shortcode"`
}

// linkResponse represents a link together with its click statistics.
type linkResponse struct {
	ID          uuid.UUID  `json:"id"`
	Code        string     `json:"code"`
	TargetURL   string     `json:"target_url"`
	TotalClicks int64      `json:"total_clicks"`
	LastClicked *time.Time `json:"last_clicked"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toLinkResponse(link *entity.Link) linkResponse {
	return linkResponse{
		ID:          link.ID,
		Code:        link.Code,
		TargetURL:   link.TargetURL,
		TotalClicks: link.TotalClicks,
		LastClicked: link.LastClicked,
		CreatedAt:   link.CreatedAt,
	}
}

func toLinkResponses(links []*entity.Link) []linkResponse {
	resp := make([]linkResponse, 0, len(links))
	for _, link := range links {
		resp = append(resp, toLinkResponse(link))
	}
	return resp
}

// createLinkResponse is a linkResponse extended with the public short URL.
type createLinkResponse struct {
	linkResponse
	ShortURL string `json:"short_url"`
}

type deleteLinkResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

var linkDeletedResponse = deleteLinkResponse{
	Success: true,
	Message: "Link deleted successfully",
}

type healthResponse struct {
	OK        bool   `json:"ok"`
	Version   string `json:"version"`
	Uptime    int64  `json:"uptime"`
	Timestamp string `json:"timestamp"`
}

// validationError represents an individual validation error.
type validationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// errorResponse represents a structured error response.
type errorResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Errors  []validationError `json:"errors,omitempty"`
}

// Predefined error responses for common scenarios.
var (
	emptyRequestBodyResponse = errorResponse{
		Status:  statusError,
		Message: "empty request body",
	}

	invalidRequestBodyResponse = errorResponse{
		Status:  statusError,
		Message: "invalid request body",
	}

	linkNotFoundResponse = errorResponse{
		Status:  statusError,
		Message: "link not found",
	}

	codeExistsResponse = errorResponse{
		Status:  statusError,
		Message: "code already exists",
	}

	serverErrorResponse = errorResponse{
		Status:  statusError,
		Message: "server error occurred",
	}
)

func messageErrorResponse(err error) errorResponse {
	return errorResponse{
		Status:  statusError,
		Message: err.Error(),
	}
}

// messageForTag returns a user-friendly message based on the validation tag.
func messageForTag(tag string) string {
	switch tag {
	case "required":
		return "this field is required"
	case "url":
		return "invalid url"
	case shortcode.Tag:
		return "code must be 6-8 alphanumeric characters"
	default:
		return "invalid value"
	}
}

// getValidationErrors processes validation errors and returns a list of validationError.
func getValidationErrors(err error) []validationError {
	var validationErrs []validationError

	errs, ok := err.(validator.ValidationErrors)
	if ok {
		for _, e := range errs {
			validationErrs = append(validationErrs, validationError{
				Field:   e.Field(),
				Message: messageForTag(e.Tag()),
			})
		}
	}

	return validationErrs
}

// validationErrorResponse constructs an errorResponse for validation errors.
// The message names the first invalid field in the order the use case checks
// them, so both layers report the same message.
func validationErrorResponse(err error) errorResponse {
	errs := getValidationErrors(err)

	message := "validation error"
	for _, e := range errs {
		if e.Field == "target_url" {
			message = entity.ErrInvalidTargetURL.Error()
			break
		}
		if e.Field == "code" {
			message = entity.ErrInvalidCode.Error()
		}
	}

	return errorResponse{
		Status:  statusError,
		Message: message,
		Errors:  errs,
	}
}
