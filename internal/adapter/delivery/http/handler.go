package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/link-shortener/internal/entity"
)

type linkUseCase interface {
	CreateLink(ctx context.Context, targetURL, code string) (*entity.Link, error)
	ShortURL(code string) string
	Redirect(ctx context.Context, code string) (string, error)
	GetLink(ctx context.Context, code string) (*entity.Link, error)
	ListLinks(ctx context.Context) ([]*entity.Link, error)
	DeleteLink(ctx context.Context, code string) error
}

type linkHandler struct {
	useCase  linkUseCase
	validate *validator.Validate
	metrics  *metrics
}

func newLinkHandler(useCase linkUseCase, validate *validator.Validate, m *metrics) *linkHandler {
	return &linkHandler{
		useCase:  useCase,
		validate: validate,
		metrics:  m,
	}
}

func (h *linkHandler) createLink(w http.ResponseWriter, r *http.Request) {
	var req createLinkRequest

	if err := render.DecodeJSON(r.Body, &req); err != nil {
		if errors.Is(err, io.EOF) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, emptyRequestBodyResponse)
			return
		}

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, invalidRequestBodyResponse)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, validationErrorResponse(err))
		return
	}

	link, err := h.useCase.CreateLink(r.Context(), req.TargetURL, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, entity.ErrInvalidTargetURL):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, messageErrorResponse(entity.ErrInvalidTargetURL))
		case errors.Is(err, entity.ErrInvalidCode):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, messageErrorResponse(entity.ErrInvalidCode))
		case errors.Is(err, entity.ErrCodeExists):
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, codeExistsResponse)
		default:
			httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, serverErrorResponse)
		}
		return
	}

	h.metrics.linksCreated.Inc()

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, createLinkResponse{
		linkResponse: toLinkResponse(link),
		ShortURL:     h.useCase.ShortURL(link.Code),
	})
}

func (h *linkHandler) listLinks(w http.ResponseWriter, r *http.Request) {
	links, err := h.useCase.ListLinks(r.Context())
	if err != nil {
		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, serverErrorResponse)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toLinkResponses(links))
}

func (h *linkHandler) getLink(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	link, err := h.useCase.GetLink(r.Context(), code)
	if err != nil {
		if errors.Is(err, entity.ErrLinkNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, linkNotFoundResponse)
			return
		}

		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, serverErrorResponse)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toLinkResponse(link))
}

func (h *linkHandler) deleteLink(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	if err := h.useCase.DeleteLink(r.Context(), code); err != nil {
		if errors.Is(err, entity.ErrLinkNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, linkNotFoundResponse)
			return
		}

		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, serverErrorResponse)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, linkDeletedResponse)
}

// redirect sends the visitor to the target of the code. Paths that look like
// static files are never treated as codes.
func (h *linkHandler) redirect(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	if strings.Contains(code, ".") || code == "favicon.ico" {
		render.Status(r, http.StatusNotFound)
		render.PlainText(w, r, "Not found")
		return
	}

	targetURL, err := h.useCase.Redirect(r.Context(), code)
	if err != nil {
		if errors.Is(err, entity.ErrLinkNotFound) {
			render.Status(r, http.StatusNotFound)
			render.PlainText(w, r, "Short link not found")
			return
		}

		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusInternalServerError)
		render.PlainText(w, r, "Internal server error")
		return
	}

	h.metrics.redirects.Inc()

	http.Redirect(w, r, targetURL, http.StatusFound)
}

// ServerInfo is the process-wide state reported by the health check.
// It is built once at startup.
type ServerInfo struct {
	Version   string
	StartedAt time.Time
}

type healthHandler struct {
	info ServerInfo
	now  func() time.Time
}

func newHealthHandler(info ServerInfo) *healthHandler {
	return &healthHandler{
		info: info,
		now:  time.Now,
	}
}

func (h *healthHandler) health(w http.ResponseWriter, r *http.Request) {
	now := h.now()

	render.Status(r, http.StatusOK)
	render.JSON(w, r, healthResponse{
		OK:        true,
		Version:   h.info.Version,
		Uptime:    int64(now.Sub(h.info.StartedAt).Seconds()),
		Timestamp: now.UTC().Format(time.RFC3339),
	})
}
