// Package http provides the HTTP delivery layer for the link shortener.
// This package contains the HTTP handlers and related types used for processing
// incoming requests, validating input, redirecting visitors and formatting responses.
package http

import (
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/link-shortener/docs"
	"github.com/vadimbarashkov/link-shortener/internal/shortcode"

	httpSwagger "github.com/swaggo/http-swagger"
)

// getValidate initializes a validator that reports JSON field names and knows
// the shortcode tag.
func getValidate() *validator.Validate {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := shortcode.RegisterValidation(validate); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", shortcode.Tag, err))
	}

	return validate
}

// metricsPath contains a slash, so it can never shadow a short code.
const metricsPath = "/debug/metrics"

// NewRouter initializes and returns a new Chi router configured with middleware and routes for the link shortener.
func NewRouter(logger *httplog.Logger, info ServerInfo, linkUseCase linkUseCase) *chi.Mux {
	m := newMetrics()

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"POST", "GET", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(m.middleware)
	r.Use(recoverer)

	r.Get("/healthz", newHealthHandler(info).health)
	r.Handle(metricsPath, m.handler())

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/swagger.yml"),
	))

	r.Get("/docs/swagger.yml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		w.Write(docs.Swagger)
	})

	h := newLinkHandler(linkUseCase, getValidate(), m)

	r.Route("/api/links", func(r chi.Router) {
		r.Post("/", h.createLink)
		r.Get("/", h.listLinks)

		r.Route("/{code}", func(r chi.Router) {
			r.Get("/", h.getLink)
			r.Delete("/", h.deleteLink)
		})
	})

	r.Get("/{code}", h.redirect)

	return r
}
