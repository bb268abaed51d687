package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"pdf-qa/internal/handlers"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Session        handlers.Session
	Logger         zerolog.Logger
	MaxUploadBytes int64
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(middleware.Recoverer)

	page := handlers.NewPageHandler(deps.Session, deps.MaxUploadBytes)

	r.Get("/", page.Index)
	r.Post("/upload", page.Upload)
	r.Post("/process", page.Process)
	r.Post("/query", page.Query)
	r.Method(http.MethodGet, "/health", handlers.NewHealthHandler(deps.Session))

	return r
}
