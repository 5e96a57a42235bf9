package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vantive/scansight/internal/api"
	"github.com/vantive/scansight/internal/api/handlers"
	"github.com/vantive/scansight/internal/api/middleware"
)

type RouterConfig struct {
	AuthValidator    middleware.AuthValidator
	RetrievalHandler *handlers.RetrievalHandler
	DocumentHandler  *handlers.DocumentHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerAuth(cfg.AuthValidator))

		r.Route("/scans/{scanID}", func(r chi.Router) {
			r.Post("/search", cfg.RetrievalHandler.Search)
			r.Get("/chunks", cfg.RetrievalHandler.Corpus)
			r.Post("/brief", cfg.RetrievalHandler.Brief)

			r.Post("/documents", cfg.DocumentHandler.InitUpload)
			r.Get("/documents", cfg.DocumentHandler.List)
		})

		r.Route("/documents/{documentID}", func(r chi.Router) {
			r.Post("/complete", cfg.DocumentHandler.CompleteUpload)
			r.Get("/download", cfg.DocumentHandler.Download)
			r.Delete("/", cfg.DocumentHandler.Delete)
		})
	})

	return r
}
