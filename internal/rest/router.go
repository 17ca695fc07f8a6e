package rest

import (
	"net/http"

	"promptmart-admin/internal/logger"
	"promptmart-admin/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type RouterConfig struct {
	JWTSecret   []byte
	InternalKey string
	Limiter     *middleware.RateLimiter
}

// NewRouter wires the public health endpoints and the admin-only category API.
func NewRouter(h *Handler, cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(logger.RequestIDMiddleware)
	r.Use(logger.LoggingMiddleware)

	r.Get("/healthz", healthHandler)
	r.Get("/metrics", h.Metrics)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(cfg.JWTSecret, cfg.InternalKey))
		if cfg.Limiter != nil {
			r.Use(cfg.Limiter.Middleware)
		}
		r.Use(middleware.RequireAdmin)

		h.Routes(r)
	})

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
