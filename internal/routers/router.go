package routers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/maxischmaxi/code-preview-server/internal/api"
	"github.com/maxischmaxi/code-preview-server/internal/metrics"
)

const serviceName = "collab"

func New(h *api.Handlers, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "Accept"},
		MaxAge:         300,
	}))
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(metrics.Middleware(serviceName))

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", metrics.Handler())

	// Websocket connections are long lived and stay outside the request timeout.
	r.Get("/ws", h.CollabWS)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Get("/", h.Root)
		r.Get("/templates", h.ListTemplates)
		r.Post("/template", h.CreateTemplate)
		r.Patch("/template", h.UpdateTemplate)
		r.Post("/session", h.CreateSession)
		r.Get("/session/{id}", h.GetSession)
		r.Post("/reset", h.Reset)
	})

	return r
}
