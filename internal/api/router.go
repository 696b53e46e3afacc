package api

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/edgard/elliebot/internal/logger"
)

// NewRouter creates and configures the Chi router for the application.
func NewRouter(h *Handlers, log *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.Middleware(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(3 * time.Minute))

	// Cross-origin access is unrestricted: any origin, method, header.
	// Suitable only for non-production deployments.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))

	r.Get("/", h.Root)
	r.Get("/health", h.Health)
	r.Post("/echo", h.Echo)

	r.Route("/api", func(r chi.Router) {
		r.Post("/profile", h.SaveProfile)
		r.Post("/reset", h.Reset)
		r.Post("/chat", h.Chat)
		r.Get("/history/{userID}", h.History)
	})

	return r
}
