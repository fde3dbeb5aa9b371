package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures the relay's HTTP surface.
func SetupRoutes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	// Tokens are meant to be embedded in third-party pages (contact forms),
	// so the API accepts cross-origin requests from anywhere.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", h.HealthCheck)

	r.Post("/account", h.HandleCreateAccount)
	r.Delete("/account", h.HandleDeleteAccount)
	r.Post("/message", h.HandleSubmitMessage)

	return r
}
