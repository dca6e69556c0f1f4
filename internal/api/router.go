/**
 * @description
 * This file sets up the HTTP router for the freeze-service using the
 * go-chi/chi router. It defines the API routes, applies middleware for
 * logging, CORS, and authentication, and maps the routes to their
 * corresponding handler functions.
 */
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new Chi router and registers the freeze-service routes.
func NewRouter(h *Handler, jwksURL, internalAPIKey string) *chi.Mux {
	r := chi.NewRouter()

	// Setup middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any major browsers
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Freeze service is healthy"))
	})

	// Protected routes that require authentication
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(jwksURL))

		r.Post("/freezes/validate", h.handleValidateFreeze)
		r.Post("/freezes/preview", h.handlePreviewFreeze)
		r.Post("/freezes", h.handleApplyFreeze)
		r.Get("/subscriptions/{subscriptionID}/freezes", h.handleListFreezes)
		r.Get("/subscriptions/{subscriptionID}/freezes/stats", h.handleFreezeStats)
	})

	// Internal routes for server-to-server calls
	r.Group(func(r chi.Router) {
		r.Use(InternalAuthMiddleware(internalAPIKey))

		r.Post("/internal/freezes/{freezeID}/reschedule", h.handleRetryRescheduling)
	})

	return r
}
