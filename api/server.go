/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/accounts/*   Account billing operations
  /api/landlords/*  Per-landlord reports
  /api/reports/*    Portfolio-wide reports

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Account routes
		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", h.ListAccounts)
			r.Get("/{id}", h.GetAccount)
			r.Get("/{id}/payments", h.GetPayments)
			r.Post("/{id}/payments", h.RecordPayments)
			r.Post("/{id}/reconcile", h.ReconcileAccount)
			r.Get("/{id}/ledger", h.GetLedger)
			r.Get("/{id}/verify", h.VerifyAccount)
			r.Post("/{id}/repair", h.RepairAccount)
		})

		// Landlord routes
		r.Route("/landlords", func(r chi.Router) {
			r.Get("/{id}/arrears", h.LandlordArrears)
			r.Get("/{id}/statement", h.LandlordStatement)
		})

		// Report routes
		r.Route("/reports", func(r chi.Router) {
			r.Get("/arrears", h.ArrearsReport)
			r.Get("/service-charge", h.ServiceChargeReport)
		})
	})

	return r
}
