/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:           Request logging
  2. Recoverer:        Panic recovery (500 instead of crash)
  3. RequestID:        Unique ID per request for tracing
  4. CORS:             Cross-origin requests for frontend
  5. RequirePrincipal: Bearer token verification on /api routes

ROUTE GROUPS:
  /api/sales/*         Sale ledger and payments
  /api/sessions        Session records
  /api/clients/*       Client-scoped views
  /api/appointments/*  Appointment lifecycle
  /api/dashboard       Aggregate statistics
  /health              Liveness probe (no auth)

SEE ALSO:
  - handlers.go: Handler implementations
  - auth.go: Principal middleware
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, jwtSecret string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// Liveness probe, outside the authenticated group
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})

	// API routes, all behind principal verification
	r.Route("/api", func(r chi.Router) {
		r.Use(RequirePrincipal(jwtSecret))

		// Sale routes
		r.Route("/sales", func(r chi.Router) {
			r.Get("/", h.ListSales)
			r.Post("/", h.CreateSale)
			r.Get("/{id}", h.GetSale)
			r.Put("/{id}", h.UpdateSale)
			r.Delete("/{id}", h.DeleteSale)
			r.Get("/{id}/payments", h.GetSalePayments)
			r.Post("/{id}/payments", h.CreatePayment)
			r.Post("/{id}/use-session", h.UseSession)
		})

		// Session routes
		r.Get("/sessions", h.ListSessions)

		// Client-scoped routes
		r.Route("/clients/{id}", func(r chi.Router) {
			r.Get("/sales", h.ClientSales)
			r.Get("/remaining-sessions", h.ClientRemainingSessions)
		})

		// Appointment routes
		r.Route("/appointments", func(r chi.Router) {
			r.Get("/", h.ListAppointments)
			r.Post("/", h.CreateAppointment)
			r.Get("/{id}", h.GetAppointment)
			r.Put("/{id}", h.UpdateAppointment)
			r.Delete("/{id}", h.DeleteAppointment)
			r.Patch("/{id}/status", h.UpdateAppointmentStatus)
		})

		// Dashboard
		r.Get("/dashboard", h.GetDashboard)
	})

	return r
}
