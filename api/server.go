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
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/purchase/*   Purchase order management
  /api/grn          Goods receipt intake
  /api/scenarios/*  Demo scenarios

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
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
		// Purchase order routes. The status listing is registered before
		// the {id} wildcard so "status" is never captured as an id.
		r.Route("/purchase", func(r chi.Router) {
			r.Post("/", h.CreatePO)
			r.Get("/status", h.ListStatuses)
			r.Post("/{po_no}/revision", h.RevisePO)
			r.Get("/{id}/status", h.GetStatus)
		})

		// Goods receipt routes
		r.Post("/grn", h.CreateGrn)

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Procure Ledger</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Procure Ledger API</h1>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/purchase/status">/api/purchase/status</a> - List active PO statuses</li>
<li><a href="/api/scenarios">/api/scenarios</a> - List demo scenarios</li>
</ul>
</body>
</html>`))
	})

	return r
}
