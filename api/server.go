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
  /api/state            Scenario, clock and run status
  /api/pools/*          Resource pools and their journals
  /api/activities       Activity tree
  /api/steps            Step the simulation
  /api/scenarios/*      Preset and custom farms
  /*                    Static files (frontend)

STATIC FILE SERVING:
  Serves a built frontend from web/dist/ when present, falling back to
  index.html for client-side routing. Without it, a plain page lists the
  main endpoints.

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"os"
	"path/filepath"

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
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.GetState)

		r.Route("/pools", func(r chi.Router) {
			r.Get("/", h.ListPools)
			r.Get("/{name}", h.GetPool)
			r.Get("/{name}/transactions", h.GetPoolTransactions)
		})

		r.Get("/activities", h.ListActivities)
		r.Get("/transactions", h.ListTransactions)
		r.Get("/diagnostics", h.ListDiagnostics)
		r.Get("/runs", h.ListRuns)

		r.Post("/steps", h.Step)
		r.Post("/complete", h.CompleteRun)

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	staticDir := "./web/dist"
	if _, err := os.Stat(staticDir); os.IsNotExist(err) {
		exe, _ := os.Executable()
		staticDir = filepath.Join(filepath.Dir(exe), "web", "dist")
	}

	if _, err := os.Stat(staticDir); err == nil {
		fileServer := http.FileServer(http.Dir(staticDir))
		r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
			fullPath := filepath.Join(staticDir, r.URL.Path)
			if _, err := os.Stat(fullPath); os.IsNotExist(err) {
				// SPA routing: serve index.html
				http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
				return
			}
			fileServer.ServeHTTP(w, r)
		})
	} else {
		r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Farm Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Farm Engine API</h1>
<p>Load a scenario with <code>POST /api/scenarios/load</code>, then step it with <code>POST /api/steps</code>.</p>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/scenarios">/api/scenarios</a> - List scenarios</li>
<li><a href="/api/state">/api/state</a> - Current run</li>
<li><a href="/api/pools">/api/pools</a> - Resource pools</li>
<li><a href="/api/activities">/api/activities</a> - Activity tree</li>
<li><a href="/api/transactions">/api/transactions</a> - Recent transactions</li>
</ul>
</body>
</html>`))
		})
	}

	return r
}
