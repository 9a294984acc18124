/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:     Unique ID per request for tracing
  2. RealIP:        Client address behind proxies
  3. RequestLogger: One slog line per request
  4. Recoverer:     Panic recovery (500 instead of crash)
  5. CORS:          Cross-origin requests for a frontend
  6. Idempotent:    Replay of retried mutations (leave and employee writes)

ROUTE GROUPS:
  /healthz              Liveness
  /api/employees/*      Employees, balances, overrides
  /api/leaves/*         Submit, modify, resolve, delete
  /api/holidays/*       Holiday calendar
  /api/calendar/*       Working-day arithmetic
  /api/reports/*        Read-only reports
  /api/admin/*          Rollover, jobs, expired buckets
  /api/scenarios/*      Demo scenarios

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: RequestLogger and Idempotent
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/warp/leave-ledger/store/idempotency"
)

// RouterOptions configures the optional parts of the router.
type RouterOptions struct {
	CORSOrigins []string
	// Idempotency enables Idempotency-Key replay; nil disables it.
	Idempotency *idempotency.Store
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", IdempotencyHeader},
		ExposedHeaders:   []string{"Location", "Idempotent-Replayed"},
		AllowCredentials: true,
	}))

	idem := Idempotent(opts.Idempotency)

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/leave-types", h.ListLeaveTypes)

		// Employee routes
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.With(idem).Post("/", h.CreateEmployee)
			r.Get("/{id}", h.GetEmployee)
			r.Put("/{id}", h.UpdateEmployee)
			r.Post("/{id}/archive", h.ArchiveEmployee)
			r.Post("/{id}/restore", h.RestoreEmployee)
			r.Get("/{id}/balance", h.GetBalance)
			r.Get("/{id}/preview", h.PreviewDeduction)
			r.With(idem).Put("/{id}/buckets", h.OverrideBuckets)
			r.Get("/{id}/leaves", h.ListEmployeeLeaves)
		})

		// Leave routes
		r.Route("/leaves", func(r chi.Router) {
			r.Use(idem)
			r.Post("/", h.SubmitLeave)
			r.Post("/resolve", h.ResolveLeave)
			r.Get("/{id}", h.GetLeave)
			r.Put("/{id}", h.ModifyLeave)
			r.Delete("/{id}", h.DeleteLeave)
		})

		// Holiday routes
		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Post("/", h.CreateHoliday)
			r.Delete("/{id}", h.DeleteHoliday)
		})

		r.Get("/calendar/working-days", h.WorkingDays)

		// Report routes
		r.Route("/reports", func(r chi.Router) {
			r.Get("/on-leave", h.OnLeave)
			r.Get("/upcoming", h.Upcoming)
			r.Get("/inconsistent", h.Inconsistent)
			r.Get("/sick", h.DocumentedLeaves)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Get("/fiscal-year", h.GetFiscalYear)
			r.Post("/rollover", h.TriggerRollover)
			r.Get("/jobs", h.ListJobs)
			r.Get("/jobs/{id}", h.GetJob)
			r.Get("/buckets/expired", h.ListExpiredBuckets)
			r.Post("/buckets/clear", h.ClearBuckets)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Leave Ledger</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Leave Ledger API</h1>
<ul>
<li><a href="/api/employees">/api/employees</a> - List employees</li>
<li><a href="/api/leave-types">/api/leave-types</a> - Leave types</li>
<li><a href="/api/scenarios">/api/scenarios</a> - List scenarios</li>
<li><a href="/api/admin/fiscal-year">/api/admin/fiscal-year</a> - Fiscal year</li>
</ul>
</body>
</html>`))
	})

	return r
}
