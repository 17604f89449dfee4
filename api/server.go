/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, the middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request, echoed in request logs
  2. Logger:     zap request logging (method, path, status, duration)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests from the configured origins

ROUTE GROUPS:
  /api/periods/*     Stateless period arithmetic
  /api/profiles/*    Profiles, periods off, expenses and invoices
  /api/scenarios/*   Demo profiles

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// NewRouter creates a new router with all routes configured. Requests from
// allowedOrigins pass CORS.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/periods", func(r chi.Router) {
			r.Get("/normalize", h.NormalizePeriod)
			r.Get("/elapsed", h.ElapsedPeriods)
			r.Get("/shift", h.ShiftPeriod)
			r.Get("/relative", h.RelativePeriod)
			r.Get("/label", h.ParseLabel)
			r.Get("/working-days", h.WorkingDays)
		})

		r.Route("/profiles", func(r chi.Router) {
			r.Get("/", h.ListProfiles)
			r.Post("/", h.CreateProfile)
			r.Get("/{id}", h.GetProfile)
			r.Delete("/{id}", h.DeleteProfile)
			r.Put("/{id}/anchor", h.Reanchor)
			r.Post("/{id}/periods-off", h.RecordPeriodOff)
			r.Post("/{id}/expenses", h.RecordExpenses)
			r.Get("/{id}/invoice-number", h.GetInvoiceNumber)
			r.Get("/{id}/quantity", h.GetQuantity)
			r.Post("/{id}/prepare", h.PrepareInvoice)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("request",
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
