package transport

import (
	"context"
	"net/http"
	"time"

	"campus-eats/internal/idempotency"
	"campus-eats/internal/logger"
	"campus-eats/internal/menu"
	"campus-eats/internal/metrics"
	"campus-eats/internal/middleware"
	"campus-eats/internal/order"
	"campus-eats/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type Deps struct {
	MenuSvc       menu.Service
	OrderSvc      order.Service
	Guard         *idempotency.Guard
	Secret        []byte
	AllowedOrigin string
	Limiter       *middleware.RateLimiter
	HTTPMetrics   *metrics.HTTPMetrics
	Gatherer      prometheus.Gatherer
	// Ping checks the database for /api/health.
	Ping func(ctx context.Context) error
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(logger.RequestIDMiddleware)
	r.Use(middleware.CORS(d.AllowedOrigin))
	if d.HTTPMetrics != nil {
		r.Use(d.HTTPMetrics.Middleware)
	}
	r.Use(middleware.AuthMiddleware(d.Secret))
	r.Use(middleware.LoggingMiddleware)
	if d.Limiter != nil {
		r.Use(d.Limiter.Middleware)
	}

	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(d.Gatherer))
	}

	menuH := NewMenuHandler(d.MenuSvc)
	orderH := NewOrderHandler(d.OrderSvc, d.Guard)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler(d.Ping))

		r.Route("/menu", func(r chi.Router) {
			r.Get("/", menuH.List)
			r.Get("/categories", menuH.Categories)
			r.Get("/{id}", menuH.Get)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(middleware.RequireAuth)

			r.Post("/", orderH.Create)
			r.Get("/", orderH.ListMine)
			r.With(middleware.RequireAdmin).Get("/stats", orderH.Stats)
			r.With(middleware.RequireAdmin).Get("/all", orderH.ListAll)
			r.Get("/{id}", orderH.Get)
			r.With(middleware.RequireAdmin).Put("/{id}/status", orderH.UpdateStatus)
			r.Put("/{id}/cancel", orderH.Cancel)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSONError(w, http.StatusNotFound, "not_found", "Route not found")
	})

	return r
}

func healthHandler(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				logger.FromCtx(r.Context()).Warn("health check failed", zap.Error(err))
				utils.WriteJSONError(w, http.StatusServiceUnavailable, "storage_unavailable", "Database unreachable")
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"message": "Campus Eats API is running",
		})
	}
}
