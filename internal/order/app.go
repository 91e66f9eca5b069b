package order

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"Storefront/internal/catalog"
	"Storefront/pkg/kit"
)

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry

	MetricsEnabled bool
	MetricsToken   string

	// AllowedOrigins is the storefront frontend; empty disables CORS.
	AllowedOrigins []string
	// CreateLimitPerMin caps session/order creation per client IP; 0 disables it.
	CreateLimitPerMin int
}

func NewHandler(s *Server, products *catalog.Server, deps HTTPDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(kit.Recoverer(deps.Log))
	r.Use(kit.Logging(deps.Log))

	if len(deps.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   deps.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
			ExposedHeaders:   []string{"X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	if deps.Registry != nil {
		metrics := kit.NewMetrics(deps.Registry)
		r.Use(metrics.Middleware(deps.Service, kit.ChiRoutePatternOrPath))
		if deps.MetricsEnabled {
			r.With(kit.MetricsAuth(deps.MetricsToken)).
				Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
		}
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()

		type check struct {
			name string
			ping func(context.Context) error
		}
		checks := []check{{"orders", s.Store.Ping}}
		if products != nil && products.Store != nil {
			checks = append(checks, check{"catalog", products.Store.Ping})
		}
		for _, c := range checks {
			if err := c.ping(ctx); err != nil {
				if s.Log != nil {
					s.Log.Warn("readyz failed", zap.String("check", c.name), zap.Error(err))
				}
				kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", map[string]any{"check": c.name})
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", s.HealthHandler())
		if products != nil {
			products.Register(api)
		}

		api.Group(func(cr chi.Router) {
			if deps.CreateLimitPerMin > 0 {
				cr.Use(kit.NewIPRateLimiter(deps.CreateLimitPerMin, time.Minute).Middleware)
			}
			cr.Post("/create-session", s.CreateSessionHandler())
			cr.Post("/create-order", s.CreateHandler())
		})

		api.Get("/orders", s.ListHandler())
		api.Get("/orders/{id}", s.GetHandler())
		api.Get("/order/{id}", s.GetHandler())
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		kit.WriteError(w, r, http.StatusNotFound, "endpoint not found", nil)
	})

	return r
}
