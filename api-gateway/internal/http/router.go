package http

import (
	"net/http"
	"net/url"
	"time"

	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/httpapi"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type RouterConfig struct {
	CartService    *url.URL
	OrdersService  *url.URL
	AdminToken     string
	RequestTimeout time.Duration
}

// NewRouter builds the public API. Long-lived streams skip the request
// timeout.
func NewRouter(cfg RouterConfig, reg prometheus.Registerer, gatherer prometheus.Gatherer, log zerolog.Logger) http.Handler {
	cart := NewServiceProxy("cart-service", cfg.CartService, log)
	orders := NewServiceProxy("orders-service", cfg.OrdersService, log)
	metrics := NewMetrics(reg)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(logger.Middleware(log))
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httpapi.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.AdminToken))

		r.Handle("/admin/orders/stream", orders)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(cfg.RequestTimeout))
			r.Handle("/cart", cart)
			r.Handle("/cart/*", cart)
			r.Handle("/orders", orders)
			r.Handle("/orders/*", orders)
			r.Handle("/admin/orders", orders)
			r.Handle("/admin/orders/*", orders)
		})
	})

	return r
}
