package main

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	h "github.com/aashish-nepal/Raadhya-Ethnica-sub000/api-gateway/internal/http"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/config"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/logger"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg, err := config.Load("8080")
	if err != nil {
		boot := logger.New("api-gateway", "info", false)
		boot.Fatal().Err(err).Msg("failed to load config")
	}
	log := logger.New("api-gateway", cfg.Log.Level, cfg.Log.Pretty)

	shutdownTracer := telemetry.Noop()
	if cfg.Tracing.Enabled {
		shutdownTracer, err = telemetry.InitTracerProvider("api-gateway", cfg.Tracing.JaegerEndpoint)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init tracer")
		}
	}

	cartURL, err := url.Parse(cfg.Gateway.CartServiceURL)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid cart service url")
	}
	ordersURL, err := url.Parse(cfg.Gateway.OrdersServiceURL)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid orders service url")
	}
	if cfg.Gateway.AdminToken == "" {
		log.Warn().Msg("ADMIN_TOKEN not set, admin routes are unreachable")
	}

	router := h.NewRouter(h.RouterConfig{
		CartService:    cartURL,
		OrdersService:  ordersURL,
		AdminToken:     cfg.Gateway.AdminToken,
		RequestTimeout: cfg.HTTP.RequestTimeout,
	}, prometheus.DefaultRegisterer, prometheus.DefaultGatherer, log)

	srv := &http.Server{
		Addr:        ":" + cfg.HTTP.Port,
		Handler:     otelhttp.NewHandler(router, "api-gateway"),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.HTTP.Port).
			Str("cart_service", cartURL.String()).
			Str("orders_service", ordersURL.String()).
			Msg("API gateway listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	if err := shutdownTracer(ctx); err != nil {
		log.Error().Err(err).Msg("tracer shutdown failed")
	}
	log.Info().Msg("server exited")
}
