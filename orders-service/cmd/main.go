package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/orders-service/internal/consumer"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/orders-service/internal/feed"
	ordershttp "github.com/aashish-nepal/Raadhya-Ethnica-sub000/orders-service/internal/http"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/orders-service/internal/metrics"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/orders-service/internal/notify"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/orders-service/internal/publisher"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/orders-service/internal/repository"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/orders-service/internal/service"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/circuitbreaker"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/config"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/coupon"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/docstore"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/events"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/httpapi"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/logger"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const notificationTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load("8082")
	if err != nil {
		boot := logger.New("orders-service", "info", false)
		boot.Fatal().Err(err).Msg("failed to load config")
	}
	log := logger.New("orders-service", cfg.Log.Level, cfg.Log.Pretty)

	pricingCfg, err := cfg.Pricing.Build()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid pricing settings")
	}

	shutdownTracer := telemetry.Noop()
	if cfg.Tracing.Enabled {
		shutdownTracer, err = telemetry.InitTracerProvider("orders-service", cfg.Tracing.JaegerEndpoint)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init tracer")
		}
	}

	ctx := context.Background()
	store, closeStore := openStore(ctx, cfg.Store, log)

	repo := repository.NewRepository(store, log)
	if err := repo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to create order indexes")
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	notificationWriter := events.NewWriter(cfg.Kafka.NotificationsTopic, cfg.Kafka.Brokers...)
	breaker := circuitbreaker.New(circuitbreaker.DefaultSettings("notifications"), log)
	dispatcher := notify.NewAsyncDispatcher(
		notify.NewKafkaDispatcher(notificationWriter, breaker),
		notificationTimeout,
		log,
		m.NotificationsFailed,
	)
	orderEvents := publisher.NewPublisher(events.NewWriter(cfg.Kafka.OrderEventsTopic, cfg.Kafka.Brokers...))

	orders := service.NewOrderService(
		repo,
		repo,
		repo,
		coupon.NewStoreRepository(store),
		dispatcher,
		orderEvents,
		pricingCfg,
		m,
		log,
	)

	// Create orders from confirmed payments
	var wg sync.WaitGroup
	paymentConsumer := consumer.NewConsumer(orders, log, cfg.Kafka.PaymentsTopic, cfg.Kafka.Brokers...)
	consumerCtx, consumerCancel := context.WithCancel(context.Background())
	wg.Add(1)
	go func() {
		defer wg.Done()
		paymentConsumer.Run(consumerCtx)
	}()

	handler := ordershttp.NewOrdersHandler(orders, cfg.HTTP.RequestTimeout)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logger.Middleware(log))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httpapi.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Mount("/api/v1/orders", handler.Routes())
	r.Mount("/api/v1/admin/orders", handler.AdminRoutes(feed.NewFeed(repo, log)))

	srv := &http.Server{
		Addr:        ":" + cfg.HTTP.Port,
		Handler:     otelhttp.NewHandler(r, "orders-service"),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.HTTP.Port).Msg("orders service listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down orders service...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	consumerCancel()
	doneChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneChan)
	}()
	select {
	case <-doneChan:
		log.Info().Msg("consumer stopped cleanly")
	case <-shutdownCtx.Done():
		log.Warn().Msg("consumer didn't stop in time")
	}
	paymentConsumer.Close()

	dispatcher.Close()
	if err := notificationWriter.Close(); err != nil {
		log.Error().Err(err).Msg("notification writer close failed")
	}
	if err := orderEvents.Close(); err != nil {
		log.Error().Err(err).Msg("order events writer close failed")
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("tracer shutdown failed")
	}
	closeStore(shutdownCtx)
	log.Info().Msg("orders service stopped")
}

// openStore returns the configured document store and its close function.
func openStore(ctx context.Context, cfg config.StoreConfig, log zerolog.Logger) (docstore.Store, func(context.Context)) {
	if cfg.Driver == "memory" {
		log.Warn().Msg("using in-memory document store, data is lost on restart")
		return docstore.NewMemoryStore(), func(context.Context) {}
	}

	db, err := docstore.Connect(ctx, cfg.MongoURI, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	log.Info().Str("uri", cfg.MongoURI).Msg("connected to MongoDB")

	return docstore.NewMongoStore(db), func(ctx context.Context) {
		if err := db.Client().Disconnect(ctx); err != nil {
			log.Error().Err(err).Msg("mongo disconnect failed")
		}
	}
}
