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

	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/cart-service/internal/cache"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/cart-service/internal/catalog"
	carthttp "github.com/aashish-nepal/Raadhya-Ethnica-sub000/cart-service/internal/http"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/cart-service/internal/poller"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/cart-service/internal/repository"
	s "github.com/aashish-nepal/Raadhya-Ethnica-sub000/cart-service/internal/service"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/config"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/coupon"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/docstore"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/httpapi"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/logger"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg, err := config.Load("8081")
	if err != nil {
		boot := logger.New("cart-service", "info", false)
		boot.Fatal().Err(err).Msg("failed to load config")
	}
	log := logger.New("cart-service", cfg.Log.Level, cfg.Log.Pretty)

	pricingCfg, err := cfg.Pricing.Build()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid pricing settings")
	}

	shutdownTracer := telemetry.Noop()
	if cfg.Tracing.Enabled {
		shutdownTracer, err = telemetry.InitTracerProvider("cart-service", cfg.Tracing.JaegerEndpoint)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init tracer")
		}
	}

	// Set up MongoDB connection
	ctx := context.Background()
	mongoDB, err := docstore.Connect(ctx, cfg.Store.MongoURI, cfg.Store.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	log.Info().Str("uri", cfg.Store.MongoURI).Msg("connected to MongoDB")

	repo := repository.NewMongoRepository(mongoDB)
	if err := repo.EnsureIndexes(ctx, repository.DefaultRetention); err != nil {
		log.Fatal().Err(err).Msg("failed to create cart indexes")
	}
	docs := docstore.NewMongoStore(mongoDB)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}

	cartCache := cache.NewRedisCache(redisClient, cache.WithTTL(cfg.Redis.CacheTTL))
	service := s.NewCartService(
		repo,
		cartCache,
		catalog.NewStore(docs),
		coupon.NewStoreRepository(docs),
		pricingCfg,
		log,
	)

	// Clear carts once orders are created
	var wg sync.WaitGroup
	orderPoller := poller.NewPoller(service, log, cfg.Kafka.OrderEventsTopic, cfg.Kafka.Brokers...)
	pollerCtx, pollerCancel := context.WithCancel(context.Background())
	wg.Add(1)
	go func() {
		defer wg.Done()
		orderPoller.Run(pollerCtx)
	}()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logger.Middleware(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.HTTP.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httpapi.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Mount("/api/v1/cart", carthttp.NewCartHandler(service, cfg.HTTP.RequestTimeout).Routes())

	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      otelhttp.NewHandler(r, "cart-service"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.HTTP.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.HTTP.Port).Msg("cart service listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down cart service...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	pollerCancel()
	doneChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneChan)
	}()
	select {
	case <-doneChan:
		log.Info().Msg("poller stopped cleanly")
	case <-shutdownCtx.Done():
		log.Warn().Msg("poller didn't stop in time")
	}
	orderPoller.Close()

	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("tracer shutdown failed")
	}
	if err := mongoDB.Client().Disconnect(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("mongo disconnect failed")
	}
	log.Info().Msg("cart service stopped")
}
