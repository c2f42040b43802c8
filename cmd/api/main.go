// cmd/api/main.go
// Main entry point for the matching API
// This file bootstraps all components and starts the server

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/imadgeboyega/kiekky-matching/internal/auth"
	"github.com/imadgeboyega/kiekky-matching/internal/common/database"
	"github.com/imadgeboyega/kiekky-matching/internal/config"
	"github.com/imadgeboyega/kiekky-matching/internal/logging"
	"github.com/imadgeboyega/kiekky-matching/internal/matching"
	"github.com/imadgeboyega/kiekky-matching/internal/scoring"
)

const requestTimeout = 15 * time.Second

func main() {
	// 1. Load environment variables
	envErr := godotenv.Load()

	// 2. Load and validate configuration
	cfg, err := config.Load()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		logging.Fatal().Err(err).Msg("configuration validation failed")
	}

	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if envErr != nil {
		logging.Info().Msg("no .env file found, using environment variables")
	}
	logging.Info().
		Str("environment", cfg.Environment).
		Str("variant", cfg.Matching.Variant).
		Int("recommend_threshold", cfg.Matching.RecommendThreshold).
		Msg("starting matching API")

	// 3. Connect to PostgreSQL
	db, err := database.NewPostgresDBFromURL(cfg.DatabaseURL)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect to PostgreSQL")
	}
	defer db.Close()
	logging.Info().Msg("connected to PostgreSQL")

	// 4. Compatibility cache
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	scheduler := matching.NewScheduler()
	cache, redisClient := buildCache(cfg, scheduler)
	if redisClient != nil {
		defer redisClient.Close()
	}

	// 5. Matching engine
	engine, err := buildEngine(cfg, db, cache)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to build matching engine")
	}

	// 6. Routes
	authMiddleware := auth.NewMiddleware(cfg.JWTSecret)
	limiter := auth.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	scheduler.Every("rate-limiter-cleanup", time.Hour, func(context.Context) error {
		limiter.Cleanup(time.Hour)
		return nil
	})

	router := mux.NewRouter()
	router.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	router.Use(loggingMiddleware)
	router.Use(middleware.Timeout(requestTimeout))

	router.HandleFunc("/health", healthCheck(db)).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := router.NewRoute().Subrouter()
	api.Use(limiter.Middleware)
	matching.RegisterRoutes(api, matching.NewHandler(engine), authMiddleware)

	scheduler.Start(ctx)

	// 7. Serve
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      requestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logging.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Info().Msg("shutdown signal received")

	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("server forced to shutdown")
	}
	logging.Info().Msg("server exited")
}

// buildCache returns the Redis cache when configured and reachable, otherwise the
// in-process cache with a periodic sweep.
func buildCache(cfg *config.Config, scheduler *matching.Scheduler) (matching.CompatibilityCache, *redis.Client) {
	if cfg.CacheBackend == "redis" {
		client, err := database.NewRedisClientFromURL(cfg.RedisURL)
		if err == nil {
			logging.Info().Msg("using Redis compatibility cache")
			return matching.NewRedisCache(client), client
		}
		logging.Warn().Err(err).Msg("Redis unavailable, falling back to in-memory cache")
	}

	mem := matching.NewMemoryCache()
	scheduler.Every("compatibility-cache-sweep", cfg.Matching.CacheSweepInterval, matching.SweepTask(mem))
	return mem, nil
}

func buildEngine(cfg *config.Config, db *sqlx.DB, cache matching.CompatibilityCache) (*matching.Engine, error) {
	mc := cfg.Matching

	aggregator, err := scoring.NewAggregator(
		mc.Weights,
		mc.RecommendThreshold,
		scoring.NewQuestionnaireScorer(mc.QuestionnaireGroups, mc.QuestionnairePerGroup),
	)
	if err != nil {
		return nil, err
	}

	steps := mc.CategoryLadder
	if len(steps) == 0 {
		steps = matching.DefaultCategoryLadder
	}
	ladder, err := matching.NewLadder(steps)
	if err != nil {
		return nil, err
	}

	repo := matching.NewBreakerRepository(matching.NewPostgresRepository(db), matching.BreakerSettings{
		MaxFailures: uint32(cfg.BreakerMaxFailures),
		OpenTimeout: cfg.BreakerOpenTimeout,
	})

	return matching.NewEngine(repo, cache, aggregator, matching.NewFilterPipeline(ladder), matching.Options{
		CacheTTL:     mc.CacheTTL,
		Concurrency:  mc.Concurrency,
		DefaultLimit: mc.DefaultLimit,
		MaxLimit:     mc.MaxLimit,
		PoolSize:     mc.PoolSize,
	}), nil
}
