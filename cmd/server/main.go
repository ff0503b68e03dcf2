package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"healthbridge-backend/internal/cache"
	"healthbridge-backend/internal/config"
	"healthbridge-backend/internal/database"
	"healthbridge-backend/internal/handlers"
	"healthbridge-backend/internal/logging"
	"healthbridge-backend/internal/repository"
	"healthbridge-backend/internal/router"
	"healthbridge-backend/internal/services"
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err := cfg.Validate(); err != nil {
		logging.Fatal().Err(err).Msg("invalid configuration")
	}
	logging.Info().Str("env", cfg.Env).Str("storage", cfg.StorageBackend).Msg("starting HealthBridge backend")

	// ──── Step 2: Open Storage and Apply Migrations ────
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := database.Open(ctx, cfg)
	cancel()
	if err != nil {
		logging.Fatal().Err(err).Msg("storage initialization failed")
	}
	defer db.Close()
	logging.Info().Str("dialect", db.Dialect().String()).Msg("storage ready, migrations applied")

	// ──── Step 3: Optional Redis Query Cache ────
	redisClient, err := database.NewRedisClient(cfg.RedisURL)
	if err != nil {
		logging.Fatal().Err(err).Msg("Redis connection failed")
	}
	if redisClient != nil {
		defer redisClient.Close()
		logging.Info().Dur("ttl", cfg.CacheTTL()).Msg("Redis query cache enabled")
	}
	queryCache := cache.New(redisClient, cfg.CacheTTL())

	// ──── Step 4: Optional Gemini Client ────
	var completion services.CompletionClient
	if cfg.GeminiAPIKey != "" {
		gemini, err := services.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiConcurrentReqs)
		if err != nil {
			logging.Fatal().Err(err).Msg("Gemini client initialization failed")
		}
		defer gemini.Close()
		completion = gemini
		logging.Info().Str("model", cfg.GeminiModel).Msg("Gemini client initialized")
	} else {
		logging.Warn().Msg("GEMINI_API_KEY not set, nutrition analysis disabled")
	}

	// ──── Initialize Repositories and Services ────
	clock := services.NewClock(cfg.Location())
	healthRepo := repository.NewHealthRepo(db)
	mealRepo := repository.NewMealRepo(db)

	syncService := services.NewSyncService(healthRepo, queryCache)
	queryService := services.NewQueryService(healthRepo, queryCache, clock)
	nutritionService := services.NewNutritionService(completion, mealRepo, clock, cfg.GatewayTimeout())

	// ──── Initialize Handlers ────
	syncHandler := handlers.NewSyncHandler(syncService, cfg.MaxBodyBytes)
	healthHandler := handlers.NewHealthHandler(queryService)
	nutritionHandler := handlers.NewNutritionHandler(nutritionService, cfg.MaxBodyBytes)

	// ──── Step 5: Start HTTP Server ────
	r := router.New(
		router.Options{
			APIKey:               cfg.APIKey,
			AllowedOrigins:       cfg.CORSAllowedOrigins,
			AnalyzeRatePerMinute: cfg.AnalyzeRatePerMinute,
		},
		syncHandler,
		healthHandler,
		nutritionHandler,
	)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.GatewayTimeout() + 15*time.Second, // analyze can take up to the gateway timeout
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logging.Info().Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	logging.Info().Str("addr", cfg.Addr()).Msg("HealthBridge backend ready")

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		logging.Fatal().Err(err).Msg("server error")
	}
}
