package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/inkstream/note-gateway/pkg/ai"
	"github.com/inkstream/note-gateway/pkg/config"
	"github.com/inkstream/note-gateway/pkg/handlers"
	"github.com/inkstream/note-gateway/pkg/middleware"
	"github.com/inkstream/note-gateway/pkg/ratelimit"
	"github.com/inkstream/note-gateway/pkg/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger = createLoggerWithLevel(cfg.LogLevel)

	logger.Info("Starting note gateway",
		slog.String("port", cfg.Port),
		slog.String("model", cfg.LLMModel),
		slog.Bool("redis_limiter", cfg.RedisAddr != ""),
		slog.Bool("database", cfg.DatabaseURL != ""),
	)

	// Upstream rate limit window: shared via Redis when configured, else a
	// process-local window.
	limiterConfig := ratelimit.RedisLimiterConfig{
		MaxRequests: cfg.RateLimitRequests,
		Window:      cfg.RateLimitWindow,
	}
	var upstream ratelimit.Limiter
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Error("Failed to connect to Redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		upstream = ratelimit.NewRedisLimiter(redisClient, limiterConfig, logger)
	} else {
		logger.Warn("REDIS_ADDR not set; rate limit windows are per-instance")
		upstream = ratelimit.NewMemoryLimiter(limiterConfig)
	}

	gate := ratelimit.NewGate(upstream, ratelimit.GateConfig{
		LocalTTL: cfg.RateLimitLocalTTL,
	}, logger)

	memoizer := ai.NewMemoizer(ai.MemoizerConfig{
		MaxEntries: cfg.CacheMaxEntries,
		TTL:        cfg.CacheTTL,
	}, logger)

	llmClient := ai.NewClient(ai.ClientConfig{
		APIURL:           cfg.LLMAPIURL,
		APIKey:           cfg.LLMAPIKey,
		Model:            cfg.LLMModel,
		Timeout:          cfg.LLMTimeout,
		BreakerThreshold: cfg.CircuitBreakerThreshold,
		BreakerCooldown:  cfg.CircuitBreakerCooldown,
	}, logger)

	aiHandler := handlers.NewAIActionHandler(ai.LoadPrompts(), gate, memoizer, llmClient, logger)
	healthChecker := handlers.NewHealthChecker()

	router := mux.NewRouter()
	router.Use(middleware.RequestLogger(logger))
	if cfg.CORSEnabled {
		cors := middleware.NewCORSMiddleware(middleware.CORSConfig{
			AllowedOrigins: cfg.AllowedOrigins,
		}, logger)
		router.Use(cors.Middleware)
	}
	sizeLimiter := middleware.NewRequestSizeLimiter(cfg.MaxRequestSize, logger)
	router.Use(sizeLimiter.Middleware)

	router.HandleFunc("/healthz", healthChecker.HealthzHandler).Methods(http.MethodGet)
	router.HandleFunc("/readyz", healthChecker.ReadyzHandler).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	router.HandleFunc("/ai-action", aiHandler.HandleAIAction).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/summarize", aiHandler.HandleSummarize).Methods(http.MethodPost, http.MethodOptions)

	// Note and folder CRUD routes are mounted only when a database is
	// configured; the AI pipeline works standalone without one.
	var pgStore *store.PostgresStore
	if cfg.DatabaseURL != "" {
		pgStore, err = store.NewPostgresStore(cfg.DatabaseURL, logger)
		if err != nil {
			logger.Error("Failed to open database", slog.String("error", err.Error()))
			os.Exit(1)
		}

		// Edits invalidate cached AI responses derived from older content.
		invalidate := memoizer.Clear
		notesHandler := handlers.NewNotesHandler(pgStore, invalidate, logger)
		foldersHandler := handlers.NewFoldersHandler(pgStore, invalidate, logger)

		router.HandleFunc("/notes", notesHandler.ListNotes).Methods(http.MethodGet)
		router.HandleFunc("/notes", notesHandler.CreateNote).Methods(http.MethodPost, http.MethodOptions)
		router.HandleFunc("/notes/{id}", notesHandler.GetNote).Methods(http.MethodGet)
		router.HandleFunc("/notes/{id}", notesHandler.UpdateNote).Methods(http.MethodPut, http.MethodOptions)
		router.HandleFunc("/notes/{id}", notesHandler.DeleteNote).Methods(http.MethodDelete, http.MethodOptions)
		router.HandleFunc("/folders", foldersHandler.ListFolders).Methods(http.MethodGet)
		router.HandleFunc("/folders", foldersHandler.CreateFolder).Methods(http.MethodPost, http.MethodOptions)
		router.HandleFunc("/folders/{id}", foldersHandler.DeleteFolder).Methods(http.MethodDelete, http.MethodOptions)
	}

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     router,
		ReadTimeout: cfg.RequestTimeout,
		// Write timeout must cover a whole streamed response, which can run
		// as long as the backend takes.
		WriteTimeout: cfg.LLMTimeout + cfg.RequestTimeout,
		IdleTimeout:  2 * time.Minute,
	}

	healthChecker.SetReady(true)

	go func() {
		logger.Info("Server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed to start", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Server shutting down...")
	healthChecker.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GracefulShutdown)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", slog.String("error", err.Error()))
	}
	if pgStore != nil {
		if err := pgStore.Close(); err != nil {
			logger.Error("Database close failed", slog.String("error", err.Error()))
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("Redis close failed", slog.String("error", err.Error()))
		}
	}

	logger.Info("Server exited")
}

// createLoggerWithLevel creates a logger with the specified level.
func createLoggerWithLevel(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
}
