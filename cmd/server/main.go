package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/toefl-quiz-backend/internal/ai"
	"github.com/stemsi/toefl-quiz-backend/internal/config"
	"github.com/stemsi/toefl-quiz-backend/internal/database"
	"github.com/stemsi/toefl-quiz-backend/internal/handler"
	"github.com/stemsi/toefl-quiz-backend/internal/limiter"
	"github.com/stemsi/toefl-quiz-backend/internal/logger"
	"github.com/stemsi/toefl-quiz-backend/internal/observability"
	"github.com/stemsi/toefl-quiz-backend/internal/repository"
	"github.com/stemsi/toefl-quiz-backend/internal/router"
	"github.com/stemsi/toefl-quiz-backend/internal/service"
	"github.com/stemsi/toefl-quiz-backend/internal/validator"
	"github.com/stemsi/toefl-quiz-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Str("ai_provider", cfg.AIProvider).
		Msg("Starting TOEFL Quiz Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Tracing & Metrics ─────────────────────────────────────────────
	shutdownTracing, err := observability.InitTracing(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize tracing")
	}

	var metrics *observability.Metrics
	if cfg.MetricsEnabled {
		metrics = observability.NewMetrics()
	}

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis (optional) ───────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	if rdb != nil {
		defer rdb.Close()
	}

	// ─── AI Backend ────────────────────────────────────────────────────
	textGen, err := ai.NewGenerator(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize AI backend")
	}
	if closer, ok := textGen.(io.Closer); ok {
		defer closer.Close()
	}
	invoker := ai.NewInvoker(textGen, ai.PolicyFromConfig(cfg), metrics, log)

	// ─── Initialize Repositories ───────────────────────────────────────
	access := repository.NewAccessFactory(pool)
	quotaRepo := repository.NewQuotaRepository(pool)

	// ─── Guest Limiter ─────────────────────────────────────────────────
	var limiterStore limiter.Store
	var memStore *limiter.MemoryStore
	if cfg.RateLimitStore == config.RateLimitStoreRedis && rdb != nil {
		limiterStore = limiter.NewRedisStore(rdb)
	} else {
		if cfg.RateLimitStore == config.RateLimitStoreRedis {
			log.Warn().Msg("RATE_LIMIT_STORE=redis without REDIS_URL, using in-memory limiter")
		}
		memStore = limiter.NewMemoryStore()
		limiterStore = memStore
	}
	guestLimiter := limiter.New(limiterStore, limiter.Rule{Limit: cfg.GuestQuizLimit, Window: cfg.GuestQuizWindow})

	// ─── Streak Updates ────────────────────────────────────────────────
	var streak service.StreakUpdater = service.NewDirectStreakUpdater(quotaRepo)
	var streakQueue *worker.RedisQueue
	if rdb != nil {
		streakQueue = worker.NewRedisQueue(rdb, config.WorkerKey.StreakUpdateQueue)
		streak = worker.NewStreakQueue(streakQueue)
	}

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg)
	quotaService := service.NewQuotaService(quotaRepo, guestLimiter, cfg.FreeDailyQuizzes, cfg.GuestQuizTTL, metrics, log)
	generationService := service.NewGenerationService(quotaService, invoker, access, streak, metrics, log)
	submissionService := service.NewSubmissionService(access, metrics, log)
	readService := service.NewQuizReadService(access)

	// ─── Initialize Handlers ──────────────────────────────────────────
	checks := map[string]handler.HealthCheck{
		"postgres": pool.Ping,
	}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	handlers := &router.Handlers{
		Quiz:   handler.NewQuizHandler(generationService, submissionService, readService, cfg, log),
		Health: handler.NewHealthHandler(checks, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup
	startWorker := func(run func(context.Context)) {
		workers.Add(1)
		go func() {
			defer workers.Done()
			run(workerCtx)
		}()
	}

	if memStore != nil {
		startWorker(func(ctx context.Context) {
			limiter.RunSweeper(ctx, memStore, cfg.RateLimitSweep, log)
		})
	}
	if streakQueue != nil {
		startWorker(worker.NewStreakWorker(streakQueue, quotaRepo, metrics, log).Start)
	}
	startWorker(worker.NewCleanupWorker(quotaRepo, cfg.CleanupInterval, cfg.GuestQuizRetention, metrics, log).Start)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, metrics, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	// WriteTimeout covers the whole AI retry budget.
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      time.Duration(cfg.AIMaxAttempts+1) * (cfg.AIAttemptTimeout + cfg.AIBackoffBase*time.Duration(cfg.AIMaxAttempts)),
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	workers.Wait()

	// 3. Flush spans.
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Tracer shutdown error")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
