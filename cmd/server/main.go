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

	"github.com/rs/zerolog"
	"github.com/sensai/sensai-backend/internal/config"
	"github.com/sensai/sensai-backend/internal/database"
	"github.com/sensai/sensai-backend/internal/diagnosis"
	"github.com/sensai/sensai-backend/internal/handler"
	"github.com/sensai/sensai-backend/internal/llm"
	"github.com/sensai/sensai-backend/internal/logger"
	"github.com/sensai/sensai-backend/internal/metrics"
	"github.com/sensai/sensai-backend/internal/middleware"
	"github.com/sensai/sensai-backend/internal/repository"
	"github.com/sensai/sensai-backend/internal/router"
	"github.com/sensai/sensai-backend/internal/secret"
	"github.com/sensai/sensai-backend/internal/service"
	"github.com/sensai/sensai-backend/internal/validator"
	"github.com/sensai/sensai-backend/internal/worker"
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
		Str("llm_provider", cfg.LLM.Provider).
		Msg("Starting SensAI Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Metrics, Secrets and LLM ──────────────────────────────────────
	m := metrics.New()

	var sealer *secret.Sealer
	if cfg.SecretKey != "" {
		sealer, err = secret.NewSealer(cfg.SecretKey)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid SECRET_KEY")
		}
	} else {
		log.Warn().Msg("SECRET_KEY not set, per-course LLM keys are disabled")
	}

	factory := llm.NewFactory(cfg.LLM, log, m.LLMDuration)

	// ─── Initialize Repositories ───────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	courseRepo := repository.NewCourseRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	quizRepo := repository.NewQuizRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	mistakeTypeRepo := repository.NewMistakeTypeRepository(pool)
	chatRepo := repository.NewChatRepository(pool)
	analyticsRepo := repository.NewAnalyticsRepository(pool)
	monitorRepo := repository.NewMonitorRepository(pool, rdb)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb, userRepo, sessionRepo)
	courseService := service.NewCourseService(courseRepo, sealer)
	questionService := service.NewQuestionService(questionRepo, courseService, rdb, cfg.AnswerCacheTTL)
	quizService := service.NewQuizService(quizRepo, questionRepo, courseService, rdb, cfg.QuizUnlockTTL)
	mistakeTypeService := service.NewMistakeTypeService(mistakeTypeRepo, rdb)
	tutorService := service.NewTutorService(quizService, questionRepo, courseService, chatRepo, factory, rdb, cfg.TranscriptTTL, log)
	analyticsService := service.NewAnalyticsService(analyticsRepo, quizService)
	monitorService := service.NewMonitorService(monitorRepo, quizService)

	var classifier service.MistakeClassifier
	if provider, err := factory.Default(ctx); err != nil {
		log.Warn().Err(err).Msg("LLM provider unavailable, wrong answers will not be classified")
	} else {
		classifier = diagnosis.NewClassifier(provider, mistakeTypeService, questionRepo, diagnosis.Config{}, log)
	}

	attemptService := service.NewAttemptService(service.AttemptDeps{
		Store:           attemptRepo,
		Quizzes:         quizRepo,
		Answers:         questionService,
		Unanswered:      mistakeTypeService,
		Classifier:      classifier,
		Publisher:       monitorService,
		Transcripts:     tutorService,
		Metrics:         m,
		ClassifyTimeout: factory.Timeout(),
	}, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:      handler.NewAuthHandler(authService, cfg),
		Course:    handler.NewCourseHandler(courseService),
		Question:  handler.NewQuestionHandler(questionService),
		Quiz:      handler.NewQuizHandler(quizService),
		Attempt:   handler.NewAttemptHandler(attemptService),
		Tutor:     handler.NewTutorHandler(tutorService),
		Analytics: handler.NewAnalyticsHandler(analyticsService),
		Monitor:   handler.NewMonitorHandler(monitorService, log),
		WS:        handler.NewWSHandler(tutorService, quizService, log, cfg.AllowedOrigins),
		Health:    handler.NewHealthHandler(pool, rdb),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	chatWorker := worker.NewChatPersistWorker(chatRepo, rdb, log)
	sweeper := worker.NewSessionSweeper(authService, worker.DefaultSweepSchedule, log)

	workers.Add(2)
	go func() {
		defer workers.Done()
		chatWorker.Start(workerCtx)
	}()
	go func() {
		defer workers.Done()
		if err := sweeper.Start(workerCtx); err != nil {
			log.Error().Err(err).Msg("Session sweeper failed to start")
		}
	}()

	authLimiter := middleware.NewRateLimiter(30, time.Minute)
	go authLimiter.Run(workerCtx.Done())

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(router.Deps{
		AuthService: authService,
		Metrics:     m,
		AuthLimiter: authLimiter,
		Log:         log,
	}, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests. Open SSE streams are cut at the deadline.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for the transcript queue to drain.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
