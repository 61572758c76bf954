package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/sensai/sensai-backend/internal/config"
	"github.com/sensai/sensai-backend/internal/handler"
	"github.com/sensai/sensai-backend/internal/metrics"
	"github.com/sensai/sensai-backend/internal/middleware"
	"github.com/sensai/sensai-backend/internal/model"
	"github.com/sensai/sensai-backend/internal/response"
	"github.com/sensai/sensai-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth      *handler.AuthHandler
	Course    *handler.CourseHandler
	Question  *handler.QuestionHandler
	Quiz      *handler.QuizHandler
	Attempt   *handler.AttemptHandler
	Tutor     *handler.TutorHandler
	Analytics *handler.AnalyticsHandler
	Monitor   *handler.MonitorHandler
	WS        *handler.WSHandler
	Health    *handler.HealthHandler
}

// Deps carries the shared infrastructure the router wires into middleware.
type Deps struct {
	AuthService *service.AuthService
	Metrics     *metrics.Metrics
	AuthLimiter *middleware.RateLimiter
	Log         zerolog.Logger
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(deps Deps, handlers *Handlers, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
		corsConfig.AllowCredentials = true
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(
		response.RequestIDMiddleware(),
		middleware.RequestLogger(deps.Log),
		middleware.Metrics(deps.Metrics),
		middleware.BrotliWithConfig(middleware.BrotliConfig{
			Quality:   middleware.DefaultBrotliConfig.Quality,
			MinLength: middleware.DefaultBrotliConfig.MinLength,
			SkipPaths: []string{"/metrics"},
		}),
	)

	// ─── 0. Ops (No Auth) ──────────────────────────────────────────────
	router.GET("/health", handlers.Health.Health)
	router.GET("/metrics", deps.Metrics.Handler())

	requireAuth := middleware.RequireAuth(deps.AuthService, cfg.SessionCookieName)
	studentOnly := middleware.RequireRole(model.RoleStudent)
	instructorOnly := middleware.RequireRole(model.RoleInstructor)

	api := router.Group("/api")
	api.Use(middleware.NoStore())

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := api.Group("/auth")
	{
		auth.POST("/register", deps.AuthLimiter.Middleware(), handlers.Auth.Register)
		auth.POST("/login", deps.AuthLimiter.Middleware(), handlers.Auth.Login)

		auth.POST("/logout", requireAuth, handlers.Auth.Logout)
		auth.GET("/me", requireAuth, handlers.Auth.Me)
	}

	// ─── 2. Student Group ──────────────────────────────────────────────
	attempt := api.Group("/attempt")
	attempt.Use(requireAuth, studentOnly)
	{
		attempt.POST("/submit-quiz", handlers.Attempt.SubmitQuiz)
		attempt.POST("/submit", handlers.Attempt.Submit)
		attempt.GET("/history", handlers.Attempt.History)
	}

	tutor := api.Group("/tutor")
	tutor.Use(requireAuth, studentOnly)
	{
		tutor.POST("/chat", handlers.Tutor.Chat)
		tutor.GET("/history", handlers.Tutor.History)
	}

	// ─── 3. WebSocket Group (Student) ──────────────────────────────────
	ws := router.Group("/ws")
	ws.Use(requireAuth, studentOnly)
	{
		ws.GET("/tutor", handlers.WS.TutorStream)
	}

	// ─── 4. Instructor Group ───────────────────────────────────────────
	courses := api.Group("/courses")
	courses.Use(requireAuth, instructorOnly)
	{
		courses.GET("", handlers.Course.ListCourses)
		courses.POST("", handlers.Course.CreateCourse)
		courses.GET("/:id", handlers.Course.GetCourse)
		courses.PUT("/:id", handlers.Course.UpdateCourse)
		courses.DELETE("/:id", handlers.Course.DeleteCourse)
		courses.PUT("/:id/llm-key", handlers.Course.SetLLMKey)
		courses.DELETE("/:id/llm-key", handlers.Course.ClearLLMKey)

		courses.GET("/:id/questions", handlers.Question.ListQuestions)
		courses.POST("/:id/questions", handlers.Question.CreateQuestion)

		courses.GET("/:id/quizzes", handlers.Quiz.ListQuizzes)
		courses.POST("/:id/quizzes", handlers.Quiz.CreateQuiz)
	}

	questions := api.Group("/questions")
	questions.Use(requireAuth, instructorOnly)
	{
		questions.GET("/:id", handlers.Question.GetQuestion)
		questions.PUT("/:id", handlers.Question.UpdateQuestion)
		questions.DELETE("/:id", handlers.Question.DeleteQuestion)
	}

	// Quizzes mix instructor management with student access, so roles are per route.
	quizzes := api.Group("/quizzes")
	quizzes.Use(requireAuth)
	{
		quizzes.POST("/unlock", studentOnly, handlers.Quiz.Unlock)
		quizzes.GET("/:id/take", studentOnly, handlers.Quiz.Take)

		quizzes.GET("/:id", instructorOnly, handlers.Quiz.GetQuiz)
		quizzes.PUT("/:id", instructorOnly, handlers.Quiz.UpdateQuiz)
		quizzes.DELETE("/:id", instructorOnly, handlers.Quiz.DeleteQuiz)
		quizzes.POST("/:id/questions", instructorOnly, handlers.Quiz.AddQuestion)
		quizzes.DELETE("/:id/questions/:questionId", instructorOnly, handlers.Quiz.RemoveQuestion)
	}

	analytics := api.Group("/analytics")
	analytics.Use(requireAuth, instructorOnly)
	{
		analytics.GET("/quizzes/:id", handlers.Analytics.GetQuizAnalytics)
		analytics.GET("/quizzes/:id/monitor", handlers.Monitor.MonitorQuizSSE)
	}

	return router
}
