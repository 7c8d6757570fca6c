package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/toefl-quiz-backend/internal/config"
	"github.com/stemsi/toefl-quiz-backend/internal/handler"
	"github.com/stemsi/toefl-quiz-backend/internal/middleware"
	"github.com/stemsi/toefl-quiz-backend/internal/observability"
	"github.com/stemsi/toefl-quiz-backend/internal/response"
	"github.com/stemsi/toefl-quiz-backend/internal/service"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Quiz   *handler.QuizHandler
	Health *handler.HealthHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// metrics may be nil, in which case /metrics is not served.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	metrics *observability.Metrics,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	if cfg.OtelEnabled {
		router.Use(otelgin.Middleware(observability.ServiceName))
	}

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
		// Guest sessions ride on a cookie, which browsers only send cross-origin with credentials.
		corsConfig.AllowCredentials = true
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID", middleware.SessionTokenHeader}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.RequestLogger(log))
	if metrics != nil {
		router.Use(middleware.Metrics(metrics))
	}
	router.Use(middleware.Brotli())

	router.GET("/health", handlers.Health.Health)
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	router.NoRoute(func(c *gin.Context) {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	})

	// ─── Quiz Group (optional member JWT) ──────────────────────────────
	quizAPI := router.Group("/api/v1/quizzes")
	quizAPI.Use(
		middleware.OptionalMemberJWT(authService),
		middleware.ResolveCaller(cfg.SessionCookieName),
	)
	{
		quizAPI.POST("/generate", handlers.Quiz.GenerateQuiz)
		quizAPI.POST("/submit", handlers.Quiz.SubmitQuiz)
		quizAPI.GET("/:quiz_id", handlers.Quiz.GetQuiz)
	}

	return router
}
