package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prepdesk/prepdesk-backend/internal/config"
	"github.com/prepdesk/prepdesk-backend/internal/handler"
	"github.com/prepdesk/prepdesk-backend/internal/middleware"
	"github.com/prepdesk/prepdesk-backend/internal/response"
	"github.com/prepdesk/prepdesk-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth     *handler.AuthHandler
	Practice *handler.PracticeHandler
	Task     *handler.TaskHandler
	Weakness *handler.WeaknessHandler
	WS       *handler.WSHandler
	System   *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", handlers.System.Health)

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)

		// Authenticated profile routes
		auth.POST("/logout", middleware.RequireUserJWT(authService), handlers.Auth.Logout)
		auth.GET("/me", middleware.RequireUserJWT(authService), handlers.Auth.GetProfile)
	}

	// ─── 2. API Group (JWT + Single Device) ────────────────────────────
	api := router.Group("/api/v1")
	api.Use(
		middleware.RequireUserJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		// Practice sessions
		api.POST("/sessions", handlers.Practice.CreateSession)
		api.GET("/sessions/active", handlers.Practice.GetActiveSession)
		api.GET("/sessions/:id", handlers.Practice.GetSession)
		api.POST("/sessions/:id/start", handlers.Practice.StartSession)
		api.POST("/sessions/:id/answer", handlers.Practice.SubmitAnswer)
		api.POST("/sessions/:id/navigate", handlers.Practice.Navigate)
		api.POST("/sessions/:id/review", handlers.Practice.MarkForReview)
		api.POST("/sessions/:id/clear", handlers.Practice.ClearAnswer)
		api.POST("/sessions/:id/finish", handlers.Practice.FinishSession)
		api.GET("/sessions/:id/result", handlers.Practice.GetResult)
		api.POST("/sessions/:id/ai-grade", handlers.Practice.AIGrade)

		// Result history
		api.GET("/results", handlers.Practice.ListResults)

		// Study schedule
		api.POST("/tasks", handlers.Task.CreateTask)
		api.GET("/tasks", handlers.Task.ListTasks)
		api.POST("/tasks/:id/complete", handlers.Task.CompleteTask)

		// Weak topics
		api.POST("/weaknesses", handlers.Weakness.ReportWeakness)
		api.GET("/weaknesses", handlers.Weakness.ListWeaknesses)
	}

	// ─── 3. WebSocket Group (WS Auth via query token) ──────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireUserWSAuth(authService))
	{
		ws.GET("/sessions/:id/stream", handlers.WS.SessionStream)
	}

	return router
}
