package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sudooom.memmatch/internal/config"
	"sudooom.memmatch/internal/game"
	"sudooom.memmatch/internal/handler"
	"sudooom.memmatch/internal/health"
	"sudooom.memmatch/internal/jwt"
	"sudooom.memmatch/internal/metrics"
	"sudooom.memmatch/internal/middleware"
)

// Deps collaborators behind the routes. JWT, Health and Metrics are optional.
type Deps struct {
	Service *game.Service
	JWT     *jwt.Service
	Health  *health.Checker
	Metrics *metrics.Recorder
}

// SetupRouter builds the HTTP surface
func SetupRouter(cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.App.Mode != "" {
		gin.SetMode(cfg.App.Mode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(
		cfg.CORS.AllowedOrigins,
		cfg.CORS.AllowedMethods,
		cfg.CORS.AllowCredentials,
	))

	if deps.Health != nil {
		r.GET("/health", gin.WrapH(deps.Health))
		r.GET("/ready", gin.WrapF(deps.Health.Ready))
	}
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	sessionHandler := handler.NewSessionHandler(deps.Service)
	streamHandler := handler.NewStreamHandler(deps.Service, func(req *http.Request) bool {
		origin := req.Header.Get("Origin")
		return origin == "" || middleware.OriginAllowed(cfg.CORS.AllowedOrigins, origin)
	})

	api := r.Group("/api")
	{
		if deps.JWT != nil {
			authHandler := handler.NewAuthHandler(deps.JWT)
			auth := api.Group("/auth")
			{
				auth.POST("/token", authHandler.Token)
				auth.POST("/refresh", authHandler.Refresh)
			}
		}

		sessions := api.Group("/sessions")
		if deps.JWT != nil {
			sessions.Use(middleware.JWTAuth(deps.JWT))
		}
		{
			sessions.POST("", sessionHandler.Create)
			sessions.GET("/:id", sessionHandler.Get)
			sessions.DELETE("/:id", sessionHandler.Delete)
			sessions.POST("/:id/games", sessionHandler.NewGame)
			sessions.POST("/:id/restart", sessionHandler.Restart)
			sessions.POST("/:id/flip", sessionHandler.Flip)
			sessions.GET("/:id/stream", streamHandler.Stream)
		}
	}

	return r
}
