package handler

import (
	"time"

	"rocket-backend/internal/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func NewRouter(cfg *config.Config, dashboardHandler *DashboardHandler, healthHandler *HealthHandler) *gin.Engine {
	router := gin.New()

	// 中间件
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// CORS配置
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
	}))

	router.GET("/health", healthHandler.Check)

	api := router.Group("/api")
	{
		dash := api.Group("/dashboard", AuthMiddleware(cfg.Auth.UserHeader))
		{
			dash.POST("/session", dashboardHandler.OpenSession)
			dash.DELETE("/session", dashboardHandler.SignOut)
			dash.GET("/state", dashboardHandler.GetState)

			dash.GET("/theme", dashboardHandler.GetTheme)
			dash.POST("/theme/toggle", dashboardHandler.ToggleTheme)
			dash.PUT("/mode", dashboardHandler.SwitchMode)

			dash.GET("/presets", dashboardHandler.GetPresets)
			dash.POST("/chips", dashboardHandler.AddChip)
			dash.POST("/chips/preset", dashboardHandler.AddPresetChip)
			dash.DELETE("/chips/:chip_id", dashboardHandler.RemoveChip)
			dash.PUT("/topic", dashboardHandler.SetTopic)

			dash.POST("/generate", dashboardHandler.Generate)
			dash.POST("/generate/cancel", dashboardHandler.CancelGeneration)
			dash.GET("/generate/status", dashboardHandler.GenerationStatus)

			dash.GET("/events", dashboardHandler.StreamEvents)
			dash.GET("/chat/stream", dashboardHandler.StreamChat)
		}
	}

	return router
}
