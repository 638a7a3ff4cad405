package router

import (
	"github.com/ashwinyue/chat2sql/internal/config"
	"github.com/ashwinyue/chat2sql/internal/handler"
	"github.com/ashwinyue/chat2sql/internal/middleware"
	"github.com/gin-gonic/gin"
)

// SetupRouter 设置路由
func SetupRouter(h *handler.Handlers, cfg *config.Config) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.AuthMiddleware(cfg.Auth.JWTSecret))

	// 健康检查
	r.GET("/health", h.System.Health)

	// API v1
	v1 := r.Group("/api/v1")
	{
		// Chatbot 问答
		chatbot := v1.Group("/chatbot")
		{
			chatbot.POST("/query", h.Chatbot.Query)
			chatbot.POST("/regenerate", h.Chatbot.Regenerate)
			chatbot.POST("/reaction", h.Chatbot.Reaction)
			chatbot.GET("/suggestions", h.Chatbot.Suggestions)
			chatbot.GET("/events", h.Chatbot.Events)
		}
	}

	return r
}
