// Package router 路由配置
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/sello-bot/luna-data-science-chatbot/internal/handler"
	"github.com/sello-bot/luna-data-science-chatbot/internal/middleware"
)

// SetupRouter 设置路由
func SetupRouter(h *handler.Handlers) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.CORSMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1
	v1 := r.Group("/api/v1")
	{
		// Chat 对话
		chats := v1.Group("/chats")
		{
			chats.POST("/messages", h.Chat.SendMessage)
			chats.GET("", h.Chat.ListSessions)
			chats.GET("/:id/messages", h.Chat.GetMessages)
			chats.GET("/:id/artifacts", h.Dataset.ListArtifacts)
			chats.DELETE("/:id", h.Chat.DeleteSession)
		}

		// Dataset 数据集
		datasets := v1.Group("/datasets")
		{
			datasets.POST("/upload", h.Dataset.Upload)
		}

		// Artifact 副产物
		artifacts := v1.Group("/artifacts")
		{
			artifacts.GET("/:id", h.Dataset.GetArtifact)
		}
	}

	return r
}
