package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// LoggingMiddleware 日志中间件
// 上传和长对话请求耗时较长，记录延迟便于排查慢会话。
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		log.Printf("[%s] %s %s | Status: %d | Latency: %v | Session: %s",
			c.Request.Method,
			path,
			query,
			c.Writer.Status(),
			latency,
			sessionHint(c),
		)
	}
}

// sessionHint 从路径或表单中提取会话 ID 用于日志关联，取不到时返回 "-"
func sessionHint(c *gin.Context) string {
	if id := c.Param("id"); id != "" {
		return id
	}
	if id := c.PostForm("session_id"); id != "" {
		return id
	}
	return "-"
}
