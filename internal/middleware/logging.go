package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// LoggingMiddleware 日志中间件
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		// SSE 请求的耗时是整个任务的时长
		log.Printf("[%s] %s %s | Status: %d | Latency: %v | Request: %s",
			c.Request.Method,
			path,
			query,
			c.Writer.Status(),
			time.Since(start),
			c.GetString("request_id"),
		)
	}
}
