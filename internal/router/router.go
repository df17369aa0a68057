package router

import (
	"github.com/ashwinyue/next-augment/internal/handler"
	"github.com/ashwinyue/next-augment/internal/middleware"
	"github.com/ashwinyue/next-augment/internal/web"
	"github.com/gin-gonic/gin"
)

// SetupRouter 设置路由
func SetupRouter(h *handler.Handlers) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.LoggingMiddleware())

	// 页面
	r.GET("/", web.Index)

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1
	v1 := r.Group("/api/v1")
	{
		v1.GET("/modes", h.System.ListModes)
		v1.POST("/health-check", h.System.HealthCheck)

		// Job 生成任务
		jobs := v1.Group("/jobs")
		{
			jobs.POST("", h.Job.CreateJob)
			jobs.GET("", h.Job.ListJobs)
			jobs.GET("/:id", h.Job.GetJob)
			jobs.GET("/:id/logs", h.Job.StreamLogs)
			jobs.GET("/:id/download", h.Job.Download)
		}
	}

	return r
}
