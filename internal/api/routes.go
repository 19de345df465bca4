package api

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, handlers *Handlers, jwtSecret string) {
	// Health check (no auth)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.Use(AuthMiddleware(jwtSecret))
	{
		tasks := api.Group("/tasks")
		{
			tasks.POST("/reports", handlers.CreateReportTaskHandler)
			tasks.POST("/imports", handlers.CreateImportTaskHandler)
			tasks.GET("/:taskId", handlers.GetTaskHandler)
		}
	}
}
