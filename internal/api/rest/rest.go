package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/feral-file/ff-holder-indexer/internal/api/middleware"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		// Holder reads (public)
		v1.GET("/contracts/:address/holders", handler.GetTopHolders)
		v1.GET("/contracts/:address/holders/latest", handler.GetLatestSnapshot)

		// Writes and fan-out scans (API key or token)
		v1.POST("/contracts/:address/start-block", middleware.RequireAuth(authCfg), handler.SetStartBlock)
		v1.POST("/holders/batch", middleware.RequireAuth(authCfg), handler.BatchTopHolders)
	}
}
