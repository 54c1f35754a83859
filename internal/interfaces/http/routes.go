package http

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes registers every endpoint. limiter may be nil to disable rate
// limiting.
func SetupRoutes(router *gin.Engine, handler *Handler, limiter RateLimiter) {
	router.Use(RequestID())

	api := router.Group("/api/v1")
	if limiter != nil {
		api.Use(RateLimit(limiter))
	}
	{
		api.GET("/health/providers", handler.ProviderHealth)

		api.GET("/search", handler.Search)
		api.GET("/search/isin/:isin", handler.SearchByISIN)

		api.GET("/quote/:symbol", handler.GetQuote)
		api.GET("/history/:symbol", handler.GetHistory)
		api.GET("/instruments/:symbol", handler.GetInstrument)

		api.GET("/bonds", handler.ListBonds)
		api.GET("/certificates", handler.ListCertificates)
	}

	router.GET("/health", handler.Liveness)
}
