package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/spimexhq/oilpulse/internal/middleware"
)

// requestTimeout caps how long downstream handlers may take by deadlining the
// request context.
func requestTimeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// NewRouter creates a Gin engine with routes configured.
// It receives a Handler instance with all business logic already injected.
//
// Responsibilities:
//   - Registers global middlewares (RequestID, Logger, Recovery, RateLimiter).
//   - Adds request timeout handling (10 seconds) on read routes. Report
//     pipeline routes run without a deadline: a full download sweep can
//     legitimately take minutes.
//   - Mounts Swagger docs (/swagger/*any).
//   - Configures API v1 routes (/api/v1).
//
// Note:
//   - Health and readiness endpoints (/healthz, /readyz) are registered in
//     app.InitializeApp().
func NewRouter(handler *Handler) *gin.Engine {
	router := gin.New()

	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.RecoveryMiddleware(),
		middleware.ErrorHandler,
		middleware.RateLimiter(),
	)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := router.Group("/api/v1")
	{
		reports := v1.Group("/reports")
		{
			reports.POST("/download", handler.DownloadReports)
			reports.POST("/process", handler.ProcessReports)
		}
		trading := v1.Group("/trading")
		trading.Use(requestTimeout(10 * time.Second))
		{
			trading.GET("/last-dates", handler.GetLastTradingDates)
			trading.GET("/dynamics", handler.GetDynamics)
			trading.GET("/results", handler.GetTradingResults)
		}
	}

	return router
}
