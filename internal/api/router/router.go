package router

import (
	"github.com/cuongbtq/scout-jobs/internal/api/handler"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	healthHandler := handler.NewHealthHandler(deps)
	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	jobHandler := handler.NewJobHandler(deps)

	v1 := r.Group("/api/v1")
	{
		// POST /api/v1/admin/refresh-market-values - Queue a market value refresh
		v1.POST("/admin/refresh-market-values", jobHandler.SubmitRefresh)

		// POST /api/v1/admin/analytics-batch - Queue player insight caching
		v1.POST("/admin/analytics-batch", jobHandler.SubmitAnalytics)

		// POST /api/v1/players/:player_id/scout - Queue a scouting report
		v1.POST("/players/:player_id/scout", jobHandler.SubmitScout)

		// GET /api/v1/jobs/:job_id - Get job status
		v1.GET("/jobs/:job_id", jobHandler.GetJob)
	}

	return r
}
