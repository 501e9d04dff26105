package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yoink-app/yoink-be/internal/api/handler"
)

// Options holds router settings beyond handler dependencies.
type Options struct {
	// StaticRoot is the directory served under /static, holding guest
	// component images. Empty disables static serving.
	StaticRoot string
}

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies, opts Options) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())
	r.Use(AuthMiddleware(deps.Verifier, deps.Logger))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "yoink-api-service",
		})
	})

	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	if opts.StaticRoot != "" {
		r.Static("/static", opts.StaticRoot)
	}

	h := handler.NewHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// POST /api/v1/extract - Upload a document and queue extraction
		v1.POST("/extract", h.Extract)

		// POST /api/v1/feedback - Submit a bug or content violation report
		v1.POST("/feedback", h.SubmitFeedback)

		// GET /api/v1/me - Current user identity
		v1.GET("/me", h.Me)

		// GET /api/v1/auth/sign-in - Provider authorization URL
		v1.GET("/auth/sign-in", h.SignIn)

		jobs := v1.Group("/jobs")
		{
			// GET /api/v1/jobs - List the user's persisted jobs
			jobs.GET("", h.ListUserJobs)

			// GET /api/v1/jobs/:job_id - Job lifecycle state
			jobs.GET("/:job_id", h.GetJob)

			// GET /api/v1/jobs/:job_id/events - Session snapshots over SSE
			jobs.GET("/:job_id/events", h.StreamEvents)

			// GET /api/v1/jobs/:job_id/result - Full result document
			jobs.GET("/:job_id/result", h.GetResult)

			// GET /api/v1/jobs/:job_id/result/components - Windowed components
			jobs.GET("/:job_id/result/components", h.GetComponents)

			// DELETE /api/v1/jobs/:job_id - Delete a job everywhere
			jobs.DELETE("/:job_id", h.DeleteJob)
		}
	}

	return r
}
