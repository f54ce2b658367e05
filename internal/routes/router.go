package routes

import (
	ginlog "github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dealer_tracker/internal/controllers"
	"dealer_tracker/internal/metrics"
	"dealer_tracker/internal/middleware"
)

type Options struct {
	CORSOrigins []string
	// RequestLog enables per-request access logging.
	RequestLog bool
}

func SetupRouter(h *controllers.Handler, auth *middleware.Auth, opts Options) *gin.Engine {
	metrics.RegisterDefault()

	r := gin.New()
	r.Use(gin.Recovery())
	if opts.RequestLog {
		r.Use(ginlog.SetLogger(ginlog.WithSkipPath([]string{"/metrics", "/healthz"})))
	}
	r.Use(middleware.CORS(opts.CORSOrigins))
	r.Use(middleware.Metrics())

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	CoverageRoutes(r, h, auth)
	DealerRoutes(r, h, auth)
	EmergencyRoutes(r, h, auth)
	AdminRoutes(r, h, auth)
	WebSocketRoutes(r, h)

	return r
}
