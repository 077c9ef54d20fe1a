package httpapi

import (
	"net/http"

	"inventoryservice/internal/config"
	"inventoryservice/internal/inventory"
	"inventoryservice/internal/platform/observability"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// NewRouter registers HTTP routes and returns the handler with middleware.
// brokerState reports the consumer's connection state for /healthz.
func NewRouter(svc inventory.Service, gatherer prometheus.Gatherer, brokerState func() string, logger observability.Logger) http.Handler {
	h := &Handler{inventory: svc, brokerState: brokerState, logger: logger}

	r := gin.New()
	r.Use(gin.Recovery(), otelgin.Middleware(config.ServiceName), withRequestID(), withLogging(logger))

	r.GET("/inventory/:item", h.getInventory)
	r.POST("/reserve", h.reserve)
	r.GET("/healthz", h.health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	return r
}
