package http

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shopora/checkout/internal/pkg/logging"
	"github.com/shopora/checkout/internal/pkg/metrics"
)

// Observability injects a request-scoped logger into the context and records
// RED metrics per route once the handler chain completes.
func Observability(logger *zap.Logger, met *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		reqLogger := logger.With(
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		c.Request = c.Request.WithContext(logging.WithContext(c.Request.Context(), reqLogger))

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		latency := time.Since(start)

		met.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		met.HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(latency.Seconds())

		reqLogger.Info("http_request_done",
			zap.Int("status", status),
			zap.Duration("latency", latency),
		)
	}
}
