package observability

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// PrometheusHandler exposes the metrics handler on a gin route
func PrometheusHandler(handler http.Handler) gin.HandlerFunc {
	if handler == nil {
		return func(c *gin.Context) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":   true,
				"message": "Metrics are not initialized",
			})
		}
	}
	return gin.WrapH(handler)
}
