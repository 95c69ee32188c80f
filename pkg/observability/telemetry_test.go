package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthMetricsExportedWithServiceLabels(t *testing.T) {
	provider, handler, err := InitTelemetry("storefront-api", "test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	metrics, err := NewAuthMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordLogin(ctx, "success")
	metrics.RecordLogin(ctx, "invalid_credentials")
	metrics.RecordMailDispatch(ctx, "queued")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	out := w.Body.String()
	assert.Contains(t, out, "auth_logins")
	assert.Contains(t, out, `result="invalid_credentials"`)
	assert.Contains(t, out, "mail_dispatch")
	assert.Contains(t, out, `service="storefront-api"`)
	assert.Contains(t, out, `env="test"`)
}

func TestPrometheusHandlerWithoutRegistry(t *testing.T) {
	w := httptest.NewRecorder()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(w)

	PrometheusHandler(nil)(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
