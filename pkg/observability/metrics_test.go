package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	require.NotNil(t, m)

	m.ScansTotal.WithLabelValues("chat", "ok").Inc()
	m.ScansTotal.WithLabelValues("chat", "error").Inc()
	m.ScansTotal.WithLabelValues("chat", "ok").Inc()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.ScansTotal.WithLabelValues("chat", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ScansTotal.WithLabelValues("chat", "error")))
}

func TestRecordHTTPRequest(t *testing.T) {
	m := InitMetrics()

	m.RecordHTTPRequest("GET", "/api/v1/usage/overview", http.StatusOK, 42*time.Millisecond)
	m.RecordHTTPRequest("GET", "/api/v1/usage/overview", http.StatusOK, 10*time.Millisecond)

	count := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/usage/overview", "200"))
	assert.Equal(t, float64(2), count)
}

func TestMetricsHandler(t *testing.T) {
	m := InitMetrics()
	m.IdentityFallbacks.Inc()
	m.UnattributableRecords.WithLabelValues("api").Add(3)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "tally_identity_fallbacks_total 1")
	assert.Contains(t, body, `tally_unattributable_records_total{source="api"} 3`)
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	registry := prometheus.NewRegistry()
	NewMetrics(registry)

	assert.Panics(t, func() {
		NewMetrics(registry)
	})
}
