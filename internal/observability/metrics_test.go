package observability

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/x", "GET", 200, time.Millisecond)
		m.RecordError("/x", "GET", "NOT_FOUND")
		m.RecordGatewayCall("list_tickets", "ok", time.Millisecond)
		m.RecordRefresh("ok")
	})
	assert.Nil(t, m.Registry())
}

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.RecordGatewayCall("list_tickets", "ok", 20*time.Millisecond)
	m.RecordGatewayCall("list_tickets", "ok", 30*time.Millisecond)
	m.RecordGatewayCall("list_tickets", "NETWORK_ERROR", time.Second)
	m.RecordRefresh("failed")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.gatewayCalls.WithLabelValues("list_tickets", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.gatewayCalls.WithLabelValues("list_tickets", "NETWORK_ERROR")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.refreshes.WithLabelValues("failed")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "helpdesk_console_gateway_calls_total"))
}
