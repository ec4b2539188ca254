package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.ObserveTransition("idle", "requesting_context")
	m.ObserveTransition("idle", "requesting_context")
	m.ObserveCommand("open_context", "ok")
	m.ObserveBatch()
	m.SetRecords(12)
	m.ObserveInvalidMessage()
	m.ObservePacingDelay(3500)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("idle", "requesting_context")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commands.WithLabelValues("open_context", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.batches))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.records))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.invalidMessages))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveBatch()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "likestogo_batches_received_total 1"))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveTransition("a", "b")
	m.ObserveCommand("x", "ok")
	m.ObserveBatch()
	m.SetRecords(1)
	m.ObserveInvalidMessage()
	m.ObserveRequest("/", "200")
	m.ObservePacingDelay(1)
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 404, rec.Code)
}
