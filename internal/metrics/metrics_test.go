package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveHTTP("GET", "/health", 200, time.Millisecond)
	m.ObserveOutcome("success", "")
	m.ObserveRoute("local", "single")
	m.ObserveRemote("chunk-file", nil, time.Second)
	m.AddChunks(3)
	m.ObserveCache(true)
	assert.NotNil(t, m.Handler())
}

func TestRecordersAndHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveRemote("chunk-file", errors.New("boom"), time.Second)
	m.ObserveRemote("chunk-file", nil, time.Second)
	m.ObserveOutcome("error", "format_error")
	m.AddChunks(4)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RemoteAttemptsTotal.WithLabelValues("chunk-file", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RemoteAttemptsTotal.WithLabelValues("chunk-file", "success")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.ChunksProducedTotal))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "docscrub_document_outcomes_total"))
}
