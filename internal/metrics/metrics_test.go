package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	m := New()
	m.Observe(StatusDone, 2*time.Second, 4)
	m.Observe(StatusDone, time.Second, 2)
	m.Observe(StatusTimeout, 3*time.Minute, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues(StatusDone)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues(StatusTimeout)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.requests.WithLabelValues(StatusError)))
	assert.Equal(t, 3, testutil.CollectAndCount(m.requests))
}

func TestHandler(t *testing.T) {
	m := New()
	m.Observe(StatusFailed, time.Millisecond, 0)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `respeecher_synthesis_requests_total{status="failed"} 1`)
	assert.Contains(t, string(body), "respeecher_synthesis_duration_seconds_count 1")
}
