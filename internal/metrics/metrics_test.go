package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/huangsam/gitnote/schema"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRecorder_Observe(t *testing.T) {
	r := NewRecorder()
	finished := time.Date(2025, 4, 10, 6, 0, 0, 0, time.UTC)

	r.ObserveSuccess(&schema.ArchivedInfo{CommitsCreated: 3, EntriesFolded: 7, Duration: time.Second, FinishedAt: finished})
	r.ObserveSuccess(&schema.ArchivedInfo{Duration: time.Millisecond})
	r.ObserveFailure(2 * time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues(statusSucceeded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues(statusNoop)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues(statusFailed)))
	assert.Equal(t, 7.0, testutil.ToFloat64(r.folded))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.commits))
	assert.Equal(t, float64(finished.Unix()), testutil.ToFloat64(r.lastSuccess))
	assert.Equal(t, 1, testutil.CollectAndCount(r.duration))
}

func TestRecorder_Handler(t *testing.T) {
	r := NewRecorder()
	r.ObserveFailure(time.Second)
	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body := readBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `gitnote_archive_runs_total{status="failed"} 1`)
	assert.Contains(t, body, "gitnote_archive_duration_seconds_bucket")
	assert.Contains(t, body, "go_goroutines")

	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	_ = readBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	_ = readBody(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	r.SetReady(true)
	resp, err = http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	assert.Equal(t, "ready\n", readBody(t, resp))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServe_StopsOnCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, addr, NewRecorder().Handler(), zap.NewNop()) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestServe_ListenError(t *testing.T) {
	err := Serve(context.Background(), "127.0.0.1:-1", http.NewServeMux(), zap.NewNop())
	assert.Error(t, err)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}
