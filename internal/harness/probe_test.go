package harness_test

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/infermark/infermark/internal/harness"
	"github.com/stretchr/testify/require"
)

func hostPort(t *testing.T, ts *httptest.Server) (string, int) {
	t.Helper()
	addr, ok := ts.Listener.Addr().(*net.TCPAddr)
	require.True(t, ok)
	return addr.IP.String(), addr.Port
}

func TestWaitReady(t *testing.T) {
	t.Parallel()

	t.Run("ready on first poll", func(t *testing.T) {
		t.Parallel()
		var polls atomic.Int32
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			polls.Add(1)
			_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"m","object":"model"}]}`))
		}))
		t.Cleanup(ts.Close)

		host, port := hostPort(t, ts)
		probe := harness.NewProbe(time.Second, 50*time.Millisecond)
		err := probe.WaitReady(t.Context(), host, port)
		require.NoError(t, err)
		require.Equal(t, int32(1), polls.Load())
	})

	t.Run("becomes ready later", func(t *testing.T) {
		t.Parallel()
		var polls atomic.Int32
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if polls.Add(1) < 3 {
				_, _ = w.Write([]byte(`{"object":"list","data":[]}`))
				return
			}
			_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"m"}]}`))
		}))
		t.Cleanup(ts.Close)

		host, port := hostPort(t, ts)
		probe := harness.NewProbe(2*time.Second, 10*time.Millisecond)
		err := probe.WaitReady(t.Context(), host, port)
		require.NoError(t, err)
		require.GreaterOrEqual(t, polls.Load(), int32(3))
	})

	t.Run("never ready times out", func(t *testing.T) {
		t.Parallel()
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"object":"list","data":[]}`))
		}))
		t.Cleanup(ts.Close)

		host, port := hostPort(t, ts)
		timeout := 100 * time.Millisecond
		interval := 20 * time.Millisecond
		probe := harness.NewProbe(timeout, interval)

		started := time.Now()
		err := probe.WaitReady(t.Context(), host, port)
		elapsed := time.Since(started)

		require.ErrorIs(t, err, harness.ErrReadinessTimeout)
		require.ErrorContains(t, err, "/v1/models")
		require.ErrorContains(t, err, strconv.Itoa(port))
		require.GreaterOrEqual(t, elapsed, timeout)
		require.Less(t, elapsed, timeout+interval+500*time.Millisecond)
	})

	t.Run("malformed body is not ready", func(t *testing.T) {
		t.Parallel()
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`loading model weights...`))
		}))
		t.Cleanup(ts.Close)

		host, port := hostPort(t, ts)
		probe := harness.NewProbe(80*time.Millisecond, 20*time.Millisecond)
		err := probe.WaitReady(t.Context(), host, port)
		require.ErrorIs(t, err, harness.ErrReadinessTimeout)
	})

	t.Run("connection refused keeps polling", func(t *testing.T) {
		t.Parallel()
		// grab a port nothing listens on
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		host, port := hostPort(t, ts)
		ts.Close()

		probe := harness.NewProbe(80*time.Millisecond, 20*time.Millisecond)
		err := probe.WaitReady(t.Context(), host, port)
		require.ErrorIs(t, err, harness.ErrReadinessTimeout)
	})

	t.Run("context cancellation wins", func(t *testing.T) {
		t.Parallel()
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":[]}`))
		}))
		t.Cleanup(ts.Close)

		host, port := hostPort(t, ts)
		ctx, cancel := context.WithTimeout(t.Context(), 30*time.Millisecond)
		defer cancel()

		probe := harness.NewProbe(10*time.Second, 10*time.Millisecond)
		err := probe.WaitReady(ctx, host, port)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
