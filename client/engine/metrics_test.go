package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exposition = `# HELP reactor_connections_total Accepted connections.
# TYPE reactor_connections_total counter
reactor_connections_total{worker="0"} 10
reactor_connections_total{worker="1"} 2
# TYPE reactor_sessions gauge
reactor_sessions{state="open"} 3
reactor_sessions{state="closing"} 1
reactor_label_blanks{path="a b"} 4.5
`

func TestMetricsPollerFormatsSelectedSeries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, exposition)
	}))
	defer server.Close()

	poller := NewMetricsPoller(server.Client(), server.URL, []string{
		"reactor_connections_total",
		`reactor_sessions{state="open"}`,
		"reactor_label_blanks",
		"reactor_missing",
	}, time.Second, discardLogger())

	line, err := poller.fetchAndFormat(context.Background())
	require.NoError(t, err)

	assert.Equal(t, `[server reactor_connections_total=12 reactor_sessions{state="open"}=3 reactor_label_blanks=4.5 reactor_missing=-]`, line)
}

func TestMetricsPollerRun(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, exposition)
	}))
	defer server.Close()

	poller := NewMetricsPoller(server.Client(), server.URL, []string{"reactor_sessions"}, 10*time.Millisecond, discardLogger())
	assert.Contains(t, poller.StatusLine(), "collecting")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)

		poller.Run(ctx)
	}()

	assert.Eventually(t, func() bool {
		return poller.StatusLine() == "[server reactor_sessions=4]"
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestMetricsPollerUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	poller := NewMetricsPoller(server.Client(), server.URL, []string{"x"}, time.Second, discardLogger())

	_, err := poller.fetchAndFormat(context.Background())
	assert.Error(t, err)

	var nilPoller *MetricsPoller
	assert.Empty(t, nilPoller.StatusLine())
	assert.NotPanics(t, func() { nilPoller.Run(context.Background()) })
}

func TestParseLabels(t *testing.T) {
	assert.Equal(t, map[string]string{"a": "1", "b": `x"y`, "c": "p q"}, parseLabels(`{a="1", b="x\"y",c="p q"}`))
	assert.Empty(t, parseLabels("{}"))
}

func TestMetricsServer(t *testing.T) {
	reg := NewRegistry()
	metrics := NewMetrics(reg)
	metrics.InFlight.Set(3)

	assert.Nil(t, NewMetricsServer("", reg, discardLogger()))

	server := NewMetricsServer("127.0.0.1:0", reg, discardLogger())
	require.NotNil(t, server)

	require.NoError(t, server.Start(context.Background()))

	t.Cleanup(func() {
		_ = server.Stop(context.Background())
	})

	resp, err := http.Get(fmt.Sprintf("http://%s/metrics", server.Addr()))
	require.NoError(t, err)

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "echoprobe_sessions_in_flight 3")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNilMetricsServer(t *testing.T) {
	var server *MetricsServer

	assert.NoError(t, server.Start(context.Background()))
	assert.NoError(t, server.Stop(context.Background()))
}

func TestNewMetricsRejectsDuplicates(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)

	assert.Panics(t, func() { NewMetrics(reg) })
}
