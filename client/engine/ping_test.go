package engine

import (
	"context"
	"testing"
	"time"

	"github.com/croessner/echoprobe/client/definitions"
	"github.com/stretchr/testify/assert"
)

func TestPingRunnerCount(t *testing.T) {
	target := startTestServer(t, echoHandler)
	collector := NewDefaultStatsCollector(nil)
	console, out := newTestConsole()

	params := PingParams{Target: target, Session: testOpts, Message: "Hello, server!", Interval: 10 * time.Millisecond, Count: 3}

	assert.Equal(t, definitions.ExitOK, NewPingRunner(params, collector, console, discardLogger()).Run(context.Background()))

	report := collector.Snapshot()
	assert.Equal(t, int64(1), report.ConnectionsSuccess)
	assert.Equal(t, int64(3), report.MessagesSuccess)
	assert.Contains(t, out.String(), `✓ Ping 3: "Hello, server!" echoed in`)
	assert.NotContains(t, out.String(), "Ping 4")
	assert.Contains(t, out.String(), "=== Ping summary ===")
}

func TestPingRunnerUntilCancelled(t *testing.T) {
	target := startTestServer(t, echoHandler)
	collector := NewDefaultStatsCollector(nil)
	console, _ := newTestConsole()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	params := PingParams{Target: target, Session: testOpts, Message: "ping", Interval: 10 * time.Millisecond}

	assert.Equal(t, definitions.ExitOK, NewPingRunner(params, collector, console, discardLogger()).Run(ctx))
	assert.Greater(t, collector.Snapshot().MessagesSuccess, int64(1))
}

func TestPingRunnerConnectFailure(t *testing.T) {
	collector := NewDefaultStatsCollector(nil)
	console, out := newTestConsole()

	params := PingParams{Target: closedTarget(t), Session: testOpts, Message: "ping", Interval: time.Second}

	assert.Equal(t, definitions.ExitBasicFailed, NewPingRunner(params, collector, console, discardLogger()).Run(context.Background()))
	assert.Contains(t, out.String(), "✗ Connection to")
	assert.Equal(t, int64(1), collector.Snapshot().ConnectionsFailed)
}
