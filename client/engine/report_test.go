package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderEmptyReport(t *testing.T) {
	console, out := newTestConsole()

	RenderReport(console, NewDefaultStatsCollector(nil).Snapshot())

	text := out.String()
	assert.Contains(t, text, "success rate:   0%")
	assert.NotContains(t, text, "Response times")
	assert.NotContains(t, text, "Failures by kind")
}

func TestRenderReport(t *testing.T) {
	collector := NewDefaultStatsCollector(nil)
	collector.RecordConnect(nil)
	collector.RecordConnect(newExchangeError(KindConnectFailed, nil))
	collector.RecordExchange(Exchange{Kind: KindSuccess, Elapsed: 2 * time.Millisecond})
	collector.RecordExchange(Exchange{Kind: KindSuccess, Elapsed: 4 * time.Millisecond})
	collector.RecordExchange(Exchange{Kind: KindMismatch})

	report := collector.Snapshot()
	report.ClientCPU = &CPUUsage{User: 10, System: 5, Idle: 85, Busy: 15}
	report.Abandoned = 2

	console, out := newTestConsole()
	RenderReport(console, report)

	text := out.String()
	assert.Contains(t, text, "success rate:   50.0%")
	assert.Contains(t, text, "success rate:   66.7%")
	assert.Contains(t, text, "connect_failed: 1")
	assert.Contains(t, text, "mismatch:       1")
	assert.Contains(t, text, "Response times (2 samples):")
	assert.Contains(t, text, "mean:           3.00ms")
	assert.Contains(t, text, "stddev:")
	assert.Contains(t, text, "Client CPU: busy 15.0%")
	assert.Contains(t, text, "still running at report time: 2")
}

func TestMarshalReport(t *testing.T) {
	collector := NewDefaultStatsCollector(nil)
	collector.RecordExchange(Exchange{Kind: KindPeerClosed})

	report := collector.Snapshot()
	report.RunID = "run-1"

	data, err := MarshalReport(report)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, jsoniter.Unmarshal(data, &decoded))

	assert.Equal(t, "run-1", decoded["run_id"])
	assert.Equal(t, map[string]any{"peer_closed": float64(1)}, decoded["failures"])
	assert.NotContains(t, decoded, "latency")
}

func TestJSONFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "report.json")

	sink := NewJSONFileSink(path)
	require.NoError(t, sink.Publish(context.Background(), Report{RunID: "abc"}))
	require.NoError(t, sink.Publish(context.Background(), Report{RunID: "def"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Contains(t, string(data), `"run_id": "def"`)
	assert.NotContains(t, string(data), `"abc"`)
	assert.Equal(t, "json:"+path, sink.Name())
}

func TestRedisSink(t *testing.T) {
	db, mock := redismock.NewClientMock()

	report := Report{RunID: "2abc", Target: "127.0.0.1:8888"}

	payload, err := MarshalReport(report)
	require.NoError(t, err)

	mock.ExpectSet("echoprobe:run:2abc", string(payload), time.Hour).SetVal("OK")
	mock.ExpectLPush("echoprobe:runs", "2abc").SetVal(1)
	mock.ExpectLTrim("echoprobe:runs", 0, 99).SetVal("OK")

	sink := NewRedisSink(db, "echoprobe", time.Hour)
	require.NoError(t, sink.Publish(context.Background(), report))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisSinkSetFailure(t *testing.T) {
	db, mock := redismock.NewClientMock()

	mock.Regexp().ExpectSet("echoprobe:run:x", ".*", 0).SetErr(assert.AnError)

	err := NewRedisSink(db, "echoprobe", 0).Publish(context.Background(), Report{RunID: "x"})

	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}
