package engine

import (
	"time"
)

// Sample is one update of the aggregate counters. Counts are added as given;
// ResponseTime is appended to the latency samples only when Timed is set.
type Sample struct {
	ConnSuccess  int
	ConnFailed   int
	MsgSuccess   int
	MsgFailed    int
	ResponseTime time.Duration
	Timed        bool
	Failure      ErrorKind
}

// LatencyStats summarizes the recorded response times.
type LatencyStats struct {
	Count     int           `json:"count"`
	Mean      time.Duration `json:"mean"`
	Median    time.Duration `json:"median"`
	Min       time.Duration `json:"min"`
	Max       time.Duration `json:"max"`
	StdDev    time.Duration `json:"stddev"`
	HasStdDev bool          `json:"has_stddev"`
	P90       time.Duration `json:"p90"`
	P99       time.Duration `json:"p99"`
}

// Report is a consistent point-in-time view of the aggregate.
type Report struct {
	RunID                 string              `json:"run_id"`
	Target                string              `json:"target"`
	Started               time.Time           `json:"started"`
	Elapsed               time.Duration       `json:"elapsed"`
	ConnectionsSuccess    int64               `json:"connections_success"`
	ConnectionsFailed     int64               `json:"connections_failed"`
	ConnectionSuccessRate float64             `json:"connection_success_rate"`
	MessagesSuccess       int64               `json:"messages_success"`
	MessagesFailed        int64               `json:"messages_failed"`
	MessageSuccessRate    float64             `json:"message_success_rate"`
	Failures              map[ErrorKind]int64 `json:"failures"`
	Abandoned             int64               `json:"abandoned"`
	Latency               *LatencyStats       `json:"latency,omitempty"`
	ClientCPU             *CPUUsage           `json:"client_cpu,omitempty"`
	Interrupted           bool                `json:"interrupted"`
}

// Progress is the subset of counters shown on the live status line.
type Progress struct {
	ConnSuccess int64
	ConnFailed  int64
	MsgSuccess  int64
	MsgFailed   int64
	InFlight    int64
	Elapsed     time.Duration
}

// Connections returns the number of connection attempts.
func (p Progress) Connections() int64 {
	return p.ConnSuccess + p.ConnFailed
}

// Messages returns the number of message attempts.
func (p Progress) Messages() int64 {
	return p.MsgSuccess + p.MsgFailed
}

// StatsCollector aggregates the outcome of all sessions. Implementations must
// be safe for any number of concurrent callers.
type StatsCollector interface {
	Record(s Sample)
	RecordConnect(err error)
	RecordExchange(x Exchange)
	Snapshot() Report
	Progress() Progress

	// TrackBackground marks one detached session as in flight. The returned
	// function must be called once the session has finished.
	TrackBackground() (done func())
}

// SuccessRate returns success/(success+failed) in percent, or 0 when nothing was counted.
func SuccessRate(success, failed int64) float64 {
	total := success + failed
	if total == 0 {
		return 0
	}

	return float64(success) / float64(total) * 100
}
