package engine

import (
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/codahale/hdrhistogram"
)

const (
	// histogram range in microseconds: 1µs .. 10min
	histMinMicros = 1
	histMaxMicros = int64(10 * time.Minute / time.Microsecond)
	histSigFigs   = 3
)

// DefaultStatsCollector keeps all counters and the full latency sample list
// behind one mutex. Every mutation and every snapshot takes that mutex.
type DefaultStatsCollector struct {
	mu            sync.Mutex
	connSuccess   int64
	connFailed    int64
	msgSuccess    int64
	msgFailed     int64
	failures      map[ErrorKind]int64
	responseTimes []time.Duration
	hist          *hdrhistogram.Histogram
	startTime     time.Time

	inFlight atomic.Int64
	metrics  *Metrics
}

// NewDefaultStatsCollector creates an empty collector. metrics may be nil.
func NewDefaultStatsCollector(metrics *Metrics) *DefaultStatsCollector {
	return &DefaultStatsCollector{
		failures:  make(map[ErrorKind]int64),
		hist:      hdrhistogram.New(histMinMicros, histMaxMicros, histSigFigs),
		startTime: time.Now(),
		metrics:   metrics,
	}
}

func (s *DefaultStatsCollector) Record(sample Sample) {
	s.mu.Lock()

	s.connSuccess += int64(sample.ConnSuccess)
	s.connFailed += int64(sample.ConnFailed)
	s.msgSuccess += int64(sample.MsgSuccess)
	s.msgFailed += int64(sample.MsgFailed)

	if sample.Failure != KindSuccess {
		s.failures[sample.Failure]++
	}

	if sample.Timed {
		s.responseTimes = append(s.responseTimes, sample.ResponseTime)

		us := min(max(sample.ResponseTime.Microseconds(), histMinMicros), histMaxMicros)
		_ = s.hist.RecordValue(us)
	}

	s.mu.Unlock()

	s.metrics.observe(sample)
}

func (s *DefaultStatsCollector) RecordConnect(err error) {
	if err == nil {
		s.Record(Sample{ConnSuccess: 1})

		return
	}

	s.Record(Sample{ConnFailed: 1, Failure: KindConnectFailed})
}

func (s *DefaultStatsCollector) RecordExchange(x Exchange) {
	if x.OK() {
		s.Record(Sample{MsgSuccess: 1, ResponseTime: x.Elapsed, Timed: true})

		return
	}

	s.Record(Sample{MsgFailed: 1, Failure: x.Kind})
}

func (s *DefaultStatsCollector) TrackBackground() func() {
	s.inFlight.Add(1)
	if s.metrics != nil {
		s.metrics.InFlight.Inc()
	}

	var once sync.Once

	return func() {
		once.Do(func() {
			s.inFlight.Add(-1)
			if s.metrics != nil {
				s.metrics.InFlight.Dec()
			}
		})
	}
}

func (s *DefaultStatsCollector) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Progress{
		ConnSuccess: s.connSuccess,
		ConnFailed:  s.connFailed,
		MsgSuccess:  s.msgSuccess,
		MsgFailed:   s.msgFailed,
		InFlight:    s.inFlight.Load(),
		Elapsed:     time.Since(s.startTime),
	}
}

func (s *DefaultStatsCollector) Snapshot() Report {
	s.mu.Lock()

	report := Report{
		Started:            s.startTime,
		Elapsed:            time.Since(s.startTime),
		ConnectionsSuccess: s.connSuccess,
		ConnectionsFailed:  s.connFailed,
		MessagesSuccess:    s.msgSuccess,
		MessagesFailed:     s.msgFailed,
		Failures:           make(map[ErrorKind]int64, len(s.failures)),
		Abandoned:          s.inFlight.Load(),
	}

	for k, v := range s.failures {
		report.Failures[k] = v
	}

	samples := slices.Clone(s.responseTimes)

	var p90, p99 time.Duration
	if len(samples) > 0 {
		p90 = time.Duration(s.hist.ValueAtQuantile(90)) * time.Microsecond
		p99 = time.Duration(s.hist.ValueAtQuantile(99)) * time.Microsecond
	}

	s.mu.Unlock()

	report.ConnectionSuccessRate = SuccessRate(report.ConnectionsSuccess, report.ConnectionsFailed)
	report.MessageSuccessRate = SuccessRate(report.MessagesSuccess, report.MessagesFailed)

	if latency := ComputeLatency(samples); latency != nil {
		latency.P90, latency.P99 = p90, p99
		report.Latency = latency
	}

	return report
}

// ComputeLatency returns nil for an empty sample set. The standard deviation
// is the sample standard deviation and is only set for more than one sample.
func ComputeLatency(samples []time.Duration) *LatencyStats {
	n := len(samples)
	if n == 0 {
		return nil
	}

	sorted := slices.Clone(samples)
	slices.Sort(sorted)

	var sum float64
	for _, d := range sorted {
		sum += float64(d)
	}

	mean := sum / float64(n)

	stats := &LatencyStats{
		Count: n,
		Mean:  time.Duration(math.Round(mean)),
		Min:   sorted[0],
		Max:   sorted[n-1],
	}

	if n%2 == 1 {
		stats.Median = sorted[n/2]
	} else {
		stats.Median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	if n > 1 {
		var sq float64
		for _, d := range sorted {
			diff := float64(d) - mean
			sq += diff * diff
		}

		stats.StdDev = time.Duration(math.Round(math.Sqrt(sq / float64(n-1))))
		stats.HasStdDev = true
	}

	return stats
}
