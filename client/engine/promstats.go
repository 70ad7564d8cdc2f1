package engine

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/croessner/echoprobe/client/definitions"
	"github.com/croessner/echoprobe/client/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "echoprobe"

// Metrics exports the harness counters in Prometheus format.
type Metrics struct {
	// Connections counts connection attempts, labelled by result (success|failed).
	Connections *prometheus.CounterVec

	// Messages counts echo exchanges, labelled by result (success|failed).
	Messages *prometheus.CounterVec

	// Failures counts failed operations by ErrorKind.
	Failures *prometheus.CounterVec

	// ResponseTime observes successful exchange latencies in seconds.
	ResponseTime prometheus.Histogram

	// InFlight is the number of detached sessions that have not finished yet.
	InFlight prometheus.Gauge

	// ClientCPU holds the client host CPU usage in percent, labelled by mode.
	ClientCPU *prometheus.GaugeVec
}

// NewRegistry returns a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return reg
}

// NewMetrics creates and registers all harness collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Connections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "connections_total",
			Help:      "Number of connection attempts to the echo server.",
		}, []string{"result"}),
		Messages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "messages_total",
			Help:      "Number of echo exchanges.",
		}, []string{"result"}),
		Failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "failures_total",
			Help:      "Number of failed operations by kind.",
		}, []string{"kind"}),
		ResponseTime: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "response_time_seconds",
			Help:      "Time from send start to echo receipt.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 16),
		}),
		InFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "sessions_in_flight",
			Help:      "Detached sessions that have not finished yet.",
		}),
		ClientCPU: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "client_cpu_usage_percent",
			Help:      "CPU usage of the host running the load generator.",
		}, []string{"mode"}),
	}
}

func (m *Metrics) observe(s Sample) {
	if m == nil {
		return
	}

	if s.ConnSuccess > 0 {
		m.Connections.WithLabelValues("success").Add(float64(s.ConnSuccess))
	}

	if s.ConnFailed > 0 {
		m.Connections.WithLabelValues("failed").Add(float64(s.ConnFailed))
	}

	if s.MsgSuccess > 0 {
		m.Messages.WithLabelValues("success").Add(float64(s.MsgSuccess))
	}

	if s.MsgFailed > 0 {
		m.Messages.WithLabelValues("failed").Add(float64(s.MsgFailed))
	}

	if s.Failure != KindSuccess {
		m.Failures.WithLabelValues(s.Failure.String()).Inc()
	}

	if s.Timed {
		m.ResponseTime.Observe(s.ResponseTime.Seconds())
	}
}

// MetricsServer serves /metrics while the harness runs.
type MetricsServer struct {
	addr   string
	bound  atomic.Value
	server *http.Server
	logger *slog.Logger
}

// NewMetricsServer returns nil when addr is empty.
func NewMetricsServer(addr string, gatherer prometheus.Gatherer, logger *slog.Logger) *MetricsServer {
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return &MetricsServer{
		addr:   addr,
		logger: logger,
		server: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start binds the listener synchronously so that address errors surface at startup.
func (s *MetricsServer) Start(_ context.Context) error {
	if s == nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.bound.Store(ln.Addr().String())

	level.Info(s.logger).Log(definitions.LogKeyMsg, "metrics endpoint listening", definitions.LogKeyAddr, ln.Addr().String())

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			level.Error(s.logger).Log(definitions.LogKeyMsg, "metrics endpoint failed", definitions.LogKeyError, err)
		}
	}()

	return nil
}

// Addr returns the bound listen address once started, otherwise the configured one.
func (s *MetricsServer) Addr() string {
	if addr, ok := s.bound.Load().(string); ok {
		return addr
	}

	return s.addr
}

// Stop shuts the HTTP server down.
func (s *MetricsServer) Stop(ctx context.Context) error {
	if s == nil {
		return nil
	}

	return s.server.Shutdown(ctx)
}
