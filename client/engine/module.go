package engine

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/croessner/echoprobe/client/definitions"
	"github.com/croessner/echoprobe/client/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Module provides the fx module for the client engine. It expects *Config
// and *slog.Logger in the graph.
var Module = fx.Module("engine",
	fx.Provide(
		NewRegistry,
		func(reg *prometheus.Registry) prometheus.Registerer { return reg },
		func(reg *prometheus.Registry) prometheus.Gatherer { return reg },
		NewMetrics,
		NewStatsCollector,
		NewJournalFromConfig,
		NewConsoleFromConfig,
		NewCPUSampler,
		NewMetricsServerFromConfig,
		NewMetricsPollerFromConfig,
		NewReportSinksFromConfig,
		NewStagesFromConfig,
		NewRunnerFromConfig,
		NewJobFromConfig,
	),
	fx.Invoke(startMetricsServer, startMetricsPoller),
)

// NewStatsCollector provides a StatsCollector implementation.
func NewStatsCollector(metrics *Metrics) StatsCollector {
	return NewDefaultStatsCollector(metrics)
}

// NewJournalFromConfig opens the journal and closes it when the app stops.
func NewJournalFromConfig(lc fx.Lifecycle, cfg *Config) (*Journal, error) {
	journal, err := OpenJournal(cfg.LogFile)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return journal.Close()
		},
	})

	return journal, nil
}

func NewConsoleFromConfig(cfg *Config, journal *Journal) *Console {
	return NewConsole(os.Stdout, journal, IsTTY(), UseColor(cfg.ColorMode))
}

// NewMetricsServerFromConfig returns nil unless --metrics-listen is set.
func NewMetricsServerFromConfig(cfg *Config, gatherer prometheus.Gatherer, logger *slog.Logger) *MetricsServer {
	return NewMetricsServer(cfg.MetricsListen, gatherer, logger)
}

func startMetricsServer(lc fx.Lifecycle, server *MetricsServer) {
	lc.Append(fx.Hook{
		OnStart: server.Start,
		OnStop:  server.Stop,
	})
}

// NewMetricsPollerFromConfig returns nil unless --target-metrics-url is set.
func NewMetricsPollerFromConfig(cfg *Config, logger *slog.Logger) *MetricsPoller {
	if cfg.TargetMetricsURL == "" {
		return nil
	}

	client := &http.Client{Timeout: cfg.TargetMetricsTimeout}

	return NewMetricsPoller(client, cfg.TargetMetricsURL, cfg.TargetMetrics, cfg.TargetMetricsInterval, logger)
}

func startMetricsPoller(lc fx.Lifecycle, poller *MetricsPoller) {
	if poller == nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				defer close(done)

				poller.Run(ctx)
			}()

			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()

			select {
			case <-done:
			case <-stopCtx.Done():
			}

			return nil
		},
	})
}

// NewReportSinksFromConfig creates the optional report destinations.
func NewReportSinksFromConfig(lc fx.Lifecycle, cfg *Config, logger *slog.Logger) []ReportSink {
	var sinks []ReportSink

	if cfg.ReportJSON != "" {
		sinks = append(sinks, NewJSONFileSink(cfg.ReportJSON))
	}

	if cfg.RedisAddr != "" {
		client := NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

		lc.Append(fx.Hook{
			OnStop: func(_ context.Context) error {
				return client.Close()
			},
		})

		level.Debug(logger).Log(definitions.LogKeyMsg, "Redis report sink enabled", definitions.LogKeyAddr, cfg.RedisAddr)

		sinks = append(sinks, NewRedisSink(client, cfg.RedisKeyPrefix, cfg.RedisTTL))
	}

	return sinks
}

func NewStagesFromConfig(cfg *Config, collector StatsCollector, console *Console, poller *MetricsPoller, logger *slog.Logger) Stages {
	var status StatusSource
	if poller != nil {
		status = poller
	}

	return Stages{
		Basic:     NewBasicScenario(cfg.BasicParams(), collector, console, logger),
		Burst:     NewBurstScenario(cfg.BurstParams(), collector, console, logger),
		Sustained: NewSustainedScenario(cfg.SustainedParams(), collector, console, status, logger),
	}
}

func NewRunnerFromConfig(cfg *Config, stages Stages, collector StatsCollector, console *Console, cpu *CPUSampler, sinks []ReportSink, logger *slog.Logger) *Runner {
	return NewRunner(cfg.Target(), stages, collector, console, cpu, sinks, logger)
}

// NewJobFromConfig selects the suite runner or the ping loop.
func NewJobFromConfig(cfg *Config, runner *Runner, collector StatsCollector, console *Console, logger *slog.Logger) Job {
	if cfg.Mode == definitions.ModePing {
		return NewPingRunner(cfg.PingParams(), collector, console, logger)
	}

	return runner
}
