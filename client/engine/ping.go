package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/croessner/echoprobe/client/definitions"
	"github.com/croessner/echoprobe/client/log/level"
)

// PingParams configures the keep-alive ping loop.
type PingParams struct {
	Target   Target
	Session  SessionOptions
	Message  string
	Interval time.Duration
	Count    int
}

func (c *Config) PingParams() PingParams {
	return PingParams{
		Target:   c.Target(),
		Session:  c.SessionOptions(),
		Message:  c.PingMessage,
		Interval: c.PingInterval,
		Count:    c.PingCount,
	}
}

// PingRunner keeps one connection open and sends the same message at a fixed
// interval until a failure, Count pings or cancellation.
type PingRunner struct {
	params    PingParams
	collector StatsCollector
	console   *Console
	logger    *slog.Logger
}

func NewPingRunner(params PingParams, collector StatsCollector, console *Console, logger *slog.Logger) *PingRunner {
	return &PingRunner{params: params, collector: collector, console: console, logger: logger}
}

func (p *PingRunner) Run(ctx context.Context) int {
	addr := p.params.Target.Address()

	sess := NewSession(p.params.Target, p.params.Session)
	defer sess.Close()

	err := sess.Connect(ctx)
	if err != nil && ctx.Err() != nil {
		return definitions.ExitOK
	}

	p.collector.RecordConnect(err)

	if err != nil {
		p.console.Fail("Connection to %s failed: %v", addr, err)

		level.Error(p.logger).Log(definitions.LogKeyMsg, "Ping connect failed", definitions.LogKeyTarget, addr, definitions.LogKeyError, err)

		return definitions.ExitBasicFailed
	}

	p.console.OK("Connected to %s", addr)

	ticker := time.NewTicker(p.params.Interval)
	defer ticker.Stop()

loop:
	for seq := 1; p.params.Count == 0 || seq <= p.params.Count; seq++ {
		x := sess.Exchange(p.params.Message)
		p.collector.RecordExchange(x)

		if !x.OK() {
			p.console.Fail("Ping %d: %v", seq, x.Err)

			break
		}

		p.console.OK("Ping %d: %q echoed in %s", seq, p.params.Message, formatMs(x.Elapsed))

		if seq == p.params.Count {
			break
		}

		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
		}
	}

	p.console.Section("Ping summary")
	RenderReport(p.console, p.collector.Snapshot())

	return definitions.ExitOK
}
