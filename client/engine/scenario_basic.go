package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/croessner/echoprobe/client/definitions"
	errors2 "github.com/croessner/echoprobe/client/errors"
	"github.com/croessner/echoprobe/client/log/level"
)

// BasicScenario sends a fixed list of payloads over one session and stops at
// the first failure.
type BasicScenario struct {
	params    BasicParams
	collector StatsCollector
	console   *Console
	logger    *slog.Logger
}

func NewBasicScenario(params BasicParams, collector StatsCollector, console *Console, logger *slog.Logger) *BasicScenario {
	return &BasicScenario{params: params, collector: collector, console: console, logger: logger}
}

func (b *BasicScenario) Name() string {
	return "Basic functionality test"
}

// Run returns an error wrapping ErrBasicScenarioFailed and the *ExchangeError
// of the first failed step, or ctx.Err() when interrupted.
func (b *BasicScenario) Run(ctx context.Context) error {
	sess := NewSession(b.params.Target, b.params.Session)
	defer sess.Close()

	addr := b.params.Target.Address()

	err := sess.Connect(context.WithoutCancel(ctx))
	b.collector.RecordConnect(err)

	if err != nil {
		b.console.Fail("Connection to %s failed: %v", addr, err)

		return fmt.Errorf("%w: %w", errors2.ErrBasicScenarioFailed, err)
	}

	b.console.OK("Connected to %s", addr)

	for i, payload := range b.params.Payloads {
		if err = ctx.Err(); err != nil {
			return err
		}

		x := sess.Exchange(payload)
		b.collector.RecordExchange(x)

		if !x.OK() {
			b.console.Fail("Message %d (%d bytes): %s", i+1, x.Size, x.Err)

			level.Error(b.logger).Log(
				definitions.LogKeyMsg, "Basic exchange failed",
				definitions.LogKeyScenario, "basic",
				definitions.LogKeyKind, x.Kind.String(),
				definitions.LogKeyError, x.Err,
			)

			return fmt.Errorf("%w: %w", errors2.ErrBasicScenarioFailed, x.Err)
		}

		b.console.OK("Message %d (%d bytes) echoed in %s", i+1, x.Size, formatMs(x.Elapsed))
	}

	return nil
}
