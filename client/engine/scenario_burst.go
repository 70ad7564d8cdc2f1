package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/croessner/echoprobe/client/definitions"
	"github.com/croessner/echoprobe/client/log/level"
)

// BurstScenario opens many short sessions in paced batches and waits for all
// of them.
type BurstScenario struct {
	params    BurstParams
	collector StatsCollector
	console   *Console
	logger    *slog.Logger
}

func NewBurstScenario(params BurstParams, collector StatsCollector, console *Console, logger *slog.Logger) *BurstScenario {
	return &BurstScenario{params: params, collector: collector, console: console, logger: logger}
}

func (b *BurstScenario) Name() string {
	return fmt.Sprintf("Burst connection test (%d clients)", b.params.Clients)
}

// Run launches every client and joins them before it returns, also when ctx
// is cancelled between batches.
func (b *BurstScenario) Run(ctx context.Context) error {
	if b.params.Clients == 0 {
		b.console.Line("No burst clients configured")

		return nil
	}

	var wg sync.WaitGroup

	sessCtx := context.WithoutCancel(ctx)
	start := time.Now()

	pacer := NewPacer(Schedule{
		Interval:  b.params.BatchInterval,
		BatchSize: b.params.BatchSize,
		Total:     b.params.Clients,
	})

	launched, err := pacer.Run(ctx, func(batch Batch) {
		for i := range batch.Size {
			client := batch.First + i

			wg.Go(func() {
				b.runClient(sessCtx, client)
			})
		}

		b.console.Line("Batch %d: clients %d-%d launched", batch.Seq+1, batch.First, batch.First+batch.Size-1)
	})

	wg.Wait()

	p := b.collector.Progress()
	b.console.OK("%d clients finished in %s (connections %d/%d)", launched, time.Since(start).Round(time.Millisecond), p.ConnSuccess, p.Connections())

	return err
}

func (b *BurstScenario) runClient(ctx context.Context, client int) {
	sess := NewSession(b.params.Target, b.params.Session)
	defer sess.Close()

	err := sess.Connect(ctx)
	b.collector.RecordConnect(err)

	if err != nil {
		level.Debug(b.logger).Log(
			definitions.LogKeyMsg, "Burst connect failed",
			definitions.LogKeyClientID, client,
			definitions.LogKeyError, err,
		)

		return
	}

	x := sess.Exchange(BurstMessage(client))
	b.collector.RecordExchange(x)

	if !x.OK() {
		level.Debug(b.logger).Log(
			definitions.LogKeyMsg, "Burst exchange failed",
			definitions.LogKeyClientID, client,
			definitions.LogKeyKind, x.Kind.String(),
			definitions.LogKeyError, x.Err,
		)
	}
}
