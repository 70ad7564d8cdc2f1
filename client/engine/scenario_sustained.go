package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/croessner/echoprobe/client/definitions"
	"github.com/croessner/echoprobe/client/log/level"
	"golang.org/x/sync/errgroup"
)

const sustainedTick = time.Second

// SustainedScenario starts Rate sessions every second for Duration. Sessions
// are detached: the scenario only waits GracePeriod for them after the last
// launch.
type SustainedScenario struct {
	params    SustainedParams
	collector StatsCollector
	console   *Console
	status    StatusSource
	logger    *slog.Logger
}

// NewSustainedScenario creates the scenario. status may be nil.
func NewSustainedScenario(params SustainedParams, collector StatsCollector, console *Console, status StatusSource, logger *slog.Logger) *SustainedScenario {
	return &SustainedScenario{params: params, collector: collector, console: console, status: status, logger: logger}
}

func (s *SustainedScenario) Name() string {
	return fmt.Sprintf("Sustained load test (%s at %d/s)", s.params.Duration, s.params.Rate)
}

func (s *SustainedScenario) Run(ctx context.Context) error {
	if s.params.Duration <= 0 {
		s.console.Line("No sustained load configured")

		return nil
	}

	sessCtx := context.WithoutCancel(ctx)
	start := time.Now()
	done := make(chan struct{})

	g, gctx := errgroup.WithContext(ctx)

	launched := 0

	g.Go(func() error {
		defer close(done)

		pacer := NewPacer(Schedule{
			Interval:  sustainedTick,
			BatchSize: s.params.Rate,
			Duration:  s.params.Duration,
		})

		var err error

		launched, err = pacer.Run(gctx, func(batch Batch) {
			for i := range batch.Size {
				client := batch.First + i
				release := s.collector.TrackBackground()

				go func() {
					defer release()

					s.runClient(sessCtx, client)
				}()
			}
		})

		return err
	})

	g.Go(func() error {
		ticker := time.NewTicker(s.params.StatusEvery)
		defer ticker.Stop()

		for {
			select {
			case <-gctx.Done():
				return nil
			case <-done:
				return nil
			case <-ticker.C:
				s.printStatus(start)
			}
		}
	})

	if err := g.Wait(); err != nil {
		return err
	}

	s.printStatus(start)
	s.console.OK("%d sessions launched in %s", launched, time.Since(start).Round(time.Millisecond))

	if s.params.GracePeriod <= 0 {
		return nil
	}

	s.console.Line("Waiting %s for in-flight sessions", s.params.GracePeriod)

	timer := time.NewTimer(s.params.GracePeriod)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	return nil
}

func (s *SustainedScenario) printStatus(start time.Time) {
	elapsed := time.Since(start)

	var extra string
	if s.status != nil {
		extra = s.status.StatusLine()
	}

	s.console.Status(FormatStatusLine(s.collector.Progress(), elapsed, s.params.Duration-elapsed, extra))
}

// runClient sends MessagesPerSession messages and records every round on its
// own. Rounds after a broken connection fail fast and count as failed messages.
func (s *SustainedScenario) runClient(ctx context.Context, client int) {
	sess := NewSession(s.params.Target, s.params.Session)
	defer sess.Close()

	err := sess.Connect(ctx)
	s.collector.RecordConnect(err)

	if err != nil {
		level.Debug(s.logger).Log(
			definitions.LogKeyMsg, "Sustained connect failed",
			definitions.LogKeyClientID, client,
			definitions.LogKeyError, err,
		)

		return
	}

	for round := 1; round <= s.params.MessagesPerSession; round++ {
		if round > 1 && s.params.MessagePause > 0 {
			time.Sleep(s.params.MessagePause)
		}

		x := sess.Exchange(SustainedMessage(client, round, PickSize(s.params.MessageSizes)))
		s.collector.RecordExchange(x)

		if x.OK() {
			continue
		}

		level.Debug(s.logger).Log(
			definitions.LogKeyMsg, "Sustained exchange failed",
			definitions.LogKeyClientID, client,
			definitions.LogKeyRound, round,
			definitions.LogKeyKind, x.Kind.String(),
			definitions.LogKeyError, x.Err,
		)
	}
}
