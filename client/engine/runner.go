package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/croessner/echoprobe/client/definitions"
	errors2 "github.com/croessner/echoprobe/client/errors"
	"github.com/croessner/echoprobe/client/log/level"
	"github.com/segmentio/ksuid"
)

const (
	ruleWidth      = 60
	publishTimeout = 5 * time.Second
)

// Job is a complete run that ends with a process exit code.
type Job interface {
	Run(ctx context.Context) int
}

// Stages are the scenarios of a suite run in execution order.
type Stages struct {
	Basic     Scenario
	Burst     Scenario
	Sustained Scenario
}

// Runner sequences the scenarios, prints the final report and maps the
// outcome to an exit code.
type Runner struct {
	runID     string
	target    Target
	stages    Stages
	collector StatsCollector
	console   *Console
	cpu       *CPUSampler
	sinks     []ReportSink
	logger    *slog.Logger
}

// NewRunner creates a runner with a fresh run id. cpu may be nil.
func NewRunner(target Target, stages Stages, collector StatsCollector, console *Console, cpu *CPUSampler, sinks []ReportSink, logger *slog.Logger) *Runner {
	return &Runner{
		runID:     ksuid.New().String(),
		target:    target,
		stages:    stages,
		collector: collector,
		console:   console,
		cpu:       cpu,
		sinks:     sinks,
		logger:    logger,
	}
}

func (r *Runner) RunID() string {
	return r.runID
}

type stage struct {
	scenario Scenario
	fatal    bool
}

// Run executes basic, burst and sustained in order. A failed basic stage ends
// the run with ExitBasicFailed and no report. An error in a later stage, or
// cancelling ctx, skips to the report.
func (r *Runner) Run(ctx context.Context) int {
	started := time.Now()

	r.openBanner(started)

	if r.cpu != nil {
		if err := r.cpu.Start(); err != nil {
			level.Warn(r.logger).Log(definitions.LogKeyMsg, "Client CPU sampling disabled", definitions.LogKeyError, err)
		}
	}

	level.Info(r.logger).Log(
		definitions.LogKeyMsg, "Run started",
		definitions.LogKeyRunID, r.runID,
		definitions.LogKeyTarget, r.target.Address(),
	)

	stages := []stage{
		{scenario: r.stages.Basic, fatal: true},
		{scenario: r.stages.Burst},
		{scenario: r.stages.Sustained},
	}

	total := len(stages) + 1
	interrupted := false

	for i, st := range stages {
		name := st.scenario.Name()

		r.console.Section(fmt.Sprintf("[%d/%d] %s", i+1, total, name))

		err := runStage(ctx, st.scenario)

		if ctx.Err() != nil {
			interrupted = true

			r.console.Line("Interrupted, skipping to the report")

			break
		}

		if err == nil {
			continue
		}

		level.Error(r.logger).Log(
			definitions.LogKeyMsg, "Scenario failed",
			definitions.LogKeyRunID, r.runID,
			definitions.LogKeyScenario, name,
			definitions.LogKeyError, err,
		)

		if st.fatal || errors.Is(err, errors2.ErrBasicScenarioFailed) {
			r.console.Fail("%s failed, skipping remaining tests", name)
			r.closeBanner()

			return definitions.ExitBasicFailed
		}

		r.console.Fail("%s failed: %v", name, err)
		r.console.Line("Skipping to the report")

		break
	}

	report := r.Report(interrupted)

	r.console.Section(fmt.Sprintf("[%d/%d] Performance report", total, total))
	RenderReport(r.console, report)

	r.publish(ctx, report)
	r.closeBanner()

	level.Info(r.logger).Log(
		definitions.LogKeyMsg, "Run finished",
		definitions.LogKeyRunID, r.runID,
		definitions.LogKeyElapsed, time.Since(started),
	)

	return definitions.ExitOK
}

// runStage turns a panicking scenario into an error.
func runStage(ctx context.Context, s Scenario) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", errors2.ErrScenarioPanic, rec)
		}
	}()

	return s.Run(ctx)
}

// Report returns the current aggregate annotated with the run metadata.
func (r *Runner) Report(interrupted bool) Report {
	report := r.collector.Snapshot()
	report.RunID = r.runID
	report.Target = r.target.Address()
	report.Interrupted = interrupted

	if r.cpu != nil {
		if usage, err := r.cpu.Usage(); err == nil {
			report.ClientCPU = usage
		}
	}

	return report
}

// PrintSnapshot renders the statistics collected so far in the middle of a run.
func (r *Runner) PrintSnapshot() {
	r.console.Section("Snapshot " + time.Now().Format(time.TimeOnly))
	RenderReport(r.console, r.Report(false))
}

func (r *Runner) publish(ctx context.Context, report Report) {
	if len(r.sinks) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	for _, sink := range r.sinks {
		if err := sink.Publish(ctx, report); err != nil {
			level.Error(r.logger).Log(
				definitions.LogKeyMsg, "Publishing report failed",
				definitions.LogKeyRunID, r.runID,
				definitions.LogKeyPath, sink.Name(),
				definitions.LogKeyError, err,
			)

			continue
		}

		level.Info(r.logger).Log(definitions.LogKeyMsg, "Report published", definitions.LogKeyPath, sink.Name())
	}
}

func (r *Runner) openBanner(started time.Time) {
	r.console.Rule(ruleWidth)
	r.console.Line("%s", banner("Test started", started))
	r.console.Line("Run id: %s", r.runID)
	r.console.Line("Target: %s", r.target.Address())
	r.console.Rule(ruleWidth)
}

func (r *Runner) closeBanner() {
	r.console.Line("")
	r.console.Rule(ruleWidth)
	r.console.Line("%s", banner("Test ended", time.Now()))
	r.console.Rule(ruleWidth)
}
