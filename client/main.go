package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/croessner/echoprobe/client/app/logfx"
	"github.com/croessner/echoprobe/client/app/signalsfx"
	"github.com/croessner/echoprobe/client/definitions"
	"github.com/croessner/echoprobe/client/engine"
	"github.com/croessner/echoprobe/client/log"
	"github.com/spf13/pflag"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

const (
	startTimeout = 15 * time.Second
	stopTimeout  = time.Minute
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := engine.LoadConfig(definitions.InstanceName, args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return definitions.ExitOK
		}

		fmt.Fprintf(os.Stderr, "error: %v\n", err)

		return definitions.ExitInvalidConfig
	}

	logLevel, _ := log.ParseLogLevel(cfg.LogLevel)
	if cfg.Debug {
		logLevel = definitions.LogLevelDebug
	}

	log.SetupLogging(logLevel, cfg.LogFormat == "json", definitions.InstanceName)

	app := fx.New(options(cfg)...)
	if err = app.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)

		return definitions.ExitInvalidConfig
	}

	startCtx, cancel := context.WithTimeout(context.Background(), startTimeout)
	defer cancel()

	if err = app.Start(startCtx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)

		return definitions.ExitInvalidConfig
	}

	sig := <-app.Wait()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
	defer stopCancel()

	if err = app.Stop(stopCtx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}

	return sig.ExitCode
}

func options(cfg *engine.Config) []fx.Option {
	return []fx.Option{
		fx.Supply(cfg),
		fx.StartTimeout(startTimeout),
		fx.StopTimeout(stopTimeout),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return logfx.NewFxEventLogger(logger)
		}),
		fx.Provide(newRunContext),
		fx.Provide(func(r *engine.Runner) signalsfx.SnapshotPrinter { return r }),
		logfx.Module,
		signalsfx.Module(),
		engine.Module,
		fx.Invoke(runJob),
	}
}

// newRunContext is cancelled by SIGINT/SIGTERM or when the app stops.
func newRunContext(lc fx.Lifecycle) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			cancel()

			return nil
		},
	})

	return ctx, cancel
}

func runJob(lifecycle fx.Lifecycle, ctx context.Context, cancel context.CancelFunc, job engine.Job, shutdown fx.Shutdowner) {
	done := make(chan struct{})

	lifecycle.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				defer close(done)

				code := job.Run(ctx)

				_ = shutdown.Shutdown(fx.ExitCode(code))
			}()

			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()

			select {
			case <-done:
			case <-stopCtx.Done():
				return stopCtx.Err()
			}

			return nil
		},
	})
}
