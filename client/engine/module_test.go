package engine

import (
	"context"
	"log/slog"
	"testing"

	"github.com/croessner/echoprobe/client/definitions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

func testModuleOptions(cfg *Config) fx.Option {
	return fx.Options(
		fx.NopLogger,
		fx.Supply(cfg),
		fx.Provide(func() *slog.Logger { return discardLogger() }),
		fx.Provide(func() (context.Context, context.CancelFunc) { return context.WithCancel(context.Background()) }),
		Module,
	)
}

func TestModuleGraph(t *testing.T) {
	require.NoError(t, fx.ValidateApp(testModuleOptions(DefaultConfig()), fx.Invoke(func(Job) {})))
}

func TestModuleSelectsJob(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogFile = t.TempDir() + "/run.log"
	cfg.ReportJSON = t.TempDir() + "/report.json"
	cfg.RedisAddr = "127.0.0.1:6379"

	var (
		job   Job
		sinks []ReportSink
	)

	app := fx.New(testModuleOptions(cfg), fx.Populate(&job, &sinks))
	require.NoError(t, app.Err())

	assert.IsType(t, &Runner{}, job)
	require.Len(t, sinks, 2)
	assert.IsType(t, &JSONFileSink{}, sinks[0])
	assert.IsType(t, &RedisSink{}, sinks[1])

	cfg = DefaultConfig()
	cfg.LogFile = t.TempDir() + "/run.log"
	cfg.Mode = definitions.ModePing

	app = fx.New(testModuleOptions(cfg), fx.Populate(&job))
	require.NoError(t, app.Err())

	assert.IsType(t, &PingRunner{}, job)
}
