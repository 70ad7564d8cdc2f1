package main

import (
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/croessner/echoprobe/client/definitions"
	"github.com/croessner/echoprobe/client/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

func TestOptionsGraph(t *testing.T) {
	cfg := engine.DefaultConfig()
	cfg.LogFile = filepath.Join(t.TempDir(), "run.log")

	assert.NoError(t, fx.ValidateApp(options(cfg)...))
}

func TestRunInvalidConfig(t *testing.T) {
	assert.Equal(t, definitions.ExitInvalidConfig, run([]string{"--port", "0"}))
	assert.Equal(t, definitions.ExitInvalidConfig, run([]string{"--mode", "flood"}))
}

func TestRunHelp(t *testing.T) {
	assert.Equal(t, definitions.ExitOK, run([]string{"--help"}))
}

func startEcho(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}

			go func() {
				defer conn.Close()

				_, _ = io.Copy(conn, conn)
			}()
		}
	}()

	return strconv.Itoa(ln.Addr().(*net.TCPAddr).Port)
}

func TestRunSuite(t *testing.T) {
	dir := t.TempDir()
	report := filepath.Join(dir, "report.json")

	code := run([]string{
		"--port", startEcho(t),
		"--burst-clients", "4",
		"--burst-batch-size", "2",
		"--burst-batch-interval", "5ms",
		"--sustained-duration", "1s",
		"--sustained-rate", "2",
		"--message-pause", "1ms",
		"--grace-period", "200ms",
		"--log-file", filepath.Join(dir, "run.log"),
		"--report-json", report,
		"--color", "never",
		"--log-level", "none",
	})

	require.Equal(t, definitions.ExitOK, code)

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"connections_failed": 0`)

	journal, err := os.ReadFile(filepath.Join(dir, "run.log"))
	require.NoError(t, err)
	assert.Contains(t, string(journal), "Performance report")
	assert.Contains(t, string(journal), "Test ended: ")
}

func TestRunBasicFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	port := strconv.Itoa(ln.Addr().(*net.TCPAddr).Port)
	require.NoError(t, ln.Close())

	code := run([]string{
		"--port", port,
		"--log-file", filepath.Join(t.TempDir(), "run.log"),
		"--color", "never",
		"--log-level", "none",
	})

	assert.Equal(t, definitions.ExitBasicFailed, code)
}
