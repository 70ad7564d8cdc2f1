// Copyright (C) 2026 Christian Rößner
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

package signalsfx

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"syscall"

	"github.com/croessner/echoprobe/client/definitions"
	"github.com/croessner/echoprobe/client/log/level"

	"go.uber.org/fx"
)

// SnapshotPrinter prints the statistics collected so far without ending the run.
type SnapshotPrinter interface {
	PrintSnapshot()
}

// Controller owns OS signal subscriptions and translates them into run actions:
// SIGINT and SIGTERM cancel the run context, SIGUSR1 prints a snapshot report.
type Controller struct {
	ctx    context.Context
	cancel context.CancelFunc

	logger   *slog.Logger
	notifier Notifier
	snapshot SnapshotPrinter

	mu    sync.Mutex
	sigCh chan os.Signal
	wg    sync.WaitGroup
}

type controllerIn struct {
	fx.In

	Ctx    context.Context
	Cancel context.CancelFunc

	Logger   *slog.Logger
	Notifier Notifier
	Snapshot SnapshotPrinter `optional:"true"`
}

// NewController constructs a Controller.
func NewController(in controllerIn) *Controller {
	return &Controller{
		ctx:      in.Ctx,
		cancel:   in.Cancel,
		logger:   in.Logger,
		notifier: in.Notifier,
		snapshot: in.Snapshot,
	}
}

// Start subscribes to OS signals and starts the routing loop. It is idempotent.
func (c *Controller) Start(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sigCh != nil {
		return nil
	}

	sigCh := make(chan os.Signal, 8)
	c.sigCh = sigCh
	c.notifier.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1)

	c.wg.Go(func() {
		c.loop(sigCh)
	})

	return nil
}

// Stop unsubscribes from OS signals and waits for the routing loop to exit.
func (c *Controller) Stop(_ context.Context) error {
	c.mu.Lock()
	sigCh := c.sigCh
	c.sigCh = nil
	c.mu.Unlock()

	if sigCh != nil {
		c.notifier.Stop(sigCh)
		close(sigCh)
	}

	c.wg.Wait()

	return nil
}

func (c *Controller) loop(sigCh <-chan os.Signal) {
	for {
		select {
		case <-c.ctx.Done():
			return
		case sig, ok := <-sigCh:
			if !ok {
				return
			}

			switch sig {
			case syscall.SIGINT, syscall.SIGTERM:
				level.Info(c.logger).Log(definitions.LogKeyMsg, "Received termination signal", definitions.LogKeySignal, sig.String())
				c.cancel()

				return
			case syscall.SIGUSR1:
				level.Info(c.logger).Log(definitions.LogKeyMsg, "Received snapshot signal", definitions.LogKeySignal, sig.String())

				if c.snapshot != nil {
					c.snapshot.PrintSnapshot()
				}
			default:
				level.Debug(c.logger).Log(definitions.LogKeyMsg, "Received unhandled signal", definitions.LogKeySignal, sig.String())
			}
		}
	}
}
