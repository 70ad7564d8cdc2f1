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

package logfx

import (
	"bytes"
	"context"
	stdlog "log"
	"log/slog"

	"github.com/croessner/echoprobe/client/definitions"
	"github.com/croessner/echoprobe/client/log"
	"github.com/croessner/echoprobe/client/log/level"

	"go.uber.org/fx"
)

// NewLogger returns the process logger configured by log.SetupLogging.
func NewLogger() *slog.Logger {
	return log.Logger
}

// slogStdWriter forwards lines written through the standard library logger.
type slogStdWriter struct {
	logger *slog.Logger
}

func (w *slogStdWriter) Write(p []byte) (int, error) {
	level.Info(w.logger).Log(definitions.LogKeyMsg, string(bytes.TrimRight(p, "\n")))

	return len(p), nil
}

// BridgeStdLog redirects the standard library logger (used by net/http and
// friends) into slog while the application runs.
func BridgeStdLog(lc fx.Lifecycle, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			if logger == nil {
				return nil
			}

			stdlog.SetFlags(0)
			stdlog.SetOutput(&slogStdWriter{logger: logger})

			return nil
		},
	})
}
