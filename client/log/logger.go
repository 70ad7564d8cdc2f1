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

package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/croessner/echoprobe/client/definitions"
)

var (
	mu sync.Mutex

	// Logger is used for all diagnostic messages. Human readable run output goes through the engine console instead.
	Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
)

// ParseLogLevel maps a level name to one of the definitions.LogLevel* constants.
func ParseLogLevel(name string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case definitions.LogLevelNameNone:
		return definitions.LogLevelNone, nil
	case definitions.LogLevelNameError:
		return definitions.LogLevelError, nil
	case definitions.LogLevelNameWarn, "warning":
		return definitions.LogLevelWarn, nil
	case definitions.LogLevelNameInfo, "":
		return definitions.LogLevelInfo, nil
	case definitions.LogLevelNameDebug:
		return definitions.LogLevelDebug, nil
	default:
		return definitions.LogLevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}

// SetupLogging initializes the global "Logger" object writing to stderr.
func SetupLogging(configLogLevel int, formatJSON bool, instance string) *slog.Logger {
	return SetupLoggingTo(os.Stderr, configLogLevel, formatJSON, instance)
}

// SetupLoggingTo initializes the global "Logger" object writing to w.
func SetupLoggingTo(w io.Writer, configLogLevel int, formatJSON bool, instance string) *slog.Logger {
	mu.Lock()

	defer mu.Unlock()

	if configLogLevel == definitions.LogLevelNone {
		w = io.Discard
	}

	opts := &slog.HandlerOptions{
		Level:     toSlogLevel(configLogLevel),
		AddSource: configLogLevel == definitions.LogLevelDebug,
	}

	var handler slog.Handler

	if formatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	Logger = slog.New(handler).With(definitions.LogKeyInstance, instance)

	return Logger
}

func toSlogLevel(configLogLevel int) slog.Level {
	switch configLogLevel {
	case definitions.LogLevelDebug:
		return slog.LevelDebug
	case definitions.LogLevelInfo:
		return slog.LevelInfo
	case definitions.LogLevelWarn:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
