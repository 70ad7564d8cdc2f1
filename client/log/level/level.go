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

// Package level offers the keyval logging calls used throughout echoprobe,
// e.g. level.Info(logger).Log(definitions.LogKeyMsg, "connected", "target", addr),
// on top of log/slog.
package level

import (
	"context"
	"log/slog"
	"reflect"
	"time"

	"github.com/croessner/echoprobe/client/definitions"
)

// Logger accepts alternating key/value pairs. A "msg" key with a string value
// becomes the record message; all other pairs become attributes.
type Logger interface {
	Log(keyvals ...any) error
}

type slogLevelLogger struct {
	l   *slog.Logger
	lvl slog.Level
}

// Debug returns a Logger that logs at slog.LevelDebug.
func Debug(l *slog.Logger) Logger {
	return &slogLevelLogger{l: l, lvl: slog.LevelDebug}
}

// Info returns a Logger that logs at slog.LevelInfo.
func Info(l *slog.Logger) Logger {
	return &slogLevelLogger{l: l, lvl: slog.LevelInfo}
}

// Warn returns a Logger that logs at slog.LevelWarn.
func Warn(l *slog.Logger) Logger {
	return &slogLevelLogger{l: l, lvl: slog.LevelWarn}
}

// Error returns a Logger that logs at slog.LevelError.
func Error(l *slog.Logger) Logger {
	return &slogLevelLogger{l: l, lvl: slog.LevelError}
}

// Log implements Logger. A nil slog logger silently drops the record.
func (s *slogLevelLogger) Log(keyvals ...any) error {
	if s.l == nil {
		return nil
	}

	ctx := context.Background()
	if !s.l.Enabled(ctx, s.lvl) {
		return nil
	}

	var msg string

	attrs := make([]slog.Attr, 0, len(keyvals)/2)
	for i := 0; i+1 < len(keyvals); i += 2 {
		k, ok := keyvals[i].(string)
		if !ok {
			continue
		}

		v := keyvals[i+1]

		if k == definitions.LogKeyMsg {
			if vs, ok := v.(string); ok {
				msg = vs

				continue
			}
		}

		attrs = append(attrs, toAttr(k, v))
	}

	if msg == "" {
		msg = s.lvl.String()
	}

	s.l.LogAttrs(ctx, s.lvl, msg, attrs...)

	return nil
}

func toAttr(k string, v any) slog.Attr {
	if isTypedNil(v) {
		return slog.String(k, "<nil>")
	}

	switch vv := v.(type) {
	case string:
		return slog.String(k, vv)
	case error:
		return slog.String(k, vv.Error())
	case time.Duration:
		return slog.Duration(k, vv)
	case int:
		return slog.Int(k, vv)
	case int64:
		return slog.Int64(k, vv)
	default:
		return slog.Any(k, vv)
	}
}

// isTypedNil reports whether v is nil or a typed-nil (e.g., (*T)(nil)).
func isTypedNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Chan, reflect.Func, reflect.Map, reflect.Pointer, reflect.Interface, reflect.Slice:
		return rv.IsNil()
	default:
		return false
	}
}
