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
	"bytes"
	"testing"

	"github.com/croessner/echoprobe/client/definitions"
	"github.com/croessner/echoprobe/client/log/level"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLogging(t *testing.T) {
	tests := []struct {
		name           string
		configLogLevel int
		formatJSON     bool
		instance       string
		want           []string
		notWant        []string
	}{
		{
			name:           "LogLevelNone, JSON format",
			configLogLevel: definitions.LogLevelNone,
			formatJSON:     true,
			instance:       "none_json",
			notWant:        []string{"error"},
		},
		{
			name:           "LogLevelError, text format",
			configLogLevel: definitions.LogLevelError,
			instance:       "error_text",
			want:           []string{"msg=error", "instance=error_text"},
			notWant:        []string{"msg=warn", "msg=info"},
		},
		{
			name:           "LogLevelInfo, text format",
			configLogLevel: definitions.LogLevelInfo,
			instance:       "info_text",
			want:           []string{"msg=info", "msg=warn", "msg=error"},
			notWant:        []string{"msg=debug"},
		},
		{
			name:           "LogLevelDebug, JSON format",
			configLogLevel: definitions.LogLevelDebug,
			formatJSON:     true,
			instance:       "debug_json",
			want:           []string{`"msg":"debug"`, `"instance":"debug_json"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}

			logger := SetupLoggingTo(buf, tt.configLogLevel, tt.formatJSON, tt.instance)
			assert.Same(t, Logger, logger)

			level.Debug(Logger).Log("msg", "debug")
			level.Info(Logger).Log("msg", "info")
			level.Warn(Logger).Log("msg", "warn")
			level.Error(Logger).Log("msg", "error")

			out := buf.String()
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}

			for _, w := range tt.notWant {
				assert.NotContains(t, out, w)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	for name, want := range map[string]int{
		"none":    definitions.LogLevelNone,
		"ERROR":   definitions.LogLevelError,
		"warning": definitions.LogLevelWarn,
		"":        definitions.LogLevelInfo,
		" debug ": definitions.LogLevelDebug,
	} {
		got, err := ParseLogLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseLogLevel("verbose")
	assert.Error(t, err)
}
