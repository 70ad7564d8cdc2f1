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

package level

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newBufferLogger(buf *bytes.Buffer, lvl slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: lvl}))
}

func TestLogUsesMsgKey(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := newBufferLogger(buf, slog.LevelDebug)

	_ = Info(logger).Log("msg", "connected", "target", "127.0.0.1:8888", "elapsed", 3*time.Millisecond)

	out := buf.String()
	assert.Contains(t, out, "level=INFO")
	assert.Contains(t, out, "msg=connected")
	assert.Contains(t, out, "target=127.0.0.1:8888")
	assert.Contains(t, out, "elapsed=3ms")
}

func TestLogDefaultMessageAndFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := newBufferLogger(buf, slog.LevelWarn)

	_ = Debug(logger).Log("k", 1)
	_ = Info(logger).Log("k", 2)
	assert.Empty(t, buf.String())

	_ = Error(logger).Log("error", errors.New("boom"))
	out := buf.String()
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "msg=ERROR")
	assert.Contains(t, out, "error=boom")
}

func TestLogSkipsInvalidPairs(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := newBufferLogger(buf, slog.LevelDebug)

	var nilErr *strings.Builder

	_ = Warn(logger).Log(42, "ignored", "nil", nilErr, "dangling")

	out := buf.String()
	assert.NotContains(t, out, "ignored")
	assert.NotContains(t, out, "dangling")
	assert.Contains(t, out, "nil=<nil>")
}

func TestNilLoggerIsNoop(t *testing.T) {
	assert.NoError(t, Info(nil).Log("msg", "dropped"))
}
