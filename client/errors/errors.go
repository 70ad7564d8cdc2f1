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

package errors

import (
	"errors"
)

var (
	// ErrBasicScenarioFailed is returned when the single-session check does not pass. It aborts the run.
	ErrBasicScenarioFailed = errors.New("basic scenario failed")

	// ErrInvalidConfig wraps every configuration validation failure.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNotConnected is returned by session operations issued before a successful connect.
	ErrNotConnected = errors.New("session not connected")

	// ErrPeerClosed means the peer closed the connection (zero-length read).
	ErrPeerClosed = errors.New("peer closed connection")

	// ErrEchoMismatch means the echoed bytes differ from the payload that was sent.
	ErrEchoMismatch = errors.New("echo mismatch")

	// ErrInvalidUTF8 means the echoed bytes could not be decoded as UTF-8 text.
	ErrInvalidUTF8 = errors.New("response is not valid utf-8")

	// ErrScenarioPanic is reported when a scenario panicked and the runner recovered.
	ErrScenarioPanic = errors.New("scenario panicked")
)
