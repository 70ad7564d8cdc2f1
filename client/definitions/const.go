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

// Package definitions holds constants shared by the echoprobe packages.
package definitions

// Log keys.
const (
	// LogKeyMsg represents the message content in log entries.
	LogKeyMsg = "msg"

	// LogKeyError represents error information in log entries.
	LogKeyError = "error"

	// LogKeyInstance represents instance identification in log entries.
	LogKeyInstance = "instance"

	// LogKeyRunID is the ksuid that identifies one test run.
	LogKeyRunID = "run_id"

	// LogKeyScenario names the scenario a log entry belongs to.
	LogKeyScenario = "scenario"

	// LogKeyTarget is the host:port of the echo server under test.
	LogKeyTarget = "target"

	// LogKeyKind is the failure kind of an exchange.
	LogKeyKind = "kind"

	// LogKeyClientID is the logical client number inside a scenario.
	LogKeyClientID = "client"

	// LogKeyRound is the 1-based message number inside a session.
	LogKeyRound = "round"

	// LogKeyElapsed is a duration measured for an operation.
	LogKeyElapsed = "elapsed"

	// LogKeySignal names a received OS signal.
	LogKeySignal = "signal"

	// LogKeyPath is a filesystem path.
	LogKeyPath = "path"

	// LogKeyAddr is a listen or dial address.
	LogKeyAddr = "addr"
)

// Log level.
const (
	// LogLevelNone is the iota constant representing no logs
	LogLevelNone = iota

	// LogLevelError is the iota constant for error logs
	LogLevelError

	// LogLevelWarn is the iota constant for warning logs
	LogLevelWarn

	// LogLevelInfo is the iota constant for info logs
	LogLevelInfo

	// LogLevelDebug is the iota constant for debug logs
	LogLevelDebug
)

// Log level names as accepted on the command line.
const (
	LogLevelNameNone  = "none"
	LogLevelNameError = "error"
	LogLevelNameWarn  = "warn"
	LogLevelNameInfo  = "info"
	LogLevelNameDebug = "debug"
)

// InstanceName is the instance value attached to every log line.
const InstanceName = "echoprobe"

// EnvPrefix is the prefix for environment overrides, e.g. ECHOPROBE_PORT.
const EnvPrefix = "ECHOPROBE"

// Run modes.
const (
	// ModeSuite runs basic, burst and sustained scenarios followed by the final report.
	ModeSuite = "suite"

	// ModePing keeps one connection open and sends a greeting at a fixed interval.
	ModePing = "ping"
)

// Process exit codes.
const (
	ExitOK            = 0
	ExitBasicFailed   = 1
	ExitInvalidConfig = 2
)

// DefaultReceiveBufferSize is the capacity of the single bounded read per exchange.
const DefaultReceiveBufferSize = 4096
