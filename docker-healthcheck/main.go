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

// Command docker-healthcheck performs one echo round trip and exits 0 when the
// server answered with the same bytes. It is meant for HEALTHCHECK lines of
// echo server containers.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/croessner/echoprobe/client/definitions"
	"github.com/croessner/echoprobe/client/engine"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const defaultMessage = "healthcheck"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	fs := pflag.NewFlagSet("docker-healthcheck", pflag.ContinueOnError)
	fs.StringP("host", "H", "127.0.0.1", "echo server host")
	fs.IntP("port", "p", 8888, "echo server port")
	fs.StringP("message", "m", defaultMessage, "payload to send")
	fs.DurationP("timeout", "t", 3*time.Second, "connect, send and receive timeout")
	fs.Bool("proxy-protocol", false, "send a PROXY protocol v2 header")
	fs.BoolP("verbose", "v", false, "be verbose")

	if err := fs.Parse(args); err != nil {
		return definitions.ExitInvalidConfig
	}

	v := viper.New()
	v.SetEnvPrefix(definitions.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return definitions.ExitInvalidConfig
	}

	verbose := v.GetBool("verbose")
	target := engine.Target{Host: v.GetString("host"), Port: v.GetInt("port")}

	if verbose {
		fmt.Fprintln(out, "Checking", target.Address())
	}

	sess := engine.NewSession(target, engine.SessionOptions{
		Timeout:       v.GetDuration("timeout"),
		ProxyProtocol: v.GetBool("proxy-protocol"),
	})
	defer sess.Close()

	if err := sess.Connect(context.Background()); err != nil {
		if verbose {
			fmt.Fprintln(out, "Test FAILED:", err)
		}

		return definitions.ExitBasicFailed
	}

	if x := sess.Exchange(v.GetString("message")); !x.OK() {
		if verbose {
			fmt.Fprintln(out, "Test FAILED:", x.Err)
		}

		return definitions.ExitBasicFailed
	}

	if verbose {
		fmt.Fprintln(out, "Test OK")
	}

	return definitions.ExitOK
}
