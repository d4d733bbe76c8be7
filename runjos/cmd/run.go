// Copyright 2026 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"context"
	"flag"
	"io"
	"os"
	"time"

	"github.com/google/subcommands"
	"jos.dev/jos/pkg/sentry/monitor"
	"jos.dev/jos/runjos/config"
)

// Run implements subcommands.Command for the "run" command.
type Run struct {
	verbose bool
	timeout time.Duration
	monitor bool
}

// Name implements subcommands.Command.Name.
func (*Run) Name() string {
	return "run"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Run) Synopsis() string {
	return "run scenarios against a fresh kernel and check their expectations"
}

// Usage implements subcommands.Command.Usage.
func (*Run) Usage() string {
	return `run [flags] <scenario.yaml|scenario.toml>... - boot a kernel for each scenario, execute its steps and check its expectations.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (r *Run) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&r.verbose, "v", false, "copy console output to stdout.")
	f.DurationVar(&r.timeout, "timeout", 0, "stop after this long. Zero means no limit.")
	f.BoolVar(&r.monitor, "monitor", false, "enter the kernel monitor after the last scenario.")
}

// Execute implements subcommands.Command.Execute.
func (r *Run) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() < 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	var console io.Writer
	if r.verbose {
		console = os.Stdout
	}
	runner, err := runScenarios(ctx, conf, f.Args(), os.Stdout, console)
	if err != nil {
		return Errorf("%v", err)
	}
	if r.monitor {
		if err := monitor.New(runner.Kernel(), os.Stdout).ServeStdio(ctx); err != nil {
			return Errorf("monitor: %v", err)
		}
	}
	return subcommands.ExitSuccess
}
