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
	"fmt"
	"os"

	"github.com/google/subcommands"
	"jos.dev/jos/pkg/sentry/devices/consdev"
	"jos.dev/jos/pkg/sentry/kernel"
	"jos.dev/jos/pkg/sentry/monitor"
	"jos.dev/jos/runjos/boot"
	"jos.dev/jos/runjos/config"
)

// Monitor implements subcommands.Command for the "monitor" command.
type Monitor struct {
	envs int
}

// Name implements subcommands.Command.Name.
func (*Monitor) Name() string {
	return "monitor"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Monitor) Synopsis() string {
	return "boot a kernel and enter the interactive kernel monitor"
}

// Usage implements subcommands.Command.Usage.
func (*Monitor) Usage() string {
	return `monitor [flags] [scenario] - boot a kernel, optionally run a scenario on it, and inspect it with the kernel monitor.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (m *Monitor) SetFlags(f *flag.FlagSet) {
	f.IntVar(&m.envs, "envs", 1, "number of environments to create when no scenario is given.")
}

// Execute implements subcommands.Command.Execute.
func (m *Monitor) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() > 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)

	var k *kernel.Kernel
	if f.NArg() == 1 {
		r, err := runScenarios(ctx, conf, f.Args(), os.Stdout, os.Stdout)
		if err != nil {
			return Errorf("%v", err)
		}
		k = r.Kernel()
	} else {
		var err error
		if k, err = bootIdle(conf, consdev.NewStdioConsole(), m.envs); err != nil {
			return Errorf("%v", err)
		}
	}
	if err := monitor.New(k, os.Stdout).ServeStdio(ctx); err != nil {
		return Errorf("monitor: %v", err)
	}
	return subcommands.ExitSuccess
}

// bootIdle boots a kernel with n RUNNABLE environments that have not run.
func bootIdle(conf *config.Config, console consdev.Console, n int) (*kernel.Kernel, error) {
	k, err := boot.NewKernel(conf, console)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		if _, err := k.CreateEnv(fmt.Sprintf("env%d", i), 0); err != nil {
			return nil, fmt.Errorf("creating environment %d: %w", i, err)
		}
	}
	return k, nil
}
