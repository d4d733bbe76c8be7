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

	"github.com/google/subcommands"
	"jos.dev/jos/pkg/metric"
	"jos.dev/jos/runjos/config"
)

// MetricExport implements subcommands.Command for the "metric-export"
// command.
type MetricExport struct{}

// Name implements subcommands.Command.Name.
func (*MetricExport) Name() string {
	return "metric-export"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*MetricExport) Synopsis() string {
	return "run scenarios and export kernel metric data"
}

// Usage implements subcommands.Command.Usage.
func (*MetricExport) Usage() string {
	return `metric-export [scenario]... - runs the scenarios, then prints kernel metric data in Prometheus metric format
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (*MetricExport) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*MetricExport) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	conf := args[0].(*config.Config)
	if _, err := runScenarios(ctx, conf, f.Args(), io.Discard, nil); err != nil {
		return Errorf("%v", err)
	}
	if err := metric.WritePrometheus(os.Stdout); err != nil {
		return Errorf("Cannot write metrics to stdout: %v", err)
	}
	return subcommands.ExitSuccess
}
