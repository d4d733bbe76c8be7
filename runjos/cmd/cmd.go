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

// Package cmd holds implementations of the runjos commands.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/subcommands"
	"jos.dev/jos/pkg/log"
	"jos.dev/jos/runjos/boot"
	"jos.dev/jos/runjos/config"
)

// ErrorLogger is where error messages should be written to. These
// messages are consumed by the caller of runjos.
var ErrorLogger io.Writer

// writeError writes an error message to stderr and to ErrorLogger.
func writeError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if len(msg) == 0 || msg[len(msg)-1] != '\n' {
		msg += "\n"
	}
	fmt.Fprint(os.Stderr, msg)
	if ErrorLogger != nil {
		fmt.Fprintf(ErrorLogger, "%s %s", time.Now().Format(time.RFC3339), msg)
	}
}

// Errorf logs error to the log, stderr and ErrorLogger, and returns
// subcommands.ExitFailure.
func Errorf(format string, args ...any) subcommands.ExitStatus {
	log.Warningf(format, args...)
	writeError(format, args...)
	return subcommands.ExitFailure
}

// Fatalf logs the same message to the log, stderr and ErrorLogger, and
// exits with failure.
func Fatalf(format string, args ...any) {
	log.Warningf(format, args...)
	writeError(format, args...)
	os.Exit(128)
}

// runScenarios runs the scenario files in paths, each on a fresh kernel,
// and reports each result to w. It stops at the first failure. The
// runner of the last scenario is returned.
func runScenarios(ctx context.Context, conf *config.Config, paths []string, w io.Writer, console io.Writer) (*boot.Runner, error) {
	var r *boot.Runner
	for _, path := range paths {
		sc, err := boot.LoadScenario(path)
		if err != nil {
			return nil, err
		}
		r, err = boot.NewRunner(conf, sc, console)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", sc.Name, err)
		}
		start := time.Now()
		if err := r.Run(ctx); err != nil {
			fmt.Fprintf(w, "FAIL\t%s\n", sc.Name)
			return nil, err
		}
		fmt.Fprintf(w, "ok\t%s\t%v\n", sc.Name, time.Since(start).Round(time.Microsecond))
	}
	return r, nil
}
