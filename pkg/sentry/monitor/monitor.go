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

// Package monitor implements the kernel debug monitor: a small command
// interpreter for inspecting environments, page tables and physical
// memory while the kernel runs.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"jos.dev/jos/pkg/log"
	"jos.dev/jos/pkg/sentry/kernel"
)

// maxArgs bounds the number of words in a command line.
const maxArgs = 16

// errExit is returned by commands that leave the monitor.
var errExit = errors.New("exit")

// Command is a monitor command.
type Command struct {
	// Name is the word that invokes the command.
	Name string

	// Desc is the one-line description shown by help.
	Desc string

	// Fn runs the command. args[0] is the command name.
	Fn func(m *Monitor, args []string) error
}

// Monitor is a debug monitor attached to a kernel.
type Monitor struct {
	k   *kernel.Kernel
	out io.Writer

	// space is the address space the memory commands act on: an
	// environment, or the kernel template if 0.
	space kernel.EnvID

	commands []Command
}

// New returns a monitor for k writing to out.
func New(k *kernel.Kernel, out io.Writer) *Monitor {
	return &Monitor{
		k:        k,
		out:      out,
		commands: commands,
	}
}

// Commands returns the monitor's commands.
func (m *Monitor) Commands() []Command {
	return m.commands
}

func (m *Monitor) printf(format string, v ...any) {
	fmt.Fprintf(m.out, format, v...)
}

// Exec runs one command line. It returns false if the command asked to
// leave the monitor.
func (m *Monitor) Exec(line string) bool {
	args := strings.Fields(line)
	if len(args) == 0 {
		return true
	}
	if len(args) >= maxArgs {
		m.printf("Too many arguments (max %d)\n", maxArgs)
		return true
	}
	for _, c := range m.commands {
		if c.Name != args[0] {
			continue
		}
		err := c.Fn(m, args)
		switch {
		case err == errExit:
			return false
		case err != nil:
			m.printf("%s: %v\n", c.Name, err)
		}
		return true
	}
	m.printf("Unknown command '%s'\n", args[0])
	return true
}

// Serve runs the monitor over rw until the input ends, a command exits or
// ctx is done.
func (m *Monitor) Serve(ctx context.Context, rw io.ReadWriter) error {
	t := term.NewTerminal(rw, "K> ")
	out := m.out
	m.out = t
	defer func() { m.out = out }()

	m.printf("Welcome to the JOS kernel monitor!\n")
	m.printf("Type 'help' for a list of commands.\n")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := t.ReadLine()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading command: %w", err)
		}
		if !m.Exec(line) {
			return nil
		}
	}
}

// stdio joins standard input and output.
type stdio struct {
	io.Reader
	io.Writer
}

// ServeStdio runs the monitor on the process's standard input and output,
// switching a terminal to raw mode for line editing.
func (m *Monitor) ServeStdio(ctx context.Context) error {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		state, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("setting terminal raw mode: %w", err)
		}
		defer func() {
			if err := term.Restore(fd, state); err != nil {
				log.Warningf("Restoring terminal: %v", err)
			}
		}()
	}
	return m.Serve(ctx, stdio{os.Stdin, os.Stdout})
}
