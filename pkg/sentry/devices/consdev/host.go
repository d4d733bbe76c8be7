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

package consdev

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// HostConsole is a console backed by host file descriptors, usually the
// runjos process's stdin and stdout.
type HostConsole struct {
	in  int
	out io.Writer
}

var _ Console = (*HostConsole)(nil)

// NewHostConsole returns a console reading from the host file descriptor
// in and writing to out.
func NewHostConsole(in int, out io.Writer) *HostConsole {
	return &HostConsole{in: in, out: out}
}

// NewStdioConsole returns a console on the process's standard streams.
func NewStdioConsole() *HostConsole {
	return NewHostConsole(int(os.Stdin.Fd()), os.Stdout)
}

// Write implements Console.Write.
func (c *HostConsole) Write(p []byte) (int, error) {
	return c.out.Write(p)
}

// Getc implements Console.Getc. It polls the input descriptor with a zero
// timeout so it never blocks.
func (c *HostConsole) Getc() byte {
	b, err := c.getc()
	if err != nil {
		return 0
	}
	return b
}

func (c *HostConsole) getc() (byte, error) {
	fds := []unix.PollFd{{Fd: int32(c.in), Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(fds, 0)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("poll console: %w", err)
		}
		if n == 0 || fds[0].Revents&unix.POLLIN == 0 {
			return 0, nil
		}
		break
	}
	var buf [1]byte
	n, err := unix.Read(c.in, buf[:])
	if err != nil {
		return 0, fmt.Errorf("read console: %w", err)
	}
	if n == 0 {
		return 0, nil
	}
	return buf[0], nil
}
