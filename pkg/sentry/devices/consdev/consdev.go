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

// Package consdev implements the kernel console: the device behind the
// cputs and cgetc syscalls.
package consdev

import (
	"bytes"
	"io"

	"jos.dev/jos/pkg/sync"
)

// Console is the kernel console.
type Console interface {
	// Write prints p. It implements io.Writer.
	Write(p []byte) (int, error)

	// Getc returns the next input character without blocking. It returns
	// 0 if no input is waiting.
	Getc() byte
}

// BufferConsole is an in-memory console. Output is accumulated and input
// is queued with Feed.
type BufferConsole struct {
	mu  sync.Mutex
	out bytes.Buffer
	in  []byte
}

var _ Console = (*BufferConsole)(nil)

// NewBufferConsole returns a console whose input queue holds input.
func NewBufferConsole(input string) *BufferConsole {
	return &BufferConsole{in: []byte(input)}
}

// Write implements Console.Write.
func (c *BufferConsole) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out.Write(p)
}

// Getc implements Console.Getc.
func (c *BufferConsole) Getc() byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.in) == 0 {
		return 0
	}
	b := c.in[0]
	c.in = c.in[1:]
	return b
}

// Feed appends s to the input queue.
func (c *BufferConsole) Feed(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.in = append(c.in, s...)
}

// Output returns everything written so far.
func (c *BufferConsole) Output() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out.String()
}

// Tee returns a console that writes to both c and w and reads from c.
func Tee(c Console, w io.Writer) Console {
	return &teeConsole{Console: c, w: w}
}

type teeConsole struct {
	Console
	w io.Writer
}

// Write implements Console.Write.
func (t *teeConsole) Write(p []byte) (int, error) {
	n, err := t.Console.Write(p)
	if err != nil {
		return n, err
	}
	return t.w.Write(p)
}
