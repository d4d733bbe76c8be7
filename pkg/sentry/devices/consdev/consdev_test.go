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
	"os"
	"strings"
	"testing"
)

func TestBufferConsole(t *testing.T) {
	c := NewBufferConsole("ab")
	c.Feed("c")
	var got []byte
	for b := c.Getc(); b != 0; b = c.Getc() {
		got = append(got, b)
	}
	if string(got) != "abc" {
		t.Errorf("Getc sequence = %q, want %q", got, "abc")
	}
	if b := c.Getc(); b != 0 {
		t.Errorf("Getc on empty queue = %q, want 0", b)
	}

	if _, err := c.Write([]byte("hello ")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := c.Write([]byte("world")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := c.Output(); got != "hello world" {
		t.Errorf("Output = %q", got)
	}
}

func TestTee(t *testing.T) {
	c := NewBufferConsole("x")
	var sb strings.Builder
	tee := Tee(c, &sb)
	if _, err := tee.Write([]byte("out")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if c.Output() != "out" || sb.String() != "out" {
		t.Errorf("tee wrote %q and %q, want both %q", c.Output(), sb.String(), "out")
	}
	if b := tee.Getc(); b != 'x' {
		t.Errorf("Getc = %q, want 'x'", b)
	}
}

func TestHostConsole(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	var sb strings.Builder
	c := NewHostConsole(int(r.Fd()), &sb)
	if b := c.Getc(); b != 0 {
		t.Errorf("Getc with no input = %q, want 0", b)
	}
	if _, err := w.Write([]byte("k")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if b := c.Getc(); b != 'k' {
		t.Errorf("Getc = %q, want 'k'", b)
	}
	if _, err := c.Write([]byte("printed")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if sb.String() != "printed" {
		t.Errorf("output = %q", sb.String())
	}
}
