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

package log

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

type testWriter struct {
	lines []string
	fail  bool
}

func (w *testWriter) Write(bytes []byte) (int, error) {
	if w.fail {
		return 0, fmt.Errorf("simulated failure")
	}
	w.lines = append(w.lines, string(bytes))
	return len(bytes), nil
}

// text returns everything written, which Writer may split over several
// writes.
func (w *testWriter) text() string {
	return strings.Join(w.lines, "")
}

func TestDropMessages(t *testing.T) {
	tw := &testWriter{}
	w := Writer{Next: tw}
	if _, err := w.Write([]byte("line 1\n")); err != nil {
		t.Fatalf("Write failed, err: %v", err)
	}

	tw.fail = true
	if _, err := w.Write([]byte("error\n")); err == nil {
		t.Fatalf("Write should have failed")
	}
	if _, err := w.Write([]byte("error\n")); err == nil {
		t.Fatalf("Write should have failed")
	}

	tw.fail = false
	if _, err := w.Write([]byte("line 2\n")); err != nil {
		t.Fatalf("Write failed, err: %v", err)
	}

	expected := []string{
		"line 1\n",
		"line 2\n",
		"\n*** Dropped 2 log messages ***\n",
	}
	if len(tw.lines) != len(expected) {
		t.Fatalf("Writer should have logged %d lines, got: %v, expected: %v", len(expected), tw.lines, expected)
	}
	for i, l := range tw.lines {
		if l != expected[i] {
			t.Fatalf("line %d doesn't match, got: %v, expected: %v", i, l, expected[i])
		}
	}
}

func TestNewlineAppended(t *testing.T) {
	tw := &testWriter{}
	w := Writer{Next: tw}
	if _, err := w.Write([]byte("no newline")); err != nil {
		t.Fatalf("Write failed, err: %v", err)
	}
	if got := strings.Join(tw.lines, ""); got != "no newline\n" {
		t.Errorf("got %q, want %q", got, "no newline\n")
	}
}

func TestLevelFilter(t *testing.T) {
	tw := &testWriter{}
	l := BasicLogger{Level: Info, Emitter: &Writer{Next: tw}}
	l.Debugf("hidden")
	l.Infof("shown %d", 1)
	l.Warningf("shown %d", 2)
	if got, want := tw.text(), "shown 1\nshown 2\n"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	l.SetLevel(Debug)
	l.Debugf("now shown")
	if got, want := tw.text(), "shown 1\nshown 2\nnow shown\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestPrefixed(t *testing.T) {
	tw := &testWriter{}
	l := Prefixed(&BasicLogger{Level: Debug, Emitter: &Writer{Next: tw}}, "[00001000] ")
	l.Infof("new env %08x", 0x1001)
	if got, want := tw.text(), "[00001000] new env 00001001\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRateLimited(t *testing.T) {
	tw := &testWriter{}
	rl := RateLimitedLogger(&BasicLogger{Level: Debug, Emitter: &Writer{Next: tw}}, time.Hour)
	for i := 0; i < 10; i++ {
		rl.Warningf("fault %d", i)
	}
	if got, want := tw.text(), "fault 0\n"; got != want {
		t.Errorf("rate limited logger emitted %q, want %q", got, want)
	}

	// Refill the bucket so the next statement reports what was dropped.
	rl.(*rateLimitedLogger).limit.SetLimit(rate.Inf)
	rl.Infof("fault %d", 10)
	if got, want := tw.text(), "fault 0\nfault 10 (9 similar messages suppressed)\n"; got != want {
		t.Errorf("rate limited logger emitted %q, want %q", got, want)
	}
}

func TestGoogleEmitterFormat(t *testing.T) {
	tw := &testWriter{}
	e := GoogleEmitter{&Writer{Next: tw}}
	ts := time.Date(2024, time.May, 3, 4, 5, 6, 7000, time.UTC)
	e.Emit(0, Warning, ts, "hello %s", "world")
	if len(tw.lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(tw.lines))
	}
	line := tw.lines[0]
	if !strings.HasPrefix(line, "W0503 04:05:06.000007 ") {
		t.Errorf("unexpected header in %q", line)
	}
	if !strings.HasSuffix(line, "] hello world\n") {
		t.Errorf("unexpected message in %q", line)
	}
}
