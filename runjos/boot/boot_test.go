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

package boot

import (
	"context"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"jos.dev/jos/runjos/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	f := flag.NewFlagSet("test", flag.ContinueOnError)
	config.RegisterFlags(f)
	if err := f.Parse([]string{"--nenv=8", "--mem-pages=64"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	conf, err := config.NewFromFlags(f)
	if err != nil {
		t.Fatalf("NewFromFlags: %v", err)
	}
	return conf
}

func writeScenario(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runScenario(t *testing.T, sc *Scenario) (*Runner, error) {
	t.Helper()
	if err := sc.validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	r, err := NewRunner(testConfig(t), sc, nil)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	return r, r.Run(context.Background())
}

func ptr[T any](v T) *T {
	return &v
}

const pingYAML = `
envs:
  - name: parent
    priority: 1
steps:
  - {env: parent, call: exofork, save: child, expect: {outcome: returned}}
  - {env: parent, call: env_set_status, args: [$child, RUNNABLE], expect: {err: OK}}
  - {env: child, call: ipc_recv, args: [0xEEC00000], expect: {outcome: blocked, next: parent}}
  - {env: parent, call: ipc_try_send, args: [$child, 42, 0xEEC00000, 0], expect: {ret: 0}}
expect:
  status: {parent: RUNNABLE, child: RUNNABLE}
`

func TestLoadScenarioYAML(t *testing.T) {
	sc, err := LoadScenario(writeScenario(t, "ping.yaml", pingYAML))
	if err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	want := &Scenario{
		Name: "ping",
		Envs: []EnvSpec{{Name: "parent", Priority: 1}},
		Steps: []Step{
			{Env: "parent", Call: "exofork", Save: "child", Expect: Expect{Outcome: "returned"}},
			{Env: "parent", Call: "env_set_status", Args: []Arg{"$child", "RUNNABLE"}, Expect: Expect{Err: "OK"}},
			{Env: "child", Call: "ipc_recv", Args: []Arg{"0xEEC00000"}, Expect: Expect{Outcome: "blocked", Next: "parent"}},
			{Env: "parent", Call: "ipc_try_send", Args: []Arg{"$child", "42", "0xEEC00000", "0"}, Expect: Expect{Ret: ptr[int32](0)}},
		},
		Expect: Final{Status: map[string]string{"parent": "RUNNABLE", "child": "RUNNABLE"}},
	}
	if diff := cmp.Diff(want, sc); diff != "" {
		t.Errorf("LoadScenario mismatch (-want +got):\n%s", diff)
	}

	r, err := NewRunner(testConfig(t), sc, nil)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	if err := r.Run(context.Background()); err != nil {
		t.Errorf("Run: %v", err)
	}
}

func TestLoadScenarioTOML(t *testing.T) {
	path := writeScenario(t, "console.toml", `
name = "console"
input = "x"

[[envs]]
name = "a"

[[steps]]
env = "a"
call = "page_alloc"
args = [0, 0x800000, "U|W|P"]

[[steps]]
env = "a"
[steps.write]
env = "a"
addr = "0x800000"
data = "hello"

[[steps]]
env = "a"
call = "cputs"
args = ["0x800000", 5]
expect = { err = "OK" }

[[steps]]
env = "a"
call = "cgetc"
expect = { ret = 120 }

[expect]
console = "hello"
memory = [{ env = "a", addr = "0x800000", data = "hello" }]
`)
	sc, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	if want := []Arg{"0", "8388608", "U|W|P"}; !cmp.Equal(sc.Steps[0].Args, want) {
		t.Errorf("page_alloc args = %q, want %q", sc.Steps[0].Args, want)
	}
	r, err := NewRunner(testConfig(t), sc, nil)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	if err := r.Run(context.Background()); err != nil {
		t.Errorf("Run: %v", err)
	}
	if got, want := r.Console(), "hello"; got != want {
		t.Errorf("Console() = %q, want %q", got, want)
	}
}

func TestLoadScenarioErrors(t *testing.T) {
	for _, tc := range []struct {
		name    string
		file    string
		content string
		err     string
	}{
		{name: "unknown yaml field", file: "s.yaml", content: "envs: [{name: a, prio: 1}]\n", err: "prio"},
		{name: "unknown toml key", file: "s.toml", content: "[[envs]]\nname = \"a\"\nprio = 1\n", err: "unknown keys"},
		{name: "extension", file: "s.json", content: "{}", err: "unknown format"},
		{name: "duplicate env", file: "s.yaml", content: "envs: [{name: a}, {name: a}]\n", err: "declared twice"},
		{name: "two actions", file: "s.yaml", content: "steps: [{env: a, call: yield, fault: 0x10}]\n", err: "exactly one"},
		{name: "no action", file: "s.yaml", content: "steps: [{env: a}]\n", err: "exactly one"},
		{name: "nested parallel", file: "s.yaml", content: "steps: [{parallel: [{parallel: [{env: a, call: yield}]}]}]\n", err: "only calls"},
		{name: "succeed on call", file: "s.yaml", content: "steps: [{env: a, call: yield, succeed: 1}]\n", err: "succeed"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tc.file, tc.content))
			if err == nil || !strings.Contains(err.Error(), tc.err) {
				t.Errorf("LoadScenario got error: %v, want error containing %q", err, tc.err)
			}
		})
	}
}

func TestFaultDestroys(t *testing.T) {
	r, err := runScenario(t, &Scenario{
		Name: "fault",
		Envs: []EnvSpec{{Name: "a"}},
		Steps: []Step{
			{Env: "a", Call: "page_alloc", Args: []Arg{"0", "0x800000", "U|W|P"}, Expect: Expect{Err: "OK"}},
			{Env: "a", Fault: "0x1000", Args: []Arg{"4"}, Expect: Expect{Outcome: "destroyed", Next: "idle"}},
		},
		Expect: Final{
			Status: map[string]string{"a": "ENV_FREE"},
			// Everything but the kernel directory, its UENVS table and
			// the environment records is free again.
			FreeFrames: ptr[uint32](61),
		},
	})
	if err != nil {
		t.Errorf("Run: %v", err)
	}
	if got := len(r.Kernel().Summaries()); got != 0 {
		t.Errorf("%d environments left, want 0", got)
	}
}

func TestParallelSenders(t *testing.T) {
	for iter := 0; iter < 10; iter++ {
		_, err := runScenario(t, &Scenario{
			Name: "senders",
			Envs: []EnvSpec{{Name: "r"}, {Name: "a"}, {Name: "b"}},
			Steps: []Step{
				{Env: "r", Call: "ipc_recv", Args: []Arg{"0xEEC00000"}, Expect: Expect{Outcome: "blocked"}},
				{
					Parallel: []Step{
						{Env: "a", Call: "ipc_try_send", Args: []Arg{"$r", "1", "0xEEC00000", "0"}, Expect: Expect{Err: "OK|E_IPC_NOT_RECV"}},
						{Env: "b", Call: "ipc_try_send", Args: []Arg{"$r", "2", "0xEEC00000", "0"}, Expect: Expect{Err: "OK|E_IPC_NOT_RECV"}},
					},
					Succeed: ptr(1),
				},
			},
			Expect: Final{Status: map[string]string{"r": "RUNNABLE"}},
		})
		if err != nil {
			t.Fatalf("iteration %d: %v", iter, err)
		}
	}
}

func TestRunFailures(t *testing.T) {
	for _, tc := range []struct {
		name  string
		steps []Step
		final Final
		err   string
	}{
		{
			name:  "wrong error",
			steps: []Step{{Env: "a", Call: "env_destroy", Args: []Arg{"0x7777"}, Expect: Expect{Err: "E_INVAL"}}},
			err:   "E_BAD_ENV",
		},
		{
			name:  "wrong outcome",
			steps: []Step{{Env: "a", Call: "yield", Expect: Expect{Outcome: "blocked"}}},
			err:   "outcome yielded",
		},
		{
			name:  "unknown environment",
			steps: []Step{{Env: "nobody", Call: "yield"}},
			err:   "unknown environment",
		},
		{
			name:  "undefined reference",
			steps: []Step{{Env: "a", Call: "env_destroy", Args: []Arg{"$later"}}},
			err:   "undefined reference",
		},
		{
			name:  "bad argument",
			steps: []Step{{Env: "a", Call: "page_alloc", Args: []Arg{"0", "0x800000", "U|X"}}},
			err:   "invalid argument",
		},
		{
			name:  "unknown syscall",
			steps: []Step{{Env: "a", Call: "fork"}},
			err:   "unknown syscall",
		},
		{
			name:  "destroyed caller",
			steps: []Step{{Env: "a", Call: "env_destroy", Args: []Arg{"0"}, Expect: Expect{Outcome: "exited"}}, {Env: "a", Call: "yield"}},
			err:   "environment not found",
		},
		{
			name:  "unmapped write",
			steps: []Step{{Env: "a", Write: &Memory{Env: "a", Addr: "0x800000", Data: "x"}}},
			err:   "writing 1 bytes",
		},
		{
			name:  "console",
			final: Final{Console: ptr("hi")},
			err:   "console output",
		},
		{
			name:  "fault has no return",
			steps: []Step{{Env: "a", Fault: "0x10", Expect: Expect{Err: "OK"}}},
			err:   "no return value",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := runScenario(t, &Scenario{
				Name:   tc.name,
				Envs:   []EnvSpec{{Name: "a"}},
				Steps:  tc.steps,
				Expect: tc.final,
			})
			if err == nil || !strings.Contains(err.Error(), tc.err) {
				t.Errorf("Run got error: %v, want error containing %q", err, tc.err)
			}
		})
	}
}

func TestRunCanceled(t *testing.T) {
	sc := &Scenario{
		Name:  "canceled",
		Envs:  []EnvSpec{{Name: "a"}},
		Steps: []Step{{Env: "a", Call: "yield"}},
	}
	r, err := NewRunner(testConfig(t), sc, nil)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v, want %v", err, context.Canceled)
	}
}

func TestValue(t *testing.T) {
	r := &Runner{vars: map[string]uint32{"x": 0x1001}}
	for _, tc := range []struct {
		arg  Arg
		want uint32
	}{
		{"16", 16},
		{"0x10", 16},
		{" 0xEEC00000 ", 0xEEC00000},
		{"-3", 0xFFFFFFFD},
		{"$x", 0x1001},
		{"RUNNABLE", 2},
		{"ENV_NOT_RUNNABLE", 3},
		{"U|W|P", 7},
		{"PTE_U | PTE_P", 5},
		{"AVAIL", 0xE00},
	} {
		got, err := r.value(tc.arg)
		if err != nil {
			t.Errorf("value(%q) failed: %v", tc.arg, err)
			continue
		}
		if got != tc.want {
			t.Errorf("value(%q) = %#x, want %#x", tc.arg, got, tc.want)
		}
	}
	for _, arg := range []Arg{"$y", "0x100000000", "banana", ""} {
		if got, err := r.value(arg); err == nil {
			t.Errorf("value(%q) = %#x, want error", arg, got)
		}
	}
}

func TestTestdata(t *testing.T) {
	paths, err := filepath.Glob("testdata/*")
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) == 0 {
		t.Fatal("no scenarios in testdata")
	}
	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			sc, err := LoadScenario(path)
			if err != nil {
				t.Fatalf("LoadScenario: %v", err)
			}
			r, err := NewRunner(testConfig(t), sc, nil)
			if err != nil {
				t.Fatalf("NewRunner: %v", err)
			}
			if err := r.Run(context.Background()); err != nil {
				t.Errorf("Run: %v", err)
			}
		})
	}
}
