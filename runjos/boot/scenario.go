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
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Scenario is a scripted run of the kernel. Environments are created up
// front and then act only through syscalls and page faults.
//
//	name: ping
//	envs:
//	  - name: parent
//	steps:
//	  - {env: parent, call: exofork, save: child}
//	  - {env: child, call: ipc_recv, args: [0], expect: {outcome: blocked}}
//	  - {env: parent, call: ipc_try_send, args: [$child, 42, 0, 0], expect: {err: OK}}
//	expect:
//	  status: {child: RUNNABLE}
type Scenario struct {
	// Name identifies the scenario in logs.
	Name string `yaml:"name" toml:"name"`

	// Input is queued on the console for cgetc.
	Input string `yaml:"input" toml:"input"`

	// Envs are created, RUNNABLE, before the first step.
	Envs []EnvSpec `yaml:"envs" toml:"envs"`

	// Steps are executed in order.
	Steps []Step `yaml:"steps" toml:"steps"`

	// Expect is checked after the last step.
	Expect Final `yaml:"expect" toml:"expect"`
}

// EnvSpec describes an environment created by the boot loader.
type EnvSpec struct {
	Name     string `yaml:"name" toml:"name"`
	Priority int32  `yaml:"priority" toml:"priority"`
}

// Arg is a syscall argument or address. It is an integer literal in any
// base accepted by strconv.ParseUint, a reference "$name" to a saved
// value, an environment status such as RUNNABLE, or PTE flags such as
// "U|W|P".
type Arg string

// UnmarshalText implements encoding.TextUnmarshaler, so that arguments
// may be written unquoted in both YAML and TOML.
func (a *Arg) UnmarshalText(b []byte) error {
	*a = Arg(b)
	return nil
}

// Step is one action by an environment. Exactly one of Call, Fault,
// Write and Parallel is set.
type Step struct {
	// Env names the acting environment: a declared environment or a
	// saved environment id.
	Env string `yaml:"env" toml:"env"`

	// Call is a syscall name or number.
	Call string `yaml:"call" toml:"call"`

	// Args are the syscall arguments. For a fault, the optional first
	// argument is the error code.
	Args []Arg `yaml:"args" toml:"args"`

	// Fault is the faulting address of a user page fault.
	Fault Arg `yaml:"fault" toml:"fault"`

	// Write stores bytes in the environment's memory, as a loader would.
	Write *Memory `yaml:"write" toml:"write"`

	// Parallel steps are issued concurrently from separate goroutines.
	Parallel []Step `yaml:"parallel" toml:"parallel"`

	// Succeed is the number of parallel steps that must succeed.
	Succeed *int `yaml:"succeed" toml:"succeed"`

	// Save names the syscall result for later "$name" references.
	Save string `yaml:"save" toml:"save"`

	// Expect is checked against the result.
	Expect Expect `yaml:"expect" toml:"expect"`
}

// kind returns the kind of action s performs.
func (s *Step) kind() (string, error) {
	var kinds []string
	if s.Call != "" {
		kinds = append(kinds, "call")
	}
	if s.Fault != "" {
		kinds = append(kinds, "fault")
	}
	if s.Write != nil {
		kinds = append(kinds, "write")
	}
	if len(s.Parallel) > 0 {
		kinds = append(kinds, "parallel")
	}
	if len(kinds) != 1 {
		return "", fmt.Errorf("step must have exactly one of call, fault, write or parallel, has %v", kinds)
	}
	return kinds[0], nil
}

// Expect describes the expected result of a step.
type Expect struct {
	// Outcome is how control left the call: returned, yielded, blocked
	// or exited. For a fault it is upcall or destroyed.
	Outcome string `yaml:"outcome" toml:"outcome"`

	// Ret is the exact value of EAX.
	Ret *int32 `yaml:"ret" toml:"ret"`

	// Err is OK for a non-negative result or an errno name such as
	// E_BAD_ENV. Alternatives are separated by '|'.
	Err string `yaml:"err" toml:"err"`

	// Next names the environment owning the CPU afterwards, or "idle".
	Next string `yaml:"next" toml:"next"`
}

// Memory is a range of environment memory.
type Memory struct {
	Env  string `yaml:"env" toml:"env"`
	Addr Arg    `yaml:"addr" toml:"addr"`
	Data string `yaml:"data" toml:"data"`
}

// Final holds the expectations checked after the last step.
type Final struct {
	// Console is the complete console output.
	Console *string `yaml:"console" toml:"console"`

	// Status maps environment names to their status. Destroyed
	// environments are FREE.
	Status map[string]string `yaml:"status" toml:"status"`

	// Memory ranges must hold the given data.
	Memory []Memory `yaml:"memory" toml:"memory"`

	// FreeFrames is the number of free physical frames.
	FreeFrames *uint32 `yaml:"free_frames" toml:"free_frames"`
}

// LoadScenario reads a scenario from a .yaml, .yml or .toml file. Unknown
// keys are errors.
func LoadScenario(path string) (*Scenario, error) {
	var sc Scenario
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("unable to open scenario: %w", err)
		}
		defer f.Close()
		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		if err := dec.Decode(&sc); err != nil {
			return nil, fmt.Errorf("unable to decode %q: %w", path, err)
		}
	case ".toml":
		md, err := toml.DecodeFile(path, &sc)
		if err != nil {
			return nil, fmt.Errorf("unable to decode %q: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, k := range undecoded {
				keys = append(keys, k.String())
			}
			sort.Strings(keys)
			return nil, fmt.Errorf("unable to decode %q: unknown keys %s", path, strings.Join(keys, ", "))
		}
	default:
		return nil, fmt.Errorf("scenario %q: unknown format %q, want .yaml, .yml or .toml", path, ext)
	}
	if sc.Name == "" {
		sc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := sc.validate(); err != nil {
		return nil, fmt.Errorf("scenario %q: %w", path, err)
	}
	return &sc, nil
}

// validate checks the structure of sc. Names are resolved when the
// scenario runs.
func (sc *Scenario) validate() error {
	seen := make(map[string]bool)
	for _, e := range sc.Envs {
		if e.Name == "" || strings.HasPrefix(e.Name, "$") {
			return fmt.Errorf("invalid environment name %q", e.Name)
		}
		if seen[e.Name] {
			return fmt.Errorf("environment %q declared twice", e.Name)
		}
		seen[e.Name] = true
	}
	for i := range sc.Steps {
		s := &sc.Steps[i]
		kind, err := s.kind()
		if err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
		if kind != "parallel" {
			if s.Succeed != nil {
				return fmt.Errorf("step %d: succeed is only valid for parallel steps", i)
			}
			continue
		}
		if s.Env != "" || s.Save != "" || s.Expect != (Expect{}) {
			return fmt.Errorf("step %d: parallel steps take no env, save or expect", i)
		}
		for j := range s.Parallel {
			sub := &s.Parallel[j]
			kind, err := sub.kind()
			if err != nil {
				return fmt.Errorf("step %d.%d: %w", i, j, err)
			}
			if kind != "call" {
				return fmt.Errorf("step %d.%d: only calls may run in parallel", i, j)
			}
		}
	}
	return nil
}
