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

// Package boot builds a kernel from the runjos configuration and drives
// it through scenarios.
package boot

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync/atomic"

	"jos.dev/jos/pkg/abi/jos"
	"jos.dev/jos/pkg/abi/jos/errno"
	"jos.dev/jos/pkg/hostarch"
	"jos.dev/jos/pkg/log"
	"jos.dev/jos/pkg/sentry/arch"
	"jos.dev/jos/pkg/sentry/devices/consdev"
	"jos.dev/jos/pkg/sentry/kernel"
	sjos "jos.dev/jos/pkg/sentry/syscalls/jos"
	"jos.dev/jos/pkg/sync"
	"jos.dev/jos/runjos/config"
)

// NewKernel creates a kernel configured by conf, dispatching the JOS
// syscall table.
func NewKernel(conf *config.Config, console consdev.Console) (*kernel.Kernel, error) {
	k, err := kernel.NewKernel(kernel.InitKernelArgs{
		NumEnvs:          uint32(conf.NumEnvs),
		MemPages:         uint32(conf.MemPages),
		Console:          console,
		SyscallTable:     sjos.JOS,
		Strace:           conf.Strace,
		FaultLogInterval: conf.FaultLogInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("creating kernel: %w", err)
	}
	return k, nil
}

// Runner executes a scenario against its own kernel.
type Runner struct {
	k       *kernel.Kernel
	console *consdev.BufferConsole
	sc      *Scenario
	log     log.Logger

	// mu protects vars, which may be saved by parallel steps.
	mu   sync.Mutex
	vars map[string]uint32
}

// NewRunner boots a kernel for sc and creates its environments. Console
// output is also copied to out, if not nil.
func NewRunner(conf *config.Config, sc *Scenario, out io.Writer) (*Runner, error) {
	r := &Runner{
		console: consdev.NewBufferConsole(sc.Input),
		sc:      sc,
		log:     log.Prefixed(log.Log(), fmt.Sprintf("Scenario %q: ", sc.Name)),
		vars:    make(map[string]uint32),
	}
	var console consdev.Console = r.console
	if out != nil {
		console = consdev.Tee(r.console, out)
	}
	k, err := NewKernel(conf, console)
	if err != nil {
		return nil, err
	}
	r.k = k
	for _, es := range sc.Envs {
		e, err := k.CreateEnv(es.Name, es.Priority)
		if err != nil {
			return nil, fmt.Errorf("creating environment %q: %w", es.Name, err)
		}
		r.vars[es.Name] = uint32(e.ID())
	}
	return r, nil
}

// Kernel returns the kernel the scenario runs on.
func (r *Runner) Kernel() *kernel.Kernel {
	return r.k
}

// Console returns everything written to the console so far.
func (r *Runner) Console() string {
	return r.console.Output()
}

// Run executes every step, then checks the final expectations. It stops
// at the first failed step or when ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	r.log.Infof("%d environments, %d steps", len(r.sc.Envs), len(r.sc.Steps))
	for i := range r.sc.Steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("scenario %q stopped before step %d: %w", r.sc.Name, i, err)
		}
		if err := r.step(ctx, &r.sc.Steps[i]); err != nil {
			return fmt.Errorf("scenario %q step %d: %w", r.sc.Name, i, err)
		}
	}
	if err := r.checkFinal(); err != nil {
		return fmt.Errorf("scenario %q: %w", r.sc.Name, err)
	}
	r.log.Infof("passed")
	return nil
}

func (r *Runner) step(ctx context.Context, s *Step) error {
	kind, err := s.kind()
	if err != nil {
		return err
	}
	switch kind {
	case "call":
		_, err := r.call(s)
		return err
	case "fault":
		return r.fault(s)
	case "write":
		return r.write(s.Write)
	case "parallel":
		return r.parallel(ctx, s)
	default:
		panic(fmt.Sprintf("unknown step kind %q", kind))
	}
}

// call issues a syscall. It reports whether the syscall succeeded.
func (r *Runner) call(s *Step) (bool, error) {
	id, err := r.env(s.Env)
	if err != nil {
		return false, err
	}
	sysno, err := r.sysno(s.Call)
	if err != nil {
		return false, err
	}
	var args arch.SyscallArguments
	if len(s.Args) > len(args) {
		return false, fmt.Errorf("%s: %d arguments, at most %d allowed", s.Call, len(s.Args), len(args))
	}
	for i, a := range s.Args {
		v, err := r.value(a)
		if err != nil {
			return false, fmt.Errorf("%s argument %d: %w", s.Call, i, err)
		}
		args[i].Value = uintptr(v)
	}

	res, err := r.k.Syscall(id, sysno, args)
	if err != nil {
		return false, err
	}
	r.log.Debugf("%s %s%v = %d (%v)", s.Env, s.Call, s.Args, res.Ret, res.Outcome)
	if s.Save != "" {
		r.save(s.Save, uint32(res.Ret))
	}
	if err := r.check(&s.Expect, res.Outcome.String(), &res); err != nil {
		return false, fmt.Errorf("%s %s%v: %w", s.Env, s.Call, s.Args, err)
	}
	return res.Ret >= 0, nil
}

func (r *Runner) fault(s *Step) error {
	id, err := r.env(s.Env)
	if err != nil {
		return err
	}
	va, err := r.value(s.Fault)
	if err != nil {
		return fmt.Errorf("fault address: %w", err)
	}
	var ec uint32
	if len(s.Args) > 0 {
		if ec, err = r.value(s.Args[0]); err != nil {
			return fmt.Errorf("fault error code: %w", err)
		}
	}
	delivered, err := r.k.PageFault(id, hostarch.Addr(va), ec)
	if err != nil {
		return err
	}
	outcome := "destroyed"
	if delivered {
		outcome = "upcall"
	}
	if err := r.check(&s.Expect, outcome, nil); err != nil {
		return fmt.Errorf("%s fault at %#x: %w", s.Env, va, err)
	}
	return nil
}

func (r *Runner) write(m *Memory) error {
	id, err := r.env(m.Env)
	if err != nil {
		return err
	}
	addr, err := r.value(m.Addr)
	if err != nil {
		return fmt.Errorf("write address: %w", err)
	}
	if err := r.k.WriteMemory(id, hostarch.Addr(addr), []byte(m.Data)); err != nil {
		return fmt.Errorf("writing %d bytes at %#x in %s: %w", len(m.Data), addr, m.Env, err)
	}
	return nil
}

// parallel issues the calls of s from one goroutine each. The kernel
// serializes them in an unspecified order.
func (r *Runner) parallel(ctx context.Context, s *Step) error {
	var (
		wg        sync.WaitGroupErr
		succeeded atomic.Int32
	)
	for i := range s.Parallel {
		sub := &s.Parallel[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				wg.ReportError(err)
				return
			}
			ok, err := r.call(sub)
			if err != nil {
				wg.ReportError(fmt.Errorf("parallel call %d: %w", i, err))
				return
			}
			if ok {
				succeeded.Add(1)
			}
		}()
	}
	if err := wg.Error(); err != nil {
		return err
	}
	if s.Succeed != nil && int(succeeded.Load()) != *s.Succeed {
		return fmt.Errorf("%d of %d parallel calls succeeded, want %d", succeeded.Load(), len(s.Parallel), *s.Succeed)
	}
	return nil
}

// check compares a step result against e. res is nil for faults.
func (r *Runner) check(e *Expect, outcome string, res *kernel.SyscallResult) error {
	if e.Outcome != "" && e.Outcome != outcome {
		return fmt.Errorf("outcome %s, want %s", outcome, e.Outcome)
	}
	if res != nil {
		if e.Ret != nil && *e.Ret != res.Ret {
			return fmt.Errorf("returned %d, want %d", res.Ret, *e.Ret)
		}
		if e.Err != "" {
			got := errName(res.Ret)
			if !matchAny(e.Err, got) {
				return fmt.Errorf("returned %d (%s), want %s", res.Ret, got, e.Err)
			}
		}
	} else if e.Ret != nil || e.Err != "" {
		return fmt.Errorf("faults have no return value")
	}
	if e.Next != "" {
		want := "idle"
		if e.Next != "idle" {
			id, err := r.env(e.Next)
			if err != nil {
				return err
			}
			want = id.String()
		}
		got := "idle"
		if next := r.next(res); next != 0 {
			got = next.String()
		}
		if got != want {
			return fmt.Errorf("%s runs next, want %s (%s)", got, e.Next, want)
		}
	}
	return nil
}

// next returns the environment owning the CPU after a step, or 0 if idle.
func (r *Runner) next(res *kernel.SyscallResult) kernel.EnvID {
	if res != nil {
		return res.Next
	}
	for _, s := range r.k.Summaries() {
		if s.Current {
			return s.ID
		}
	}
	return 0
}

func (r *Runner) checkFinal() error {
	f := &r.sc.Expect
	if f.Console != nil {
		if got := r.Console(); got != *f.Console {
			return fmt.Errorf("console output %q, want %q", got, *f.Console)
		}
	}
	if len(f.Status) > 0 {
		status := make(map[kernel.EnvID]jos.EnvStatus)
		for _, s := range r.k.Summaries() {
			status[s.ID] = s.Status
		}
		for name, want := range f.Status {
			id, err := r.env(name)
			if err != nil {
				return err
			}
			got, ok := status[id]
			if !ok {
				got = jos.ENV_FREE
			}
			if got.String() != strings.ToUpper(strings.TrimPrefix(want, "ENV_")) {
				return fmt.Errorf("environment %s is %v, want %s", name, got, want)
			}
		}
	}
	for _, m := range f.Memory {
		id, err := r.env(m.Env)
		if err != nil {
			return err
		}
		addr, err := r.value(m.Addr)
		if err != nil {
			return err
		}
		got, err := r.k.ReadMemory(id, hostarch.Addr(addr), len(m.Data))
		if err != nil {
			return fmt.Errorf("reading %s memory at %#x: %w", m.Env, addr, err)
		}
		if string(got) != m.Data {
			return fmt.Errorf("%s memory at %#x is %q, want %q", m.Env, addr, got, m.Data)
		}
	}
	if f.FreeFrames != nil {
		if got := r.k.MemoryFile().FreeFrames(); got != *f.FreeFrames {
			return fmt.Errorf("%d free frames, want %d", got, *f.FreeFrames)
		}
	}
	return nil
}

func (r *Runner) save(name string, v uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vars[strings.TrimPrefix(name, "$")] = v
}

func (r *Runner) lookup(name string) (uint32, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vars[name]
	return v, ok
}

// env resolves the name of an environment.
func (r *Runner) env(name string) (kernel.EnvID, error) {
	if name == "" {
		return 0, fmt.Errorf("no environment given")
	}
	v, ok := r.lookup(strings.TrimPrefix(name, "$"))
	if !ok {
		return 0, fmt.Errorf("unknown environment %q", name)
	}
	return kernel.EnvID(v), nil
}

// sysno resolves a syscall name or number.
func (r *Runner) sysno(call string) (uintptr, error) {
	if n, ok := jos.SyscallNumber(call); ok {
		return n, nil
	}
	n, err := strconv.ParseUint(call, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("unknown syscall %q", call)
	}
	return uintptr(n), nil
}

// value resolves an Arg.
func (r *Runner) value(a Arg) (uint32, error) {
	s := strings.TrimSpace(string(a))
	if name, ok := strings.CutPrefix(s, "$"); ok {
		v, ok := r.lookup(name)
		if !ok {
			return 0, fmt.Errorf("undefined reference %q", s)
		}
		return v, nil
	}
	if n, err := strconv.ParseInt(s, 0, 64); err == nil {
		if n < -1<<31 || n >= 1<<32 {
			return 0, fmt.Errorf("%q does not fit in a register", s)
		}
		return uint32(n), nil
	}
	if st, ok := parseStatus(s); ok {
		return uint32(st), nil
	}
	var perm jos.PTEFlags
	for _, f := range strings.Split(s, "|") {
		flag, err := jos.ParsePTEFlag(strings.TrimSpace(f))
		if err != nil {
			return 0, fmt.Errorf("invalid argument %q", s)
		}
		perm |= flag
	}
	return uint32(perm), nil
}

func parseStatus(s string) (jos.EnvStatus, bool) {
	name := strings.TrimPrefix(strings.ToUpper(s), "ENV_")
	for st := jos.ENV_FREE; st <= jos.ENV_NOT_RUNNABLE; st++ {
		if st.String() == name {
			return st, true
		}
	}
	return 0, false
}

// errName names the error encoded in a syscall result, or OK.
func errName(ret int32) string {
	if ret >= 0 {
		return "OK"
	}
	return errno.Errno(-ret).String()
}

func matchAny(alternatives, got string) bool {
	for _, a := range strings.Split(alternatives, "|") {
		if strings.TrimSpace(a) == got {
			return true
		}
	}
	return false
}
