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

// Package kernel is the core of the JOS kernel: the environment table,
// environment lifecycle, the IPC rendezvous, the scheduler and syscall
// dispatch.
//
// A Kernel is the single context object that owns all kernel state. The
// kernel models one CPU: every entry point takes Kernel.mu, so exactly one
// environment executes kernel code at a time and syscalls are never
// partially applied when observed by other environments. Syscalls may be
// issued from several goroutines; they are serialized in lock order.
package kernel

import (
	"fmt"
	"math/bits"
	"time"

	"jos.dev/jos/pkg/abi/jos"
	"jos.dev/jos/pkg/bitmap"
	"jos.dev/jos/pkg/errors/joserr"
	"jos.dev/jos/pkg/hostarch"
	"jos.dev/jos/pkg/log"
	"jos.dev/jos/pkg/ring0/pagetables"
	"jos.dev/jos/pkg/sentry/arch"
	"jos.dev/jos/pkg/sentry/devices/consdev"
	"jos.dev/jos/pkg/sentry/mm"
	"jos.dev/jos/pkg/sentry/pgalloc"
	"jos.dev/jos/pkg/sync"
)

// InitKernelArgs holds arguments to NewKernel.
type InitKernelArgs struct {
	// NumEnvs is the size of the environment table. It must be a power of
	// two no larger than 1<<jos.ENVGENSHIFT. Zero selects jos.NENV.
	NumEnvs uint32

	// MemPages is the number of physical frames.
	MemPages uint32

	// Console is the kernel console. Nil selects an empty BufferConsole.
	Console consdev.Console

	// SyscallTable dispatches syscalls.
	SyscallTable *SyscallTable

	// Strace logs every syscall and its result.
	Strace bool

	// FaultLogInterval limits how often fault and destruction messages
	// caused by misbehaving environments are logged. Zero logs all.
	FaultLogInterval time.Duration
}

// Kernel is the kernel context.
type Kernel struct {
	// mu is the kernel lock.
	mu sync.Mutex

	// envs is the environment table. Slots are never reallocated, so
	// pointers to them are stable.
	envs []Env

	// used has a bit set for every slot that is not FREE.
	used bitmap.Bitmap

	// curenv is the environment that owns the CPU, or nil when idle.
	curenv *Env

	mf         *pgalloc.MemoryFile
	kernTables *pagetables.PageTables

	// envInfo are the frames mapped read-only at UENVS.
	envInfo []pgalloc.FrameNumber

	// dirty marks slots whose UENVS record is out of date.
	dirty bitmap.Bitmap

	console consdev.Console
	table   *SyscallTable
	strace  bool

	log      log.Logger
	faultLog log.Logger
}

// NewKernel creates a kernel with an empty environment table and maps the
// environment records at UENVS in the kernel template.
func NewKernel(args InitKernelArgs) (*Kernel, error) {
	nenv := args.NumEnvs
	if nenv == 0 {
		nenv = jos.NENV
	}
	if bits.OnesCount32(nenv) != 1 || nenv > 1<<jos.ENVGENSHIFT {
		return nil, fmt.Errorf("environment table size %d is not a power of two no larger than %d", nenv, 1<<jos.ENVGENSHIFT)
	}
	if args.SyscallTable == nil {
		return nil, fmt.Errorf("no syscall table")
	}

	infoPages := (nenv*jos.EnvInfoSize + hostarch.PageSize - 1) / hostarch.PageSize
	// The kernel directory and the table covering UENVS.
	if need := infoPages + 2; args.MemPages < need {
		return nil, fmt.Errorf("%d physical pages cannot hold the kernel, need at least %d", args.MemPages, need)
	}
	mf, err := pgalloc.NewMemoryFile(args.MemPages)
	if err != nil {
		return nil, err
	}
	kern, err := mm.NewKernelTables(mf)
	if err != nil {
		return nil, fmt.Errorf("allocating kernel page directory: %w", err)
	}

	k := &Kernel{
		envs:       make([]Env, nenv),
		used:       bitmap.New(nenv),
		dirty:      bitmap.New(nenv),
		mf:         mf,
		kernTables: kern,
		console:    args.Console,
		table:      args.SyscallTable,
		strace:     args.Strace,
		log:        log.Log(),
		faultLog:   log.Log(),
	}
	if k.console == nil {
		k.console = consdev.NewBufferConsole("")
	}
	if args.FaultLogInterval > 0 {
		k.faultLog = log.RateLimitedLogger(log.Log(), args.FaultLogInterval)
	}
	for i := range k.envs {
		k.envs[i].k = k
		k.envs[i].slot = uint32(i)
	}

	for i := uint32(0); i < infoPages; i++ {
		fn, err := mf.Allocate(pgalloc.AllocOpts{Zero: true})
		if err != nil {
			return nil, fmt.Errorf("allocating environment records: %w", err)
		}
		kern.MustInsert(hostarch.Addr(jos.UENVS+i*hostarch.PageSize), uint32(fn), jos.PTE_U)
		k.envInfo = append(k.envInfo, fn)
	}
	return k, nil
}

// NumEnvs returns the size of the environment table.
func (k *Kernel) NumEnvs() uint32 {
	return uint32(len(k.envs))
}

// MemoryFile returns physical memory.
func (k *Kernel) MemoryFile() *pgalloc.MemoryFile {
	return k.mf
}

// Console returns the kernel console.
func (k *Kernel) Console() consdev.Console {
	return k.console
}

// SyscallTable returns the syscall table.
func (k *Kernel) SyscallTable() *SyscallTable {
	return k.table
}

// Current returns the environment that owns the CPU, or nil if idle.
func (k *Kernel) Current() *Env {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.curenv
}

// Envs returns every environment that is not FREE, in slot order.
func (k *Kernel) Envs() []*Env {
	k.mu.Lock()
	defer k.mu.Unlock()
	var es []*Env
	k.used.ForEach(0, k.used.Size(), func(i uint32) bool {
		es = append(es, &k.envs[i])
		return true
	})
	return es
}

// Lookup returns the live environment with the given id, without
// permission checks.
func (k *Kernel) Lookup(id EnvID) (*Env, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if id == 0 {
		return nil, joserr.EBadEnv
	}
	return k.lookupLocked(id, nil, false)
}

// lookupLocked converts an id to an environment. Id 0 is the caller. If
// checked is set, the target must be the caller or one of its immediate
// children.
//
// Preconditions: k.mu is held.
func (k *Kernel) lookupLocked(id EnvID, caller *Env, checked bool) (*Env, error) {
	if id == 0 {
		if caller == nil {
			return nil, joserr.EBadEnv
		}
		return caller, nil
	}
	e := &k.envs[uint32(id)&(uint32(len(k.envs))-1)]
	if e.status == jos.ENV_FREE || e.id != id {
		return nil, joserr.EBadEnv
	}
	if checked && e != caller && e.parentID != caller.id {
		return nil, joserr.EBadEnv
	}
	return e, nil
}

// LookupChecked is the permission-checked lookup used by the environment
// syscalls: id must name caller or a direct child of caller.
//
// Preconditions: k.mu is held, as it is in syscall handlers.
func (k *Kernel) LookupChecked(id EnvID, caller *Env) (*Env, error) {
	return k.lookupLocked(id, caller, true)
}

// LookupUnchecked resolves id without permission checks.
//
// Preconditions: k.mu is held, as it is in syscall handlers.
func (k *Kernel) LookupUnchecked(id EnvID, caller *Env) (*Env, error) {
	return k.lookupLocked(id, caller, false)
}

// allocEnvLocked takes a free slot and gives it a fresh address space and
// an initial user register state. The environment starts RUNNABLE.
//
// Preconditions: k.mu is held.
func (k *Kernel) allocEnvLocked(parent EnvID) (*Env, error) {
	slot, ok := k.used.FirstZero(0)
	if !ok {
		return nil, joserr.ENoFreeEnv
	}
	e := &k.envs[slot]

	as, err := mm.NewMemoryManager(k.mf, k.kernTables)
	if err != nil {
		return nil, joserr.ENoMem
	}

	nenv := int32(len(k.envs))
	generation := (int32(e.id) + 1<<jos.ENVGENSHIFT) &^ (nenv - 1)
	if generation <= 0 {
		// Don't create a negative id.
		generation = 1 << jos.ENVGENSHIFT
	}

	*e = Env{
		k:        k,
		slot:     slot,
		id:       EnvID(generation | int32(slot)),
		parentID: parent,
		status:   jos.ENV_RUNNABLE,
		tf:       arch.NewUserTrapFrame(jos.UTEXT, jos.USTACKTOP),
		mm:       as,
	}
	k.used.Add(slot)
	k.markDirtyLocked(e)

	var curid EnvID
	if k.curenv != nil {
		curid = k.curenv.id
	}
	k.log.Infof("[%v] new env %v", curid, e.id)
	envsCreated.Increment()
	return e, nil
}

// freeEnvLocked releases e's address space and returns its slot.
//
// Preconditions: k.mu is held.
func (k *Kernel) freeEnvLocked(e *Env) {
	var curid EnvID
	if k.curenv != nil {
		curid = k.curenv.id
	}
	k.faultLog.Infof("[%v] free env %v", curid, e.id)

	e.status = jos.ENV_DYING
	e.mm.Release()
	e.mm = nil
	e.ipc = IPCState{}
	e.pgfaultUpcall = 0
	e.status = jos.ENV_FREE
	k.used.Remove(e.slot)
	k.markDirtyLocked(e)
	envsDestroyed.Increment()
}

// CreateEnv creates a RUNNABLE environment with no parent and a one page
// stack below USTACKTOP, as the kernel does for the initial environments.
func (k *Kernel) CreateEnv(name string, priority int32) (*Env, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, err := k.allocEnvLocked(0)
	if err != nil {
		return nil, err
	}
	if err := e.mm.AllocPage(jos.USTACKTOP-hostarch.PageSize, jos.PTE_P|jos.PTE_U|jos.PTE_W); err != nil {
		k.freeEnvLocked(e)
		return nil, err
	}
	e.name = name
	e.priority = priority
	k.syncEnvInfoLocked()
	return e, nil
}

// DestroyEnv destroys the environment with the given id on behalf of the
// kernel, as the monitor does. If it owned the CPU, the scheduler picks
// the next environment.
func (k *Kernel) DestroyEnv(id EnvID) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, err := k.lookupLocked(id, nil, false)
	if err != nil {
		return err
	}
	k.destroyLocked(e)
	k.syncEnvInfoLocked()
	return nil
}
