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

package kernel

import (
	"fmt"

	"jos.dev/jos/pkg/abi/jos"
	"jos.dev/jos/pkg/hostarch"
	"jos.dev/jos/pkg/sentry/arch"
	"jos.dev/jos/pkg/sentry/mm"
)

// EnvID identifies an environment. The low bits select a table slot and
// the remaining bits hold the slot's generation, so an id goes stale when
// its environment is freed. Zero names the calling environment.
type EnvID int32

// String implements fmt.Stringer.String.
func (id EnvID) String() string {
	return fmt.Sprintf("%08x", uint32(id))
}

// IPCState is the receive side of the IPC rendezvous.
type IPCState struct {
	// Recving is true while the environment is blocked in ipc_recv.
	Recving bool

	// DstVA is where a page sent to the environment is mapped. Addresses
	// at or above UTOP mean no page is wanted.
	DstVA hostarch.Addr

	// Value is the value of the last completed send.
	Value uint32

	// From is the sender of the last completed send, or 0 while waiting.
	From EnvID

	// Perm holds the permissions of the transferred page, or 0 if no page
	// was transferred.
	Perm jos.PTEFlags
}

// Env is an environment: an address space with one saved thread of
// execution.
//
// All fields are protected by Kernel.mu. Accessors and the syscall
// operations on Env do not lock: they are called by syscall handlers,
// which run with Kernel.mu held. Accessors may also be used by callers
// that own the kernel between syscalls.
type Env struct {
	k *Kernel

	// slot is the index of the environment in Kernel.envs.
	slot uint32

	id       EnvID
	parentID EnvID
	status   jos.EnvStatus

	// tf holds the registers of the environment while it is not running.
	tf arch.TrapFrame

	// mm is the address space. It is nil while the slot is free.
	mm *mm.MemoryManager

	pgfaultUpcall hostarch.Addr
	ipc           IPCState

	// priority orders runnable environments in the scheduler. Higher
	// runs first.
	priority int32

	// runs counts how many times the environment has been scheduled.
	runs uint32

	// name is a label used in logs and by the monitor.
	name string
}

// ID returns the environment's id.
func (e *Env) ID() EnvID {
	return e.id
}

// ParentID returns the id of the environment that created e, or 0.
func (e *Env) ParentID() EnvID {
	return e.parentID
}

// Status returns the scheduling status.
func (e *Env) Status() jos.EnvStatus {
	return e.status
}

// TrapFrame returns a copy of the saved registers.
func (e *Env) TrapFrame() arch.TrapFrame {
	return e.tf
}

// IPC returns a copy of the IPC state.
func (e *Env) IPC() IPCState {
	return e.ipc
}

// PgfaultUpcall returns the page fault upcall entry point.
func (e *Env) PgfaultUpcall() hostarch.Addr {
	return e.pgfaultUpcall
}

// Priority returns the scheduling priority.
func (e *Env) Priority() int32 {
	return e.priority
}

// Runs returns the number of times e has been scheduled.
func (e *Env) Runs() uint32 {
	return e.runs
}

// Name returns the environment's label.
func (e *Env) Name() string {
	return e.name
}

// MemoryManager returns the address space. It is nil once e is freed.
func (e *Env) MemoryManager() *mm.MemoryManager {
	return e.mm
}

// Kernel returns the kernel e belongs to.
func (e *Env) Kernel() *Kernel {
	return e.k
}

// String implements fmt.Stringer.String.
func (e *Env) String() string {
	return fmt.Sprintf("[%v]", e.id)
}

// Debugf logs a debug message prefixed with the environment id.
func (e *Env) Debugf(format string, v ...any) {
	e.k.log.Debugf("[%v] "+format, append([]any{e.id}, v...)...)
}

// Infof logs an info message prefixed with the environment id, the way
// the kernel prints to its console.
func (e *Env) Infof(format string, v ...any) {
	e.k.log.Infof("[%v] "+format, append([]any{e.id}, v...)...)
}

// Warningf logs a warning prefixed with the environment id.
func (e *Env) Warningf(format string, v ...any) {
	e.k.log.Warningf("[%v] "+format, append([]any{e.id}, v...)...)
}
