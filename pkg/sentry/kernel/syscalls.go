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
)

// SyscallFn is a syscall implementation. It runs with the kernel lock
// held. A nil *SyscallControl means the syscall returns normally: the
// uintptr result, or the negated errno of the error, is written to EAX.
type SyscallFn func(e *Env, args arch.SyscallArguments) (uintptr, *SyscallControl, error)

// SyscallControl is returned by syscalls that do not simply return to
// their caller.
type SyscallControl struct {
	// next is what the kernel does after the syscall.
	next controlKind

	// ignoreReturn is set if EAX must not be written because the return
	// value is produced elsewhere.
	ignoreReturn bool
}

type controlKind int

const (
	ctrlYield controlKind = iota
	ctrlBlock
	ctrlExit
)

var (
	// CtrlYield is returned by syscalls that give up the CPU. The caller
	// stays RUNNABLE and sees the syscall's result when it is next run.
	CtrlYield = &SyscallControl{next: ctrlYield}

	// CtrlBlock is returned by syscalls that leave the caller NOT_RUNNABLE
	// until another environment completes the call and writes its result.
	CtrlBlock = &SyscallControl{next: ctrlBlock, ignoreReturn: true}

	// CtrlDoExit is returned by syscalls that destroyed the caller.
	CtrlDoExit = &SyscallControl{next: ctrlExit, ignoreReturn: true}
)

// BufferArg declares a user buffer passed to a syscall. The dispatcher
// checks the whole range before the handler runs and destroys the caller
// if it is not accessible.
type BufferArg struct {
	// Addr is the index of the argument holding the buffer address.
	Addr int

	// Len is the index of the argument holding the buffer length. It is
	// ignored if Size is set.
	Len int

	// Size is the fixed size of the buffer, if any.
	Size uint32

	// Access is the access the handler needs.
	Access hostarch.AccessType
}

// length returns the length of the buffer described by b in args.
func (b BufferArg) length(args arch.SyscallArguments) uint32 {
	if b.Size != 0 {
		return b.Size
	}
	return args[b.Len].SizeT()
}

// Syscall describes one syscall implementation.
type Syscall struct {
	// Name is the syscall name.
	Name string

	// Fn is the implementation.
	Fn SyscallFn

	// Buffers are the user buffers Fn reads or writes.
	Buffers []BufferArg
}

// SyscallTable is a table mapping syscall numbers to implementations.
type SyscallTable struct {
	// Name identifies the table.
	Name string

	// Table is the collection of functions.
	Table map[uintptr]Syscall

	// lookup is a fixed-size array that holds the syscalls (indexed by
	// their numbers). It is used for fast look ups.
	lookup []*Syscall
}

// Init initializes the lookup array. It must be called before the table
// is used, and panics if an entry is malformed.
func (s *SyscallTable) Init() {
	maxNum := uintptr(0)
	for num := range s.Table {
		maxNum = max(maxNum, num)
	}
	s.lookup = make([]*Syscall, maxNum+1)
	for num, sc := range s.Table {
		if sc.Fn == nil {
			panic(fmt.Sprintf("syscall %d (%s) has no implementation", num, sc.Name))
		}
		for _, b := range sc.Buffers {
			if b.Addr < 0 || b.Addr >= len(arch.SyscallArguments{}) || (b.Size == 0 && (b.Len < 0 || b.Len >= len(arch.SyscallArguments{}))) {
				panic(fmt.Sprintf("syscall %d (%s) has malformed buffer %+v", num, sc.Name, b))
			}
		}
		s.lookup[num] = &sc
	}
}

// Lookup returns the syscall implementation, if one exists.
func (s *SyscallTable) Lookup(sysno uintptr) *Syscall {
	if sysno < uintptr(len(s.lookup)) {
		return s.lookup[sysno]
	}
	return nil
}

// SyscallName returns the name of sysno in s, falling back to the ABI name.
func (s *SyscallTable) SyscallName(sysno uintptr) string {
	if sc := s.Lookup(sysno); sc != nil && sc.Name != "" {
		return sc.Name
	}
	return jos.SyscallName(sysno)
}
