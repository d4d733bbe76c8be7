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
	"errors"
	"fmt"

	"jos.dev/jos/pkg/abi/jos"
	"jos.dev/jos/pkg/errors/joserr"
	"jos.dev/jos/pkg/sentry/arch"
)

// ErrNotRunnable is returned by Kernel.Syscall when the calling
// environment cannot execute.
var ErrNotRunnable = errors.New("environment is not runnable")

// SyscallOutcome describes how control left a syscall.
type SyscallOutcome int

const (
	// SyscallReturned means the caller continues with the result in EAX.
	SyscallReturned SyscallOutcome = iota

	// SyscallYielded means the caller gave up the CPU but stays runnable.
	SyscallYielded

	// SyscallBlocked means the caller waits for another environment to
	// complete the syscall.
	SyscallBlocked

	// SyscallExited means the caller was destroyed.
	SyscallExited
)

// String implements fmt.Stringer.String.
func (o SyscallOutcome) String() string {
	switch o {
	case SyscallReturned:
		return "returned"
	case SyscallYielded:
		return "yielded"
	case SyscallBlocked:
		return "blocked"
	case SyscallExited:
		return "exited"
	default:
		return fmt.Sprintf("SyscallOutcome(%d)", int(o))
	}
}

// SyscallResult is the result of Kernel.Syscall.
type SyscallResult struct {
	// Outcome is how control left the syscall.
	Outcome SyscallOutcome

	// Ret is the caller's EAX after the syscall: the result for returned
	// and yielded syscalls, 0 otherwise.
	Ret int32

	// Next is the environment that owns the CPU after the syscall, or 0
	// if the CPU is idle.
	Next EnvID
}

// Err returns the error encoded in Ret, if any.
func (r SyscallResult) Err() error {
	return joserr.FromReturn(r.Ret)
}

// Syscall makes environment id execute syscall sysno with args, as if it
// had trapped with the number and arguments in its registers. The
// environment must be RUNNABLE; it is given the CPU first.
func (k *Kernel) Syscall(id EnvID, sysno uintptr, args arch.SyscallArguments) (SyscallResult, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	e, err := k.lookupLocked(id, nil, false)
	if err != nil {
		return SyscallResult{}, fmt.Errorf("syscall %s from %v: %w", k.table.SyscallName(sysno), id, err)
	}
	if e.status != jos.ENV_RUNNABLE {
		return SyscallResult{}, fmt.Errorf("syscall %s from %v: %w (%v)", k.table.SyscallName(sysno), id, ErrNotRunnable, e.status)
	}
	if k.curenv != e {
		k.runLocked(e)
	}
	e.tf.SetSyscall(sysno, args)
	res := k.trapSyscallLocked(e)
	k.syncEnvInfoLocked()
	return res, nil
}

// trapSyscallLocked services the syscall held in e's registers and
// reschedules if e gave up the CPU.
//
// Preconditions: k.mu is held. e is k.curenv.
func (k *Kernel) trapSyscallLocked(e *Env) SyscallResult {
	sysno := e.tf.SyscallNo()
	args := e.tf.SyscallArgs()

	rv, ctrl := k.executeSyscallLocked(e, sysno, args)
	if ctrl == nil || !ctrl.ignoreReturn {
		e.tf.SetReturn(rv)
	}

	var res SyscallResult
	if ctrl == nil {
		res = SyscallResult{Outcome: SyscallReturned, Ret: int32(e.tf.Return())}
	} else {
		switch ctrl.next {
		case ctrlYield:
			res = SyscallResult{Outcome: SyscallYielded, Ret: int32(e.tf.Return())}
		case ctrlBlock:
			res = SyscallResult{Outcome: SyscallBlocked}
		case ctrlExit:
			res = SyscallResult{Outcome: SyscallExited}
		}
		k.yieldLocked()
	}
	if k.curenv != nil {
		res.Next = k.curenv.id
	}
	return res
}

// executeSyscallLocked runs one syscall. It returns the value for EAX and
// the control the handler asked for.
//
// Preconditions: k.mu is held.
func (k *Kernel) executeSyscallLocked(e *Env, sysno uintptr, args arch.SyscallArguments) (uintptr, *SyscallControl) {
	syscallCount.Increment(metricSyscallName(sysno))

	s := k.table.Lookup(sysno)
	if s == nil {
		if k.strace {
			e.Infof("%s(%#x, %#x, %#x, %#x, %#x) = unimplemented", jos.SyscallName(sysno), args[0].Value, args[1].Value, args[2].Value, args[3].Value, args[4].Value)
		}
		syscallErrors.Increment(joserr.ToErrno(joserr.EInval).String())
		return errorReturn(joserr.EInval), nil
	}

	for _, b := range s.Buffers {
		addr := args[b.Addr].Pointer()
		if bad, err := e.mm.CheckAccess(addr, b.length(args), b.Access); err != nil {
			k.faultLog.Infof("[%v] user_mem_check assertion failure for va %08x", e.id, uint32(bad))
			bufferFaults.Increment()
			k.destroyLocked(e)
			return 0, CtrlDoExit
		}
	}

	if k.strace {
		e.Infof("%s(%#x, %#x, %#x, %#x, %#x)", s.Name, args[0].Value, args[1].Value, args[2].Value, args[3].Value, args[4].Value)
	}
	rv, ctrl, err := s.Fn(e, args)
	if err != nil {
		syscallErrors.Increment(joserr.ToErrno(err).String())
		rv = errorReturn(err)
	}
	if k.strace {
		switch {
		case err != nil:
			e.Infof("%s = %d %s", s.Name, int32(rv), joserr.Describe(err))
		case ctrl != nil && ctrl.ignoreReturn:
			e.Infof("%s did not return", s.Name)
		default:
			e.Infof("%s = %#x", s.Name, rv)
		}
	}
	return rv, ctrl
}

// errorReturn returns the EAX value for a syscall that failed with err.
func errorReturn(err error) uintptr {
	return uintptr(uint32(joserr.Negate(err)))
}
