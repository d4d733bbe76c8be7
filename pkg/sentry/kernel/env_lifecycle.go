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
	"jos.dev/jos/pkg/abi/jos"
	"jos.dev/jos/pkg/errors/joserr"
	"jos.dev/jos/pkg/hostarch"
	"jos.dev/jos/pkg/sentry/arch"
)

// Fork creates a child of e that resumes at the same point as e, but sees
// 0 as the result of the syscall. The child is NOT_RUNNABLE and has an
// empty address space: copying memory is left to e.
func (e *Env) Fork() (*Env, error) {
	k := e.k
	child, err := k.allocEnvLocked(e.id)
	if err != nil {
		return nil, err
	}
	child.status = jos.ENV_NOT_RUNNABLE
	child.tf = e.tf
	child.tf.SetReturn(0)
	child.name = e.name + ".child"
	return child, nil
}

// SetStatus sets the status of the environment id, which must be e or a
// child of e, to RUNNABLE or NOT_RUNNABLE. Any other status fails with
// EInval and changes nothing.
func (e *Env) SetStatus(id EnvID, status jos.EnvStatus) error {
	if status != jos.ENV_RUNNABLE && status != jos.ENV_NOT_RUNNABLE {
		return joserr.EInval
	}
	target, err := e.k.LookupChecked(id, e)
	if err != nil {
		return err
	}
	target.status = status
	e.k.markDirtyLocked(target)
	return nil
}

// Destroy destroys the environment id, which must be e or a child of e.
// It returns true if e destroyed itself, in which case e never returns to
// user mode.
func (e *Env) Destroy(id EnvID) (self bool, err error) {
	target, err := e.k.LookupChecked(id, e)
	if err != nil {
		return false, err
	}
	if target == e {
		e.k.faultLog.Infof("[%v] exiting gracefully", e.id)
	} else {
		e.k.faultLog.Infof("[%v] destroying %v", e.id, target.id)
	}
	e.k.destroyLocked(target)
	return target == e, nil
}

// destroyLocked frees e. If e owned the CPU, the CPU goes idle until the
// scheduler picks another environment.
//
// Preconditions: k.mu is held.
func (k *Kernel) destroyLocked(e *Env) {
	k.freeEnvLocked(e)
	if k.curenv == e {
		k.curenv = nil
	}
}

// SetPgfaultUpcall records the page fault entry point of the environment
// id, which must be e or a child of e. The address is not validated.
func (e *Env) SetPgfaultUpcall(id EnvID, upcall hostarch.Addr) error {
	target, err := e.k.LookupChecked(id, e)
	if err != nil {
		return err
	}
	target.pgfaultUpcall = upcall
	return nil
}

// SetTrapFrame replaces the saved registers of the environment id, which
// must be e or a child of e. The frame is sanitized to run at CPL 3 with
// interrupts enabled and IOPL 0.
func (e *Env) SetTrapFrame(id EnvID, tf arch.TrapFrame) error {
	target, err := e.k.LookupChecked(id, e)
	if err != nil {
		return err
	}
	tf.Sanitize()
	target.tf = tf
	return nil
}

// ChangePriority sets the scheduling priority of the environment id,
// which must be e or a child of e.
func (e *Env) ChangePriority(id EnvID, priority int32) error {
	target, err := e.k.LookupChecked(id, e)
	if err != nil {
		return err
	}
	target.priority = priority
	return nil
}
