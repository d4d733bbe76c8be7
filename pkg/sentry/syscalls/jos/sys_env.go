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

package jos

import (
	"jos.dev/jos/pkg/abi/jos"
	"jos.dev/jos/pkg/sentry/arch"
	"jos.dev/jos/pkg/sentry/kernel"
)

// Getenvid implements the JOS syscall getenvid.
func Getenvid(e *kernel.Env, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	return uintptr(e.ID()), nil, nil
}

// EnvDestroy implements the JOS syscall env_destroy.
func EnvDestroy(e *kernel.Env, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	id := kernel.EnvID(args[0].Int())

	self, err := e.Destroy(id)
	if err != nil {
		return 0, nil, err
	}
	if self {
		return 0, kernel.CtrlDoExit, nil
	}
	return 0, nil, nil
}

// Exofork implements the JOS syscall exofork. The parent gets the child's
// id; the child, once made runnable, sees 0.
func Exofork(e *kernel.Env, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	child, err := e.Fork()
	if err != nil {
		return 0, nil, err
	}
	return uintptr(child.ID()), nil, nil
}

// EnvSetStatus implements the JOS syscall env_set_status.
func EnvSetStatus(e *kernel.Env, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	id := kernel.EnvID(args[0].Int())
	status := jos.EnvStatus(args[1].Uint())
	return 0, nil, e.SetStatus(id, status)
}

// EnvSetTrapframe implements the JOS syscall env_set_trapframe. The frame
// is read from the caller's memory; the dispatcher has checked it is
// readable.
func EnvSetTrapframe(e *kernel.Env, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	id := kernel.EnvID(args[0].Int())
	addr := args[1].Pointer()

	buf := make([]byte, arch.TrapFrameSize)
	if err := e.MemoryManager().CopyIn(addr, buf); err != nil {
		return 0, nil, err
	}
	var tf arch.TrapFrame
	if err := tf.UnmarshalBinary(buf); err != nil {
		return 0, nil, err
	}
	return 0, nil, e.SetTrapFrame(id, tf)
}

// EnvSetPgfaultUpcall implements the JOS syscall env_set_pgfault_upcall.
func EnvSetPgfaultUpcall(e *kernel.Env, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	id := kernel.EnvID(args[0].Int())
	upcall := args[1].Pointer()
	return 0, nil, e.SetPgfaultUpcall(id, upcall)
}

// ChangePriority implements the JOS syscall change_priority.
func ChangePriority(e *kernel.Env, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	id := kernel.EnvID(args[0].Int())
	priority := args[1].Int()
	return 0, nil, e.ChangePriority(id, priority)
}
