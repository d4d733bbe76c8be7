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
	"jos.dev/jos/pkg/sentry/arch"
	"jos.dev/jos/pkg/sentry/kernel"
)

// IpcTrySend implements the JOS syscall ipc_try_send.
func IpcTrySend(e *kernel.Env, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	id := kernel.EnvID(args[0].Int())
	value := args[1].Uint()
	srcva := args[2].Pointer()
	perm := args[3].Perm()
	return 0, nil, e.TrySend(id, value, srcva, perm)
}

// IpcRecv implements the JOS syscall ipc_recv. On success it never
// returns to the caller directly: the sender that completes the receive
// sets the caller's result.
func IpcRecv(e *kernel.Env, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	if err := e.Recv(args[0].Pointer()); err != nil {
		return 0, nil, err
	}
	return 0, kernel.CtrlBlock, nil
}
