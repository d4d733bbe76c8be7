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

// Cputs implements the JOS syscall cputs. The dispatcher has checked that
// the whole string is readable.
func Cputs(e *kernel.Env, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	addr := args[0].Pointer()
	size := args[1].SizeT()

	buf := make([]byte, size)
	if err := e.MemoryManager().CopyIn(addr, buf); err != nil {
		return 0, nil, err
	}
	if _, err := e.Kernel().Console().Write(buf); err != nil {
		e.Warningf("console write: %v", err)
	}
	return 0, nil, nil
}

// Cgetc implements the JOS syscall cgetc. It does not block: it returns 0
// if no input is pending.
func Cgetc(e *kernel.Env, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	return uintptr(e.Kernel().Console().Getc()), nil, nil
}
