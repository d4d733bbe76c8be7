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

// PageAlloc implements the JOS syscall page_alloc.
func PageAlloc(e *kernel.Env, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	id := kernel.EnvID(args[0].Int())
	va := args[1].Pointer()
	perm := args[2].Perm()

	target, err := e.Kernel().LookupChecked(id, e)
	if err != nil {
		return 0, nil, err
	}
	return 0, nil, target.MemoryManager().AllocPage(va, perm)
}

// PageMap implements the JOS syscall page_map. The destination is
// resolved first.
func PageMap(e *kernel.Env, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	srcID := kernel.EnvID(args[0].Int())
	srcVA := args[1].Pointer()
	dstID := kernel.EnvID(args[2].Int())
	dstVA := args[3].Pointer()
	perm := args[4].Perm()

	k := e.Kernel()
	dst, err := k.LookupChecked(dstID, e)
	if err != nil {
		return 0, nil, err
	}
	src, err := k.LookupChecked(srcID, e)
	if err != nil {
		return 0, nil, err
	}
	return 0, nil, dst.MemoryManager().MapPage(src.MemoryManager(), srcVA, dstVA, perm)
}

// PageUnmap implements the JOS syscall page_unmap. Unmapping an address
// that is not mapped succeeds.
func PageUnmap(e *kernel.Env, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	id := kernel.EnvID(args[0].Int())
	va := args[1].Pointer()

	target, err := e.Kernel().LookupChecked(id, e)
	if err != nil {
		return 0, nil, err
	}
	return 0, nil, target.MemoryManager().UnmapPage(va)
}
