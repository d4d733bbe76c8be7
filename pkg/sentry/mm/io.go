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

package mm

import (
	"jos.dev/jos/pkg/abi/jos"
	"jos.dev/jos/pkg/errors/joserr"
	"jos.dev/jos/pkg/hostarch"
)

// CheckAccess checks that the environment may access [addr, addr+length)
// with access type at: every page must lie below ULIM and be mapped with
// PTE_U, PTE_P and, for writes, PTE_W. On failure it returns EFault and
// the first address that is not accessible.
func (mm *MemoryManager) CheckAccess(addr hostarch.Addr, length uint32, at hostarch.AccessType) (hostarch.Addr, error) {
	// Compute in 64 bits so ranges running off the top of the address
	// space fault instead of wrapping.
	begin := uint64(addr.RoundDown())
	end := (uint64(addr) + uint64(length) + hostarch.PageSize - 1) &^ (hostarch.PageSize - 1)
	perm := at.UserPerm()
	for a := begin; a < end; a += hostarch.PageSize {
		va := hostarch.Addr(a)
		if a >= jos.ULIM {
			return max(va, addr), joserr.EFault
		}
		_, cur, ok := mm.Lookup(va)
		if !ok || !cur.Has(perm) {
			return max(va, addr), joserr.EFault
		}
	}
	return 0, nil
}

// forEachPage calls fn for each page-sized piece of [addr, addr+length)
// with the frame contents backing it. It fails with EFault if any page is
// unmapped.
func (mm *MemoryManager) forEachPage(addr hostarch.Addr, length int, fn func(page []byte, done int)) error {
	if _, ok := addr.AddLength(uint32(length)); !ok {
		return joserr.EFault
	}
	done := 0
	for done < length {
		va := addr + hostarch.Addr(done)
		frame, _, ok := mm.Lookup(va)
		if !ok {
			return joserr.EFault
		}
		off := va.PageOffset()
		n := min(int(hostarch.PageSize-off), length-done)
		fn(mm.mf.Data(frame)[off:off+uint32(n)], done)
		done += n
	}
	return nil
}

// CopyIn copies len(dst) bytes from the address space at addr. It does
// not check user permissions; callers validate user-supplied pointers with
// CheckAccess first.
func (mm *MemoryManager) CopyIn(addr hostarch.Addr, dst []byte) error {
	return mm.forEachPage(addr, len(dst), func(page []byte, done int) {
		copy(dst[done:], page)
	})
}

// CopyOut copies src into the address space at addr. Like CopyIn it only
// requires the pages to be mapped.
func (mm *MemoryManager) CopyOut(addr hostarch.Addr, src []byte) error {
	return mm.forEachPage(addr, len(src), func(page []byte, done int) {
		copy(page, src[done:])
	})
}
