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

// Package mm implements the address space of an environment: the page
// syscalls' argument validation on top of pagetables, user pointer checks
// and kernel copies to and from user memory.
package mm

import (
	"jos.dev/jos/pkg/abi/jos"
	"jos.dev/jos/pkg/errors/joserr"
	"jos.dev/jos/pkg/hostarch"
	"jos.dev/jos/pkg/ring0/pagetables"
	"jos.dev/jos/pkg/sentry/pgalloc"
)

// frameAllocator implements pagetables.Allocator with a MemoryFile.
type frameAllocator struct {
	mf *pgalloc.MemoryFile
}

// NewTable implements pagetables.Allocator.NewTable.
func (a frameAllocator) NewTable() (uint32, error) {
	fn, err := a.mf.Allocate(pgalloc.AllocOpts{Zero: true})
	if err != nil {
		return 0, err
	}
	a.mf.IncRef(fn)
	return uint32(fn), nil
}

// IncRef implements pagetables.Allocator.IncRef.
func (a frameAllocator) IncRef(frame uint32) {
	a.mf.IncRef(pgalloc.FrameNumber(frame))
}

// DecRef implements pagetables.Allocator.DecRef.
func (a frameAllocator) DecRef(frame uint32) {
	a.mf.DecRef(pgalloc.FrameNumber(frame))
}

// NewKernelTables returns the kernel's template page tables. Mappings the
// kernel installs at or above UTOP before creating address spaces are
// shared by all of them.
func NewKernelTables(mf *pgalloc.MemoryFile) (*pagetables.PageTables, error) {
	return pagetables.New(frameAllocator{mf})
}

// MemoryManager is the address space of one environment.
type MemoryManager struct {
	mf *pgalloc.MemoryFile
	pt *pagetables.PageTables
}

// NewMemoryManager returns an empty address space that shares the kernel
// mappings of kern. It fails with ENoMem if no frame is available for the
// page directory.
func NewMemoryManager(mf *pgalloc.MemoryFile, kern *pagetables.PageTables) (*MemoryManager, error) {
	pt, err := pagetables.NewUser(frameAllocator{mf}, kern)
	if err != nil {
		return nil, err
	}
	return &MemoryManager{mf: mf, pt: pt}, nil
}

// PageTables returns the underlying page tables.
func (mm *MemoryManager) PageTables() *pagetables.PageTables {
	return mm.pt
}

// MemoryFile returns the physical memory backing the address space.
func (mm *MemoryManager) MemoryFile() *pgalloc.MemoryFile {
	return mm.mf
}

// Release unmaps everything and frees the page tables. mm must not be
// used afterwards.
func (mm *MemoryManager) Release() {
	mm.pt.Release()
	mm.pt = nil
}

// ValidatePerm checks a permission value supplied by an environment: it
// must include PTE_U and PTE_P and no bits outside PTE_SYSCALL.
func ValidatePerm(perm jos.PTEFlags) error {
	if !perm.Has(jos.PTE_U | jos.PTE_P) {
		return joserr.EInval
	}
	if perm&^jos.PTE_SYSCALL != 0 {
		return joserr.EInval
	}
	return nil
}

// checkUserPage checks that va can name a page a syscall may map.
func checkUserPage(va hostarch.Addr) error {
	if !va.IsUser() || !va.IsPageAligned() {
		return joserr.EInval
	}
	return nil
}

// Lookup returns the frame and permissions mapped at va.
func (mm *MemoryManager) Lookup(va hostarch.Addr) (pgalloc.FrameNumber, jos.PTEFlags, bool) {
	pte, ok := mm.pt.Lookup(va)
	if !ok {
		return 0, 0, false
	}
	return pgalloc.FrameNumber(pte.Frame()), pte.Flags(), true
}

// AllocPage maps a new zeroed page at va with perm, replacing any page
// already mapped there. The new page is freed again if it cannot be
// mapped.
func (mm *MemoryManager) AllocPage(va hostarch.Addr, perm jos.PTEFlags) error {
	if err := checkUserPage(va); err != nil {
		return err
	}
	if err := ValidatePerm(perm); err != nil {
		return err
	}
	fn, err := mm.mf.Allocate(pgalloc.AllocOpts{Zero: true})
	if err != nil {
		return joserr.ENoMem
	}
	if err := mm.pt.Insert(va, uint32(fn), perm); err != nil {
		mm.mf.Free(fn)
		return joserr.ENoMem
	}
	return nil
}

// SharedPage returns the frame at va if it may be shared with perm: va
// must be a mapped user page, perm must be valid and may only ask for
// PTE_W if the mapping at va is writable.
func (mm *MemoryManager) SharedPage(va hostarch.Addr, perm jos.PTEFlags) (pgalloc.FrameNumber, error) {
	if err := checkUserPage(va); err != nil {
		return 0, err
	}
	fn, cur, ok := mm.Lookup(va)
	if !ok {
		return 0, joserr.EInval
	}
	if err := ValidatePerm(perm); err != nil {
		return 0, err
	}
	if perm.Has(jos.PTE_W) && !cur.Has(jos.PTE_W) {
		return 0, joserr.EInval
	}
	return fn, nil
}

// InsertPage maps fn at va with perm. fn must be referenced by some
// other mapping or freshly allocated.
func (mm *MemoryManager) InsertPage(va hostarch.Addr, fn pgalloc.FrameNumber, perm jos.PTEFlags) error {
	if err := checkUserPage(va); err != nil {
		return err
	}
	if err := mm.pt.Insert(va, uint32(fn), perm); err != nil {
		return joserr.ENoMem
	}
	return nil
}

// MapPage maps the page at srcVA in src at dstVA in mm with perm.
func (mm *MemoryManager) MapPage(src *MemoryManager, srcVA, dstVA hostarch.Addr, perm jos.PTEFlags) error {
	if err := checkUserPage(srcVA); err != nil {
		return err
	}
	if err := checkUserPage(dstVA); err != nil {
		return err
	}
	fn, err := src.SharedPage(srcVA, perm)
	if err != nil {
		return err
	}
	return mm.InsertPage(dstVA, fn, perm)
}

// UnmapPage removes the mapping at va, if any.
func (mm *MemoryManager) UnmapPage(va hostarch.Addr) error {
	if err := checkUserPage(va); err != nil {
		return err
	}
	mm.pt.Remove(va)
	return nil
}

// SetPerm changes the permissions of the mapping at va. It returns false
// if va is not mapped.
func (mm *MemoryManager) SetPerm(va hostarch.Addr, perm jos.PTEFlags) bool {
	return mm.pt.SetPerm(va, perm)
}

// Mapping describes one mapped page.
type Mapping struct {
	VA    hostarch.Addr
	Frame pgalloc.FrameNumber
	Perm  jos.PTEFlags
}

// Mappings returns the pages mapped in ar, in address order.
func (mm *MemoryManager) Mappings(ar hostarch.AddrRange) []Mapping {
	var ms []Mapping
	mm.pt.Walk(ar, func(va hostarch.Addr, pte pagetables.PTE) bool {
		ms = append(ms, Mapping{VA: va, Frame: pgalloc.FrameNumber(pte.Frame()), Perm: pte.Flags()})
		return true
	})
	return ms
}
