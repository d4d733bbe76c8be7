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

// Package pagetables provides a generic implementation of two-level x86
// page tables.
//
// The directory and every page table are backed by a physical frame taken
// from an Allocator, so growing an address space can fail with ENoMem.
// Entries hold frame references: installing a mapping takes a reference
// on the frame and removing it drops one.
package pagetables

import (
	"fmt"

	"github.com/google/btree"

	"jos.dev/jos/pkg/abi/jos"
	"jos.dev/jos/pkg/hostarch"
)

// Allocator is used to allocate and reference page frames.
type Allocator interface {
	// NewTable returns a zeroed frame to hold a directory or page table.
	// The frame is returned with one reference held by the caller.
	NewTable() (uint32, error)

	// IncRef takes a reference on frame.
	IncRef(frame uint32)

	// DecRef drops a reference on frame, freeing it at zero.
	DecRef(frame uint32)
}

// PTE is a page table or directory entry: a frame number in the upper 20
// bits and jos.PTEFlags in the lower 12.
type PTE uint32

// MakePTE returns an entry mapping frame with the given flags.
func MakePTE(frame uint32, flags jos.PTEFlags) PTE {
	return PTE(frame<<jos.PGSHIFT | uint32(flags&jos.PTE_FLAGS))
}

// Valid returns true iff this entry is present.
func (p PTE) Valid() bool {
	return jos.PTEFlags(p)&jos.PTE_P != 0
}

// Frame returns the frame number of the entry.
func (p PTE) Frame() uint32 {
	return uint32(p) >> jos.PGSHIFT
}

// Address returns the physical address of the entry.
func (p PTE) Address() uint32 {
	return uint32(p) &^ uint32(jos.PTE_FLAGS)
}

// Flags returns the flag bits of the entry.
func (p PTE) Flags() jos.PTEFlags {
	return jos.PTEFlags(p) & jos.PTE_FLAGS
}

// String implements fmt.Stringer.String.
func (p PTE) String() string {
	if !p.Valid() {
		return "-"
	}
	return fmt.Sprintf("%#08x[%v]", p.Address(), p.Flags())
}

// PTEs is a collection of entries.
type PTEs [jos.NPTENTRIES]PTE

// table is a page table covering one directory slot.
type table struct {
	// pdx is the directory index and the btree key.
	pdx uint32

	// frame backs the table.
	frame uint32

	// ptes are the entries.
	ptes *PTEs

	// shared tables belong to the kernel template and are not freed or
	// modified through an environment's PageTables.
	shared bool

	// used counts valid entries, so empty tables can be freed.
	used uint32
}

func tableLess(a, b *table) bool {
	return a.pdx < b.pdx
}

// PageTables is an x86 page directory and its tables.
type PageTables struct {
	// Allocator is used to allocate and reference frames.
	Allocator Allocator

	// dir is the frame backing the page directory.
	dir uint32

	// tables holds every allocated table, keyed by directory index.
	tables *btree.BTreeG[*table]

	// shareFrom is the first directory index holding shared tables.
	shareFrom uint32
}

// degree is the btree degree. Address spaces hold at most NPDENTRIES
// tables, so a small degree keeps nodes compact.
const degree = 8

// New returns new PageTables with a freshly allocated directory frame.
func New(a Allocator) (*PageTables, error) {
	dir, err := a.NewTable()
	if err != nil {
		return nil, err
	}
	return &PageTables{
		Allocator: a,
		dir:       dir,
		tables:    btree.NewG[*table](degree, tableLess),
		shareFrom: jos.NPDENTRIES,
	}, nil
}

// NewUser returns PageTables for a user address space. Directory slots at
// and above hostarch.UTOP share the tables of kern, as of the time of the
// call.
func NewUser(a Allocator, kern *PageTables) (*PageTables, error) {
	p, err := New(a)
	if err != nil {
		return nil, err
	}
	p.shareFrom = jos.PDX(jos.UTOP)
	kern.tables.AscendGreaterOrEqual(&table{pdx: p.shareFrom}, func(t *table) bool {
		p.tables.ReplaceOrInsert(&table{
			pdx:    t.pdx,
			frame:  t.frame,
			ptes:   t.ptes,
			shared: true,
			used:   t.used,
		})
		return true
	})
	return p, nil
}

// Dir returns the frame holding the page directory.
func (p *PageTables) Dir() uint32 {
	return p.dir
}

// PDE returns the directory entry covering va.
func (p *PageTables) PDE(va hostarch.Addr) PTE {
	t, ok := p.tables.Get(&table{pdx: jos.PDX(uint32(va))})
	if !ok {
		return 0
	}
	return MakePTE(t.frame, jos.PTE_P|jos.PTE_W|jos.PTE_U)
}

// walk returns the table covering va, allocating it if requested.
func (p *PageTables) walk(va hostarch.Addr, create bool) (*table, error) {
	pdx := jos.PDX(uint32(va))
	if t, ok := p.tables.Get(&table{pdx: pdx}); ok {
		return t, nil
	}
	if !create {
		return nil, nil
	}
	frame, err := p.Allocator.NewTable()
	if err != nil {
		return nil, err
	}
	t := &table{pdx: pdx, frame: frame, ptes: new(PTEs)}
	p.tables.ReplaceOrInsert(t)
	return t, nil
}

// Lookup returns the entry mapping va. ok is false if there is none.
func (p *PageTables) Lookup(va hostarch.Addr) (pte PTE, ok bool) {
	t, _ := p.walk(va, false)
	if t == nil {
		return 0, false
	}
	pte = t.ptes[jos.PTX(uint32(va))]
	return pte, pte.Valid()
}

// Insert maps frame at the page containing va with flags|PTE_P, replacing
// any existing mapping. The new frame is referenced before the old mapping
// is dropped, so reinserting the same frame at the same address is safe.
//
// Insert fails only if a page table is needed and cannot be allocated, in
// which case nothing is changed.
func (p *PageTables) Insert(va hostarch.Addr, frame uint32, flags jos.PTEFlags) error {
	t, err := p.walk(va, true)
	if err != nil {
		return err
	}
	p.checkOwned(t, va)
	p.Allocator.IncRef(frame)
	entry := &t.ptes[jos.PTX(uint32(va))]
	if entry.Valid() {
		p.Allocator.DecRef(entry.Frame())
	} else {
		t.used++
	}
	*entry = MakePTE(frame, flags|jos.PTE_P)
	return nil
}

// MustInsert is Insert for mappings the kernel cannot run without. It
// panics on failure.
func (p *PageTables) MustInsert(va hostarch.Addr, frame uint32, flags jos.PTEFlags) {
	if err := p.Insert(va, frame, flags); err != nil {
		panic(fmt.Sprintf("mapping kernel page %v at %v: %v", frame, va, err))
	}
}

// Remove unmaps the page containing va, dropping its frame reference. It
// returns false if nothing was mapped. Tables left empty are freed.
func (p *PageTables) Remove(va hostarch.Addr) bool {
	t, _ := p.walk(va, false)
	if t == nil {
		return false
	}
	entry := &t.ptes[jos.PTX(uint32(va))]
	if !entry.Valid() {
		return false
	}
	p.checkOwned(t, va)
	frame := entry.Frame()
	*entry = 0
	t.used--
	p.Allocator.DecRef(frame)
	if t.used == 0 {
		p.tables.Delete(t)
		p.Allocator.DecRef(t.frame)
	}
	return true
}

// SetPerm replaces the flags of an existing mapping. PTE_P is always kept.
// It returns false if va is not mapped.
func (p *PageTables) SetPerm(va hostarch.Addr, flags jos.PTEFlags) bool {
	t, _ := p.walk(va, false)
	if t == nil {
		return false
	}
	entry := &t.ptes[jos.PTX(uint32(va))]
	if !entry.Valid() {
		return false
	}
	*entry = MakePTE(entry.Frame(), flags|jos.PTE_P)
	return true
}

// Walk calls fn for every valid entry whose page begins in ar, in address
// order, until fn returns false. A page that begins below ar.Start is
// skipped even if it overlaps ar.
func (p *PageTables) Walk(ar hostarch.AddrRange, fn func(va hostarch.Addr, pte PTE) bool) {
	if ar.Length() == 0 {
		return
	}
	last := uint32(ar.End) - 1
	p.tables.AscendRange(&table{pdx: jos.PDX(uint32(ar.Start))}, &table{pdx: jos.PDX(last) + 1}, func(t *table) bool {
		for ptx := uint32(0); ptx < jos.NPTENTRIES; ptx++ {
			va := jos.PGADDR(t.pdx, ptx, 0)
			if va < uint32(ar.Start) || va > last {
				continue
			}
			if pte := t.ptes[ptx]; pte.Valid() {
				if !fn(hostarch.Addr(va), pte) {
					return false
				}
			}
		}
		return true
	})
}

// Tables returns the number of page tables owned by p, excluding shared
// tables.
func (p *PageTables) Tables() int {
	n := 0
	p.tables.Ascend(func(t *table) bool {
		if !t.shared {
			n++
		}
		return true
	})
	return n
}

// Release unmaps every page below the shared region and frees all tables
// owned by p, then the directory itself. p must not be used afterwards.
func (p *PageTables) Release() {
	var owned []*table
	p.tables.Ascend(func(t *table) bool {
		if !t.shared {
			owned = append(owned, t)
		}
		return true
	})
	for _, t := range owned {
		for ptx := range t.ptes {
			if entry := &t.ptes[ptx]; entry.Valid() {
				frame := entry.Frame()
				*entry = 0
				p.Allocator.DecRef(frame)
			}
		}
		p.tables.Delete(t)
		p.Allocator.DecRef(t.frame)
	}
	p.tables.Clear(false)
	p.Allocator.DecRef(p.dir)
	p.dir = 0
}

func (p *PageTables) checkOwned(t *table, va hostarch.Addr) {
	if t.shared {
		panic(fmt.Sprintf("modifying shared kernel mapping at %v", va))
	}
}
