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

// Package hostarch describes the machine the kernel emulates: a 32-bit x86
// with 4 KiB pages.
package hostarch

import (
	"fmt"

	"jos.dev/jos/pkg/abi/jos"
)

// PageSize is the system page size.
const PageSize = jos.PGSIZE

// PageShift is log2(PageSize).
const PageShift = jos.PGSHIFT

// Addr represents a 32-bit virtual address.
type Addr uint32

// String implements fmt.Stringer.String.
func (v Addr) String() string {
	return fmt.Sprintf("%#08x", uint32(v))
}

// RoundDown returns the address rounded down to the nearest page boundary.
func (v Addr) RoundDown() Addr {
	return v & ^Addr(PageSize-1)
}

// RoundUp returns the address rounded up to the nearest page boundary. ok
// is true iff rounding up did not wrap around.
func (v Addr) RoundUp() (addr Addr, ok bool) {
	addr = Addr(v + PageSize - 1).RoundDown()
	ok = addr >= v
	return
}

// PageOffset returns the offset of v into the current page.
func (v Addr) PageOffset() uint32 {
	return uint32(v & Addr(PageSize-1))
}

// IsPageAligned returns true if v.PageOffset() == 0.
func (v Addr) IsPageAligned() bool {
	return v.PageOffset() == 0
}

// IsUser returns true if v lies below the user/kernel split, UTOP.
func (v Addr) IsUser() bool {
	return v < jos.UTOP
}

// AddLength adds the given length to start and returns the result. ok is
// true iff adding the length did not overflow the range.
func (v Addr) AddLength(length uint32) (end Addr, ok bool) {
	end = v + Addr(length)
	ok = end >= v
	return
}

// ToRange returns [v, v+length).
func (v Addr) ToRange(length uint32) (AddrRange, bool) {
	end, ok := v.AddLength(length)
	return AddrRange{v, end}, ok
}

// AddrRange is a range of Addrs.
type AddrRange struct {
	Start Addr
	End   Addr
}

// WellFormed returns true if ar.Start <= ar.End.
func (ar AddrRange) WellFormed() bool {
	return ar.Start <= ar.End
}

// Length returns the length of ar.
func (ar AddrRange) Length() uint32 {
	return uint32(ar.End - ar.Start)
}

// Contains returns true if ar contains x.
func (ar AddrRange) Contains(x Addr) bool {
	return ar.Start <= x && x < ar.End
}

// String implements fmt.Stringer.String.
func (ar AddrRange) String() string {
	return fmt.Sprintf("[%#08x, %#08x)", uint32(ar.Start), uint32(ar.End))
}

// AccessType specifies memory access types.
type AccessType struct {
	Read  bool
	Write bool
}

var (
	// Read is read-only access.
	Read = AccessType{Read: true}

	// Write is write-only access.
	Write = AccessType{Write: true}

	// ReadWrite is read-write access.
	ReadWrite = AccessType{Read: true, Write: true}
)

// String implements fmt.Stringer.String.
func (a AccessType) String() string {
	switch {
	case a.Read && a.Write:
		return "rw"
	case a.Write:
		return "w"
	case a.Read:
		return "r"
	}
	return "-"
}

// UserPerm returns the page table bits a user mapping needs for accesses
// of type a.
func (a AccessType) UserPerm() jos.PTEFlags {
	perm := jos.PTE_P | jos.PTE_U
	if a.Write {
		perm |= jos.PTE_W
	}
	return perm
}
