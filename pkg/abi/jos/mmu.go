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
	"fmt"
	"strings"
)

// Paging constants, as in inc/mmu.h.
const (
	// NPDENTRIES is the number of entries in a page directory.
	NPDENTRIES = 1024

	// NPTENTRIES is the number of entries in a page table.
	NPTENTRIES = 1024

	// PGSIZE is the number of bytes mapped by a page.
	PGSIZE = 4096

	// PGSHIFT is log2(PGSIZE).
	PGSHIFT = 12

	// PTSIZE is the number of bytes mapped by a page directory entry.
	PTSIZE = PGSIZE * NPTENTRIES

	// PTXSHIFT is the offset of PTX in a linear address.
	PTXSHIFT = 12

	// PDXSHIFT is the offset of PDX in a linear address.
	PDXSHIFT = 22
)

// PDX returns the page directory index of va.
func PDX(va uint32) uint32 {
	return (va >> PDXSHIFT) & 0x3FF
}

// PTX returns the page table index of va.
func PTX(va uint32) uint32 {
	return (va >> PTXSHIFT) & 0x3FF
}

// PGADDR builds a linear address from its indexes and offset.
func PGADDR(d, t, o uint32) uint32 {
	return d<<PDXSHIFT | t<<PTXSHIFT | o
}

// PTEFlags are the permission and status bits of a page table entry.
type PTEFlags uint32

// Page table/directory entry flags.
const (
	PTE_P   PTEFlags = 0x001 // Present
	PTE_W   PTEFlags = 0x002 // Writeable
	PTE_U   PTEFlags = 0x004 // User
	PTE_PWT PTEFlags = 0x008 // Write-Through
	PTE_PCD PTEFlags = 0x010 // Cache-Disable
	PTE_A   PTEFlags = 0x020 // Accessed
	PTE_D   PTEFlags = 0x040 // Dirty
	PTE_PS  PTEFlags = 0x080 // Page Size
	PTE_G   PTEFlags = 0x100 // Global

	// PTE_AVAIL bits are not used by the kernel or interpreted by the
	// hardware, so user processes are allowed to set them arbitrarily.
	PTE_AVAIL PTEFlags = 0xE00

	// PTE_SYSCALL is the set of flags user environments may pass to the
	// page syscalls.
	PTE_SYSCALL = PTE_AVAIL | PTE_P | PTE_W | PTE_U

	// PTE_FLAGS masks all flag bits of an entry.
	PTE_FLAGS PTEFlags = 0xFFF
)

// Has returns true if all of want is set in f.
func (f PTEFlags) Has(want PTEFlags) bool {
	return f&want == want
}

// String implements fmt.Stringer.String.
func (f PTEFlags) String() string {
	var parts []string
	for _, b := range []struct {
		bit  PTEFlags
		name string
	}{
		{PTE_P, "P"}, {PTE_W, "W"}, {PTE_U, "U"}, {PTE_PWT, "PWT"},
		{PTE_PCD, "PCD"}, {PTE_A, "A"}, {PTE_D, "D"}, {PTE_PS, "PS"},
		{PTE_G, "G"},
	} {
		if f&b.bit != 0 {
			parts = append(parts, b.name)
		}
	}
	if avail := f & PTE_AVAIL; avail != 0 {
		parts = append(parts, fmt.Sprintf("AVAIL(%#x)", uint32(avail)>>9))
	}
	if len(parts) == 0 {
		return "0"
	}
	return strings.Join(parts, "|")
}

// ParsePTEFlag parses a flag name such as "PTE_W" or "W".
func ParsePTEFlag(s string) (PTEFlags, error) {
	switch strings.TrimPrefix(strings.ToUpper(s), "PTE_") {
	case "P":
		return PTE_P, nil
	case "W":
		return PTE_W, nil
	case "U":
		return PTE_U, nil
	case "PWT":
		return PTE_PWT, nil
	case "PCD":
		return PTE_PCD, nil
	case "A":
		return PTE_A, nil
	case "D":
		return PTE_D, nil
	case "PS":
		return PTE_PS, nil
	case "G":
		return PTE_G, nil
	case "AVAIL":
		return PTE_AVAIL, nil
	}
	return 0, fmt.Errorf("unknown page table flag %q", s)
}
