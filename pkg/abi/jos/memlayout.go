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

// Virtual memory layout, as in inc/memlayout.h. Everything at or above
// ULIM is kernel only; [UTOP, ULIM) is read-only for user environments;
// everything below UTOP belongs to the environment.
const (
	// KERNBASE is where all of physical memory is mapped.
	KERNBASE = 0xF0000000

	// MMIOLIM is the top of the memory-mapped I/O region.
	MMIOLIM = KERNBASE - PTSIZE

	// MMIOBASE is the bottom of the memory-mapped I/O region.
	MMIOBASE = MMIOLIM - PTSIZE

	// ULIM is the top of memory user environments may read.
	ULIM = MMIOBASE

	// UVPT is the user read-only virtual page table.
	UVPT = ULIM - PTSIZE

	// UPAGES is the read-only copy of the physical page structures.
	UPAGES = UVPT - PTSIZE

	// UENVS is the read-only copy of the environment table.
	UENVS = UPAGES - PTSIZE

	// UTOP is the top of user-mappable memory. Addresses at or above UTOP
	// are never mapped on behalf of a syscall.
	UTOP = UENVS

	// UXSTACKTOP is the top of the one-page user exception stack.
	UXSTACKTOP = UTOP

	// USTACKTOP is the top of the normal user stack. The page below
	// UXSTACKTOP is left as a guard.
	USTACKTOP = UTOP - 2*PGSIZE

	// UTEXT is where user programs generally begin.
	UTEXT = 2 * PTSIZE

	// UTEMP is a scratch page used by user programs.
	UTEMP = PTSIZE

	// PFTEMP is used by the user page fault handler.
	PFTEMP = UTEMP + PTSIZE - PGSIZE
)
