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

// Segment selectors, as in inc/memlayout.h.
const (
	GD_KT   = 0x08 // kernel text
	GD_KD   = 0x10 // kernel data
	GD_UT   = 0x18 // user text
	GD_UD   = 0x20 // user data
	GD_TSS0 = 0x28
)

// EFLAGS bits, as in inc/mmu.h.
const (
	FL_IF        = 0x00000200 // Interrupt Flag
	FL_IOPL_MASK = 0x00003000 // I/O Privilege Level bitmask
	FL_IOPL_3    = 0x00003000 // IOPL == 3
)

// Page fault error codes.
const (
	FEC_PR = 0x1 // Page fault caused by protection violation
	FEC_WR = 0x2 // Page fault caused by a write
	FEC_U  = 0x4 // Page fault occurred while in user mode
)

// T_PGFLT is the page fault trap number.
const T_PGFLT = 14
