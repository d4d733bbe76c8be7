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

// Package jos contains the constants and types shared between the kernel
// and the user environments it runs: syscall numbers, page table entry
// bits, the virtual memory layout and environment status values.
package jos

import "fmt"

// Syscall numbers, as in inc/syscall.h. They are part of the user ABI and
// must not be reordered.
const (
	SYS_cputs = iota
	SYS_cgetc
	SYS_getenvid
	SYS_env_destroy
	SYS_page_alloc
	SYS_page_map
	SYS_page_unmap
	SYS_exofork
	SYS_env_set_status
	SYS_env_set_trapframe
	SYS_env_set_pgfault_upcall
	SYS_yield
	SYS_ipc_try_send
	SYS_ipc_recv
	SYS_change_priority

	NSYSCALLS
)

// T_SYSCALL is the trap number used for system calls.
const T_SYSCALL = 48

var syscallNames = [NSYSCALLS]string{
	SYS_cputs:                  "cputs",
	SYS_cgetc:                  "cgetc",
	SYS_getenvid:               "getenvid",
	SYS_env_destroy:            "env_destroy",
	SYS_page_alloc:             "page_alloc",
	SYS_page_map:               "page_map",
	SYS_page_unmap:             "page_unmap",
	SYS_exofork:                "exofork",
	SYS_env_set_status:         "env_set_status",
	SYS_env_set_trapframe:      "env_set_trapframe",
	SYS_env_set_pgfault_upcall: "env_set_pgfault_upcall",
	SYS_yield:                  "yield",
	SYS_ipc_try_send:           "ipc_try_send",
	SYS_ipc_recv:               "ipc_recv",
	SYS_change_priority:        "change_priority",
}

// SyscallName returns the name of syscall sysno.
func SyscallName(sysno uintptr) string {
	if sysno < NSYSCALLS {
		return syscallNames[sysno]
	}
	return fmt.Sprintf("sys_%d", sysno)
}

// SyscallNumber returns the number of the syscall with the given name.
func SyscallNumber(name string) (uintptr, bool) {
	for i, n := range syscallNames {
		if n == name {
			return uintptr(i), true
		}
	}
	return 0, false
}

// SyscallNames returns the names of all syscalls in number order.
func SyscallNames() []string {
	return append([]string(nil), syscallNames[:]...)
}
