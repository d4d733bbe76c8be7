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

package kernel

import (
	"jos.dev/jos/pkg/abi/jos"
	"jos.dev/jos/pkg/abi/jos/errno"
	"jos.dev/jos/pkg/metric"
)

const unknownSyscall = "unknown"

var (
	syscallCount = metric.MustCreateNewUint64Metric("/kernel/syscalls", "Number of syscalls executed, by name.",
		metric.NewField("sysno", append(jos.SyscallNames(), unknownSyscall)))
	syscallErrors = metric.MustCreateNewUint64Metric("/kernel/syscall_errors", "Number of syscalls that returned an error, by error.",
		metric.NewField("errno", errno.Names()))
	envsCreated   = metric.MustCreateNewUint64Metric("/kernel/envs_created", "Number of environments allocated.")
	envsDestroyed = metric.MustCreateNewUint64Metric("/kernel/envs_destroyed", "Number of environments freed.")
	schedules     = metric.MustCreateNewUint64Metric("/kernel/schedules", "Number of times an environment was given the CPU.")
	ipcSends      = metric.MustCreateNewUint64Metric("/kernel/ipc_sends", "Number of ipc_try_send calls, by result.",
		metric.NewField("result", []string{"value", "page", "not_recv", "error"}))
	pageFaults = metric.MustCreateNewUint64Metric("/kernel/page_faults", "Number of user page faults, by outcome.",
		metric.NewField("outcome", []string{"upcall", "destroyed"}))
	bufferFaults = metric.MustCreateNewUint64Metric("/kernel/buffer_faults", "Number of environments destroyed for passing an inaccessible buffer to a syscall.")
)

// metricSyscallName returns the sysno field value for sysno.
func metricSyscallName(sysno uintptr) string {
	if sysno < jos.NSYSCALLS {
		return jos.SyscallName(sysno)
	}
	return unknownSyscall
}
