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

// Package jos provides the syscall table of the JOS kernel.
package jos

import (
	"jos.dev/jos/pkg/abi/jos"
	"jos.dev/jos/pkg/hostarch"
	"jos.dev/jos/pkg/sentry/arch"
	"jos.dev/jos/pkg/sentry/kernel"
)

// JOS is the table of JOS syscalls, numbered as in inc/syscall.h.
var JOS = &kernel.SyscallTable{
	Name: "jos",
	Table: map[uintptr]kernel.Syscall{
		jos.SYS_cputs: {
			Name:    "cputs",
			Fn:      Cputs,
			Buffers: []kernel.BufferArg{{Addr: 0, Len: 1, Access: hostarch.Read}},
		},
		jos.SYS_cgetc:          {Name: "cgetc", Fn: Cgetc},
		jos.SYS_getenvid:       {Name: "getenvid", Fn: Getenvid},
		jos.SYS_env_destroy:    {Name: "env_destroy", Fn: EnvDestroy},
		jos.SYS_page_alloc:     {Name: "page_alloc", Fn: PageAlloc},
		jos.SYS_page_map:       {Name: "page_map", Fn: PageMap},
		jos.SYS_page_unmap:     {Name: "page_unmap", Fn: PageUnmap},
		jos.SYS_exofork:        {Name: "exofork", Fn: Exofork},
		jos.SYS_env_set_status: {Name: "env_set_status", Fn: EnvSetStatus},
		jos.SYS_env_set_trapframe: {
			Name:    "env_set_trapframe",
			Fn:      EnvSetTrapframe,
			Buffers: []kernel.BufferArg{{Addr: 1, Size: arch.TrapFrameSize, Access: hostarch.Read}},
		},
		jos.SYS_env_set_pgfault_upcall: {Name: "env_set_pgfault_upcall", Fn: EnvSetPgfaultUpcall},
		jos.SYS_yield:                  {Name: "yield", Fn: Yield},
		jos.SYS_ipc_try_send:           {Name: "ipc_try_send", Fn: IpcTrySend},
		jos.SYS_ipc_recv:               {Name: "ipc_recv", Fn: IpcRecv},
		jos.SYS_change_priority:        {Name: "change_priority", Fn: ChangePriority},
	},
}

func init() {
	JOS.Init()
}
