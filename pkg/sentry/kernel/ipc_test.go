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
	"testing"

	"golang.org/x/sync/errgroup"

	"jos.dev/jos/pkg/abi/jos"
	"jos.dev/jos/pkg/errors/joserr"
	"jos.dev/jos/pkg/hostarch"
)

func TestIPCValue(t *testing.T) {
	k, _ := newTestKernel(t, 8, 64)
	sender := createEnv(t, k, "sender")
	receiver := createEnv(t, k, "receiver")

	res := call(t, k, receiver.ID(), jos.SYS_ipc_recv, jos.UTOP)
	if res.Outcome != SyscallBlocked {
		t.Fatalf("ipc_recv outcome = %v, want %v", res.Outcome, SyscallBlocked)
	}
	if got := receiver.Status(); got != jos.ENV_NOT_RUNNABLE {
		t.Errorf("receiver status = %v, want NOT_RUNNABLE", got)
	}
	if res.Next != sender.ID() {
		t.Errorf("CPU went to %v, want %v", res.Next, sender.ID())
	}

	if res := call(t, k, sender.ID(), jos.SYS_ipc_try_send, uintptr(receiver.ID()), 42, jos.UTOP, 0); res.Ret != 0 {
		t.Fatalf("ipc_try_send = %d", res.Ret)
	}
	want := IPCState{DstVA: jos.UTOP, Value: 42, From: sender.ID()}
	if got := receiver.IPC(); got != want {
		t.Errorf("receiver IPC = %+v, want %+v", got, want)
	}
	if got := receiver.Status(); got != jos.ENV_RUNNABLE {
		t.Errorf("receiver status = %v, want RUNNABLE", got)
	}
	tf := receiver.TrapFrame()
	if got := tf.Return(); got != 0 {
		t.Errorf("receiver EAX = %d, want 0", got)
	}

	// The receive is complete; a second send finds nobody waiting.
	if res := call(t, k, sender.ID(), jos.SYS_ipc_try_send, uintptr(receiver.ID()), 43, jos.UTOP, 0); res.Err() != joserr.EIPCNotRecv {
		t.Errorf("second ipc_try_send = %d, want %v", res.Ret, joserr.EIPCNotRecv)
	}
	if got := receiver.IPC().Value; got != 42 {
		t.Errorf("value overwritten with %d", got)
	}
}

func TestIPCErrors(t *testing.T) {
	k, _ := newTestKernel(t, 8, 64)
	sender := createEnv(t, k, "sender")
	idle := createEnv(t, k, "idle")

	if res := call(t, k, sender.ID(), jos.SYS_ipc_try_send, uintptr(idle.ID()), 1, jos.UTOP, 0); res.Err() != joserr.EIPCNotRecv {
		t.Errorf("send to non-receiver = %d, want %v", res.Ret, joserr.EIPCNotRecv)
	}
	if res := call(t, k, sender.ID(), jos.SYS_ipc_try_send, uintptr(idle.ID()+1<<jos.ENVGENSHIFT), 1, jos.UTOP, 0); res.Err() != joserr.EBadEnv {
		t.Errorf("send to stale id = %d, want %v", res.Ret, joserr.EBadEnv)
	}
	res := call(t, k, idle.ID(), jos.SYS_ipc_recv, 0x600001)
	if res.Err() != joserr.EInval || res.Outcome != SyscallReturned {
		t.Errorf("ipc_recv at unaligned address = %+v, want %v", res, joserr.EInval)
	}
	if idle.IPC().Recving {
		t.Errorf("failed ipc_recv left the environment receiving")
	}
}

func TestIPCPage(t *testing.T) {
	k, _ := newTestKernel(t, 8, 64)
	sender := createEnv(t, k, "sender")
	receiver := createEnv(t, k, "receiver")

	const srcva, dstva = 0x800000, 0x600000
	if res := call(t, k, sender.ID(), jos.SYS_page_alloc, 0, srcva, uintptr(userRW)); res.Ret != 0 {
		t.Fatalf("page_alloc = %d", res.Ret)
	}
	if err := sender.MemoryManager().CopyOut(srcva, []byte("ping")); err != nil {
		t.Fatalf("CopyOut: %v", err)
	}
	fn, _, _ := sender.MemoryManager().Lookup(srcva)

	call(t, k, receiver.ID(), jos.SYS_ipc_recv, dstva)

	for _, tc := range []struct {
		name  string
		srcva uintptr
		perm  jos.PTEFlags
	}{
		{"unaligned", srcva + 1, userRO},
		{"unmapped", srcva + hostarch.PageSize, userRO},
		{"bad perm", srcva, jos.PTE_P},
		{"write to read-only", jos.USTACKTOP - hostarch.PageSize, userRW},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if tc.name == "write to read-only" {
				// Remap the stack read-only first.
				k.mu.Lock()
				sender.MemoryManager().SetPerm(jos.USTACKTOP-hostarch.PageSize, userRO)
				k.mu.Unlock()
			}
			res := call(t, k, sender.ID(), jos.SYS_ipc_try_send, uintptr(receiver.ID()), 1, tc.srcva, uintptr(tc.perm))
			if res.Err() != joserr.EInval {
				t.Errorf("ipc_try_send = %d, want %v", res.Ret, joserr.EInval)
			}
			if !receiver.IPC().Recving {
				t.Errorf("failed send completed the receive")
			}
		})
	}

	if res := call(t, k, sender.ID(), jos.SYS_ipc_try_send, uintptr(receiver.ID()), 7, srcva, uintptr(userRW)); res.Ret != 0 {
		t.Fatalf("ipc_try_send = %d", res.Ret)
	}
	got, perm, ok := receiver.MemoryManager().Lookup(dstva)
	if !ok || got != fn || perm != userRW {
		t.Errorf("receiver mapping = %v %v %t, want %v %v", got, perm, ok, fn, userRW)
	}
	if refs := k.MemoryFile().Refs(fn); refs != 2 {
		t.Errorf("frame refs = %d, want 2", refs)
	}
	if p := receiver.IPC().Perm; p != userRW {
		t.Errorf("received perm = %v, want %v", p, userRW)
	}
	buf := make([]byte, 4)
	if err := receiver.MemoryManager().CopyIn(dstva, buf); err != nil || string(buf) != "ping" {
		t.Errorf("receiver reads %q, %v", buf, err)
	}
}

func TestIPCPageNotWanted(t *testing.T) {
	k, _ := newTestKernel(t, 8, 64)
	sender := createEnv(t, k, "sender")
	receiver := createEnv(t, k, "receiver")

	const srcva = 0x800000
	call(t, k, sender.ID(), jos.SYS_page_alloc, 0, srcva, uintptr(userRW))
	fn, _, _ := sender.MemoryManager().Lookup(srcva)

	call(t, k, receiver.ID(), jos.SYS_ipc_recv, jos.UTOP)
	if res := call(t, k, sender.ID(), jos.SYS_ipc_try_send, uintptr(receiver.ID()), 7, srcva, uintptr(userRW)); res.Ret != 0 {
		t.Fatalf("ipc_try_send = %d", res.Ret)
	}
	if p := receiver.IPC().Perm; p != 0 {
		t.Errorf("received perm = %v, want 0", p)
	}
	if refs := k.MemoryFile().Refs(fn); refs != 1 {
		t.Errorf("frame refs = %d, want 1", refs)
	}
}

// Two environments race to send to one receiver. Exactly one send must
// complete the receive.
func TestIPCConcurrentSenders(t *testing.T) {
	for iter := 0; iter < 20; iter++ {
		k, _ := newTestKernel(t, 8, 64)
		receiver := createEnv(t, k, "receiver")
		senders := []*Env{createEnv(t, k, "a"), createEnv(t, k, "b")}
		call(t, k, receiver.ID(), jos.SYS_ipc_recv, jos.UTOP)

		results := make([]SyscallResult, len(senders))
		var g errgroup.Group
		for i, s := range senders {
			g.Go(func() error {
				res, err := k.Syscall(s.ID(), jos.SYS_ipc_try_send, args(uintptr(receiver.ID()), uintptr(100+i), jos.UTOP, 0))
				results[i] = res
				return err
			})
		}
		if err := g.Wait(); err != nil {
			t.Fatalf("Syscall: %v", err)
		}

		var ok, notRecv int
		winner := -1
		for i, res := range results {
			switch res.Err() {
			case nil:
				ok++
				winner = i
			case joserr.EIPCNotRecv:
				notRecv++
			default:
				t.Errorf("sender %d: unexpected result %d", i, res.Ret)
			}
		}
		if ok != 1 || notRecv != 1 {
			t.Fatalf("%d sends succeeded and %d found no receiver, want 1 and 1", ok, notRecv)
		}
		want := IPCState{DstVA: jos.UTOP, Value: uint32(100 + winner), From: senders[winner].ID()}
		if got := receiver.IPC(); got != want {
			t.Errorf("receiver IPC = %+v, want %+v", got, want)
		}
	}
}
