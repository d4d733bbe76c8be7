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
	"jos.dev/jos/pkg/errors/joserr"
	"jos.dev/jos/pkg/hostarch"
)

// Recv blocks e until another environment sends to it. If dstva is below
// UTOP, e is willing to receive a page there. On success the caller must
// yield: the syscall completes when a sender writes the result.
func (e *Env) Recv(dstva hostarch.Addr) error {
	if dstva.IsUser() && !dstva.IsPageAligned() {
		return joserr.EInval
	}
	e.ipc.Recving = true
	e.ipc.DstVA = dstva
	e.ipc.From = 0
	e.ipc.Perm = 0
	e.status = jos.ENV_NOT_RUNNABLE
	e.k.markDirtyLocked(e)
	return nil
}

// TrySend sends value to the environment id, which may be any
// environment. If srcva is below UTOP, the page mapped there is sent too
// and is mapped in the receiver if it asked for a page. It fails with
// EIPCNotRecv if the target is not blocked in Recv, including when
// another sender completed the receive first.
func (e *Env) TrySend(id EnvID, value uint32, srcva hostarch.Addr, perm jos.PTEFlags) error {
	target, err := e.k.LookupUnchecked(id, e)
	if err != nil {
		return err
	}
	if !target.ipc.Recving || target.ipc.From != 0 {
		ipcSends.Increment("not_recv")
		return joserr.EIPCNotRecv
	}

	var sentPerm jos.PTEFlags
	if srcva.IsUser() {
		fn, err := e.mm.SharedPage(srcva, perm)
		if err != nil {
			ipcSends.Increment("error")
			return err
		}
		if target.ipc.DstVA.IsUser() {
			if err := target.mm.InsertPage(target.ipc.DstVA, fn, perm); err != nil {
				ipcSends.Increment("error")
				return err
			}
			sentPerm = perm
		}
	}

	target.ipc.Recving = false
	target.ipc.From = e.id
	target.ipc.Value = value
	target.ipc.Perm = sentPerm
	target.status = jos.ENV_RUNNABLE
	target.tf.SetReturn(0)
	e.k.markDirtyLocked(target)
	if sentPerm != 0 {
		ipcSends.Increment("page")
	} else {
		ipcSends.Increment("value")
	}
	return nil
}
