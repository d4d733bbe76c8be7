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
	"encoding/binary"

	"jos.dev/jos/pkg/abi/jos"
	"jos.dev/jos/pkg/hostarch"
	"jos.dev/jos/pkg/sentry/mm"
)

// EnvInfo is the record published for each slot in the read-only table at
// UENVS, through which environments inspect each other (for example to
// poll a child's status or find their own id).
type EnvInfo struct {
	ID       EnvID
	ParentID EnvID
	Status   jos.EnvStatus
	Recving  uint32
	DstVA    uint32
	Value    uint32
	From     EnvID
	Perm     uint32
}

// envInfoAddr returns the user address of the record for slot.
func envInfoAddr(slot uint32) hostarch.Addr {
	return hostarch.Addr(jos.UENVS + slot*jos.EnvInfoSize)
}

// markDirtyLocked schedules e's record for publication.
//
// Preconditions: k.mu is held.
func (k *Kernel) markDirtyLocked(e *Env) {
	k.dirty.Add(e.slot)
}

// syncEnvInfoLocked publishes the records of all dirty slots. It runs
// before control returns to user mode.
//
// Preconditions: k.mu is held.
func (k *Kernel) syncEnvInfoLocked() {
	k.dirty.ForEach(0, k.dirty.Size(), func(slot uint32) bool {
		info := k.envs[slot].info()
		off := slot * jos.EnvInfoSize
		page := k.mf.Data(k.envInfo[off/hostarch.PageSize])
		pageOff := off % hostarch.PageSize
		if _, err := binary.Encode(page[pageOff:pageOff+jos.EnvInfoSize], binary.LittleEndian, &info); err != nil {
			panic("encoding environment record: " + err.Error())
		}
		return true
	})
	k.dirty.Reset()
}

// info returns e's published record.
//
// Preconditions: e.k.mu is held.
func (e *Env) info() EnvInfo {
	info := EnvInfo{
		ID:       e.id,
		ParentID: e.parentID,
		Status:   e.status,
		DstVA:    uint32(e.ipc.DstVA),
		Value:    e.ipc.Value,
		From:     e.ipc.From,
		Perm:     uint32(e.ipc.Perm),
	}
	if e.ipc.Recving {
		info.Recving = 1
	}
	return info
}

// ReadEnvInfo reads the record of slot through an address space, as an
// environment would.
func ReadEnvInfo(as *mm.MemoryManager, slot uint32) (EnvInfo, error) {
	var buf [jos.EnvInfoSize]byte
	if err := as.CopyIn(envInfoAddr(slot), buf[:]); err != nil {
		return EnvInfo{}, err
	}
	var info EnvInfo
	if _, err := binary.Decode(buf[:], binary.LittleEndian, &info); err != nil {
		return EnvInfo{}, err
	}
	return info, nil
}
