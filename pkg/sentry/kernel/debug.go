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
	"jos.dev/jos/pkg/hostarch"
	"jos.dev/jos/pkg/ring0/pagetables"
	"jos.dev/jos/pkg/sentry/pgalloc"
)

// EnvSummary describes one environment for the debug monitor.
type EnvSummary struct {
	EnvInfo
	Name     string
	Priority int32
	Runs     uint32
	Upcall   hostarch.Addr
	Current  bool
}

// Summaries returns a consistent snapshot of every environment that is
// not FREE, in slot order.
func (k *Kernel) Summaries() []EnvSummary {
	k.mu.Lock()
	defer k.mu.Unlock()
	var s []EnvSummary
	k.used.ForEach(0, k.used.Size(), func(slot uint32) bool {
		e := &k.envs[slot]
		s = append(s, EnvSummary{
			EnvInfo:  e.info(),
			Name:     e.name,
			Priority: e.priority,
			Runs:     e.runs,
			Upcall:   e.pgfaultUpcall,
			Current:  e == k.curenv,
		})
		return true
	})
	return s
}

// Inspect calls fn with the kernel lock held, passing the page tables of
// environment id, or the kernel template if id is 0, and physical memory.
// fn may modify mappings but must not take the kernel lock.
func (k *Kernel) Inspect(id EnvID, fn func(pt *pagetables.PageTables, mf *pgalloc.MemoryFile) error) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if id == 0 {
		return fn(k.kernTables, k.mf)
	}
	e, err := k.lookupLocked(id, nil, false)
	if err != nil {
		return err
	}
	return fn(e.mm.PageTables(), k.mf)
}

// ReadMemory copies n bytes at addr out of the address space of
// environment id. Permissions are not checked.
func (k *Kernel) ReadMemory(id EnvID, addr hostarch.Addr, n int) ([]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, err := k.lookupLocked(id, nil, false)
	if err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if err := e.mm.CopyIn(addr, b); err != nil {
		return nil, err
	}
	return b, nil
}

// WriteMemory copies src into the address space of environment id at
// addr, as a loader would. Permissions are not checked.
func (k *Kernel) WriteMemory(id EnvID, addr hostarch.Addr, src []byte) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, err := k.lookupLocked(id, nil, false)
	if err != nil {
		return err
	}
	return e.mm.CopyOut(addr, src)
}
