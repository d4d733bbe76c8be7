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
	"fmt"

	"jos.dev/jos/pkg/abi/jos"
	"jos.dev/jos/pkg/log"
)

// scheduleLocked picks the next environment to run: the RUNNABLE
// environment with the highest priority, scanning the table circularly
// from the slot after the current environment. The current environment
// is considered last, so equal priorities round-robin. It returns nil if
// nothing is runnable.
//
// Preconditions: k.mu is held.
func (k *Kernel) scheduleLocked() *Env {
	n := uint32(len(k.envs))
	var start uint32
	if k.curenv != nil {
		start = k.curenv.slot + 1
	}
	var best *Env
	for i := uint32(0); i < n; i++ {
		e := &k.envs[(start+i)%n]
		if e.status != jos.ENV_RUNNABLE {
			continue
		}
		if best == nil || e.priority > best.priority {
			best = e
		}
	}
	return best
}

// runLocked gives the CPU to e.
//
// Preconditions: k.mu is held. e is RUNNABLE.
func (k *Kernel) runLocked(e *Env) {
	if k.curenv != e && k.log.IsLogging(log.Debug) {
		e.Debugf("scheduled")
	}
	k.curenv = e
	e.runs++
	schedules.Increment()
}

// Yield gives up the CPU and runs the next environment. It returns the
// environment now running, or nil if the CPU is idle.
func (k *Kernel) Yield() *Env {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.yieldLocked()
}

// yieldLocked is Yield with k.mu held.
func (k *Kernel) yieldLocked() *Env {
	next := k.scheduleLocked()
	if next == nil {
		k.curenv = nil
		return nil
	}
	k.runLocked(next)
	return next
}

// Run gives the CPU to the environment id, which must be RUNNABLE.
func (k *Kernel) Run(id EnvID) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, err := k.lookupLocked(id, nil, false)
	if err != nil {
		return err
	}
	if e.status != jos.ENV_RUNNABLE {
		return fmt.Errorf("environment %v is %v", e.id, e.status)
	}
	k.runLocked(e)
	return nil
}
