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
	"bytes"
	"fmt"

	"jos.dev/jos/pkg/abi/jos"
	"jos.dev/jos/pkg/hostarch"
	"jos.dev/jos/pkg/log"
	"jos.dev/jos/pkg/sentry/arch"
)

// PageFault reflects a page fault at va with error code ec, taken by
// environment id in user mode, to the environment's upcall. A UTrapframe
// is pushed on the user exception stack and the environment resumes at
// the upcall. It returns false if the environment had to be destroyed
// instead: it has no upcall, or its exception stack is not mapped
// writable.
func (k *Kernel) PageFault(id EnvID, va hostarch.Addr, ec uint32) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	e, err := k.lookupLocked(id, nil, false)
	if err != nil {
		return false, fmt.Errorf("page fault in %v: %w", id, err)
	}
	if e.status != jos.ENV_RUNNABLE {
		return false, fmt.Errorf("page fault in %v: %w (%v)", id, ErrNotRunnable, e.status)
	}
	if k.curenv != e {
		k.runLocked(e)
	}
	e.tf.TrapNo = jos.T_PGFLT
	e.tf.Err = ec
	delivered := k.pageFaultLocked(e, va)
	k.syncEnvInfoLocked()
	return delivered, nil
}

// pageFaultLocked handles a page fault in e.
//
// Preconditions: k.mu is held. e is k.curenv.
func (k *Kernel) pageFaultLocked(e *Env, va hostarch.Addr) bool {
	if !e.tf.UserMode() {
		panic(fmt.Sprintf("page fault in kernel mode at va %v, eip %v", va, e.tf.IP()))
	}

	if e.pgfaultUpcall != 0 {
		// A fault taken on the exception stack nests below the current
		// frame, leaving one empty word.
		utfAddr := hostarch.Addr(jos.UXSTACKTOP - arch.UTrapframeSize)
		if esp := e.tf.Stack(); esp >= jos.UXSTACKTOP-hostarch.PageSize && esp < jos.UXSTACKTOP {
			utfAddr = esp - 4 - arch.UTrapframeSize
		}
		bad, err := e.mm.CheckAccess(utfAddr, arch.UTrapframeSize, hostarch.Write)
		if err == nil {
			utf := arch.NewUTrapframe(&e.tf, va)
			b, err := utf.MarshalBinary()
			if err == nil {
				err = e.mm.CopyOut(utfAddr, b)
			}
			if err != nil {
				panic(fmt.Sprintf("writing checked exception stack of %v: %v", e.id, err))
			}
			e.tf.SetIP(e.pgfaultUpcall)
			e.tf.SetStack(utfAddr)
			pageFaults.Increment("upcall")
			return true
		}
		k.faultLog.Infof("[%v] user_mem_check assertion failure for va %08x", e.id, uint32(bad))
	} else {
		k.faultLog.Infof("[%v] user fault va %08x ip %08x", e.id, uint32(va), e.tf.EIP)
		if k.log.IsLogging(log.Debug) {
			var buf bytes.Buffer
			e.tf.Dump(&buf)
			e.Debugf("trap frame:\n%s", buf.String())
		}
	}

	pageFaults.Increment("destroyed")
	k.destroyLocked(e)
	k.yieldLocked()
	return false
}
