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

import "fmt"

// Environment id layout, as in inc/env.h:
//
//	+1+---------------21-----------------+--------10--------+
//	|0|          Uniqueifier             |   Environment    |
//	| |                                  |      Index       |
//	+------------------------------------+------------------+
//	                                      \--- ENVX(eid) --/
const (
	// LOG2NENV is the default log2 of the environment table size.
	LOG2NENV = 10

	// NENV is the default environment table size.
	NENV = 1 << LOG2NENV

	// ENVGENSHIFT is the shift of the generation in an environment id.
	// It bounds the table size to 1<<ENVGENSHIFT slots.
	ENVGENSHIFT = 12
)

// EnvStatus is the scheduling status of an environment.
type EnvStatus uint32

// Values of EnvStatus.
const (
	ENV_FREE EnvStatus = iota
	ENV_DYING
	ENV_RUNNABLE
	ENV_NOT_RUNNABLE
)

// String implements fmt.Stringer.String.
func (s EnvStatus) String() string {
	switch s {
	case ENV_FREE:
		return "FREE"
	case ENV_DYING:
		return "DYING"
	case ENV_RUNNABLE:
		return "RUNNABLE"
	case ENV_NOT_RUNNABLE:
		return "NOT_RUNNABLE"
	default:
		return fmt.Sprintf("EnvStatus(%d)", uint32(s))
	}
}

// EnvInfoSize is the size of one record in the read-only environment
// table mapped at UENVS. A record holds, as little-endian uint32s: id,
// parent id, status, ipc_recving, ipc_dstva, ipc_value, ipc_from,
// ipc_perm.
const EnvInfoSize = 32
