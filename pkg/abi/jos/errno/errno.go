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

// Package errno holds the kernel error numbers. Syscalls return them
// negated in EAX.
package errno

// Errno represents a kernel error number.
type Errno uint32

// Error numbers from inc/error.h.
const (
	NOERRNO Errno = iota
	E_UNSPECIFIED
	E_BAD_ENV
	E_INVAL
	E_NO_MEM
	E_NO_FREE_ENV
	E_FAULT
	E_IPC_NOT_RECV
	E_EOF

	// MAXERROR is one past the largest known error number.
	MAXERROR
)

var names = [...]string{
	NOERRNO:        "NOERRNO",
	E_UNSPECIFIED:  "E_UNSPECIFIED",
	E_BAD_ENV:      "E_BAD_ENV",
	E_INVAL:        "E_INVAL",
	E_NO_MEM:       "E_NO_MEM",
	E_NO_FREE_ENV:  "E_NO_FREE_ENV",
	E_FAULT:        "E_FAULT",
	E_IPC_NOT_RECV: "E_IPC_NOT_RECV",
	E_EOF:          "E_EOF",
}

// String implements fmt.Stringer.String.
func (e Errno) String() string {
	if e < MAXERROR {
		return names[e]
	}
	return "E_UNKNOWN"
}

// Names returns the names of all known error numbers, NOERRNO excluded.
func Names() []string {
	return append([]string(nil), names[1:]...)
}
