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

// Package joserr contains the kernel error codes exported as error
// interface pointers, comparable by identity.
package joserr

import (
	"errors"
	"fmt"

	"jos.dev/jos/pkg/abi/jos/errno"
	joserrors "jos.dev/jos/pkg/errors"
)

// The kernel's error taxonomy.
var (
	noError *joserrors.Error = nil

	EUnspecified = joserrors.New(errno.E_UNSPECIFIED, "unspecified or unknown problem")
	EBadEnv      = joserrors.New(errno.E_BAD_ENV, "environment not found")
	EInval       = joserrors.New(errno.E_INVAL, "invalid parameter")
	ENoMem       = joserrors.New(errno.E_NO_MEM, "out of memory")
	ENoFreeEnv   = joserrors.New(errno.E_NO_FREE_ENV, "out of environments")
	EFault       = joserrors.New(errno.E_FAULT, "segmentation fault")
	EIPCNotRecv  = joserrors.New(errno.E_IPC_NOT_RECV, "env is not recving")
	EEOF         = joserrors.New(errno.E_EOF, "unexpected end of file")
)

var errorSlice = [errno.MAXERROR]*joserrors.Error{
	errno.NOERRNO:        noError,
	errno.E_UNSPECIFIED:  EUnspecified,
	errno.E_BAD_ENV:      EBadEnv,
	errno.E_INVAL:        EInval,
	errno.E_NO_MEM:       ENoMem,
	errno.E_NO_FREE_ENV:  ENoFreeEnv,
	errno.E_FAULT:        EFault,
	errno.E_IPC_NOT_RECV: EIPCNotRecv,
	errno.E_EOF:          EEOF,
}

// ErrorFromErrno returns the *errors.Error for e. Unknown values map to
// EUnspecified.
func ErrorFromErrno(e errno.Errno) *joserrors.Error {
	if e < errno.MAXERROR {
		return errorSlice[e]
	}
	return EUnspecified
}

// ToErrno returns the errno of err. Errors that are not kernel errors are
// reported as E_UNSPECIFIED.
func ToErrno(err error) errno.Errno {
	if err == nil {
		return errno.NOERRNO
	}
	var e *joserrors.Error
	if errors.As(err, &e) && e != nil {
		return e.Errno()
	}
	return errno.E_UNSPECIFIED
}

// Negate returns the value a syscall leaves in EAX when it fails with err:
// the negated error number.
func Negate(err error) int32 {
	return -int32(ToErrno(err))
}

// FromReturn converts a syscall return value back into an error. Non
// negative values are successes and yield nil.
func FromReturn(ret int32) error {
	if ret >= 0 {
		return nil
	}
	if e := ErrorFromErrno(errno.Errno(-ret)); e != nil {
		return e
	}
	return EUnspecified
}

// Equals returns true if error e is the kernel error target.
func Equals(target *joserrors.Error, err error) bool {
	if target == nil {
		return err == nil
	}
	return errors.Is(err, target)
}

// Describe returns "NAME (message)" for err, for log lines.
func Describe(err error) string {
	no := ToErrno(err)
	if err == nil {
		return no.String()
	}
	return fmt.Sprintf("%s (%v)", no, err)
}
