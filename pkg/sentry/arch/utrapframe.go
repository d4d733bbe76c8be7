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

package arch

import (
	"encoding/binary"

	"jos.dev/jos/pkg/hostarch"
)

// UTrapframe is pushed on the user exception stack when a page fault is
// reflected to an environment's upcall.
type UTrapframe struct {
	FaultVA uint32
	Err     uint32
	Regs    PushRegs
	EIP     uint32
	EFlags  uint32
	ESP     uint32
}

// UTrapframeSize is the size of an encoded UTrapframe.
const UTrapframeSize = 52

// NewUTrapframe captures the state of tf at a fault on va.
func NewUTrapframe(tf *TrapFrame, va hostarch.Addr) UTrapframe {
	return UTrapframe{
		FaultVA: uint32(va),
		Err:     tf.Err,
		Regs:    tf.Regs,
		EIP:     tf.EIP,
		EFlags:  tf.EFlags,
		ESP:     tf.ESP,
	}
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (u *UTrapframe) MarshalBinary() ([]byte, error) {
	return binary.Append(make([]byte, 0, UTrapframeSize), binary.LittleEndian, u)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (u *UTrapframe) UnmarshalBinary(src []byte) error {
	_, err := binary.Decode(src, binary.LittleEndian, u)
	return err
}
