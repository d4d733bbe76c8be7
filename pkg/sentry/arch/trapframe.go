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
	"fmt"
	"io"

	"jos.dev/jos/pkg/abi/jos"
	"jos.dev/jos/pkg/hostarch"
)

// PushRegs are the general purpose registers in pushal order.
type PushRegs struct {
	EDI  uint32
	ESI  uint32
	EBP  uint32
	OESP uint32 // Useless.
	EBX  uint32
	EDX  uint32
	ECX  uint32
	EAX  uint32
}

// TrapFrame is the saved register state of an environment that is not
// running.
type TrapFrame struct {
	Regs   PushRegs
	ES     uint16
	_      uint16
	DS     uint16
	_      uint16
	TrapNo uint32

	// Pushed by the hardware.
	Err    uint32
	EIP    uint32
	CS     uint16
	_      uint16
	EFlags uint32

	// Only when crossing rings.
	ESP uint32
	SS  uint16
	_   uint16
}

// TrapFrameSize is the size of an encoded TrapFrame.
const TrapFrameSize = 68

// NewUserTrapFrame returns the initial frame of a user environment: user
// segments, interrupts enabled and the given stack and entry point.
func NewUserTrapFrame(entry, stack hostarch.Addr) TrapFrame {
	return TrapFrame{
		DS:     jos.GD_UD | 3,
		ES:     jos.GD_UD | 3,
		SS:     jos.GD_UD | 3,
		CS:     jos.GD_UT | 3,
		ESP:    uint32(stack),
		EIP:    uint32(entry),
		EFlags: jos.FL_IF,
	}
}

// SyscallNo returns the syscall number.
func (tf *TrapFrame) SyscallNo() uintptr {
	return uintptr(tf.Regs.EAX)
}

// SyscallArgs returns the syscall arguments: EDX, ECX, EBX, EDI, ESI.
func (tf *TrapFrame) SyscallArgs() SyscallArguments {
	return SyscallArguments{
		{Value: uintptr(tf.Regs.EDX)},
		{Value: uintptr(tf.Regs.ECX)},
		{Value: uintptr(tf.Regs.EBX)},
		{Value: uintptr(tf.Regs.EDI)},
		{Value: uintptr(tf.Regs.ESI)},
	}
}

// SetSyscall loads a syscall number and arguments into the registers.
func (tf *TrapFrame) SetSyscall(no uintptr, args SyscallArguments) {
	tf.Regs.EAX = uint32(no)
	tf.Regs.EDX = uint32(args[0].Value)
	tf.Regs.ECX = uint32(args[1].Value)
	tf.Regs.EBX = uint32(args[2].Value)
	tf.Regs.EDI = uint32(args[3].Value)
	tf.Regs.ESI = uint32(args[4].Value)
	tf.TrapNo = jos.T_SYSCALL
}

// Return returns the return value for a system call.
func (tf *TrapFrame) Return() uintptr {
	return uintptr(tf.Regs.EAX)
}

// SetReturn sets the return value for a system call.
func (tf *TrapFrame) SetReturn(value uintptr) {
	tf.Regs.EAX = uint32(value)
}

// IP returns the current instruction pointer.
func (tf *TrapFrame) IP() hostarch.Addr {
	return hostarch.Addr(tf.EIP)
}

// SetIP sets the current instruction pointer.
func (tf *TrapFrame) SetIP(value hostarch.Addr) {
	tf.EIP = uint32(value)
}

// Stack returns the current stack pointer.
func (tf *TrapFrame) Stack() hostarch.Addr {
	return hostarch.Addr(tf.ESP)
}

// SetStack sets the current stack pointer.
func (tf *TrapFrame) SetStack(value hostarch.Addr) {
	tf.ESP = uint32(value)
}

// UserMode returns true if the frame was saved at CPL 3.
func (tf *TrapFrame) UserMode() bool {
	return tf.CS&3 == 3
}

// Sanitize forces a frame supplied by an environment to run at CPL 3 with
// interrupts enabled and IOPL 0.
func (tf *TrapFrame) Sanitize() {
	tf.CS |= 3
	tf.SS |= 3
	tf.DS |= 3
	tf.ES |= 3
	tf.EFlags |= jos.FL_IF
	tf.EFlags &^= jos.FL_IOPL_MASK
}

// MarshalBinary implements encoding.BinaryMarshaler. The layout is the
// in-memory struct Trapframe layout.
func (tf *TrapFrame) MarshalBinary() ([]byte, error) {
	return binary.Append(make([]byte, 0, TrapFrameSize), binary.LittleEndian, tf)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (tf *TrapFrame) UnmarshalBinary(src []byte) error {
	if len(src) < TrapFrameSize {
		return fmt.Errorf("trap frame needs %d bytes, got %d", TrapFrameSize, len(src))
	}
	_, err := binary.Decode(src[:TrapFrameSize], binary.LittleEndian, tf)
	return err
}

// Dump writes the frame in the format of the kernel's print_trapframe.
func (tf *TrapFrame) Dump(w io.Writer) {
	fmt.Fprintf(w, "  edi  0x%08x\n", tf.Regs.EDI)
	fmt.Fprintf(w, "  esi  0x%08x\n", tf.Regs.ESI)
	fmt.Fprintf(w, "  ebp  0x%08x\n", tf.Regs.EBP)
	fmt.Fprintf(w, "  oesp 0x%08x\n", tf.Regs.OESP)
	fmt.Fprintf(w, "  ebx  0x%08x\n", tf.Regs.EBX)
	fmt.Fprintf(w, "  edx  0x%08x\n", tf.Regs.EDX)
	fmt.Fprintf(w, "  ecx  0x%08x\n", tf.Regs.ECX)
	fmt.Fprintf(w, "  eax  0x%08x\n", tf.Regs.EAX)
	fmt.Fprintf(w, "  es   0x----%04x\n", tf.ES)
	fmt.Fprintf(w, "  ds   0x----%04x\n", tf.DS)
	fmt.Fprintf(w, "  trap 0x%08x %s\n", tf.TrapNo, trapName(tf.TrapNo))
	fmt.Fprintf(w, "  err  0x%08x\n", tf.Err)
	fmt.Fprintf(w, "  eip  0x%08x\n", tf.EIP)
	fmt.Fprintf(w, "  cs   0x----%04x\n", tf.CS)
	fmt.Fprintf(w, "  flag 0x%08x\n", tf.EFlags)
	if tf.UserMode() {
		fmt.Fprintf(w, "  esp  0x%08x\n", tf.ESP)
		fmt.Fprintf(w, "  ss   0x----%04x\n", tf.SS)
	}
}

func trapName(trapno uint32) string {
	switch trapno {
	case jos.T_PGFLT:
		return "Page Fault"
	case jos.T_SYSCALL:
		return "System call"
	default:
		return "(unknown trap)"
	}
}
