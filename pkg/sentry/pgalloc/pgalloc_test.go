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

package pgalloc

import (
	"testing"

	"jos.dev/jos/pkg/errors/joserr"
)

func newTestFile(t *testing.T, frames uint32) *MemoryFile {
	t.Helper()
	f, err := NewMemoryFile(frames)
	if err != nil {
		t.Fatalf("NewMemoryFile(%d): %v", frames, err)
	}
	return f
}

func TestNewMemoryFileEmpty(t *testing.T) {
	if _, err := NewMemoryFile(0); err == nil {
		t.Errorf("NewMemoryFile(0) succeeded")
	}
}

func TestAllocateUntilExhausted(t *testing.T) {
	f := newTestFile(t, 4)
	seen := make(map[FrameNumber]bool)
	for i := 0; i < 4; i++ {
		fn, err := f.Allocate(AllocOpts{Zero: true})
		if err != nil {
			t.Fatalf("Allocate #%d: %v", i, err)
		}
		if seen[fn] {
			t.Fatalf("Allocate returned frame %v twice", fn)
		}
		seen[fn] = true
		if got := f.Refs(fn); got != 0 {
			t.Errorf("Refs(%v) of fresh frame = %d, want 0", fn, got)
		}
	}
	if _, err := f.Allocate(AllocOpts{}); err != joserr.ENoMem {
		t.Errorf("Allocate on exhausted pool got %v, want %v", err, joserr.ENoMem)
	}
	if got := f.FreeFrames(); got != 0 {
		t.Errorf("FreeFrames = %d, want 0", got)
	}
}

func TestRefcounting(t *testing.T) {
	f := newTestFile(t, 2)
	fn, err := f.Allocate(AllocOpts{Zero: true})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	f.IncRef(fn)
	f.IncRef(fn)
	if got := f.Refs(fn); got != 2 {
		t.Fatalf("Refs = %d, want 2", got)
	}
	f.DecRef(fn)
	if f.IsFree(fn) {
		t.Fatalf("frame freed with one reference left")
	}
	f.DecRef(fn)
	if !f.IsFree(fn) {
		t.Errorf("frame not freed after last DecRef")
	}
	if got := f.FreeFrames(); got != 2 {
		t.Errorf("FreeFrames = %d, want 2", got)
	}
}

func TestZeroing(t *testing.T) {
	f := newTestFile(t, 1)
	fn, err := f.Allocate(AllocOpts{Zero: true})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	f.Data(fn)[100] = 0xaa
	f.Free(fn)

	fn, err = f.Allocate(AllocOpts{Zero: false})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if got := f.Data(fn)[100]; got != 0xaa {
		t.Errorf("unzeroed frame byte = %#x, want 0xaa", got)
	}
	f.Free(fn)

	fn, err = f.Allocate(AllocOpts{Zero: true})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	for i, b := range f.Data(fn) {
		if b != 0 {
			t.Fatalf("zeroed frame byte %d = %#x", i, b)
		}
	}
}

func TestFreeReferencedPanics(t *testing.T) {
	f := newTestFile(t, 1)
	fn, err := f.Allocate(AllocOpts{})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	f.IncRef(fn)
	defer func() {
		if recover() == nil {
			t.Errorf("Free of referenced frame did not panic")
		}
	}()
	f.Free(fn)
}

func TestDecRefFreePanics(t *testing.T) {
	f := newTestFile(t, 1)
	defer func() {
		if recover() == nil {
			t.Errorf("DecRef of free frame did not panic")
		}
	}()
	f.DecRef(0)
}

func TestFrameAddr(t *testing.T) {
	if got, want := FrameNumber(3).Addr(), uint32(0x3000); got != want {
		t.Errorf("Addr = %#x, want %#x", got, want)
	}
}
