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

// Package pgalloc contains the physical page allocator: a fixed pool of
// page-sized frames, each with a reference count.
//
// A frame returned by Allocate has a reference count of zero; every
// mapping of the frame into an address space holds one reference. A frame
// is returned to the free pool when its last reference is dropped with
// DecRef, or explicitly with Free if it was never referenced.
package pgalloc

import (
	"fmt"

	"jos.dev/jos/pkg/bitmap"
	"jos.dev/jos/pkg/errors/joserr"
	"jos.dev/jos/pkg/hostarch"
	"jos.dev/jos/pkg/log"
	"jos.dev/jos/pkg/sync"
)

// FrameNumber identifies a physical frame (a "ppn").
type FrameNumber uint32

// Addr returns the physical address of the frame.
func (fn FrameNumber) Addr() uint32 {
	return uint32(fn) << hostarch.PageShift
}

// String implements fmt.Stringer.String.
func (fn FrameNumber) String() string {
	return fmt.Sprintf("%#08x", fn.Addr())
}

// AllocOpts are options used in MemoryFile.Allocate.
type AllocOpts struct {
	// Zero indicates that the frame contents must be cleared.
	Zero bool
}

type frame struct {
	// refs is the number of address space mappings of the frame.
	refs int32

	// data is the content of the frame. It is allocated the first time the
	// frame is handed out.
	data []byte
}

// MemoryFile is the pool of physical memory.
type MemoryFile struct {
	// mu protects the fields below.
	mu sync.Mutex

	// frames holds per-frame state, indexed by FrameNumber.
	frames []frame

	// used has a bit set for every frame that is not on the free list.
	used bitmap.Bitmap

	// next is where the search for a free frame starts, so that recently
	// freed frames are not immediately reused.
	next uint32
}

// NewMemoryFile creates a MemoryFile with the given number of frames.
func NewMemoryFile(frames uint32) (*MemoryFile, error) {
	if frames == 0 {
		return nil, fmt.Errorf("memory file needs at least one frame")
	}
	return &MemoryFile{
		frames: make([]frame, frames),
		used:   bitmap.New(frames),
	}, nil
}

// TotalFrames returns the size of the pool.
func (f *MemoryFile) TotalFrames() uint32 {
	return uint32(len(f.frames))
}

// FreeFrames returns the number of frames on the free list.
func (f *MemoryFile) FreeFrames() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.used.Size() - f.used.Count()
}

// Allocate removes a frame from the free list. The returned frame has a
// reference count of zero. It returns ENoMem when the pool is exhausted.
func (f *MemoryFile) Allocate(opts AllocOpts) (FrameNumber, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i, ok := f.used.FirstZero(f.next)
	if !ok {
		if i, ok = f.used.FirstZero(0); !ok {
			return 0, joserr.ENoMem
		}
	}
	f.used.Add(i)
	f.next = i + 1
	if f.next >= f.used.Size() {
		f.next = 0
	}

	fr := &f.frames[i]
	if fr.data == nil {
		fr.data = make([]byte, hostarch.PageSize)
	} else if opts.Zero {
		clear(fr.data)
	}
	fr.refs = 0
	pagesAllocated.Increment()
	return FrameNumber(i), nil
}

// Free returns an unreferenced frame to the free list.
//
// Preconditions: fn was returned by Allocate and has no references.
func (f *MemoryFile) Free(fn FrameNumber) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.freeLocked(fn)
}

// +checklocks:f.mu
func (f *MemoryFile) freeLocked(fn FrameNumber) {
	f.checkAllocatedLocked(fn)
	if refs := f.frames[fn].refs; refs != 0 {
		panic(fmt.Sprintf("freeing frame %v with %d references", fn, refs))
	}
	f.used.Remove(uint32(fn))
	pagesFreed.Increment()
}

// IncRef adds a reference to fn.
func (f *MemoryFile) IncRef(fn FrameNumber) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkAllocatedLocked(fn)
	f.frames[fn].refs++
}

// DecRef drops a reference to fn, freeing it if it was the last one.
func (f *MemoryFile) DecRef(fn FrameNumber) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkAllocatedLocked(fn)
	fr := &f.frames[fn]
	if fr.refs <= 0 {
		panic(fmt.Sprintf("DecRef on frame %v with %d references", fn, fr.refs))
	}
	fr.refs--
	if fr.refs == 0 {
		if log.IsLogging(log.Debug) {
			log.Debugf("frame %v released", fn)
		}
		f.freeLocked(fn)
	}
}

// Refs returns the reference count of fn. Free frames report zero.
func (f *MemoryFile) Refs(fn FrameNumber) int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.used.IsSet(uint32(fn)) {
		return 0
	}
	return f.frames[fn].refs
}

// IsFree returns true if fn is on the free list.
func (f *MemoryFile) IsFree(fn FrameNumber) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint32(fn) < f.used.Size() && !f.used.IsSet(uint32(fn))
}

// Data returns the contents of an allocated frame. The slice aliases the
// frame and is only valid while the caller holds a reference.
func (f *MemoryFile) Data(fn FrameNumber) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkAllocatedLocked(fn)
	return f.frames[fn].data
}

// +checklocks:f.mu
func (f *MemoryFile) checkAllocatedLocked(fn FrameNumber) {
	if !f.used.IsSet(uint32(fn)) {
		panic(fmt.Sprintf("frame %v is not allocated", fn))
	}
}
