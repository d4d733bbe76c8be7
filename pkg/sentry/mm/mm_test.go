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

package mm

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"

	"jos.dev/jos/pkg/abi/jos"
	"jos.dev/jos/pkg/errors/joserr"
	"jos.dev/jos/pkg/hostarch"
	"jos.dev/jos/pkg/ring0/pagetables"
	"jos.dev/jos/pkg/sentry/pgalloc"
)

const (
	userRW = jos.PTE_P | jos.PTE_U | jos.PTE_W
	userRO = jos.PTE_P | jos.PTE_U
)

type testEnv struct {
	mf   *pgalloc.MemoryFile
	kern *pagetables.PageTables
}

func newTestEnv(t *testing.T, frames uint32) *testEnv {
	t.Helper()
	mf, err := pgalloc.NewMemoryFile(frames)
	if err != nil {
		t.Fatalf("NewMemoryFile: %v", err)
	}
	kern, err := NewKernelTables(mf)
	if err != nil {
		t.Fatalf("NewKernelTables: %v", err)
	}
	return &testEnv{mf: mf, kern: kern}
}

func (te *testEnv) newMM(t *testing.T) *MemoryManager {
	t.Helper()
	mm, err := NewMemoryManager(te.mf, te.kern)
	if err != nil {
		t.Fatalf("NewMemoryManager: %v", err)
	}
	return mm
}

func TestValidatePerm(t *testing.T) {
	for _, tc := range []struct {
		perm jos.PTEFlags
		want error
	}{
		{userRO, nil},
		{userRW, nil},
		{userRW | jos.PTE_AVAIL, nil},
		{jos.PTE_U, joserr.EInval},
		{jos.PTE_P, joserr.EInval},
		{userRO | jos.PTE_PCD, joserr.EInval},
		{userRO | jos.PTE_G, joserr.EInval},
	} {
		if got := ValidatePerm(tc.perm); got != tc.want {
			t.Errorf("ValidatePerm(%v) = %v, want %v", tc.perm, got, tc.want)
		}
	}
}

func TestAllocUnmapReturnsPage(t *testing.T) {
	te := newTestEnv(t, 16)
	mm := te.newMM(t)
	va := hostarch.Addr(0x800000)

	free := te.mf.FreeFrames()
	if err := mm.AllocPage(va, userRW); err != nil {
		t.Fatalf("AllocPage: %v", err)
	}
	fn, perm, ok := mm.Lookup(va)
	if !ok || perm != userRW {
		t.Fatalf("Lookup = %v, %v, %t", fn, perm, ok)
	}
	if got := te.mf.Refs(fn); got != 1 {
		t.Errorf("Refs = %d, want 1", got)
	}

	for i := 0; i < 2; i++ {
		if err := mm.UnmapPage(va); err != nil {
			t.Fatalf("UnmapPage #%d: %v", i, err)
		}
	}
	if _, _, ok := mm.Lookup(va); ok {
		t.Errorf("page still mapped after UnmapPage")
	}
	if !te.mf.IsFree(fn) {
		t.Errorf("frame %v not returned to the free pool", fn)
	}
	if got := te.mf.FreeFrames(); got != free {
		t.Errorf("FreeFrames = %d, want %d", got, free)
	}
}

func TestAllocPageErrors(t *testing.T) {
	te := newTestEnv(t, 16)
	mm := te.newMM(t)
	for _, tc := range []struct {
		name string
		va   hostarch.Addr
		perm jos.PTEFlags
		want error
	}{
		{"unaligned", 0x800010, userRW, joserr.EInval},
		{"at UTOP", jos.UTOP, userRW, joserr.EInval},
		{"kernel", jos.KERNBASE, userRW, joserr.EInval},
		{"no user bit", 0x800000, jos.PTE_P | jos.PTE_W, joserr.EInval},
		{"bad bits", 0x800000, userRW | jos.PTE_D, joserr.EInval},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if err := mm.AllocPage(tc.va, tc.perm); err != tc.want {
				t.Errorf("AllocPage(%v, %v) = %v, want %v", tc.va, tc.perm, err, tc.want)
			}
		})
	}
	if err := mm.UnmapPage(0x800001); err != joserr.EInval {
		t.Errorf("UnmapPage(unaligned) = %v, want %v", err, joserr.EInval)
	}
}

func TestAllocPageNoMemory(t *testing.T) {
	// Kernel directory and user directory.
	te := newTestEnv(t, 2)
	mm := te.newMM(t)
	if err := mm.AllocPage(0x800000, userRW); err != joserr.ENoMem {
		t.Fatalf("AllocPage = %v, want %v", err, joserr.ENoMem)
	}

	// A page is available but its page table is not.
	te = newTestEnv(t, 3)
	mm = te.newMM(t)
	if err := mm.AllocPage(0x800000, userRW); err != joserr.ENoMem {
		t.Fatalf("AllocPage = %v, want %v", err, joserr.ENoMem)
	}
	if got := te.mf.FreeFrames(); got != 1 {
		t.Errorf("FreeFrames = %d after failed AllocPage, want 1", got)
	}
}

func TestAllocPageReplaces(t *testing.T) {
	te := newTestEnv(t, 16)
	mm := te.newMM(t)
	if err := mm.AllocPage(0x800000, userRW); err != nil {
		t.Fatalf("AllocPage: %v", err)
	}
	old, _, _ := mm.Lookup(0x800000)
	if err := mm.AllocPage(0x800000, userRO); err != nil {
		t.Fatalf("AllocPage: %v", err)
	}
	cur, perm, _ := mm.Lookup(0x800000)
	if cur == old || perm != userRO {
		t.Errorf("replacement mapping = %v %v, old frame %v", cur, perm, old)
	}
	if !te.mf.IsFree(old) {
		t.Errorf("replaced frame %v not freed", old)
	}
}

func TestMapPage(t *testing.T) {
	te := newTestEnv(t, 16)
	a, b := te.newMM(t), te.newMM(t)
	if err := a.AllocPage(0x800000, userRW); err != nil {
		t.Fatalf("AllocPage: %v", err)
	}
	if err := a.AllocPage(0x801000, userRO); err != nil {
		t.Fatalf("AllocPage: %v", err)
	}

	if err := b.MapPage(a, 0x801000, 0x400000, userRW); err != joserr.EInval {
		t.Errorf("writable map of read-only page = %v, want %v", err, joserr.EInval)
	}
	if err := b.MapPage(a, 0x802000, 0x400000, userRO); err != joserr.EInval {
		t.Errorf("map of unmapped page = %v, want %v", err, joserr.EInval)
	}
	if err := b.MapPage(a, 0x800000, 0x400001, userRO); err != joserr.EInval {
		t.Errorf("map to unaligned address = %v, want %v", err, joserr.EInval)
	}

	if err := b.MapPage(a, 0x800000, 0x400000, userRW); err != nil {
		t.Fatalf("MapPage: %v", err)
	}
	fa, _, _ := a.Lookup(0x800000)
	fb, perm, ok := b.Lookup(0x400000)
	if !ok || fa != fb || perm != userRW {
		t.Fatalf("b mapping = %v %v %t, want frame %v writable", fb, perm, ok, fa)
	}
	if got := te.mf.Refs(fa); got != 2 {
		t.Errorf("Refs = %d, want 2", got)
	}

	// Writes through one mapping are visible through the other.
	if err := b.CopyOut(0x400010, []byte("shared")); err != nil {
		t.Fatalf("CopyOut: %v", err)
	}
	buf := make([]byte, 6)
	if err := a.CopyIn(0x800010, buf); err != nil {
		t.Fatalf("CopyIn: %v", err)
	}
	if string(buf) != "shared" {
		t.Errorf("CopyIn = %q, want %q", buf, "shared")
	}

	// Mapping a read-only alias of a writable page is allowed.
	if err := b.MapPage(a, 0x800000, 0x401000, userRO); err != nil {
		t.Errorf("read-only map of writable page = %v", err)
	}
}

func TestCheckAccess(t *testing.T) {
	te := newTestEnv(t, 16)
	mm := te.newMM(t)
	if err := mm.AllocPage(0x800000, userRW); err != nil {
		t.Fatalf("AllocPage: %v", err)
	}
	if err := mm.AllocPage(0x801000, userRO); err != nil {
		t.Fatalf("AllocPage: %v", err)
	}
	for _, tc := range []struct {
		name     string
		addr     hostarch.Addr
		length   uint32
		at       hostarch.AccessType
		wantErr  error
		wantAddr hostarch.Addr
	}{
		{"read both", 0x800ff0, 0x20, hostarch.Read, nil, 0},
		{"write second", 0x800ff0, 0x20, hostarch.Write, joserr.EFault, 0x801000},
		{"past end", 0x801ff0, 0x20, hostarch.Read, joserr.EFault, 0x802000},
		{"unmapped start", 0x7ffff0, 4, hostarch.Read, joserr.EFault, 0x7ffff0},
		{"empty", 0x900000, 0, hostarch.Read, nil, 0},
		{"kernel", jos.KERNBASE, 4, hostarch.Read, joserr.EFault, jos.KERNBASE},
		{"wraps", 0x800000, 0xffffffff, hostarch.Read, joserr.EFault, 0x802000},
	} {
		t.Run(tc.name, func(t *testing.T) {
			addr, err := mm.CheckAccess(tc.addr, tc.length, tc.at)
			if err != tc.wantErr || addr != tc.wantAddr {
				t.Errorf("CheckAccess = %v, %v; want %v, %v", addr, err, tc.wantAddr, tc.wantErr)
			}
		})
	}
}

func TestCopyAcrossPages(t *testing.T) {
	te := newTestEnv(t, 16)
	mm := te.newMM(t)
	for _, va := range []hostarch.Addr{0x800000, 0x801000} {
		if err := mm.AllocPage(va, userRW); err != nil {
			t.Fatalf("AllocPage: %v", err)
		}
	}
	src := bytes.Repeat([]byte("0123456789"), 100)
	if err := mm.CopyOut(0x800c00, src); err != nil {
		t.Fatalf("CopyOut: %v", err)
	}
	dst := make([]byte, len(src))
	if err := mm.CopyIn(0x800c00, dst); err != nil {
		t.Fatalf("CopyIn: %v", err)
	}
	if !bytes.Equal(src, dst) {
		t.Errorf("CopyIn did not return the bytes written")
	}
	if err := mm.CopyIn(0x801f00, make([]byte, 0x200)); err != joserr.EFault {
		t.Errorf("CopyIn past mapping = %v, want %v", err, joserr.EFault)
	}
}

func TestReleaseFreesEverything(t *testing.T) {
	te := newTestEnv(t, 16)
	free := te.mf.FreeFrames()
	mm := te.newMM(t)
	for _, va := range []hostarch.Addr{0x800000, 0x1000000, 0x2000000} {
		if err := mm.AllocPage(va, userRW); err != nil {
			t.Fatalf("AllocPage: %v", err)
		}
	}
	want := []Mapping{
		{VA: 0x800000, Perm: userRW},
		{VA: 0x1000000, Perm: userRW},
		{VA: 0x2000000, Perm: userRW},
	}
	got := mm.Mappings(hostarch.AddrRange{Start: 0, End: jos.UTOP})
	for i := range got {
		got[i].Frame = 0
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Mappings mismatch (-want +got):\n%s", diff)
	}
	mm.Release()
	if got := te.mf.FreeFrames(); got != free {
		t.Errorf("FreeFrames after Release = %d, want %d", got, free)
	}
}
