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

package hostarch

import (
	"testing"

	"jos.dev/jos/pkg/abi/jos"
)

func TestRounding(t *testing.T) {
	for _, tc := range []struct {
		addr    Addr
		down    Addr
		up      Addr
		upOK    bool
		aligned bool
	}{
		{0, 0, 0, true, true},
		{1, 0, PageSize, true, false},
		{PageSize, PageSize, PageSize, true, true},
		{0x800123, 0x800000, 0x801000, true, false},
		{0xFFFFF001, 0xFFFFF000, 0, false, false},
	} {
		if got := tc.addr.RoundDown(); got != tc.down {
			t.Errorf("%v.RoundDown() = %v, want %v", tc.addr, got, tc.down)
		}
		up, ok := tc.addr.RoundUp()
		if ok != tc.upOK || (ok && up != tc.up) {
			t.Errorf("%v.RoundUp() = (%v, %t), want (%v, %t)", tc.addr, up, ok, tc.up, tc.upOK)
		}
		if got := tc.addr.IsPageAligned(); got != tc.aligned {
			t.Errorf("%v.IsPageAligned() = %t, want %t", tc.addr, got, tc.aligned)
		}
	}
}

func TestIsUser(t *testing.T) {
	if !Addr(jos.UTOP - PageSize).IsUser() {
		t.Errorf("page below UTOP is not user")
	}
	if Addr(jos.UTOP).IsUser() {
		t.Errorf("UTOP is user")
	}
}

func TestToRange(t *testing.T) {
	ar, ok := Addr(0x1000).ToRange(0x20)
	if !ok || !ar.WellFormed() || ar.Length() != 0x20 || !ar.Contains(0x101f) || ar.Contains(0x1020) {
		t.Errorf("ToRange(0x20) = %v, %t", ar, ok)
	}
	if _, ok := Addr(0xFFFFFFF0).ToRange(0x20); ok {
		t.Errorf("ToRange did not detect overflow")
	}
}

func TestUserPerm(t *testing.T) {
	if got, want := Read.UserPerm(), jos.PTE_P|jos.PTE_U; got != want {
		t.Errorf("Read.UserPerm() = %v, want %v", got, want)
	}
	if got, want := ReadWrite.UserPerm(), jos.PTE_P|jos.PTE_U|jos.PTE_W; got != want {
		t.Errorf("ReadWrite.UserPerm() = %v, want %v", got, want)
	}
}
