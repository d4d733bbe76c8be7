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

import "testing"

func TestMemoryLayout(t *testing.T) {
	for _, tc := range []struct {
		name string
		got  uint32
		want uint32
	}{
		{"KERNBASE", KERNBASE, 0xF0000000},
		{"MMIOLIM", MMIOLIM, 0xEFC00000},
		{"ULIM", ULIM, 0xEF800000},
		{"UVPT", UVPT, 0xEF400000},
		{"UPAGES", UPAGES, 0xEF000000},
		{"UENVS", UENVS, 0xEEC00000},
		{"UTOP", UTOP, 0xEEC00000},
		{"UXSTACKTOP", UXSTACKTOP, 0xEEC00000},
		{"USTACKTOP", USTACKTOP, 0xEEBFE000},
		{"UTEXT", UTEXT, 0x00800000},
		{"PFTEMP", PFTEMP, 0x007FF000},
	} {
		if tc.got != tc.want {
			t.Errorf("%s = %#08x, want %#08x", tc.name, tc.got, tc.want)
		}
	}
}
