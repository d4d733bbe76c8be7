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

package log

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

// Tests that Level can marshal/unmarshal properly.
func TestLevelMarshal(t *testing.T) {
	lvs := []Level{Warning, Info, Debug}
	for _, lv := range lvs {
		bs, err := lv.MarshalJSON()
		if err != nil {
			t.Errorf("error marshaling %v: %v", lv, err)
		}
		var lv2 Level
		if err := lv2.UnmarshalJSON(bs); err != nil {
			t.Errorf("error unmarshaling %v: %v", bs, err)
		}
		if lv != lv2 {
			t.Errorf("marshal/unmarshal level got %v wanted %v", lv2, lv)
		}
	}
}

// Test that integers can be properly unmarshaled.
func TestUnmarshalFromInt(t *testing.T) {
	tcs := []struct {
		i    int
		want Level
	}{
		{0, Warning},
		{1, Info},
		{2, Debug},
	}

	for _, tc := range tcs {
		j, err := json.Marshal(tc.i)
		if err != nil {
			t.Errorf("error marshaling %v: %v", tc.i, err)
		}
		var lv Level
		if err := lv.UnmarshalJSON(j); err != nil {
			t.Errorf("error unmarshaling %v: %v", j, err)
		}
		if lv != tc.want {
			t.Errorf("marshal/unmarshal %v got %v want %v", tc.i, lv, tc.want)
		}
	}
}

func TestJSONEmitter(t *testing.T) {
	for _, tc := range []struct {
		name   string
		format string
		args   []any
		env    string
		msg    string
	}{
		{name: "plain", format: "booting %d environments", args: []any{8}, msg: "booting 8 environments"},
		{name: "env", format: "[%08x] exiting gracefully", args: []any{0x1000}, env: "00001000", msg: "exiting gracefully"},
		{name: "not a tag", format: "[boot] ready", msg: "[boot] ready"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			tw := &testWriter{}
			e := JSONEmitter{&Writer{Next: tw}}
			e.Emit(0, Info, time.Unix(0, 0).UTC(), tc.format, tc.args...)
			if len(tw.lines) != 2 {
				t.Fatalf("got %d writes, want object and newline: %q", len(tw.lines), tw.lines)
			}
			var got jsonLog
			if err := json.Unmarshal([]byte(tw.lines[0]), &got); err != nil {
				t.Fatalf("unmarshal %q: %v", tw.lines[0], err)
			}
			if got.Level != Info {
				t.Errorf("level = %v, want Info", got.Level)
			}
			if got.Env != tc.env || got.Msg != tc.msg {
				t.Errorf("env, msg = %q, %q, want %q, %q", got.Env, got.Msg, tc.env, tc.msg)
			}
			if !strings.HasPrefix(got.Caller, "json_test.go:") {
				t.Errorf("caller = %q, want json_test.go:<line>", got.Caller)
			}
		})
	}
}
