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

package sync

import (
	"errors"
	"fmt"
	"testing"
)

func TestWaitGroupErr(t *testing.T) {
	var wg WaitGroupErr
	if err := wg.Error(); err != nil {
		t.Fatalf("Error() on empty group = %v", err)
	}

	first := errors.New("first")
	wg.Add(1)
	wg.ReportError(first)
	wg.Done()
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wg.ReportError(fmt.Errorf("later %d", i))
		}()
	}
	if err := wg.Error(); err != first {
		t.Errorf("Error() = %v, want %v", err, first)
	}
}
