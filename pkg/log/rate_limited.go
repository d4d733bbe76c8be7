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
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// rateLimitedLogger forwards at most one statement per interval. The
// next statement forwarded reports how many were dropped in between.
type rateLimitedLogger struct {
	logger  Logger
	limit   *rate.Limiter
	dropped atomic.Uint64
}

// allow reports whether a statement may be forwarded, and the suffix
// noting statements suppressed since the last one.
func (rl *rateLimitedLogger) allow() (string, []any, bool) {
	if !rl.limit.Allow() {
		rl.dropped.Add(1)
		return "", nil, false
	}
	if n := rl.dropped.Swap(0); n > 0 {
		return " (%d similar messages suppressed)", []any{n}, true
	}
	return "", nil, true
}

func (rl *rateLimitedLogger) Debugf(format string, v ...any) {
	if suffix, args, ok := rl.allow(); ok {
		rl.logger.Debugf(format+suffix, append(v, args...)...)
	}
}

func (rl *rateLimitedLogger) Infof(format string, v ...any) {
	if suffix, args, ok := rl.allow(); ok {
		rl.logger.Infof(format+suffix, append(v, args...)...)
	}
}

func (rl *rateLimitedLogger) Warningf(format string, v ...any) {
	if suffix, args, ok := rl.allow(); ok {
		rl.logger.Warningf(format+suffix, append(v, args...)...)
	}
}

func (rl *rateLimitedLogger) IsLogging(level Level) bool {
	return rl.logger.IsLogging(level)
}

// RateLimitedLogger returns a Logger that logs to the provided logger no
// more than once per the provided duration.
func RateLimitedLogger(logger Logger, every time.Duration) Logger {
	return &rateLimitedLogger{
		logger: logger,
		limit:  rate.NewLimiter(rate.Every(every), 1),
	}
}
