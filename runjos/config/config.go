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

// Package config provides basic infrastructure to set configuration
// settings for runjos. Each setting that can be changed from the command
// line must have a corresponding field in Config and a flag registered in
// RegisterFlags.
package config

import (
	"fmt"
	"math/bits"
	"reflect"
	"time"

	"github.com/BurntSushi/toml"
	"jos.dev/jos/pkg/abi/jos"
	"jos.dev/jos/pkg/log"
)

// Config holds configuration that is not part of a scenario.
type Config struct {
	// LogFilename is the filename to log to, if not empty.
	LogFilename string `flag:"log"`

	// LogFormat is the log format.
	LogFormat string `flag:"log-format"`

	// Debug indicates that debug logging should be enabled.
	Debug bool `flag:"debug"`

	// DebugLog is the path to log debug information to, if not empty.
	DebugLog string `flag:"debug-log"`

	// DebugLogFormat is the log format for debug.
	DebugLogFormat string `flag:"debug-log-format"`

	// AlsoLogToStderr allows to send log messages to stderr.
	AlsoLogToStderr bool `flag:"alsologtostderr"`

	// NumEnvs is the size of the environment table.
	NumEnvs uint `flag:"nenv"`

	// MemPages is the number of 4 KiB physical frames.
	MemPages uint `flag:"mem-pages"`

	// Strace indicates that every syscall and its result is logged.
	Strace bool `flag:"strace"`

	// FaultLogInterval limits how often messages about faulting
	// environments are logged.
	FaultLogInterval time.Duration `flag:"fault-log-interval"`

	// ConfigFile is a TOML file whose [flags] table overrides flags.
	ConfigFile string `flag:"config"`
}

// Log logs every flag value of the configuration.
func (c *Config) Log() {
	log.Infof("Config:")
	obj := reflect.ValueOf(c).Elem()
	st := obj.Type()
	for i := 0; i < st.NumField(); i++ {
		if name, ok := st.Field(i).Tag.Lookup("flag"); ok {
			log.Infof("\t%s: %s", name, getVal(obj.Field(i)))
		}
	}
}

func (c *Config) validate() error {
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q, must be text or json", c.LogFormat)
	}
	switch c.DebugLogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid debug log format %q, must be text or json", c.DebugLogFormat)
	}
	if c.NumEnvs == 0 || bits.OnesCount(c.NumEnvs) != 1 || c.NumEnvs > 1<<jos.ENVGENSHIFT {
		return fmt.Errorf("nenv must be a power of two no larger than %d, got %d", 1<<jos.ENVGENSHIFT, c.NumEnvs)
	}
	if c.MemPages == 0 || c.MemPages > 1<<20 {
		return fmt.Errorf("mem-pages must be in [1, %d], got %d", 1<<20, c.MemPages)
	}
	if c.FaultLogInterval < 0 {
		return fmt.Errorf("fault-log-interval must not be negative, got %v", c.FaultLogInterval)
	}
	return nil
}

// File is the content of a configuration file.
//
//	[flags]
//	nenv = "64"
//	strace = "true"
type File struct {
	// Flags maps flag names to values. They are applied with Override.
	Flags map[string]string `toml:"flags"`
}

// LoadFile decodes the TOML configuration file at path.
func LoadFile(path string) (*File, error) {
	var f File
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("decoding config file %q: %w", path, err)
	}
	return &f, nil
}
