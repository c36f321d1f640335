// Copyright 2021 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"runtime"

	"github.com/BurntSushi/toml"

	"github.com/matrixorigin/frameflow/pkg/common/moerr"
	"github.com/matrixorigin/frameflow/pkg/frame"
	"github.com/matrixorigin/frameflow/pkg/logutil"
)

const (
	defaultFramesLimit     = -1
	defaultMemSizeInFrames = -1
)

// FrameParameters of the frames exchanged between operators
type FrameParameters struct {
	// MinFrameSize is the size of a frame, growable frames grow by it.
	// default: 32768
	MinFrameSize int `toml:"min-frame-size"`

	// Compress the frame streams with lz4
	Compress bool `toml:"compress"`
}

// GroupParameters of the preclustered group writer
type GroupParameters struct {
	// FramesLimit is the number of frames a group writer may use, input and
	// output frames included. default: -1, unbounded
	FramesLimit int `toml:"frames-limit"`

	// OutputPartial emits partial aggregates for a later merge
	OutputPartial bool `toml:"output-partial"`

	// GroupAll emits one group even for an empty input
	GroupAll bool `toml:"group-all"`
}

// WindowParameters of the window operator
type WindowParameters struct {
	// MemSizeInFrames bounds the window memory. default: -1, unbounded
	MemSizeInFrames int `toml:"mem-size-in-frames"`
}

// RunnerParameters of the parallel runner
type RunnerParameters struct {
	// Workers is the size of the goroutine pool. default: GOMAXPROCS
	Workers int `toml:"workers"`
}

// MetricParameters of the prometheus exporter
type MetricParameters struct {
	Enable bool `toml:"enable"`

	// Addr the metrics are served on, e.g. 127.0.0.1:7001
	Addr string `toml:"addr"`
}

type Config struct {
	Frame  FrameParameters   `toml:"frame"`
	Group  GroupParameters   `toml:"group"`
	Window WindowParameters  `toml:"window"`
	Runner RunnerParameters  `toml:"runner"`
	Log    logutil.LogConfig `toml:"log"`
	Metric MetricParameters  `toml:"metric"`
}

// NewConfig returns a config holding the defaults.
func NewConfig() *Config {
	cfg := &Config{}
	cfg.SetDefaultValues()
	return cfg
}

// SetDefaultValues fills in every parameter left unset.
func (cfg *Config) SetDefaultValues() {
	if cfg.Frame.MinFrameSize == 0 {
		cfg.Frame.MinFrameSize = frame.DefaultMinFrameSize
	}
	if cfg.Group.FramesLimit == 0 {
		cfg.Group.FramesLimit = defaultFramesLimit
	}
	if cfg.Window.MemSizeInFrames == 0 {
		cfg.Window.MemSizeInFrames = defaultMemSizeInFrames
	}
	if cfg.Runner.Workers == 0 {
		cfg.Runner.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
}

// LoadConfig reads a toml file. Parameters missing from the file get their
// default value.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, moerr.NewBadConfig(moerr.Context(), "load %s: %v", path, err)
	}
	cfg.SetDefaultValues()
	return cfg, nil
}

// ParseConfig is LoadConfig for the content of a file.
func ParseConfig(data string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.Decode(data, cfg); err != nil {
		return nil, moerr.NewBadConfig(moerr.Context(), "parse config: %v", err)
	}
	cfg.SetDefaultValues()
	return cfg, nil
}

// Validate checks the parameters against each other. Memory budgets too
// small for the operators are rejected here already.
func (cfg *Config) Validate(ctx context.Context) error {
	if cfg.Frame.MinFrameSize < frame.MinFrameSizeLimit {
		return moerr.NewBadConfig(ctx, "min-frame-size %d is below %d",
			cfg.Frame.MinFrameSize, frame.MinFrameSizeLimit)
	}
	if cfg.Group.FramesLimit >= 0 && cfg.Group.FramesLimit <= 2 {
		return moerr.NewBadConfig(ctx, "group frames-limit %d, at least 3 frames are required",
			cfg.Group.FramesLimit)
	}
	if cfg.Window.MemSizeInFrames > 0 && cfg.Window.MemSizeInFrames < 5 {
		return moerr.NewBadConfig(ctx, "window mem-size-in-frames %d, at least 5 frames are required",
			cfg.Window.MemSizeInFrames)
	}
	if cfg.Runner.Workers < 0 {
		return moerr.NewBadConfig(ctx, "runner workers %d", cfg.Runner.Workers)
	}
	switch cfg.Log.Format {
	case "console", "json":
	default:
		return moerr.NewBadConfig(ctx, "log format %s", cfg.Log.Format)
	}
	if cfg.Metric.Enable && cfg.Metric.Addr == "" {
		return moerr.NewBadConfig(ctx, "metric enabled without addr")
	}
	return nil
}
