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
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/frameflow/pkg/common/moerr"
	"github.com/matrixorigin/frameflow/pkg/frame"
)

func TestDefaults(t *testing.T) {
	cfg := NewConfig()
	assert.Equal(t, frame.DefaultMinFrameSize, cfg.Frame.MinFrameSize)
	assert.Equal(t, -1, cfg.Group.FramesLimit)
	assert.Equal(t, -1, cfg.Window.MemSizeInFrames)
	assert.Equal(t, runtime.GOMAXPROCS(0), cfg.Runner.Workers)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	require.NoError(t, cfg.Validate(context.Background()))
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig(`
[frame]
min-frame-size = 4096
compress = true

[group]
frames-limit = 16
output-partial = true

[window]
mem-size-in-frames = 8

[runner]
workers = 3

[log]
level = "debug"
format = "json"

[metric]
enable = true
addr = "127.0.0.1:7001"
`)
	require.NoError(t, err)
	assert.Equal(t, 4096, cfg.Frame.MinFrameSize)
	assert.True(t, cfg.Frame.Compress)
	assert.Equal(t, 16, cfg.Group.FramesLimit)
	assert.True(t, cfg.Group.OutputPartial)
	assert.False(t, cfg.Group.GroupAll)
	assert.Equal(t, 8, cfg.Window.MemSizeInFrames)
	assert.Equal(t, 3, cfg.Runner.Workers)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "127.0.0.1:7001", cfg.Metric.Addr)
	require.NoError(t, cfg.Validate(context.Background()))

	_, err = ParseConfig("[frame\nmin-frame-size = 1")
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrBadConfig))
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frameflow.toml")
	require.NoError(t, os.WriteFile(path, []byte("[group]\ngroup-all = true\n"), 0o644))
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.Group.GroupAll)
	assert.Equal(t, frame.DefaultMinFrameSize, cfg.Frame.MinFrameSize)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrBadConfig))
}

func TestValidate(t *testing.T) {
	kases := []struct {
		name   string
		modify func(*Config)
	}{
		{"frame too small", func(c *Config) { c.Frame.MinFrameSize = 16 }},
		{"group budget", func(c *Config) { c.Group.FramesLimit = 2 }},
		{"window budget", func(c *Config) { c.Window.MemSizeInFrames = 4 }},
		{"workers", func(c *Config) { c.Runner.Workers = -2 }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
		{"metric addr", func(c *Config) { c.Metric.Enable = true }},
	}
	for _, k := range kases {
		cfg := NewConfig()
		k.modify(cfg)
		err := cfg.Validate(context.Background())
		require.True(t, moerr.IsMoErrCode(err, moerr.ErrBadConfig), k.name)
	}
}
