/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestLoadConfig tests configuration loading
// TestLoadConfig 测试配置加载
func TestLoadConfig(t *testing.T) {
	// Create a temporary config file / 创建临时配置文件
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  addr: "127.0.0.1:18000"
  env: development

worker:
  command: /usr/bin/python3
  script: checker.py
  args: ["--headless"]
  env:
    - "DISPLAY=:1"
  stop_on_exit: false

supervisor:
  descendant_grace: 1s
  root_grace: 2500ms

artifacts:
  success_file: out/ok.json

reporting:
  recent_limit: 10
  max_log_lines: 100

log:
  level: debug
  format: console
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:18000", cfg.Server.Addr)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "/usr/bin/python3", cfg.Worker.Command)
	assert.Equal(t, "checker.py", cfg.Worker.Script)
	assert.Equal(t, []string{"--headless"}, cfg.Worker.Args)
	assert.Equal(t, []string{"DISPLAY=:1"}, cfg.Worker.Env)
	assert.False(t, cfg.Worker.StopOnExit)
	assert.Equal(t, time.Second, cfg.Supervisor.DescendantGrace)
	assert.Equal(t, 2500*time.Millisecond, cfg.Supervisor.RootGrace)
	assert.Equal(t, "out/ok.json", cfg.Artifacts.SuccessFile)
	assert.Equal(t, 10, cfg.Reporting.RecentLimit)
	assert.Equal(t, 100, cfg.Reporting.MaxLogLines)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)

	// Unset keys keep their defaults / 未设置的键保持默认值
	assert.Equal(t, DefaultFailureFile, cfg.Artifacts.FailureFile)
	assert.Equal(t, DefaultReapTimeout, cfg.Supervisor.ReapTimeout)
	assert.Equal(t, DefaultLogLines, cfg.Reporting.DefaultLogLines)
	assert.NoError(t, cfg.Validate())
}

// TestLoadConfigDefaults tests default values when config file is missing
// TestLoadConfigDefaults 测试配置文件缺失时的默认值
func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultServerAddr, cfg.Server.Addr)
	assert.Equal(t, DefaultServerEnv, cfg.Server.Env)
	assert.Equal(t, DefaultWorkerCommand, cfg.Worker.Command)
	assert.Equal(t, DefaultWorkerScript, cfg.Worker.Script)
	assert.Equal(t, DefaultWorkerEnv, cfg.Worker.Env)
	assert.True(t, cfg.Worker.StopOnExit)
	assert.Equal(t, DefaultDescendantGrace, cfg.Supervisor.DescendantGrace)
	assert.Equal(t, DefaultRootGrace, cfg.Supervisor.RootGrace)
	assert.Equal(t, DefaultMonitorInterval, cfg.Supervisor.MonitorInterval)
	assert.Equal(t, DefaultSuccessFile, cfg.Artifacts.SuccessFile)
	assert.Equal(t, DefaultRetryFile, cfg.Artifacts.RetryFile)
	assert.Equal(t, DefaultProgressLog, cfg.Reporting.LogFile)
	assert.Equal(t, DefaultRecentLimit, cfg.Reporting.RecentLimit)
	assert.Equal(t, DefaultMaxLogLines, cfg.Reporting.MaxLogLines)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.False(t, cfg.GRPC.Enabled)
	assert.NoError(t, cfg.Validate())
	assert.True(t, cfg.Equal(Default()))
}

// TestLoadConfigInvalidFile tests that a present but unparsable file is an error
// TestLoadConfigInvalidFile 测试存在但无法解析的配置文件返回错误
func TestLoadConfigInvalidFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server: [unclosed"), 0644))

	_, err := Load(configPath)
	assert.Error(t, err)
}

// TestLoadConfigEnvOverride tests environment variable override
// TestLoadConfigEnvOverride 测试环境变量覆盖
func TestLoadConfigEnvOverride(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server:\n  addr: \":8001\"\n"), 0644))

	t.Setenv("CHECKERX_SERVER_ADDR", ":9999")
	t.Setenv("CHECKERX_SUPERVISOR_ROOT_GRACE", "7s")
	t.Setenv("CHECKERX_GRPC_ENABLED", "true")

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, 7*time.Second, cfg.Supervisor.RootGrace)
	assert.True(t, cfg.GRPC.Enabled)
}

// TestLoadConfigPathFromEnv tests CHECKERX_CONFIG_PATH resolution
// TestLoadConfigPathFromEnv 测试通过 CHECKERX_CONFIG_PATH 定位配置文件
func TestLoadConfigPathFromEnv(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("worker:\n  command: node\n"), 0644))
	t.Setenv("CHECKERX_CONFIG_PATH", configPath)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "node", cfg.Worker.Command)
}

// TestValidateConfig tests configuration validation
// TestValidateConfig 测试配置验证
func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "empty server addr",
			modify:  func(c *Config) { c.Server.Addr = " " },
			wantErr: true,
		},
		{
			name:    "empty worker command",
			modify:  func(c *Config) { c.Worker.Command = "" },
			wantErr: true,
		},
		{
			name:    "malformed env entry",
			modify:  func(c *Config) { c.Worker.Env = []string{"NOEQUALS"} },
			wantErr: true,
		},
		{
			name:    "zero root grace",
			modify:  func(c *Config) { c.Supervisor.RootGrace = 0 },
			wantErr: true,
		},
		{
			name:    "negative poll interval",
			modify:  func(c *Config) { c.Supervisor.PollInterval = -time.Second },
			wantErr: true,
		},
		{
			name:    "missing retry file",
			modify:  func(c *Config) { c.Artifacts.RetryFile = "" },
			wantErr: true,
		},
		{
			name:    "default lines above max",
			modify:  func(c *Config) { c.Reporting.DefaultLogLines = 10; c.Reporting.MaxLogLines = 5 },
			wantErr: true,
		},
		{
			name:    "invalid log level",
			modify:  func(c *Config) { c.Log.Level = "verbose" },
			wantErr: true,
		},
		{
			name:    "invalid log format",
			modify:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: true,
		},
		{
			name:    "telemetry without endpoint",
			modify:  func(c *Config) { c.Telemetry.Enabled = true; c.Telemetry.Endpoint = "" },
			wantErr: true,
		},
		{
			name:    "zero recent limit is allowed",
			modify:  func(c *Config) { c.Reporting.RecentLimit = 0 },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// TestToYAMLReadableDurations tests that durations are written as strings
// TestToYAMLReadableDurations 测试时长以可读字符串输出
func TestToYAMLReadableDurations(t *testing.T) {
	data, err := Default().ToYAML()
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, "descendant_grace: 3s")
	assert.Contains(t, out, "root_grace: 5s")
	assert.Contains(t, out, "poll_interval: 100ms")
	assert.Contains(t, out, "DISPLAY=:99")
}

// TestProperty_YAMLRoundTrip checks that ToYAML and LoadFromYAML are inverse
// TestProperty_YAMLRoundTrip 验证 ToYAML 与 LoadFromYAML 互为逆操作
func TestProperty_YAMLRoundTrip(t *testing.T) {
	word := rapid.StringMatching(`[a-z][a-z0-9_./]{0,15}`)
	positive := rapid.Custom(func(t *rapid.T) time.Duration {
		return time.Duration(rapid.Int64Range(1, int64(time.Hour)).Draw(t, "ns"))
	})

	rapid.Check(t, func(t *rapid.T) {
		cfg := Default()
		cfg.Server.Addr = ":" + word.Draw(t, "addr")
		cfg.Server.ReadTimeout = positive.Draw(t, "read_timeout")
		cfg.Worker.Command = word.Draw(t, "command")
		cfg.Worker.Script = word.Draw(t, "script")
		cfg.Worker.Args = rapid.SliceOfN(word, 0, 4).Draw(t, "args")
		cfg.Worker.Env = []string{"K_" + word.Draw(t, "env_key") + "=" + word.Draw(t, "env_val")}
		cfg.Worker.StopOnExit = rapid.Bool().Draw(t, "stop_on_exit")
		cfg.Supervisor.DescendantGrace = positive.Draw(t, "descendant_grace")
		cfg.Supervisor.RootGrace = positive.Draw(t, "root_grace")
		cfg.Supervisor.PollInterval = positive.Draw(t, "poll_interval")
		cfg.Artifacts.SuccessFile = word.Draw(t, "success_file")
		cfg.Reporting.RecentLimit = rapid.IntRange(0, 100).Draw(t, "recent_limit")
		cfg.Log.Level = rapid.SampledFrom([]string{"debug", "info", "warn", "error"}).Draw(t, "level")
		cfg.Telemetry.SampleRatio = rapid.Float64Range(0, 1).Draw(t, "sample_ratio")

		data, err := cfg.ToYAML()
		if err != nil {
			t.Fatalf("ToYAML failed: %v", err)
		}
		loaded, err := LoadFromYAML(data)
		if err != nil {
			t.Fatalf("LoadFromYAML failed: %v\n%s", err, data)
		}
		if !cfg.Equal(loaded) {
			t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", cfg, loaded)
		}
	})
}
