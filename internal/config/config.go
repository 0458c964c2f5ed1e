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

// Package config provides configuration management for the checkerx supervisor.
// config 包提供 checkerx 守护服务的配置管理功能。
//
// Configuration loading priority (highest to lowest):
// 配置加载优先级（从高到低）：
// 1. Environment variables (CHECKERX_*) / 环境变量
// 2. Configuration file / 配置文件
// 3. Default values / 默认值
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Default configuration values
// 默认配置值
const (
	DefaultConfigPath = "config.yaml"
	EnvPrefix         = "CHECKERX"

	DefaultServerAddr      = ":8000"
	DefaultServerEnv       = "production"
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 15 * time.Second

	DefaultWorkerCommand   = "python"
	DefaultWorkerScript    = "main.py"
	DefaultWorkerStdoutLog = "logs/worker_stdout.log"
	DefaultWorkerStderrLog = "logs/worker_stderr.log"

	DefaultDescendantGrace = 3 * time.Second
	DefaultRootGrace       = 5 * time.Second
	DefaultReapTimeout     = 2 * time.Second
	DefaultPollInterval    = 100 * time.Millisecond
	DefaultMonitorInterval = 5 * time.Second

	DefaultSuccessFile = "reports_json/successful_logins.json"
	DefaultFailureFile = "reports_json/failed_logins.json"
	DefaultRetryFile   = "reports_json/retry_logins.json"

	DefaultProgressLog     = "logs/login_process.log"
	DefaultRecentLimit     = 5
	DefaultLogLines        = 50
	DefaultMaxLogLines     = 5000
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"
	DefaultLogFile         = "logs/checkerx.log"
	DefaultLogMaxSize      = 100 // MB
	DefaultLogMaxBackups   = 3
	DefaultLogMaxAge       = 7 // days
	DefaultTelemetryTarget = "localhost:4317"
	DefaultServiceName     = "checkerx"
	DefaultGRPCAddr        = ":9000"
)

// DefaultWorkerEnv mirrors the headless settings the checker script expects.
// DefaultWorkerEnv 对应检查脚本所需的无头模式环境变量。
var DefaultWorkerEnv = []string{"DISPLAY=:99", "SELENIUM_HEADLESS=true"}

// Config represents the supervisor configuration
// Config 表示守护服务配置
type Config struct {
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Worker     WorkerConfig     `mapstructure:"worker" yaml:"worker"`
	Supervisor SupervisorConfig `mapstructure:"supervisor" yaml:"supervisor"`
	Artifacts  ArtifactsConfig  `mapstructure:"artifacts" yaml:"artifacts"`
	Reporting  ReportingConfig  `mapstructure:"reporting" yaml:"reporting"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry" yaml:"telemetry"`
	GRPC       GRPCConfig       `mapstructure:"grpc" yaml:"grpc"`
}

// ServerConfig contains HTTP control API settings
// ServerConfig 包含 HTTP 控制接口设置
type ServerConfig struct {
	// Addr is the listen address of the control API
	// Addr 是控制接口的监听地址
	Addr string `mapstructure:"addr" yaml:"addr"`

	// Env is "development" or "production"; swagger is only served in development
	// Env 为 "development" 或 "production"；仅在 development 下提供 swagger
	Env string `mapstructure:"env" yaml:"env"`

	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// WorkerConfig describes how the worker process is launched
// WorkerConfig 描述工作进程的启动方式
type WorkerConfig struct {
	// Command is the executable, resolved through PATH when not absolute
	// Command 是可执行文件，非绝对路径时通过 PATH 解析
	Command string `mapstructure:"command" yaml:"command"`

	// Script is passed as the first argument and must exist when set
	// Script 作为第一个参数传入，设置时必须存在
	Script string `mapstructure:"script" yaml:"script"`

	Args []string `mapstructure:"args" yaml:"args"`

	// Dir is the working directory of the worker (empty means inherit)
	// Dir 是工作进程的工作目录（为空表示继承）
	Dir string `mapstructure:"dir" yaml:"dir"`

	// Env holds KEY=VALUE pairs appended to the supervisor environment
	// Env 保存追加到守护进程环境变量之后的 KEY=VALUE 对
	Env []string `mapstructure:"env" yaml:"env"`

	StdoutLog string `mapstructure:"stdout_log" yaml:"stdout_log"`
	StderrLog string `mapstructure:"stderr_log" yaml:"stderr_log"`

	// StopOnExit stops a live worker when the supervisor shuts down
	// StopOnExit 表示守护服务退出时是否停止仍在运行的工作进程
	StopOnExit bool `mapstructure:"stop_on_exit" yaml:"stop_on_exit"`
}

// SupervisorConfig contains termination and polling intervals
// SupervisorConfig 包含终止与轮询相关的时间间隔
type SupervisorConfig struct {
	DescendantGrace time.Duration `mapstructure:"descendant_grace" yaml:"descendant_grace"`
	RootGrace       time.Duration `mapstructure:"root_grace" yaml:"root_grace"`
	ReapTimeout     time.Duration `mapstructure:"reap_timeout" yaml:"reap_timeout"`
	PollInterval    time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	MonitorInterval time.Duration `mapstructure:"monitor_interval" yaml:"monitor_interval"`
}

// ArtifactsConfig holds the three JSON-array files written by the worker
// ArtifactsConfig 保存工作进程写入的三个 JSON 数组文件路径
type ArtifactsConfig struct {
	SuccessFile string `mapstructure:"success_file" yaml:"success_file"`
	FailureFile string `mapstructure:"failure_file" yaml:"failure_file"`
	RetryFile   string `mapstructure:"retry_file" yaml:"retry_file"`
}

// ReportingConfig contains settings for /status and /log
// ReportingConfig 包含 /status 与 /log 的设置
type ReportingConfig struct {
	LogFile         string `mapstructure:"log_file" yaml:"log_file"`
	RecentLimit     int    `mapstructure:"recent_limit" yaml:"recent_limit"`
	DefaultLogLines int    `mapstructure:"default_log_lines" yaml:"default_log_lines"`
	MaxLogLines     int    `mapstructure:"max_log_lines" yaml:"max_log_lines"`
}

// LogConfig contains logging settings
// LogConfig 包含日志设置
type LogConfig struct {
	// Level is the log level (debug, info, warn, error)
	// Level 是日志级别（debug, info, warn, error）
	Level string `mapstructure:"level" yaml:"level"`

	// Format is json or console
	// Format 为 json 或 console
	Format string `mapstructure:"format" yaml:"format"`

	// File is the log file path, empty disables file output
	// File 是日志文件路径，为空则不写文件
	File string `mapstructure:"file" yaml:"file"`

	MaxSize    int  `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups int  `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int  `mapstructure:"max_age" yaml:"max_age"`
	Compress   bool `mapstructure:"compress" yaml:"compress"`
}

// TelemetryConfig contains OpenTelemetry tracing settings
// TelemetryConfig 包含 OpenTelemetry 追踪设置
type TelemetryConfig struct {
	Enabled     bool    `mapstructure:"enabled" yaml:"enabled"`
	Endpoint    string  `mapstructure:"endpoint" yaml:"endpoint"`
	Insecure    bool    `mapstructure:"insecure" yaml:"insecure"`
	ServiceName string  `mapstructure:"service_name" yaml:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio" yaml:"sample_ratio"`
}

// GRPCConfig contains the optional gRPC health server settings
// GRPCConfig 包含可选 gRPC 健康检查服务设置
type GRPCConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`
}

// Load loads configuration from file and environment variables
// Load 从文件和环境变量加载配置
func Load(configPath string) (*Config, error) {
	v := newViper()

	// Set config file path / 设置配置文件路径
	if configPath == "" {
		configPath = os.Getenv(EnvPrefix + "_CONFIG_PATH")
	}
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	v.SetConfigFile(configPath)

	// Read config file / 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		// A missing file falls back to defaults / 文件不存在时使用默认值
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			if _, statErr := os.Stat(v.ConfigFileUsed()); statErr == nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// LoadFromYAML loads configuration from YAML bytes
// LoadFromYAML 从 YAML 字节加载配置
func LoadFromYAML(yamlData []byte) (*Config, error) {
	v := newViper()
	v.SetConfigType("yaml")

	if err := v.ReadConfig(strings.NewReader(string(yamlData))); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Default returns a configuration populated only with default values
// Default 返回仅包含默认值的配置
func Default() *Config {
	v := newViper()
	var cfg Config
	// Defaults always decode / 默认值总能解析
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	// Enable environment variable override / 启用环境变量覆盖
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// setDefaults sets default configuration values
// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// Server defaults / 服务默认值
	v.SetDefault("server.addr", DefaultServerAddr)
	v.SetDefault("server.env", DefaultServerEnv)
	v.SetDefault("server.read_timeout", DefaultReadTimeout)
	v.SetDefault("server.write_timeout", DefaultWriteTimeout)
	v.SetDefault("server.shutdown_timeout", DefaultShutdownTimeout)

	// Worker defaults / 工作进程默认值
	v.SetDefault("worker.command", DefaultWorkerCommand)
	v.SetDefault("worker.script", DefaultWorkerScript)
	v.SetDefault("worker.args", []string{})
	v.SetDefault("worker.dir", "")
	v.SetDefault("worker.env", DefaultWorkerEnv)
	v.SetDefault("worker.stdout_log", DefaultWorkerStdoutLog)
	v.SetDefault("worker.stderr_log", DefaultWorkerStderrLog)
	v.SetDefault("worker.stop_on_exit", true)

	// Supervisor defaults / 守护默认值
	v.SetDefault("supervisor.descendant_grace", DefaultDescendantGrace)
	v.SetDefault("supervisor.root_grace", DefaultRootGrace)
	v.SetDefault("supervisor.reap_timeout", DefaultReapTimeout)
	v.SetDefault("supervisor.poll_interval", DefaultPollInterval)
	v.SetDefault("supervisor.monitor_interval", DefaultMonitorInterval)

	// Artifact defaults / 结果文件默认值
	v.SetDefault("artifacts.success_file", DefaultSuccessFile)
	v.SetDefault("artifacts.failure_file", DefaultFailureFile)
	v.SetDefault("artifacts.retry_file", DefaultRetryFile)

	// Reporting defaults / 报告默认值
	v.SetDefault("reporting.log_file", DefaultProgressLog)
	v.SetDefault("reporting.recent_limit", DefaultRecentLimit)
	v.SetDefault("reporting.default_log_lines", DefaultLogLines)
	v.SetDefault("reporting.max_log_lines", DefaultMaxLogLines)

	// Log defaults / 日志默认值
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
	v.SetDefault("log.file", DefaultLogFile)
	v.SetDefault("log.max_size", DefaultLogMaxSize)
	v.SetDefault("log.max_backups", DefaultLogMaxBackups)
	v.SetDefault("log.max_age", DefaultLogMaxAge)
	v.SetDefault("log.compress", false)

	// Telemetry defaults / 遥测默认值
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", DefaultTelemetryTarget)
	v.SetDefault("telemetry.insecure", true)
	v.SetDefault("telemetry.service_name", DefaultServiceName)
	v.SetDefault("telemetry.sample_ratio", 1.0)

	// gRPC defaults / gRPC 默认值
	v.SetDefault("grpc.enabled", false)
	v.SetDefault("grpc.addr", DefaultGRPCAddr)
}

// Validate validates the configuration
// Validate 验证配置
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return errors.New("server.addr is required")
	}
	if strings.TrimSpace(c.Worker.Command) == "" {
		return errors.New("worker.command is required")
	}
	if c.Worker.StdoutLog == "" || c.Worker.StderrLog == "" {
		return errors.New("worker.stdout_log and worker.stderr_log are required")
	}
	for _, kv := range c.Worker.Env {
		if !strings.Contains(kv, "=") || strings.HasPrefix(kv, "=") {
			return fmt.Errorf("invalid worker.env entry %q (must be KEY=VALUE)", kv)
		}
	}

	// Validate intervals / 验证时间间隔
	durations := map[string]time.Duration{
		"supervisor.descendant_grace": c.Supervisor.DescendantGrace,
		"supervisor.root_grace":       c.Supervisor.RootGrace,
		"supervisor.reap_timeout":     c.Supervisor.ReapTimeout,
		"supervisor.poll_interval":    c.Supervisor.PollInterval,
		"supervisor.monitor_interval": c.Supervisor.MonitorInterval,
	}
	for key, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}

	if c.Artifacts.SuccessFile == "" || c.Artifacts.FailureFile == "" || c.Artifacts.RetryFile == "" {
		return errors.New("artifacts.success_file, failure_file and retry_file are required")
	}

	if c.Reporting.LogFile == "" {
		return errors.New("reporting.log_file is required")
	}
	if c.Reporting.RecentLimit < 0 {
		return errors.New("reporting.recent_limit must not be negative")
	}
	if c.Reporting.DefaultLogLines < 1 || c.Reporting.MaxLogLines < c.Reporting.DefaultLogLines {
		return fmt.Errorf("reporting.default_log_lines must be in [1, max_log_lines=%d]", c.Reporting.MaxLogLines)
	}

	// Validate log level / 验证日志级别
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Log.Format)
	}

	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return errors.New("telemetry.endpoint is required when telemetry is enabled")
	}
	if c.GRPC.Enabled && c.GRPC.Addr == "" {
		return errors.New("grpc.addr is required when grpc is enabled")
	}

	return nil
}

// IsDevelopment reports whether the service runs in development mode
// IsDevelopment 判断服务是否运行在开发模式
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// String returns a string representation of the config (for debugging)
// String 返回配置的字符串表示（用于调试）
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Server.Addr: %s, Worker.Command: %s %s, Log.Level: %s, GRPC.Enabled: %t}",
		c.Server.Addr,
		c.Worker.Command,
		c.Worker.Script,
		c.Log.Level,
		c.GRPC.Enabled,
	)
}

// ToYAML serializes the configuration to YAML format
// ToYAML 将配置序列化为 YAML 格式
func (c *Config) ToYAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// Equal compares two configs for equality
// Equal 比较两个配置是否相等
func (c *Config) Equal(other *Config) bool {
	if c == nil || other == nil {
		return c == other
	}
	return reflect.DeepEqual(normalize(*c), normalize(*other))
}

// normalize treats nil and empty slices alike so YAML round-trips compare equal.
func normalize(c Config) Config {
	if len(c.Worker.Args) == 0 {
		c.Worker.Args = nil
	}
	if len(c.Worker.Env) == 0 {
		c.Worker.Env = nil
	}
	return c
}

// MarshalYAML writes durations in their human readable form.
func (s ServerConfig) MarshalYAML() (interface{}, error) {
	return struct {
		Addr            string `yaml:"addr"`
		Env             string `yaml:"env"`
		ReadTimeout     string `yaml:"read_timeout"`
		WriteTimeout    string `yaml:"write_timeout"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
	}{
		Addr:            s.Addr,
		Env:             s.Env,
		ReadTimeout:     s.ReadTimeout.String(),
		WriteTimeout:    s.WriteTimeout.String(),
		ShutdownTimeout: s.ShutdownTimeout.String(),
	}, nil
}

// MarshalYAML writes durations in their human readable form.
func (s SupervisorConfig) MarshalYAML() (interface{}, error) {
	return struct {
		DescendantGrace string `yaml:"descendant_grace"`
		RootGrace       string `yaml:"root_grace"`
		ReapTimeout     string `yaml:"reap_timeout"`
		PollInterval    string `yaml:"poll_interval"`
		MonitorInterval string `yaml:"monitor_interval"`
	}{
		DescendantGrace: s.DescendantGrace.String(),
		RootGrace:       s.RootGrace.String(),
		ReapTimeout:     s.ReapTimeout.String(),
		PollInterval:    s.PollInterval.String(),
		MonitorInterval: s.MonitorInterval.String(),
	}, nil
}
