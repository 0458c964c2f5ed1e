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

// Package logger 提供基于 zap 的结构化日志，并通过 otelzap 关联追踪上下文
// Package logger provides zap based structured logging correlated with traces via otelzap
package logger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/basoka/checkerx/internal/config"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu     sync.RWMutex
	global = otelzap.New(zap.NewNop())
)

// Init builds the process-wide logger from configuration
// Init 根据配置初始化全局日志
func Init(cfg config.LogConfig) error {
	zl, err := New(cfg)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	global = otelzap.New(zl,
		otelzap.WithMinLevel(zl.Level()),
		otelzap.WithTraceIDField(true),
	)
	return nil
}

// New creates a zap logger writing to stdout and, when configured, a rotating file
// New 创建写入标准输出及（可选）滚动文件的 zap 日志
func New(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if cfg.Format == "console" {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	sinks := []zapcore.WriteSyncer{zapcore.Lock(os.Stdout)}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		sinks = append(sinks, zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}))
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(sinks...), level)
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)), nil
}

// ParseLevel maps debug/info/warn/error to a zap level
// ParseLevel 将 debug/info/warn/error 转换为 zap 级别
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level: %s", s)
	}
}

// L returns the underlying zap logger, e.g. for the gRPC server
// L 返回底层 zap 日志实例（例如供 gRPC 服务使用）
func L() *zap.Logger {
	return get().Logger
}

// Sync flushes buffered log entries
// Sync 刷新缓冲的日志
func Sync() {
	_ = get().Sync()
}

func get() *otelzap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

func Debug(ctx context.Context, msg string, fields ...zap.Field) {
	get().Ctx(ctx).Debug(msg, fields...)
}

func Info(ctx context.Context, msg string, fields ...zap.Field) {
	get().Ctx(ctx).Info(msg, fields...)
}

func Warn(ctx context.Context, msg string, fields ...zap.Field) {
	get().Ctx(ctx).Warn(msg, fields...)
}

func Error(ctx context.Context, msg string, fields ...zap.Field) {
	get().Ctx(ctx).Error(msg, fields...)
}

func DebugF(ctx context.Context, format string, args ...interface{}) {
	get().Ctx(ctx).Debug(fmt.Sprintf(format, args...))
}

func InfoF(ctx context.Context, format string, args ...interface{}) {
	get().Ctx(ctx).Info(fmt.Sprintf(format, args...))
}

func WarnF(ctx context.Context, format string, args ...interface{}) {
	get().Ctx(ctx).Warn(fmt.Sprintf(format, args...))
}

func ErrorF(ctx context.Context, format string, args ...interface{}) {
	get().Ctx(ctx).Error(fmt.Sprintf(format, args...))
}
