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

// Package otel_trace wires OpenTelemetry tracing for the supervisor.
// otel_trace 包为守护服务接入 OpenTelemetry 追踪。
package otel_trace

import (
	"context"
	"sync"

	"github.com/basoka/checkerx/internal/config"
	"github.com/basoka/checkerx/internal/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/basoka/checkerx"

var (
	Tracer        trace.Tracer
	shutdownFuncs []func(context.Context) error
	mu            sync.Mutex
	enabled       bool
)

// Init initializes tracing from the telemetry section.
// Init 根据遥测配置初始化追踪。
// A failing exporter falls back to a noop tracer rather than blocking startup.
// 导出器初始化失败时退回空操作追踪器，不阻塞启动。
func Init(ctx context.Context, cfg config.TelemetryConfig) {
	mu.Lock()
	defer mu.Unlock()

	if Tracer != nil {
		return
	}

	if !cfg.Enabled {
		logger.Info(ctx, "[Trace] OpenTelemetry tracing is disabled / OpenTelemetry 追踪已禁用")
		Tracer = noop.NewTracerProvider().Tracer("noop")
		enabled = false
		return
	}

	otel.SetTextMapPropagator(newPropagator())

	tracerProvider, err := newTracerProvider(ctx, cfg)
	if err != nil {
		logger.WarnF(ctx, "[Trace] Failed to init trace provider, using noop tracer: %v", err)
		Tracer = noop.NewTracerProvider().Tracer("noop")
		enabled = false
		return
	}

	shutdownFuncs = append(shutdownFuncs, tracerProvider.Shutdown)
	otel.SetTracerProvider(tracerProvider)

	Tracer = tracerProvider.Tracer(instrumentationName)
	enabled = true
	logger.InfoF(ctx, "[Trace] OpenTelemetry tracing initialized, endpoint=%s", cfg.Endpoint)
}

// IsEnabled returns whether tracing is enabled.
// IsEnabled 返回追踪是否已启用。
func IsEnabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

func Shutdown(ctx context.Context) {
	mu.Lock()
	fns := shutdownFuncs
	shutdownFuncs = nil
	mu.Unlock()

	for _, fn := range fns {
		if err := fn(ctx); err != nil {
			logger.WarnF(ctx, "[Trace] shutdown failed: %v", err)
		}
	}
}

func Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if Tracer == nil {
		// Return noop span if not initialized / 如果未初始化则返回空操作 span
		return ctx, noop.Span{}
	}
	return Tracer.Start(ctx, name, opts...)
}
