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

package otel_trace

import (
	"context"
	"testing"

	"github.com/basoka/checkerx/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestStartBeforeInitReturnsNoopSpan(t *testing.T) {
	mu.Lock()
	saved := Tracer
	Tracer = nil
	mu.Unlock()
	t.Cleanup(func() { Tracer = saved })

	ctx := context.Background()
	got, span := Start(ctx, "noop")
	defer span.End()

	assert.Equal(t, ctx, got)
	assert.False(t, span.SpanContext().IsValid())
}

func TestInitDisabledUsesNoopTracer(t *testing.T) {
	ctx := context.Background()
	Init(ctx, config.TelemetryConfig{Enabled: false})
	defer Shutdown(ctx)

	assert.NotNil(t, Tracer)
	assert.False(t, IsEnabled())

	_, span := Start(ctx, "disabled")
	span.End()
	assert.False(t, span.SpanContext().IsSampled())
}
