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

package control

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/basoka/checkerx/internal/artifact"
	"github.com/basoka/checkerx/internal/process"
	"github.com/basoka/checkerx/internal/stats"
	"github.com/gin-gonic/gin"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWorker 返回预设结果的守护者
// fakeWorker returns canned supervisor results
type fakeWorker struct {
	start  process.StartResult
	stop   process.StopResult
	status process.Status
}

func (f *fakeWorker) Start(context.Context) process.StartResult { return f.start }
func (f *fakeWorker) Stop(context.Context) process.StopResult   { return f.stop }
func (f *fakeWorker) Status(context.Context) process.Status     { return f.status }

type fakeStats struct{ s stats.Statistics }

func (f fakeStats) Statistics(context.Context) stats.Statistics { return f.s }

// 测试辅助函数：创建测试 Gin 引擎
func setupTestRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.CustomRecovery(Recovery))
	RegisterFallbacks(r)
	RegisterRoutes(r, h)
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r
}

func newTestHandler(t *testing.T, w *fakeWorker, logContent *string) *Handler {
	t.Helper()
	logFile := filepath.Join(t.TempDir(), "login_process.log")
	if logContent != nil {
		require.NoError(t, os.WriteFile(logFile, []byte(*logContent), 0644))
	}
	h := NewHandler(w, fakeStats{s: stats.Statistics{
		SuccessCount:   2,
		FailedCount:    1,
		TotalAttempts:  3,
		LatestSuccess:  []artifact.Record{{"username": "a", "timestamp": "2024-01-02"}},
		LatestFailures: []artifact.Record{},
		LatestRetries:  []artifact.Record{},
		LastUpdated:    "2024-05-01T12:00:00Z",
	}}, &HandlerConfig{LogFile: logFile, DefaultLogLines: 50, MaxLogLines: 100, Version: "1.2.3"})
	h.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return h
}

func doRequest(r http.Handler, method, path string) (*httptest.ResponseRecorder, map[string]any) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	r.ServeHTTP(w, req)

	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestStartHandler(t *testing.T) {
	tests := []struct {
		name       string
		result     process.StartResult
		wantCode   int
		wantStatus string
	}{
		{"started", process.StartResult{Status: process.StartStarted, PID: 42, RunID: "r1"}, http.StatusOK, "started"},
		{"already running", process.StartResult{Status: process.StartAlreadyRunning, PID: 42, Message: "Process is already running"}, http.StatusConflict, "already_running"},
		{"error", process.StartResult{Status: process.StartError, Message: "worker executable not found"}, http.StatusInternalServerError, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupTestRouter(newTestHandler(t, &fakeWorker{start: tt.result}, nil))
			w, body := doRequest(r, http.MethodPost, "/start")

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantStatus, body["status"])
			if tt.result.PID != 0 {
				assert.EqualValues(t, tt.result.PID, body["pid"])
			}
			if tt.result.Message != "" {
				assert.Equal(t, tt.result.Message, body["message"])
			}
		})
	}
}

func TestStopHandler(t *testing.T) {
	tests := []struct {
		name     string
		result   process.StopResult
		wantCode int
	}{
		{"stopped", process.StopResult{Status: process.StopStopped}, http.StatusOK},
		{"not running", process.StopResult{Status: process.StopNotRunning, Message: "Process is not running"}, http.StatusConflict},
		{"error", process.StopResult{Status: process.StopError, Message: "process failed to stop"}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupTestRouter(newTestHandler(t, &fakeWorker{stop: tt.result}, nil))
			w, body := doRequest(r, http.MethodPost, "/stop")

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, string(tt.result.Status), body["status"])
		})
	}
}

func TestIsRunningHandler(t *testing.T) {
	t.Run("not running has null pid", func(t *testing.T) {
		r := setupTestRouter(newTestHandler(t, &fakeWorker{status: process.Status{State: process.StatusStopped}}, nil))
		w, body := doRequest(r, http.MethodGet, "/is_running")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, false, body["running"])
		assert.Contains(t, body, "pid")
		assert.Nil(t, body["pid"])
		assert.Equal(t, "stopped", body["status"])
	})

	t.Run("running", func(t *testing.T) {
		pid := 99
		started := time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC)
		st := process.Status{Running: true, PID: &pid, State: process.StatusRunning, RunID: "abc", StartedAt: &started, UptimeSeconds: 3600}
		r := setupTestRouter(newTestHandler(t, &fakeWorker{status: st}, nil))
		w, body := doRequest(r, http.MethodGet, "/is_running")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, body["running"])
		assert.EqualValues(t, 99, body["pid"])
		assert.Equal(t, "abc", body["run_id"])
		assert.EqualValues(t, 3600, body["uptime_seconds"])
	})
}

func TestGetStatusHandler(t *testing.T) {
	r := setupTestRouter(newTestHandler(t, &fakeWorker{status: process.Status{State: process.StatusStopped}}, nil))
	w, body := doRequest(r, http.MethodGet, "/status")

	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, body["success_count"])
	assert.EqualValues(t, 1, body["failed_count"])
	assert.EqualValues(t, 0, body["retry_count"])
	assert.EqualValues(t, 3, body["total_attempts"])
	assert.Equal(t, "healthy", body["server_status"])
	assert.Equal(t, "2024-05-01T12:00:00Z", body["last_updated"])
	assert.Len(t, body["latest_success"], 1)
	assert.Equal(t, []any{}, body["latest_failures"])
	assert.NotContains(t, body, "error")

	proc, ok := body["process"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, proc["running"])
}

func TestGetLogHandler(t *testing.T) {
	content := "line1\nline2\nline3\n"

	tests := []struct {
		name      string
		content   *string
		query     string
		wantCode  int
		wantLog   string
		wantCount int
		wantFound bool
	}{
		{"default lines", &content, "", http.StatusOK, "line1\nline2\nline3\n", 3, true},
		{"last two", &content, "?lines=2", http.StatusOK, "line2\nline3\n", 2, true},
		{"more than available", &content, "?lines=5", http.StatusOK, "line1\nline2\nline3\n", 3, true},
		{"missing file", nil, "?lines=5", http.StatusOK, "Log file not found.", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupTestRouter(newTestHandler(t, &fakeWorker{}, tt.content))
			w, body := doRequest(r, http.MethodGet, "/log"+tt.query)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantLog, body["log"])
			assert.EqualValues(t, tt.wantCount, body["lines_count"])
			assert.Equal(t, tt.wantFound, body["file_exists"])
		})
	}
}

func TestGetLogRejectsBadLines(t *testing.T) {
	content := "a\n"
	for _, q := range []string{"0", "-1", "abc", "1.5"} {
		t.Run(q, func(t *testing.T) {
			r := setupTestRouter(newTestHandler(t, &fakeWorker{}, &content))
			w, body := doRequest(r, http.MethodGet, "/log?lines="+q)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "Invalid lines parameter", body["error"])
		})
	}
}

func TestGetLogReadError(t *testing.T) {
	h := newTestHandler(t, &fakeWorker{}, nil)
	h.config.LogFile = t.TempDir()
	r := setupTestRouter(h)

	w, body := doRequest(r, http.MethodGet, "/log")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.EqualValues(t, 0, body["lines_count"])
	assert.NotEmpty(t, body["error"])
}

func TestHealthHandler(t *testing.T) {
	r := setupTestRouter(newTestHandler(t, &fakeWorker{}, nil))
	w, body := doRequest(r, http.MethodGet, "/health")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "1.2.3", body["version"])
	assert.Equal(t, "2024-05-01T12:00:00Z", body["timestamp"])
}

func TestFallbacks(t *testing.T) {
	r := setupTestRouter(newTestHandler(t, &fakeWorker{}, nil))

	w, body := doRequest(r, http.MethodGet, "/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Endpoint not found", body["error"])

	w, body = doRequest(r, http.MethodGet, "/start")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "Method not allowed", body["error"])

	w, body = doRequest(r, http.MethodGet, "/panic")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", body["error"])
}

// TestProperty_LogLinesClamped 验证返回行数等于 min(请求数, 上限, 文件行数)
// TestProperty_LogLinesClamped checks lines_count == min(requested, max, available)
func TestProperty_LogLinesClamped(t *testing.T) {
	var sb strings.Builder
	const available = 150
	for i := 0; i < available; i++ {
		fmt.Fprintf(&sb, "line %d\n", i)
	}
	content := sb.String()
	r := setupTestRouter(newTestHandler(t, &fakeWorker{}, &content))

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("lines_count is clamped by max_log_lines and file size", prop.ForAll(
		func(n int) bool {
			w, body := doRequest(r, http.MethodGet, fmt.Sprintf("/log?lines=%d", n))
			if w.Code != http.StatusOK {
				return false
			}
			want := n
			if want > 100 {
				want = 100
			}
			if want > available {
				want = available
			}
			count, ok := body["lines_count"].(float64)
			return ok && int(count) == want
		},
		gen.IntRange(1, 10000),
	))

	properties.TestingRun(t)
}
