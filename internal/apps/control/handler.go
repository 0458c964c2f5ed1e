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
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/basoka/checkerx/internal/logger"
	"github.com/basoka/checkerx/internal/logtail"
	"github.com/basoka/checkerx/internal/process"
	"github.com/basoka/checkerx/internal/stats"
	"github.com/gin-gonic/gin"
)

const logNotFound = "Log file not found."

// Worker is the supervisor surface used by the handlers
// Worker 是处理器使用的守护者接口
type Worker interface {
	Start(ctx context.Context) process.StartResult
	Stop(ctx context.Context) process.StopResult
	Status(ctx context.Context) process.Status
}

// StatsProvider produces the aggregated statistics
// StatsProvider 生成汇总统计
type StatsProvider interface {
	Statistics(ctx context.Context) stats.Statistics
}

// HandlerConfig holds handler configuration.
// HandlerConfig 保存处理器配置。
type HandlerConfig struct {
	LogFile         string
	DefaultLogLines int
	MaxLogLines     int
	Version         string
}

// Handler handles control API requests.
// Handler 处理控制接口请求。
type Handler struct {
	worker Worker
	stats  StatsProvider
	config *HandlerConfig
	tail   func(path string, n int) (logtail.Result, error)
	now    func() time.Time
}

// NewHandler creates a new control handler.
// NewHandler 创建新的控制处理器。
func NewHandler(worker Worker, statsProvider StatsProvider, cfg *HandlerConfig) *Handler {
	if cfg.DefaultLogLines < 1 {
		cfg.DefaultLogLines = 50
	}
	if cfg.MaxLogLines < cfg.DefaultLogLines {
		cfg.MaxLogLines = cfg.DefaultLogLines
	}
	return &Handler{
		worker: worker,
		stats:  statsProvider,
		config: cfg,
		tail:   logtail.Tail,
		now:    time.Now,
	}
}

// Start godoc
// @Summary Start the worker
// @Description Launch the worker process unless one is already running
// @Tags Control
// @Produce json
// @Success 200 {object} process.StartResult
// @Failure 409 {object} process.StartResult
// @Failure 500 {object} process.StartResult
// @Router /start [post]
func (h *Handler) Start(c *gin.Context) {
	res := h.worker.Start(c.Request.Context())

	switch res.Status {
	case process.StartStarted:
		c.JSON(http.StatusOK, res)
	case process.StartAlreadyRunning:
		c.JSON(http.StatusConflict, res)
	default:
		c.JSON(http.StatusInternalServerError, res)
	}
}

// Stop godoc
// @Summary Stop the worker
// @Description Terminate the worker and its descendants, gracefully first
// @Tags Control
// @Produce json
// @Success 200 {object} process.StopResult
// @Failure 409 {object} process.StopResult
// @Failure 500 {object} process.StopResult
// @Router /stop [post]
func (h *Handler) Stop(c *gin.Context) {
	res := h.worker.Stop(c.Request.Context())

	switch res.Status {
	case process.StopStopped:
		c.JSON(http.StatusOK, res)
	case process.StopNotRunning:
		c.JSON(http.StatusConflict, res)
	default:
		c.JSON(http.StatusInternalServerError, res)
	}
}

// IsRunning godoc
// @Summary Worker liveness
// @Description Report whether the worker is running
// @Tags Control
// @Produce json
// @Success 200 {object} process.Status
// @Router /is_running [get]
func (h *Handler) IsRunning(c *gin.Context) {
	c.JSON(http.StatusOK, h.worker.Status(c.Request.Context()))
}

// GetStatus godoc
// @Summary Aggregated statistics
// @Description Counts and most recent records per category plus worker status
// @Tags Control
// @Produce json
// @Success 200 {object} StatusResponse
// @Router /status [get]
func (h *Handler) GetStatus(c *gin.Context) {
	ctx := c.Request.Context()
	c.JSON(http.StatusOK, StatusResponse{
		Statistics:   h.stats.Statistics(ctx),
		Process:      h.worker.Status(ctx),
		ServerStatus: "healthy",
	})
}

// GetLog godoc
// @Summary Tail the progress log
// @Description Return the last N lines of the worker progress log
// @Tags Control
// @Produce json
// @Param lines query int false "Number of lines" default(50)
// @Success 200 {object} LogResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} LogResponse
// @Router /log [get]
func (h *Handler) GetLog(c *gin.Context) {
	var query LogQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid lines parameter",
			Message: "lines must be a positive integer",
		})
		return
	}

	lines := h.config.DefaultLogLines
	if query.Lines != nil {
		lines = *query.Lines
	}
	if lines > h.config.MaxLogLines {
		lines = h.config.MaxLogLines
	}

	res, err := h.tail(h.config.LogFile, lines)
	if err != nil {
		if errors.Is(err, logtail.ErrInvalidLineCount) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid lines parameter", Message: err.Error()})
			return
		}
		logger.ErrorF(c.Request.Context(), "[Control] read log %s: %v", h.config.LogFile, err)
		c.JSON(http.StatusInternalServerError, LogResponse{
			Log:        fmt.Sprintf("Error reading log file: %v", err),
			FileExists: true,
			Error:      err.Error(),
		})
		return
	}

	if !res.Found {
		logger.WarnF(c.Request.Context(), "[Control] log file %s not found", h.config.LogFile)
		c.JSON(http.StatusOK, LogResponse{Log: logNotFound})
		return
	}

	c.JSON(http.StatusOK, LogResponse{
		Log:        res.Text(),
		LinesCount: len(res.Lines),
		FileExists: true,
	})
}

// Health godoc
// @Summary Health check
// @Description Liveness of the supervisor service itself
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: h.now().Format(time.RFC3339),
		Version:   h.config.Version,
	})
}

// NotFound answers unknown routes
// NotFound 处理未知路由
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, ErrorResponse{
		Error:   "Endpoint not found",
		Message: "The requested endpoint does not exist",
	})
}

// MethodNotAllowed answers known routes called with the wrong method
// MethodNotAllowed 处理方法不匹配的请求
func MethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, ErrorResponse{
		Error:   "Method not allowed",
		Message: fmt.Sprintf("%s is not supported for %s", c.Request.Method, c.Request.URL.Path),
	})
}

// Recovery turns a handler panic into a JSON 500
// Recovery 将处理器 panic 转换为 JSON 500 响应
func Recovery(c *gin.Context, recovered any) {
	logger.ErrorF(c.Request.Context(), "[Control] internal server error: %v", recovered)
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
		Error:   "Internal server error",
		Message: "An unexpected error occurred",
	})
}
