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

// Package control provides the HTTP control API of the worker supervisor.
// control 包提供工作进程守护服务的 HTTP 控制接口。
package control

import (
	"github.com/basoka/checkerx/internal/process"
	"github.com/basoka/checkerx/internal/stats"
)

// StatusResponse is the body of GET /status.
// StatusResponse 是 GET /status 的响应体。
type StatusResponse struct {
	stats.Statistics
	Process      process.Status `json:"process"`
	ServerStatus string         `json:"server_status"`
}

// LogQuery binds the query of GET /log
// LogQuery 绑定 GET /log 的查询参数
type LogQuery struct {
	Lines *int `form:"lines" binding:"omitempty,min=1"`
}

// LogResponse is the body of GET /log.
// LogResponse 是 GET /log 的响应体。
type LogResponse struct {
	Log        string `json:"log"`
	LinesCount int    `json:"lines_count"`
	FileExists bool   `json:"file_exists"`
	Error      string `json:"error,omitempty"`
}

// ErrorResponse is used for request and routing errors.
// ErrorResponse 用于请求与路由错误。
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the body of GET /health.
// HealthResponse 是 GET /health 的响应体。
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}
