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

package process

import (
	"errors"
	"time"
)

// Common errors for worker supervision
// 工作进程守护的常见错误
var (
	// ErrProcessGone indicates the target process no longer exists
	// ErrProcessGone 表示目标进程已不存在
	ErrProcessGone = errors.New("process already gone")

	// ErrExecutableNotFound indicates the worker command could not be resolved
	// ErrExecutableNotFound 表示无法解析工作进程命令
	ErrExecutableNotFound = errors.New("worker executable not found")

	// ErrScriptNotFound indicates the configured worker script does not exist
	// ErrScriptNotFound 表示配置的工作脚本不存在
	ErrScriptNotFound = errors.New("worker script not found")

	// ErrStartFailed indicates the process failed to start
	// ErrStartFailed 表示进程启动失败
	ErrStartFailed = errors.New("process failed to start")

	// ErrStopFailed indicates the worker could not be confirmed dead
	// ErrStopFailed 表示无法确认工作进程已退出
	ErrStopFailed = errors.New("process failed to stop")
)

// ProcessStatus represents the state reported for the worker
// ProcessStatus 表示工作进程的状态
type ProcessStatus string

const (
	// StatusRunning means a live worker is tracked
	// StatusRunning 表示存在被跟踪的存活工作进程
	StatusRunning ProcessStatus = "running"

	// StatusStopping means a Stop is in progress
	// StatusStopping 表示正在执行 Stop
	StatusStopping ProcessStatus = "stopping"

	// StatusStopped means no worker is tracked
	// StatusStopped 表示没有被跟踪的工作进程
	StatusStopped ProcessStatus = "stopped"
)

// StartStatus tags the outcome of Start
// StartStatus 标记 Start 的结果
type StartStatus string

const (
	// StartStarted means a new worker was launched
	// StartStarted 表示已启动新的工作进程
	StartStarted StartStatus = "started"

	// StartAlreadyRunning means a live worker already exists
	// StartAlreadyRunning 表示已有存活的工作进程
	StartAlreadyRunning StartStatus = "already_running"

	// StartError means the launch failed
	// StartError 表示启动失败
	StartError StartStatus = "error"
)

// StartResult is the outcome of Start
// StartResult 是 Start 的结果
type StartResult struct {
	Status  StartStatus `json:"status"`
	PID     int         `json:"pid,omitempty"`
	RunID   string      `json:"run_id,omitempty"`
	Message string      `json:"message,omitempty"`
}

// StopStatus tags the outcome of Stop
// StopStatus 标记 Stop 的结果
type StopStatus string

const (
	// StopStopped means the worker tree is gone
	// StopStopped 表示工作进程树已结束
	StopStopped StopStatus = "stopped"

	// StopNotRunning means there was nothing to stop
	// StopNotRunning 表示没有需要停止的进程
	StopNotRunning StopStatus = "not_running"

	// StopError means termination could not be confirmed
	// StopError 表示无法确认终止成功
	StopError StopStatus = "error"
)

// StopResult is the outcome of Stop
// StopResult 是 Stop 的结果
type StopResult struct {
	Status  StopStatus `json:"status"`
	Message string     `json:"message,omitempty"`
}

// Status is a point-in-time view of the worker
// Status 是工作进程的即时视图
type Status struct {
	Running       bool          `json:"running"`
	PID           *int          `json:"pid"`
	State         ProcessStatus `json:"status"`
	RunID         string        `json:"run_id,omitempty"`
	StartedAt     *time.Time    `json:"started_at,omitempty"`
	UptimeSeconds float64       `json:"uptime_seconds,omitempty"`
}

// ProcessEvent represents a worker lifecycle event
// ProcessEvent 表示工作进程生命周期事件
type ProcessEvent string

const (
	// EventStarted indicates the worker has started
	// EventStarted 表示工作进程已启动
	EventStarted ProcessEvent = "started"

	// EventStopped indicates the worker was stopped on request
	// EventStopped 表示工作进程已按请求停止
	EventStopped ProcessEvent = "stopped"

	// EventExited indicates the worker exited on its own
	// EventExited 表示工作进程自行退出
	EventExited ProcessEvent = "exited"
)

// Event carries one lifecycle transition
// Event 描述一次生命周期变化
type Event struct {
	Type     ProcessEvent
	PID      int
	RunID    string
	ExitCode int
	Time     time.Time
}

// EventHandler is a callback for lifecycle events.
// It runs after the supervisor lock is released and may call back into the supervisor.
// EventHandler 是生命周期事件回调，在释放锁之后调用。
type EventHandler func(Event)
