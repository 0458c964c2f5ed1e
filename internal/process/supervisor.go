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

// Package process supervises the single worker process.
// process 包负责守护唯一的工作进程。
//
// This package provides:
// 此包提供：
// - Start, Stop and Status serialized by one lock / 由一把锁串行化的启动、停止与状态查询
// - Process tree termination with graceful then forceful escalation / 先优雅后强制的进程树终止
// - Lifecycle events and a polling monitor / 生命周期事件与轮询监控
package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/basoka/checkerx/internal/config"
	"github.com/basoka/checkerx/internal/logger"
	"github.com/basoka/checkerx/internal/otel_trace"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// handle is the single tracked worker.
// exitCode is written before done is closed.
// handle 是唯一被跟踪的工作进程，exitCode 在 done 关闭前写入。
type handle struct {
	cmd       *exec.Cmd
	pid       int
	runID     string
	startedAt time.Time

	done     chan struct{}
	exitCode int

	// stopping is set while a Stop runs without the lock; stopDone is closed with stopResult set
	// stopping 表示 Stop 正在无锁执行；stopDone 关闭时 stopResult 已写入
	stopping   bool
	stopDone   chan struct{}
	stopResult StopResult
}

// exited is the non-blocking liveness probe
// exited 是非阻塞的存活探测
func (h *handle) exited() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

func (h *handle) event(t ProcessEvent, at time.Time) Event {
	ev := Event{Type: t, PID: h.pid, RunID: h.runID, Time: at, ExitCode: -1}
	if h.exited() {
		ev.ExitCode = h.exitCode
	}
	return ev
}

// Option configures a Supervisor
type Option func(*Supervisor)

// WithTerminator replaces the platform terminator
// WithTerminator 替换平台终止器
func WithTerminator(t Terminator) Option {
	return func(s *Supervisor) { s.term = t }
}

// WithProcessTable replaces the gopsutil process table
// WithProcessTable 替换 gopsutil 进程表
func WithProcessTable(t ProcessTable) Option {
	return func(s *Supervisor) { s.table = t }
}

// WithClock overrides the clock used for start times and events
func WithClock(now func() time.Time) Option {
	return func(s *Supervisor) { s.now = now }
}

// Supervisor owns at most one worker process
// Supervisor 至多持有一个工作进程
type Supervisor struct {
	mu sync.Mutex
	h  *handle

	worker config.WorkerConfig
	timing config.SupervisorConfig
	term   Terminator
	table  ProcessTable
	now    func() time.Time

	handlerMu    sync.RWMutex
	eventHandler EventHandler
}

// NewSupervisor creates a supervisor for the configured worker
// NewSupervisor 为配置的工作进程创建守护者
func NewSupervisor(worker config.WorkerConfig, timing config.SupervisorConfig, opts ...Option) *Supervisor {
	s := &Supervisor{
		worker: worker,
		timing: timing,
		term:   DefaultTerminator(),
		table:  SystemProcessTable(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetEventHandler sets the event handler callback
// SetEventHandler 设置事件处理回调
func (s *Supervisor) SetEventHandler(handler EventHandler) {
	s.handlerMu.Lock()
	defer s.handlerMu.Unlock()
	s.eventHandler = handler
}

func (s *Supervisor) notify(events []Event) {
	s.handlerMu.RLock()
	handler := s.eventHandler
	s.handlerMu.RUnlock()

	if handler == nil {
		return
	}
	for _, ev := range events {
		handler(ev)
	}
}

// probeLocked clears a handle whose process has exited and returns the resulting event.
// A handle being stopped is left for Stop to clear.
// probeLocked 清理已退出进程的句柄；正在停止的句柄由 Stop 负责清理。
func (s *Supervisor) probeLocked(ctx context.Context) []Event {
	h := s.h
	if h == nil || h.stopping || !h.exited() {
		return nil
	}
	s.h = nil
	logger.InfoF(ctx, "[Process] worker exited pid=%d run_id=%s exit_code=%d", h.pid, h.runID, h.exitCode)
	return []Event{h.event(EventExited, s.now())}
}

// Start launches the worker unless one is already live
// Start 在没有存活工作进程时启动新进程
func (s *Supervisor) Start(ctx context.Context) StartResult {
	ctx, span := otel_trace.Start(ctx, "process.Start")
	defer span.End()

	s.mu.Lock()
	events := s.probeLocked(ctx)

	if h := s.h; h != nil {
		s.mu.Unlock()
		s.notify(events)
		logger.WarnF(ctx, "[Process] attempt to start already running worker pid=%d", h.pid)
		return StartResult{Status: StartAlreadyRunning, PID: h.pid, RunID: h.runID, Message: "Process is already running"}
	}

	h, err := s.launch(ctx)
	if err != nil {
		s.mu.Unlock()
		s.notify(events)
		span.RecordError(err)
		logger.ErrorF(ctx, "[Process] failed to start worker: %v", err)
		return StartResult{Status: StartError, Message: err.Error()}
	}
	s.h = h
	events = append(events, h.event(EventStarted, h.startedAt))
	s.mu.Unlock()

	s.notify(events)
	span.SetAttributes(attribute.Int("process.pid", h.pid), attribute.String("process.run_id", h.runID))
	logger.InfoF(ctx, "[Process] started worker pid=%d run_id=%s", h.pid, h.runID)
	return StartResult{Status: StartStarted, PID: h.pid, RunID: h.runID}
}

// launch spawns the worker with its output appended to the capture files
// launch 启动工作进程并将输出追加到捕获文件
func (s *Supervisor) launch(ctx context.Context) (*handle, error) {
	path, err := s.resolveCommand()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrExecutableNotFound, s.worker.Command, err)
	}

	var args []string
	if s.worker.Script != "" {
		script := s.worker.Script
		if !filepath.IsAbs(script) && s.worker.Dir != "" {
			script = filepath.Join(s.worker.Dir, script)
		}
		if _, err := os.Stat(script); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrScriptNotFound, script)
		}
		args = append(args, s.worker.Script)
	}
	args = append(args, s.worker.Args...)

	stdout, err := openAppend(s.worker.StdoutLog)
	if err != nil {
		return nil, err
	}
	stderr, err := openAppend(s.worker.StderrLog)
	if err != nil {
		stdout.Close()
		return nil, err
	}

	cmd := exec.Command(path, args...)
	cmd.Dir = s.worker.Dir
	cmd.Env = append(os.Environ(), s.worker.Env...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	setProcGroupAttr(cmd)

	if err := cmd.Start(); err != nil {
		stdout.Close()
		stderr.Close()
		return nil, fmt.Errorf("%w: %v", ErrStartFailed, err)
	}

	h := &handle{
		cmd:       cmd,
		pid:       cmd.Process.Pid,
		runID:     uuid.NewString(),
		startedAt: s.now(),
		done:      make(chan struct{}),
	}

	go func() {
		_ = cmd.Wait()
		h.exitCode = cmd.ProcessState.ExitCode()
		stdout.Close()
		stderr.Close()
		close(h.done)
	}()

	logger.DebugF(ctx, "[Process] launched %s %s", path, strings.Join(args, " "))
	return h, nil
}

// resolveCommand locates the executable the child will run.
// A relative command with a path separator is taken from worker.dir, as the child sees it.
// resolveCommand 定位子进程实际运行的可执行文件；含路径分隔符的相对命令以 worker.dir 为基准。
func (s *Supervisor) resolveCommand() (string, error) {
	command := s.worker.Command
	if s.worker.Dir == "" || filepath.IsAbs(command) || !strings.ContainsAny(command, `/\`) {
		return exec.LookPath(command)
	}

	path, err := filepath.Abs(filepath.Join(s.worker.Dir, command))
	if err != nil {
		return "", err
	}
	return exec.LookPath(path)
}

func openAppend(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create log directory: %v", ErrStartFailed, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrStartFailed, path, err)
	}
	return f, nil
}

// Stop terminates the worker and all of its descendants.
// A concurrent Stop waits for the one in progress and returns its result.
// Stop 终止工作进程及其全部后代；并发的 Stop 等待正在进行的停止并返回相同结果。
func (s *Supervisor) Stop(ctx context.Context) StopResult {
	ctx, span := otel_trace.Start(ctx, "process.Stop")
	defer span.End()

	s.mu.Lock()
	events := s.probeLocked(ctx)

	h := s.h
	if h == nil {
		s.mu.Unlock()
		s.notify(events)
		logger.Warn(ctx, "[Process] attempt to stop non-running worker")
		return StopResult{Status: StopNotRunning, Message: "Process is not running"}
	}
	if h.stopping {
		done := h.stopDone
		s.mu.Unlock()
		s.notify(events)
		<-done
		return h.stopResult
	}
	h.stopping = true
	h.stopDone = make(chan struct{})
	s.mu.Unlock()
	s.notify(events)

	span.SetAttributes(attribute.Int("process.pid", h.pid))
	res, release := s.terminate(ctx, h)

	s.mu.Lock()
	h.stopping = false
	h.stopResult = res
	if release && s.h == h {
		s.h = nil
		events = []Event{h.event(EventStopped, s.now())}
	} else {
		events = nil
	}
	close(h.stopDone)
	s.mu.Unlock()
	s.notify(events)

	if res.Status == StopError {
		span.RecordError(errors.New(res.Message))
		logger.ErrorF(ctx, "[Process] stop worker pid=%d: %s", h.pid, res.Message)
	} else {
		logger.InfoF(ctx, "[Process] stopped worker pid=%d run_id=%s", h.pid, h.runID)
	}
	return res
}

// terminate runs the escalation sequence and reports whether the handle can be cleared
// terminate 执行逐级终止流程，并返回句柄是否可以清理
func (s *Supervisor) terminate(ctx context.Context, h *handle) (StopResult, bool) {
	if h.exited() {
		return StopResult{Status: StopStopped}, true
	}

	descendants, err := s.table.Descendants(h.pid)
	if err != nil {
		logger.WarnF(ctx, "[Process] failed to list descendants of %d: %v", h.pid, err)
	}

	// 1-3: descendants share one grace deadline, then survivors are killed
	// 1-3：后代进程共享一个宽限期，之后强制结束仍存活者
	if len(descendants) > 0 {
		logger.InfoF(ctx, "[Process] terminating %d descendants of %d", len(descendants), h.pid)
		for _, pid := range descendants {
			if err := s.term.Graceful(pid); err != nil && !errors.Is(err, ErrProcessGone) {
				logger.WarnF(ctx, "[Process] graceful stop of descendant %d: %v", pid, err)
			}
		}
		s.waitFor(s.timing.DescendantGrace, func() bool { return len(s.alive(descendants)) == 0 })
		for _, pid := range s.alive(descendants) {
			logger.WarnF(ctx, "[Process] descendant %d did not exit, killing", pid)
			if err := s.term.Force(pid); err != nil && !errors.Is(err, ErrProcessGone) {
				logger.WarnF(ctx, "[Process] kill descendant %d: %v", pid, err)
			}
		}
	}

	// 4-6: the root gets its own grace period, then SIGKILL and a bounded reap
	// 4-6：根进程单独的宽限期，之后强制结束并有限等待回收
	var signalErr error
	if err := s.term.Graceful(h.pid); err != nil && !errors.Is(err, ErrProcessGone) {
		signalErr = err
	}
	if !waitDone(h.done, s.timing.RootGrace) {
		logger.WarnF(ctx, "[Process] worker %d did not exit within %s, killing", h.pid, s.timing.RootGrace)
		if err := s.term.Force(h.pid); err != nil && !errors.Is(err, ErrProcessGone) {
			signalErr = err
		}
		waitDone(h.done, s.timing.ReapTimeout)
	}

	if !h.exited() {
		msg := fmt.Sprintf("%v: worker %d is still alive", ErrStopFailed, h.pid)
		if signalErr != nil {
			msg = fmt.Sprintf("%s: %v", msg, signalErr)
		}
		return StopResult{Status: StopError, Message: msg}, false
	}

	survivors := s.alive(descendants)
	if len(survivors) > 0 {
		s.waitFor(s.timing.ReapTimeout, func() bool { return len(s.alive(survivors)) == 0 })
		survivors = s.alive(survivors)
	}
	if len(survivors) > 0 {
		return StopResult{
			Status:  StopError,
			Message: fmt.Sprintf("%v: worker exited but descendants %v survived", ErrStopFailed, survivors),
		}, true
	}
	return StopResult{Status: StopStopped}, true
}

func (s *Supervisor) alive(pids []int) []int {
	var out []int
	for _, pid := range pids {
		if s.table.Alive(pid) {
			out = append(out, pid)
		}
	}
	return out
}

// waitFor polls cond until it holds or d elapses
// waitFor 轮询 cond 直到成立或超时
func (s *Supervisor) waitFor(d time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(d)
	for {
		if cond() {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
		time.Sleep(s.timing.PollInterval)
	}
}

func waitDone(done <-chan struct{}, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

// Status probes the worker without changing anything but a stale handle
// Status 探测工作进程状态，仅会清理已失效的句柄
func (s *Supervisor) Status(ctx context.Context) Status {
	s.mu.Lock()
	events := s.probeLocked(ctx)
	h := s.h
	var st Status
	if h == nil {
		st = Status{Running: false, State: StatusStopped}
	} else {
		pid := h.pid
		startedAt := h.startedAt
		st = Status{
			Running:       !h.exited(),
			PID:           &pid,
			State:         StatusRunning,
			RunID:         h.runID,
			StartedAt:     &startedAt,
			UptimeSeconds: s.now().Sub(startedAt).Seconds(),
		}
		if h.stopping {
			st.State = StatusStopping
		}
	}
	s.mu.Unlock()

	s.notify(events)
	return st
}

// IsRunning reports whether a live worker is tracked
// IsRunning 判断是否有存活的工作进程
func (s *Supervisor) IsRunning(ctx context.Context) bool {
	return s.Status(ctx).Running
}

// Shutdown stops a live worker when stop_on_exit is enabled
// Shutdown 在启用 stop_on_exit 时停止存活的工作进程
func (s *Supervisor) Shutdown(ctx context.Context) error {
	if !s.worker.StopOnExit {
		if st := s.Status(ctx); st.Running {
			logger.InfoF(ctx, "[Process] leaving worker pid=%d running on exit", *st.PID)
		}
		return nil
	}

	res := s.Stop(ctx)
	if res.Status == StopError {
		return errors.New(res.Message)
	}
	return nil
}
