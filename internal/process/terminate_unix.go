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

//go:build !windows

package process

import (
	"errors"
	"fmt"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// signalTerminator terminates processes with SIGTERM and SIGKILL
// signalTerminator 使用 SIGTERM 与 SIGKILL 终止进程
type signalTerminator struct{}

// DefaultTerminator returns the platform terminator
// DefaultTerminator 返回当前平台的终止器
func DefaultTerminator() Terminator {
	return signalTerminator{}
}

func (signalTerminator) Graceful(pid int) error {
	return sendSignal(pid, unix.SIGTERM)
}

func (signalTerminator) Force(pid int) error {
	return sendSignal(pid, unix.SIGKILL)
}

func sendSignal(pid int, sig syscall.Signal) error {
	if err := unix.Kill(pid, sig); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return ErrProcessGone
		}
		return fmt.Errorf("send %s to %d: %w", unix.SignalName(sig), pid, err)
	}
	return nil
}

// setProcGroupAttr puts the worker in its own process group
// so a signal aimed at the supervisor's group does not reach it
// setProcGroupAttr 让工作进程使用独立的进程组
func setProcGroupAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true, // Create new process group / 创建新进程组
	}
}
