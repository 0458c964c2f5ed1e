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

//go:build windows

package process

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/windows"
)

// taskkillTerminator terminates processes with taskkill
// taskkillTerminator 使用 taskkill 终止进程
type taskkillTerminator struct{}

// DefaultTerminator returns the platform terminator
// DefaultTerminator 返回当前平台的终止器
func DefaultTerminator() Terminator {
	return taskkillTerminator{}
}

func (taskkillTerminator) Graceful(pid int) error {
	return taskkill(pid, false)
}

func (taskkillTerminator) Force(pid int) error {
	return taskkill(pid, true)
}

func taskkill(pid int, force bool) error {
	args := []string{"/PID", strconv.Itoa(pid)}
	if force {
		args = append([]string{"/F"}, args...)
	}

	out, err := exec.Command("taskkill", args...).CombinedOutput()
	if err == nil {
		return nil
	}
	// 128: no such process / 128：进程不存在
	if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 128 {
		return ErrProcessGone
	}
	if strings.Contains(strings.ToLower(string(out)), "not found") {
		return ErrProcessGone
	}
	return fmt.Errorf("taskkill %d: %w: %s", pid, err, strings.TrimSpace(string(out)))
}

// setProcGroupAttr starts the worker in a new process group
// setProcGroupAttr 在新的进程组中启动工作进程
func setProcGroupAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: windows.CREATE_NEW_PROCESS_GROUP,
	}
}
