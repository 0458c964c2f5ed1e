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
	"fmt"

	gopsprocess "github.com/shirou/gopsutil/v4/process"
)

// ProcessTable answers questions about processes other than the direct child
// ProcessTable 查询直接子进程以外的进程信息
type ProcessTable interface {
	// Descendants returns every transitive child of pid, parents before children
	// Descendants 返回 pid 的全部后代进程，父进程在前
	Descendants(pid int) ([]int, error)

	// Alive reports whether pid exists and is not a zombie
	// Alive 判断 pid 是否存在且不是僵尸进程
	Alive(pid int) bool
}

// systemTable reads the operating system process table through gopsutil
// systemTable 通过 gopsutil 读取系统进程表
type systemTable struct{}

// SystemProcessTable returns the gopsutil backed process table
// SystemProcessTable 返回基于 gopsutil 的进程表
func SystemProcessTable() ProcessTable {
	return systemTable{}
}

func (systemTable) Descendants(root int) ([]int, error) {
	procs, err := gopsprocess.Processes()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	children := make(map[int32][]int32, len(procs))
	for _, p := range procs {
		ppid, err := p.Ppid()
		if err != nil {
			// Exited while listing / 列举期间已退出
			continue
		}
		children[ppid] = append(children[ppid], p.Pid)
	}

	var out []int
	seen := map[int32]bool{int32(root): true}
	queue := []int32{int32(root)}
	for len(queue) > 0 {
		pid := queue[0]
		queue = queue[1:]
		for _, child := range children[pid] {
			if seen[child] {
				continue
			}
			seen[child] = true
			out = append(out, int(child))
			queue = append(queue, child)
		}
	}
	return out, nil
}

func (systemTable) Alive(pid int) bool {
	exists, err := gopsprocess.PidExists(int32(pid))
	if err != nil || !exists {
		return false
	}

	p, err := gopsprocess.NewProcess(int32(pid))
	if err != nil {
		return false
	}
	states, err := p.Status()
	if err != nil {
		return true
	}
	for _, s := range states {
		if s == gopsprocess.Zombie {
			return false
		}
	}
	return true
}
