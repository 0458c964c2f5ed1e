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
	"context"
	"sync"
	"time"
)

// DefaultMonitorInterval is the default polling interval
// DefaultMonitorInterval 是默认的轮询间隔
const DefaultMonitorInterval = 5 * time.Second

// Monitor polls the supervisor so a crashed worker is noticed without API traffic.
// Exits surface through the supervisor's event handler.
// Monitor 定期轮询守护者，使工作进程崩溃在无请求时也能被发现。
type Monitor struct {
	sup      *Supervisor
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMonitor creates a monitor; a non-positive interval uses the default
// NewMonitor 创建监控器；间隔非正数时使用默认值
func NewMonitor(sup *Supervisor, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultMonitorInterval
	}
	return &Monitor{sup: sup, interval: interval}
}

// Start begins polling until Stop is called or ctx is done
// Start 开始轮询，直到调用 Stop 或 ctx 结束
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}

	ctx, m.cancel = context.WithCancel(ctx)
	m.wg.Add(1)
	go m.monitorLoop(ctx)
}

// Stop ends polling and waits for the loop to return
// Stop 停止轮询并等待循环退出
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
}

func (m *Monitor) monitorLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sup.Status(ctx)
		}
	}
}
