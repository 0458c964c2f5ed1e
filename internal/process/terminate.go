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

// Terminator sends termination requests to a single pid.
// Both methods return ErrProcessGone when the pid no longer exists.
// Terminator 向单个进程发送终止请求，进程不存在时返回 ErrProcessGone。
type Terminator interface {
	// Graceful asks the process to exit (SIGTERM, or taskkill without /F)
	// Graceful 请求进程退出
	Graceful(pid int) error

	// Force kills the process (SIGKILL, or taskkill /F)
	// Force 强制结束进程
	Force(pid int) error
}
