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

// Package artifact reads the JSON-array result files written by the worker.
// artifact 包读取工作进程写入的 JSON 数组结果文件。
package artifact

// Category identifies one of the result files
// Category 标识一种结果文件
type Category string

const (
	CategorySuccess Category = "success"
	CategoryFailure Category = "failure"
	CategoryRetry   Category = "retry"
)

// Categories returns all categories in reporting order
// Categories 按报告顺序返回所有类别
func Categories() []Category {
	return []Category{CategorySuccess, CategoryFailure, CategoryRetry}
}

// Record is one JSON object appended by the worker.
// Unknown fields are kept so API consumers see the record unchanged.
// Record 是工作进程追加的一个 JSON 对象，未知字段原样保留。
type Record map[string]any

// Timestamp returns the "timestamp" field, or "" when absent or not a string
// Timestamp 返回 "timestamp" 字段，缺失或非字符串时返回 ""
func (r Record) Timestamp() string {
	return r.str("timestamp")
}

// Identity returns the "username" field
// Identity 返回 "username" 字段
func (r Record) Identity() string {
	return r.str("username")
}

// Detail returns the "details" field
// Detail 返回 "details" 字段
func (r Record) Detail() string {
	return r.str("details")
}

func (r Record) str(key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}
