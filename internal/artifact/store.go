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

package artifact

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/basoka/checkerx/internal/config"
)

var (
	// ErrMalformed marks a file that is not a JSON array of objects.
	// Callers treat it as advisory: the category reads as empty.
	// ErrMalformed 表示文件不是 JSON 对象数组，调用方将其视为提示信息。
	ErrMalformed = errors.New("malformed artifact file")

	// ErrUnknownCategory indicates a category with no configured file
	// ErrUnknownCategory 表示类别没有对应的配置文件
	ErrUnknownCategory = errors.New("unknown artifact category")
)

// Store resolves categories to files and reads them fresh on every call
// Store 将类别映射到文件，每次调用都重新读取
type Store struct {
	paths map[Category]string
}

// NewStore creates a store from the artifacts configuration
// NewStore 根据结果文件配置创建 Store
func NewStore(cfg config.ArtifactsConfig) *Store {
	return &Store{paths: map[Category]string{
		CategorySuccess: cfg.SuccessFile,
		CategoryFailure: cfg.FailureFile,
		CategoryRetry:   cfg.RetryFile,
	}}
}

// Path returns the file backing a category
// Path 返回类别对应的文件路径
func (s *Store) Path(c Category) (string, error) {
	p, ok := s.paths[c]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, c)
	}
	return p, nil
}

// ReadAll reads every record of a category.
// ReadAll 读取某类别的全部记录。
//
// A missing file yields an empty slice and no error. A file that is not a JSON
// array yields an empty slice and an error wrapping ErrMalformed. Elements that
// are not objects are skipped and reported the same way alongside the rest.
// 文件不存在返回空切片；非 JSON 数组返回空切片及 ErrMalformed；非对象元素被跳过并同样报告。
func (s *Store) ReadAll(c Category) ([]Record, error) {
	p, err := s.Path(c)
	if err != nil {
		return []Record{}, err
	}
	return ReadFile(p)
}

// ReadFile reads a JSON-array artifact file from path
// ReadFile 从路径读取 JSON 数组结果文件
func ReadFile(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Record{}, nil
		}
		return []Record{}, fmt.Errorf("read %s: %w", path, err)
	}
	return Decode(data)
}

// Decode parses a JSON array of objects
// Decode 解析 JSON 对象数组
func Decode(data []byte) ([]Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return []Record{}, fmt.Errorf("%w: top-level value is not an array", ErrMalformed)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return []Record{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	records := make([]Record, 0, len(raw))
	skipped := 0
	for _, elem := range raw {
		rec, ok := decodeObject(elem)
		if !ok {
			skipped++
			continue
		}
		records = append(records, rec)
	}

	if skipped > 0 {
		return records, fmt.Errorf("%w: skipped %d non-object elements", ErrMalformed, skipped)
	}
	return records, nil
}

func decodeObject(elem json.RawMessage) (Record, bool) {
	if len(elem) == 0 || elem[0] != '{' {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(elem))
	dec.UseNumber()

	var rec Record
	if err := dec.Decode(&rec); err != nil {
		return nil, false
	}
	return rec, true
}
