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

// Package logtail returns the last lines of a growing text log without reading it whole.
// logtail 包在不读取整个文件的情况下返回日志末尾若干行。
package logtail

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

const defaultChunkSize = 4096

var ErrInvalidLineCount = errors.New("line count must be at least 1")

// Result holds the tail of a log file
// Result 保存日志文件末尾内容
type Result struct {
	// Lines are in file order, without line terminators
	// Lines 按文件顺序排列，不含换行符
	Lines []string

	// Found is false when the file does not exist
	// Found 在文件不存在时为 false
	Found bool
}

// Text renders the lines as log text, each terminated by a newline
// Text 将各行还原为日志文本，每行以换行符结尾
func (r Result) Text() string {
	if len(r.Lines) == 0 {
		return ""
	}
	return strings.Join(r.Lines, "\n") + "\n"
}

// Tail returns the last n lines of the file at path
// Tail 返回文件最后 n 行
func Tail(path string, n int) (Result, error) {
	return tail(path, n, defaultChunkSize)
}

func tail(path string, n, chunkSize int) (Result, error) {
	if n < 1 {
		return Result{}, ErrInvalidLineCount
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{Lines: []string{}, Found: false}, nil
		}
		return Result{}, fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Result{}, fmt.Errorf("stat log: %w", err)
	}
	if info.IsDir() {
		return Result{}, fmt.Errorf("open log: %s is a directory", path)
	}

	size := info.Size()
	if size == 0 {
		return Result{Lines: []string{}, Found: true}, nil
	}

	// A final newline terminates the last line rather than starting a new one
	// 末尾换行符结束最后一行，而不是开启新行
	end := size
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, size-1); err != nil {
		return Result{}, fmt.Errorf("read log: %w", err)
	}
	if last[0] == '\n' {
		end--
	}

	start, err := lineStart(f, end, n, chunkSize)
	if err != nil {
		return Result{}, err
	}

	buf := make([]byte, end-start)
	if _, err := io.ReadFull(io.NewSectionReader(f, start, end-start), buf); err != nil {
		return Result{}, fmt.Errorf("read log: %w", err)
	}

	lines := strings.Split(string(buf), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return Result{Lines: lines, Found: true}, nil
}

// lineStart scans backwards from end and returns the offset where the last n lines begin
// lineStart 从 end 向前扫描，返回最后 n 行的起始偏移
func lineStart(r io.ReaderAt, end int64, n, chunkSize int) (int64, error) {
	buf := make([]byte, chunkSize)
	seen := 0
	pos := end

	for pos > 0 {
		size := int64(chunkSize)
		if pos < size {
			size = pos
		}
		pos -= size

		chunk := buf[:size]
		if _, err := r.ReadAt(chunk, pos); err != nil && !errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("read log: %w", err)
		}

		for i := len(chunk) - 1; i >= 0; i-- {
			if chunk[i] != '\n' {
				continue
			}
			seen++
			if seen == n {
				return pos + int64(i) + 1, nil
			}
		}
	}
	return 0, nil
}
