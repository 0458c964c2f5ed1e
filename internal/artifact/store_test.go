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
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/basoka/checkerx/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	return NewStore(config.ArtifactsConfig{
		SuccessFile: filepath.Join(dir, "success.json"),
		FailureFile: filepath.Join(dir, "failed.json"),
		RetryFile:   filepath.Join(dir, "retry.json"),
	}), dir
}

// TestReadAll 测试各类文件内容的读取结果
// TestReadAll tests reading files of various shapes
func TestReadAll(t *testing.T) {
	tests := []struct {
		name      string
		content   *string
		wantLen   int
		wantErr   bool
		malformed bool
	}{
		{name: "missing file", content: nil, wantLen: 0},
		{name: "empty array", content: strPtr("[]"), wantLen: 0},
		{name: "two records", content: strPtr(`[{"username":"a","timestamp":"2024-01-01T00:00:00"},{"username":"b"}]`), wantLen: 2},
		{name: "invalid json", content: strPtr("{not json"), wantLen: 0, wantErr: true, malformed: true},
		{name: "truncated array", content: strPtr(`[{"username":"a"},`), wantLen: 0, wantErr: true, malformed: true},
		{name: "object instead of array", content: strPtr(`{"username":"a"}`), wantLen: 0, wantErr: true, malformed: true},
		{name: "null", content: strPtr("null"), wantLen: 0, wantErr: true, malformed: true},
		{name: "empty file", content: strPtr(""), wantLen: 0, wantErr: true, malformed: true},
		{name: "mixed elements", content: strPtr(`[{"username":"a"}, 3, "x", null, {"username":"b"}]`), wantLen: 2, wantErr: true, malformed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newTestStore(t)
			path, err := store.Path(CategoryRetry)
			require.NoError(t, err)
			if tt.content != nil {
				require.NoError(t, os.WriteFile(path, []byte(*tt.content), 0644))
			}

			records, err := store.ReadAll(CategoryRetry)
			require.NotNil(t, records)
			assert.Len(t, records, tt.wantLen)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.malformed, errorsIsMalformed(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestReadAllUnknownCategory(t *testing.T) {
	store, _ := newTestStore(t)
	records, err := store.ReadAll(Category("pending"))
	assert.ErrorIs(t, err, ErrUnknownCategory)
	assert.Empty(t, records)
}

// TestReadAllDirectoryIsIOError 测试非解析类 I/O 错误不被视为文件损坏
// TestReadAllDirectoryIsIOError tests that non-parse I/O errors are not reported as corruption
func TestReadAllDirectoryIsIOError(t *testing.T) {
	store, _ := newTestStore(t)
	path, _ := store.Path(CategorySuccess)
	require.NoError(t, os.Mkdir(path, 0755))

	records, err := store.ReadAll(CategorySuccess)
	require.Error(t, err)
	assert.False(t, errorsIsMalformed(err))
	assert.Empty(t, records)
}

// TestRecordPreservesUnknownFields 测试未知字段与数字原样保留
// TestRecordPreservesUnknownFields tests that unknown fields and numbers survive unchanged
func TestRecordPreservesUnknownFields(t *testing.T) {
	records, err := Decode([]byte(`[{"username":"u1","details":"captcha","timestamp":"2024-05-01T10:00:00","attempt":12345678901234567,"extra":{"k":true}}]`))
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "u1", rec.Identity())
	assert.Equal(t, "captcha", rec.Detail())
	assert.Equal(t, "2024-05-01T10:00:00", rec.Timestamp())

	out, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"attempt":12345678901234567`)
	assert.Contains(t, string(out), `"extra":{"k":true}`)
}

func TestRecordAccessorsTolerateWrongTypes(t *testing.T) {
	rec := Record{"timestamp": 17, "username": nil}
	assert.Equal(t, "", rec.Timestamp())
	assert.Equal(t, "", rec.Identity())
	assert.Equal(t, "", rec.Detail())
}

func TestCategories(t *testing.T) {
	assert.Equal(t, []Category{CategorySuccess, CategoryFailure, CategoryRetry}, Categories())
}

func strPtr(s string) *string { return &s }

func errorsIsMalformed(err error) bool {
	return errors.Is(err, ErrMalformed)
}
