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

// Package stats aggregates worker artifacts into counts and most-recent views.
// stats 包将工作进程结果文件汇总为计数与最近记录视图。
package stats

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/basoka/checkerx/internal/artifact"
	"github.com/basoka/checkerx/internal/logger"
	"github.com/basoka/checkerx/internal/otel_trace"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// Reader reads every record of a category
// Reader 读取某类别的全部记录
type Reader interface {
	ReadAll(c artifact.Category) ([]artifact.Record, error)
}

// Statistics is the aggregated view served by /status
// Statistics 是 /status 返回的汇总视图
type Statistics struct {
	SuccessCount   int               `json:"success_count"`
	FailedCount    int               `json:"failed_count"`
	RetryCount     int               `json:"retry_count"`
	TotalAttempts  int               `json:"total_attempts"`
	LatestSuccess  []artifact.Record `json:"latest_success"`
	LatestFailures []artifact.Record `json:"latest_failures"`
	LatestRetries  []artifact.Record `json:"latest_retries"`
	LastUpdated    string            `json:"last_updated"`
	Warnings       []string          `json:"warnings,omitempty"`
	Error          string            `json:"error,omitempty"`
}

// Option configures an Aggregator
type Option func(*Aggregator)

// WithClock overrides the clock used for last_updated
// WithClock 替换 last_updated 使用的时钟
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// Aggregator builds Statistics from a Reader, re-reading on every call
// Aggregator 基于 Reader 构建统计，每次调用都重新读取
type Aggregator struct {
	reader Reader
	limit  int
	now    func() time.Time
}

// NewAggregator creates an aggregator keeping limit recent records per category
// NewAggregator 创建聚合器，每个类别保留 limit 条最近记录
func NewAggregator(reader Reader, limit int, opts ...Option) *Aggregator {
	a := &Aggregator{reader: reader, limit: limit, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Statistics never fails outward.
// A corrupt file empties its own category and adds a warning; any other read
// error or panic degrades the whole result to zero counts with Error set.
// Statistics 不向外返回错误：损坏文件仅清空自身类别并记录警告，其他错误或 panic 使整体降级为零值并设置 Error。
func (a *Aggregator) Statistics(ctx context.Context) (result Statistics) {
	ctx, span := otel_trace.Start(ctx, "stats.Statistics")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			logger.ErrorF(ctx, "[Stats] panic while aggregating: %v", r)
			result = a.degraded(fmt.Errorf("panic: %v", r))
		}
	}()

	categories := artifact.Categories()
	records := make([][]artifact.Record, len(categories))
	warnings := make([]string, len(categories))

	var g errgroup.Group
	for i, c := range categories {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("panic reading %s: %v", c, r)
				}
			}()

			recs, err := a.reader.ReadAll(c)
			if err != nil && !errors.Is(err, artifact.ErrMalformed) {
				return fmt.Errorf("read %s: %w", c, err)
			}
			if err != nil {
				warnings[i] = fmt.Sprintf("%s: %v", c, err)
			}
			if recs == nil {
				recs = []artifact.Record{}
			}
			records[i] = recs
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.ErrorF(ctx, "[Stats] failed to read artifacts: %v", err)
		span.RecordError(err)
		return a.degraded(err)
	}

	result = Statistics{
		SuccessCount:   len(records[0]),
		FailedCount:    len(records[1]),
		RetryCount:     len(records[2]),
		LatestSuccess:  RecentItems(records[0], a.limit),
		LatestFailures: RecentItems(records[1], a.limit),
		LatestRetries:  RecentItems(records[2], a.limit),
		LastUpdated:    a.now().Format(time.RFC3339),
	}
	result.TotalAttempts = result.SuccessCount + result.FailedCount + result.RetryCount

	for _, w := range warnings {
		if w == "" {
			continue
		}
		logger.WarnF(ctx, "[Stats] %s", w)
		result.Warnings = append(result.Warnings, w)
	}

	span.SetAttributes(
		attribute.Int("stats.success", result.SuccessCount),
		attribute.Int("stats.failed", result.FailedCount),
		attribute.Int("stats.retry", result.RetryCount),
	)
	return result
}

func (a *Aggregator) degraded(err error) Statistics {
	return Statistics{
		LatestSuccess:  []artifact.Record{},
		LatestFailures: []artifact.Record{},
		LatestRetries:  []artifact.Record{},
		LastUpdated:    a.now().Format(time.RFC3339),
		Error:          err.Error(),
	}
}

// RecentItems returns up to limit records with the greatest timestamps, newest first.
// Equal timestamps keep their original relative order.
// RecentItems 按时间戳降序返回最多 limit 条记录，时间戳相同时保持原有顺序。
func RecentItems(records []artifact.Record, limit int) []artifact.Record {
	if limit <= 0 || len(records) == 0 {
		return []artifact.Record{}
	}

	sorted := make([]artifact.Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp() > sorted[j].Timestamp()
	})

	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}
