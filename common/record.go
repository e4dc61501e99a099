// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package common

import (
	"time"

	"github.com/packetd/dcfd/dcf"
)

// RecordType 代表 Record 的数据类型
type RecordType string

const (
	// RecordSnapshots 数据源的一次完整解析结果
	RecordSnapshots RecordType = "snapshots"
)

// Record 在 controller/pipeline/exporter 之间流转的数据
type Record struct {
	RecordType RecordType
	Data       any
}

func NewRecord(rtype RecordType, data any) *Record {
	return &Record{
		RecordType: rtype,
		Data:       data,
	}
}

// Snapshot 记录着数据源某一时刻的解析结果
//
// Table 在生成后不会再被修改 可以安全地在多个 goroutine 之间共享
type Snapshot struct {
	ID       string        `json:"id"`
	Source   string        `json:"source"`
	Pipeline string        `json:"pipeline,omitempty"`
	Path     string        `json:"path"`
	Digest   string        `json:"digest"`
	ParsedAt time.Time     `json:"parsedAt"`
	Duration time.Duration `json:"duration"`
	Table    *dcf.Table    `json:"table"`
}

// Records 返回解析出的 record 数量
func (s *Snapshot) Records() int {
	if s.Table == nil {
		return 0
	}
	return s.Table.Len()
}

// Derive 基于 s 生成新的快照 新快照拥有独立的 Table
func (s *Snapshot) Derive(pipeline string, table *dcf.Table) *Snapshot {
	cloned := *s
	cloned.Pipeline = pipeline
	cloned.Table = table
	return &cloned
}
