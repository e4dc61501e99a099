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

package records

import (
	"io"
	"os"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/packetd/dcfd/common"
	"github.com/packetd/dcfd/exporter"
	"github.com/packetd/dcfd/internal/json"
)

func init() {
	exporter.Register(exporter.SinkerRecords, New)
}

// Sinker 将快照中的每个 record 以 JSON Lines 的格式输出
type Sinker struct {
	wr      io.Writer
	closer  io.Closer
	encoder json.Encoder
	cfg     *exporter.RecordsConfig
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func New(conf exporter.Config) (exporter.Sinker, error) {
	cfg := &conf.Records
	cfg.Validate()

	var wr io.Writer
	var closer io.Closer
	switch {
	case cfg.Console:
		wr = os.Stdout
		closer = nopCloser{}
	default:
		lj := &lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			LocalTime:  true,
		}
		wr = lj
		closer = lj
	}
	return NewWithWriter(cfg, wr, closer), nil
}

// NewWithWriter 使用指定的 io.Writer 创建 Sinker
func NewWithWriter(cfg *exporter.RecordsConfig, wr io.Writer, closer io.Closer) *Sinker {
	return &Sinker{
		wr:      wr,
		closer:  closer,
		cfg:     cfg,
		encoder: json.NewEncoder(wr),
	}
}

func (s *Sinker) Name() string {
	return exporter.SinkerRecords
}

// Line 输出的单行数据
type Line struct {
	Snapshot string            `json:"snapshot"`
	Source   string            `json:"source"`
	Pipeline string            `json:"pipeline,omitempty"`
	Digest   string            `json:"digest"`
	ParsedAt time.Time         `json:"parsedAt"`
	Index    int               `json:"index"`
	Record   map[string]string `json:"record"`
}

func (s *Sinker) Sink(snap *common.Snapshot) error {
	if snap.Table == nil {
		return nil
	}

	for i := 0; i < snap.Table.Len(); i++ {
		err := s.encoder.Encode(Line{
			Snapshot: snap.ID,
			Source:   snap.Source,
			Pipeline: snap.Pipeline,
			Digest:   snap.Digest,
			ParsedAt: snap.ParsedAt,
			Index:    i,
			Record:   snap.Table.Record(i),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Sinker) Close() error {
	return s.closer.Close()
}
