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

package transforms

import (
	"github.com/pkg/errors"

	"github.com/packetd/dcfd/common"
	"github.com/packetd/dcfd/dcf"
	"github.com/packetd/dcfd/internal/mapstructure"
	"github.com/packetd/dcfd/processor"
)

const KindSortVersion = "sortversion"

func init() {
	processor.Register(KindSortVersion, NewSortVersion)
}

type SortVersionConfig struct {
	Field string `config:"field" mapstructure:"field"`
}

// SortVersion 按照 dpkg 版本规则对 record 排序
type SortVersion struct {
	name  string
	field string
}

func NewSortVersion(name string, conf map[string]any) (processor.Processor, error) {
	var cfg SortVersionConfig
	if err := mapstructure.Decode(conf, &cfg); err != nil {
		return nil, err
	}
	if cfg.Field == "" {
		cfg.Field = "Version"
	}
	return &SortVersion{name: name, field: cfg.Field}, nil
}

func (s *SortVersion) Name() string {
	return s.name
}

func (s *SortVersion) Process(record *common.Record) (*common.Record, error) {
	snap, err := processor.Snapshot(record)
	if err != nil {
		return nil, err
	}

	src := snap.Table
	records := make([][]dcf.Cell, len(src.Records))
	copy(records, src.Records)
	table := dcf.NewTable(src.Fields, records)
	if err := table.SortByVersion(s.field); err != nil {
		return nil, errors.Wrapf(err, "processor (%s)", s.name)
	}
	return common.NewRecord(common.RecordSnapshots, snap.Derive(snap.Pipeline, table)), nil
}

func (s *SortVersion) Clean() {}
