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

const KindFilter = "filter"

func init() {
	processor.Register(KindFilter, NewFilter)
}

type FilterConfig struct {
	Field  string   `config:"field" mapstructure:"field"`
	Values []string `config:"values" mapstructure:"values"`
	Invert bool     `config:"invert" mapstructure:"invert"`
}

// Filter 保留 Field 取值命中 Values 的 record
//
// Invert 为 true 时保留未命中的 record 缺失字段的 record 视为未命中
type Filter struct {
	name   string
	field  string
	values map[string]struct{}
	invert bool
}

func NewFilter(name string, conf map[string]any) (processor.Processor, error) {
	var cfg FilterConfig
	if err := mapstructure.Decode(conf, &cfg); err != nil {
		return nil, err
	}
	if cfg.Field == "" {
		return nil, errors.New("filter requires field")
	}

	values := make(map[string]struct{}, len(cfg.Values))
	for _, v := range cfg.Values {
		values[v] = struct{}{}
	}
	return &Filter{
		name:   name,
		field:  cfg.Field,
		values: values,
		invert: cfg.Invert,
	}, nil
}

func (f *Filter) Name() string {
	return f.name
}

func (f *Filter) match(t *dcf.Table, row int) bool {
	v, ok := t.Get(row, f.field)
	if ok {
		_, ok = f.values[v]
	}
	return ok != f.invert
}

func (f *Filter) Process(record *common.Record) (*common.Record, error) {
	snap, err := processor.Snapshot(record)
	if err != nil {
		return nil, err
	}

	src := snap.Table
	var records [][]dcf.Cell
	for i := 0; i < src.Len(); i++ {
		if f.match(src, i) {
			records = append(records, src.Records[i])
		}
	}
	table := dcf.NewTable(src.Fields, records)
	return common.NewRecord(common.RecordSnapshots, snap.Derive(snap.Pipeline, table)), nil
}

func (f *Filter) Clean() {}
