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
	"github.com/packetd/dcfd/internal/mapstructure"
	"github.com/packetd/dcfd/processor"
)

const KindSelect = "select"

func init() {
	processor.Register(KindSelect, NewSelect)
}

type SelectConfig struct {
	Fields []string `config:"fields" mapstructure:"fields"`
}

// Select 仅保留指定的字段 字段顺序与配置一致
type Select struct {
	name   string
	fields []string
}

func NewSelect(name string, conf map[string]any) (processor.Processor, error) {
	var cfg SelectConfig
	if err := mapstructure.Decode(conf, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Fields) == 0 {
		return nil, errors.New("select requires at least one field")
	}
	return &Select{name: name, fields: cfg.Fields}, nil
}

func (s *Select) Name() string {
	return s.name
}

func (s *Select) Process(record *common.Record) (*common.Record, error) {
	snap, err := processor.Snapshot(record)
	if err != nil {
		return nil, err
	}
	return common.NewRecord(common.RecordSnapshots, snap.Derive(snap.Pipeline, snap.Table.Select(s.fields...))), nil
}

func (s *Select) Clean() {}
