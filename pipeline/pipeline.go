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

package pipeline

import (
	"github.com/pkg/errors"

	"github.com/packetd/dcfd/common"
	"github.com/packetd/dcfd/confengine"
	"github.com/packetd/dcfd/logger"
	"github.com/packetd/dcfd/processor"
)

// Config 定义了一条处理链
//
// Sources 为空时作用于所有数据源 Processors 按顺序串联执行
type Config struct {
	Name       string   `config:"name"`
	Sources    []string `config:"sources"`
	Processors []string `config:"processors"`
}

func (c Config) match(source string) bool {
	if len(c.Sources) == 0 {
		return true
	}
	for _, s := range c.Sources {
		if s == source {
			return true
		}
	}
	return false
}

type Configs []Config

type Pipeline struct {
	configs Configs
	psmgr   *processor.Manager
}

func New(conf *confengine.Config) (*Pipeline, error) {
	configs, err := loadPipeline(conf)
	if err != nil {
		return nil, err
	}

	psmgr, err := processor.NewManager(conf)
	if err != nil {
		return nil, err
	}

	for _, cfg := range configs {
		for _, name := range cfg.Processors {
			if _, ok := psmgr.Get(name); !ok {
				return nil, errors.Errorf("pipeline (%s) refers to unknown processor (%s)", cfg.Name, name)
			}
		}
	}

	return &Pipeline{
		configs: configs,
		psmgr:   psmgr,
	}, nil
}

// Range 将 src 依次送入匹配的处理链 每条处理链的最终结果都会回调 f
//
// 处理链中任一处理器出错时 该链的结果会被丢弃
func (p *Pipeline) Range(src *common.Record, f func(dst *common.Record)) {
	snap, err := processor.Snapshot(src)
	if err != nil {
		return
	}

	for i := 0; i < len(p.configs); i++ {
		cfg := p.configs[i]
		if !cfg.match(snap.Source) {
			continue
		}

		dst, err := p.run(cfg, src)
		if err != nil {
			logger.Warnf("pipeline (%s) failed on source (%s): %v", cfg.Name, snap.Source, err)
			continue
		}
		f(dst)
	}
}

func (p *Pipeline) run(cfg Config, src *common.Record) (*common.Record, error) {
	r := src
	for _, name := range cfg.Processors {
		ps, ok := p.psmgr.Get(name)
		if !ok {
			continue
		}

		dst, err := ps.Process(r)
		if err != nil {
			return nil, err
		}
		if dst == nil {
			return nil, errors.Errorf("processor (%s) produced no record", name)
		}
		r = dst
	}

	snap, err := processor.Snapshot(r)
	if err != nil {
		return nil, err
	}
	return common.NewRecord(common.RecordSnapshots, snap.Derive(cfg.Name, snap.Table)), nil
}

// Clean 清理处理器资源
func (p *Pipeline) Clean() {
	p.psmgr.Clean()
}

func loadPipeline(conf *confengine.Config) (Configs, error) {
	var configs Configs
	if err := conf.UnpackChild("pipeline", &configs); err != nil {
		return nil, err
	}

	names := make(map[string]struct{})
	for _, cfg := range configs {
		if cfg.Name == "" {
			return nil, errors.New("pipeline name required")
		}
		if _, ok := names[cfg.Name]; ok {
			return nil, errors.Errorf("duplicated pipeline (%s)", cfg.Name)
		}
		names[cfg.Name] = struct{}{}
	}
	return configs, nil
}
