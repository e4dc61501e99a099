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

package processor

import (
	"github.com/pkg/errors"

	"github.com/packetd/dcfd/common"
	"github.com/packetd/dcfd/confengine"
)

type Configs []Config

type Config struct {
	// Name 处理器实例名称 pipeline 通过名称引用处理器
	Name string `config:"name"`

	// Kind 处理器类型 为空时与 Name 相同
	Kind string `config:"kind"`

	Config map[string]any `config:"config"`
}

func (c Config) GetKind() string {
	if c.Kind == "" {
		return c.Name
	}
	return c.Kind
}

// Processor 定义了数据处理接口的行为
//
// Processor 处理 *common.Record 数据 目前仅有 snapshots 类型
// 处理器不允许修改输入的快照 需要变更时应返回新的快照
type Processor interface {
	// Name 返回处理器的名称
	Name() string

	// Process 处理 *Common.Record 数据 并返回衍生数据（如果存在的话）
	Process(*common.Record) (*common.Record, error)

	// Clean 清理资源
	Clean()
}

type CreateFunc func(name string, conf map[string]any) (Processor, error)

var processorFactory = map[string]CreateFunc{}

func Register(kind string, f CreateFunc) {
	processorFactory[kind] = f
}

func Get(kind string) (CreateFunc, error) {
	f, ok := processorFactory[kind]
	if !ok {
		return nil, errors.Errorf("processor factory (%s) not found", kind)
	}
	return f, nil
}

func loadProcessors(conf *confengine.Config) ([]Processor, error) {
	var configs Configs
	if err := conf.UnpackChild("processor", &configs); err != nil {
		return nil, err
	}

	var processors []Processor
	names := make(map[string]struct{})
	for _, pcfg := range configs {
		if _, ok := names[pcfg.Name]; ok {
			return nil, errors.Errorf("duplicated processor (%s)", pcfg.Name)
		}
		names[pcfg.Name] = struct{}{}

		f, err := Get(pcfg.GetKind())
		if err != nil {
			return nil, err
		}
		ps, err := f(pcfg.Name, pcfg.Config)
		if err != nil {
			return nil, errors.Wrapf(err, "create processor (%s)", pcfg.Name)
		}
		processors = append(processors, ps)
	}
	return processors, nil
}

// Manager 管理着 processor 列表 仅负责 Processor 的加载和检索
type Manager struct {
	processors []Processor
}

func NewManager(conf *confengine.Config) (*Manager, error) {
	processors, err := loadProcessors(conf)
	if err != nil {
		return nil, err
	}

	return &Manager{
		processors: processors,
	}, nil
}

func (mgr *Manager) Get(name string) (Processor, bool) {
	for _, p := range mgr.processors {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}

// Clean 清理所有处理器
func (mgr *Manager) Clean() {
	for _, p := range mgr.processors {
		p.Clean()
	}
}

// Snapshot 从 record 中取出快照
func Snapshot(record *common.Record) (*common.Snapshot, error) {
	if record.RecordType != common.RecordSnapshots {
		return nil, errors.Errorf("unsupported record type (%s)", record.RecordType)
	}
	snap, ok := record.Data.(*common.Snapshot)
	if !ok || snap.Table == nil {
		return nil, errors.New("record carries no snapshot")
	}
	return snap, nil
}
