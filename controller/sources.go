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

package controller

import (
	"sort"
	"sync"
	"time"

	"github.com/packetd/dcfd/common"
)

// source 数据源及其最近一次的解析结果
type source struct {
	cfg SourceConfig

	// running 保证同一数据源同一时刻只有一个解析任务
	running sync.Mutex

	mut      sync.RWMutex
	snap     *common.Snapshot
	lastErr  error
	lastRun  time.Time
	attempts int
}

func newSource(cfg SourceConfig) *source {
	return &source{cfg: cfg}
}

func (s *source) snapshot() *common.Snapshot {
	s.mut.RLock()
	defer s.mut.RUnlock()
	return s.snap
}

// update 记录一次解析结果 返回 false 代表内容与上一次相同
func (s *source) update(snap *common.Snapshot, err error) bool {
	s.mut.Lock()
	defer s.mut.Unlock()

	s.attempts++
	s.lastRun = time.Now()
	s.lastErr = err
	if err != nil {
		return false
	}

	if s.snap != nil && s.snap.Digest == snap.Digest {
		return false
	}
	s.snap = snap
	return true
}

// SourceStatus 数据源的状态概览
type SourceStatus struct {
	Name     string        `json:"name"`
	Path     string        `json:"path"`
	Watch    bool          `json:"watch"`
	Schedule string        `json:"schedule,omitempty"`
	Snapshot string        `json:"snapshot,omitempty"`
	Records  int           `json:"records"`
	Fields   int           `json:"fields"`
	Digest   string        `json:"digest,omitempty"`
	ParsedAt *time.Time    `json:"parsedAt,omitempty"`
	Duration time.Duration `json:"duration"`
	LastRun  *time.Time    `json:"lastRun,omitempty"`
	Attempts int           `json:"attempts"`
	Error    string        `json:"error,omitempty"`
}

func (s *source) status() SourceStatus {
	s.mut.RLock()
	defer s.mut.RUnlock()

	st := SourceStatus{
		Name:     s.cfg.Name,
		Path:     s.cfg.Path,
		Watch:    s.cfg.Watch,
		Schedule: s.cfg.Schedule,
		Attempts: s.attempts,
	}
	if !s.lastRun.IsZero() {
		lastRun := s.lastRun
		st.LastRun = &lastRun
	}
	if s.lastErr != nil {
		st.Error = s.lastErr.Error()
	}
	if s.snap != nil {
		parsedAt := s.snap.ParsedAt
		st.Snapshot = s.snap.ID
		st.Records = s.snap.Records()
		st.Fields = len(s.snap.Table.Fields)
		st.Digest = s.snap.Digest
		st.ParsedAt = &parsedAt
		st.Duration = s.snap.Duration
	}
	return st
}

// sourcePool 记录了名称与数据源的映射关系
//
// 可通过 Reload 重新加载配置 pool 会对比新旧配置进行更新
type sourcePool struct {
	mut     sync.RWMutex
	sources map[string]*source
}

func newSourcePool(cfgs []SourceConfig) *sourcePool {
	sources := make(map[string]*source)
	for _, cfg := range cfgs {
		sources[cfg.Name] = newSource(cfg)
	}
	return &sourcePool{sources: sources}
}

// Reload 对比新旧配置 返回新增或者配置发生变化的数据源名称
//
// 配置未变化的数据源保留其解析结果
func (sp *sourcePool) Reload(cfgs []SourceConfig) (changed []string, deleted []string) {
	sp.mut.Lock()
	defer sp.mut.Unlock()

	newSources := make(map[string]*source)
	for _, cfg := range cfgs {
		// 之前不存在或者配置发生变化的 source 标记为新增
		// 存在则继续保持
		if prev, ok := sp.sources[cfg.Name]; ok && prev.cfg.Equal(cfg) {
			newSources[cfg.Name] = prev
			continue
		}
		newSources[cfg.Name] = newSource(cfg)
		changed = append(changed, cfg.Name)
	}

	// 新配置中不存在的 source 标记为删除
	for name := range sp.sources {
		if _, ok := newSources[name]; !ok {
			deleted = append(deleted, name)
		}
	}

	sp.sources = newSources
	sort.Strings(changed)
	sort.Strings(deleted)
	return changed, deleted
}

func (sp *sourcePool) Get(name string) (*source, bool) {
	sp.mut.RLock()
	defer sp.mut.RUnlock()

	s, ok := sp.sources[name]
	return s, ok
}

// Names 返回按名称排序的数据源列表
func (sp *sourcePool) Names() []string {
	sp.mut.RLock()
	defer sp.mut.RUnlock()

	names := make([]string, 0, len(sp.sources))
	for name := range sp.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (sp *sourcePool) Configs() []SourceConfig {
	sp.mut.RLock()
	defer sp.mut.RUnlock()

	cfgs := make([]SourceConfig, 0, len(sp.sources))
	for _, s := range sp.sources {
		cfgs = append(cfgs, s.cfg)
	}
	sort.Slice(cfgs, func(i, j int) bool {
		return cfgs[i].Name < cfgs[j].Name
	})
	return cfgs
}

func (sp *sourcePool) Statuses() []SourceStatus {
	var statuses []SourceStatus
	for _, name := range sp.Names() {
		if s, ok := sp.Get(name); ok {
			statuses = append(statuses, s.status())
		}
	}
	return statuses
}
