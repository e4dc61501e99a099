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

package exporter

import (
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/packetd/dcfd/common"
	"github.com/packetd/dcfd/confengine"
	"github.com/packetd/dcfd/logger"
)

var exportedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: common.App,
		Name:      "exported_total",
		Help:      "Exported snapshots total",
	},
	[]string{"sinker", "result"},
)

type Exporter struct {
	mut     sync.Mutex
	conf    Config
	sinkers []Sinker
	closed  bool
}

func New(conf *confengine.Config) (*Exporter, error) {
	var cfg Config
	if err := conf.UnpackChild("exporter", &cfg); err != nil {
		return nil, err
	}
	return NewWithConfig(cfg)
}

// NewWithConfig 根据 cfg 创建所有启用的 Sinker
//
// 任一 Sinker 创建失败时 已创建的 Sinker 会被关闭
func NewWithConfig(cfg Config) (*Exporter, error) {
	enabled := map[string]bool{
		SinkerRecords: cfg.Records.Enabled,
		SinkerSQLite:  cfg.SQLite.Enabled,
	}

	exp := &Exporter{conf: cfg}
	for _, name := range Names() {
		if !enabled[name] {
			continue
		}

		sinker, err := Get(name)(cfg)
		if err != nil {
			exp.Close()
			return nil, errors.Wrapf(err, "create sinker (%s)", name)
		}
		exp.sinkers = append(exp.sinkers, sinker)
	}
	return exp, nil
}

// Sinkers 返回已启用的 Sinker 名称
func (e *Exporter) Sinkers() []string {
	names := make([]string, 0, len(e.sinkers))
	for _, s := range e.sinkers {
		names = append(names, s.Name())
	}
	return names
}

// Export 将 record 写入所有 Sinker 单个 Sinker 失败不影响其他 Sinker
func (e *Exporter) Export(record *common.Record) error {
	if record.RecordType != common.RecordSnapshots {
		return nil
	}
	snap, ok := record.Data.(*common.Snapshot)
	if !ok {
		return nil
	}

	e.mut.Lock()
	defer e.mut.Unlock()

	if e.closed {
		return errors.New("exporter closed")
	}

	var errs error
	for _, s := range e.sinkers {
		if err := s.Sink(snap); err != nil {
			exportedTotal.WithLabelValues(s.Name(), "failure").Inc()
			logger.Errorf("sinker (%s) failed to sink source (%s): %v", s.Name(), snap.Source, err)
			errs = multierror.Append(errs, errors.Wrapf(err, "sinker (%s)", s.Name()))
			continue
		}
		exportedTotal.WithLabelValues(s.Name(), "success").Inc()
	}
	return errs
}

func (e *Exporter) Close() error {
	e.mut.Lock()
	defer e.mut.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	var errs error
	for _, s := range e.sinkers {
		if err := s.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs
}
