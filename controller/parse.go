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
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/packetd/dcfd/common"
	"github.com/packetd/dcfd/dcf"
	"github.com/packetd/dcfd/internal/digest"
	"github.com/packetd/dcfd/internal/splitio"
)

// ParseSource 完整解析一个数据源文件
//
// ctx 结束时解析会在下一行处终止并返回 ctx 的错误
func ParseSource(ctx context.Context, cfg SourceConfig, limits LimitsConfig) (*common.Snapshot, error) {
	start := time.Now()

	rc, err := dcf.Open(cfg.Path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	opts := cfg.Options(limits)
	var r io.Reader = rc
	if cfg.StripSignature {
		r = dcf.StripSignature(r, opts.MaxLineSize)
	}

	lr := splitio.WithContext(ctx, splitio.NewStreamReader(r, opts.MaxLineSize))
	table, err := dcf.NewParser(opts).Parse(lr)
	if err != nil {
		return nil, errors.Wrapf(err, "parse source (%s)", cfg.Name)
	}

	return &common.Snapshot{
		ID:       uuid.New().String(),
		Source:   cfg.Name,
		Path:     cfg.Path,
		Digest:   digest.String(table),
		ParsedAt: start,
		Duration: time.Since(start),
		Table:    table,
	}, nil
}

// refresh 解析数据源并在内容变化时发布与导出
func (c *Controller) refresh(name string) error {
	src, ok := c.sources.Get(name)
	if !ok {
		return errors.Errorf("source (%s) not found", name)
	}

	src.running.Lock()
	defer src.running.Unlock()

	cfg := c.config()
	ctx, cancel := context.WithTimeout(c.ctx, cfg.Timeout)
	defer cancel()

	snap, err := ParseSource(ctx, src.cfg, cfg.Limits)
	changed := src.update(snap, err)
	if err != nil {
		parsedTotal.WithLabelValues(name, resultFailure).Inc()
		c.log.Errorf("failed to parse source (%s): %v", name, err)
		return err
	}

	parseDuration.WithLabelValues(name).Observe(snap.Duration.Seconds())
	parsedRecords.WithLabelValues(name).Set(float64(snap.Records()))
	if !changed {
		parsedTotal.WithLabelValues(name, resultUnchanged).Inc()
		c.log.Debugf("source (%s) unchanged, digest=%s", name, snap.Digest)
		return nil
	}

	parsedTotal.WithLabelValues(name, resultSuccess).Inc()
	c.log.Infof("source (%s) parsed %d records in %v, digest=%s", name, snap.Records(), snap.Duration, snap.Digest)
	c.publish(snap)
	return nil
}

// publish 将快照推送给订阅者 并经过 pipeline 后导出
func (c *Controller) publish(snap *common.Snapshot) {
	c.bus.Publish(snap.Source, snap)

	record := common.NewRecord(common.RecordSnapshots, snap)
	c.export(record)
	c.pl.Range(record, func(dst *common.Record) {
		if derived, ok := dst.Data.(*common.Snapshot); ok {
			derived.ID = uuid.New().String()
			c.bus.Publish(derived.Source, derived)
		}
		c.export(dst)
	})
}

// export 导出失败已由 exporter 记录
func (c *Controller) export(record *common.Record) {
	_ = c.exp.Export(record)
}
