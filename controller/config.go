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
	"slices"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/packetd/dcfd/common"
	"github.com/packetd/dcfd/dcf"
	"github.com/packetd/dcfd/internal/splitio"
)

type Config struct {
	// Workers 并发解析的数量
	Workers int `config:"workers"`

	// Timeout 单次解析的超时时间
	Timeout time.Duration `config:"timeout"`

	// Debounce 文件变更事件的合并窗口
	Debounce time.Duration `config:"debounce"`

	Sources []SourceConfig `config:"sources"`
	Limits  LimitsConfig   `config:"limits"`
}

// Validate 填充默认值并校验数据源配置 所有错误会被汇总返回
func (c *Config) Validate() error {
	if c.Workers <= 0 {
		c.Workers = common.Concurrency()
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Minute
	}
	if c.Debounce <= 0 {
		c.Debounce = common.DefaultWatchDebounce
	}
	if c.Limits.MaxLineSize <= 0 {
		c.Limits.MaxLineSize = splitio.DefaultMaxLineSize
	}

	var errs error
	names := make(map[string]struct{})
	for _, src := range c.Sources {
		if src.Name == "" {
			errs = multierror.Append(errs, errors.Errorf("source (%s) requires name", src.Path))
			continue
		}
		if _, ok := names[src.Name]; ok {
			errs = multierror.Append(errs, errors.Errorf("duplicated source (%s)", src.Name))
			continue
		}
		names[src.Name] = struct{}{}

		if err := src.Validate(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs
}

// LimitsConfig 解析时的资源限制 0 代表不限制
type LimitsConfig struct {
	MaxRecords   int `config:"maxRecords"`
	MaxFields    int `config:"maxFields"`
	MaxValueSize int `config:"maxValueSize"`
	MaxLineSize  int `config:"maxLineSize"`
}

// SourceConfig 数据源配置
type SourceConfig struct {
	Name string `config:"name"`
	Path string `config:"path"`

	// Fields 需要解析的字段 为空代表全部字段
	Fields []string `config:"fields"`

	// KeepWhite 保留空白的字段
	KeepWhite []string `config:"keepWhite"`

	// StripSignature 去除 OpenPGP 签名 适用于 InRelease / .dsc 等文件
	StripSignature bool `config:"stripSignature"`

	// Watch 文件变更时重新解析
	Watch bool `config:"watch"`

	// Schedule 定时解析的 cron 表达式 支持 @every 1h 等描述符
	Schedule string `config:"schedule"`
}

var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (sc SourceConfig) Validate() error {
	if sc.Path == "" {
		return errors.Errorf("source (%s) requires path", sc.Name)
	}
	if sc.Schedule != "" {
		if _, err := cronParser.Parse(sc.Schedule); err != nil {
			return errors.Wrapf(err, "source (%s) invalid schedule", sc.Name)
		}
	}
	return nil
}

// Equal 判断两份配置是否相同
func (sc SourceConfig) Equal(other SourceConfig) bool {
	return sc.Name == other.Name &&
		sc.Path == other.Path &&
		slices.Equal(sc.Fields, other.Fields) &&
		slices.Equal(sc.KeepWhite, other.KeepWhite) &&
		sc.StripSignature == other.StripSignature &&
		sc.Watch == other.Watch &&
		sc.Schedule == other.Schedule
}

// Options 生成解析选项
func (sc SourceConfig) Options(limits LimitsConfig) dcf.Options {
	return dcf.Options{
		Fields:       sc.Fields,
		KeepWhite:    sc.KeepWhite,
		MaxRecords:   limits.MaxRecords,
		MaxFields:    limits.MaxFields,
		MaxValueSize: limits.MaxValueSize,
		MaxLineSize:  limits.MaxLineSize,
	}
}
