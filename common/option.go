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

package common

import (
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Options 弱类型的选项集合 常用于 HTTP 查询参数等来源
type Options map[string]any

func NewOptions() Options {
	return make(Options)
}

// NewOptionsFromQuery 将 url.Values 转换为 Options
//
// 同名参数出现多次时保留为列表 单值参数以字符串形式保存
func NewOptionsFromQuery(values url.Values) Options {
	opts := NewOptions()
	for k, vs := range values {
		switch len(vs) {
		case 0:
		case 1:
			opts[k] = vs[0]
		default:
			opts[k] = vs
		}
	}
	return opts
}

func (o Options) Has(k string) bool {
	_, ok := o[k]
	return ok
}

func (o Options) GetInt(k string) (int, error) {
	return cast.ToIntE(o[k])
}

func (o Options) GetBool(k string) (bool, error) {
	return cast.ToBoolE(o[k])
}

func (o Options) GetString(k string) (string, error) {
	return cast.ToStringE(o[k])
}

// GetStringSlice 获取字符串列表 单个字符串会按逗号切分
func (o Options) GetStringSlice(k string) ([]string, error) {
	v, ok := o[k]
	if !ok {
		return nil, nil
	}

	if s, ok := v.(string); ok {
		var ret []string
		for _, item := range strings.Split(s, ",") {
			item = strings.TrimSpace(item)
			if item != "" {
				ret = append(ret, item)
			}
		}
		return ret, nil
	}
	return cast.ToStringSliceE(v)
}

// GetDuration 获取时长 支持 `5s` 形式的字符串 不存在时返回 0
func (o Options) GetDuration(k string) (time.Duration, error) {
	v, ok := o[k]
	if !ok {
		return 0, nil
	}
	return cast.ToDurationE(v)
}
