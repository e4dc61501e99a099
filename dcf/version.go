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

package dcf

import (
	"sort"

	"pault.ag/go/debian/version"
)

type versionKey struct {
	v     version.Version
	valid bool
}

// SortByVersion 按 dpkg 版本规则对 record 进行稳定的升序排序
//
// 字段缺失或者无法解析的版本号排在最后 并保持原有的相对顺序
func (t *Table) SortByVersion(name string) error {
	idx, ok := t.col(name)
	if !ok {
		return newError("unknown field %q", name)
	}

	keys := make([]versionKey, len(t.Records))
	for i, row := range t.Records {
		if !row[idx].Valid {
			continue
		}
		v, err := version.Parse(row[idx].Value)
		if err != nil {
			continue
		}
		keys[i] = versionKey{v: v, valid: true}
	}

	sort.Stable(byVersion{records: t.Records, keys: keys})
	return nil
}

type byVersion struct {
	records [][]Cell
	keys    []versionKey
}

func (b byVersion) Len() int {
	return len(b.records)
}

func (b byVersion) Less(i, j int) bool {
	ki, kj := b.keys[i], b.keys[j]
	if !ki.valid || !kj.valid {
		return ki.valid && !kj.valid
	}
	return version.Compare(ki.v, kj.v) < 0
}

func (b byVersion) Swap(i, j int) {
	b.records[i], b.records[j] = b.records[j], b.records[i]
	b.keys[i], b.keys[j] = b.keys[j], b.keys[i]
}
