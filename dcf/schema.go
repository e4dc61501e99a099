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

// Schema 有序的字段名列表
//
// 调用方指定字段时 Schema 为固定模式 否则从输入中动态发现字段 只允许追加
// 固定模式下字段名允许重复 查找时以第一次出现的位置为准
type Schema struct {
	names []string
	index map[string]int
	fixed bool
}

// NewSchema 创建并返回 *Schema 实例 fields 为空时为动态模式
func NewSchema(fields ...string) *Schema {
	s := &Schema{
		names: make([]string, 0, len(fields)),
		index: make(map[string]int, len(fields)),
		fixed: len(fields) > 0,
	}
	for _, name := range fields {
		s.add(name)
	}
	return s
}

func (s *Schema) add(name string) int {
	idx := len(s.names)
	s.names = append(s.names, name)
	if _, ok := s.index[name]; !ok {
		s.index[name] = idx
	}
	return idx
}

func (s *Schema) Len() int {
	return len(s.names)
}

func (s *Schema) Fixed() bool {
	return s.fixed
}

// Index 返回字段所在的列
func (s *Schema) Index(name string) (int, bool) {
	idx, ok := s.index[name]
	return idx, ok
}

// Names 返回字段名列表的拷贝
func (s *Schema) Names() []string {
	dst := make([]string, len(s.names))
	copy(dst, s.names)
	return dst
}
