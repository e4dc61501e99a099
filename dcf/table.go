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
	"bytes"

	"github.com/packetd/dcfd/internal/json"
)

// Cell 单元格 Valid 为 false 时代表该字段在 record 中缺失（区别于空字符串）
type Cell struct {
	Value string
	Valid bool
}

// Present 返回一个有效的 Cell
func Present(v string) Cell {
	return Cell{Value: v, Valid: true}
}

var charNull = []byte("null")

func (c Cell) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return charNull, nil
	}
	return json.Marshal(c.Value)
}

func (c *Cell) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, charNull) {
		*c = Cell{}
		return nil
	}
	if err := json.Unmarshal(b, &c.Value); err != nil {
		return err
	}
	c.Valid = true
	return nil
}

const minRowCapacity = 8

// recordTable 解析过程中使用的可增长表格
//
// 每一行的列数始终等于 width
// 行容量按倍数扩容 新增列时为已有的每一行追加一个缺失的单元格
type recordTable struct {
	width int
	rows  [][]Cell
}

func newRecordTable(width int) *recordTable {
	return &recordTable{
		width: width,
		rows:  make([][]Cell, 0, minRowCapacity),
	}
}

func (t *recordTable) len() int {
	return len(t.rows)
}

// addRow 追加一行 所有单元格均为缺失状态
func (t *recordTable) addRow() int {
	if len(t.rows) == cap(t.rows) {
		grown := make([][]Cell, len(t.rows), 2*cap(t.rows))
		copy(grown, t.rows)
		t.rows = grown
	}
	t.rows = append(t.rows, make([]Cell, t.width))
	return len(t.rows) - 1
}

// addColumn 追加一列 已有内容保持不变
func (t *recordTable) addColumn() int {
	for i := range t.rows {
		t.rows[i] = append(t.rows[i], Cell{})
	}
	t.width++
	return t.width - 1
}

func (t *recordTable) set(row, col int, v string) {
	t.rows[row][col] = Present(v)
}

func (t *recordTable) reset(width int) {
	t.width = width
	t.rows = t.rows[:0]
}

// Table 解析结果 每个 record 为一行 每个字段为一列
type Table struct {
	Fields  []string
	Records [][]Cell

	index map[string]int
}

// NewTable 创建并返回 *Table 实例 records 的每一行长度须与 fields 一致
func NewTable(fields []string, records [][]Cell) *Table {
	t := &Table{
		Fields:  fields,
		Records: records,
	}
	t.buildIndex()
	return t
}

func (t *Table) buildIndex() {
	t.index = make(map[string]int, len(t.Fields))
	for i, name := range t.Fields {
		if _, ok := t.index[name]; !ok {
			t.index[name] = i
		}
	}
}

func (t *Table) col(name string) (int, bool) {
	if t.index == nil {
		t.buildIndex()
	}
	idx, ok := t.index[name]
	return idx, ok
}

// Len 返回 record 数量
func (t *Table) Len() int {
	return len(t.Records)
}

// Get 返回第 row 个 record 中 name 字段的值 字段缺失时返回 false
func (t *Table) Get(row int, name string) (string, bool) {
	idx, ok := t.col(name)
	if !ok || row < 0 || row >= len(t.Records) {
		return "", false
	}
	c := t.Records[row][idx]
	return c.Value, c.Valid
}

// Record 以 map 形式返回第 row 个 record 缺失的字段不会出现在结果中
func (t *Table) Record(row int) map[string]string {
	if row < 0 || row >= len(t.Records) {
		return nil
	}
	m := make(map[string]string, len(t.Fields))
	for i, c := range t.Records[row] {
		if !c.Valid {
			continue
		}
		if _, ok := m[t.Fields[i]]; ok {
			continue
		}
		m[t.Fields[i]] = c.Value
	}
	return m
}

// Column 返回 name 字段所在的整列
func (t *Table) Column(name string) []Cell {
	idx, ok := t.col(name)
	if !ok {
		return nil
	}
	dst := make([]Cell, 0, len(t.Records))
	for _, row := range t.Records {
		dst = append(dst, row[idx])
	}
	return dst
}

// Select 按指定顺序返回包含 fields 列的新表格 不存在的字段整列缺失
func (t *Table) Select(fields ...string) *Table {
	cols := make([]int, len(fields))
	for i, name := range fields {
		idx, ok := t.col(name)
		if !ok {
			idx = -1
		}
		cols[i] = idx
	}

	records := make([][]Cell, 0, len(t.Records))
	for _, row := range t.Records {
		dst := make([]Cell, len(fields))
		for i, idx := range cols {
			if idx >= 0 {
				dst[i] = row[idx]
			}
		}
		records = append(records, dst)
	}

	names := make([]string, len(fields))
	copy(names, fields)
	return NewTable(names, records)
}

// Filter 返回 name 字段值等于 value 的所有 record
func (t *Table) Filter(name, value string) *Table {
	idx, ok := t.col(name)
	var records [][]Cell
	if ok {
		for _, row := range t.Records {
			if row[idx].Valid && row[idx].Value == value {
				records = append(records, row)
			}
		}
	}
	return NewTable(t.Fields, records)
}

type jsonTable struct {
	Fields  []string `json:"fields"`
	Records [][]Cell `json:"records"`
}

func (t *Table) MarshalJSON() ([]byte, error) {
	jt := jsonTable{Fields: t.Fields, Records: t.Records}
	if jt.Fields == nil {
		jt.Fields = []string{}
	}
	if jt.Records == nil {
		jt.Records = [][]Cell{}
	}
	return json.Marshal(jt)
}

func (t *Table) UnmarshalJSON(b []byte) error {
	var jt jsonTable
	if err := json.Unmarshal(b, &jt); err != nil {
		return err
	}
	for i, row := range jt.Records {
		if len(row) != len(jt.Fields) {
			return newError("record %d has %d cells, want %d", i, len(row), len(jt.Fields))
		}
	}
	t.Fields = jt.Fields
	t.Records = jt.Records
	t.buildIndex()
	return nil
}
