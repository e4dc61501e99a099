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

// Package dcf 实现了 Debian Control File 格式的流式解析
//
// 输入由若干以空行分隔的段落组成 每个段落为一个 record 由 `Name: value` 字段行构成
// 以空白开头的续行会被折叠进上一个字段的值中 仅包含 `.` 的续行代表一个空行
package dcf

import (
	"io"

	"github.com/pkg/errors"

	"github.com/packetd/dcfd/internal/bufbytes"
	"github.com/packetd/dcfd/internal/splitio"
)

// LineReader 按行读取的数据源 返回的行不包含换行符
//
// 第二个返回值为 false 时代表已到达 EOF
// 实现方可额外提供 `Err() error` 方法 Parser 会在 EOF 后检查读取过程是否出错
type LineReader interface {
	ReadLine() (string, bool)
}

type errReader interface {
	Err() error
}

// Options 解析选项
type Options struct {
	// Fields 需要解析的字段 为空时从输入中动态发现字段
	Fields []string `config:"fields" mapstructure:"fields"`

	// KeepWhite 保留空白的字段
	// 这些字段的值不会去除行尾空白 续行也不会去除前导空白
	KeepWhite []string `config:"keepWhite" mapstructure:"keepWhite"`

	// MaxRecords 最大 record 数量 0 代表不限制
	MaxRecords int `config:"maxRecords" mapstructure:"maxRecords"`

	// MaxFields 动态模式下最多发现的字段数量 0 代表不限制
	MaxFields int `config:"maxFields" mapstructure:"maxFields"`

	// MaxValueSize 单个字段值的最大字节数 0 代表不限制
	MaxValueSize int `config:"maxValueSize" mapstructure:"maxValueSize"`

	// MaxLineSize 单行最大字节数 仅作用于 ParseReader
	MaxLineSize int `config:"maxLineSize" mapstructure:"maxLineSize"`
}

// state 记录着 Parser 的处理状态
type state uint8

const (
	// stateBetweenRecords 初始值
	// 处于此状态时连续的空行会被吸收 下一个非空行开启新的 record
	stateBetweenRecords state = iota

	// stateInRecord 正在构建 record
	stateInRecord
)

// Parser DCF 解析器
//
// Parser 不是并发安全的 同一时刻只能执行一次 Parse
// 每次 Parse 都会重置内部状态 因此 Parser 可以被复用
type Parser struct {
	opts      Options
	keepWhite map[string]struct{}

	schema *Schema
	table  *recordTable
	value  *bufbytes.Bytes // 当前打开字段的值

	state     state
	record    int  // 当前 record 所在的行
	lastField int  // 当前打开的字段 -1 代表没有打开的字段 此时不允许出现续行
	fieldSkip bool // 当前字段不在所需字段中 其续行会被忽略
	keep      bool // 当前字段是否保留空白
	lineNo    int
}

// NewParser 创建并返回 *Parser 实例
func NewParser(opts Options) *Parser {
	keepWhite := make(map[string]struct{}, len(opts.KeepWhite))
	for _, name := range opts.KeepWhite {
		keepWhite[name] = struct{}{}
	}

	return &Parser{
		opts:      opts,
		keepWhite: keepWhite,
		value:     bufbytes.New(opts.MaxValueSize),
		table:     newRecordTable(len(opts.Fields)),
	}
}

// Parse 使用默认选项解析 fields 为空时动态发现字段
func Parse(r LineReader, fields ...string) (*Table, error) {
	return NewParser(Options{Fields: fields}).Parse(r)
}

// ParseBytes 解析内存中的数据
func ParseBytes(b []byte, opts Options) (*Table, error) {
	return NewParser(opts).Parse(splitio.NewReader(b))
}

// ParseReader 从 io.Reader 中流式解析数据
func ParseReader(r io.Reader, opts Options) (*Table, error) {
	return NewParser(opts).Parse(splitio.NewStreamReader(r, opts.MaxLineSize))
}

func (p *Parser) reset() {
	p.schema = NewSchema(p.opts.Fields...)
	p.table.reset(p.schema.Len())
	p.value.Reset()
	p.state = stateBetweenRecords
	p.record = -1
	p.lastField = -1
	p.fieldSkip = false
	p.keep = false
	p.lineNo = 0
}

// Parse 逐行读取 r 直到 EOF 并返回解析结果
//
// 任何语法错误或者超出限制都会立即终止解析 此时不会返回部分结果
func (p *Parser) Parse(r LineReader) (*Table, error) {
	p.reset()

	for {
		raw, ok := r.ReadLine()
		if !ok {
			break
		}

		p.lineNo++
		if err := p.decodeLine(Classify(raw)); err != nil {
			return nil, err
		}
	}

	if er, ok := r.(errReader); ok {
		if err := er.Err(); err != nil {
			return nil, errors.Wrapf(err, "dcf: read line %d", p.lineNo+1)
		}
	}

	// EOF 等同于读取到一个空行
	if err := p.closeRecord(); err != nil {
		return nil, err
	}
	return p.finalize(), nil
}

func (p *Parser) decodeLine(l Line) error {
	switch l.Kind {
	case KindBlank:
		return p.closeRecord()

	case KindContinuation:
		return p.decodeContinuation(l)

	case KindTagged:
		return p.decodeTagged(l)
	}
	return newLineError(ErrMalformedLine, p.lineNo, l.Raw)
}

// openRecord 在 record 的第一个非空行时为其分配一行
func (p *Parser) openRecord() error {
	if p.state == stateInRecord {
		return nil
	}

	if p.opts.MaxRecords > 0 && p.table.len() >= p.opts.MaxRecords {
		return &LimitError{Limit: "records", Max: p.opts.MaxRecords, Line: p.lineNo}
	}
	p.record = p.table.addRow()
	p.state = stateInRecord
	return nil
}

// closeRecord 结束当前 record 连续的空行只会结束一次
func (p *Parser) closeRecord() error {
	if p.state == stateBetweenRecords {
		return nil
	}

	p.commit()
	p.state = stateBetweenRecords
	p.lastField = -1
	p.fieldSkip = false
	return nil
}

// commit 将当前打开字段的值写入表格
func (p *Parser) commit() {
	if p.lastField < 0 {
		return
	}
	p.table.set(p.record, p.lastField, p.value.Text())
	p.value.Reset()
}

func (p *Parser) decodeTagged(l Line) error {
	if err := p.openRecord(); err != nil {
		return err
	}
	p.commit()

	idx, ok := p.schema.Index(l.Tag)
	switch {
	case ok:
		// 已知字段

	case p.schema.Fixed():
		// 不需要的字段 其续行同样被忽略
		p.lastField = -1
		p.fieldSkip = true
		return nil

	default:
		if p.opts.MaxFields > 0 && p.schema.Len() >= p.opts.MaxFields {
			return &LimitError{Limit: "fields", Max: p.opts.MaxFields, Line: p.lineNo}
		}
		idx = p.schema.add(l.Tag)
		p.table.addColumn()
	}

	_, p.keep = p.keepWhite[l.Tag]
	value := l.Value
	if p.keep {
		value = l.rawValue()
	}

	p.lastField = idx
	p.fieldSkip = false
	p.value.Reset()
	if err := p.value.WriteString(value); err != nil {
		return p.valueTooLarge()
	}
	return nil
}

func (p *Parser) decodeContinuation(l Line) error {
	if p.fieldSkip {
		return nil
	}
	if p.state == stateBetweenRecords || p.lastField < 0 {
		return newLineError(ErrLeadingContinuation, p.lineNo, l.Raw)
	}

	// 当前值为空时普通续行不追加换行 ` .` 标记总是产生一个空行
	if p.value.Len() > 0 || p.keep || l.Empty {
		if err := p.value.WriteByte('\n'); err != nil {
			return p.valueTooLarge()
		}
	}
	if l.Empty {
		return nil
	}

	content := l.Content()
	if p.keep {
		content = l.rawContent()
	}
	if err := p.value.WriteString(content); err != nil {
		return p.valueTooLarge()
	}
	return nil
}

func (p *Parser) valueTooLarge() error {
	return &LimitError{Limit: "value size", Max: p.opts.MaxValueSize, Line: p.lineNo}
}

// finalize 按 record 顺序生成大小精确的结果
func (p *Parser) finalize() *Table {
	records := make([][]Cell, p.table.len())
	copy(records, p.table.rows)
	p.table.rows = make([][]Cell, 0, minRowCapacity)
	return NewTable(p.schema.Names(), records)
}
