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
	"strings"
)

// Kind 行类型
type Kind uint8

const (
	// KindBlank 空行或仅包含空白字符的行 用于分隔 record
	KindBlank Kind = iota

	// KindContinuation 以空格或 tab 开头的续行
	KindContinuation

	// KindTagged 形如 `Name: value` 的字段行
	KindTagged

	// KindMalformed 不属于以上任意一种
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindBlank:
		return "blank"
	case KindContinuation:
		return "continuation"
	case KindTagged:
		return "tagged"
	}
	return "malformed"
}

const (
	trailingSpace = " \t\r"
	leadingBlank  = " \t"

	// emptyContinuation 续行中代表空行的标记
	emptyContinuation = "."
)

// Line 记录单行的分类结果
type Line struct {
	Kind Kind

	// Raw 原始内容 已去除换行符
	Raw string

	// Text 去除行尾空白后的内容 空行为 ""
	Text string

	// Tag / Value 仅在 KindTagged 时有效
	// Tag 为第一个冒号之前的内容 Value 为冒号之后去除前导空白的内容
	Tag   string
	Value string

	// Empty 仅在 KindContinuation 时有效 代表该行为 ` .` 空行标记
	Empty bool
}

// Content 返回续行去除前导空白后的内容
func (l Line) Content() string {
	return strings.TrimLeft(l.Text, leadingBlank)
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t'
}

// Classify 对单行内容进行分类
//
// 判断顺序固定为 Blank -> Continuation -> Tagged -> Malformed
// 续行以前导空白判定并且优先于 Tagged 因此续行中即便包含冒号也不会被当成字段行
func Classify(raw string) Line {
	text := strings.TrimRight(raw, trailingSpace)
	l := Line{Raw: raw, Text: text}

	// 1) ^[ \t]*$
	if text == "" {
		l.Kind = KindBlank
		return l
	}

	// 2) ^[ \t]+
	if isBlank(text[0]) {
		l.Kind = KindContinuation
		l.Empty = l.Content() == emptyContinuation
		return l
	}

	// 3) ^[^:]+:
	if idx := strings.IndexByte(text, ':'); idx > 0 {
		l.Kind = KindTagged
		l.Tag = text[:idx]
		l.Value = strings.TrimLeft(text[idx+1:], leadingBlank)
		return l
	}

	l.Kind = KindMalformed
	return l
}

// rawValue 返回保留空白的字段值 仅去除冒号后的一个空格
func (l Line) rawValue() string {
	v := strings.TrimSuffix(l.Raw, "\r")
	v = v[len(l.Tag)+1:]
	if len(v) > 0 && isBlank(v[0]) {
		v = v[1:]
	}
	return v
}

// rawContent 返回保留空白的续行内容
func (l Line) rawContent() string {
	return strings.TrimSuffix(l.Raw, "\r")
}
