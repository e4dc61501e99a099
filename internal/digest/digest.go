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

package digest

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/valyala/bytebufferpool"

	"github.com/packetd/dcfd/dcf"
)

var (
	sepField   = []byte{'\xff'}
	sepRecord  = []byte{'\xfe'}
	markAbsent = []byte{'\xfd'}
)

// Table 计算表格内容的指纹
//
// 字段顺序与 record 顺序均参与计算 缺失的字段与空值会得到不同的结果
func Table(t *dcf.Table) uint64 {
	if t == nil {
		return 0
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	for _, name := range t.Fields {
		buf.WriteString(name)
		buf.Write(sepField)
	}
	buf.Write(sepRecord)

	for _, row := range t.Records {
		for _, cell := range row {
			if !cell.Valid {
				buf.Write(markAbsent)
			} else {
				buf.WriteString(cell.Value)
			}
			buf.Write(sepField)
		}
		buf.Write(sepRecord)
	}
	return xxhash.Sum64(buf.Bytes())
}

// String 返回 16 进制表示的表格指纹
func String(t *dcf.Table) string {
	return Format(Table(t))
}

// Format 将指纹格式化为定长的 16 进制字符串
func Format(h uint64) string {
	s := strconv.FormatUint(h, 16)
	for len(s) < 16 {
		s = "0" + s
	}
	return s
}

// Bytes 计算原始数据的指纹
func Bytes(b []byte) uint64 {
	return xxhash.Sum64(b)
}
