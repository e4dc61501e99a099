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
	"bufio"
	"io"
	"strings"
)

// WriteDCF 将表格重新序列化为 control file 格式
//
// record 之间以空行分隔 缺失的字段不输出
// 多行的值以续行输出 其中的空行输出为 ` .` 因此输出可以被 Parser 原样读回
// 以空白开头的行原样输出 因此 KeepWhite 字段读回时空白不变
// 其余字段读回时会丢失行首空白
func (t *Table) WriteDCF(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for i, row := range t.Records {
		if i > 0 {
			bw.WriteByte('\n')
		}
		for j, c := range row {
			if !c.Valid {
				continue
			}
			writeField(bw, t.Fields[j], c.Value)
		}
	}
	return bw.Flush()
}

func writeField(bw *bufio.Writer, name, value string) {
	lines := strings.Split(value, "\n")
	bw.WriteString(name)
	bw.WriteByte(':')
	if lines[0] != "" {
		bw.WriteByte(' ')
		bw.WriteString(lines[0])
	}
	bw.WriteByte('\n')

	for _, line := range lines[1:] {
		switch {
		case strings.Trim(line, trailingSpace) == "":
			// 仅含空白的行会被当作 record 分隔
			bw.WriteByte(' ')
			bw.WriteString(emptyContinuation)
		case isBlank(line[0]):
			bw.WriteString(line)
		default:
			bw.WriteByte(' ')
			bw.WriteString(line)
		}
		bw.WriteByte('\n')
	}
}
