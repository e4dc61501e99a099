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
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrLeadingContinuation 续行出现在 record 的第一个字段之前
	ErrLeadingContinuation = errors.New("continuation line at beginning of record")

	// ErrMalformedLine 非空行既不是续行也不是字段行
	ErrMalformedLine = errors.New("malformed line")

	// ErrAllocation 表格或字段值的增长超出了限制
	ErrAllocation = errors.New("allocation limit exceeded")
)

// prefixSize 错误信息中保留的行前缀长度（字符数）
const prefixSize = 20

func newError(format string, args ...any) error {
	format = "dcf: " + format
	return errors.Errorf(format, args...)
}

// LineError 语法错误 Kind 为 ErrLeadingContinuation 或 ErrMalformedLine
type LineError struct {
	Kind   error
	Line   int
	Prefix string
}

func newLineError(kind error, lineNo int, raw string) *LineError {
	return &LineError{
		Kind:   kind,
		Line:   lineNo,
		Prefix: truncate(raw, prefixSize),
	}
}

func (e *LineError) Error() string {
	return fmt.Sprintf("dcf: %v at line %d: %q", e.Kind, e.Line, e.Prefix)
}

func (e *LineError) Unwrap() error {
	return e.Kind
}

// LimitError 增长超出限制 Unwrap 后为 ErrAllocation
type LimitError struct {
	Limit string
	Max   int
	Line  int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("dcf: %v at line %d: %s > %d", ErrAllocation, e.Line, e.Limit, e.Max)
}

func (e *LimitError) Unwrap() error {
	return ErrAllocation
}

// truncate 按字符截取前 n 个字符
func truncate(s string, n int) string {
	var i int
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
