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

package splitio

import (
	"bufio"
	"context"
	"io"

	"github.com/pkg/errors"
)

// DefaultMaxLineSize 单行默认最大长度
const DefaultMaxLineSize = 1 << 20

// ErrLineTooLong 单行长度超出限制
var ErrLineTooLong = errors.New("splitio: line too long")

// Reader 从内存数据中按行读取 返回的行不包含换行符
type Reader struct {
	r, w    int
	scanner *Scanner
}

// NewReader 创建并返回 *Reader 实例
func NewReader(b []byte) *Reader {
	return &Reader{
		w:       len(b),
		scanner: NewScanner(b),
	}
}

// ReadLine 读取一行数据 第二个返回值为 false 时代表已到达 EOF
func (lr *Reader) ReadLine() (string, bool) {
	if !lr.scanner.Scan() {
		return "", false
	}

	lr.r += len(lr.scanner.Bytes())
	return string(lr.scanner.Line()), true
}

// EOF 返回 Reader 是否已到达 EOF
func (lr *Reader) EOF() bool {
	return lr.r >= lr.w
}

// StreamReader 从 io.Reader 中按行读取
//
// 单行长度超过 maxSize 时停止读取 并通过 Err 返回 ErrLineTooLong
type StreamReader struct {
	br      *bufio.Reader
	maxSize int
	line    []byte
	err     error
}

// NewStreamReader 创建并返回 *StreamReader 实例 maxSize <= 0 时使用 DefaultMaxLineSize
func NewStreamReader(r io.Reader, maxSize int) *StreamReader {
	if maxSize <= 0 {
		maxSize = DefaultMaxLineSize
	}
	return &StreamReader{
		br:      bufio.NewReader(r),
		maxSize: maxSize,
	}
}

func (sr *StreamReader) ReadLine() (string, bool) {
	if sr.err != nil {
		return "", false
	}

	sr.line = sr.line[:0]
	for {
		frag, err := sr.br.ReadSlice(CharLF[0])
		sr.line = append(sr.line, frag...)

		// 预留 `\r\n` 两个字节
		if len(sr.line) > sr.maxSize+len(CharCRLF) {
			sr.err = errors.Wrapf(ErrLineTooLong, "exceeds %d bytes", sr.maxSize)
			return "", false
		}

		if err == nil {
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		sr.err = err
		if errors.Is(err, io.EOF) && len(sr.line) > 0 {
			break // 最后一行没有换行符
		}
		return "", false
	}

	line := TrimEOL(sr.line)
	if len(line) > sr.maxSize {
		sr.err = errors.Wrapf(ErrLineTooLong, "exceeds %d bytes", sr.maxSize)
		return "", false
	}
	return string(line), true
}

// Err 返回读取过程中遇到的错误 正常结束时返回 nil
func (sr *StreamReader) Err() error {
	if errors.Is(sr.err, io.EOF) {
		return nil
	}
	return sr.err
}

// LineReader 按行读取的数据源
type LineReader interface {
	ReadLine() (string, bool)
}

type errReader interface {
	Err() error
}

// ContextReader 为 LineReader 提供取消能力
//
// ctx 被取消后 ReadLine 立即返回 EOF 并通过 Err 返回 ctx.Err()
type ContextReader struct {
	ctx context.Context
	lr  LineReader
	err error
}

func WithContext(ctx context.Context, lr LineReader) *ContextReader {
	return &ContextReader{ctx: ctx, lr: lr}
}

func (cr *ContextReader) ReadLine() (string, bool) {
	if cr.err != nil {
		return "", false
	}
	if err := cr.ctx.Err(); err != nil {
		cr.err = err
		return "", false
	}
	return cr.lr.ReadLine()
}

func (cr *ContextReader) Err() error {
	if cr.err != nil {
		return cr.err
	}
	if er, ok := cr.lr.(errReader); ok {
		return er.Err()
	}
	return nil
}
