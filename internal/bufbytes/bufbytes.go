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

package bufbytes

import (
	"github.com/pkg/errors"
)

// ErrExceeded 写入内容超出 Bytes 的容量上限
var ErrExceeded = errors.New("bufbytes: size limit exceeded")

// Bytes 是一个有上限的可增长字节缓冲区
//
// size 为 0 时代表不限制容量 扩容策略交由 append 处理（摊还 O(1)）
// 超出上限时 Write 不会写入任何内容 而是返回 ErrExceeded 已写入的数据保持不变
type Bytes struct {
	size int
	buf  []byte
}

func New(size int) *Bytes {
	return &Bytes{
		size: size,
	}
}

func (b *Bytes) fits(n int) bool {
	return b.size <= 0 || len(b.buf)+n <= b.size
}

func (b *Bytes) Write(p []byte) error {
	if !b.fits(len(p)) {
		return ErrExceeded
	}
	b.buf = append(b.buf, p...)
	return nil
}

func (b *Bytes) WriteString(s string) error {
	if !b.fits(len(s)) {
		return ErrExceeded
	}
	b.buf = append(b.buf, s...)
	return nil
}

func (b *Bytes) WriteByte(c byte) error {
	if !b.fits(1) {
		return ErrExceeded
	}
	b.buf = append(b.buf, c)
	return nil
}

func (b *Bytes) Len() int {
	return len(b.buf)
}

// Size 返回容量上限
func (b *Bytes) Size() int {
	return b.size
}

func (b *Bytes) Text() string {
	return string(b.buf)
}

// Reset 清空内容但保留底层数组 以便复用
func (b *Bytes) Reset() {
	b.buf = b.buf[:0]
}
