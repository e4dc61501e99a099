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
	"compress/bzip2"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"github.com/stapelberg/godebiancontrol"

	"github.com/packetd/dcfd/internal/splitio"
)

// StripSignature 返回去除 PGP 签名（如果存在）的 Reader 不会对签名进行校验
//
// 适用于 InRelease 以及 .dsc 等 clearsigned 文件
// 底层实现每次 Read 只返回一行 并且要求 p 能够容纳整行 因此这里使用足够大的缓冲区包装
func StripSignature(r io.Reader, maxLineSize int) io.Reader {
	if maxLineSize <= 0 {
		maxLineSize = splitio.DefaultMaxLineSize
	}
	stripped := godebiancontrol.PGPSignatureStripper(r)
	return bufio.NewReaderSize(stripped, maxLineSize+len(splitio.CharCRLF))
}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (rc *readCloser) Close() error {
	var err error
	for i := len(rc.closers) - 1; i >= 0; i-- {
		if e := rc.closers[i].Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}

// Open 打开文件 按后缀透明地处理 .gz 以及 .bz2 压缩格式
//
// path 为 `-` 时读取标准输入
func Open(path string) (io.ReadCloser, error) {
	var f *os.File
	if path == "-" {
		f = os.Stdin
	} else {
		var err error
		if f, err = os.Open(path); err != nil {
			return nil, err
		}
	}

	rc := &readCloser{Reader: f, closers: []io.Closer{f}}
	switch {
	case strings.HasSuffix(path, ".gz"):
		gr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "dcf: open gzip %s", path)
		}
		rc.Reader = gr
		rc.closers = append(rc.closers, gr)

	case strings.HasSuffix(path, ".bz2"):
		rc.Reader = bzip2.NewReader(f)
	}
	return rc, nil
}

// ParseFile 打开并解析文件 stripSignature 为 true 时先去除 PGP 签名
func ParseFile(path string, opts Options, stripSignature bool) (*Table, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var r io.Reader = rc
	if stripSignature {
		r = StripSignature(r, opts.MaxLineSize)
	}
	return ParseReader(r, opts)
}
