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
	"context"
	"fmt"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/pkg/errors"
	"github.com/stapelberg/godebiancontrol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packetd/dcfd/internal/splitio"
)

func parseString(input string, fields ...string) (*Table, error) {
	return Parse(splitio.NewReader([]byte(input)), fields...)
}

func missing() Cell {
	return Cell{}
}

func TestParseScenarios(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		fields  []string
		want    *Table
		wantErr error
	}{
		{
			name:   "Requested fields",
			input:  "Package: foo\nVersion: 1.0\n\nPackage: bar\n",
			fields: []string{"Package", "Version"},
			want: NewTable([]string{"Package", "Version"}, [][]Cell{
				{Present("foo"), Present("1.0")},
				{Present("bar"), missing()},
			}),
		},
		{
			name:  "Continuation lines",
			input: "Key: a\n b\n c\n",
			want: NewTable([]string{"Key"}, [][]Cell{
				{Present("a\nb\nc")},
			}),
		},
		{
			name:  "Empty continuation marker",
			input: "Key: a\n .\n b\n",
			want: NewTable([]string{"Key"}, [][]Cell{
				{Present("a\n\nb")},
			}),
		},
		{
			name:    "Leading continuation",
			input:   " leading continuation\nKey: a\n",
			wantErr: ErrLeadingContinuation,
		},
		{
			name:    "Malformed line",
			input:   "not a tagged line\n",
			wantErr: ErrMalformedLine,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseString(tt.input, tt.fields...)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.Fields, got.Fields)
			assert.Equal(t, tt.want.Records, got.Records)
		})
	}
}

func TestParseRecords(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		fields  []string
		records int
	}{
		{name: "Empty input", input: "", records: 0},
		{name: "Only blank lines", input: "\n \n\t\n\n", records: 0},
		{name: "Single record without LF", input: "A: 1", records: 1},
		{name: "Leading blank lines", input: "\n\n\nA: 1\n", records: 1},
		{name: "Trailing blank lines", input: "A: 1\n\n\n\n", records: 1},
		{name: "Blank runs collapsed", input: "A: 1\n\n\n\nA: 2\n \n\t\nA: 3\n", records: 3},
		{name: "CRLF separated", input: "A: 1\r\n\r\nA: 2\r\n", records: 2},
		{
			name:    "Record with only unwanted fields",
			input:   "A: 1\n\nB: 2\n b\n\nA: 3\n",
			fields:  []string{"A"},
			records: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseString(tt.input, tt.fields...)
			require.NoError(t, err)
			assert.Equal(t, tt.records, got.Len())
			for _, row := range got.Records {
				assert.Len(t, row, len(got.Fields))
			}
		})
	}
}

func TestParseDynamicFieldOrder(t *testing.T) {
	input := strings.Join([]string{
		"Package: a",
		"Version: 1",
		"",
		"Source: s",
		"Package: b",
		"Architecture: all",
		"",
		"Version: 3",
		"Depends: libc6",
		"Package: c",
	}, "\n")

	got, err := parseString(input)
	require.NoError(t, err)
	assert.Equal(t, []string{"Package", "Version", "Source", "Architecture", "Depends"}, got.Fields)

	assert.Equal(t, [][]Cell{
		{Present("a"), Present("1"), missing(), missing(), missing()},
		{Present("b"), missing(), Present("s"), Present("all"), missing()},
		{Present("c"), Present("3"), missing(), missing(), Present("libc6")},
	}, got.Records)

	// 字段缺失与空字符串不同
	v, ok := got.Get(0, "Depends")
	assert.False(t, ok)
	assert.Equal(t, "", v)
}

func TestParseFixedFieldOrder(t *testing.T) {
	input := "Version: 1\nPackage: a\nExtra: x\n"
	got, err := parseString(input, "Package", "Missing", "Version")
	require.NoError(t, err)
	assert.Equal(t, []string{"Package", "Missing", "Version"}, got.Fields)
	assert.Equal(t, [][]Cell{
		{Present("a"), missing(), Present("1")},
	}, got.Records)
}

func TestParseEmptyValue(t *testing.T) {
	got, err := parseString("Key:\nOther: x\n")
	require.NoError(t, err)

	v, ok := got.Get(0, "Key")
	assert.True(t, ok)
	assert.Equal(t, "", v)
}

func TestParseFolding(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "Folded description",
			input: "Description: short\n long line one\n  indented\n .\n last\n",
			want:  "short\nlong line one\nindented\n\nlast",
		},
		{
			name:  "Empty first line",
			input: "Files:\n abc 12 a.dsc\n def 34 a.tar.xz\n",
			want:  "abc 12 a.dsc\ndef 34 a.tar.xz",
		},
		{
			name:  "Marker on empty value",
			input: "Files:\n .\n abc\n",
			want:  "\n\nabc",
		},
		{
			name:  "Only marker",
			input: "Key:\n .\n",
			want:  "\n",
		},
		{
			name:  "Consecutive markers",
			input: "Key: a\n .\n .\n b\n",
			want:  "a\n\n\nb",
		},
		{
			name:  "Trailing marker",
			input: "Key: a\n .\n",
			want:  "a\n",
		},
		{
			name:  "Continuation with colon",
			input: "Key: a\n Other: b\n",
			want:  "a\nOther: b",
		},
		{
			name:  "Trailing whitespace stripped",
			input: "Key: a  \n b\t\n",
			want:  "a\nb",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseString(tt.input)
			require.NoError(t, err)
			require.Equal(t, 1, got.Len())
			v, ok := got.Get(0, got.Fields[0])
			assert.True(t, ok)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestParseFoldRoundTrip(t *testing.T) {
	lines := []string{"first", "second", "", "fourth", "", "", "seventh"}

	var buf bytes.Buffer
	buf.WriteString("Key: " + lines[0] + "\n")
	for _, line := range lines[1:] {
		if line == "" {
			buf.WriteString(" .\n")
			continue
		}
		buf.WriteString(" " + line + "\n")
	}

	got, err := parseString(buf.String())
	require.NoError(t, err)
	v, _ := got.Get(0, "Key")
	assert.Equal(t, lines, strings.Split(v, "\n"))
}

func TestParseSkippedFieldContinuation(t *testing.T) {
	input := "Package: foo\nDescription: skipped\n  more: skipped\n .\nVersion: 1\n"
	got, err := parseString(input, "Package", "Version")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Package": "foo", "Version": "1"}, got.Record(0))
}

func TestParseRepeatedField(t *testing.T) {
	got, err := parseString("Key: a\n a2\nKey: b\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"Key"}, got.Fields)
	v, _ := got.Get(0, "Key")
	assert.Equal(t, "b", v)
}

func TestParseDuplicateRequestedField(t *testing.T) {
	got, err := parseString("Key: a\n", "Key", "Key")
	require.NoError(t, err)
	assert.Equal(t, [][]Cell{{Present("a"), missing()}}, got.Records)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		fields  []string
		wantErr error
		line    int
		prefix  string
	}{
		{
			name:    "Continuation after blank line",
			input:   "Key: a\n\n b\n",
			wantErr: ErrLeadingContinuation,
			line:    3,
			prefix:  " b",
		},
		{
			name:    "Continuation after unwanted field in next record",
			input:   "Other: x\n\n y\n",
			fields:  []string{"Key"},
			wantErr: ErrLeadingContinuation,
			line:    3,
			prefix:  " y",
		},
		{
			name:    "Malformed in the middle",
			input:   "Key: a\nthis line has no colon and is long\n",
			wantErr: ErrMalformedLine,
			line:    2,
			prefix:  "this line has no col",
		},
		{
			name:    "Malformed leading colon",
			input:   ":x\n",
			wantErr: ErrMalformedLine,
			line:    1,
			prefix:  ":x",
		},
		{
			name:    "Malformed in fixed mode",
			input:   "Key: a\ngarbage\n",
			fields:  []string{"Key"},
			wantErr: ErrMalformedLine,
			line:    2,
			prefix:  "garbage",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseString(tt.input, tt.fields...)
			assert.Nil(t, got)
			assert.ErrorIs(t, err, tt.wantErr)

			var le *LineError
			require.True(t, errors.As(err, &le))
			assert.Equal(t, tt.line, le.Line)
			assert.Equal(t, tt.prefix, le.Prefix)
			assert.NotErrorIs(t, err, ErrAllocation)
		})
	}
}

func TestParseLimits(t *testing.T) {
	tests := []struct {
		name  string
		input string
		opts  Options
		limit string
	}{
		{
			name:  "Max records",
			input: "A: 1\n\nA: 2\n\nA: 3\n",
			opts:  Options{MaxRecords: 2},
			limit: "records",
		},
		{
			name:  "Max fields",
			input: "A: 1\nB: 2\nC: 3\n",
			opts:  Options{MaxFields: 2},
			limit: "fields",
		},
		{
			name:  "Max value size on tagged line",
			input: "A: 0123456789\n",
			opts:  Options{MaxValueSize: 8},
			limit: "value size",
		},
		{
			name:  "Max value size on continuation",
			input: "A: 0123\n 4567\n",
			opts:  Options{MaxValueSize: 8},
			limit: "value size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBytes([]byte(tt.input), tt.opts)
			assert.Nil(t, got)
			assert.ErrorIs(t, err, ErrAllocation)
			assert.NotErrorIs(t, err, ErrMalformedLine)

			var le *LimitError
			require.True(t, errors.As(err, &le))
			assert.Equal(t, tt.limit, le.Limit)
		})
	}

	t.Run("Within limits", func(t *testing.T) {
		got, err := ParseBytes([]byte("A: 0123\n 456\n\nB: 1\n"), Options{MaxRecords: 2, MaxFields: 2, MaxValueSize: 8})
		require.NoError(t, err)
		assert.Equal(t, 2, got.Len())
	})

	t.Run("Fixed fields ignore max fields", func(t *testing.T) {
		got, err := ParseBytes([]byte("A: 1\nB: 2\nC: 3\n"), Options{Fields: []string{"A", "B", "C"}, MaxFields: 1})
		require.NoError(t, err)
		assert.Equal(t, 1, got.Len())
	})
}

func TestParseKeepWhite(t *testing.T) {
	input := "Key:  a  \n  b \n .\nOther:  x  \n  y \n"
	got, err := ParseBytes([]byte(input), Options{KeepWhite: []string{"Key"}})
	require.NoError(t, err)

	v, _ := got.Get(0, "Key")
	assert.Equal(t, " a  \n  b \n", v)

	v, _ = got.Get(0, "Other")
	assert.Equal(t, "x\ny", v)
}

func TestParseReader(t *testing.T) {
	input := "Package: foo\r\nVersion: 1.0\r\n\r\nPackage: bar\r\n"
	got, err := ParseReader(iotest.HalfReader(strings.NewReader(input)), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Package", "Version"}, got.Fields)
	assert.Equal(t, 2, got.Len())
}

func TestParseReaderLineTooLong(t *testing.T) {
	input := "Package: " + strings.Repeat("x", 64) + "\n"
	got, err := ParseReader(strings.NewReader(input), Options{MaxLineSize: 32})
	assert.Nil(t, got)
	assert.ErrorIs(t, err, splitio.ErrLineTooLong)
}

func TestParseContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := Parse(splitio.WithContext(ctx, splitio.NewReader([]byte("A: 1\n"))))
	assert.Nil(t, got)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParserReuse(t *testing.T) {
	p := NewParser(Options{})

	first, err := p.Parse(splitio.NewReader([]byte("A: 1\nB: 2\n")))
	require.NoError(t, err)

	_, err = p.Parse(splitio.NewReader([]byte("garbage\n")))
	require.Error(t, err)

	second, err := p.Parse(splitio.NewReader([]byte("C: 3\n")))
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, first.Fields)
	assert.Equal(t, [][]Cell{{Present("1"), Present("2")}}, first.Records)
	assert.Equal(t, []string{"C"}, second.Fields)
	assert.Equal(t, [][]Cell{{Present("3")}}, second.Records)
}

func TestParseManyFieldsAndRecords(t *testing.T) {
	var buf bytes.Buffer
	const records = 300
	for i := 0; i < records; i++ {
		fmt.Fprintf(&buf, "Package: p%d\n", i)
		fmt.Fprintf(&buf, "Field-%d: v%d\n", i%50, i)
		buf.WriteString("\n")
	}

	got, err := parseString(buf.String())
	require.NoError(t, err)
	assert.Equal(t, records, got.Len())
	assert.Len(t, got.Fields, 51)

	for i := 0; i < records; i++ {
		rec := got.Record(i)
		assert.Len(t, rec, 2)
		assert.Equal(t, fmt.Sprintf("p%d", i), rec["Package"])
		assert.Equal(t, fmt.Sprintf("v%d", i), rec[fmt.Sprintf("Field-%d", i%50)])
	}
}

// 不含续行的输入与 godebiancontrol 的解析结果保持一致
func TestParseMatchesGodebiancontrol(t *testing.T) {
	inputs := []string{
		"Package: foo\nVersion: 1.0\n\nPackage: bar\nArchitecture: amd64\n",
		"\n\nSource: hello\nBinary: hello\nVersion: 2.10-3\n\n\n\nSource: world\n",
		"Origin: Debian\nLabel: Debian\nSuite: unstable\nCodename: sid\nDate: Sat, 18 Oct 2026 08:00:00 UTC\n",
	}

	for i, input := range inputs {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			want, err := godebiancontrol.Parse(strings.NewReader(input))
			require.NoError(t, err)

			got, err := parseString(input)
			require.NoError(t, err)
			require.Equal(t, len(want), got.Len())
			for j, paragraph := range want {
				assert.Equal(t, map[string]string(paragraph), got.Record(j))
			}
		})
	}
}

func BenchmarkParse(b *testing.B) {
	var buf bytes.Buffer
	for i := 0; i < 1000; i++ {
		fmt.Fprintf(&buf, "Package: package-%d\nVersion: 1.%d-1\nArchitecture: amd64\n", i, i)
		buf.WriteString("Description: a package\n some long description\n .\n more text\n\n")
	}
	input := buf.Bytes()

	b.ReportAllocs()
	b.ResetTimer()
	b.SetBytes(int64(len(input)))

	p := NewParser(Options{})
	for i := 0; i < b.N; i++ {
		if _, err := p.Parse(splitio.NewReader(input)); err != nil {
			b.Fatal(err)
		}
	}
}
