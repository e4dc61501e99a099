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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packetd/dcfd/internal/json"
)

func newTestTable() *Table {
	return NewTable([]string{"Package", "Version", "Depends"}, [][]Cell{
		{Present("foo"), Present("1.0-1"), Present("libc6")},
		{Present("bar"), Present("1:0.9"), missing()},
		{Present("baz"), missing(), Present("")},
	})
}

func TestRecordTableGrowth(t *testing.T) {
	rt := newRecordTable(1)
	for i := 0; i < 20; i++ {
		row := rt.addRow()
		rt.set(row, 0, "v")
	}
	assert.Equal(t, 20, rt.len())
	assert.Equal(t, 32, cap(rt.rows))

	col := rt.addColumn()
	assert.Equal(t, 1, col)
	for _, row := range rt.rows {
		assert.Equal(t, []Cell{Present("v"), missing()}, row)
	}

	row := rt.addRow()
	assert.Equal(t, []Cell{missing(), missing()}, rt.rows[row])
}

func TestTableAccessors(t *testing.T) {
	tbl := newTestTable()
	assert.Equal(t, 3, tbl.Len())

	v, ok := tbl.Get(0, "Version")
	assert.True(t, ok)
	assert.Equal(t, "1.0-1", v)

	_, ok = tbl.Get(1, "Depends")
	assert.False(t, ok)

	v, ok = tbl.Get(2, "Depends")
	assert.True(t, ok)
	assert.Equal(t, "", v)

	_, ok = tbl.Get(0, "Unknown")
	assert.False(t, ok)
	_, ok = tbl.Get(5, "Package")
	assert.False(t, ok)

	assert.Equal(t, map[string]string{"Package": "bar", "Version": "1:0.9"}, tbl.Record(1))
	assert.Nil(t, tbl.Record(-1))

	assert.Equal(t, []Cell{Present("1.0-1"), Present("1:0.9"), missing()}, tbl.Column("Version"))
	assert.Nil(t, tbl.Column("Unknown"))
}

func TestTableWithoutIndex(t *testing.T) {
	tbl := &Table{
		Fields:  []string{"A"},
		Records: [][]Cell{{Present("1")}},
	}
	v, ok := tbl.Get(0, "A")
	assert.True(t, ok)
	assert.Equal(t, "1", v)
}

func TestTableSelect(t *testing.T) {
	got := newTestTable().Select("Depends", "Unknown", "Package")
	assert.Equal(t, []string{"Depends", "Unknown", "Package"}, got.Fields)
	assert.Equal(t, [][]Cell{
		{Present("libc6"), missing(), Present("foo")},
		{missing(), missing(), Present("bar")},
		{Present(""), missing(), Present("baz")},
	}, got.Records)
}

func TestTableFilter(t *testing.T) {
	tbl := newTestTable()

	got := tbl.Filter("Package", "bar")
	assert.Equal(t, 1, got.Len())
	assert.Equal(t, "bar", got.Record(0)["Package"])

	assert.Equal(t, 1, tbl.Filter("Depends", "").Len())
	assert.Equal(t, 0, tbl.Filter("Unknown", "x").Len())
}

func TestTableJSON(t *testing.T) {
	b, err := json.Marshal(newTestTable())
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"fields": ["Package", "Version", "Depends"],
		"records": [
			["foo", "1.0-1", "libc6"],
			["bar", "1:0.9", null],
			["baz", null, ""]
		]
	}`, string(b))

	var tbl Table
	require.NoError(t, json.Unmarshal(b, &tbl))
	assert.Equal(t, newTestTable().Records, tbl.Records)
	_, ok := tbl.Get(1, "Depends")
	assert.False(t, ok)

	b, err = json.Marshal(&Table{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"fields": [], "records": []}`, string(b))

	err = json.Unmarshal([]byte(`{"fields": ["A"], "records": [["1", "2"]]}`), &tbl)
	assert.Error(t, err)
}

func TestTableSortByVersion(t *testing.T) {
	tbl := NewTable([]string{"Package", "Version"}, [][]Cell{
		{Present("a"), Present("1.10-1")},
		{Present("b"), missing()},
		{Present("c"), Present("1:0.1")},
		{Present("d"), Present("1.9~rc1")},
		{Present("e"), Present("not a version")},
		{Present("f"), Present("1.9")},
		{Present("g"), Present("1.2")},
	})

	require.NoError(t, tbl.SortByVersion("Version"))

	var order []string
	for _, c := range tbl.Column("Package") {
		order = append(order, c.Value)
	}
	assert.Equal(t, []string{"g", "d", "f", "a", "c", "b", "e"}, order)

	assert.Error(t, tbl.SortByVersion("Unknown"))
}

func TestTableWriteDCF(t *testing.T) {
	input := "Package: foo\nVersion: 1.0\nDescription: short\n long\n .\n tail\n\nPackage: bar\nFiles:\n abc\n def\n"
	tbl, err := ParseBytes([]byte(input), Options{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, tbl.WriteDCF(&buf))
	assert.Equal(t, "Package: foo\nVersion: 1.0\nDescription: short\n long\n .\n tail\n\nPackage: bar\nFiles: abc\n def\n", buf.String())

	again, err := ParseBytes(buf.Bytes(), Options{})
	require.NoError(t, err)
	assert.Equal(t, tbl.Fields, again.Fields)
	assert.Equal(t, tbl.Records, again.Records)
}

func TestTableWriteDCFRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		input string
		opts  Options
		want  string
	}{
		{
			name:  "Leading blank line",
			input: "Key:\n .\n b\n",
			want:  "\n\nb",
		},
		{
			name:  "Only blank line",
			input: "Key:\n .\n",
			want:  "\n",
		},
		{
			name:  "Keep white indent",
			input: "Key: x\n  indented\n",
			opts:  Options{KeepWhite: []string{"Key"}},
			want:  "x\n  indented",
		},
		{
			name:  "Keep white empty first line",
			input: "Key:\n\tfoo\n .\n",
			opts:  Options{KeepWhite: []string{"Key"}},
			want:  "\n\tfoo\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := ParseBytes([]byte(tt.input), tt.opts)
			require.NoError(t, err)
			v, _ := tbl.Get(0, "Key")
			assert.Equal(t, tt.want, v)

			// 多次写出再读回 值保持不变
			for i := 0; i < 3; i++ {
				var buf bytes.Buffer
				require.NoError(t, tbl.WriteDCF(&buf))
				tbl, err = ParseBytes(buf.Bytes(), tt.opts)
				require.NoError(t, err)
				v, _ = tbl.Get(0, "Key")
				assert.Equal(t, tt.want, v)
			}
		})
	}
}

func TestTableWriteDCFWhitespaceLine(t *testing.T) {
	tbl := NewTable([]string{"Key"}, [][]Cell{{Present("a\n  \nb")}})

	var buf bytes.Buffer
	require.NoError(t, tbl.WriteDCF(&buf))
	assert.Equal(t, "Key: a\n .\n b\n", buf.String())
}
