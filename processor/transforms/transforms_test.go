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

package transforms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packetd/dcfd/common"
	"github.com/packetd/dcfd/dcf"
	"github.com/packetd/dcfd/processor"
)

const packages = `Package: libc6
Version: 2.36-9
Section: libs

Package: bash
Version: 5.2.15-2
Section: shells

Package: libc6-dev
Version: 2.36-9+deb12u1
Section: libdevel

Package: hello
Version: 1:2.10-3
`

func newRecord(t *testing.T) *common.Record {
	tbl, err := dcf.ParseBytes([]byte(packages), dcf.Options{})
	require.NoError(t, err)
	return common.NewRecord(common.RecordSnapshots, &common.Snapshot{Source: "bookworm", Table: tbl})
}

func process(t *testing.T, kind string, conf map[string]any, record *common.Record) *common.Snapshot {
	f, err := processor.Get(kind)
	require.NoError(t, err)
	ps, err := f(kind+"-test", conf)
	require.NoError(t, err)
	assert.Equal(t, kind+"-test", ps.Name())
	defer ps.Clean()

	dst, err := ps.Process(record)
	require.NoError(t, err)
	snap, ok := dst.Data.(*common.Snapshot)
	require.True(t, ok)
	return snap
}

func packageNames(snap *common.Snapshot) []string {
	var names []string
	for _, c := range snap.Table.Column("Package") {
		names = append(names, c.Value)
	}
	return names
}

func TestSelect(t *testing.T) {
	record := newRecord(t)
	snap := process(t, KindSelect, map[string]any{"fields": "Version,Package"}, record)
	assert.Equal(t, []string{"Version", "Package"}, snap.Table.Fields)
	assert.Equal(t, "bookworm", snap.Source)

	// 原始快照保持不变
	src := record.Data.(*common.Snapshot)
	assert.Equal(t, []string{"Package", "Version", "Section"}, src.Table.Fields)

	_, err := NewSelect("empty", nil)
	assert.Error(t, err)
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name string
		conf map[string]any
		want []string
	}{
		{
			name: "Values",
			conf: map[string]any{"field": "Section", "values": []string{"libs", "libdevel"}},
			want: []string{"libc6", "libc6-dev"},
		},
		{
			name: "Invert",
			conf: map[string]any{"field": "Section", "values": "libs", "invert": true},
			want: []string{"bash", "libc6-dev", "hello"},
		},
		{
			name: "Unknown field",
			conf: map[string]any{"field": "Priority", "values": "optional"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := process(t, KindFilter, tt.conf, newRecord(t))
			assert.Equal(t, tt.want, packageNames(snap))
			assert.Equal(t, []string{"Package", "Version", "Section"}, snap.Table.Fields)
		})
	}

	_, err := NewFilter("nofield", map[string]any{"values": "x"})
	assert.Error(t, err)
}

func TestSortVersion(t *testing.T) {
	record := newRecord(t)
	snap := process(t, KindSortVersion, nil, record)
	assert.Equal(t, []string{"libc6", "libc6-dev", "bash", "hello"}, packageNames(snap))

	src := record.Data.(*common.Snapshot)
	assert.Equal(t, []string{"libc6", "bash", "libc6-dev", "hello"}, packageNames(src))

	ps, err := NewSortVersion("bad", map[string]any{"field": "Unknown"})
	require.NoError(t, err)
	_, err = ps.Process(record)
	assert.Error(t, err)
}

func TestProcessInvalidRecord(t *testing.T) {
	ps, err := NewSelect("select", map[string]any{"fields": []string{"Package"}})
	require.NoError(t, err)

	_, err = ps.Process(common.NewRecord("unknown", nil))
	assert.Error(t, err)
	_, err = ps.Process(common.NewRecord(common.RecordSnapshots, &common.Snapshot{}))
	assert.Error(t, err)
}
