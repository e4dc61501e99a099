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

package exporter

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packetd/dcfd/common"
	"github.com/packetd/dcfd/confengine"
)

type memSinker struct {
	name   string
	fail   bool
	snaps  []*common.Snapshot
	closed bool
}

func (s *memSinker) Name() string { return s.name }

func (s *memSinker) Sink(snap *common.Snapshot) error {
	if s.fail {
		return errors.New("sink failed")
	}
	s.snaps = append(s.snaps, snap)
	return nil
}

func (s *memSinker) Close() error {
	s.closed = true
	return nil
}

func registerMem(t *testing.T) (*memSinker, *memSinker) {
	records := &memSinker{name: SinkerRecords}
	sqlite := &memSinker{name: SinkerSQLite, fail: true}

	prev := sinkFactory
	sinkFactory = map[string]CreateFunc{}
	t.Cleanup(func() { sinkFactory = prev })

	Register(SinkerRecords, func(Config) (Sinker, error) { return records, nil })
	Register(SinkerSQLite, func(Config) (Sinker, error) { return sqlite, nil })
	return records, sqlite
}

func TestExporter(t *testing.T) {
	records, sqlite := registerMem(t)

	conf, err := confengine.LoadContent([]byte("exporter:\n  records:\n    enabled: true\n  sqlite:\n    enabled: true\n"))
	require.NoError(t, err)

	exp, err := New(conf)
	require.NoError(t, err)
	assert.Equal(t, []string{SinkerRecords, SinkerSQLite}, exp.Sinkers())

	snap := &common.Snapshot{Source: "sid"}
	err = exp.Export(common.NewRecord(common.RecordSnapshots, snap))
	assert.Error(t, err)
	assert.Equal(t, []*common.Snapshot{snap}, records.snaps)

	// 非快照类型的数据会被忽略
	assert.NoError(t, exp.Export(common.NewRecord("unknown", snap)))
	assert.Len(t, records.snaps, 1)

	assert.NoError(t, exp.Close())
	assert.True(t, records.closed)
	assert.True(t, sqlite.closed)
}

func TestExporterDisabled(t *testing.T) {
	registerMem(t)

	exp, err := NewWithConfig(Config{Records: RecordsConfig{Enabled: true}})
	require.NoError(t, err)
	assert.Equal(t, []string{SinkerRecords}, exp.Sinkers())
}

func TestExporterCreateFailed(t *testing.T) {
	records, _ := registerMem(t)
	Register(SinkerSQLite, func(Config) (Sinker, error) { return nil, errors.New("open db") })

	_, err := NewWithConfig(Config{
		Records: RecordsConfig{Enabled: true},
		SQLite:  SQLiteConfig{Enabled: true},
	})
	assert.Error(t, err)
	assert.True(t, records.closed)
}

func TestConfigValidate(t *testing.T) {
	rc := RecordsConfig{}
	rc.Validate()
	assert.Equal(t, RecordsConfig{Filename: "dcfd.records", MaxSize: 100, MaxAge: 7, MaxBackups: 10}, rc)

	sc := SQLiteConfig{Retain: -1}
	sc.Validate()
	assert.Equal(t, SQLiteConfig{Path: "dcfd.db"}, sc)
}
