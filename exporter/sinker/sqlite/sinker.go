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

package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/packetd/dcfd/common"
	"github.com/packetd/dcfd/dcf"
	"github.com/packetd/dcfd/exporter"
)

func init() {
	exporter.Register(exporter.SinkerSQLite, New)
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		pipeline TEXT NOT NULL DEFAULT '',
		path TEXT NOT NULL DEFAULT '',
		digest TEXT NOT NULL,
		parsed_at DATETIME NOT NULL,
		duration_ns INTEGER NOT NULL DEFAULT 0,
		records INTEGER NOT NULL DEFAULT 0,
		fields TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS cells (
		snapshot_id TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
		row INTEGER NOT NULL,
		col INTEGER NOT NULL,
		field TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (snapshot_id, row, col)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_snapshots_source ON snapshots(source, pipeline, parsed_at)`,
}

// Sinker 将快照写入 SQLite 数据库
//
// 每个快照在 snapshots 表中占一行 每个存在的字段值在 cells 表中占一行 缺失的字段不写入
// cells 以列序号区分字段 字段名仅用于查询
type Sinker struct {
	db  *sql.DB
	cfg *exporter.SQLiteConfig
}

func New(conf exporter.Config) (exporter.Sinker, error) {
	cfg := &conf.SQLite
	cfg.Validate()
	return Open(cfg)
}

// Open 打开（或创建）数据库并完成表结构迁移
func Open(cfg *exporter.SQLiteConfig) (*Sinker, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create db directory")
	}

	db, err := sql.Open("sqlite", cfg.Path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// SQLite 同一时刻仅允许一个写入者
	db.SetMaxOpenConns(1)

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "migrate")
		}
	}
	return &Sinker{db: db, cfg: cfg}, nil
}

func (s *Sinker) Name() string {
	return exporter.SinkerSQLite
}

// DB 返回底层数据库连接
func (s *Sinker) DB() *sql.DB {
	return s.db
}

func (s *Sinker) Sink(snap *common.Snapshot) error {
	if snap.Table == nil {
		return nil
	}

	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	fields, err := encodeFields(snap.Table.Fields)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO snapshots (id, source, pipeline, path, digest, parsed_at, duration_ns, records, fields)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.Source, snap.Pipeline, snap.Path, snap.Digest,
		snap.ParsedAt.UTC().Format(time.RFC3339Nano), int64(snap.Duration), snap.Records(), fields,
	)
	if err != nil {
		return errors.Wrap(err, "insert snapshot")
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO cells (snapshot_id, row, col, field, value) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for row, cells := range snap.Table.Records {
		for col, cell := range cells {
			if !cell.Valid {
				continue
			}
			if _, err := stmt.ExecContext(ctx, snap.ID, row, col, snap.Table.Fields[col], cell.Value); err != nil {
				return errors.Wrap(err, "insert cell")
			}
		}
	}

	if err := s.retain(ctx, tx, snap.Source, snap.Pipeline); err != nil {
		return err
	}
	return tx.Commit()
}

// retain 仅保留最近的 Retain 个快照
func (s *Sinker) retain(ctx context.Context, tx *sql.Tx, source, pipeline string) error {
	if s.cfg.Retain <= 0 {
		return nil
	}

	_, err := tx.ExecContext(ctx,
		`DELETE FROM snapshots WHERE source = ? AND pipeline = ? AND id NOT IN (
			SELECT id FROM snapshots WHERE source = ? AND pipeline = ?
			ORDER BY parsed_at DESC, rowid DESC LIMIT ?
		)`,
		source, pipeline, source, pipeline, s.cfg.Retain,
	)
	return errors.Wrap(err, "retain snapshots")
}

func (s *Sinker) Close() error {
	return s.db.Close()
}

// Load 从数据库中读取快照
func (s *Sinker) Load(ctx context.Context, id string) (*common.Snapshot, error) {
	var (
		snap     common.Snapshot
		parsedAt string
		duration int64
		records  int
		fields   string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, source, pipeline, path, digest, parsed_at, duration_ns, records, fields FROM snapshots WHERE id = ?`, id,
	).Scan(&snap.ID, &snap.Source, &snap.Pipeline, &snap.Path, &snap.Digest, &parsedAt, &duration, &records, &fields)
	if err != nil {
		return nil, err
	}

	if snap.ParsedAt, err = time.Parse(time.RFC3339Nano, parsedAt); err != nil {
		return nil, err
	}
	snap.Duration = time.Duration(duration)

	names, err := decodeFields(fields)
	if err != nil {
		return nil, err
	}
	rows := make([][]dcf.Cell, records)
	for i := range rows {
		rows[i] = make([]dcf.Cell, len(names))
	}

	cells, err := s.db.QueryContext(ctx, `SELECT row, col, value FROM cells WHERE snapshot_id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer cells.Close()

	for cells.Next() {
		var (
			row   int
			col   int
			value string
		)
		if err := cells.Scan(&row, &col, &value); err != nil {
			return nil, err
		}
		if row < 0 || row >= records || col < 0 || col >= len(names) {
			return nil, errors.Errorf("snapshot (%s) has inconsistent cell (%d, %d)", id, row, col)
		}
		rows[row][col] = dcf.Present(value)
	}
	if err := cells.Err(); err != nil {
		return nil, err
	}

	snap.Table = dcf.NewTable(names, rows)
	return &snap, nil
}
