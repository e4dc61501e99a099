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

type Config struct {
	Records RecordsConfig `config:"records"`
	SQLite  SQLiteConfig  `config:"sqlite"`
}

type RecordsConfig struct {
	Enabled    bool   `config:"enabled"`
	Console    bool   `config:"console"`
	Filename   string `config:"filename"`
	MaxSize    int    `config:"maxSize"`
	MaxBackups int    `config:"maxBackups"`
	MaxAge     int    `config:"maxAge"`
}

func (rc *RecordsConfig) Validate() {
	if rc.Filename == "" {
		rc.Filename = "dcfd.records"
	}
	if rc.MaxSize <= 0 {
		rc.MaxSize = 100
	}
	if rc.MaxAge <= 0 {
		rc.MaxAge = 7
	}
	if rc.MaxBackups <= 0 {
		rc.MaxBackups = 10
	}
}

type SQLiteConfig struct {
	Enabled bool   `config:"enabled"`
	Path    string `config:"path"`

	// Retain 每个数据源保留的快照数量 0 代表全部保留
	Retain int `config:"retain"`
}

func (sc *SQLiteConfig) Validate() {
	if sc.Path == "" {
		sc.Path = "dcfd.db"
	}
	if sc.Retain < 0 {
		sc.Retain = 0
	}
}
