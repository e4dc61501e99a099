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

package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/spf13/cobra"

	"github.com/packetd/dcfd/confengine"
)

type watchCmdConfig struct {
	Console        bool
	Address        string
	Fields         []string
	StripSignature bool
	Schedule       string
	RecordsFile    string
	RecordsSize    int
	RecordsBackups int
	SQLitePath     string
}

type watchSource struct {
	Name string
	Path string
}

// decodeSources 每个文件对应一个 source 名称取自文件名 重名时追加序号
func decodeSources(paths []string) []watchSource {
	seen := make(map[string]int)
	var sources []watchSource
	for _, p := range paths {
		name := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		if n := seen[name]; n > 0 {
			seen[name]++
			name = fmt.Sprintf("%s-%d", name, n)
		} else {
			seen[name] = 1
		}
		sources = append(sources, watchSource{Name: name, Path: p})
	}
	return sources
}

const watchTemplate = `
controller:
  sources:
{{- range .Sources }}
    - name: {{ printf "%q" .Name }}
      path: {{ printf "%q" .Path }}
      watch: true
      stripSignature: {{ $.StripSignature }}
{{- if $.Schedule }}
      schedule: {{ printf "%q" $.Schedule }}
{{- end }}
{{- if $.Fields }}
      fields:
{{- range $.Fields }}
        - {{ printf "%q" . }}
{{- end }}
{{- end }}
{{- end }}
server:
  enabled: {{ ne .Address "" }}
  address: {{ printf "%q" .Address }}
logger:
  stdout: true
exporter:
  records:
    enabled: true
    console: {{ .Console }}
    filename: {{ printf "%q" .RecordsFile }}
    maxSize: {{ .RecordsSize }}
    maxBackups: {{ .RecordsBackups }}
    maxAge: 7
  sqlite:
    enabled: {{ ne .SQLitePath "" }}
    path: {{ printf "%q" .SQLitePath }}
`

func (c *watchCmdConfig) Yaml(paths []string) ([]byte, error) {
	tpl, err := template.New("Config").Parse(watchTemplate)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	err = tpl.Execute(&buf, map[string]any{
		"Sources":        decodeSources(paths),
		"Console":        c.Console,
		"Address":        c.Address,
		"Fields":         c.Fields,
		"StripSignature": c.StripSignature,
		"Schedule":       c.Schedule,
		"RecordsFile":    c.RecordsFile,
		"RecordsSize":    c.RecordsSize,
		"RecordsBackups": c.RecordsBackups,
		"SQLitePath":     c.SQLitePath,
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var watchConfig watchCmdConfig

var watchCmd = &cobra.Command{
	Use:   "watch file...",
	Short: "Watch control files and export a snapshot whenever they change",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		b, err := watchConfig.Yaml(args)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to render config: %v\n", err)
			os.Exit(1)
		}
		cfg, err := confengine.LoadContent(b)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
		runController(cfg)
	},
	Example: "# dcfd watch /var/lib/apt/lists/*_Packages --fields Package,Version --console",
}

func init() {
	watchCmd.Flags().BoolVar(&watchConfig.Console, "console", false, "Print exported records to stdout")
	watchCmd.Flags().StringVar(&watchConfig.Address, "address", "", "HTTP server address, disabled when empty")
	watchCmd.Flags().StringSliceVar(&watchConfig.Fields, "fields", nil, "Fields to extract, all fields are discovered when empty")
	watchCmd.Flags().BoolVar(&watchConfig.StripSignature, "strip-signature", false, "Strip the PGP signature of clearsigned files")
	watchCmd.Flags().StringVar(&watchConfig.Schedule, "schedule", "", "Cron expression to refresh the files periodically")
	watchCmd.Flags().StringVar(&watchConfig.RecordsFile, "records.file", "dcfd.records", "Path to records file")
	watchCmd.Flags().IntVar(&watchConfig.RecordsSize, "records.size", 100, "Maximum size of records file in MB")
	watchCmd.Flags().IntVar(&watchConfig.RecordsBackups, "records.backups", 10, "Maximum number of old records files to retain")
	watchCmd.Flags().StringVar(&watchConfig.SQLitePath, "sqlite", "", "Store snapshots into the sqlite database, disabled when empty")
	rootCmd.AddCommand(watchCmd)
}
