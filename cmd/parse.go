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
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/google/renameio"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/packetd/dcfd/dcf"
	"github.com/packetd/dcfd/internal/json"
)

const (
	formatJSON  = "json"
	formatDCF   = "dcf"
	formatTable = "table"
)

type parseCmdConfig struct {
	Fields         []string
	KeepWhite      []string
	Format         string
	Pretty         bool
	SortVersion    string
	StripSignature bool
	Output         string
	MaxRecords     int
	MaxFields      int
	MaxValueSize   int
	MaxLineSize    int
}

func (c *parseCmdConfig) options() dcf.Options {
	return dcf.Options{
		Fields:       c.Fields,
		KeepWhite:    c.KeepWhite,
		MaxRecords:   c.MaxRecords,
		MaxFields:    c.MaxFields,
		MaxValueSize: c.MaxValueSize,
		MaxLineSize:  c.MaxLineSize,
	}
}

// parseInput 解析 path 指向的文件 path 为 `-` 时读取标准输入
func (c *parseCmdConfig) parseInput(path string) (*dcf.Table, error) {
	tbl, err := dcf.ParseFile(path, c.options(), c.StripSignature)
	if err != nil {
		return nil, err
	}
	if c.SortVersion != "" {
		if err := tbl.SortByVersion(c.SortVersion); err != nil {
			return nil, err
		}
	}
	return tbl, nil
}

// writeTable 按 format 输出表格 pretty 仅作用于 json 格式
func writeTable(w io.Writer, tbl *dcf.Table, format string, pretty bool) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		if pretty {
			enc = json.NewIndentEncoder(w, "  ")
		}
		return enc.Encode(tbl)

	case formatDCF:
		return tbl.WriteDCF(w)

	case formatTable:
		return writeTabular(w, tbl)
	}
	return errors.Errorf("unknown format %q", format)
}

// writeTabular 以对齐的文本表格输出 缺失的值显示为 `-` 多行值中的换行被转义
func writeTabular(w io.Writer, tbl *dcf.Table) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(tbl.Fields, "\t"))

	cols := make([]string, len(tbl.Fields))
	for _, row := range tbl.Records {
		for i := range cols {
			cols[i] = "-"
			if i < len(row) && row[i].Valid {
				cols[i] = strings.ReplaceAll(row[i].Value, "\n", "\\n")
			}
		}
		fmt.Fprintln(tw, strings.Join(cols, "\t"))
	}
	return tw.Flush()
}

// writeOutput 将结果写入 path 文件通过原子替换的方式落盘 path 为空时写入 w
func writeOutput(w io.Writer, path string, fn func(io.Writer) error) error {
	if path == "" {
		return fn(w)
	}

	pf, err := renameio.TempFile(filepath.Dir(path), path)
	if err != nil {
		return errors.Wrapf(err, "create temp file for %s", path)
	}
	defer pf.Cleanup()

	if err := fn(pf); err != nil {
		return err
	}
	return pf.CloseAtomicallyReplace()
}

var parseConfig parseCmdConfig

var parseCmd = &cobra.Command{
	Use:   "parse [file|-]",
	Short: "Parse a control file and print it as json, dcf or table",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "-"
		if len(args) > 0 {
			path = args[0]
		}

		tbl, err := parseConfig.parseInput(path)
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), parseConfig.Output, func(w io.Writer) error {
			return writeTable(w, tbl, parseConfig.Format, parseConfig.Pretty)
		})
	},
	Example: `# dcfd parse /var/lib/apt/lists/deb.debian.org_debian_dists_sid_main_binary-amd64_Packages --fields Package,Version
# zcat Sources.gz | dcfd parse - --format table --fields Package,Version --sort-version Version
# dcfd parse InRelease --strip-signature --format dcf --output release.dcf`,
}

func init() {
	parseCmd.Flags().StringSliceVar(&parseConfig.Fields, "fields", nil, "Fields to extract, all fields are discovered when empty")
	parseCmd.Flags().StringSliceVar(&parseConfig.KeepWhite, "keep-white", nil, "Fields whose whitespace is kept verbatim")
	parseCmd.Flags().StringVar(&parseConfig.Format, "format", formatJSON, "Output format [json|dcf|table]")
	parseCmd.Flags().BoolVar(&parseConfig.Pretty, "pretty", false, "Indent json output")
	parseCmd.Flags().StringVar(&parseConfig.SortVersion, "sort-version", "", "Sort records by the Debian version in the given field")
	parseCmd.Flags().BoolVar(&parseConfig.StripSignature, "strip-signature", false, "Strip the PGP signature of clearsigned input")
	parseCmd.Flags().StringVar(&parseConfig.Output, "output", "", "Write the result to file instead of stdout")
	parseCmd.Flags().IntVar(&parseConfig.MaxRecords, "max-records", 0, "Maximum number of records, 0 means unlimited")
	parseCmd.Flags().IntVar(&parseConfig.MaxFields, "max-fields", 0, "Maximum number of discovered fields, 0 means unlimited")
	parseCmd.Flags().IntVar(&parseConfig.MaxValueSize, "max-value-size", 0, "Maximum bytes of a single value, 0 means unlimited")
	parseCmd.Flags().IntVar(&parseConfig.MaxLineSize, "max-line-size", 0, "Maximum bytes of a single line, 0 means the default")
	rootCmd.AddCommand(parseCmd)
}
