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
	"os"

	"github.com/spf13/cobra"

	"github.com/packetd/dcfd/common"
)

var rootCmd = &cobra.Command{
	Use:   common.App,
	Short: "Parse Debian control files and serve them as tables",
	Long: `dcfd parses Debian Control File (DCF) data such as Packages, Sources,
InRelease or debian/control into tables of records and fields.

It can be used as a one-shot converter (dcfd parse) or as an agent that keeps
a set of sources parsed, exports snapshots and serves them over HTTP.`,
	SilenceUsage: true,
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
