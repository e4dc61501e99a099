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
	"github.com/packetd/dcfd/confengine"
	"github.com/packetd/dcfd/controller"
	"github.com/packetd/dcfd/internal/sigs"
	"github.com/packetd/dcfd/logger"
)

// runController 启动 controller 并阻塞直到收到终止信号
//
// 收到 SIGHUP 时重新加载配置文件 从内容加载的配置不支持重载
func runController(cfg *confengine.Config) {
	ctr, err := controller.New(cfg, common.GetBuildInfo())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create controller: %v\n", err)
		os.Exit(1)
	}
	if err := ctr.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start controller: %v\n", err)
		os.Exit(1)
	}

	terminate := sigs.Terminate()
	reload := sigs.Reload()
	defer sigs.Stop(reload)

	for {
		select {
		case <-terminate:
			ctr.Stop()
			logger.Sync()
			return

		case <-reload:
			if cfg.Path() == "" {
				logger.Warnf("reload ignored: config not loaded from file")
				continue
			}
			newCfg, err := cfg.Reload()
			if err != nil {
				logger.Errorf("failed to load config: %v", err)
				continue
			}
			if err := ctr.Reload(newCfg); err != nil {
				logger.Errorf("failed to reload controller: %v", err)
				continue
			}
			cfg = newCfg
			logger.Infof("config reloaded from %s", cfg.Path())
		}
	}
}

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run dcfd as an agent that keeps control file sources parsed",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := confengine.LoadConfigPath(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
		runController(cfg)
	},
	Example: "# dcfd agent --config dcfd.yaml",
}

var configPath string

func init() {
	agentCmd.Flags().StringVar(&configPath, "config", common.DefaultConfigPath, "Configuration file path")
	rootCmd.AddCommand(agentCmd)
}
