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

package common

import "time"

const (
	// App 应用程序名称
	App = "dcfd"

	// DefaultConfigPath 默认配置文件路径
	DefaultConfigPath = "dcfd.yaml"

	// DefaultWatchDebounce 文件变更事件的合并窗口
	//
	// apt 更新列表文件时会先截断再写入 短时间内会产生多个写事件
	// 合并后只触发一次解析
	DefaultWatchDebounce = 500 * time.Millisecond
)
