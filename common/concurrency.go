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

import (
	"runtime"
	"time"
)

var coreNums = runtime.NumCPU()

// Concurrency 默认的并发解析数量
func Concurrency() int {
	return coreNums
}

var started time.Time

func init() {
	started = time.Now()
}

// Started 返回进程启动时间戳
func Started() int64 {
	return started.Unix()
}

// Uptime 返回进程运行时长
func Uptime() time.Duration {
	return time.Since(started)
}
