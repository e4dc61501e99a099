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

package wait

import (
	"context"
	"time"

	"github.com/packetd/dcfd/internal/rescue"
)

// Until 循环执行 f 直到 ctx 结束
//
// f 发生 panic 时会被恢复并记录 随后重新执行
func Until(ctx context.Context, f func()) {
	UntilWithBackoff(ctx, f, 0)
}

// UntilWithBackoff 与 Until 相同 但每次执行之间间隔 period
func UntilWithBackoff(ctx context.Context, f func(), period time.Duration) {
	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		func() {
			defer rescue.HandleCrash("wait")
			f()
		}()

		if period <= 0 {
			continue
		}

		if timer == nil {
			timer = time.NewTimer(period)
			defer timer.Stop()
		} else {
			timer.Reset(period)
		}

		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}
}
