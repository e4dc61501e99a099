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

package controller

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"github.com/packetd/dcfd/logger"
)

const (
	triggerStartup  = "startup"
	triggerSchedule = "schedule"
	triggerWatch    = "watch"
	triggerReload   = "reload"
	triggerManual   = "manual"
)

// queue 待解析的数据源队列
//
// 同一数据源在被 worker 取走前重复入队只会保留一次
type queue struct {
	mut     sync.Mutex
	pending map[string]struct{}
	ch      chan string
}

func newQueue(size int) *queue {
	return &queue{
		pending: make(map[string]struct{}),
		ch:      make(chan string, size),
	}
}

// push 返回 false 代表数据源已在队列中或者队列已满
func (q *queue) push(name string) bool {
	q.mut.Lock()
	defer q.mut.Unlock()

	if _, ok := q.pending[name]; ok {
		return false
	}

	select {
	case q.ch <- name:
		q.pending[name] = struct{}{}
		return true
	default:
		return false
	}
}

func (q *queue) done(name string) {
	q.mut.Lock()
	defer q.mut.Unlock()

	delete(q.pending, name)
}

// trigger 将数据源加入解析队列
func (c *Controller) trigger(name, by string) {
	if !c.queue.push(name) {
		c.log.Debugf("source (%s) already queued, trigger=%s", name, by)
		return
	}
	triggeredTotal.WithLabelValues(name, by).Inc()
}

func (c *Controller) consumeQueue() {
	select {
	case name := <-c.queue.ch:
		c.queue.done(name)
		c.refresh(name)

	case <-c.ctx.Done():
	}
}

// watchers 管理定时任务以及文件监听
type watchers struct {
	cron    *cron.Cron
	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

func (w *watchers) stop() {
	if w == nil {
		return
	}
	if w.cron != nil {
		<-w.cron.Stop().Done()
	}
	if w.watcher != nil {
		close(w.done)
		w.watcher.Close()
		w.wg.Wait()
	}
}

// restartWatchers 关闭现有的定时任务和文件监听 并根据当前配置重新创建
func (c *Controller) restartWatchers() error {
	c.watchMut.Lock()
	defer c.watchMut.Unlock()

	c.watchers.stop()
	c.watchers = nil

	cfgs := c.sources.Configs()
	w := &watchers{done: make(chan struct{})}

	var scheduled int
	sched := cron.New(cron.WithParser(cronParser), cron.WithChain(cron.Recover(cronLogger{})))
	for _, cfg := range cfgs {
		if cfg.Schedule == "" {
			continue
		}
		name := cfg.Name
		if _, err := sched.AddFunc(cfg.Schedule, func() { c.trigger(name, triggerSchedule) }); err != nil {
			return err
		}
		scheduled++
	}
	if scheduled > 0 {
		sched.Start()
		w.cron = sched
		c.log.Infof("scheduled %d source(s)", scheduled)
	}

	// 监听文件所在目录 apt 更新列表文件时会以 rename 的方式替换
	pathToSource := make(map[string]string)
	watchedDirs := make(map[string]bool)
	for _, cfg := range cfgs {
		if !cfg.Watch {
			continue
		}
		abs, err := filepath.Abs(cfg.Path)
		if err != nil {
			w.stop()
			return err
		}
		pathToSource[abs] = cfg.Name
		watchedDirs[filepath.Dir(abs)] = true
	}

	if len(pathToSource) > 0 {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			w.stop()
			return err
		}
		for dir := range watchedDirs {
			if err := watcher.Add(dir); err != nil {
				watcher.Close()
				w.stop()
				return err
			}
		}
		w.watcher = watcher
		w.wg.Add(1)
		go c.loopWatch(w, pathToSource)
		c.log.Infof("watching %d file(s)", len(pathToSource))
	}

	c.watchers = w
	return nil
}

func (c *Controller) loopWatch(w *watchers, pathToSource map[string]string) {
	defer w.wg.Done()

	debounce := c.config().Debounce
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			abs, _ := filepath.Abs(event.Name)
			name, ok := pathToSource[abs]
			if !ok {
				continue
			}

			if t, exists := timers[name]; exists {
				t.Stop()
			}
			timers[name] = time.AfterFunc(debounce, func() {
				c.trigger(name, triggerWatch)
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			c.log.Warnf("watcher error: %v", err)
		}
	}
}

// cronLogger 将 cron 的日志输出至全局 logger
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	logger.Debugf("cron: %s %v", msg, keysAndValues)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	logger.Errorf("cron: %s %v: %v", msg, keysAndValues, err)
}
