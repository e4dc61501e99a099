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
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/packetd/dcfd/common"
	"github.com/packetd/dcfd/confengine"
	"github.com/packetd/dcfd/exporter"
	"github.com/packetd/dcfd/internal/pubsub"
	"github.com/packetd/dcfd/internal/wait"
	"github.com/packetd/dcfd/logger"
	"github.com/packetd/dcfd/pipeline"
	"github.com/packetd/dcfd/server"
)

// queueSize 解析队列长度 同一数据源在队列中最多出现一次
const queueSize = 1024

type Controller struct {
	ctx       context.Context
	cancel    context.CancelFunc
	cfgMut    sync.RWMutex
	cfg       Config
	buildInfo common.BuildInfo
	log       logger.Logger

	pl  *pipeline.Pipeline
	exp *exporter.Exporter
	svr *server.Server
	bus *pubsub.PubSub

	sources *sourcePool
	queue   *queue
	wg      sync.WaitGroup

	watchMut sync.Mutex
	watchers *watchers
}

func setupLogger(conf *confengine.Config) error {
	opts := logger.Options{Stdout: true}
	if err := conf.UnpackChild("logger", &opts); err != nil {
		return err
	}

	opts.Validate()
	logger.SetOptions(opts)
	return nil
}

func loadConfig(conf *confengine.Config) (Config, error) {
	var cfg Config
	if err := conf.UnpackChild("controller", &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func New(conf *confengine.Config, buildInfo common.BuildInfo) (*Controller, error) {
	if err := setupLogger(conf); err != nil {
		return nil, err
	}

	cfg, err := loadConfig(conf)
	if err != nil {
		return nil, err
	}

	pl, err := pipeline.New(conf)
	if err != nil {
		return nil, err
	}

	svr, err := server.New(conf)
	if err != nil {
		return nil, err
	}

	exp, err := exporter.New(conf)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		ctx:       ctx,
		cancel:    cancel,
		cfg:       cfg,
		buildInfo: buildInfo,
		log:       logger.With("component", "controller"),
		pl:        pl,
		exp:       exp,
		svr:       svr,
		bus:       pubsub.New(),
		sources:   newSourcePool(cfg.Sources),
		queue:     newQueue(queueSize),
	}, nil
}

func (c *Controller) Start() error {
	c.setupServer()

	for i := 0; i < c.cfg.Workers; i++ {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			wait.Until(c.ctx, c.consumeQueue)
		}()
	}

	if err := c.restartWatchers(); err != nil {
		return err
	}
	for _, name := range c.sources.Names() {
		c.trigger(name, triggerStartup)
	}

	if c.svr != nil {
		go func() {
			err := c.svr.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Errorf("failed to start server: %v", err)
			}
		}()
	}

	c.log.Infof("controller started with %d source(s), %d worker(s), sinkers=%v", len(c.sources.Names()), c.cfg.Workers, c.exp.Sinkers())
	return nil
}

// Refresh 立即解析数据源并等待完成
func (c *Controller) Refresh(name string) error {
	triggeredTotal.WithLabelValues(name, triggerManual).Inc()
	return c.refresh(name)
}

// Snapshot 返回数据源最近一次成功解析的结果
func (c *Controller) Snapshot(name string) (*common.Snapshot, bool) {
	src, ok := c.sources.Get(name)
	if !ok {
		return nil, false
	}
	snap := src.snapshot()
	return snap, snap != nil
}

// Statuses 返回所有数据源的状态
func (c *Controller) Statuses() []SourceStatus {
	return c.sources.Statuses()
}

func (c *Controller) config() Config {
	c.cfgMut.RLock()
	defer c.cfgMut.RUnlock()
	return c.cfg
}

func (c *Controller) recordMetrics() {
	uptime.Set(common.Uptime().Seconds())
	watchSubscribers.Set(float64(c.bus.Num()))
	buildInfo.WithLabelValues(c.buildInfo.Version, c.buildInfo.GitHash, c.buildInfo.Time).Set(1)
}

// Reload 重载配置
//
// - 重载 logger 配置
// - 重载数据源 新增或者配置变化的数据源会立即重新解析 已删除的数据源会清理指标
// - 重建定时任务与文件监听
//
// 所有错误会被汇总返回 数据源配置不合法时不做任何变更
func (c *Controller) Reload(conf *confengine.Config) error {
	var errs error
	if err := setupLogger(conf); err != nil {
		errs = multierror.Append(errs, errors.Wrap(err, "reload logger"))
	}

	cfg, err := loadConfig(conf)
	if err != nil {
		return multierror.Append(errs, errors.Wrap(err, "reload controller"))
	}

	// worker 数量不支持重载
	c.cfgMut.Lock()
	cfg.Workers = c.cfg.Workers
	c.cfg = cfg
	c.cfgMut.Unlock()

	changed, deleted := c.sources.Reload(cfg.Sources)
	for _, name := range deleted {
		deleteSourceMetrics(name)
	}
	if err := c.restartWatchers(); err != nil {
		errs = multierror.Append(errs, errors.Wrap(err, "restart watchers"))
	}
	for _, name := range changed {
		c.trigger(name, triggerReload)
	}

	c.log.Infof("reloaded: changed=%v deleted=%v", changed, deleted)
	return errs
}

func (c *Controller) Stop() {
	c.watchMut.Lock()
	c.watchers.stop()
	c.watchers = nil
	c.watchMut.Unlock()

	c.cancel()
	c.wg.Wait()
	c.bus.Close()

	if c.svr != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.svr.Shutdown(ctx); err != nil {
			logger.Warnf("failed to shutdown server: %v", err)
		}
	}

	if err := c.exp.Close(); err != nil {
		logger.Warnf("failed to close exporter: %v", err)
	}
	c.pl.Clean()
}
