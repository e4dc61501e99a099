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
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/packetd/dcfd/common"
	"github.com/packetd/dcfd/dcf"
	"github.com/packetd/dcfd/internal/digest"
	"github.com/packetd/dcfd/internal/json"
	"github.com/packetd/dcfd/internal/mapstructure"
	"github.com/packetd/dcfd/internal/sigs"
	"github.com/packetd/dcfd/logger"
)

const (
	contentTypeJSON = "application/json"
	contentTypeDCF  = "text/plain; charset=utf-8"

	// maxParseBodySize POST /parse 请求体的最大字节数
	maxParseBodySize = 64 << 20
)

func (c *Controller) setupServer() {
	if c.svr == nil {
		return
	}

	// Admin Routes
	c.svr.RegisterPostRoute("/-/logger", c.routeLogger)
	c.svr.RegisterPostRoute("/-/reload", c.routeReload)

	// Source Routes
	c.svr.RegisterTimeoutGetRoute("/sources", c.routeSources)
	c.svr.RegisterTimeoutGetRoute("/sources/{name}", c.routeSource)
	c.svr.RegisterPostRoute("/sources/{name}/refresh", c.routeRefresh)
	c.svr.RegisterPostRoute("/parse", c.routeParse)

	// Watch Routes
	c.svr.RegisterGetRoute("/watch", c.routeWatch)

	// Metrics Routes
	c.svr.RegisterGetRoute("/metrics", c.routeMetrics)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warnf("failed to write response: %v", err)
	}
}

type errorResponse struct {
	Error  string `json:"error"`
	Line   int    `json:"line,omitempty"`
	Prefix string `json:"prefix,omitempty"`
	Limit  string `json:"limit,omitempty"`
}

// writeError 根据错误类型选择状态码 解析错误会携带行号
func writeError(w http.ResponseWriter, code int, err error) {
	rsp := errorResponse{Error: err.Error()}

	var le *dcf.LineError
	var lim *dcf.LimitError
	switch {
	case errors.As(err, &le):
		rsp.Line = le.Line
		rsp.Prefix = le.Prefix
	case errors.As(err, &lim):
		rsp.Line = lim.Line
		rsp.Limit = lim.Limit
		code = http.StatusRequestEntityTooLarge
	}
	writeJSON(w, code, rsp)
}

func (c *Controller) routeMetrics(w http.ResponseWriter, r *http.Request) {
	c.recordMetrics()
	promhttp.Handler().ServeHTTP(w, r)
}

func (c *Controller) routeLogger(w http.ResponseWriter, r *http.Request) {
	level := r.FormValue("level")
	if err := logger.SetLoggerLevel(level); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	w.Write([]byte(`{"status": "success"}`))
}

func (c *Controller) routeReload(w http.ResponseWriter, r *http.Request) {
	if err := sigs.SelfReload(); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Write([]byte(`{"status": "success"}`))
}

func (c *Controller) routeSources(w http.ResponseWriter, r *http.Request) {
	statuses := c.Statuses()
	if statuses == nil {
		statuses = []SourceStatus{}
	}
	writeJSON(w, http.StatusOK, statuses)
}

func (c *Controller) routeRefresh(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if _, ok := c.sources.Get(name); !ok {
		writeError(w, http.StatusNotFound, errors.Errorf("source (%s) not found", name))
		return
	}

	if err := c.Refresh(name); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	c.routeSource(w, r)
}

// tableQuery 表格的查询参数
type tableQuery struct {
	Fields []string `mapstructure:"fields"`
	Sort   string   `mapstructure:"sort"`
	Format string   `mapstructure:"format"`
}

func decodeTableQuery(r *http.Request) (tableQuery, error) {
	var q tableQuery
	opts := common.NewOptionsFromQuery(r.URL.Query())
	if err := mapstructure.Decode(map[string]any(opts), &q); err != nil {
		return q, err
	}
	switch q.Format {
	case "", "json", "dcf":
	default:
		return q, errors.Errorf("unsupported format (%s)", q.Format)
	}
	return q, nil
}

// apply 对表格执行字段筛选与排序 原表格不会被修改
func (q tableQuery) apply(t *dcf.Table) (*dcf.Table, error) {
	if len(q.Fields) > 0 {
		t = t.Select(q.Fields...)
	} else if q.Sort != "" {
		t = t.Select(t.Fields...)
	}

	if q.Sort != "" {
		if err := t.SortByVersion(q.Sort); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func writeTable(w http.ResponseWriter, format string, t *dcf.Table) {
	switch format {
	case "dcf":
		w.Header().Set("Content-Type", contentTypeDCF)
		w.WriteHeader(http.StatusOK)
		if err := t.WriteDCF(w); err != nil {
			logger.Warnf("failed to write response: %v", err)
		}
	default:
		writeJSON(w, http.StatusOK, t)
	}
}

func (c *Controller) routeSource(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if _, ok := c.sources.Get(name); !ok {
		writeError(w, http.StatusNotFound, errors.Errorf("source (%s) not found", name))
		return
	}

	snap, ok := c.Snapshot(name)
	if !ok {
		writeError(w, http.StatusServiceUnavailable, errors.Errorf("source (%s) not parsed yet", name))
		return
	}

	q, err := decodeTableQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	// 不同的查询参数对应不同的表示 ETag 需要区分
	etag := strconv.Quote(snap.Digest + "-" + digest.Format(digest.Bytes([]byte(r.URL.RawQuery))))
	w.Header().Set("ETag", etag)
	w.Header().Set("Last-Modified", snap.ParsedAt.UTC().Format(http.TimeFormat))
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	table, err := q.apply(snap.Table)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeTable(w, q.Format, table)
}

// routeParse 解析请求体中的 DCF 文本
//
// 解析选项来自查询参数 如 ?fields=Package,Version&keepWhite=Files&maxRecords=100
func (c *Controller) routeParse(w http.ResponseWriter, r *http.Request) {
	params := common.NewOptionsFromQuery(r.URL.Query())

	var opts dcf.Options
	if err := mapstructure.Decode(map[string]any(params), &opts); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if opts.MaxLineSize <= 0 {
		opts.MaxLineSize = c.config().Limits.MaxLineSize
	}

	q, err := decodeTableQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var body io.Reader = http.MaxBytesReader(w, r.Body, maxParseBodySize)
	if strip, _ := params.GetBool("stripSignature"); strip {
		body = dcf.StripSignature(body, opts.MaxLineSize)
	}

	table, err := dcf.ParseReader(body, opts)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	// fields 已作用于解析阶段
	q.Fields = nil
	table, err = q.apply(table)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeTable(w, q.Format, table)
}

// watchEvent /watch 推送的单条消息
type watchEvent struct {
	ID       string        `json:"id"`
	Source   string        `json:"source"`
	Pipeline string        `json:"pipeline,omitempty"`
	Digest   string        `json:"digest"`
	Records  int           `json:"records"`
	ParsedAt time.Time     `json:"parsedAt"`
	Duration time.Duration `json:"duration"`
	Table    *dcf.Table    `json:"table,omitempty"`
}

func newWatchEvent(snap *common.Snapshot, withTable bool) watchEvent {
	ev := watchEvent{
		ID:       snap.ID,
		Source:   snap.Source,
		Pipeline: snap.Pipeline,
		Digest:   snap.Digest,
		Records:  snap.Records(),
		ParsedAt: snap.ParsedAt,
		Duration: snap.Duration,
	}
	if withTable {
		ev.Table = snap.Table
	}
	return ev
}

// routeWatch 以 JSON Lines 的方式持续推送数据源的新快照
//
// 查询参数 source 指定数据源 max_message 最大消息数 timeout 无消息时的等待时长 table 是否携带表格内容
func (c *Controller) routeWatch(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}

	params := common.NewOptionsFromQuery(r.URL.Query())
	maxMessage, _ := params.GetInt("max_message")
	if maxMessage <= 0 {
		maxMessage = 100
	}
	timeout, _ := params.GetDuration("timeout")
	if timeout <= 0 {
		timeout = time.Second * 5
	}
	source, _ := params.GetString("source")
	withTable, _ := params.GetBool("table")

	queue := c.bus.Subscribe(strings.TrimSpace(source), 10)
	defer c.bus.Unsubscribe(queue)

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	encoder := json.NewEncoder(w)
	for i := 0; i < maxMessage; i++ {
		data, ok := queue.PopTimeout(timeout)
		if !ok {
			return
		}
		snap, ok := data.(*common.Snapshot)
		if !ok {
			continue
		}

		if err := encoder.Encode(newWatchEvent(snap, withTable)); err != nil {
			return
		}
		flusher.Flush()
	}
}
