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

package server

import (
	"context"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/packetd/dcfd/confengine"
	"github.com/packetd/dcfd/logger"
)

// HeaderRequestID 请求 ID 请求未携带时由服务端生成
const HeaderRequestID = "X-Request-Id"

type Config struct {
	Enabled bool          `config:"enabled"`
	Address string        `config:"address"`
	Pprof   bool          `config:"pprof"`
	Timeout time.Duration `config:"timeout"`
}

func (c *Config) Validate() {
	if c.Address == "" {
		c.Address = "localhost:9092"
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
}

type Server struct {
	config Config
	router *mux.Router
	server *http.Server
}

// New 创建并返回 Server 实例
//
// 当 .Enabled 为 false 时会返回空指针 调用方需先判断
func New(conf *confengine.Config) (*Server, error) {
	var config Config
	if err := conf.UnpackChild("server", &config); err != nil {
		return nil, err
	}
	if !config.Enabled {
		return nil, nil
	}
	return NewWithConfig(config), nil
}

func NewWithConfig(config Config) *Server {
	config.Validate()

	router := mux.NewRouter()
	router.Use(requestIDMiddleware)

	s := &Server{
		config: config,
		router: router,
		server: &http.Server{
			Handler:     router,
			ReadTimeout: config.Timeout,
		},
	}
	if config.Pprof {
		s.registerPprofRoutes()
	}
	return s
}

// Handler 返回路由 便于测试时直接使用
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Address() string {
	return s.config.Address
}

func (s *Server) ListenAndServe() error {
	l, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return err
	}
	logger.Infof("server listening on %s", s.config.Address)
	return s.server.Serve(l)
}

// Shutdown 优雅关闭 Server 等待已有请求完成
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// RegisterGetRoute 注册 GET 路由
//
// 先匹配路径再匹配方法 否则方法不符的请求会被后续路由重置为 404
func (s *Server) RegisterGetRoute(path string, f http.HandlerFunc) {
	s.router.Path(path).Methods(http.MethodGet).HandlerFunc(f)
}

func (s *Server) RegisterPostRoute(path string, f http.HandlerFunc) {
	s.router.Path(path).Methods(http.MethodPost).HandlerFunc(f)
}

// RegisterTimeoutGetRoute 注册带有超时限制的 GET 路由
//
// 流式接口（如 /watch）不应使用此方法
func (s *Server) RegisterTimeoutGetRoute(path string, f http.HandlerFunc) {
	s.router.Path(path).Methods(http.MethodGet).Handler(http.TimeoutHandler(f, s.config.Timeout, "request timeout"))
}

func (s *Server) registerPprofRoutes() {
	s.RegisterGetRoute("/debug/pprof/cmdline", pprof.Cmdline)
	s.RegisterGetRoute("/debug/pprof/profile", pprof.Profile)
	s.RegisterGetRoute("/debug/pprof/symbol", pprof.Symbol)
	s.RegisterGetRoute("/debug/pprof/trace", pprof.Trace)
	s.RegisterGetRoute("/debug/pprof/{other}", pprof.Index)
}

type requestIDKey struct{}

// RequestID 返回请求上下文中的请求 ID
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(HeaderRequestID, id)

		start := time.Now()
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
		logger.Debugf("request %s %s %s served in %v", id, r.Method, r.URL.Path, time.Since(start))
	})
}
