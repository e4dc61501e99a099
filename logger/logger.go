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

package logger

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

var levels = map[Level]zapcore.Level{
	LevelDebug: zapcore.DebugLevel,
	LevelInfo:  zapcore.InfoLevel,
	LevelWarn:  zapcore.WarnLevel,
	LevelError: zapcore.ErrorLevel,
}

// ValidLevel 判断 l 是否为合法的日志级别
func ValidLevel(l string) bool {
	_, ok := levels[Level(l)]
	return ok
}

// toZapLevel 未知的级别按 debug 处理
func toZapLevel(l string) zapcore.Level {
	if level, ok := levels[Level(l)]; ok {
		return level
	}
	return zapcore.DebugLevel
}

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

type Options struct {
	Stdout     bool   `config:"stdout"`
	Level      string `config:"level"`
	Format     string `config:"format"` // console / json
	Filename   string `config:"filename"`
	MaxSize    int    `config:"maxSize"` // unit: MB
	MaxAge     int    `config:"maxAge"`  // unit: days
	MaxBackups int    `config:"maxBackups"`
}

// Validate 填充默认值
func (o *Options) Validate() {
	if o.Filename == "" {
		o.Filename = "dcfd.log"
	}
	if o.MaxBackups <= 0 {
		o.MaxBackups = 10
	}
	if o.MaxAge <= 0 {
		o.MaxAge = 7
	}
	if o.MaxSize <= 0 {
		o.MaxSize = 100
	}
	if o.Format != FormatJSON {
		o.Format = FormatConsole
	}
}

func (o Options) encoder() zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	ec.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Local().Format("2006-01-02 15:04:05.000"))
	}

	if o.Format == FormatJSON {
		return zapcore.NewJSONEncoder(ec)
	}
	return zapcore.NewConsoleEncoder(ec)
}

func (o Options) writer() zapcore.WriteSyncer {
	if o.Stdout {
		return zapcore.AddSync(os.Stdout)
	}

	// 日志目录不可用时无法继续运行
	if err := os.MkdirAll(filepath.Dir(o.Filename), os.ModePerm); err != nil {
		panic(err)
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   o.Filename,
		MaxSize:    o.MaxSize,
		MaxBackups: o.MaxBackups,
		MaxAge:     o.MaxAge,
		LocalTime:  true,
	})
}

// Logger 基于 zap.SugaredLogger 的日志实例 级别可在运行时调整
type Logger struct {
	sugared *zap.SugaredLogger
	level   zap.AtomicLevel
}

// New 创建并返回标准 Logger 实例
func New(opt Options) Logger {
	level := zap.NewAtomicLevelAt(toZapLevel(opt.Level))
	core := zapcore.NewCore(opt.encoder(), opt.writer(), level)
	return Logger{
		sugared: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar(),
		level:   level,
	}
}

func (l Logger) Debugf(template string, args ...any) {
	l.sugared.Debugf(template, args...)
}

func (l Logger) Infof(template string, args ...any) {
	l.sugared.Infof(template, args...)
}

func (l Logger) Warnf(template string, args ...any) {
	l.sugared.Warnf(template, args...)
}

func (l Logger) Errorf(template string, args ...any) {
	l.sugared.Errorf(template, args...)
}

// With 返回携带固定字段的 Logger 如 With("source", name) 与原 Logger 共享日志级别
func (l Logger) With(args ...any) Logger {
	return Logger{sugared: l.sugared.With(args...), level: l.level}
}

func (l Logger) Sync() error {
	return l.sugared.Sync()
}

var (
	mut    sync.Mutex
	stdOpt = Options{Stdout: true}
	std    atomic.Pointer[Logger]
)

func init() {
	l := New(stdOpt)
	std.Store(&l)
}

func global() Logger {
	return *std.Load()
}

// SetOptions 设置全局 Logger 配置
func SetOptions(opt Options) {
	mut.Lock()
	defer mut.Unlock()

	l := New(opt)
	stdOpt = opt
	std.Store(&l)
}

// SetLoggerLevel 设置全局 Logger 日志级别
//
// 只调整级别不会重建 Logger 通过 With 派生的实例同样生效
func SetLoggerLevel(s string) error {
	level := strings.ToLower(strings.TrimSpace(s))
	if !ValidLevel(level) {
		return errors.Errorf("unknown logger level (%s)", s)
	}

	mut.Lock()
	defer mut.Unlock()

	stdOpt.Level = level
	global().level.SetLevel(toZapLevel(level))
	return nil
}

// GetOptions 返回全局 Logger 配置
func GetOptions() Options {
	mut.Lock()
	defer mut.Unlock()
	return stdOpt
}

// With 基于全局 Logger 创建携带固定字段的 Logger
func With(args ...any) Logger {
	return global().With(args...)
}

// Sync 刷新全局 Logger 缓冲
func Sync() error {
	return global().Sync()
}

func Debugf(template string, args ...any) {
	global().Debugf(template, args...)
}

func Infof(template string, args ...any) {
	global().Infof(template, args...)
}

func Warnf(template string, args ...any) {
	global().Warnf(template, args...)
}

func Errorf(template string, args ...any) {
	global().Errorf(template, args...)
}
