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

package confengine

import (
	"fmt"

	"github.com/elastic/go-ucfg"
	"github.com/elastic/go-ucfg/yaml"
	"github.com/pkg/errors"
)

var defaultOptions = []ucfg.Option{
	ucfg.PathSep("."),
}

// Config 是对 ucfg.Config 的封装 并提供一些简便的操作函数
type Config struct {
	path string
	conf *ucfg.Config
}

func New(conf *ucfg.Config) *Config {
	return &Config{conf: conf}
}

// Path 返回配置文件路径 从内容加载时为空
func (c *Config) Path() string {
	return c.path
}

func (c *Config) Has(s string) bool {
	ok, err := c.conf.Has(s, -1, defaultOptions...)
	if err != nil {
		return false
	}
	return ok
}

func (c *Config) Child(s string) (*Config, error) {
	content, err := c.conf.Child(s, -1, defaultOptions...)
	if err != nil {
		return nil, err
	}
	return &Config{path: c.path, conf: content}, nil
}

func (c *Config) Unpack(to any) error {
	return c.conf.Unpack(to, defaultOptions...)
}

func (c *Config) Enabled(s string) bool {
	ok, err := c.conf.Bool(fmt.Sprintf("%s.enabled", s), -1, defaultOptions...)
	if err != nil {
		return false
	}
	return ok
}

// UnpackChild 解析子配置 子配置不存在时保持 to 的零值
func (c *Config) UnpackChild(s string, to any) error {
	if !c.Has(s) {
		return nil
	}

	content, err := c.conf.Child(s, -1, defaultOptions...)
	if err != nil {
		return errors.Wrapf(err, "config child (%s)", s)
	}
	if err := content.Unpack(to, defaultOptions...); err != nil {
		return errors.Wrapf(err, "unpack config (%s)", s)
	}
	return nil
}

// Reload 从原路径重新加载配置
func (c *Config) Reload() (*Config, error) {
	if c.path == "" {
		return nil, errors.New("config not loaded from path")
	}
	return LoadConfigPath(c.path)
}

func LoadConfigPath(path string) (*Config, error) {
	config, err := yaml.NewConfigWithFile(path, defaultOptions...)
	if err != nil {
		return nil, err
	}
	return &Config{path: path, conf: config}, nil
}

func LoadContent(b []byte) (*Config, error) {
	config, err := yaml.NewConfig(b, defaultOptions...)
	if err != nil {
		return nil, err
	}
	return New(config), nil
}
