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

package pubsub

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Queue PubSub 返回的订阅队列实例
type Queue interface {
	// ID 队列唯一标识
	ID() string

	// Topic 订阅的主题 为空代表订阅所有主题
	Topic() string

	// Pop 从队列中弹出一个元素 操作会 block 直到有元素或者 ctx 结束
	Pop(ctx context.Context) (any, bool)

	// PopTimeout 从队列中弹出一个元素 操作会 block 直到有元素或者超时
	PopTimeout(timeout time.Duration) (any, bool)

	// Push 推送一个元素至队列中 队列已满时丢弃
	Push(data any)

	// Dropped 返回因队列已满而被丢弃的元素数量
	Dropped() int64

	// Close 关闭并清理队列
	Close()
}

// channel 为 Queue 的一种实现
type channel struct {
	id      string
	topic   string
	ch      chan any
	dropped atomic.Int64

	mut    sync.RWMutex
	closed bool
}

func newChannel(topic string, size int) *channel {
	if size <= 0 {
		size = 1
	}

	return &channel{
		id:    uuid.New().String(),
		topic: topic,
		ch:    make(chan any, size),
	}
}

func (ch *channel) ID() string {
	return ch.id
}

func (ch *channel) Topic() string {
	return ch.topic
}

func (ch *channel) Pop(ctx context.Context) (any, bool) {
	select {
	case data, ok := <-ch.ch:
		return data, ok

	case <-ctx.Done():
		return nil, false
	}
}

func (ch *channel) PopTimeout(timeout time.Duration) (any, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return ch.Pop(ctx)
}

func (ch *channel) Push(data any) {
	ch.mut.RLock()
	defer ch.mut.RUnlock()

	if ch.closed {
		return
	}

	select {
	case ch.ch <- data:
	default:
		ch.dropped.Add(1)
	}
}

func (ch *channel) Dropped() int64 {
	return ch.dropped.Load()
}

func (ch *channel) Close() {
	ch.mut.Lock()
	defer ch.mut.Unlock()

	if !ch.closed {
		ch.closed = true
		close(ch.ch)
	}
}

// PubSub 按主题分发消息的内存总线
type PubSub struct {
	mut    sync.RWMutex
	queues map[string]*channel
}

func New() *PubSub {
	return &PubSub{
		queues: make(map[string]*channel),
	}
}

func (p *PubSub) Num() int {
	p.mut.RLock()
	defer p.mut.RUnlock()

	return len(p.queues)
}

// Subscribe 订阅 topic 主题 topic 为空代表订阅所有主题
func (p *PubSub) Subscribe(topic string, size int) Queue {
	p.mut.Lock()
	defer p.mut.Unlock()

	ch := newChannel(topic, size)
	p.queues[ch.ID()] = ch
	return ch
}

// Publish 向 topic 主题的订阅者推送消息
func (p *PubSub) Publish(topic string, msg any) {
	p.mut.RLock()
	defer p.mut.RUnlock()

	for _, q := range p.queues {
		if q.topic == "" || q.topic == topic {
			q.Push(msg)
		}
	}
}

// Unsubscribe 取消订阅并关闭队列
func (p *PubSub) Unsubscribe(q Queue) {
	p.mut.Lock()
	delete(p.queues, q.ID())
	p.mut.Unlock()

	q.Close()
}

// Close 关闭所有订阅队列 阻塞中的 Pop 会立即返回
func (p *PubSub) Close() {
	p.mut.Lock()
	defer p.mut.Unlock()

	for id, q := range p.queues {
		q.Close()
		delete(p.queues, id)
	}
}
