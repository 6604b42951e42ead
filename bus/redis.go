// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package bus

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultResubscribeDelay is the fixed pause before a dropped redis
// subscription is re-established.
const DefaultResubscribeDelay = 2 * time.Second

// RedisBus is a Bus backed by redis pub/sub, for coordinating separate
// processes. A dropped subscription is re-established after a fixed delay
// rather than with backoff: the channel is long-lived and low-volume, so
// predictable recovery latency matters more than connection thrift.
type RedisBus struct {
	client           *redis.Client
	logger           *slog.Logger
	resubscribeDelay time.Duration
	cancel           context.CancelFunc
	ctx              context.Context
}

// RedisOption configures a RedisBus.
type RedisOption func(*RedisBus)

// WithResubscribeDelay sets the pause before re-subscribing after an error.
func WithResubscribeDelay(d time.Duration) RedisOption {
	return func(b *RedisBus) {
		if d > 0 {
			b.resubscribeDelay = d
		}
	}
}

// WithRedisLogger sets a custom logger.
func WithRedisLogger(logger *slog.Logger) RedisOption {
	return func(b *RedisBus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewRedisBus creates a bus on the given redis address ("host:port").
func NewRedisBus(addr string, opts ...RedisOption) (*RedisBus, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithCancel(context.Background())
	b := &RedisBus{
		client:           client,
		logger:           slog.Default().With("component", "redis-bus"),
		resubscribeDelay: DefaultResubscribeDelay,
		cancel:           cancel,
		ctx:              ctx,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Publish sends payload on the topic's redis channel.
func (b *RedisBus) Publish(ctx context.Context, topic string, payload []byte) error {
	return b.client.Publish(ctx, topic, payload).Err()
}

type redisSub struct {
	cancel context.CancelFunc
}

func (s *redisSub) Cancel() error {
	s.cancel()
	return nil
}

// Subscribe registers handler for topic. The receive loop runs until the
// subscription or the bus is closed; on a receive error it drops the
// connection, waits the fixed delay, and subscribes again.
func (b *RedisBus) Subscribe(ctx context.Context, topic string, handler Handler) (Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}

	subCtx, cancel := context.WithCancel(b.ctx)

	go func() {
		for subCtx.Err() == nil {
			pubsub := b.client.Subscribe(subCtx, topic)
			b.receiveLoop(subCtx, pubsub, topic, handler)
			_ = pubsub.Close()

			if subCtx.Err() != nil {
				return
			}
			b.logger.Warn("subscription dropped, re-subscribing",
				"topic", topic, "delay", b.resubscribeDelay)
			select {
			case <-subCtx.Done():
				return
			case <-time.After(b.resubscribeDelay):
			}
		}
	}()

	return &redisSub{cancel: cancel}, nil
}

// receiveLoop pumps messages until an error or cancellation.
func (b *RedisBus) receiveLoop(ctx context.Context, pubsub *redis.PubSub, topic string, handler Handler) {
	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() == nil {
				b.logger.Warn("receive failed", "topic", topic, "err", err)
			}
			return
		}
		handler(topic, []byte(msg.Payload))
	}
}

// Close cancels all subscriptions and closes the redis client.
func (b *RedisBus) Close() error {
	b.cancel()
	return b.client.Close()
}
