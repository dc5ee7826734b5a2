// Package redis provides a reflux.Watcher that reads message payloads from
// Redis, either from a list used as a durable queue or from a pub/sub
// channel.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPollTimeout bounds each blocking pop so cancellation is observed.
const DefaultPollTimeout = time.Second

// Watcher reads payloads from a Redis list or channel.
//
// In queue mode (the default) producers push with RPUSH and each payload is
// delivered to exactly one watcher. In pub/sub mode producers PUBLISH and
// payloads published while no watcher is subscribed are lost.
type Watcher struct {
	client  *redis.Client
	key     string
	pubsub  bool
	timeout time.Duration
}

// Option configures a Watcher.
type Option func(*Watcher)

// PubSub subscribes to key as a channel instead of popping it as a list.
func PubSub() Option {
	return func(w *Watcher) {
		w.pubsub = true
	}
}

// PollTimeout sets how long each blocking pop waits.
func PollTimeout(d time.Duration) Option {
	return func(w *Watcher) {
		w.timeout = d
	}
}

// New creates a Watcher for the given list or channel key.
func New(client *redis.Client, key string, opts ...Option) *Watcher {
	w := &Watcher{
		client:  client,
		key:     key,
		timeout: DefaultPollTimeout,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Watch begins reading and returns a channel that emits each payload.
func (w *Watcher) Watch(ctx context.Context) (<-chan []byte, error) {
	if w.pubsub {
		return w.subscribe(ctx)
	}
	if err := w.client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}

	out := make(chan []byte)

	go func() {
		defer close(out)
		for {
			res, err := w.client.BLPop(ctx, w.timeout, w.key).Result()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if errors.Is(err, redis.Nil) {
					continue
				}
				// Connection trouble; back off for one poll period.
				select {
				case <-time.After(w.timeout):
					continue
				case <-ctx.Done():
					return
				}
			}
			// BLPOP replies with [key, value].
			select {
			case out <- []byte(res[1]):
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func (w *Watcher) subscribe(ctx context.Context) (<-chan []byte, error) {
	pubsub := w.client.Subscribe(ctx, w.key)

	// Verify subscription worked
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", w.key, err)
	}

	out := make(chan []byte)

	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
