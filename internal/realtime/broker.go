// Package realtime fans change notifications out to live subscribers over
// Redis pub/sub.
package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/oggyb/ffm-club/internal/metrics"
)

// Handler receives the raw notification payload. The initial delivery
// (see WithInitialDelivery) passes a nil payload.
type Handler func(ctx context.Context, payload []byte)

type Broker struct {
	client *redis.Client
	prefix string
	log    *slog.Logger
}

func NewBroker(client *redis.Client, log *slog.Logger) *Broker {
	return &Broker{client: client, prefix: "ffmclub:", log: log}
}

func (b *Broker) channel(topic string) string { return b.prefix + topic }

// Publish notifies every subscriber of topic.
func (b *Broker) Publish(ctx context.Context, topic string, payload []byte) error {
	return b.client.Publish(ctx, b.channel(topic), payload).Err()
}

// Notify publishes and only logs on failure. Used after a write has already
// succeeded, where the notification is best-effort.
func (b *Broker) Notify(ctx context.Context, topic string, payload []byte) {
	if err := b.Publish(ctx, topic, payload); err != nil {
		b.log.Warn("publish failed", "topic", topic, "err", err)
	}
}

type options struct {
	initial bool
}

type Option func(*options)

// WithInitialDelivery invokes the handler once right after the subscription
// is established, so callers receive the current state without waiting for
// the next change.
func WithInitialDelivery() Option {
	return func(o *options) { o.initial = true }
}

// Subscribe registers h for topic. The subscription is confirmed by Redis
// before Subscribe returns, and lives until Cancel is called; ctx only
// scopes the confirmation round trip and carries values to the handler.
func (b *Broker) Subscribe(ctx context.Context, topic string, h Handler, opts ...Option) (*Subscription, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	ps := b.client.Subscribe(ctx, b.channel(topic))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &Subscription{
		topic:   topic,
		kind:    kindOf(topic),
		ps:      ps,
		handler: h,
		cancel:  cancel,
	}
	metrics.SubscriptionOpened(s.kind)
	go s.run(subCtx, ps.Channel(), o.initial)
	return s, nil
}

// Subscription is a live registration returned by Broker.Subscribe.
//
// Handler calls are serialized. Cancel blocks until an in-flight handler
// returns, and no handler runs after Cancel returns. A handler must not call
// Cancel on its own subscription.
type Subscription struct {
	topic   string
	kind    string
	ps      *redis.PubSub
	handler Handler
	cancel  context.CancelFunc

	mu     sync.Mutex
	closed bool
	once   sync.Once
}

func (s *Subscription) Topic() string { return s.topic }

func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		s.cancel()
		_ = s.ps.Close()
		metrics.SubscriptionClosed(s.kind)
	})
}

func (s *Subscription) run(ctx context.Context, ch <-chan *redis.Message, initial bool) {
	if initial {
		s.deliver(ctx, nil)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			s.deliver(ctx, []byte(msg.Payload))
		}
	}
}

func (s *Subscription) deliver(ctx context.Context, payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.handler(ctx, payload)
}

// kindOf turns "conversation:abc" into "conversation" for metric labels.
func kindOf(topic string) string {
	if i := strings.IndexByte(topic, ':'); i > 0 {
		return topic[:i]
	}
	return topic
}
