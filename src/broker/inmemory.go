package broker

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrBrokerClosed = errors.New("broker is closed")

const subscriberBuffer = 256

type subscriber struct {
	ch   chan Message
	done <-chan struct{}
}

// InMemoryBroker delivers every published message to every current
// subscriber of the topic. It is used when no Redpanda cluster is
// configured and in tests.
type InMemoryBroker struct {
	mu      sync.RWMutex
	subs    map[string][]*subscriber
	offsets map[string]int64
	closing chan struct{}
	once    sync.Once
	closed  bool
}

// NewInMemoryBroker creates a new InMemoryBroker instance.
func NewInMemoryBroker() *InMemoryBroker {
	return &InMemoryBroker{
		subs:    make(map[string][]*subscriber),
		offsets: make(map[string]int64),
		closing: make(chan struct{}),
	}
}

// Publish delivers the message to all subscribers of topic. It blocks while
// a subscriber's buffer is full, until ctx or the subscription ends.
func (b *InMemoryBroker) Publish(ctx context.Context, topic string, key string, value []byte) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBrokerClosed
	}
	offset := b.offsets[topic]
	b.offsets[topic]++
	subs := append([]*subscriber(nil), b.subs[topic]...)
	b.mu.Unlock()

	msg := Message{
		Topic:     topic,
		Key:       key,
		Value:     append([]byte(nil), value...),
		Offset:    offset,
		Timestamp: time.Now().UnixMilli(),
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range subs {
		select {
		case <-sub.done:
			continue
		default:
		}
		select {
		case sub.ch <- msg:
		case <-sub.done:
		case <-b.closing:
			return ErrBrokerClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Subscribe registers a subscriber for topic. The channel is closed when ctx
// is done or the broker is closed.
func (b *InMemoryBroker) Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBrokerClosed
	}

	done := make(chan struct{})
	sub := &subscriber{ch: make(chan Message, subscriberBuffer), done: done}
	b.subs[topic] = append(b.subs[topic], sub)

	go func() {
		select {
		case <-ctx.Done():
		case <-b.closing:
		}
		close(done)
		b.remove(topic, sub)
	}()

	return sub.ch, nil
}

// remove unregisters sub and closes its channel. Publishers hold the read
// lock while sending, so the channel is never closed under a send.
func (b *InMemoryBroker) remove(topic string, sub *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[topic]
	for i, s := range subs {
		if s == sub {
			b.subs[topic] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	close(sub.ch)
}

// Close stops the broker and closes all subscription channels. Blocked
// publishers return ErrBrokerClosed.
func (b *InMemoryBroker) Close() error {
	b.once.Do(func() { close(b.closing) })

	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
