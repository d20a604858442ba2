package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"operator-dashboard/src/logger"
)

const (
	clientID = "operator-dashboard"

	// leaveTimeout bounds how long a finished subscription waits to leave
	// its consumer group.
	leaveTimeout = 5 * time.Second
)

// ErrDuplicateSubscription is returned when a topic is already consumed by
// the same group through this broker.
var ErrDuplicateSubscription = errors.New("subscription already exists")

type subscriptionKey struct {
	topic string
	group string
}

type subscription struct {
	cancel context.CancelFunc
}

// RedpandaBroker publishes to and consumes from a Kafka-compatible cluster.
// Each subscription owns a consumer group client that lives until the
// subscription context ends or the broker is closed.
type RedpandaBroker struct {
	producer *kgo.Client
	seeds    []string
	logger   logger.Logger

	mu     sync.Mutex
	subs   map[subscriptionKey]*subscription
	wg     sync.WaitGroup
	closed bool
}

// NewRedpandaBroker creates a broker for the given seed addresses
// (e.g. ["localhost:19092"]). No connection is made until first use.
// A nil logger discards fetch errors.
func NewRedpandaBroker(brokers []string, log logger.Logger) (*RedpandaBroker, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one broker address is required")
	}
	if log == nil {
		log = logger.NewSilentLogger()
	}

	producer, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ClientID(clientID),
		kgo.AllowAutoTopicCreation(),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka client: %w", err)
	}

	return &RedpandaBroker{
		producer: producer,
		seeds:    brokers,
		logger:   log,
		subs:     make(map[subscriptionKey]*subscription),
	}, nil
}

func (b *RedpandaBroker) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Publish produces one record and waits for it to be acknowledged.
func (b *RedpandaBroker) Publish(ctx context.Context, topic string, key string, value []byte) error {
	if b.isClosed() {
		return ErrBrokerClosed
	}

	record := &kgo.Record{Topic: topic, Key: []byte(key), Value: value}
	if err := b.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("failed to produce to %s: %w", topic, err)
	}
	return nil
}

// Subscribe consumes topic as member of groupID. A new group starts at the
// end of the topic, so only records produced after subscribing are seen.
// The channel is closed when ctx is done or the broker is closed; the group
// is left at that point and the same topic and group may be subscribed again.
func (b *RedpandaBroker) Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error) {
	if topic == "" || groupID == "" {
		return nil, fmt.Errorf("topic and consumer group are required")
	}
	key := subscriptionKey{topic: topic, group: groupID}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBrokerClosed
	}
	if _, ok := b.subs[key]; ok {
		return nil, fmt.Errorf("%w: topic %s, group %s", ErrDuplicateSubscription, topic, groupID)
	}

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(b.seeds...),
		kgo.ClientID(clientID),
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtEnd()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer for %s: %w", topic, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{cancel: cancel}
	b.subs[key] = sub

	out := make(chan Message, subscriberBuffer)
	b.wg.Add(1)
	go b.consume(subCtx, key, sub, consumer, out)
	return out, nil
}

func (b *RedpandaBroker) consume(ctx context.Context, key subscriptionKey, sub *subscription, consumer *kgo.Client, out chan<- Message) {
	defer b.wg.Done()
	defer close(out)
	defer b.release(key, sub, consumer)

	for ctx.Err() == nil {
		fetches := consumer.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			if ctx.Err() == nil {
				b.logger.Warn("[RedpandaBroker] fetch error on %s/%d: %v", topic, partition, err)
			}
		})

		iter := fetches.RecordIter()
		for !iter.Done() {
			select {
			case out <- recordMessage(iter.Next()):
			case <-ctx.Done():
				return
			}
		}
	}
}

// release leaves the consumer group and forgets the subscription.
func (b *RedpandaBroker) release(key subscriptionKey, sub *subscription, consumer *kgo.Client) {
	sub.cancel()

	b.mu.Lock()
	if b.subs[key] == sub {
		delete(b.subs, key)
	}
	b.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), leaveTimeout)
	defer cancel()
	if err := consumer.LeaveGroupContext(ctx); err != nil {
		b.logger.Debug("[RedpandaBroker] leaving group %s: %v", key.group, err)
	}
	consumer.Close()
}

func recordMessage(r *kgo.Record) Message {
	return Message{
		Topic:     r.Topic,
		Key:       string(r.Key),
		Value:     r.Value,
		Offset:    r.Offset,
		Partition: r.Partition,
		Timestamp: r.Timestamp.UnixMilli(),
	}
}

// Close ends every subscription, waits for their consumers to shut down and
// closes the producer.
func (b *RedpandaBroker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := make([]*subscription, 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		s.cancel()
	}
	b.wg.Wait()
	b.producer.Close()
	return nil
}
