package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Broker is the change feed notification inserts are announced on.
type Broker interface {
	Publish(ctx context.Context, userID uuid.UUID, payload []byte) error
	Subscribe(ctx context.Context, userID uuid.UUID) (Subscription, error)
}

// Subscription is a live feed filtered to one user. Closing it ends C.
type Subscription interface {
	C() <-chan []byte
	Close() error
}

func channelFor(userID uuid.UUID) string {
	return fmt.Sprintf("user_notifications:%s", userID.String())
}

type redisBroker struct {
	rdb *redis.Client
}

func NewRedisBroker(rdb *redis.Client) Broker {
	return &redisBroker{rdb: rdb}
}

func (b *redisBroker) Publish(ctx context.Context, userID uuid.UUID, payload []byte) error {
	return b.rdb.Publish(ctx, channelFor(userID), payload).Err()
}

func (b *redisBroker) Subscribe(ctx context.Context, userID uuid.UUID) (Subscription, error) {
	pubsub := b.rdb.Subscribe(ctx, channelFor(userID))

	// Wait for confirmation that subscription is created
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to redis channel: %w", err)
	}

	sub := &redisSubscription{pubsub: pubsub, out: make(chan []byte, 16), done: make(chan struct{})}
	go sub.forward()
	return sub, nil
}

type redisSubscription struct {
	pubsub *redis.PubSub
	out    chan []byte
	done   chan struct{}
	once   sync.Once
}

func (s *redisSubscription) forward() {
	defer close(s.out)
	for msg := range s.pubsub.Channel() {
		select {
		case s.out <- []byte(msg.Payload):
		case <-s.done:
			return
		}
	}
}

func (s *redisSubscription) C() <-chan []byte { return s.out }

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.pubsub.Close()
	})
	return err
}

// memoryBroker serves single-instance deployments and tests.
type memoryBroker struct {
	mu   sync.Mutex
	subs map[uuid.UUID]map[*memorySubscription]struct{}
}

func NewMemoryBroker() Broker {
	return &memoryBroker{subs: make(map[uuid.UUID]map[*memorySubscription]struct{})}
}

func (b *memoryBroker) Publish(_ context.Context, userID uuid.UUID, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subs[userID] {
		select {
		case sub.out <- payload:
		default:
			// slow reader; it refetches on the next event anyway
		}
	}
	return nil
}

func (b *memoryBroker) Subscribe(_ context.Context, userID uuid.UUID) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &memorySubscription{broker: b, userID: userID, out: make(chan []byte, 16)}
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[*memorySubscription]struct{})
	}
	b.subs[userID][sub] = struct{}{}
	return sub, nil
}

func (b *memoryBroker) remove(sub *memorySubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subs[sub.userID], sub)
	if len(b.subs[sub.userID]) == 0 {
		delete(b.subs, sub.userID)
	}
	close(sub.out)
}

type memorySubscription struct {
	broker *memoryBroker
	userID uuid.UUID
	out    chan []byte
	once   sync.Once
}

func (s *memorySubscription) C() <-chan []byte { return s.out }

func (s *memorySubscription) Close() error {
	s.once.Do(func() { s.broker.remove(s) })
	return nil
}
