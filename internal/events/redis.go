package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "chzzkdl:events:"

// RedisBus publishes events over Redis pub/sub so that the engine and its
// observers can live in different processes.
type RedisBus struct {
	client *redis.Client
}

// NewRedisBus connects to Redis and verifies the connection
func NewRedisBus(host string, port int, password string, db int) (*RedisBus, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisBus{client: client}, nil
}

// Publish encodes payload as JSON and publishes it on the channel for name
func (b *RedisBus) Publish(ctx context.Context, name string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", name, err)
	}
	return b.client.Publish(ctx, channelPrefix+name, data).Err()
}

// Subscribe registers handler for name. It returns once Redis has confirmed
// the subscription, so events published afterwards are not missed.
func (b *RedisBus) Subscribe(name string, handler Handler) (Subscription, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pubsub := b.client.Subscribe(ctx, channelPrefix+name)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", name, err)
	}

	sub := &redisSubscription{pubsub: pubsub, done: make(chan struct{})}
	go sub.run(handler)
	return sub, nil
}

// Close closes the Redis connection
func (b *RedisBus) Close() error {
	return b.client.Close()
}

type redisSubscription struct {
	pubsub *redis.PubSub
	done   chan struct{}
	once   sync.Once
}

func (s *redisSubscription) run(handler Handler) {
	defer close(s.done)
	for msg := range s.pubsub.Channel() {
		handler([]byte(msg.Payload))
	}
}

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		err = s.pubsub.Close()
		<-s.done
	})
	return err
}
