package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ErrClosed is returned by a closed bus
var ErrClosed = errors.New("event bus closed")

// MemoryBus delivers events synchronously to in-process subscribers, in the
// order Publish is called.
type MemoryBus struct {
	mu       sync.RWMutex
	handlers map[string]map[string]*memorySubscription
	closed   bool
}

// NewMemoryBus creates an empty in-process bus
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{handlers: make(map[string]map[string]*memorySubscription)}
}

// Publish encodes payload as JSON and hands it to every current subscriber
func (b *MemoryBus) Publish(ctx context.Context, name string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", name, err)
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrClosed
	}
	targets := make([]*memorySubscription, 0, len(b.handlers[name]))
	for _, sub := range b.handlers[name] {
		targets = append(targets, sub)
	}
	b.mu.RUnlock()

	for _, sub := range targets {
		sub.deliver(data)
	}
	return nil
}

// Subscribe registers handler for name
func (b *MemoryBus) Subscribe(name string, handler Handler) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}

	sub := &memorySubscription{bus: b, name: name, id: uuid.New().String(), handler: handler}
	if b.handlers[name] == nil {
		b.handlers[name] = make(map[string]*memorySubscription)
	}
	b.handlers[name][sub.id] = sub

	return sub, nil
}

// SubscriberCount returns the number of live subscriptions for name
func (b *MemoryBus) SubscriberCount(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[name])
}

// Close drops every subscription, waiting for deliveries already in flight
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	subs := b.handlers
	b.closed = true
	b.handlers = make(map[string]map[string]*memorySubscription)
	b.mu.Unlock()

	for _, byID := range subs {
		for _, sub := range byID {
			sub.stop()
		}
	}
	return nil
}

// memorySubscription serializes deliveries to one handler. Close must not be
// called from inside that handler.
type memorySubscription struct {
	bus     *MemoryBus
	name    string
	id      string
	handler Handler

	mu     sync.Mutex
	closed bool
	once   sync.Once
}

func (s *memorySubscription) deliver(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.handler(data)
}

// stop waits for a running delivery and blocks later ones
func (s *memorySubscription) stop() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *memorySubscription) Close() error {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.handlers[s.name], s.id)
		if len(s.bus.handlers[s.name]) == 0 {
			delete(s.bus.handlers, s.name)
		}
		s.bus.mu.Unlock()

		s.stop()
	})
	return nil
}
