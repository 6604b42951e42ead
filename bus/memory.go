package bus

import (
	"context"
	"sync"
)

// MemoryBus is an in-process Bus for single-binary deployments and tests.
// Handlers run on their own goroutine per delivery so a slow consumer never
// blocks a publisher.
type MemoryBus struct {
	mu     sync.RWMutex
	subs   map[string]map[int]*memorySub
	nextID int
	closed bool
}

type memorySub struct {
	bus     *MemoryBus
	topic   string
	id      int
	handler Handler
}

// NewMemoryBus creates an empty in-process bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[string]map[int]*memorySub)}
}

// Publish delivers payload to every current subscriber of topic.
func (b *MemoryBus) Publish(_ context.Context, topic string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}
	for _, sub := range b.subs[topic] {
		handler := sub.handler
		go handler(topic, payload)
	}
	return nil
}

// Subscribe registers handler for topic.
func (b *MemoryBus) Subscribe(_ context.Context, topic string, handler Handler) (Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBusClosed
	}
	sub := &memorySub{bus: b, topic: topic, id: b.nextID, handler: handler}
	b.nextID++
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]*memorySub)
	}
	b.subs[topic][sub.id] = sub
	return sub, nil
}

// Close cancels every subscription and rejects further use.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = make(map[string]map[int]*memorySub)
	return nil
}

func (s *memorySub) Cancel() error {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	if subs, ok := s.bus.subs[s.topic]; ok {
		delete(subs, s.id)
	}
	return nil
}
