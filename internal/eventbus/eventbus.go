// Package eventbus implements a small in-memory publish/subscribe bus used
// to broadcast session lifecycle events. The session gateway publishes here
// when a session ends so the UI shell can react without the gateway knowing
// anything about navigation.
package eventbus

import (
	"sync"
	"time"
)

// Topics published by the session gateway.
const (
	// TopicSessionExpired is published when the server rejects the session
	// credential mid-flight. Data is the user-facing notice string.
	TopicSessionExpired = "session/expired"
	// TopicSessionLoggedOut is published on an explicit, user-initiated
	// logout. No inactivity notice accompanies it.
	TopicSessionLoggedOut = "session/loggedout"
)

// Event is a single published event.
type Event struct {
	Topic string
	Data  any
}

type subscriber struct {
	ch     chan Event
	closed bool
	mu     sync.Mutex
}

func (s *subscriber) send(event Event, timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	if timeout <= 0 {
		select {
		case s.ch <- event:
			return true
		default:
			return false
		}
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case s.ch <- event:
		return true
	case <-t.C:
		return false
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Bus routes events to subscribers by exact topic match.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]*subscriber
	shutdown    bool
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subscribers: make(map[string][]*subscriber)}
}

// Subscribe registers interest in a topic and returns the delivery channel
// together with an unsubscribe function. The channel is buffered with the
// given size; events that do not fit are dropped rather than blocking the
// publisher.
func (b *Bus) Subscribe(topic string, bufferSize int) (<-chan Event, func()) {
	if bufferSize < 1 {
		bufferSize = 1
	}
	sub := &subscriber{ch: make(chan Event, bufferSize)}

	b.mu.Lock()
	b.subscribers[topic] = append(b.subscribers[topic], sub)
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		subs := b.subscribers[topic]
		for i, s := range subs {
			if s == sub {
				b.subscribers[topic] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		b.mu.Unlock()
		sub.close()
	}
	return sub.ch, unsubscribe
}

// Publish delivers an event to all subscribers of the topic, waiting up to
// timeout per subscriber when its buffer is full. Returns the number of
// subscribers that received the event.
func (b *Bus) Publish(topic string, data any, timeout time.Duration) int {
	b.mu.RLock()
	if b.shutdown {
		b.mu.RUnlock()
		return 0
	}
	subs := make([]*subscriber, len(b.subscribers[topic]))
	copy(subs, b.subscribers[topic])
	b.mu.RUnlock()

	delivered := 0
	for _, sub := range subs {
		if sub.send(Event{Topic: topic, Data: data}, timeout) {
			delivered++
		}
	}
	return delivered
}

// Shutdown closes all subscriber channels and stops further publishing.
func (b *Bus) Shutdown() {
	b.mu.Lock()
	b.shutdown = true
	subs := b.subscribers
	b.subscribers = make(map[string][]*subscriber)
	b.mu.Unlock()

	for _, list := range subs {
		for _, sub := range list {
			sub.close()
		}
	}
}
