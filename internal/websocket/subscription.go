package websocket

import (
	"strings"
	"sync"

	"hivley/internal/events"
)

// Subscription is an in-process listener on one conversation.
type Subscription struct {
	hub        *Hub
	channel    string
	onMessage  func(events.Envelope)
	onPresence func(events.Envelope)

	mu     sync.Mutex
	closed bool
}

func (s *Subscription) deliver(env events.Envelope, _ []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if isPresenceEvent(env.EventType) {
		if s.onPresence != nil {
			s.onPresence(env)
		}
		return
	}
	if s.onMessage != nil {
		s.onMessage(env)
	}
}

// Unsubscribe detaches the subscription. It waits for an in-flight
// callback to return, and no callback fires afterwards. Safe to call
// more than once.
func (s *Subscription) Unsubscribe() {
	s.hub.mu.Lock()
	s.hub.removeLocked(s, s.channel)
	s.hub.mu.Unlock()

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func isPresenceEvent(eventType string) bool {
	return strings.HasPrefix(eventType, "presence.")
}
