package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"hivley/internal/events"

	"github.com/google/uuid"
)

// subscriber receives envelopes published on a channel it joined.
// raw is the JSON encoding of env.
type subscriber interface {
	deliver(env events.Envelope, raw []byte)
}

// Hub fans out envelopes to websocket clients and in-process
// subscriptions. It implements events.Bus for single-instance deployments.
type Hub struct {
	mu sync.RWMutex

	// clients maps client ID to client (for cleanup)
	clients map[string]*Client

	// channels maps channel name to the set of subscribers on it
	channels map[string]map[subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		channels: make(map[string]map[subscriber]struct{}),
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()
}

// Unregister drops the client and all of its subscriptions, then closes
// its send queue.
func (h *Hub) Unregister(client *Client) {
	channels := client.GetChannels()
	h.mu.Lock()
	for _, channel := range channels {
		h.removeLocked(client, channel)
	}
	delete(h.clients, client.ID)
	h.mu.Unlock()

	client.closeSend()
}

func (h *Hub) Subscribe(client *Client, channel string) {
	h.mu.Lock()
	h.addLocked(client, channel)
	h.mu.Unlock()
	client.Subscribe(channel)
}

func (h *Hub) Unsubscribe(client *Client, channel string) {
	h.mu.Lock()
	h.removeLocked(client, channel)
	h.mu.Unlock()
	client.Unsubscribe(channel)
}

// Publish delivers env to every local subscriber of channel.
func (h *Hub) Publish(_ context.Context, channel string, env events.Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	h.fanOut(channel, env, raw)
	return nil
}

// Dispatch delivers an already encoded envelope, as received from Redis.
func (h *Hub) Dispatch(channel string, raw []byte) error {
	var env events.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode event on %s: %w", channel, err)
	}
	h.fanOut(channel, env, raw)
	return nil
}

// SubscribeConversation registers callbacks for one conversation.
// onMessage receives message, receipt and reaction events. onPresence,
// when set, receives presence sync and update events for the
// conversation's participants. Callbacks run on the publishing goroutine
// and must not call Unsubscribe on their own subscription.
func (h *Hub) SubscribeConversation(conversationID uuid.UUID, onMessage, onPresence func(events.Envelope)) *Subscription {
	sub := &Subscription{
		hub:        h,
		channel:    events.ConversationChannel(conversationID),
		onMessage:  onMessage,
		onPresence: onPresence,
	}
	h.mu.Lock()
	h.addLocked(sub, sub.channel)
	h.mu.Unlock()
	return sub
}

func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// UserConnected reports whether userID has any open connection here.
func (h *Hub) UserConnected(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if c.UserID == userID {
			return true
		}
	}
	return false
}

func (h *Hub) GetChannelSubscriberCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

func (h *Hub) fanOut(channel string, env events.Envelope, raw []byte) {
	h.mu.RLock()
	subs := make([]subscriber, 0, len(h.channels[channel]))
	for s := range h.channels[channel] {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	for _, s := range subs {
		s.deliver(env, raw)
	}
}

func (h *Hub) addLocked(s subscriber, channel string) {
	set, ok := h.channels[channel]
	if !ok {
		set = make(map[subscriber]struct{})
		h.channels[channel] = set
	}
	set[s] = struct{}{}
}

func (h *Hub) removeLocked(s subscriber, channel string) {
	if set, ok := h.channels[channel]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.channels, channel)
		}
	}
}
