package services

import (
	"context"
	"time"

	"hivley/internal/domain"
	"hivley/internal/domain/conversation"
	"hivley/internal/domain/message"
	"hivley/internal/events"
	"hivley/pkg/logger"

	"github.com/google/uuid"
)

// EventPublisher turns committed state changes into realtime envelopes.
// Publishing happens after the write commits; a failed publish is logged
// and never undoes the write.
type EventPublisher struct {
	bus events.Bus
	log *logger.Logger
}

func NewEventPublisher(bus events.Bus, log *logger.Logger) *EventPublisher {
	if bus == nil {
		bus = events.NopBus{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &EventPublisher{bus: bus, log: log}
}

type ReceiptPayload struct {
	ConversationID uuid.UUID             `json:"conversation_id"`
	MessageID      uuid.UUID             `json:"message_id"`
	ProfileID      uuid.UUID             `json:"profile_id"`
	Status         domain.DeliveryStatus `json:"status"`
}

type ReactionPayload struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	MessageID      uuid.UUID `json:"message_id"`
	ProfileID      uuid.UUID `json:"profile_id"`
	Emoji          string    `json:"emoji"`
}

type PresenceView struct {
	ProfileID  uuid.UUID             `json:"profile_id"`
	Status     domain.PresenceStatus `json:"status"`
	LastSeenAt *time.Time            `json:"last_seen_at,omitempty"`
}

type PresenceSyncPayload struct {
	ConversationID uuid.UUID      `json:"conversation_id"`
	Participants   []PresenceView `json:"participants"`
}

type ConversationPayload struct {
	ConversationID uuid.UUID               `json:"conversation_id"`
	Type           domain.ConversationType `json:"type"`
	Title          *string                 `json:"title,omitempty"`
	CreatedBy      uuid.UUID               `json:"created_by"`
}

func (p *EventPublisher) MessageCreated(ctx context.Context, m message.Message) {
	p.message(ctx, events.EventTypeMessageCreated, m)
}

func (p *EventPublisher) MessageUpdated(ctx context.Context, m message.Message) {
	p.message(ctx, events.EventTypeMessageUpdated, m)
}

func (p *EventPublisher) MessageDeleted(ctx context.Context, m message.Message) {
	p.message(ctx, events.EventTypeMessageDeleted, m)
}

func (p *EventPublisher) message(ctx context.Context, eventType string, m message.Message) {
	env, err := events.NewEnvelope(eventType, events.AggregateMessage, m.ID.String(), m)
	if err != nil {
		p.log.Errorf("encode %s: %v", eventType, err)
		return
	}
	env.Seq = m.Seq
	p.publish(ctx, events.ConversationChannel(m.ConversationID), env)
}

func (p *EventPublisher) ReceiptUpdated(ctx context.Context, payload ReceiptPayload) {
	p.emit(ctx, events.ConversationChannel(payload.ConversationID),
		events.EventTypeReceiptUpdated, events.AggregateMessage, payload.MessageID.String(), payload)
}

func (p *EventPublisher) ReactionAdded(ctx context.Context, payload ReactionPayload) {
	p.emit(ctx, events.ConversationChannel(payload.ConversationID),
		events.EventTypeReactionAdded, events.AggregateMessage, payload.MessageID.String(), payload)
}

func (p *EventPublisher) ReactionRemoved(ctx context.Context, payload ReactionPayload) {
	p.emit(ctx, events.ConversationChannel(payload.ConversationID),
		events.EventTypeReactionRemoved, events.AggregateMessage, payload.MessageID.String(), payload)
}

// PresenceUpdated goes to the profile's own presence channel and to
// every conversation the profile takes part in.
func (p *EventPublisher) PresenceUpdated(ctx context.Context, view PresenceView, conversationIDs []uuid.UUID) {
	env, err := events.NewEnvelope(events.EventTypePresenceUpdated, events.AggregatePresence, view.ProfileID.String(), view)
	if err != nil {
		p.log.Errorf("encode presence: %v", err)
		return
	}
	p.publish(ctx, events.PresenceChannel(view.ProfileID), env)
	for _, id := range conversationIDs {
		p.publish(ctx, events.ConversationChannel(id), env)
	}
}

func (p *EventPublisher) PresenceSync(ctx context.Context, payload PresenceSyncPayload) {
	p.emit(ctx, events.ConversationChannel(payload.ConversationID),
		events.EventTypePresenceSync, events.AggregateConversation, payload.ConversationID.String(), payload)
}

// ConversationCreated notifies each participant on their user channel so
// clients can add the conversation to their list.
func (p *EventPublisher) ConversationCreated(ctx context.Context, c conversation.Conversation, participantIDs []uuid.UUID) {
	p.conversation(ctx, events.EventTypeConversationCreated, c, participantIDs)
}

func (p *EventPublisher) ConversationUpdated(ctx context.Context, c conversation.Conversation, participantIDs []uuid.UUID) {
	p.conversation(ctx, events.EventTypeConversationUpdated, c, participantIDs)
}

func (p *EventPublisher) conversation(ctx context.Context, eventType string, c conversation.Conversation, participantIDs []uuid.UUID) {
	payload := ConversationPayload{ConversationID: c.ID, Type: c.Type, Title: c.Title, CreatedBy: c.CreatedBy}
	env, err := events.NewEnvelope(eventType, events.AggregateConversation, c.ID.String(), payload)
	if err != nil {
		p.log.Errorf("encode %s: %v", eventType, err)
		return
	}
	for _, id := range participantIDs {
		p.publish(ctx, events.UserChannel(id), env)
	}
}

func (p *EventPublisher) emit(ctx context.Context, channel, eventType, aggregateType, aggregateID string, payload interface{}) {
	env, err := events.NewEnvelope(eventType, aggregateType, aggregateID, payload)
	if err != nil {
		p.log.Errorf("encode %s: %v", eventType, err)
		return
	}
	p.publish(ctx, channel, env)
}

func (p *EventPublisher) publish(ctx context.Context, channel string, env events.Envelope) {
	if err := p.bus.Publish(ctx, channel, env); err != nil {
		p.log.WithContext(ctx).Warnf("publish %s on %s: %v", env.EventType, channel, err)
	}
}
