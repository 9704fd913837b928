package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"hivley/internal/domain"
	"hivley/internal/domain/conversation"
	"hivley/internal/domain/message"
	"hivley/internal/domain/presence"
	"hivley/internal/domain/user"
)

type UserRepository interface {
	Create(ctx context.Context, p *user.Profile) error
	GetByID(ctx context.Context, id uuid.UUID) (user.Profile, error)
	GetByEmail(ctx context.Context, email string) (user.Profile, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]user.Profile, error)
}

type ConversationRepository interface {
	// CreateWithParticipants inserts the conversation and its participants.
	// Callers wanting atomicity pass a transaction-scoped repository.
	CreateWithParticipants(ctx context.Context, c *conversation.Conversation, participants []conversation.Participant) error
	GetByID(ctx context.Context, id uuid.UUID) (conversation.Conversation, error)
	GetByDirectKey(ctx context.Context, key string) (conversation.Conversation, error)
	GetUserConversations(ctx context.Context, profileID uuid.UUID) ([]conversation.Conversation, error)
	UpdateTitle(ctx context.Context, id uuid.UUID, title string) error

	GetParticipant(ctx context.Context, conversationID, profileID uuid.UUID) (conversation.Participant, error)
	IsParticipant(ctx context.Context, conversationID, profileID uuid.UUID) (bool, error)
	ListConversationIDs(ctx context.Context, profileID uuid.UUID) ([]uuid.UUID, error)
	ListParticipantIDs(ctx context.Context, conversationID uuid.UUID) ([]uuid.UUID, error)
	SharesConversation(ctx context.Context, a, b uuid.UUID) (bool, error)
	MarkRead(ctx context.Context, conversationID, profileID uuid.UUID, at time.Time) error
	SetNotifications(ctx context.Context, conversationID, profileID uuid.UUID, enabled bool) error

	IncrementSequence(ctx context.Context, conversationID uuid.UUID) (int64, error)
	// TouchLastMessage moves last_message_at forward to at. Older values are ignored.
	TouchLastMessage(ctx context.Context, conversationID uuid.UUID, at time.Time) error
}

type MessageRepository interface {
	Create(ctx context.Context, m *message.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (message.Message, error)
	GetByClientGeneratedID(ctx context.Context, conversationID, senderID uuid.UUID, clientID string) (message.Message, error)
	UpdateContent(ctx context.Context, id uuid.UUID, content string, editedAt time.Time) error

	// ListPage returns up to limit messages older than before (all when nil),
	// newest first.
	ListPage(ctx context.Context, conversationID uuid.UUID, before *message.Cursor, limit int) ([]message.Message, error)
	GetLatest(ctx context.Context, conversationID uuid.UUID) (message.Message, error)
	CountUnread(ctx context.Context, conversationID, profileID uuid.UUID, since *time.Time) (int64, error)
	ListIDsFromOthers(ctx context.Context, conversationID, profileID uuid.UUID) ([]uuid.UUID, error)

	CreateAttachment(ctx context.Context, a *message.MessageAttachment) error

	// UpsertStatus writes a receipt unless it would move the stored status
	// backward. It returns the stored status and whether it changed.
	UpsertStatus(ctx context.Context, s *message.MessageStatus) (domain.DeliveryStatus, bool, error)
	GetStatuses(ctx context.Context, messageID uuid.UUID) ([]message.MessageStatus, error)

	// AddReaction reports false when the identical reaction already exists.
	AddReaction(ctx context.Context, r *message.MessageReaction) (bool, error)
	// RemoveReaction reports false when there was nothing to remove.
	RemoveReaction(ctx context.Context, messageID, profileID uuid.UUID, emoji string) (bool, error)
	GetReactions(ctx context.Context, messageID uuid.UUID) ([]message.MessageReaction, error)
}

type PresenceRepository interface {
	Upsert(ctx context.Context, p *presence.UserPresence) error
	GetByProfileIDs(ctx context.Context, ids []uuid.UUID) ([]presence.UserPresence, error)
	ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]presence.UserPresence, error)
	// ExpireIfStale sets the row offline only if it has not heartbeated since cutoff.
	ExpireIfStale(ctx context.Context, profileID uuid.UUID, cutoff time.Time) (bool, error)
}
