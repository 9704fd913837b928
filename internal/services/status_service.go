package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"hivley/internal/domain"
	"hivley/internal/domain/message"
	"hivley/internal/proxy"
	"hivley/internal/repository"
	hivley_errors "hivley/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxEmojiLength = 32

// StatusService tracks receipts and reactions.
type StatusService struct {
	db            *gorm.DB
	repo          repository.MessageRepository
	conversations *ConversationService
	access        *proxy.AccessControl
	publisher     *EventPublisher
}

func NewStatusService(db *gorm.DB, repo repository.MessageRepository, conversations *ConversationService, access *proxy.AccessControl, publisher *EventPublisher) *StatusService {
	return &StatusService{db: db, repo: repo, conversations: conversations, access: access, publisher: publisher}
}

// MarkStatus records a receipt from recipientID. The stored status never
// moves backward; a regressing write is ignored and the current status
// is returned.
func (s *StatusService) MarkStatus(ctx context.Context, messageID, recipientID uuid.UUID, status domain.DeliveryStatus) (domain.DeliveryStatus, error) {
	if !status.Valid() {
		return "", fmt.Errorf("%w: status must be sent, delivered or read", hivley_errors.ErrInvalidInput)
	}
	m, err := s.repo.GetByID(ctx, messageID)
	if err != nil {
		return "", err
	}
	if m.SenderID == recipientID {
		return "", fmt.Errorf("%w: senders do not receipt their own messages", hivley_errors.ErrInvalidInput)
	}
	if err := s.access.CanViewConversation(ctx, recipientID, m.ConversationID); err != nil {
		return "", err
	}

	stored, changed, err := s.repo.UpsertStatus(ctx, &message.MessageStatus{
		MessageID: messageID,
		ProfileID: recipientID,
		Status:    status,
	})
	if err != nil {
		return "", err
	}
	if changed {
		s.publisher.ReceiptUpdated(ctx, ReceiptPayload{
			ConversationID: m.ConversationID,
			MessageID:      messageID,
			ProfileID:      recipientID,
			Status:         stored,
		})
	}
	return stored, nil
}

// MarkConversationRead marks every message from others as read and moves
// the read marker. It returns how many receipts changed.
func (s *StatusService) MarkConversationRead(ctx context.Context, recipientID, conversationID uuid.UUID) (int, error) {
	if err := s.access.CanViewConversation(ctx, recipientID, conversationID); err != nil {
		return 0, err
	}

	var changed []uuid.UUID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		msgRepo := repository.NewMessageRepository(tx)
		ids, err := msgRepo.ListIDsFromOthers(ctx, conversationID, recipientID)
		if err != nil {
			return err
		}
		for _, id := range ids {
			_, ok, err := msgRepo.UpsertStatus(ctx, &message.MessageStatus{
				MessageID: id,
				ProfileID: recipientID,
				Status:    domain.DeliveryStatusRead,
			})
			if err != nil {
				return err
			}
			if ok {
				changed = append(changed, id)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if err := s.conversations.MarkRead(ctx, recipientID, conversationID); err != nil {
		return 0, err
	}

	for _, id := range changed {
		s.publisher.ReceiptUpdated(ctx, ReceiptPayload{
			ConversationID: conversationID,
			MessageID:      id,
			ProfileID:      recipientID,
			Status:         domain.DeliveryStatusRead,
		})
	}
	return len(changed), nil
}

// Aggregate returns the status the sender sees for a message.
func (s *StatusService) Aggregate(ctx context.Context, requesterID, messageID uuid.UUID) (domain.AggregateStatus, error) {
	m, err := s.repo.GetByID(ctx, messageID)
	if err != nil {
		return "", err
	}
	if err := s.access.CanViewConversation(ctx, requesterID, m.ConversationID); err != nil {
		return "", err
	}
	rows, err := s.repo.GetStatuses(ctx, messageID)
	if err != nil {
		return "", err
	}
	return aggregateOf(rows), nil
}

// AddReaction reports false when the identical reaction already existed.
func (s *StatusService) AddReaction(ctx context.Context, messageID, profileID uuid.UUID, emoji string) (bool, error) {
	emoji, err := normalizeEmoji(emoji)
	if err != nil {
		return false, err
	}
	m, err := s.visibleMessage(ctx, profileID, messageID)
	if err != nil {
		return false, err
	}

	added, err := s.repo.AddReaction(ctx, &message.MessageReaction{MessageID: messageID, ProfileID: profileID, Emoji: emoji})
	if err != nil {
		return false, err
	}
	if added {
		s.publisher.ReactionAdded(ctx, ReactionPayload{ConversationID: m.ConversationID, MessageID: messageID, ProfileID: profileID, Emoji: emoji})
	}
	return added, nil
}

// RemoveReaction deletes exactly one (message, profile, emoji) row.
// Removing a reaction that does not exist succeeds.
func (s *StatusService) RemoveReaction(ctx context.Context, messageID, profileID uuid.UUID, emoji string) (bool, error) {
	emoji, err := normalizeEmoji(emoji)
	if err != nil {
		return false, err
	}
	m, err := s.visibleMessage(ctx, profileID, messageID)
	if err != nil {
		return false, err
	}

	removed, err := s.repo.RemoveReaction(ctx, messageID, profileID, emoji)
	if err != nil {
		return false, err
	}
	if removed {
		s.publisher.ReactionRemoved(ctx, ReactionPayload{ConversationID: m.ConversationID, MessageID: messageID, ProfileID: profileID, Emoji: emoji})
	}
	return removed, nil
}

func (s *StatusService) Reactions(ctx context.Context, viewerID, messageID uuid.UUID) ([]message.MessageReaction, error) {
	if _, err := s.visibleMessage(ctx, viewerID, messageID); err != nil {
		return nil, err
	}
	return s.repo.GetReactions(ctx, messageID)
}

func (s *StatusService) visibleMessage(ctx context.Context, viewerID, messageID uuid.UUID) (message.Message, error) {
	m, err := s.repo.GetByID(ctx, messageID)
	if err != nil {
		return message.Message{}, err
	}
	if err := s.access.CanViewConversation(ctx, viewerID, m.ConversationID); err != nil {
		return message.Message{}, err
	}
	return m, nil
}

func normalizeEmoji(emoji string) (string, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" || len(emoji) > maxEmojiLength || !utf8.ValidString(emoji) {
		return "", fmt.Errorf("%w: invalid emoji", hivley_errors.ErrInvalidInput)
	}
	return emoji, nil
}

func aggregateOf(rows []message.MessageStatus) domain.AggregateStatus {
	statuses := make([]domain.DeliveryStatus, len(rows))
	for i, r := range rows {
		statuses[i] = r.Status
	}
	return message.Aggregate(statuses)
}
