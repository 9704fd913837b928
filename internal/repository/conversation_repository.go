package repository

import (
	"context"
	"time"

	"hivley/internal/domain/conversation"
	hivley_errors "hivley/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &PostgresConversationRepository{db: db}
}

func (r *PostgresConversationRepository) CreateWithParticipants(ctx context.Context, c *conversation.Conversation, participants []conversation.Participant) error {
	db := r.db.WithContext(ctx)
	if err := db.Omit("Participants").Create(c).Error; err != nil {
		return translate(err)
	}
	for i := range participants {
		participants[i].ConversationID = c.ID
	}
	if len(participants) > 0 {
		if err := db.Create(&participants).Error; err != nil {
			return translate(err)
		}
	}
	c.Participants = participants
	return nil
}

func (r *PostgresConversationRepository) GetByID(ctx context.Context, id uuid.UUID) (conversation.Conversation, error) {
	var c conversation.Conversation
	err := r.db.WithContext(ctx).
		Preload("Participants").
		Where("id = ?", id).
		First(&c).Error
	if err != nil {
		return conversation.Conversation{}, translate(err)
	}
	return c, nil
}

func (r *PostgresConversationRepository) GetByDirectKey(ctx context.Context, key string) (conversation.Conversation, error) {
	var c conversation.Conversation
	err := r.db.WithContext(ctx).
		Preload("Participants").
		Where("direct_key = ?", key).
		First(&c).Error
	if err != nil {
		return conversation.Conversation{}, translate(err)
	}
	return c, nil
}

func (r *PostgresConversationRepository) GetUserConversations(ctx context.Context, profileID uuid.UUID) ([]conversation.Conversation, error) {
	var conversations []conversation.Conversation

	subQuery := r.db.Model(&conversation.Participant{}).
		Select("conversation_id").
		Where("profile_id = ?", profileID)

	err := r.db.WithContext(ctx).
		Preload("Participants").
		Where("id IN (?)", subQuery).
		Order("CASE WHEN last_message_at IS NULL THEN 1 ELSE 0 END, last_message_at DESC, created_at DESC").
		Find(&conversations).Error
	if err != nil {
		return nil, err
	}
	return conversations, nil
}

func (r *PostgresConversationRepository) UpdateTitle(ctx context.Context, id uuid.UUID, title string) error {
	res := r.db.WithContext(ctx).
		Model(&conversation.Conversation{}).
		Where("id = ?", id).
		Update("title", title)
	return affected(res)
}

func (r *PostgresConversationRepository) GetParticipant(ctx context.Context, conversationID, profileID uuid.UUID) (conversation.Participant, error) {
	var p conversation.Participant
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND profile_id = ?", conversationID, profileID).
		First(&p).Error
	if err != nil {
		return conversation.Participant{}, translate(err)
	}
	return p, nil
}

func (r *PostgresConversationRepository) IsParticipant(ctx context.Context, conversationID, profileID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&conversation.Participant{}).
		Where("conversation_id = ? AND profile_id = ?", conversationID, profileID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PostgresConversationRepository) ListConversationIDs(ctx context.Context, profileID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&conversation.Participant{}).
		Where("profile_id = ?", profileID).
		Pluck("conversation_id", &ids).Error
	return ids, err
}

func (r *PostgresConversationRepository) ListParticipantIDs(ctx context.Context, conversationID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&conversation.Participant{}).
		Where("conversation_id = ?", conversationID).
		Order("joined_at ASC").
		Pluck("profile_id", &ids).Error
	return ids, err
}

func (r *PostgresConversationRepository) SharesConversation(ctx context.Context, a, b uuid.UUID) (bool, error) {
	if a == b {
		return true, nil
	}
	subQuery := r.db.Model(&conversation.Participant{}).
		Select("conversation_id").
		Where("profile_id = ?", a)

	var count int64
	err := r.db.WithContext(ctx).
		Model(&conversation.Participant{}).
		Where("profile_id = ? AND conversation_id IN (?)", b, subQuery).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PostgresConversationRepository) MarkRead(ctx context.Context, conversationID, profileID uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&conversation.Participant{}).
		Where("conversation_id = ? AND profile_id = ?", conversationID, profileID).
		Update("last_read_at", at)
	return affected(res)
}

func (r *PostgresConversationRepository) SetNotifications(ctx context.Context, conversationID, profileID uuid.UUID, enabled bool) error {
	res := r.db.WithContext(ctx).
		Model(&conversation.Participant{}).
		Where("conversation_id = ? AND profile_id = ?", conversationID, profileID).
		Update("notifications_enabled", enabled)
	return affected(res)
}

// IncrementSequence bumps conversations.last_seq and returns the new value.
// Run it inside the transaction that inserts the message so the row lock
// is held until commit.
func (r *PostgresConversationRepository) IncrementSequence(ctx context.Context, conversationID uuid.UUID) (int64, error) {
	db := r.db.WithContext(ctx)
	res := db.Model(&conversation.Conversation{}).
		Where("id = ?", conversationID).
		UpdateColumn("last_seq", gorm.Expr("last_seq + ?", 1))
	if err := affected(res); err != nil {
		return 0, err
	}

	var seqs []int64
	err := db.Model(&conversation.Conversation{}).
		Where("id = ?", conversationID).
		Pluck("last_seq", &seqs).Error
	if err != nil {
		return 0, err
	}
	if len(seqs) == 0 {
		return 0, hivley_errors.ErrNotFound
	}
	return seqs[0], nil
}

func (r *PostgresConversationRepository) TouchLastMessage(ctx context.Context, conversationID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&conversation.Conversation{}).
		Where("id = ? AND (last_message_at IS NULL OR last_message_at < ?)", conversationID, at).
		UpdateColumn("last_message_at", at).Error
}
