package repository

import (
	"context"
	"fmt"
	"time"

	"hivley/internal/domain"
	"hivley/internal/domain/message"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// statusRank mirrors domain.DeliveryStatus.Rank in SQL.
const statusRank = "CASE %s WHEN 'read' THEN 3 WHEN 'delivered' THEN 2 WHEN 'sent' THEN 1 ELSE 0 END"

type PostgresMessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &PostgresMessageRepository{db: db}
}

func (r *PostgresMessageRepository) Create(ctx context.Context, m *message.Message) error {
	return translate(r.db.WithContext(ctx).Omit("Attachments").Create(m).Error)
}

func (r *PostgresMessageRepository) GetByID(ctx context.Context, id uuid.UUID) (message.Message, error) {
	var m message.Message
	err := r.db.WithContext(ctx).
		Preload("Attachments").
		Where("id = ?", id).
		First(&m).Error
	if err != nil {
		return message.Message{}, translate(err)
	}
	return m, nil
}

func (r *PostgresMessageRepository) GetByClientGeneratedID(ctx context.Context, conversationID, senderID uuid.UUID, clientID string) (message.Message, error) {
	var m message.Message
	err := r.db.WithContext(ctx).
		Preload("Attachments").
		Where("conversation_id = ? AND sender_id = ? AND client_generated_id = ?", conversationID, senderID, clientID).
		First(&m).Error
	if err != nil {
		return message.Message{}, translate(err)
	}
	return m, nil
}

func (r *PostgresMessageRepository) UpdateContent(ctx context.Context, id uuid.UUID, content string, editedAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&message.Message{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"content":   content,
			"edited_at": editedAt,
		})
	return affected(res)
}

func (r *PostgresMessageRepository) ListPage(ctx context.Context, conversationID uuid.UUID, before *message.Cursor, limit int) ([]message.Message, error) {
	var messages []message.Message

	q := r.db.WithContext(ctx).
		Preload("Attachments").
		Where("conversation_id = ?", conversationID)
	switch {
	case before == nil:
	case before.Seq > 0:
		q = q.Where("created_at < ? OR (created_at = ? AND seq < ?)", before.CreatedAt, before.CreatedAt, before.Seq)
	default:
		q = q.Where("created_at < ?", before.CreatedAt)
	}

	err := q.Order("created_at DESC").
		Order("seq DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *PostgresMessageRepository) GetLatest(ctx context.Context, conversationID uuid.UUID) (message.Message, error) {
	var m message.Message
	err := r.db.WithContext(ctx).
		Preload("Attachments").
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Order("seq DESC").
		First(&m).Error
	if err != nil {
		return message.Message{}, translate(err)
	}
	return m, nil
}

func (r *PostgresMessageRepository) CountUnread(ctx context.Context, conversationID, profileID uuid.UUID, since *time.Time) (int64, error) {
	var count int64
	q := r.db.WithContext(ctx).
		Model(&message.Message{}).
		Where("conversation_id = ? AND sender_id <> ?", conversationID, profileID)
	if since != nil {
		q = q.Where("created_at > ?", *since)
	}
	if err := q.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PostgresMessageRepository) ListIDsFromOthers(ctx context.Context, conversationID, profileID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&message.Message{}).
		Where("conversation_id = ? AND sender_id <> ?", conversationID, profileID).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *PostgresMessageRepository) CreateAttachment(ctx context.Context, a *message.MessageAttachment) error {
	return translate(r.db.WithContext(ctx).Create(a).Error)
}

func (r *PostgresMessageRepository) UpsertStatus(ctx context.Context, s *message.MessageStatus) (domain.DeliveryStatus, bool, error) {
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = domain.Now()
	}
	db := r.db.WithContext(ctx)

	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "message_id"}, {Name: "profile_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: rankOf("excluded.status") + " > " + rankOf("message_statuses.status")},
		}},
	}).Create(s)
	if res.Error != nil {
		return "", false, translate(res.Error)
	}
	if res.RowsAffected > 0 {
		return s.Status, true, nil
	}

	// the guard rejected a regressing write; report the merged status
	var current message.MessageStatus
	err := db.Where("message_id = ? AND profile_id = ?", s.MessageID, s.ProfileID).First(&current).Error
	if err != nil {
		return "", false, translate(err)
	}
	return message.Advance(current.Status, s.Status), false, nil
}

func (r *PostgresMessageRepository) GetStatuses(ctx context.Context, messageID uuid.UUID) ([]message.MessageStatus, error) {
	var statuses []message.MessageStatus
	err := r.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Order("profile_id").
		Find(&statuses).Error
	if err != nil {
		return nil, err
	}
	return statuses, nil
}

func (r *PostgresMessageRepository) AddReaction(ctx context.Context, reaction *message.MessageReaction) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(reaction)
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *PostgresMessageRepository) RemoveReaction(ctx context.Context, messageID, profileID uuid.UUID, emoji string) (bool, error) {
	res := r.db.WithContext(ctx).
		Delete(&message.MessageReaction{}, "message_id = ? AND profile_id = ? AND emoji = ?", messageID, profileID, emoji)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *PostgresMessageRepository) GetReactions(ctx context.Context, messageID uuid.UUID) ([]message.MessageReaction, error) {
	var reactions []message.MessageReaction
	err := r.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Order("created_at ASC").
		Find(&reactions).Error
	if err != nil {
		return nil, err
	}
	return reactions, nil
}

func rankOf(column string) string {
	return "(" + fmt.Sprintf(statusRank, column) + ")"
}
