package message

import (
	"time"

	"hivley/internal/domain"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DeletedContent replaces the content of a soft-deleted message.
const DeletedContent = "[Message deleted]"

// Cursor marks a page boundary. Seq breaks ties between messages that
// share CreatedAt; zero compares on CreatedAt alone.
type Cursor struct {
	CreatedAt time.Time
	Seq       int64
}

// Message represents the messages table
type Message struct {
	ID                uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID    uuid.UUID         `gorm:"type:uuid;not null;index:idx_messages_conversation_created,priority:1;uniqueIndex:idx_messages_client_id,priority:1" json:"conversation_id"`
	SenderID          uuid.UUID         `gorm:"type:uuid;not null;index;uniqueIndex:idx_messages_client_id,priority:2" json:"sender_id"`
	Content           string            `gorm:"type:text;not null;default:''" json:"content"`
	ReplyToID         *uuid.UUID        `gorm:"type:uuid" json:"reply_to_id,omitempty"`
	Seq               int64             `gorm:"not null" json:"seq"`
	CreatedAt         time.Time         `gorm:"not null;index:idx_messages_conversation_created,priority:2" json:"created_at"`
	EditedAt          *time.Time        `json:"edited_at,omitempty"`
	IsSystemMessage   bool              `gorm:"not null;default:false" json:"is_system_message"`
	ClientGeneratedID string            `gorm:"type:varchar(128);not null;default:'';uniqueIndex:idx_messages_client_id,priority:3,where:client_generated_id <> ''" json:"client_generated_id,omitempty"`
	Metadata          datatypes.JSONMap `json:"metadata,omitempty"`

	Attachments []MessageAttachment `gorm:"foreignKey:MessageID" json:"attachments,omitempty"`
}

// MessageAttachment represents message_attachments. FilePath points
// into the blob store.
type MessageAttachment struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MessageID     uuid.UUID `gorm:"type:uuid;not null;index" json:"message_id"`
	FileName      string    `gorm:"not null" json:"file_name"`
	FileType      string    `gorm:"not null" json:"file_type"`
	FileSize      int64     `gorm:"not null" json:"file_size"`
	FilePath      string    `gorm:"not null" json:"file_path"`
	ThumbnailPath *string   `json:"thumbnail_path,omitempty"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
}

// MessageStatus represents message_statuses, one row per (message, recipient).
type MessageStatus struct {
	MessageID uuid.UUID             `gorm:"type:uuid;primaryKey" json:"message_id"`
	ProfileID uuid.UUID             `gorm:"type:uuid;primaryKey" json:"profile_id"`
	Status    domain.DeliveryStatus `gorm:"type:varchar(16);not null" json:"status"`
	UpdatedAt time.Time             `gorm:"not null" json:"updated_at"`
}

// MessageReaction represents message_reactions
type MessageReaction struct {
	MessageID uuid.UUID `gorm:"type:uuid;primaryKey" json:"message_id"`
	ProfileID uuid.UUID `gorm:"type:uuid;primaryKey" json:"profile_id"`
	Emoji     string    `gorm:"type:varchar(32);primaryKey" json:"emoji"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (Message) TableName() string {
	return "messages"
}

func (MessageAttachment) TableName() string {
	return "message_attachments"
}

func (MessageStatus) TableName() string {
	return "message_statuses"
}

func (MessageReaction) TableName() string {
	return "message_reactions"
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = domain.Now()
	}
	return nil
}

func (a *MessageAttachment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = domain.Now()
	}
	return nil
}

func (r *MessageReaction) BeforeCreate(tx *gorm.DB) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = domain.Now()
	}
	return nil
}

// IsDeleted reports whether the message was soft-deleted.
func (m Message) IsDeleted() bool {
	return m.Content == DeletedContent
}
