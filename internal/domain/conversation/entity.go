package conversation

import (
	"sort"
	"strings"
	"time"

	"hivley/internal/domain"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Conversation represents the conversations table
type Conversation struct {
	ID            uuid.UUID               `gorm:"type:uuid;primaryKey" json:"id"`
	Type          domain.ConversationType `gorm:"type:varchar(16);not null;index" json:"type"`
	Title         *string                 `json:"title,omitempty"`
	CreatedBy     uuid.UUID               `gorm:"type:uuid;not null" json:"created_by"`
	CreatedAt     time.Time               `gorm:"not null" json:"created_at"`
	LastMessageAt *time.Time              `gorm:"index" json:"last_message_at,omitempty"`
	LastSeq       int64                   `gorm:"not null;default:0" json:"last_seq"`
	Metadata      datatypes.JSONMap       `json:"metadata,omitempty"`
	// DirectKey is set only for direct conversations. Its unique index
	// makes a second direct conversation for the same pair impossible.
	DirectKey *string `gorm:"type:varchar(80);uniqueIndex" json:"-"`

	Participants []Participant `gorm:"foreignKey:ConversationID" json:"participants,omitempty"`
}

// Participant represents the conversation_participants table
type Participant struct {
	ConversationID       uuid.UUID  `gorm:"type:uuid;primaryKey" json:"conversation_id"`
	ProfileID            uuid.UUID  `gorm:"type:uuid;primaryKey;index" json:"profile_id"`
	JoinedAt             time.Time  `gorm:"not null" json:"joined_at"`
	LastReadAt           *time.Time `json:"last_read_at,omitempty"`
	IsAdmin              bool       `gorm:"not null;default:false" json:"is_admin"`
	NotificationsEnabled bool       `gorm:"not null;default:true" json:"notifications_enabled"`
}

func (Conversation) TableName() string {
	return "conversations"
}

func (Participant) TableName() string {
	return "conversation_participants"
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = domain.Now()
	}
	return nil
}

func (p *Participant) BeforeCreate(tx *gorm.DB) error {
	if p.JoinedAt.IsZero() {
		p.JoinedAt = domain.Now()
	}
	return nil
}

// DirectKey returns the order-independent key for a direct conversation
// between a and b.
func DirectKey(a, b uuid.UUID) string {
	ids := []string{a.String(), b.String()}
	sort.Strings(ids)
	return strings.Join(ids, ":")
}

// HasParticipant reports whether profileID is among the loaded participants.
func (c Conversation) HasParticipant(profileID uuid.UUID) bool {
	for _, p := range c.Participants {
		if p.ProfileID == profileID {
			return true
		}
	}
	return false
}

// Others returns the participant ids other than viewerID.
func (c Conversation) Others(viewerID uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(c.Participants))
	for _, p := range c.Participants {
		if p.ProfileID != viewerID {
			out = append(out, p.ProfileID)
		}
	}
	return out
}
