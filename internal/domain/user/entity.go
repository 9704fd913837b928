package user

import (
	"time"

	"hivley/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Profile represents the profiles table
type Profile struct {
	ID           uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string      `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	FullName     string      `gorm:"not null" json:"full_name"`
	Role         domain.Role `gorm:"type:varchar(16);not null" json:"role"`
	AvatarURL    string      `json:"avatar_url,omitempty"`
	PasswordHash string      `gorm:"not null" json:"-"`
	CreatedAt    time.Time   `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}

func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = domain.Now()
	}
	return nil
}
