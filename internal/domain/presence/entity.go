package presence

import (
	"time"

	"hivley/internal/domain"

	"github.com/google/uuid"
)

// UserPresence represents the user_presence table. One row per profile,
// overwritten on every heartbeat.
type UserPresence struct {
	ProfileID  uuid.UUID             `gorm:"type:uuid;primaryKey" json:"profile_id"`
	Status     domain.PresenceStatus `gorm:"type:varchar(16);not null" json:"status"`
	LastSeenAt time.Time             `gorm:"not null;index" json:"last_seen_at"`
}

func (UserPresence) TableName() string {
	return "user_presence"
}

// Effective returns the status a viewer should display at now. An online
// row older than staleAfter is reported as stale.
func (p UserPresence) Effective(now time.Time, staleAfter time.Duration) domain.PresenceStatus {
	if p.Status == domain.PresenceOnline && now.Sub(p.LastSeenAt) > staleAfter {
		return domain.PresenceStale
	}
	return p.Status
}
