package httpdto

import (
	"hivley/internal/services"

	"github.com/google/uuid"
)

// ProfileDTO represents a public profile in API responses
type ProfileDTO struct {
	ID        string `json:"id"`
	FullName  string `json:"full_name"`
	Role      string `json:"role"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

func FromProfileSummary(p services.ProfileSummary) ProfileDTO {
	return ProfileDTO{
		ID:        StringUUID(p.ID),
		FullName:  p.FullName,
		Role:      string(p.Role),
		AvatarURL: p.AvatarURL,
	}
}

// StringUUID converts a uuid.UUID to string
func StringUUID(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}
