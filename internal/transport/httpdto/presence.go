package httpdto

import "hivley/internal/services"

// HeartbeatRequest is used for POST /presence/heartbeat
type HeartbeatRequest struct {
	Status string `json:"status"`
}

type PresenceDTO struct {
	ProfileID  string  `json:"profile_id"`
	Status     string  `json:"status"`
	LastSeenAt *string `json:"last_seen_at"`
}

type PresenceResponse struct {
	Presence []PresenceDTO `json:"presence"`
}

func FromPresenceViews(views []services.PresenceView) PresenceResponse {
	out := PresenceResponse{Presence: make([]PresenceDTO, len(views))}
	for i, v := range views {
		out.Presence[i] = PresenceDTO{
			ProfileID:  v.ProfileID.String(),
			Status:     string(v.Status),
			LastSeenAt: formatTimePtr(v.LastSeenAt),
		}
	}
	return out
}
