package httpdto

import (
	"time"

	"hivley/internal/domain/conversation"
	"hivley/internal/services"
)

// CreateDirectRequest is used for POST /conversations/direct
type CreateDirectRequest struct {
	ParticipantID string                 `json:"participant_id" binding:"required"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// CreateGroupRequest is used for POST /conversations/group
type CreateGroupRequest struct {
	Title          string   `json:"title" binding:"required"`
	ParticipantIDs []string `json:"participant_ids" binding:"required"`
}

// UpdateTitleRequest is used for PUT /conversations/:id/title
type UpdateTitleRequest struct {
	Title string `json:"title" binding:"required"`
}

// UpdateNotificationsRequest is used for PUT /conversations/:id/notifications
type UpdateNotificationsRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// MarkReadResponse is returned from POST /conversations/:id/read
type MarkReadResponse struct {
	Updated int `json:"updated"`
}

type ParticipantDTO struct {
	ProfileDTO
	IsAdmin bool `json:"is_admin"`
}

// ConversationDTO is a conversation as seen by one viewer
type ConversationDTO struct {
	ID                   string                 `json:"id"`
	Type                 string                 `json:"type"`
	Title                string                 `json:"title"`
	Preview              string                 `json:"preview"`
	CreatedAt            string                 `json:"created_at"`
	LastMessageAt        *string                `json:"last_message_at"`
	LastMessageStatus    *string                `json:"last_message_status,omitempty"`
	UnreadCount          int64                  `json:"unread_count"`
	NotificationsEnabled bool                   `json:"notifications_enabled"`
	IsAdmin              bool                   `json:"is_admin"`
	Metadata             map[string]interface{} `json:"metadata,omitempty"`
	Participants         []ParticipantDTO       `json:"participants"`
}

// ConversationsResponse is returned when listing conversations
type ConversationsResponse struct {
	Conversations []ConversationDTO `json:"conversations"`
}

// CreatedConversationResponse is returned after creating or resolving a conversation
type CreatedConversationResponse struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Title   string `json:"title,omitempty"`
	Created bool   `json:"created"`
}

func FromSummary(s services.Summary) ConversationDTO {
	dto := ConversationDTO{
		ID:                   s.ID.String(),
		Type:                 string(s.Type),
		Title:                s.Title,
		Preview:              s.Preview,
		CreatedAt:            s.CreatedAt.Format(time.RFC3339),
		LastMessageAt:        formatTimePtr(s.LastMessageAt),
		UnreadCount:          s.UnreadCount,
		NotificationsEnabled: s.NotificationsEnabled,
		IsAdmin:              s.IsAdmin,
		Metadata:             s.Metadata,
		Participants:         make([]ParticipantDTO, len(s.Participants)),
	}
	if s.LastMessageStatus != nil {
		status := string(*s.LastMessageStatus)
		dto.LastMessageStatus = &status
	}
	for i, p := range s.Participants {
		dto.Participants[i] = ParticipantDTO{ProfileDTO: FromProfileSummary(p.ProfileSummary), IsAdmin: p.IsAdmin}
	}
	return dto
}

func FromSummarySlice(summaries []services.Summary) []ConversationDTO {
	dtos := make([]ConversationDTO, len(summaries))
	for i, s := range summaries {
		dtos[i] = FromSummary(s)
	}
	return dtos
}

func FromConversation(c conversation.Conversation, created bool) CreatedConversationResponse {
	res := CreatedConversationResponse{ID: c.ID.String(), Type: string(c.Type), Created: created}
	if c.Title != nil {
		res.Title = *c.Title
	}
	return res
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339Nano)
	return &s
}
