package httpdto

import (
	"time"

	"hivley/internal/domain/message"
	"hivley/internal/services"
)

// SendMessageRequest is used for POST /conversations/:id/messages with a
// JSON body. Multipart requests carry the same fields as form values.
type SendMessageRequest struct {
	Content           string                 `json:"content" form:"content"`
	ReplyToID         string                 `json:"reply_to_id,omitempty" form:"reply_to_id"`
	ClientGeneratedID string                 `json:"client_generated_id,omitempty" form:"client_generated_id"`
	Metadata          map[string]interface{} `json:"metadata,omitempty" form:"-"`
}

// EditMessageRequest is used for PATCH /messages/:id
type EditMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// MarkStatusRequest is used for PUT /messages/:id/status
type MarkStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ReactionRequest is used for POST and DELETE /messages/:id/reactions
type ReactionRequest struct {
	Emoji string `json:"emoji" binding:"required"`
}

type AttachmentDTO struct {
	ID        string `json:"id"`
	FileName  string `json:"file_name"`
	FileType  string `json:"file_type"`
	FileSize  int64  `json:"file_size"`
	URL       string `json:"url"`
	CreatedAt string `json:"created_at"`
}

type MessageDTO struct {
	ID                string                 `json:"id"`
	ConversationID    string                 `json:"conversation_id"`
	SenderID          string                 `json:"sender_id"`
	Content           string                 `json:"content"`
	ReplyToID         string                 `json:"reply_to_id,omitempty"`
	Seq               int64                  `json:"seq"`
	CreatedAt         string                 `json:"created_at"`
	EditedAt          *string                `json:"edited_at,omitempty"`
	Deleted           bool                   `json:"deleted"`
	ClientGeneratedID string                 `json:"client_generated_id,omitempty"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
	Attachments       []AttachmentDTO        `json:"attachments"`
}

// AttachmentResultDTO reports the outcome of one uploaded file
type AttachmentResultDTO struct {
	FileName   string         `json:"file_name"`
	Attachment *AttachmentDTO `json:"attachment,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// SendMessageResponse is returned after sending a message
type SendMessageResponse struct {
	Message     MessageDTO            `json:"message"`
	Attachments []AttachmentResultDTO `json:"attachments,omitempty"`
	Duplicate   bool                  `json:"duplicate,omitempty"`
}

// MessagePageResponse is returned when listing messages. NextBefore and
// NextBeforeSeq are passed back as the before and before_seq query
// parameters to fetch older messages.
type MessagePageResponse struct {
	Messages      []MessageDTO `json:"messages"`
	NextBefore    *string      `json:"next_before"`
	NextBeforeSeq *int64       `json:"next_before_seq,omitempty"`
}

type StatusResponse struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
}

type ReactionDTO struct {
	ProfileID string `json:"profile_id"`
	Emoji     string `json:"emoji"`
	CreatedAt string `json:"created_at"`
}

type ReactionsResponse struct {
	Reactions []ReactionDTO `json:"reactions"`
}

type ReactionChangeResponse struct {
	Changed bool `json:"changed"`
}

func FromMessage(m message.Message) MessageDTO {
	dto := MessageDTO{
		ID:                m.ID.String(),
		ConversationID:    m.ConversationID.String(),
		SenderID:          m.SenderID.String(),
		Content:           m.Content,
		Seq:               m.Seq,
		CreatedAt:         m.CreatedAt.UTC().Format(time.RFC3339Nano),
		EditedAt:          formatTimePtr(m.EditedAt),
		Deleted:           m.IsDeleted(),
		ClientGeneratedID: m.ClientGeneratedID,
		Metadata:          m.Metadata,
		Attachments:       make([]AttachmentDTO, len(m.Attachments)),
	}
	if m.ReplyToID != nil {
		dto.ReplyToID = m.ReplyToID.String()
	}
	for i, a := range m.Attachments {
		dto.Attachments[i] = FromAttachment(a)
	}
	return dto
}

func FromMessageSlice(messages []message.Message) []MessageDTO {
	dtos := make([]MessageDTO, len(messages))
	for i, m := range messages {
		dtos[i] = FromMessage(m)
	}
	return dtos
}

func FromAttachment(a message.MessageAttachment) AttachmentDTO {
	return AttachmentDTO{
		ID:        a.ID.String(),
		FileName:  a.FileName,
		FileType:  a.FileType,
		FileSize:  a.FileSize,
		URL:       a.FilePath,
		CreatedAt: a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func FromSendResult(res services.SendResult) SendMessageResponse {
	out := SendMessageResponse{Message: FromMessage(res.Message), Duplicate: res.Duplicate}
	for _, r := range res.Attachments {
		item := AttachmentResultDTO{FileName: r.FileName, Error: r.Error}
		if r.Attachment != nil {
			a := FromAttachment(*r.Attachment)
			item.Attachment = &a
		}
		out.Attachments = append(out.Attachments, item)
	}
	return out
}

func FromPage(p services.Page) MessagePageResponse {
	out := MessagePageResponse{Messages: FromMessageSlice(p.Messages)}
	if p.NextBefore != nil {
		out.NextBefore = formatTimePtr(&p.NextBefore.CreatedAt)
		seq := p.NextBefore.Seq
		out.NextBeforeSeq = &seq
	}
	return out
}

func FromReactions(reactions []message.MessageReaction) ReactionsResponse {
	out := ReactionsResponse{Reactions: make([]ReactionDTO, len(reactions))}
	for i, r := range reactions {
		out.Reactions[i] = ReactionDTO{
			ProfileID: r.ProfileID.String(),
			Emoji:     r.Emoji,
			CreatedAt: r.CreatedAt.UTC().Format(time.RFC3339),
		}
	}
	return out
}
