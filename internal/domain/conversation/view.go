package conversation

import (
	"fmt"
	"strings"

	"hivley/internal/domain"
	"hivley/internal/domain/message"

	"github.com/google/uuid"
)

const (
	UnknownUser     = "Unknown User"
	PreviewNone     = "No messages yet"
	PreviewDeleted  = "Message deleted"
	PreviewBlank    = "Empty message"
	attachmentLabel = "%d attachment(s)"
)

// Title is the stored title for a group, or the other participant's
// name for a direct conversation. names maps profile ids to display
// names; a missing entry falls back to UnknownUser.
func Title(c Conversation, viewerID uuid.UUID, names map[uuid.UUID]string) string {
	if c.Type == domain.ConversationTypeGroup {
		if c.Title != nil {
			return *c.Title
		}
		return ""
	}
	for _, id := range c.Others(viewerID) {
		if name, ok := names[id]; ok && name != "" {
			return name
		}
	}
	return UnknownUser
}

// Preview summarizes the last message of a conversation. last is nil
// when the conversation has no messages.
func Preview(last *message.Message, attachments int) string {
	if last == nil {
		return PreviewNone
	}
	if last.IsDeleted() {
		return PreviewDeleted
	}
	content := strings.TrimSpace(last.Content)
	if content != "" {
		return last.Content
	}
	if attachments > 0 {
		return fmt.Sprintf(attachmentLabel, attachments)
	}
	return PreviewBlank
}

// Visible reports whether c belongs in viewerID's conversation list.
// Rows with no other resolvable participant, or untitled groups, are
// hidden but never deleted.
func Visible(c Conversation, viewerID uuid.UUID, names map[uuid.UUID]string) bool {
	if c.Type == domain.ConversationTypeGroup && (c.Title == nil || strings.TrimSpace(*c.Title) == "") {
		return false
	}
	for _, id := range c.Others(viewerID) {
		if _, ok := names[id]; ok {
			return true
		}
	}
	return false
}
