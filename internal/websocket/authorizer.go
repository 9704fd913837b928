package websocket

import (
	"context"

	"hivley/internal/events"
	"hivley/internal/repository"

	"github.com/google/uuid"
)

// ChannelAuthorizer decides which realtime channels a user may join.
type ChannelAuthorizer struct {
	conversationRepo repository.ConversationRepository
}

func NewChannelAuthorizer(conversationRepo repository.ConversationRepository) *ChannelAuthorizer {
	return &ChannelAuthorizer{conversationRepo: conversationRepo}
}

// CanSubscribe allows a user's own channels, conversations they take part
// in, and the presence of anyone they share a conversation with.
func (a *ChannelAuthorizer) CanSubscribe(ctx context.Context, userID uuid.UUID, channel string) (bool, error) {
	prefix, id, ok := events.ParseChannel(channel)
	if !ok {
		return false, nil
	}

	switch prefix {
	case events.ChannelPrefixUser:
		return id == userID, nil
	case events.ChannelPrefixConversation:
		return a.conversationRepo.IsParticipant(ctx, id, userID)
	case events.ChannelPrefixPresence:
		if id == userID {
			return true, nil
		}
		return a.conversationRepo.SharesConversation(ctx, userID, id)
	}

	// Default deny
	return false, nil
}
