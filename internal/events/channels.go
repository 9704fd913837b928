package events

import (
	"strings"

	"github.com/google/uuid"
)

const (
	ChannelPrefixConversation = "channel:conversation:"
	ChannelPrefixPresence     = "channel:presence:"
	ChannelPrefixUser         = "channel:user:"

	// ChannelPattern matches every channel for a pattern subscription.
	ChannelPattern = "channel:*"
)

func ConversationChannel(id uuid.UUID) string {
	return ChannelPrefixConversation + id.String()
}

func PresenceChannel(profileID uuid.UUID) string {
	return ChannelPrefixPresence + profileID.String()
}

func UserChannel(profileID uuid.UUID) string {
	return ChannelPrefixUser + profileID.String()
}

// ParseChannel splits a channel name into its prefix and id.
func ParseChannel(channel string) (prefix string, id uuid.UUID, ok bool) {
	for _, p := range []string{ChannelPrefixConversation, ChannelPrefixPresence, ChannelPrefixUser} {
		if strings.HasPrefix(channel, p) {
			parsed, err := uuid.Parse(strings.TrimPrefix(channel, p))
			if err != nil {
				return "", uuid.Nil, false
			}
			return p, parsed, true
		}
	}
	return "", uuid.Nil, false
}
