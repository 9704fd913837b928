package conversation

import (
	"testing"

	"hivley/internal/domain"
	"hivley/internal/domain/message"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func direct(a, b uuid.UUID) Conversation {
	return Conversation{
		Type:         domain.ConversationTypeDirect,
		Participants: []Participant{{ProfileID: a}, {ProfileID: b}},
	}
}

func TestTitle(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()

	t.Run("direct uses other participant", func(t *testing.T) {
		names := map[uuid.UUID]string{alice: "Alice", bob: "Bob"}
		assert.Equal(t, "Bob", Title(direct(alice, bob), alice, names))
		assert.Equal(t, "Alice", Title(direct(alice, bob), bob, names))
	})

	t.Run("missing profile falls back", func(t *testing.T) {
		names := map[uuid.UUID]string{alice: "Alice"}
		assert.Equal(t, UnknownUser, Title(direct(alice, bob), alice, names))
	})

	t.Run("group uses stored title", func(t *testing.T) {
		title := "Study group"
		c := Conversation{Type: domain.ConversationTypeGroup, Title: &title}
		assert.Equal(t, "Study group", Title(c, alice, nil))
	})
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "No messages yet", Preview(nil, 0))
	assert.Equal(t, "hello", Preview(&message.Message{Content: "hello"}, 0))
	assert.Equal(t, "Message deleted", Preview(&message.Message{Content: message.DeletedContent}, 0))
	assert.Equal(t, "2 attachment(s)", Preview(&message.Message{Content: ""}, 2))
	assert.Equal(t, "Empty message", Preview(&message.Message{Content: "  "}, 0))
}

func TestVisible(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()

	assert.True(t, Visible(direct(alice, bob), alice, map[uuid.UUID]string{bob: "Bob"}))
	assert.False(t, Visible(direct(alice, bob), alice, map[uuid.UUID]string{alice: "Alice"}))

	empty := ""
	group := Conversation{
		Type:         domain.ConversationTypeGroup,
		Title:        &empty,
		Participants: []Participant{{ProfileID: alice}, {ProfileID: bob}},
	}
	assert.False(t, Visible(group, alice, map[uuid.UUID]string{bob: "Bob"}))

	title := "Tutors"
	group.Title = &title
	assert.True(t, Visible(group, alice, map[uuid.UUID]string{bob: "Bob"}))
}

func TestDirectKeyIsOrderIndependent(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	assert.Equal(t, DirectKey(a, b), DirectKey(b, a))
}
