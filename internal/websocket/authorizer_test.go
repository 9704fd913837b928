package websocket

import (
	"context"
	"testing"

	"hivley/internal/domain"
	"hivley/internal/domain/conversation"
	"hivley/internal/events"
	"hivley/internal/repository"
	"hivley/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelAuthorizer(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	repo := repository.NewConversationRepository(db)
	auth := NewChannelAuthorizer(repo)

	alice := testutil.CreateProfile(t, db, "alice", domain.RoleProvider)
	bob := testutil.CreateProfile(t, db, "bob", domain.RoleClient)
	eve := testutil.CreateProfile(t, db, "eve", domain.RoleClient)

	key := conversation.DirectKey(alice.ID, bob.ID)
	conv := &conversation.Conversation{Type: domain.ConversationTypeDirect, CreatedBy: alice.ID, DirectKey: &key}
	require.NoError(t, repo.CreateWithParticipants(ctx, conv, []conversation.Participant{
		{ProfileID: alice.ID, IsAdmin: true, NotificationsEnabled: true},
		{ProfileID: bob.ID, NotificationsEnabled: true},
	}))

	cases := []struct {
		name    string
		user    uuid.UUID
		channel string
		want    bool
	}{
		{"participant joins conversation", bob.ID, events.ConversationChannel(conv.ID), true},
		{"outsider denied conversation", eve.ID, events.ConversationChannel(conv.ID), false},
		{"own user channel", eve.ID, events.UserChannel(eve.ID), true},
		{"someone else's user channel", eve.ID, events.UserChannel(alice.ID), false},
		{"presence of a chat partner", alice.ID, events.PresenceChannel(bob.ID), true},
		{"presence of a stranger", eve.ID, events.PresenceChannel(bob.ID), false},
		{"own presence", eve.ID, events.PresenceChannel(eve.ID), true},
		{"unknown channel", alice.ID, "channel:system:all", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := auth.CanSubscribe(ctx, tc.user, tc.channel)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
