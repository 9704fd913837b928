package services

import (
	"context"
	"sync"
	"testing"

	"hivley/internal/domain"
	"hivley/internal/domain/conversation"
	"hivley/internal/events"
	hivley_errors "hivley/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationService_CreateOrGetDirect(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.profile(t, "alice")
	bob := f.profile(t, "bob")

	meta := map[string]interface{}{"service_id": "svc-1", "service_title": "Calculus tutoring"}
	first, created, err := f.conversations.CreateOrGetDirect(ctx, alice.ID, bob.ID, meta)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.ConversationTypeDirect, first.Type)
	require.Len(t, first.Participants, 2)
	assert.Len(t, f.bus.byType(events.EventTypeConversationCreated), 2)

	again, created, err := f.conversations.CreateOrGetDirect(ctx, bob.ID, alice.ID, nil)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "Calculus tutoring", again.Metadata["service_title"])

	p, err := f.convRepo.GetParticipant(ctx, first.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, p.IsAdmin)
	assert.True(t, p.NotificationsEnabled)
	p, err = f.convRepo.GetParticipant(ctx, first.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, p.IsAdmin)
}

func TestConversationService_CreateOrGetDirectRejects(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.profile(t, "alice")

	_, _, err := f.conversations.CreateOrGetDirect(ctx, alice.ID, alice.ID, nil)
	assert.ErrorIs(t, err, hivley_errors.ErrInvalidInput)

	_, _, err = f.conversations.CreateOrGetDirect(ctx, alice.ID, uuid.New(), nil)
	assert.ErrorIs(t, err, hivley_errors.ErrNotFound)
}

func TestConversationService_CreateOrGetDirectConcurrent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.profile(t, "alice")
	bob := f.profile(t, "bob")

	const callers = 8
	ids := make([]uuid.UUID, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := alice.ID, bob.ID
			if i%2 == 1 {
				a, b = b, a
			}
			conv, _, err := f.conversations.CreateOrGetDirect(ctx, a, b, nil)
			ids[i], errs[i] = conv.ID, err
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}

	var count int64
	require.NoError(t, f.db.Model(&conversation.Conversation{}).Where("type = ?", domain.ConversationTypeDirect).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestConversationService_CreateGroup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.profile(t, "alice")
	bob := f.profile(t, "bob")
	carol := f.profile(t, "carol")

	t.Run("title required", func(t *testing.T) {
		_, err := f.conversations.CreateGroup(ctx, alice.ID, []uuid.UUID{bob.ID}, "   ")
		assert.ErrorIs(t, err, hivley_errors.ErrInvalidInput)
	})

	t.Run("empty after de-duplication", func(t *testing.T) {
		_, err := f.conversations.CreateGroup(ctx, alice.ID, []uuid.UUID{alice.ID, alice.ID}, "Solo")
		assert.ErrorIs(t, err, hivley_errors.ErrInvalidInput)
	})

	t.Run("unknown participant", func(t *testing.T) {
		_, err := f.conversations.CreateGroup(ctx, alice.ID, []uuid.UUID{bob.ID, uuid.New()}, "Ghosts")
		assert.ErrorIs(t, err, hivley_errors.ErrNotFound)
	})

	t.Run("initiator is an admin member once", func(t *testing.T) {
		conv, err := f.conversations.CreateGroup(ctx, alice.ID, []uuid.UUID{bob.ID, carol.ID, bob.ID, alice.ID}, "  Study group ")
		require.NoError(t, err)
		require.NotNil(t, conv.Title)
		assert.Equal(t, "Study group", *conv.Title)

		loaded, err := f.convRepo.GetByID(ctx, conv.ID)
		require.NoError(t, err)
		require.Len(t, loaded.Participants, 3)
		for _, p := range loaded.Participants {
			assert.Equal(t, p.ProfileID == alice.ID, p.IsAdmin)
		}
	})
}

func TestConversationService_List(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.profile(t, "alice")
	bob := f.profile(t, "bob")
	carol := f.profile(t, "carol")

	quiet := f.direct(t, alice.ID, carol.ID)
	busy := f.direct(t, alice.ID, bob.ID)
	f.send(t, busy.ID, bob.ID, "hi alice")
	f.send(t, busy.ID, bob.ID, "are you there?")
	mine := f.send(t, busy.ID, alice.ID, "yes")

	// An untitled group stays hidden.
	empty := ""
	hidden := &conversation.Conversation{Type: domain.ConversationTypeGroup, Title: &empty, CreatedBy: alice.ID}
	require.NoError(t, f.convRepo.CreateWithParticipants(ctx, hidden, []conversation.Participant{
		{ProfileID: alice.ID, IsAdmin: true, NotificationsEnabled: true},
		{ProfileID: bob.ID, NotificationsEnabled: true},
	}))

	list, err := f.conversations.List(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, busy.ID, list[0].ID)
	assert.Equal(t, "bob", list[0].Title)
	assert.Equal(t, "yes", list[0].Preview)
	assert.Equal(t, int64(2), list[0].UnreadCount)
	require.NotNil(t, list[0].LastMessageStatus)
	assert.Equal(t, domain.AggregateSending, *list[0].LastMessageStatus)

	assert.Equal(t, quiet.ID, list[1].ID)
	assert.Equal(t, "carol", list[1].Title)
	assert.Equal(t, conversation.PreviewNone, list[1].Preview)
	assert.Nil(t, list[1].LastMessageAt)

	_, err = f.statuses.MarkStatus(ctx, mine.Message.ID, bob.ID, domain.DeliveryStatusRead)
	require.NoError(t, err)
	_, err = f.statuses.MarkConversationRead(ctx, alice.ID, busy.ID)
	require.NoError(t, err)

	list, err = f.conversations.List(ctx, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, list[0].UnreadCount)
	assert.Equal(t, domain.AggregateRead, *list[0].LastMessageStatus)

	bobList, err := f.conversations.List(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, bobList, 1)
	assert.Equal(t, "alice", bobList[0].Title)
	assert.Nil(t, bobList[0].LastMessageStatus)
}

func TestConversationService_GetAndSettings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.profile(t, "alice")
	bob := f.profile(t, "bob")
	eve := f.profile(t, "eve")
	conv := f.direct(t, alice.ID, bob.ID)

	_, err := f.conversations.Get(ctx, eve.ID, conv.ID)
	assert.ErrorIs(t, err, hivley_errors.ErrForbidden)

	require.NoError(t, f.conversations.SetNotifications(ctx, bob.ID, conv.ID, false))
	sum, err := f.conversations.Get(ctx, bob.ID, conv.ID)
	require.NoError(t, err)
	assert.False(t, sum.NotificationsEnabled)
	assert.Equal(t, "alice", sum.Title)
	assert.Len(t, sum.Participants, 2)

	require.NoError(t, f.conversations.MarkRead(ctx, bob.ID, conv.ID))
	p, err := f.convRepo.GetParticipant(ctx, conv.ID, bob.ID)
	require.NoError(t, err)
	assert.NotNil(t, p.LastReadAt)
}

func TestConversationService_RenameGroup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.profile(t, "alice")
	bob := f.profile(t, "bob")

	group, err := f.conversations.CreateGroup(ctx, alice.ID, []uuid.UUID{bob.ID}, "Old")
	require.NoError(t, err)

	_, err = f.conversations.RenameGroup(ctx, bob.ID, group.ID, "Mine now")
	assert.ErrorIs(t, err, hivley_errors.ErrForbidden)

	_, err = f.conversations.RenameGroup(ctx, alice.ID, group.ID, " ")
	assert.ErrorIs(t, err, hivley_errors.ErrInvalidInput)

	f.bus.reset()
	renamed, err := f.conversations.RenameGroup(ctx, alice.ID, group.ID, "New")
	require.NoError(t, err)
	assert.Equal(t, "New", *renamed.Title)
	assert.Len(t, f.bus.byType(events.EventTypeConversationUpdated), 2)
}
