package services

import (
	"context"
	"testing"

	"hivley/internal/domain"
	"hivley/internal/events"
	hivley_errors "hivley/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusService_MarkStatusIsMonotonic(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.profile(t, "alice")
	bob := f.profile(t, "bob")
	conv := f.direct(t, alice.ID, bob.ID)
	msg := f.send(t, conv.ID, alice.ID, "ping").Message
	f.bus.reset()

	_, err := f.statuses.MarkStatus(ctx, msg.ID, alice.ID, domain.DeliveryStatusRead)
	assert.ErrorIs(t, err, hivley_errors.ErrInvalidInput)

	_, err = f.statuses.MarkStatus(ctx, msg.ID, bob.ID, "seen")
	assert.ErrorIs(t, err, hivley_errors.ErrInvalidInput)

	steps := []struct {
		write domain.DeliveryStatus
		want  domain.DeliveryStatus
	}{
		{domain.DeliveryStatusDelivered, domain.DeliveryStatusDelivered},
		{domain.DeliveryStatusRead, domain.DeliveryStatusRead},
		{domain.DeliveryStatusDelivered, domain.DeliveryStatusRead},
		{domain.DeliveryStatusSent, domain.DeliveryStatusRead},
	}
	for _, step := range steps {
		got, err := f.statuses.MarkStatus(ctx, msg.ID, bob.ID, step.write)
		require.NoError(t, err)
		assert.Equal(t, step.want, got)
	}

	rows, err := f.msgRepo.GetStatuses(ctx, msg.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, domain.DeliveryStatusRead, rows[0].Status)
	assert.Len(t, f.bus.byType(events.EventTypeReceiptUpdated), 2)
}

func TestStatusService_Aggregate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.profile(t, "alice")
	bob := f.profile(t, "bob")
	carol := f.profile(t, "carol")
	eve := f.profile(t, "eve")

	group, err := f.conversations.CreateGroup(ctx, alice.ID, []uuid.UUID{bob.ID, carol.ID}, "Team")
	require.NoError(t, err)
	msg := f.send(t, group.ID, alice.ID, "standup?").Message

	agg, err := f.statuses.Aggregate(ctx, alice.ID, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AggregateSending, agg)

	_, err = f.statuses.MarkStatus(ctx, msg.ID, bob.ID, domain.DeliveryStatusRead)
	require.NoError(t, err)
	_, err = f.statuses.MarkStatus(ctx, msg.ID, carol.ID, domain.DeliveryStatusSent)
	require.NoError(t, err)
	agg, err = f.statuses.Aggregate(ctx, alice.ID, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AggregateSent, agg)

	_, err = f.statuses.MarkStatus(ctx, msg.ID, carol.ID, domain.DeliveryStatusDelivered)
	require.NoError(t, err)
	agg, err = f.statuses.Aggregate(ctx, alice.ID, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AggregateDelivered, agg)

	_, err = f.statuses.MarkStatus(ctx, msg.ID, carol.ID, domain.DeliveryStatusRead)
	require.NoError(t, err)
	agg, err = f.statuses.Aggregate(ctx, alice.ID, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AggregateRead, agg)

	_, err = f.statuses.Aggregate(ctx, eve.ID, msg.ID)
	assert.ErrorIs(t, err, hivley_errors.ErrForbidden)
}

func TestStatusService_MarkConversationRead(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.profile(t, "alice")
	bob := f.profile(t, "bob")
	conv := f.direct(t, alice.ID, bob.ID)

	first := f.send(t, conv.ID, alice.ID, "one").Message
	f.send(t, conv.ID, alice.ID, "two")
	f.send(t, conv.ID, bob.ID, "mine")
	_, err := f.statuses.MarkStatus(ctx, first.ID, bob.ID, domain.DeliveryStatusRead)
	require.NoError(t, err)

	changed, err := f.statuses.MarkConversationRead(ctx, bob.ID, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	changed, err = f.statuses.MarkConversationRead(ctx, bob.ID, conv.ID)
	require.NoError(t, err)
	assert.Zero(t, changed)

	p, err := f.convRepo.GetParticipant(ctx, conv.ID, bob.ID)
	require.NoError(t, err)
	assert.NotNil(t, p.LastReadAt)

	sum, err := f.conversations.Get(ctx, bob.ID, conv.ID)
	require.NoError(t, err)
	assert.Zero(t, sum.UnreadCount)
}

func TestStatusService_Reactions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.profile(t, "alice")
	bob := f.profile(t, "bob")
	eve := f.profile(t, "eve")
	conv := f.direct(t, alice.ID, bob.ID)
	msg := f.send(t, conv.ID, alice.ID, "lunch?").Message
	f.bus.reset()

	added, err := f.statuses.AddReaction(ctx, msg.ID, bob.ID, "👍")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = f.statuses.AddReaction(ctx, msg.ID, bob.ID, "👍")
	require.NoError(t, err)
	assert.False(t, added)

	_, err = f.statuses.AddReaction(ctx, msg.ID, bob.ID, "🎉")
	require.NoError(t, err)
	_, err = f.statuses.AddReaction(ctx, msg.ID, alice.ID, "👍")
	require.NoError(t, err)

	_, err = f.statuses.AddReaction(ctx, msg.ID, eve.ID, "👀")
	assert.ErrorIs(t, err, hivley_errors.ErrForbidden)
	_, err = f.statuses.AddReaction(ctx, msg.ID, bob.ID, "  ")
	assert.ErrorIs(t, err, hivley_errors.ErrInvalidInput)

	removed, err := f.statuses.RemoveReaction(ctx, msg.ID, bob.ID, "👍")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = f.statuses.RemoveReaction(ctx, msg.ID, bob.ID, "👍")
	require.NoError(t, err)
	assert.False(t, removed)

	reactions, err := f.statuses.Reactions(ctx, alice.ID, msg.ID)
	require.NoError(t, err)
	require.Len(t, reactions, 2)
	got := map[string]uuid.UUID{}
	for _, r := range reactions {
		got[r.Emoji+r.ProfileID.String()] = r.ProfileID
	}
	assert.Contains(t, got, "🎉"+bob.ID.String())
	assert.Contains(t, got, "👍"+alice.ID.String())

	assert.Len(t, f.bus.byType(events.EventTypeReactionAdded), 3)
	assert.Len(t, f.bus.byType(events.EventTypeReactionRemoved), 1)
}
