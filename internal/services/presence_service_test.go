package services

import (
	"context"
	"testing"
	"time"

	"hivley/internal/domain"
	"hivley/internal/events"
	hivley_errors "hivley/pkg/errors"
	"hivley/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresenceService_Heartbeat(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.profile(t, "alice")
	bob := f.profile(t, "bob")
	conv := f.direct(t, alice.ID, bob.ID)
	f.bus.reset()

	assert.ErrorIs(t, f.presence.Heartbeat(ctx, alice.ID, domain.PresenceStale), hivley_errors.ErrInvalidInput)

	require.NoError(t, f.presence.Heartbeat(ctx, alice.ID, domain.PresenceOnline))
	require.NoError(t, f.presence.Heartbeat(ctx, alice.ID, domain.PresenceAway))

	views, err := f.presence.Get(ctx, []uuid.UUID{alice.ID, bob.ID})
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, domain.PresenceAway, views[0].Status)
	assert.NotNil(t, views[0].LastSeenAt)
	assert.Equal(t, domain.PresenceOffline, views[1].Status)
	assert.Nil(t, views[1].LastSeenAt)

	updates := f.bus.byType(events.EventTypePresenceUpdated)
	require.Len(t, updates, 4)
	channels := map[string]bool{}
	for _, u := range updates {
		channels[u.channel] = true
	}
	assert.True(t, channels[events.PresenceChannel(alice.ID)])
	assert.True(t, channels[events.ConversationChannel(conv.ID)])
}

func TestPresenceService_StaleInference(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.profile(t, "alice")

	start := domain.Now()
	f.presence.now = func() time.Time { return start }
	require.NoError(t, f.presence.Heartbeat(ctx, alice.ID, domain.PresenceOnline))

	f.presence.now = func() time.Time { return start.Add(testHeartbeat + time.Second) }
	views, err := f.presence.Get(ctx, []uuid.UUID{alice.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.PresenceStale, views[0].Status)
}

func TestPresenceService_Snapshot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.profile(t, "alice")
	bob := f.profile(t, "bob")
	conv := f.direct(t, alice.ID, bob.ID)
	require.NoError(t, f.presence.Heartbeat(ctx, bob.ID, domain.PresenceOnline))
	f.bus.reset()

	require.NoError(t, f.presence.PublishSnapshot(ctx, conv.ID))
	syncs := f.bus.byType(events.EventTypePresenceSync)
	require.Len(t, syncs, 1)
	assert.Equal(t, events.ConversationChannel(conv.ID), syncs[0].channel)

	views, err := f.presence.Snapshot(ctx, conv.ID)
	require.NoError(t, err)
	statuses := map[uuid.UUID]domain.PresenceStatus{}
	for _, v := range views {
		statuses[v.ProfileID] = v.Status
	}
	assert.Equal(t, domain.PresenceOffline, statuses[alice.ID])
	assert.Equal(t, domain.PresenceOnline, statuses[bob.ID])

	_, err = f.presence.Snapshot(ctx, uuid.New())
	assert.ErrorIs(t, err, hivley_errors.ErrNotFound)
}

func TestPresenceSweeper(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.profile(t, "alice")
	bob := f.profile(t, "bob")
	carol := f.profile(t, "carol")

	start := domain.Now()
	f.presence.now = func() time.Time { return start }
	require.NoError(t, f.presence.Heartbeat(ctx, alice.ID, domain.PresenceOnline))
	require.NoError(t, f.presence.Heartbeat(ctx, bob.ID, domain.PresenceAway))
	require.NoError(t, f.presence.Heartbeat(ctx, carol.ID, domain.PresenceOffline))

	f.presence.now = func() time.Time { return start.Add(10 * time.Minute) }
	require.NoError(t, f.presence.Heartbeat(ctx, bob.ID, domain.PresenceOnline))

	sweeper := NewPresenceSweeper(f.presenceRepo, f.presence, logger.NewNop(), time.Hour, 15*time.Minute)
	f.presence.now = func() time.Time { return start.Add(20 * time.Minute) }
	f.bus.reset()

	n, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	views, err := f.presence.Get(ctx, []uuid.UUID{alice.ID, bob.ID, carol.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.PresenceOffline, views[0].Status)
	assert.Equal(t, domain.PresenceStale, views[1].Status)
	assert.Equal(t, domain.PresenceOffline, views[2].Status)
	assert.NotEmpty(t, f.bus.byType(events.EventTypePresenceUpdated))

	n, err = sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPresenceSweeper_StartStop(t *testing.T) {
	f := newFixture(t)
	sweeper := NewPresenceSweeper(f.presenceRepo, f.presence, logger.NewNop(), time.Millisecond, time.Minute)
	sweeper.Start()
	time.Sleep(5 * time.Millisecond)
	sweeper.Stop()
	sweeper.Stop()
}
