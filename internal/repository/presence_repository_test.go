package repository_test

import (
	"context"
	"testing"
	"time"

	"hivley/internal/domain"
	"hivley/internal/domain/presence"
	"hivley/internal/repository"
	"hivley/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresenceRepository_UpsertKeepsOneRow(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	repo := repository.NewPresenceRepository(db)
	id := uuid.New()

	first := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Upsert(ctx, &presence.UserPresence{ProfileID: id, Status: domain.PresenceOnline, LastSeenAt: first}))
	require.NoError(t, repo.Upsert(ctx, &presence.UserPresence{ProfileID: id, Status: domain.PresenceAway, LastSeenAt: first.Add(time.Minute)}))

	rows, err := repo.GetByProfileIDs(ctx, []uuid.UUID{id})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, domain.PresenceAway, rows[0].Status)
	assert.True(t, rows[0].LastSeenAt.Equal(first.Add(time.Minute)))
}

func TestPresenceRepository_Expire(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	repo := repository.NewPresenceRepository(db)

	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	stale, fresh, off := uuid.New(), uuid.New(), uuid.New()
	require.NoError(t, repo.Upsert(ctx, &presence.UserPresence{ProfileID: stale, Status: domain.PresenceOnline, LastSeenAt: now.Add(-time.Hour)}))
	require.NoError(t, repo.Upsert(ctx, &presence.UserPresence{ProfileID: fresh, Status: domain.PresenceOnline, LastSeenAt: now}))
	require.NoError(t, repo.Upsert(ctx, &presence.UserPresence{ProfileID: off, Status: domain.PresenceOffline, LastSeenAt: now.Add(-time.Hour)}))

	cutoff := now.Add(-15 * time.Minute)
	rows, err := repo.ListExpired(ctx, cutoff, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, stale, rows[0].ProfileID)

	changed, err := repo.ExpireIfStale(ctx, stale, cutoff)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.ExpireIfStale(ctx, fresh, cutoff)
	require.NoError(t, err)
	assert.False(t, changed)
}
