package services

import (
	"context"
	"errors"
	"testing"

	"hivley/internal/domain/user"
	"hivley/internal/redis"
	"hivley/internal/repository"
	"hivley/internal/testutil"
	"hivley/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryProfileCache struct {
	entries map[uuid.UUID]redis.ProfileCache
	readErr error
	writes  int
}

func (m *memoryProfileCache) GetProfiles(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]redis.ProfileCache, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	out := map[uuid.UUID]redis.ProfileCache{}
	for _, id := range ids {
		if e, ok := m.entries[id]; ok {
			out[id] = e
		}
	}
	return out, nil
}

func (m *memoryProfileCache) SetProfiles(_ context.Context, profiles []user.Profile) error {
	m.writes++
	for _, p := range profiles {
		m.entries[p.ID] = redis.ProfileCache{ID: p.ID, FullName: p.FullName, Role: string(p.Role), AvatarURL: p.AvatarURL}
	}
	return nil
}

func TestUserService_DirectoryUsesCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.profile(t, "alice")
	bob := f.profile(t, "bob")

	cache := &memoryProfileCache{entries: map[uuid.UUID]redis.ProfileCache{
		alice.ID: {ID: alice.ID, FullName: "Cached Alice", Role: "client"},
	}}
	svc := NewUserService(repository.NewUserRepository(f.db), cache, logger.NewNop())

	dir, err := svc.Directory(ctx, []uuid.UUID{alice.ID, bob.ID, bob.ID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, dir, 2)
	assert.Equal(t, "Cached Alice", dir[alice.ID].FullName)
	assert.Equal(t, bob.FullName, dir[bob.ID].FullName)
	assert.Equal(t, 1, cache.writes)
	assert.Contains(t, cache.entries, bob.ID)

	_, err = svc.Directory(ctx, []uuid.UUID{alice.ID, bob.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.writes)
}

func TestUserService_DirectoryFallsBackOnCacheError(t *testing.T) {
	f := newFixture(t)
	alice := f.profile(t, "alice")
	cache := &memoryProfileCache{entries: map[uuid.UUID]redis.ProfileCache{}, readErr: errors.New("connection refused")}
	svc := NewUserService(repository.NewUserRepository(f.db), cache, nil)

	dir, err := svc.Directory(context.Background(), []uuid.UUID{alice.ID})
	require.NoError(t, err)
	assert.Equal(t, alice.FullName, dir[alice.ID].FullName)
	assert.Equal(t, alice.FullName, Names(dir)[alice.ID])
}

func TestUserService_GetByID(t *testing.T) {
	f := newFixture(t)
	p := testutil.CreateProfile(t, f.db, "dana", "provider")

	got, err := f.users.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.FullName, got.FullName)
	assert.EqualValues(t, "provider", got.Role)
}
