package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hivley/internal/domain/user"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// Cache key patterns:
// - profile:{profile_id} - display fields used for titles and participant lists

// CacheConfig contains configuration for caching
type CacheConfig struct {
	ProfileTTL time.Duration
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{ProfileTTL: 5 * time.Minute}
}

// CacheStore handles caching in Redis
type CacheStore struct {
	client *goredis.Client
	config CacheConfig
}

func NewCacheStore(client *goredis.Client, config CacheConfig) *CacheStore {
	return &CacheStore{
		client: client,
		config: config,
	}
}

// ProfileCache is the cached subset of a profile.
type ProfileCache struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	AvatarURL string    `json:"avatar_url,omitempty"`
}

func profileKey(id uuid.UUID) string {
	return fmt.Sprintf("profile:%s", id.String())
}

// GetProfiles returns cached entries for ids. Misses are absent from the map.
func (c *CacheStore) GetProfiles(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]ProfileCache, error) {
	out := make(map[uuid.UUID]ProfileCache, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = profileKey(id)
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var p ProfileCache
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			continue
		}
		out[p.ID] = p
	}
	return out, nil
}

// SetProfiles caches profiles in one pipeline.
func (c *CacheStore) SetProfiles(ctx context.Context, profiles []user.Profile) error {
	if len(profiles) == 0 {
		return nil
	}
	pipe := c.client.Pipeline()
	for _, p := range profiles {
		data, err := json.Marshal(ProfileCache{ID: p.ID, FullName: p.FullName, Role: string(p.Role), AvatarURL: p.AvatarURL})
		if err != nil {
			return err
		}
		pipe.Set(ctx, profileKey(p.ID), data, c.config.ProfileTTL)
	}
	_, err := pipe.Exec(ctx)
	return err
}
