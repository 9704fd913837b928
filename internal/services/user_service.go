package services

import (
	"context"

	"hivley/internal/domain"
	"hivley/internal/domain/user"
	"hivley/internal/redis"
	"hivley/internal/repository"
	"hivley/pkg/logger"

	"github.com/google/uuid"
)

// ProfileCacheStore is satisfied by redis.CacheStore.
type ProfileCacheStore interface {
	GetProfiles(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]redis.ProfileCache, error)
	SetProfiles(ctx context.Context, profiles []user.Profile) error
}

// ProfileSummary is the public part of a profile shown next to
// conversations and messages.
type ProfileSummary struct {
	ID        uuid.UUID   `json:"id"`
	FullName  string      `json:"full_name"`
	Role      domain.Role `json:"role"`
	AvatarURL string      `json:"avatar_url,omitempty"`
}

type UserService struct {
	repo  repository.UserRepository
	cache ProfileCacheStore
	log   *logger.Logger
}

// NewUserService builds the profile directory. cache may be nil.
func NewUserService(repo repository.UserRepository, cache ProfileCacheStore, log *logger.Logger) *UserService {
	if log == nil {
		log = logger.NewNop()
	}
	return &UserService{repo: repo, cache: cache, log: log}
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (ProfileSummary, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return ProfileSummary{}, err
	}
	return toProfileSummary(p), nil
}

// Directory resolves ids to profile summaries. Unknown ids are absent
// from the result. Cache failures fall through to the database.
func (s *UserService) Directory(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]ProfileSummary, error) {
	ids = uniqueIDs(ids)
	out := make(map[uuid.UUID]ProfileSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	missing := ids
	if s.cache != nil {
		cached, err := s.cache.GetProfiles(ctx, ids)
		if err != nil {
			s.log.Warnf("profile cache read failed: %v", err)
		} else {
			missing = missing[:0:0]
			for _, id := range ids {
				if c, ok := cached[id]; ok {
					out[id] = ProfileSummary{ID: c.ID, FullName: c.FullName, Role: domain.Role(c.Role), AvatarURL: c.AvatarURL}
					continue
				}
				missing = append(missing, id)
			}
		}
	}
	if len(missing) == 0 {
		return out, nil
	}

	profiles, err := s.repo.GetByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, p := range profiles {
		out[p.ID] = toProfileSummary(p)
	}
	if s.cache != nil && len(profiles) > 0 {
		if err := s.cache.SetProfiles(ctx, profiles); err != nil {
			s.log.Warnf("profile cache write failed: %v", err)
		}
	}
	return out, nil
}

// Names maps ids to display names, for conversation titles.
func Names(dir map[uuid.UUID]ProfileSummary) map[uuid.UUID]string {
	names := make(map[uuid.UUID]string, len(dir))
	for id, p := range dir {
		names[id] = p.FullName
	}
	return names
}

func toProfileSummary(p user.Profile) ProfileSummary {
	return ProfileSummary{ID: p.ID, FullName: p.FullName, Role: p.Role, AvatarURL: p.AvatarURL}
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == uuid.Nil {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
