package services

import (
	"context"
	"fmt"
	"time"

	"hivley/internal/domain"
	"hivley/internal/domain/presence"
	"hivley/internal/repository"
	hivley_errors "hivley/pkg/errors"

	"github.com/google/uuid"
)

// PresenceService records heartbeats. Presence is advisory and is never
// consulted for authorization.
type PresenceService struct {
	repo      repository.PresenceRepository
	convRepo  repository.ConversationRepository
	publisher *EventPublisher
	heartbeat time.Duration
	now       func() time.Time
}

func NewPresenceService(repo repository.PresenceRepository, convRepo repository.ConversationRepository, publisher *EventPublisher, heartbeat time.Duration) *PresenceService {
	return &PresenceService{
		repo:      repo,
		convRepo:  convRepo,
		publisher: publisher,
		heartbeat: heartbeat,
		now:       domain.Now,
	}
}

func (s *PresenceService) Heartbeat(ctx context.Context, profileID uuid.UUID, status domain.PresenceStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: status must be online, away or offline", hivley_errors.ErrInvalidInput)
	}

	row := presence.UserPresence{ProfileID: profileID, Status: status, LastSeenAt: s.now()}
	if err := s.repo.Upsert(ctx, &row); err != nil {
		return err
	}

	s.broadcast(ctx, row)
	return nil
}

// Get returns the effective presence of each id, in order. Profiles that
// never sent a heartbeat are offline.
func (s *PresenceService) Get(ctx context.Context, profileIDs []uuid.UUID) ([]PresenceView, error) {
	rows, err := s.repo.GetByProfileIDs(ctx, profileIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]presence.UserPresence, len(rows))
	for _, r := range rows {
		byID[r.ProfileID] = r
	}

	now := s.now()
	out := make([]PresenceView, 0, len(profileIDs))
	for _, id := range profileIDs {
		row, ok := byID[id]
		if !ok {
			out = append(out, PresenceView{ProfileID: id, Status: domain.PresenceOffline})
			continue
		}
		seen := row.LastSeenAt
		out = append(out, PresenceView{ProfileID: id, Status: row.Effective(now, s.heartbeat), LastSeenAt: &seen})
	}
	return out, nil
}

// Snapshot returns the effective presence of every participant.
func (s *PresenceService) Snapshot(ctx context.Context, conversationID uuid.UUID) ([]PresenceView, error) {
	ids, err := s.convRepo.ListParticipantIDs(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, hivley_errors.ErrNotFound
	}
	return s.Get(ctx, ids)
}

// PublishSnapshot sends a presence.sync for the conversation to its
// subscribers.
func (s *PresenceService) PublishSnapshot(ctx context.Context, conversationID uuid.UUID) error {
	views, err := s.Snapshot(ctx, conversationID)
	if err != nil {
		return err
	}
	s.publisher.PresenceSync(ctx, PresenceSyncPayload{ConversationID: conversationID, Participants: views})
	return nil
}

func (s *PresenceService) broadcast(ctx context.Context, row presence.UserPresence) {
	convIDs, err := s.convRepo.ListConversationIDs(ctx, row.ProfileID)
	if err != nil {
		s.publisher.log.Warnf("list conversations for presence of %s: %v", row.ProfileID, err)
	}
	seen := row.LastSeenAt
	s.publisher.PresenceUpdated(ctx, PresenceView{
		ProfileID:  row.ProfileID,
		Status:     row.Effective(s.now(), s.heartbeat),
		LastSeenAt: &seen,
	}, convIDs)
}
