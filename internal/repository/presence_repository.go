package repository

import (
	"context"
	"time"

	"hivley/internal/domain"
	"hivley/internal/domain/presence"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresPresenceRepository struct {
	db *gorm.DB
}

func NewPresenceRepository(db *gorm.DB) PresenceRepository {
	return &PostgresPresenceRepository{db: db}
}

func (r *PostgresPresenceRepository) Upsert(ctx context.Context, p *presence.UserPresence) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "profile_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "last_seen_at"}),
		}).
		Create(p).Error
}

func (r *PostgresPresenceRepository) GetByProfileIDs(ctx context.Context, ids []uuid.UUID) ([]presence.UserPresence, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []presence.UserPresence
	if err := r.db.WithContext(ctx).Where("profile_id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *PostgresPresenceRepository) ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]presence.UserPresence, error) {
	var rows []presence.UserPresence
	err := r.db.WithContext(ctx).
		Where("status IN ? AND last_seen_at < ?", activeStatuses(), cutoff).
		Order("last_seen_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *PostgresPresenceRepository) ExpireIfStale(ctx context.Context, profileID uuid.UUID, cutoff time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&presence.UserPresence{}).
		Where("profile_id = ? AND status IN ? AND last_seen_at < ?", profileID, activeStatuses(), cutoff).
		UpdateColumn("status", domain.PresenceOffline)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func activeStatuses() []string {
	return []string{string(domain.PresenceOnline), string(domain.PresenceAway)}
}
