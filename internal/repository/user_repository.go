package repository

import (
	"context"
	"strings"

	"hivley/internal/domain/user"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresUserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) Create(ctx context.Context, p *user.Profile) error {
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	return translate(r.db.WithContext(ctx).Create(p).Error)
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id uuid.UUID) (user.Profile, error) {
	var p user.Profile
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return user.Profile{}, translate(err)
	}
	return p, nil
}

func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (user.Profile, error) {
	var p user.Profile
	err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&p).Error
	if err != nil {
		return user.Profile{}, translate(err)
	}
	return p, nil
}

func (r *PostgresUserRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]user.Profile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var profiles []user.Profile
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}
