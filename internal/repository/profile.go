package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/haventalk/voice-ingest-go/internal/model"
)

type ProfileRepository interface {
	FindByID(ctx context.Context, id string) (*model.UserProfile, error)
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.UserProfile, error)
}

type profileRepo struct {
	db *sqlx.DB
}

func NewProfileRepository(db *sqlx.DB) ProfileRepository {
	return &profileRepo{db: db}
}

func (r *profileRepo) FindByID(ctx context.Context, id string) (*model.UserProfile, error) {
	var profile model.UserProfile
	err := r.db.GetContext(ctx, &profile, `
		SELECT * FROM user_profiles WHERE id = $1
	`, id)
	return HandleNotFound(&profile, err)
}

func (r *profileRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.UserProfile, error) {
	var profile model.UserProfile
	err := r.db.GetContext(ctx, &profile, `
		SELECT * FROM user_profiles WHERE api_token_hash = $1
	`, tokenHash)
	return HandleNotFound(&profile, err)
}
