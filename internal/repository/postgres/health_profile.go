package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/health-analytics/internal/model"
	"github.com/jwalitptl/health-analytics/internal/repository"
	"github.com/jwalitptl/health-analytics/pkg/errors"
)

type healthProfileRepository struct {
	BaseRepository
}

func NewHealthProfileRepository(base BaseRepository) repository.HealthProfileRepository {
	return &healthProfileRepository{base}
}

func (r *healthProfileRepository) GetByUser(ctx context.Context, userID uuid.UUID) (*model.HealthProfileRecord, error) {
	query := `
		SELECT id, user_id, COALESCE(profile_data, '{}'::jsonb) AS profile_data, created_at, updated_at
		FROM health_profiles
		WHERE user_id = $1
		ORDER BY updated_at DESC
		LIMIT 1
	`
	var record model.HealthProfileRecord
	if err := r.db.GetContext(ctx, &record, query, userID); err != nil {
		return nil, errors.FromDB("health profile", err)
	}
	return &record, nil
}

func (r *healthProfileRepository) UpsertTx(ctx context.Context, tx *sqlx.Tx, record *model.HealthProfileRecord) error {
	query := `
		INSERT INTO health_profiles (id, user_id, profile_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET profile_data = EXCLUDED.profile_data, updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at
	`
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	now := time.Now().UTC()

	err := tx.QueryRowxContext(ctx, query, record.ID, record.UserID, record.ProfileData, now).
		Scan(&record.ID, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		return errors.FromDB("health profile", err)
	}
	return nil
}
