package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/health-analytics/internal/model"
	"github.com/jwalitptl/health-analytics/internal/repository"
	"github.com/jwalitptl/health-analytics/pkg/errors"
)

type analyticsRepository struct {
	BaseRepository
}

func NewAnalyticsRepository(base BaseRepository) repository.AnalyticsRepository {
	return &analyticsRepository{base}
}

func (r *analyticsRepository) Get(ctx context.Context, userID uuid.UUID) (*model.AnalyticsRecord, error) {
	query := `SELECT user_id, analytics_data, updated_at FROM user_analytics WHERE user_id = $1`
	var record model.AnalyticsRecord
	if err := r.db.GetContext(ctx, &record, query, userID); err != nil {
		return nil, errors.FromDB("analytics", err)
	}
	return &record, nil
}

// Upsert replaces the user's snapshot. No history is kept.
func (r *analyticsRepository) Upsert(ctx context.Context, record *model.AnalyticsRecord) error {
	query := `
		INSERT INTO user_analytics (user_id, analytics_data, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET analytics_data = EXCLUDED.analytics_data, updated_at = EXCLUDED.updated_at
	`
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now().UTC()
	}
	if _, err := r.db.ExecContext(ctx, query, record.UserID, record.AnalyticsData, record.UpdatedAt); err != nil {
		return errors.FromDB("analytics", err)
	}
	return nil
}
