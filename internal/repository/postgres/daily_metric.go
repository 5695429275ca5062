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

type dailyMetricRepository struct {
	BaseRepository
}

func NewDailyMetricRepository(base BaseRepository) repository.DailyMetricRepository {
	return &dailyMetricRepository{base}
}

func (r *dailyMetricRepository) ListByUser(ctx context.Context, userID uuid.UUID, since time.Time) ([]model.DailyMetric, error) {
	query := `
		SELECT id, user_id, metric_date, data, created_at, updated_at
		FROM daily_health_metrics
		WHERE user_id = $1 AND metric_date >= $2
		ORDER BY metric_date DESC
	`
	var metrics []model.DailyMetric
	if err := r.db.SelectContext(ctx, &metrics, query, userID, since); err != nil {
		return nil, errors.FromDB("daily metrics", err)
	}
	return metrics, nil
}

// UpsertTx keeps one row per user and day
func (r *dailyMetricRepository) UpsertTx(ctx context.Context, tx *sqlx.Tx, metric *model.DailyMetric) error {
	query := `
		INSERT INTO daily_health_metrics (id, user_id, metric_date, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (user_id, metric_date) DO UPDATE
		SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at
	`
	if metric.ID == uuid.Nil {
		metric.ID = uuid.New()
	}
	now := time.Now().UTC()

	err := tx.QueryRowxContext(ctx, query, metric.ID, metric.UserID, metric.MetricDate, metric.Data, now).
		Scan(&metric.ID, &metric.CreatedAt, &metric.UpdatedAt)
	if err != nil {
		return errors.FromDB("daily metric", err)
	}
	return nil
}
