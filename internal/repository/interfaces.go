package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/health-analytics/internal/model"
)

// All repository interfaces in one file.
// Methods ending in Tx take part in a caller-owned transaction.
type (
	// TxManager runs fn inside one database transaction
	TxManager interface {
		WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
	}

	HealthProfileRepository interface {
		GetByUser(ctx context.Context, userID uuid.UUID) (*model.HealthProfileRecord, error)
		UpsertTx(ctx context.Context, tx *sqlx.Tx, record *model.HealthProfileRecord) error
	}

	AnalysisRepository interface {
		ListByUser(ctx context.Context, userID uuid.UUID) ([]model.AnalysisRecord, error)
		CreateTx(ctx context.Context, tx *sqlx.Tx, record *model.AnalysisRecord) error
	}

	DailyMetricRepository interface {
		ListByUser(ctx context.Context, userID uuid.UUID, since time.Time) ([]model.DailyMetric, error)
		UpsertTx(ctx context.Context, tx *sqlx.Tx, metric *model.DailyMetric) error
	}

	ChatRepository interface {
		ListByUser(ctx context.Context, userID uuid.UUID) ([]model.ChatRecord, error)
		Get(ctx context.Context, userID, chatID uuid.UUID) (*model.ChatRecord, error)
		Create(ctx context.Context, chat *model.ChatRecord) error
		AddMessages(ctx context.Context, messages ...*model.ChatMessage) error
		ListMessages(ctx context.Context, chatID uuid.UUID, limit int) ([]model.ChatMessage, error)
	}

	AnalyticsRepository interface {
		Get(ctx context.Context, userID uuid.UUID) (*model.AnalyticsRecord, error)
		Upsert(ctx context.Context, record *model.AnalyticsRecord) error
	}

	OutboxRepository interface {
		CreateTx(ctx context.Context, tx *sqlx.Tx, event *model.OutboxEvent) error
		ClaimPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}

	// DynamicScoreRepository wraps the calculate_dynamic_health_score stored function
	DynamicScoreRepository interface {
		DynamicScore(ctx context.Context, userID uuid.UUID) (float64, bool, error)
	}
)
