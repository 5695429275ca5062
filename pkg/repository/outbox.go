package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/health-analytics/internal/model"
)

// OutboxStore is the slice of the outbox repository pkg/worker needs
type OutboxStore interface {
	ClaimPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string) error
}
