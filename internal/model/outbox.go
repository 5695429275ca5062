package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "pending"
	OutboxStatusProcessing OutboxStatus = "processing"
	OutboxStatusProcessed  OutboxStatus = "processed"
	OutboxStatusFailed     OutboxStatus = "failed"
)

// Tables whose changes feed realtime analytics regeneration
const (
	TableHealthProfiles     = "health_profiles"
	TableMedicalAnalyses    = "medical_analyses"
	TableDailyHealthMetrics = "daily_health_metrics"
)

type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       string          `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
	RetryCount   int             `db:"retry_count" json:"retry_count"`
}

// ChangeEvent is the payload of a table change notification
type ChangeEvent struct {
	Table      string    `json:"table"`
	Operation  string    `json:"operation"`
	UserID     uuid.UUID `json:"user_id"`
	RecordID   uuid.UUID `json:"record_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewChangeEvent builds the outbox row announcing a change to table for userID
func NewChangeEvent(table, operation string, userID, recordID uuid.UUID) (*OutboxEvent, error) {
	payload, err := json.Marshal(ChangeEvent{
		Table:      table,
		Operation:  operation,
		UserID:     userID,
		RecordID:   recordID,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	return &OutboxEvent{
		EventType: table + "." + operation,
		Payload:   payload,
	}, nil
}
