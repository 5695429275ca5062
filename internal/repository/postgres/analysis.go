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

type analysisRepository struct {
	BaseRepository
}

func NewAnalysisRepository(base BaseRepository) repository.AnalysisRepository {
	return &analysisRepository{base}
}

// ListByUser returns all analyses oldest first. Records whose marker JSON cannot be
// decoded are kept without biomarkers so one bad upload never blocks analytics.
func (r *analysisRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.AnalysisRecord, error) {
	query := `
		SELECT id, user_id, analysis_type,
			COALESCE(biomarkers, 'null'::jsonb) AS biomarkers,
			COALESCE(results, 'null'::jsonb) AS results,
			created_at, updated_at
		FROM medical_analyses
		WHERE user_id = $1
		ORDER BY created_at ASC
	`
	var records []model.AnalysisRecord
	if err := r.db.SelectContext(ctx, &records, query, userID); err != nil {
		return nil, errors.FromDB("analyses", err)
	}

	for i := range records {
		if err := records[i].DecodeBiomarkers(); err != nil {
			records[i].Biomarkers = nil
		}
	}
	return records, nil
}

func (r *analysisRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, record *model.AnalysisRecord) error {
	query := `
		INSERT INTO medical_analyses (id, user_id, analysis_type, biomarkers, results, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
	`
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.CreatedAt = time.Now().UTC()
	record.UpdatedAt = record.CreatedAt

	_, err := tx.ExecContext(ctx, query,
		record.ID,
		record.UserID,
		record.AnalysisType,
		nullableJSON(record.BiomarkersJSON),
		nullableJSON(record.ResultsJSON),
		record.CreatedAt,
	)
	if err != nil {
		return errors.FromDB("analysis", err)
	}
	return nil
}

// nullableJSON stores empty documents as SQL NULL
func nullableJSON(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
