package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/jwalitptl/health-analytics/internal/repository"
	"github.com/jwalitptl/health-analytics/pkg/errors"
)

const pqUndefinedFunction = "42883"

type dynamicScoreRepository struct {
	BaseRepository
}

func NewDynamicScoreRepository(base BaseRepository) repository.DynamicScoreRepository {
	return &dynamicScoreRepository{base}
}

// DynamicScore calls the externally maintained scoring function. A NULL result or a
// database without the function yields ok=false rather than an error.
func (r *dynamicScoreRepository) DynamicScore(ctx context.Context, userID uuid.UUID) (float64, bool, error) {
	var score sql.NullFloat64
	err := r.db.QueryRowxContext(ctx, `SELECT calculate_dynamic_health_score($1)`, userID).Scan(&score)
	if err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) && string(pqErr.Code) == pqUndefinedFunction {
			return 0, false, nil
		}
		return 0, false, errors.FromDB("dynamic score", err)
	}
	if !score.Valid {
		return 0, false, nil
	}
	return score.Float64, true, nil
}
