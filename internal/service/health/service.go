package health

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	core "github.com/jwalitptl/health-analytics/internal/analytics"
	"github.com/jwalitptl/health-analytics/internal/model"
	"github.com/jwalitptl/health-analytics/internal/repository"
	"github.com/jwalitptl/health-analytics/pkg/errors"
	"github.com/jwalitptl/health-analytics/pkg/logger"
)

const (
	operationUpsert = "upsert"
	operationInsert = "insert"

	maxMetricHistory = 366
)

// Profile is a stored profile together with its normalized reading
type Profile struct {
	Record     *model.HealthProfileRecord `json:"record"`
	Normalized model.HealthProfile        `json:"normalized"`
}

// Service stores the inputs of analytics. Every write enqueues a change event in the
// same transaction so subscribers learn about it exactly when it commits.
type Service struct {
	tx       repository.TxManager
	profiles repository.HealthProfileRepository
	analyses repository.AnalysisRepository
	metrics  repository.DailyMetricRepository
	outbox   repository.OutboxRepository
	logger   *logger.Logger
	now      func() time.Time
}

func NewService(
	tx repository.TxManager,
	profiles repository.HealthProfileRepository,
	analyses repository.AnalysisRepository,
	metrics repository.DailyMetricRepository,
	outbox repository.OutboxRepository,
	log *logger.Logger,
) *Service {
	return &Service{
		tx:       tx,
		profiles: profiles,
		analyses: analyses,
		metrics:  metrics,
		outbox:   outbox,
		logger:   log,
		now:      time.Now,
	}
}

func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	record, err := s.profiles.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	raw, err := record.Raw()
	if err != nil {
		return nil, errors.Internal(err)
	}
	return &Profile{
		Record:     record,
		Normalized: core.ParseProfile(core.NormalizeRaw(raw), s.now()),
	}, nil
}

func (s *Service) UpsertProfile(ctx context.Context, userID uuid.UUID, raw model.RawProfile) (*Profile, error) {
	if raw == nil {
		return nil, errors.BadRequest("profile_data is required", nil)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, errors.BadRequest("profile_data is not serializable", err)
	}

	record := &model.HealthProfileRecord{ProfileData: data}
	record.UserID = userID

	err = s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.profiles.UpsertTx(ctx, tx, record); err != nil {
			return err
		}
		return s.enqueue(ctx, tx, model.TableHealthProfiles, operationUpsert, userID, record.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).Info("Health profile saved", "user_id", userID.String())
	return &Profile{
		Record:     record,
		Normalized: core.ParseProfile(core.NormalizeRaw(raw), s.now()),
	}, nil
}

func (s *Service) ListAnalyses(ctx context.Context, userID uuid.UUID) ([]model.AnalysisRecord, error) {
	return s.analyses.ListByUser(ctx, userID)
}

func (s *Service) CreateAnalysis(ctx context.Context, userID uuid.UUID, req *model.CreateAnalysisRequest) (*model.AnalysisRecord, error) {
	markers := make([]model.Biomarker, 0, len(req.Biomarkers))
	for _, in := range req.Biomarkers {
		markers = append(markers, model.Biomarker{
			Name:   in.Name,
			Value:  in.Value,
			Unit:   in.Unit,
			Status: model.ParseBiomarkerStatus(in.Status),
		})
	}
	data, err := json.Marshal(markers)
	if err != nil {
		return nil, errors.BadRequest("invalid biomarkers", err)
	}

	record := &model.AnalysisRecord{
		AnalysisType:   req.AnalysisType,
		BiomarkersJSON: data,
		Biomarkers:     markers,
	}
	record.UserID = userID

	err = s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.analyses.CreateTx(ctx, tx, record); err != nil {
			return err
		}
		return s.enqueue(ctx, tx, model.TableMedicalAnalyses, operationInsert, userID, record.ID)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Service) RecordMetric(ctx context.Context, userID uuid.UUID, req *model.RecordMetricRequest) (*model.DailyMetric, error) {
	date, err := time.Parse("2006-01-02", req.MetricDate)
	if err != nil {
		return nil, errors.BadRequest("metric_date must be YYYY-MM-DD", err)
	}
	if !json.Valid(req.Data) {
		return nil, errors.BadRequest("data must be valid JSON", nil)
	}

	metric := &model.DailyMetric{MetricDate: date, Data: req.Data}
	metric.UserID = userID

	err = s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.metrics.UpsertTx(ctx, tx, metric); err != nil {
			return err
		}
		return s.enqueue(ctx, tx, model.TableDailyHealthMetrics, operationUpsert, userID, metric.ID)
	})
	if err != nil {
		return nil, err
	}
	return metric, nil
}

// ListMetrics returns the daily metrics of the last days days, newest first
func (s *Service) ListMetrics(ctx context.Context, userID uuid.UUID, days int) ([]model.DailyMetric, error) {
	if days <= 0 || days > maxMetricHistory {
		return nil, errors.BadRequest(fmt.Sprintf("days must be between 1 and %d", maxMetricHistory), nil)
	}
	since := s.now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -days+1)
	return s.metrics.ListByUser(ctx, userID, since)
}

func (s *Service) enqueue(ctx context.Context, tx *sqlx.Tx, table, operation string, userID, recordID uuid.UUID) error {
	event, err := model.NewChangeEvent(table, operation, userID, recordID)
	if err != nil {
		return fmt.Errorf("failed to build change event: %w", err)
	}
	return s.outbox.CreateTx(ctx, tx, event)
}
