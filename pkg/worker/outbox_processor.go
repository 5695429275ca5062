package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/health-analytics/internal/model"
	"github.com/jwalitptl/health-analytics/pkg/logger"
	"github.com/jwalitptl/health-analytics/pkg/messaging"
	"github.com/jwalitptl/health-analytics/pkg/metrics"
	"github.com/jwalitptl/health-analytics/pkg/repository"
)

type OutboxProcessorConfig struct {
	BatchSize     int
	PollInterval  time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// OutboxProcessor relays table change events from the outbox to per-user broker channels
type OutboxProcessor struct {
	repo    repository.OutboxStore
	broker  messaging.Publisher
	config  OutboxProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewOutboxProcessor(
	repo repository.OutboxStore,
	broker messaging.Publisher,
	config OutboxProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *OutboxProcessor {
	if config.BatchSize <= 0 {
		panic("BatchSize must be greater than 0")
	}
	if config.PollInterval <= 0 {
		panic("PollInterval must be greater than 0")
	}
	if config.RetryAttempts <= 0 {
		panic("RetryAttempts must be greater than 0")
	}
	if config.RetryDelay <= 0 {
		panic("RetryDelay must be greater than 0")
	}

	return &OutboxProcessor{
		repo:    repo,
		broker:  broker,
		config:  config,
		logger:  logger,
		metrics: metrics,
	}
}

// ChangeChannel is the broker channel carrying changes of table for one user
func ChangeChannel(table, userID string) string {
	return fmt.Sprintf("changes:%s:%s", table, userID)
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("Starting outbox processor")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Shutting down outbox processor")
			return
		case <-ticker.C:
			if _, err := p.ProcessBatch(ctx); err != nil {
				p.logger.Error(err, "Failed to process events")
			}
		}
	}
}

// ProcessBatch claims one batch and publishes it. It returns the number of events published.
func (p *OutboxProcessor) ProcessBatch(ctx context.Context) (int, error) {
	timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
	defer timer.ObserveDuration()

	events, err := p.repo.ClaimPending(ctx, p.config.BatchSize)
	p.metrics.DatabaseOperations.WithLabelValues("claim_outbox_events", metrics.Status(err)).Inc()
	if err != nil {
		return 0, fmt.Errorf("failed to claim pending events: %w", err)
	}

	published := 0
	for _, event := range events {
		if err := p.processEvent(ctx, event); err != nil {
			p.logger.Error(err, "Failed to process event",
				"event_id", event.ID.String(),
				"event_type", event.EventType)
			continue
		}
		published++
	}

	return published, nil
}

func (p *OutboxProcessor) processEvent(ctx context.Context, event *model.OutboxEvent) error {
	var change model.ChangeEvent
	if err := json.Unmarshal(event.Payload, &change); err != nil || change.Table == "" {
		// malformed rows can never succeed, so they are not retried
		if err == nil {
			err = fmt.Errorf("event has no table")
		}
		p.fail(ctx, event, err)
		return fmt.Errorf("invalid change event: %w", err)
	}
	channel := ChangeChannel(change.Table, change.UserID.String())

	attempt := 0
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.config.RetryDelay), uint64(p.config.RetryAttempts-1)),
		ctx,
	)
	err := backoff.Retry(func() error {
		if attempt > 0 {
			p.metrics.OutboxRetries.WithLabelValues(event.EventType).Inc()
		}
		attempt++
		return p.broker.Publish(ctx, channel, json.RawMessage(event.Payload))
	}, policy)

	if err != nil {
		p.fail(ctx, event, err)
		return err
	}

	p.metrics.OutboxEventsProcessed.Inc()
	if err := p.repo.UpdateStatus(ctx, event.ID, model.OutboxStatusProcessed, nil); err != nil {
		p.logger.Error(err, "Failed to update event status", "event_id", event.ID.String())
		return err
	}

	return nil
}

func (p *OutboxProcessor) fail(ctx context.Context, event *model.OutboxEvent, cause error) {
	p.metrics.OutboxEventsFailed.Inc()
	errStr := cause.Error()
	if err := p.repo.UpdateStatus(ctx, event.ID, model.OutboxStatusFailed, &errStr); err != nil {
		p.logger.Error(err, "Failed to update event status", "event_id", event.ID.String())
	}
}
