package analytics

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	core "github.com/jwalitptl/health-analytics/internal/analytics"
	"github.com/jwalitptl/health-analytics/internal/model"
	"github.com/jwalitptl/health-analytics/internal/repository"
	"github.com/jwalitptl/health-analytics/pkg/edge"
	"github.com/jwalitptl/health-analytics/pkg/errors"
	"github.com/jwalitptl/health-analytics/pkg/logger"
	"github.com/jwalitptl/health-analytics/pkg/messaging"
	"github.com/jwalitptl/health-analytics/pkg/metrics"
)

var errClosed = stderrors.New("analytics service closed")

// Cache layers reported in the cache lookup metric
const (
	layerMemory    = "memory"
	layerDatabase  = "database"
	layerGenerated = "generated"
)

type Config struct {
	CacheTTL               time.Duration
	CacheCleanup           time.Duration
	RegenerateRetries      uint64
	RetryInterval          time.Duration
	RecommendationsTimeout time.Duration
	Locale                 core.Locale
}

type Repositories struct {
	Profiles  repository.HealthProfileRepository
	Analyses  repository.AnalysisRepository
	Chats     repository.ChatRepository
	Analytics repository.AnalyticsRepository
}

// Service orchestrates analytics generation for one user at a time.
// Overlapping Generate calls share one computation. A Trigger always leads to a
// computation that starts after it: it waits out a run already in flight, and
// triggers arriving while a regeneration runs collapse into exactly one follow-up.
type Service struct {
	repos     Repositories
	calc      *core.Calculator
	names     *core.NameNormalizer
	edge      edge.Invoker
	publisher messaging.Publisher
	cache     *cache.Cache
	cfg       Config
	logger    *logger.Logger
	metrics   *metrics.Metrics
	now       func() time.Time

	group    singleflight.Group
	mu       sync.Mutex
	running  map[uuid.UUID]bool
	dirty    map[uuid.UUID]bool
	inflight map[uuid.UUID]chan struct{}
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewService(
	repos Repositories,
	calc *core.Calculator,
	invoker edge.Invoker,
	publisher messaging.Publisher,
	cfg Config,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.CacheCleanup <= 0 {
		cfg.CacheCleanup = 10 * time.Minute
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 500 * time.Millisecond
	}
	if cfg.RecommendationsTimeout <= 0 {
		cfg.RecommendationsTimeout = 15 * time.Second
	}
	if cfg.Locale == "" {
		cfg.Locale = core.DefaultLocale
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		repos:     repos,
		calc:      calc,
		names:     core.DefaultNameNormalizer(),
		edge:      invoker,
		publisher: publisher,
		cache:     cache.New(cfg.CacheTTL, cfg.CacheCleanup),
		cfg:       cfg,
		logger:    log,
		metrics:   m,
		now:       time.Now,
		running:   make(map[uuid.UUID]bool),
		dirty:     make(map[uuid.UUID]bool),
		inflight:  make(map[uuid.UUID]chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// AnalyticsChannel is the broker channel fresh snapshots of a user are published on
func AnalyticsChannel(userID uuid.UUID) string {
	return "user_analytics:" + userID.String()
}

// Generate recomputes and persists the analytics snapshot of userID. On any failure the
// previously stored snapshot is left untouched.
func (s *Service) Generate(ctx context.Context, userID uuid.UUID) (*model.CachedAnalytics, error) {
	ch := s.group.DoChan(userID.String(), func() (interface{}, error) {
		done, err := s.beginRun(userID)
		if err != nil {
			return nil, err
		}
		defer s.endRun(userID, done)
		// shared computations must not die with the first caller's request
		return s.generate(context.WithoutCancel(ctx), userID)
	})

	select {
	case <-ctx.Done():
		return nil, errors.Timeout("analytics generation", ctx.Err())
	case res := <-ch:
		if res.Shared {
			s.metrics.AnalyticsCoalesced.Inc()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		snapshot := *res.Val.(*model.CachedAnalytics)
		return &snapshot, nil
	}
}

// beginRun registers a computation for userID with Close
func (s *Service) beginRun(userID uuid.UUID) (chan struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return nil, errors.Unavailable("analytics", errClosed)
	}
	done := make(chan struct{})
	s.inflight[userID] = done
	s.wg.Add(1)
	return done, nil
}

func (s *Service) endRun(userID uuid.UUID, done chan struct{}) {
	s.mu.Lock()
	if s.inflight[userID] == done {
		delete(s.inflight, userID)
	}
	s.mu.Unlock()
	close(done)
	s.wg.Done()
}

// awaitRun blocks until the computation in flight for userID, if any, has finished.
// Its data may predate the change that caused the caller to regenerate.
func (s *Service) awaitRun(userID uuid.UUID) {
	s.mu.Lock()
	done := s.inflight[userID]
	s.mu.Unlock()
	if done == nil {
		return
	}
	select {
	case <-done:
		// the finished call may still be registered with the group until its function unwinds
		s.group.Forget(userID.String())
	case <-s.ctx.Done():
	}
}

func (s *Service) generate(ctx context.Context, userID uuid.UUID) (snapshot *model.CachedAnalytics, err error) {
	start := time.Now()
	defer func() {
		s.metrics.AnalyticsGenerations.WithLabelValues(metrics.Status(err)).Inc()
		s.metrics.AnalyticsDuration.Observe(time.Since(start).Seconds())
	}()

	var (
		raw      model.RawProfile
		analyses []model.AnalysisRecord
		chats    []model.ChatRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		record, err := s.repos.Profiles.GetByUser(gctx, userID)
		if err != nil {
			if errors.CodeOf(err) == errors.ErrNotFound {
				raw = model.RawProfile{}
				return nil
			}
			return fmt.Errorf("failed to load health profile: %w", err)
		}
		if raw, err = record.Raw(); err != nil {
			// an unreadable document scores like an empty profile
			s.logger.Warn("Ignoring malformed health profile", "user_id", userID.String(), "error", err.Error())
			raw = model.RawProfile{}
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if analyses, err = s.repos.Analyses.ListByUser(gctx, userID); err != nil {
			return fmt.Errorf("failed to load analyses: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if chats, err = s.repos.Chats.ListByUser(gctx, userID); err != nil {
			return fmt.Errorf("failed to load chats: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := s.now()
	profile := core.ParseProfile(core.NormalizeRaw(raw), now)
	score := s.calc.Score(ctx, userID, profile, analyses)
	s.metrics.ScoreSource.WithLabelValues(string(score.Source)).Inc()

	result := core.Summarize(core.SummaryInput{
		UserID:      userID,
		Score:       score,
		Trends:      core.AnalyzeTrends(analyses, s.names),
		Explanation: core.Explain(score, s.cfg.Locale),
		Analyses:    analyses,
		Chats:       chats,
		Now:         now,
	})

	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal analytics: %w", err)
	}
	if err := s.repos.Analytics.Upsert(ctx, &model.AnalyticsRecord{
		UserID:        userID,
		AnalyticsData: data,
		UpdatedAt:     result.LastUpdated,
	}); err != nil {
		return nil, fmt.Errorf("failed to store analytics: %w", err)
	}

	s.cache.Set(userID.String(), &result, cache.DefaultExpiration)

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, AnalyticsChannel(userID), data); err != nil {
			s.logger.Warn("Failed to publish analytics update", "user_id", userID.String(), "error", err.Error())
		}
	}

	s.logger.Debug("Analytics generated",
		"user_id", userID.String(),
		"health_score", result.HealthScore,
		"score_source", string(result.ScoreSource))
	return &result, nil
}

// Trigger schedules an asynchronous regeneration. It never blocks.
func (s *Service) Trigger(userID uuid.UUID) {
	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	if s.running[userID] {
		s.dirty[userID] = true
		s.mu.Unlock()
		s.metrics.AnalyticsCoalesced.Inc()
		return
	}
	s.running[userID] = true
	s.wg.Add(1)
	s.mu.Unlock()

	go s.regenerate(userID)
}

func (s *Service) regenerate(userID uuid.UUID) {
	defer s.wg.Done()

	for {
		if err := s.generateWithRetry(userID); err != nil {
			s.logger.Error(err, "Analytics regeneration failed", "user_id", userID.String())
		}

		s.mu.Lock()
		if !s.dirty[userID] || s.ctx.Err() != nil {
			delete(s.running, userID)
			delete(s.dirty, userID)
			s.mu.Unlock()
			return
		}
		delete(s.dirty, userID)
		s.mu.Unlock()
	}
}

func (s *Service) generateWithRetry(userID uuid.UUID) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.cfg.RetryInterval
	policy.MaxElapsedTime = 0

	return backoff.Retry(func() error {
		s.awaitRun(userID)
		_, err := s.Generate(s.ctx, userID)
		if err != nil && errors.CodeOf(err) == errors.ErrBadRequest {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(policy, s.cfg.RegenerateRetries), s.ctx))
}

// Get returns the snapshot from memory, then the database, generating it when none exists.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*model.CachedAnalytics, error) {
	if v, ok := s.cache.Get(userID.String()); ok {
		s.metrics.AnalyticsCacheHits.WithLabelValues(layerMemory).Inc()
		snapshot := *v.(*model.CachedAnalytics)
		return &snapshot, nil
	}

	record, err := s.repos.Analytics.Get(ctx, userID)
	switch {
	case err == nil:
		var snapshot model.CachedAnalytics
		if err := json.Unmarshal(record.AnalyticsData, &snapshot); err == nil {
			s.metrics.AnalyticsCacheHits.WithLabelValues(layerDatabase).Inc()
			s.cache.Set(userID.String(), &snapshot, cache.DefaultExpiration)
			result := snapshot
			return &result, nil
		}
		s.logger.Warn("Regenerating unreadable analytics snapshot", "user_id", userID.String())
	case errors.CodeOf(err) != errors.ErrNotFound:
		return nil, err
	}

	s.metrics.AnalyticsCacheHits.WithLabelValues(layerGenerated).Inc()
	return s.Generate(ctx, userID)
}

// Invalidate drops the in-memory snapshot of userID
func (s *Service) Invalidate(userID uuid.UUID) {
	s.cache.Delete(userID.String())
}

// Close stops pending regenerations and waits for every running computation,
// including ones whose callers already gave up, to return
func (s *Service) Close() {
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()
	s.wg.Wait()
}
