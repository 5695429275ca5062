package analytics

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	core "github.com/jwalitptl/health-analytics/internal/analytics"
	"github.com/jwalitptl/health-analytics/internal/model"
	"github.com/jwalitptl/health-analytics/pkg/errors"
	"github.com/jwalitptl/health-analytics/pkg/logger"
	"github.com/jwalitptl/health-analytics/pkg/metrics"
)

type fakeProfiles struct {
	data []byte
	err  error
}

func (f *fakeProfiles) GetByUser(_ context.Context, userID uuid.UUID) (*model.HealthProfileRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	record := &model.HealthProfileRecord{ProfileData: f.data}
	record.UserID = userID
	return record, nil
}

func (f *fakeProfiles) UpsertTx(context.Context, *sqlx.Tx, *model.HealthProfileRecord) error {
	return nil
}

// fakeAnalyses fails the first failures calls and blocks the first call until release is closed.
// Each call reads the records before blocking.
type fakeAnalyses struct {
	mu       sync.Mutex
	records  []model.AnalysisRecord
	failures int32
	calls    int32
	release  chan struct{}
}

func (f *fakeAnalyses) ListByUser(context.Context, uuid.UUID) ([]model.AnalysisRecord, error) {
	f.mu.Lock()
	records := f.records
	f.mu.Unlock()

	n := atomic.AddInt32(&f.calls, 1)
	if n == 1 && f.release != nil {
		<-f.release
	}
	if n <= atomic.LoadInt32(&f.failures) {
		return nil, errors.Unavailable("database", nil)
	}
	return records, nil
}

func (f *fakeAnalyses) add(record model.AnalysisRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, record)
}

func (f *fakeAnalyses) CreateTx(context.Context, *sqlx.Tx, *model.AnalysisRecord) error { return nil }

type fakeChats struct {
	chats []model.ChatRecord
}

func (f *fakeChats) ListByUser(context.Context, uuid.UUID) ([]model.ChatRecord, error) {
	return f.chats, nil
}
func (f *fakeChats) Get(context.Context, uuid.UUID, uuid.UUID) (*model.ChatRecord, error) {
	return nil, errors.NotFound("chat", nil)
}
func (f *fakeChats) Create(context.Context, *model.ChatRecord) error { return nil }
func (f *fakeChats) AddMessages(context.Context, ...*model.ChatMessage) error { return nil }
func (f *fakeChats) ListMessages(context.Context, uuid.UUID, int) ([]model.ChatMessage, error) {
	return nil, nil
}

type fakeStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*model.AnalyticsRecord
	upserts int
	gets    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[uuid.UUID]*model.AnalyticsRecord{}}
}

func (f *fakeStore) Get(_ context.Context, userID uuid.UUID) (*model.AnalyticsRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if r, ok := f.records[userID]; ok {
		return r, nil
	}
	return nil, errors.NotFound("analytics", nil)
}

func (f *fakeStore) Upsert(_ context.Context, record *model.AnalyticsRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	f.records[record.UserID] = record
	return nil
}

func (f *fakeStore) upsertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.upserts
}

type fakePublisher struct {
	mu       sync.Mutex
	channels []string
}

func (f *fakePublisher) Publish(_ context.Context, channel string, _ interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels = append(f.channels, channel)
	return nil
}

type fakeEdge struct {
	items []model.Recommendation
	err   error
	wait  bool
}

func (f *fakeEdge) Invoke(ctx context.Context, _ string, _ interface{}, out interface{}) error {
	if f.wait {
		<-ctx.Done()
		return errors.Timeout("edge", ctx.Err())
	}
	if f.err != nil {
		return f.err
	}
	return json.Unmarshal(mustJSON(recommendationsResponse{Recommendations: f.items}), out)
}

func mustJSON(v interface{}) []byte {
	b, _ := json.Marshal(v)
	return b
}

type fixture struct {
	svc       *Service
	analyses  *fakeAnalyses
	store     *fakeStore
	publisher *fakePublisher
	edge      *fakeEdge
}

func newFixture(t *testing.T, analyses *fakeAnalyses) *fixture {
	t.Helper()
	if analyses == nil {
		analyses = &fakeAnalyses{}
	}
	f := &fixture{
		analyses:  analyses,
		store:     newFakeStore(),
		publisher: &fakePublisher{},
		edge:      &fakeEdge{},
	}
	f.svc = NewService(Repositories{
		Profiles:  &fakeProfiles{data: []byte(`{"age":30,"physical_activity":"moderate","sleep_hours":8,"stress_level":4}`)},
		Analyses:  analyses,
		Chats:     &fakeChats{chats: []model.ChatRecord{{Base: model.Base{ID: uuid.New(), CreatedAt: time.Now()}}}},
		Analytics: f.store,
	}, core.NewCalculator(nil, nil), f.edge, f.publisher, Config{
		RegenerateRetries:      3,
		RetryInterval:          time.Millisecond,
		RecommendationsTimeout: 50 * time.Millisecond,
	}, logger.Nop(), metrics.NewNop())
	t.Cleanup(f.svc.Close)
	return f
}

func TestService_Generate(t *testing.T) {
	f := newFixture(t, nil)
	userID := uuid.New()

	snapshot, err := f.svc.Generate(context.Background(), userID)
	require.NoError(t, err)

	assert.Equal(t, userID, snapshot.UserID)
	assert.Equal(t, model.ScoreSourceHeuristic, snapshot.ScoreSource)
	assert.Equal(t, 1, snapshot.TotalConsultations)
	assert.NotEmpty(t, snapshot.HealthScoreExplanation)
	assert.Equal(t, 1, f.store.upsertCount())
	assert.Equal(t, []string{"user_analytics:" + userID.String()}, f.publisher.channels)

	var stored model.CachedAnalytics
	require.NoError(t, json.Unmarshal(f.store.records[userID].AnalyticsData, &stored))
	assert.Equal(t, snapshot.HealthScore, stored.HealthScore)
}

func TestService_Generate_FailureKeepsPreviousSnapshot(t *testing.T) {
	f := newFixture(t, &fakeAnalyses{failures: 100})
	userID := uuid.New()
	previous := &model.AnalyticsRecord{UserID: userID, AnalyticsData: []byte(`{"health_score":77}`)}
	f.store.records[userID] = previous

	_, err := f.svc.Generate(context.Background(), userID)
	require.Error(t, err)
	assert.Equal(t, errors.ErrUnavailable, errors.CodeOf(err))
	assert.Zero(t, f.store.upsertCount())
	assert.Same(t, previous, f.store.records[userID])
	assert.Empty(t, f.publisher.channels)
}

func TestService_Generate_MissingProfileUsesDefaults(t *testing.T) {
	f := newFixture(t, nil)
	f.svc.repos.Profiles = &fakeProfiles{err: errors.NotFound("health profile", nil)}

	snapshot, err := f.svc.Generate(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Greater(t, snapshot.HealthScore, 0.0)
}

func TestService_Generate_CoalescesConcurrentCalls(t *testing.T) {
	analyses := &fakeAnalyses{release: make(chan struct{})}
	f := newFixture(t, analyses)
	userID := uuid.New()

	var wg sync.WaitGroup
	results := make([]*model.CachedAnalytics, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snapshot, err := f.svc.Generate(context.Background(), userID)
			assert.NoError(t, err)
			results[i] = snapshot
		}(i)
	}

	require.Eventually(t, func() bool { return atomic.LoadInt32(&analyses.calls) == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(analyses.release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&analyses.calls))
	assert.Equal(t, 1, f.store.upsertCount())
	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, results[0].HealthScore, r.HealthScore)
	}
}

func TestService_Trigger_CollapsesIntoOneFollowUp(t *testing.T) {
	analyses := &fakeAnalyses{release: make(chan struct{})}
	f := newFixture(t, analyses)
	userID := uuid.New()

	f.svc.Trigger(userID)
	require.Eventually(t, func() bool { return atomic.LoadInt32(&analyses.calls) == 1 }, time.Second, time.Millisecond)

	for i := 0; i < 4; i++ {
		f.svc.Trigger(userID)
	}
	close(analyses.release)

	require.Eventually(t, func() bool { return f.store.upsertCount() == 2 }, time.Second, time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(2), atomic.LoadInt32(&analyses.calls))
	assert.Equal(t, 2, f.store.upsertCount())
}

func TestService_Trigger_DuringManualGenerateRunsFollowUp(t *testing.T) {
	analyses := &fakeAnalyses{release: make(chan struct{})}
	f := newFixture(t, analyses)
	userID := uuid.New()

	manual := make(chan *model.CachedAnalytics, 1)
	go func() {
		snapshot, err := f.svc.Generate(context.Background(), userID)
		assert.NoError(t, err)
		manual <- snapshot
	}()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&analyses.calls) == 1 }, time.Second, time.Millisecond)

	analyses.add(model.AnalysisRecord{Base: model.Base{ID: uuid.New(), CreatedAt: time.Now()}, AnalysisType: "blood_test"})
	f.svc.Trigger(userID)
	close(analyses.release)

	select {
	case snapshot := <-manual:
		require.NotNil(t, snapshot)
		assert.Equal(t, 0, snapshot.TotalAnalyses)
	case <-time.After(time.Second):
		t.Fatal("manual generation did not return")
	}

	require.Eventually(t, func() bool { return f.store.upsertCount() == 2 }, time.Second, time.Millisecond)
	f.svc.Close()

	assert.Equal(t, int32(2), atomic.LoadInt32(&analyses.calls))
	var stored model.CachedAnalytics
	require.NoError(t, json.Unmarshal(f.store.records[userID].AnalyticsData, &stored))
	assert.Equal(t, 1, stored.TotalAnalyses)
}

func TestService_Close_WaitsForAbandonedGeneration(t *testing.T) {
	analyses := &fakeAnalyses{release: make(chan struct{})}
	f := newFixture(t, analyses)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := f.svc.Generate(ctx, uuid.New())
		errc <- err
	}()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&analyses.calls) == 1 }, time.Second, time.Millisecond)

	cancel()
	assert.Equal(t, errors.ErrTimeout, errors.CodeOf(<-errc))

	closed := make(chan struct{})
	go func() {
		f.svc.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("Close returned while a generation was still running")
	case <-time.After(30 * time.Millisecond):
	}

	close(analyses.release)
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}
	assert.Equal(t, 1, f.store.upsertCount())

	_, err := f.svc.Generate(context.Background(), uuid.New())
	assert.Equal(t, errors.ErrUnavailable, errors.CodeOf(err))
}

func TestService_Trigger_RetriesTransientFailures(t *testing.T) {
	analyses := &fakeAnalyses{failures: 2}
	f := newFixture(t, analyses)

	f.svc.Trigger(uuid.New())

	require.Eventually(t, func() bool { return f.store.upsertCount() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, int32(3), atomic.LoadInt32(&analyses.calls))
}

func TestService_Get_Layers(t *testing.T) {
	f := newFixture(t, nil)
	userID := uuid.New()
	f.store.records[userID] = &model.AnalyticsRecord{UserID: userID, AnalyticsData: []byte(`{"health_score":64,"risk_level":"moderate"}`)}

	snapshot, err := f.svc.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 64.0, snapshot.HealthScore)
	assert.Zero(t, atomic.LoadInt32(&f.analyses.calls))

	_, err = f.svc.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.gets)

	other := uuid.New()
	generated, err := f.svc.Get(context.Background(), other)
	require.NoError(t, err)
	assert.Equal(t, other, generated.UserID)
	assert.Equal(t, 1, f.store.upsertCount())
}

func TestService_Recommendations(t *testing.T) {
	t.Run("backend answer", func(t *testing.T) {
		f := newFixture(t, nil)
		f.edge.items = []model.Recommendation{{Title: "Walk", Body: "Walk daily", Priority: core.PriorityMedium}}

		recs, err := f.svc.Recommendations(context.Background(), uuid.New(), core.LocaleEN)
		require.NoError(t, err)
		assert.False(t, recs.Fallback)
		assert.Equal(t, "Walk", recs.Items[0].Title)
	})

	t.Run("backend error", func(t *testing.T) {
		f := newFixture(t, nil)
		f.edge.err = errors.Unavailable("edge", nil)

		recs, err := f.svc.Recommendations(context.Background(), uuid.New(), core.LocaleRU)
		require.NoError(t, err)
		assert.True(t, recs.Fallback)
		assert.NotEmpty(t, recs.Items)
	})

	t.Run("backend timeout", func(t *testing.T) {
		f := newFixture(t, nil)
		f.edge.wait = true

		start := time.Now()
		recs, err := f.svc.Recommendations(context.Background(), uuid.New(), core.LocaleEN)
		require.NoError(t, err)
		assert.True(t, recs.Fallback)
		assert.Less(t, time.Since(start), time.Second)
	})
}

func TestLocalize(t *testing.T) {
	snapshot := &model.CachedAnalytics{
		HealthScore:            90,
		ScoreSource:            model.ScoreSourceHeuristic,
		HealthScoreExplanation: "ru text",
		Adjustments:            []model.Adjustment{{Factor: model.FactorSleep, Band: "optimal", Value: 8, Delta: 5}},
	}

	en := Localize(snapshot, core.LocaleEN)
	assert.NotEqual(t, "ru text", en.HealthScoreExplanation)
	assert.Equal(t, "ru text", snapshot.HealthScoreExplanation)
}
