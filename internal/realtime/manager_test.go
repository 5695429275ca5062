package realtime

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/health-analytics/internal/model"
	"github.com/jwalitptl/health-analytics/internal/service/notification"
	"github.com/jwalitptl/health-analytics/pkg/logger"
	"github.com/jwalitptl/health-analytics/pkg/messaging"
	redisbroker "github.com/jwalitptl/health-analytics/pkg/messaging/redis"
	"github.com/jwalitptl/health-analytics/pkg/metrics"
	"github.com/jwalitptl/health-analytics/pkg/worker"
)

var testConfig = Config{BaseDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond, MaxAttempts: 3}

type fakeRegen struct {
	mu    sync.Mutex
	users []uuid.UUID
}

func (f *fakeRegen) Trigger(userID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, userID)
}

func (f *fakeRegen) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users)
}

type fakeNotifier struct {
	mu      sync.Mutex
	notices []notification.Notice
}

func (f *fakeNotifier) Notify(_ context.Context, n notification.Notice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, n)
	return nil
}

func (f *fakeNotifier) all() []notification.Notice {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notification.Notice(nil), f.notices...)
}

// scriptedSubscriber fails while failures > 0 and otherwise hands out streams the test controls
type scriptedSubscriber struct {
	mu       sync.Mutex
	failures int
	calls    int
	streams  chan chan messaging.Message
}

func newScriptedSubscriber(failures int) *scriptedSubscriber {
	return &scriptedSubscriber{failures: failures, streams: make(chan chan messaging.Message, 10)}
}

func (s *scriptedSubscriber) Subscribe(ctx context.Context, channels ...string) (<-chan messaging.Message, error) {
	s.mu.Lock()
	s.calls++
	if s.failures != 0 {
		if s.failures > 0 {
			s.failures--
		}
		s.mu.Unlock()
		return nil, fmt.Errorf("connection refused")
	}
	s.mu.Unlock()

	ch := make(chan messaging.Message, 1)
	s.streams <- ch
	return ch, nil
}

func (s *scriptedSubscriber) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *scriptedSubscriber) setFailures(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = n
}

func nextStream(t *testing.T, s *scriptedSubscriber) chan messaging.Message {
	t.Helper()
	select {
	case ch := <-s.streams:
		return ch
	case <-time.After(2 * time.Second):
		t.Fatal("no subscription opened")
		return nil
	}
}

func TestChannels(t *testing.T) {
	userID := uuid.New()
	channels := Channels(userID)

	assert.Equal(t, []string{
		worker.ChangeChannel(model.TableHealthProfiles, userID.String()),
		worker.ChangeChannel(model.TableDailyHealthMetrics, userID.String()),
		worker.ChangeChannel(model.TableMedicalAnalyses, userID.String()),
	}, channels)
	assert.Equal(t, "changes:health_profiles:"+userID.String(), channels[0])
}

func TestManager_TriggersOnChange(t *testing.T) {
	sub := newScriptedSubscriber(0)
	regen := &fakeRegen{}
	m := NewManager(sub, regen, &fakeNotifier{}, testConfig, logger.Nop(), metrics.NewNop())
	defer m.Close()

	userID := uuid.New()
	status, err := m.Start(userID, "user@example.com")
	require.NoError(t, err)
	assert.Contains(t, status.HandleID, userID.String())

	stream := nextStream(t, sub)
	stream <- messaging.Message{Channel: "changes:medical_analyses:" + userID.String()}

	assert.Eventually(t, func() bool { return regen.count() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		s, ok := m.Status(userID)
		return ok && s.Connected
	}, 2*time.Second, 5*time.Millisecond)
}

func TestManager_StartIsIdempotent(t *testing.T) {
	sub := newScriptedSubscriber(0)
	m := NewManager(sub, &fakeRegen{}, nil, testConfig, logger.Nop(), metrics.NewNop())
	defer m.Close()

	userID := uuid.New()
	first, err := m.Start(userID, "")
	require.NoError(t, err)
	second, err := m.Start(userID, "")
	require.NoError(t, err)

	assert.Equal(t, first.HandleID, second.HandleID)
	nextStream(t, sub)
	assert.Equal(t, 1, sub.callCount())
}

func TestManager_ReconnectsAfterLostSubscription(t *testing.T) {
	sub := newScriptedSubscriber(0)
	regen := &fakeRegen{}
	m := NewManager(sub, regen, &fakeNotifier{}, testConfig, logger.Nop(), metrics.NewNop())
	defer m.Close()

	userID := uuid.New()
	_, err := m.Start(userID, "")
	require.NoError(t, err)

	close(nextStream(t, sub))

	stream := nextStream(t, sub)
	stream <- messaging.Message{Channel: "changes:health_profiles:" + userID.String()}

	assert.Eventually(t, func() bool { return regen.count() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, sub.callCount())

	s, ok := m.Status(userID)
	require.True(t, ok)
	assert.Equal(t, 0, s.Attempts)
}

func TestManager_RecoversAfterTransientFailures(t *testing.T) {
	sub := newScriptedSubscriber(2)
	m := NewManager(sub, &fakeRegen{}, &fakeNotifier{}, testConfig, logger.Nop(), metrics.NewNop())
	defer m.Close()

	userID := uuid.New()
	_, err := m.Start(userID, "")
	require.NoError(t, err)

	nextStream(t, sub)
	assert.Equal(t, 3, sub.callCount())
	_, ok := m.Status(userID)
	assert.True(t, ok)
}

func TestManager_GivesUpAndNotifies(t *testing.T) {
	sub := newScriptedSubscriber(-1)
	notifier := &fakeNotifier{}
	m := NewManager(sub, &fakeRegen{}, notifier, testConfig, logger.Nop(), metrics.NewNop())
	defer m.Close()

	userID := uuid.New()
	_, err := m.Start(userID, "user@example.com")
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return len(notifier.all()) == 1 }, 2*time.Second, 5*time.Millisecond)

	notice := notifier.all()[0]
	assert.Equal(t, userID, notice.UserID)
	assert.Equal(t, "user@example.com", notice.Email)
	assert.Equal(t, notification.KindRealtimeLost, notice.Kind)

	// initial subscribe plus MaxAttempts reconnects
	assert.Equal(t, 1+testConfig.MaxAttempts, sub.callCount())
	_, ok := m.Status(userID)
	assert.False(t, ok)
}

func TestManager_FailuresAfterDropResetOnRestart(t *testing.T) {
	sub := newScriptedSubscriber(-1)
	notifier := &fakeNotifier{}
	m := NewManager(sub, &fakeRegen{}, notifier, testConfig, logger.Nop(), metrics.NewNop())
	defer m.Close()

	userID := uuid.New()
	_, err := m.Start(userID, "")
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return len(notifier.all()) == 1 }, 2*time.Second, 5*time.Millisecond)

	sub.setFailures(0)
	_, err = m.Start(userID, "")
	require.NoError(t, err)
	nextStream(t, sub)

	s, ok := m.Status(userID)
	require.True(t, ok)
	assert.Equal(t, 0, s.Attempts)
}

func TestManager_Stop(t *testing.T) {
	sub := newScriptedSubscriber(0)
	m := NewManager(sub, &fakeRegen{}, nil, testConfig, logger.Nop(), metrics.NewNop())
	defer m.Close()

	userID := uuid.New()
	_, err := m.Start(userID, "")
	require.NoError(t, err)
	nextStream(t, sub)

	assert.True(t, m.Stop(userID))
	assert.False(t, m.Stop(userID))
	_, ok := m.Status(userID)
	assert.False(t, ok)
}

func TestManager_CloseRejectsStart(t *testing.T) {
	m := NewManager(newScriptedSubscriber(0), &fakeRegen{}, nil, testConfig, logger.Nop(), metrics.NewNop())
	m.Close()

	_, err := m.Start(uuid.New(), "")
	assert.Error(t, err)
}

func TestManager_WithRedisBroker(t *testing.T) {
	mr := miniredis.RunT(t)
	broker := redisbroker.NewRedisBroker(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), nil)
	t.Cleanup(func() { _ = broker.Close() })

	regen := &fakeRegen{}
	m := NewManager(broker, regen, nil, testConfig, logger.Nop(), metrics.NewNop())
	defer m.Close()

	userID := uuid.New()
	_, err := m.Start(userID, "")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		s, ok := m.Status(userID)
		return ok && s.Connected
	}, 2*time.Second, 5*time.Millisecond)

	channel := worker.ChangeChannel(model.TableDailyHealthMetrics, userID.String())
	require.NoError(t, broker.Publish(context.Background(), channel, map[string]string{"table": model.TableDailyHealthMetrics}))

	assert.Eventually(t, func() bool { return regen.count() == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestManager_BackOffSchedule(t *testing.T) {
	m := NewManager(newScriptedSubscriber(0), &fakeRegen{}, &fakeNotifier{}, Config{}, logger.Nop(), metrics.NewNop())
	b := m.newBackOff()

	expected := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second,
		30 * time.Second,
	}
	for i, want := range expected {
		assert.Equal(t, want, b.NextBackOff(), "delay %d", i+1)
	}

	b.Reset()
	assert.Equal(t, time.Second, b.NextBackOff())
}
