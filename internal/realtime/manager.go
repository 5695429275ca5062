package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/jwalitptl/health-analytics/internal/model"
	"github.com/jwalitptl/health-analytics/internal/service/notification"
	"github.com/jwalitptl/health-analytics/pkg/logger"
	"github.com/jwalitptl/health-analytics/pkg/messaging"
	"github.com/jwalitptl/health-analytics/pkg/metrics"
	"github.com/jwalitptl/health-analytics/pkg/worker"
)

// WatchedTables are the tables whose changes regenerate analytics
var WatchedTables = []string{
	model.TableHealthProfiles,
	model.TableDailyHealthMetrics,
	model.TableMedicalAnalyses,
}

// Subscriber opens a message stream on channels. The stream closes when ctx ends or the
// subscription is lost.
type Subscriber interface {
	Subscribe(ctx context.Context, channels ...string) (<-chan messaging.Message, error)
}

// Regenerator is told about every change of a watched user
type Regenerator interface {
	Trigger(userID uuid.UUID)
}

type Config struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
}

// Status describes the live subscription of one user
type Status struct {
	HandleID  string    `json:"handle_id"`
	UserID    uuid.UUID `json:"user_id"`
	Connected bool      `json:"connected"`
	Attempts  int       `json:"reconnect_attempts"`
	StartedAt time.Time `json:"started_at"`
}

type handle struct {
	id        string
	userID    uuid.UUID
	email     string
	startedAt time.Time
	connected bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// Manager owns one change subscription per user and reconnects lost ones with exponential
// backoff. After MaxAttempts failed reconnects the user is notified and the handle dropped.
type Manager struct {
	sub      Subscriber
	regen    Regenerator
	notifier notification.Notifier
	cfg      Config
	logger   *logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	mu       sync.Mutex
	handles  map[uuid.UUID]*handle
	attempts map[uuid.UUID]int
	closed   bool
}

func NewManager(sub Subscriber, regen Regenerator, notifier notification.Notifier, cfg Config, log *logger.Logger, m *metrics.Metrics) *Manager {
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = 30 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &Manager{
		sub:      sub,
		regen:    regen,
		notifier: notifier,
		cfg:      cfg,
		logger:   log,
		metrics:  m,
		now:      time.Now,
		handles:  make(map[uuid.UUID]*handle),
		attempts: make(map[uuid.UUID]int),
	}
}

// Channels returns the change channels watched for userID
func Channels(userID uuid.UUID) []string {
	channels := make([]string, 0, len(WatchedTables))
	for _, table := range WatchedTables {
		channels = append(channels, worker.ChangeChannel(table, userID.String()))
	}
	return channels
}

// Start subscribes userID to its change channels. Starting an already watched user
// returns the existing subscription.
func (m *Manager) Start(userID uuid.UUID, email string) (*Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("realtime manager is closed")
	}
	if h, ok := m.handles[userID]; ok {
		return m.statusLocked(h), nil
	}

	now := m.now()
	ctx, cancel := context.WithCancel(context.Background())
	h := &handle{
		id:        fmt.Sprintf("analytics-%s-%d", userID, now.UnixMilli()),
		userID:    userID,
		email:     email,
		startedAt: now,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	m.handles[userID] = h
	m.attempts[userID] = 0
	m.metrics.RealtimeSubscriptions.Inc()

	go m.run(ctx, h)

	m.logger.Info("Realtime subscription started", "user_id", userID.String(), "handle_id", h.id)
	return m.statusLocked(h), nil
}

// Stop disposes the subscription of userID. It reports whether one existed.
func (m *Manager) Stop(userID uuid.UUID) bool {
	m.mu.Lock()
	h, ok := m.handles[userID]
	if ok {
		m.removeLocked(h)
	}
	m.mu.Unlock()

	if !ok {
		return false
	}
	h.cancel()
	<-h.done
	m.logger.Info("Realtime subscription stopped", "user_id", userID.String(), "handle_id", h.id)
	return true
}

// Status returns the subscription of userID, if any
func (m *Manager) Status(userID uuid.UUID) (*Status, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.handles[userID]
	if !ok {
		return nil, false
	}
	return m.statusLocked(h), true
}

// Close stops every subscription and refuses new ones
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	handles := make([]*handle, 0, len(m.handles))
	for _, h := range m.handles {
		handles = append(handles, h)
		m.removeLocked(h)
	}
	m.mu.Unlock()

	for _, h := range handles {
		h.cancel()
		<-h.done
	}
}

func (m *Manager) statusLocked(h *handle) *Status {
	return &Status{
		HandleID:  h.id,
		UserID:    h.userID,
		Connected: h.connected,
		Attempts:  m.attempts[h.userID],
		StartedAt: h.startedAt,
	}
}

func (m *Manager) removeLocked(h *handle) {
	if m.handles[h.userID] != h {
		return
	}
	delete(m.handles, h.userID)
	delete(m.attempts, h.userID)
	m.metrics.RealtimeSubscriptions.Dec()
}

func (m *Manager) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = m.cfg.BaseDelay
	b.MaxInterval = m.cfg.MaxDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func (m *Manager) run(ctx context.Context, h *handle) {
	defer close(h.done)

	channels := Channels(h.userID)
	delays := m.newBackOff()
	attempt := 0

	for {
		msgs, err := m.sub.Subscribe(ctx, channels...)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			if attempt > 0 {
				m.metrics.RealtimeReconnects.WithLabelValues("success").Inc()
			}
			attempt = 0
			delays.Reset()
			m.setState(h, true, 0)

			m.consume(ctx, h, msgs)
			if ctx.Err() != nil {
				return
			}
			err = fmt.Errorf("subscription lost")
		} else if attempt > 0 {
			m.metrics.RealtimeReconnects.WithLabelValues("error").Inc()
		}

		attempt++
		if attempt > m.cfg.MaxAttempts {
			m.giveUp(ctx, h, err)
			return
		}
		m.setState(h, false, attempt)

		delay := delays.NextBackOff()
		m.logger.Warn("Realtime subscription failed, reconnecting",
			"user_id", h.userID.String(),
			"attempt", attempt,
			"delay", delay.String(),
			"error", err.Error())

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (m *Manager) consume(ctx context.Context, h *handle, msgs <-chan messaging.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			m.logger.Debug("Change received", "user_id", h.userID.String(), "channel", msg.Channel)
			m.regen.Trigger(h.userID)
		}
	}
}

func (m *Manager) setState(h *handle, connected bool, attempts int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h.connected = connected
	if m.handles[h.userID] == h {
		m.attempts[h.userID] = attempts
	}
}

func (m *Manager) giveUp(ctx context.Context, h *handle, cause error) {
	m.metrics.RealtimeReconnects.WithLabelValues("exhausted").Inc()
	m.logger.Error(cause, "Realtime subscription abandoned",
		"user_id", h.userID.String(),
		"handle_id", h.id,
		"attempts", m.cfg.MaxAttempts)

	m.mu.Lock()
	m.removeLocked(h)
	m.mu.Unlock()

	if m.notifier == nil {
		return
	}
	notice := notification.Notice{
		UserID:    h.userID,
		Email:     h.email,
		Kind:      notification.KindRealtimeLost,
		Title:     "Автообновление аналитики остановлено",
		Body:      "Не удалось восстановить соединение для обновления аналитики в реальном времени. Обновите страницу, чтобы возобновить обновления.",
		CreatedAt: m.now().UTC(),
	}
	if err := m.notifier.Notify(context.WithoutCancel(ctx), notice); err != nil {
		m.logger.Error(err, "Failed to notify about lost realtime subscription", "user_id", h.userID.String())
	}
}
