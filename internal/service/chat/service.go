package chat

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwalitptl/health-analytics/internal/model"
	"github.com/jwalitptl/health-analytics/internal/repository"
	"github.com/jwalitptl/health-analytics/pkg/edge"
	"github.com/jwalitptl/health-analytics/pkg/errors"
	"github.com/jwalitptl/health-analytics/pkg/logger"
	"github.com/jwalitptl/health-analytics/pkg/metrics"
)

const (
	maxMessageLength = 4000
	maxTitleLength   = 60
	historySize      = 20
	counterTTL       = 24 * time.Hour
)

type doctorRequest struct {
	UserID  uuid.UUID           `json:"user_id"`
	Message string              `json:"message"`
	History []model.ChatMessage `json:"history"`
}

type doctorResponse struct {
	Reply string `json:"reply"`
}

// Service runs AI doctor conversations under a per-user daily message quota kept in Redis
type Service struct {
	chats   repository.ChatRepository
	redis   *redis.Client
	edge    edge.Invoker
	limit   int
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(chats repository.ChatRepository, rdb *redis.Client, invoker edge.Invoker, dailyLimit int, log *logger.Logger, m *metrics.Metrics) *Service {
	return &Service{
		chats:   chats,
		redis:   rdb,
		edge:    invoker,
		limit:   dailyLimit,
		logger:  log,
		metrics: m,
		now:     time.Now,
	}
}

// CounterKey is the Redis key holding the number of messages userID sent on day
func CounterKey(userID uuid.UUID, day time.Time) string {
	return fmt.Sprintf("ai_doctor_messages:%s:%s", userID, day.UTC().Format("2006-01-02"))
}

func (s *Service) SendMessage(ctx context.Context, userID uuid.UUID, req *model.SendMessageRequest) (*model.SendMessageResponse, error) {
	text := strings.TrimSpace(req.Message)
	if text == "" {
		return nil, errors.BadRequest("message must not be empty", nil)
	}
	if utf8.RuneCountInString(text) > maxMessageLength {
		return nil, errors.BadRequest(fmt.Sprintf("message must be at most %d characters", maxMessageLength), nil)
	}

	var (
		chat    *model.ChatRecord
		history []model.ChatMessage
	)
	if req.ChatID != "" {
		chatID, err := uuid.Parse(req.ChatID)
		if err != nil {
			return nil, errors.BadRequest("invalid chat_id", err)
		}
		if chat, err = s.chats.Get(ctx, userID, chatID); err != nil {
			return nil, err
		}
		if history, err = s.chats.ListMessages(ctx, chat.ID, historySize); err != nil {
			return nil, err
		}
	}

	key := CounterKey(userID, s.now())
	used, err := s.reserve(ctx, key)
	if err != nil {
		return nil, err
	}

	var resp doctorResponse
	err = s.edge.Invoke(ctx, edge.FunctionDoctorChat, doctorRequest{
		UserID:  userID,
		Message: text,
		History: history,
	}, &resp)
	if err == nil && strings.TrimSpace(resp.Reply) == "" {
		err = errors.Unavailable("ai doctor", fmt.Errorf("empty reply"))
	}
	if err != nil {
		s.release(ctx, key)
		return nil, err
	}

	if chat == nil {
		chat = &model.ChatRecord{Title: title(text)}
		chat.UserID = userID
		if err := s.chats.Create(ctx, chat); err != nil {
			return nil, err
		}
	}

	question := &model.ChatMessage{ChatID: chat.ID, Role: model.ChatRoleUser, Content: text}
	answer := &model.ChatMessage{ChatID: chat.ID, Role: model.ChatRoleAssistant, Content: resp.Reply}
	if err := s.chats.AddMessages(ctx, question, answer); err != nil {
		return nil, err
	}

	return &model.SendMessageResponse{
		ChatID:    chat.ID,
		Reply:     *answer,
		Remaining: max(s.limit-used, 0),
	}, nil
}

// reserve counts one message against today's quota and returns the new count
func (s *Service) reserve(ctx context.Context, key string) (int, error) {
	n, err := s.redis.Incr(ctx, key).Result()
	s.metrics.RedisOperations.WithLabelValues("incr", metrics.Status(err)).Inc()
	if err != nil {
		return 0, errors.Unavailable("message counter", err)
	}
	if n == 1 {
		if err := s.redis.Expire(ctx, key, counterTTL).Err(); err != nil {
			s.logger.Warn("Failed to set message counter expiry", "key", key, "error", err.Error())
		}
	}
	if int(n) > s.limit {
		s.release(ctx, key)
		return 0, errors.TooManyRequests(fmt.Sprintf("daily limit of %d messages reached", s.limit))
	}
	return int(n), nil
}

func (s *Service) release(ctx context.Context, key string) {
	err := s.redis.Decr(context.WithoutCancel(ctx), key).Err()
	s.metrics.RedisOperations.WithLabelValues("decr", metrics.Status(err)).Inc()
	if err != nil {
		s.logger.Warn("Failed to release message quota", "key", key, "error", err.Error())
	}
}

func (s *Service) Usage(ctx context.Context, userID uuid.UUID) (*model.ChatUsage, error) {
	now := s.now()
	used, err := s.redis.Get(ctx, CounterKey(userID, now)).Int()
	s.metrics.RedisOperations.WithLabelValues("get", metrics.Status(err)).Inc()
	if err != nil && err != redis.Nil {
		return nil, errors.Unavailable("message counter", err)
	}

	return &model.ChatUsage{
		Date:      now.UTC().Format("2006-01-02"),
		Used:      used,
		Limit:     s.limit,
		Remaining: max(s.limit-used, 0),
	}, nil
}

func (s *Service) ListChats(ctx context.Context, userID uuid.UUID) ([]model.ChatRecord, error) {
	return s.chats.ListByUser(ctx, userID)
}

func title(text string) string {
	if utf8.RuneCountInString(text) <= maxTitleLength {
		return text
	}
	return string([]rune(text)[:maxTitleLength]) + "…"
}
