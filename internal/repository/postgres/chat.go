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

type chatRepository struct {
	BaseRepository
}

func NewChatRepository(base BaseRepository) repository.ChatRepository {
	return &chatRepository{base}
}

func (r *chatRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.ChatRecord, error) {
	query := `
		SELECT id, user_id, title, created_at, updated_at
		FROM ai_doctor_chats
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	var chats []model.ChatRecord
	if err := r.db.SelectContext(ctx, &chats, query, userID); err != nil {
		return nil, errors.FromDB("chats", err)
	}
	return chats, nil
}

func (r *chatRepository) Get(ctx context.Context, userID, chatID uuid.UUID) (*model.ChatRecord, error) {
	query := `
		SELECT id, user_id, title, created_at, updated_at
		FROM ai_doctor_chats
		WHERE id = $1 AND user_id = $2
	`
	var chat model.ChatRecord
	if err := r.db.GetContext(ctx, &chat, query, chatID, userID); err != nil {
		return nil, errors.FromDB("chat", err)
	}
	return &chat, nil
}

func (r *chatRepository) Create(ctx context.Context, chat *model.ChatRecord) error {
	query := `
		INSERT INTO ai_doctor_chats (id, user_id, title, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
	`
	if chat.ID == uuid.Nil {
		chat.ID = uuid.New()
	}
	chat.CreatedAt = time.Now().UTC()
	chat.UpdatedAt = chat.CreatedAt

	if _, err := r.db.ExecContext(ctx, query, chat.ID, chat.UserID, chat.Title, chat.CreatedAt); err != nil {
		return errors.FromDB("chat", err)
	}
	return nil
}

// AddMessages stores all messages atomically and bumps the chat's updated_at
func (r *chatRepository) AddMessages(ctx context.Context, messages ...*model.ChatMessage) error {
	if len(messages) == 0 {
		return nil
	}
	insert := `
		INSERT INTO ai_doctor_messages (id, chat_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	touch := `UPDATE ai_doctor_chats SET updated_at = $1 WHERE id = $2`

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		now := time.Now().UTC()
		for i, m := range messages {
			if m.ID == uuid.Nil {
				m.ID = uuid.New()
			}
			// keep insertion order stable for equal timestamps
			m.CreatedAt = now.Add(time.Duration(i) * time.Microsecond)
			if _, err := tx.ExecContext(ctx, insert, m.ID, m.ChatID, m.Role, m.Content, m.CreatedAt); err != nil {
				return errors.FromDB("chat message", err)
			}
		}
		if _, err := tx.ExecContext(ctx, touch, now, messages[0].ChatID); err != nil {
			return errors.FromDB("chat", err)
		}
		return nil
	})
}

// ListMessages returns the latest limit messages in chronological order
func (r *chatRepository) ListMessages(ctx context.Context, chatID uuid.UUID, limit int) ([]model.ChatMessage, error) {
	query := `
		SELECT id, chat_id, role, content, created_at FROM (
			SELECT id, chat_id, role, content, created_at
			FROM ai_doctor_messages
			WHERE chat_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC
	`
	var messages []model.ChatMessage
	if err := r.db.SelectContext(ctx, &messages, query, chatID, limit); err != nil {
		return nil, errors.FromDB("chat messages", err)
	}
	return messages, nil
}
