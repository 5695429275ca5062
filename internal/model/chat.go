package model

import (
	"time"

	"github.com/google/uuid"
)

// ChatRecord is one AI doctor conversation; only counted, never analyzed
type ChatRecord struct {
	Base
	Title string `db:"title" json:"title"`
}

// ChatMessage is one message of an AI doctor conversation
type ChatMessage struct {
	ID        uuid.UUID `db:"id" json:"id"`
	ChatID    uuid.UUID `db:"chat_id" json:"chat_id"`
	Role      string    `db:"role" json:"role"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// SendMessageRequest is the body of POST /users/:userId/chat/messages
type SendMessageRequest struct {
	ChatID  string `json:"chat_id" binding:"omitempty,uuid"`
	Message string `json:"message" binding:"required,max=4000"`
}

// SendMessageResponse carries the assistant reply and remaining daily quota
type SendMessageResponse struct {
	ChatID    uuid.UUID   `json:"chat_id"`
	Reply     ChatMessage `json:"reply"`
	Remaining int         `json:"remaining"`
}

// ChatUsage reports today's message counter for a user
type ChatUsage struct {
	Date      string `json:"date"`
	Used      int    `json:"used"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
}
