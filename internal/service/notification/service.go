package notification

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/health-analytics/internal/email"
	"github.com/jwalitptl/health-analytics/pkg/messaging"
)

// Notice kinds
const (
	KindRealtimeLost = "realtime_connection_lost"
)

// Notice is one user-facing message. Email is optional; without it only in-app delivery happens.
type Notice struct {
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"-"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type Notifier interface {
	Notify(ctx context.Context, notice Notice) error
}

// Channel is the broker channel in-app notices of a user are published on
func Channel(userID uuid.UUID) string {
	return "notifications:" + userID.String()
}

type brokerNotifier struct {
	publisher messaging.Publisher
}

func NewBrokerNotifier(publisher messaging.Publisher) Notifier {
	return &brokerNotifier{publisher: publisher}
}

func (n *brokerNotifier) Notify(ctx context.Context, notice Notice) error {
	if notice.CreatedAt.IsZero() {
		notice.CreatedAt = time.Now().UTC()
	}
	if err := n.publisher.Publish(ctx, Channel(notice.UserID), notice); err != nil {
		return fmt.Errorf("failed to publish notice: %w", err)
	}
	return nil
}

type emailNotifier struct {
	email email.Service
}

func NewEmailNotifier(svc email.Service) Notifier {
	return &emailNotifier{email: svc}
}

func (n *emailNotifier) Notify(ctx context.Context, notice Notice) error {
	if notice.Email == "" {
		return nil
	}
	return n.email.Send(ctx, notice.Email, notice.Title, notice.Body)
}

type multiNotifier []Notifier

// NewMultiNotifier delivers every notice through all notifiers and joins their errors
func NewMultiNotifier(notifiers ...Notifier) Notifier {
	return multiNotifier(notifiers)
}

func (m multiNotifier) Notify(ctx context.Context, notice Notice) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, notice); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}
