package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisbroker "github.com/jwalitptl/health-analytics/pkg/messaging/redis"
)

type fakeEmail struct {
	to, subject string
	err         error
}

func (f *fakeEmail) Send(_ context.Context, to, subject, _ string) error {
	f.to, f.subject = to, subject
	return f.err
}

type fakeNotifier struct {
	calls int
	err   error
}

func (f *fakeNotifier) Notify(context.Context, Notice) error {
	f.calls++
	return f.err
}

func TestBrokerNotifier_PublishesToUserChannel(t *testing.T) {
	mr := miniredis.RunT(t)
	broker := redisbroker.NewRedisBroker(redis.NewClient(&redis.Options{Addr: mr.Addr()}), nil)
	t.Cleanup(func() { _ = broker.Close() })

	userID := uuid.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	msgs, err := broker.Subscribe(ctx, Channel(userID))
	require.NoError(t, err)

	require.NoError(t, NewBrokerNotifier(broker).Notify(ctx, Notice{UserID: userID, Kind: KindRealtimeLost, Title: "t", Email: "hidden@example.com"}))

	select {
	case m := <-msgs:
		var got map[string]interface{}
		require.NoError(t, json.Unmarshal(m.Payload, &got))
		assert.Equal(t, KindRealtimeLost, got["kind"])
		assert.NotContains(t, got, "email")
		assert.NotEmpty(t, got["created_at"])
	case <-time.After(2 * time.Second):
		t.Fatal("notice not received")
	}
}

func TestEmailNotifier(t *testing.T) {
	mail := &fakeEmail{}
	n := NewEmailNotifier(mail)

	require.NoError(t, n.Notify(context.Background(), Notice{Title: "no address"}))
	assert.Empty(t, mail.to)

	require.NoError(t, n.Notify(context.Background(), Notice{Email: "user@example.com", Title: "Subject"}))
	assert.Equal(t, "user@example.com", mail.to)
	assert.Equal(t, "Subject", mail.subject)
}

func TestMultiNotifier_DeliversToAllAndJoinsErrors(t *testing.T) {
	errA := errors.New("a failed")
	a := &fakeNotifier{err: errA}
	b := &fakeNotifier{}

	err := NewMultiNotifier(a, b).Notify(context.Background(), Notice{})
	assert.ErrorIs(t, err, errA)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
}
