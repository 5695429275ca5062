package messaging

import (
	"context"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publisher
	// Subscribe listens on all channels. The returned channel is closed when ctx is done
	// or the underlying connection fails; callers tell the two apart through ctx.Err().
	Subscribe(ctx context.Context, channels ...string) (<-chan Message, error)
	Close() error
}

// Publisher defines the interface for publishing messages
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) error
}

// Message is one payload received on a channel
type Message struct {
	Channel string
	Payload []byte
}
