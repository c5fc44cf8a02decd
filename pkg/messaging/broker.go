package messaging

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Lifecycle channels published by the dispatcher.
const (
	ChannelNotificationSent   = "notification.sent"
	ChannelNotificationFailed = "notification.failed"
)

// LifecycleEvent describes a notification reaching a terminal or retry
// state. Downstream consumers (alerting, analytics) subscribe to the
// lifecycle channels and decode this payload.
type LifecycleEvent struct {
	ID         uuid.UUID `json:"id"`
	Recipient  string    `json:"recipient"`
	Subject    string    `json:"subject"`
	Status     string    `json:"status"`
	RetryCount int       `json:"retry_count"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Broker publishes notification lifecycle events. Implementations must be
// safe for concurrent use by dispatcher goroutines.
type Broker interface {
	PublishLifecycle(ctx context.Context, channel string, event LifecycleEvent) error
	Close() error
}
