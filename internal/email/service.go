package email

import (
	"context"
)

// Service is the external delivery transport. Send blocks until the
// provider accepts or rejects the message; the dispatcher owns retries.
type Service interface {
	Send(ctx context.Context, to string, subject string, body string) error
}
