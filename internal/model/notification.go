package model

import (
	"time"

	"github.com/google/uuid"
)

type NotificationStatus string

// ClaimExpiredMarker is recorded as last_error when a stale claim is
// reverted, so operators can tell reclaimed rows from delivery failures.
const ClaimExpiredMarker = "claim expired before processing completed"

const (
	NotificationStatusPending NotificationStatus = "pending"
	NotificationStatusClaimed NotificationStatus = "claimed"
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusFailed  NotificationStatus = "failed"
)

// EmailNotification is a queued outbound email. Rows are created through the
// enqueue path, resolved by the dispatcher, and never deleted by this service.
//
// ClaimToken and ClaimedAt are either both set or both null; a claimed row
// carries both, and resolution clears both.
type EmailNotification struct {
	ID         uuid.UUID          `json:"id" db:"id"`
	Recipient  string             `json:"recipient" db:"recipient"`
	Subject    string             `json:"subject" db:"subject"`
	Body       string             `json:"body" db:"body"`
	DedupKey   *string            `json:"dedup_key,omitempty" db:"dedup_key"`
	Status     NotificationStatus `json:"status" db:"status"`
	RetryCount int                `json:"retry_count" db:"retry_count"`
	LastError  *string            `json:"last_error,omitempty" db:"last_error"`
	ClaimToken *string            `json:"-" db:"claim_token"`
	ClaimedAt  *time.Time         `json:"-" db:"claimed_at"`
	CreatedAt  time.Time          `json:"created_at" db:"created_at"`
	SentAt     *time.Time         `json:"sent_at,omitempty" db:"sent_at"`
}
