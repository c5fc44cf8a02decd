package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/insideout-platform/notify-service/internal/model"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateDedupKey is returned by Create when another record already
	// holds the dedup key. Callers recover by re-fetching the existing row.
	ErrDuplicateDedupKey = errors.New("duplicate dedup key")
)

// All repository interfaces in one file
type (
	// NotificationRepository is the durable queue of outbound emails.
	NotificationRepository interface {
		Create(ctx context.Context, n *model.EmailNotification) error
		Get(ctx context.Context, id uuid.UUID) (*model.EmailNotification, error)
		GetByDedupKey(ctx context.Context, key string) (*model.EmailNotification, error)

		// ClaimBatch atomically moves up to limit pending rows with
		// retry_count < maxRetries into claimed, oldest first, stamping the
		// token and claimedAt. Returns the number of rows claimed.
		ClaimBatch(ctx context.Context, token string, claimedAt time.Time, limit, maxRetries int) (int64, error)
		GetClaimed(ctx context.Context, token string) ([]*model.EmailNotification, error)

		MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error
		MarkAttemptFailed(ctx context.Context, id uuid.UUID, lastError string, maxRetries int) error

		// ReclaimStale reverts claimed rows whose claim predates olderThan
		// and which still have retries left. Returns the number reclaimed.
		ReclaimStale(ctx context.Context, olderThan time.Time, maxRetries int) (int64, error)

		ListFailed(ctx context.Context, limit int) ([]*model.EmailNotification, error)
		CountByStatus(ctx context.Context, status model.NotificationStatus) (int64, error)
	}

	// SettingsRepository reads per-user notification opt-in flags.
	SettingsRepository interface {
		GetByUserID(ctx context.Context, userID uuid.UUID) (*model.NotificationSettings, error)
	}

	// ScheduleRepository reads upcoming sessions for the reminder generator.
	ScheduleRepository interface {
		ListScheduledOnDates(ctx context.Context, dates []time.Time) ([]*model.Schedule, error)
	}

	UserRepository interface {
		ListByRole(ctx context.Context, role model.UserRole) ([]*model.User, error)
	}
)
