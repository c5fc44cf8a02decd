package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/insideout-platform/notify-service/internal/model"
	"github.com/insideout-platform/notify-service/internal/repository"
)

const notificationColumns = `id, recipient, subject, body, dedup_key, status,
		retry_count, last_error, claim_token, claimed_at, created_at, sent_at`

type notificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) repository.NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.EmailNotification) error {
	query := `
		INSERT INTO email_notifications (
			id, recipient, subject, body, dedup_key, status,
			retry_count, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	n.Status = model.NotificationStatusPending

	_, err := r.db.ExecContext(ctx, query,
		n.ID,
		n.Recipient,
		n.Subject,
		n.Body,
		n.DedupKey,
		n.Status,
		n.RetryCount,
		n.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return repository.ErrDuplicateDedupKey
		}
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *notificationRepository) Get(ctx context.Context, id uuid.UUID) (*model.EmailNotification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM email_notifications
		WHERE id = $1
	`
	var n model.EmailNotification
	err := r.db.GetContext(ctx, &n, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return &n, nil
}

func (r *notificationRepository) GetByDedupKey(ctx context.Context, key string) (*model.EmailNotification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM email_notifications
		WHERE dedup_key = $1
	`
	var n model.EmailNotification
	err := r.db.GetContext(ctx, &n, query, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification by dedup key: %w", err)
	}
	return &n, nil
}

// ClaimBatch is the single synchronization point between concurrent dispatch
// cycles: only rows still pending at update time are claimed, and SKIP LOCKED
// keeps two cycles from ever selecting the same row.
func (r *notificationRepository) ClaimBatch(ctx context.Context, token string, claimedAt time.Time, limit, maxRetries int) (int64, error) {
	query := `
		UPDATE email_notifications
		SET status = $1, claim_token = $2, claimed_at = $3
		WHERE id IN (
			SELECT id FROM email_notifications
			WHERE status = $4 AND retry_count < $5
			ORDER BY created_at ASC
			LIMIT $6
			FOR UPDATE SKIP LOCKED
		)
		AND status = $4
	`
	result, err := r.db.ExecContext(ctx, query,
		model.NotificationStatusClaimed,
		token,
		claimedAt,
		model.NotificationStatusPending,
		maxRetries,
		limit,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to claim notifications: %w", err)
	}
	return result.RowsAffected()
}

func (r *notificationRepository) GetClaimed(ctx context.Context, token string) ([]*model.EmailNotification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM email_notifications
		WHERE status = $1 AND claim_token = $2
		ORDER BY created_at ASC
	`
	var notifications []*model.EmailNotification
	err := r.db.SelectContext(ctx, &notifications, query, model.NotificationStatusClaimed, token)
	if err != nil {
		return nil, fmt.Errorf("failed to get claimed notifications: %w", err)
	}
	return notifications, nil
}

func (r *notificationRepository) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	query := `
		UPDATE email_notifications
		SET status = $1, sent_at = $2, last_error = NULL,
			claim_token = NULL, claimed_at = NULL
		WHERE id = $3
	`
	result, err := r.db.ExecContext(ctx, query, model.NotificationStatusSent, sentAt, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// MarkAttemptFailed resolves a failed delivery attempt in one statement so
// the retry counter and the terminal-status decision can never diverge.
func (r *notificationRepository) MarkAttemptFailed(ctx context.Context, id uuid.UUID, lastError string, maxRetries int) error {
	query := `
		UPDATE email_notifications
		SET retry_count = retry_count + 1,
			last_error = $1,
			claim_token = NULL,
			claimed_at = NULL,
			status = CASE WHEN retry_count + 1 >= $2 THEN $3 ELSE $4 END
		WHERE id = $5
	`
	result, err := r.db.ExecContext(ctx, query,
		lastError,
		maxRetries,
		model.NotificationStatusFailed,
		model.NotificationStatusPending,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark attempt failed: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *notificationRepository) ReclaimStale(ctx context.Context, olderThan time.Time, maxRetries int) (int64, error) {
	query := `
		UPDATE email_notifications
		SET status = $1, claim_token = NULL, claimed_at = NULL, last_error = $2
		WHERE status = $3
		AND claimed_at IS NOT NULL
		AND claimed_at < $4
		AND retry_count < $5
	`
	result, err := r.db.ExecContext(ctx, query,
		model.NotificationStatusPending,
		model.ClaimExpiredMarker,
		model.NotificationStatusClaimed,
		olderThan,
		maxRetries,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to reclaim stale notifications: %w", err)
	}
	return result.RowsAffected()
}

func (r *notificationRepository) ListFailed(ctx context.Context, limit int) ([]*model.EmailNotification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM email_notifications
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	var notifications []*model.EmailNotification
	err := r.db.SelectContext(ctx, &notifications, query, model.NotificationStatusFailed, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list failed notifications: %w", err)
	}
	return notifications, nil
}

func (r *notificationRepository) CountByStatus(ctx context.Context, status model.NotificationStatus) (int64, error) {
	query := `SELECT COUNT(*) FROM email_notifications WHERE status = $1`
	var count int64
	if err := r.db.GetContext(ctx, &count, query, status); err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}
