package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/insideout-platform/notify-service/internal/email"
	"github.com/insideout-platform/notify-service/internal/model"
	"github.com/insideout-platform/notify-service/internal/repository"
	"github.com/insideout-platform/notify-service/pkg/logger"
	"github.com/insideout-platform/notify-service/pkg/messaging"
	"github.com/insideout-platform/notify-service/pkg/metrics"
)

type Config struct {
	MaxRetries int
	BatchSize  int
	ClaimTTL   time.Duration
}

// Service drains the notification queue. Multiple instances may run
// concurrently across processes; the atomic claim update in the repository
// is the only thing preventing a double send.
type Service struct {
	repo      repository.NotificationRepository
	transport email.Service
	broker    messaging.Broker
	config    Config
	logger    *logger.Logger
	metrics   *metrics.Metrics

	now func() time.Time
}

// NewService builds a dispatcher. The broker may be nil, in which case
// lifecycle events are not published.
func NewService(
	repo repository.NotificationRepository,
	transport email.Service,
	broker messaging.Broker,
	config Config,
	logger *logger.Logger,
	m *metrics.Metrics,
) *Service {
	if config.MaxRetries <= 0 {
		panic("MaxRetries must be greater than 0")
	}
	if config.BatchSize <= 0 {
		panic("BatchSize must be greater than 0")
	}
	if config.ClaimTTL <= 0 {
		panic("ClaimTTL must be greater than 0")
	}

	return &Service{
		repo:      repo,
		transport: transport,
		broker:    broker,
		config:    config,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
	}
}

// RunDispatchCycle recovers stale claims, claims a fresh batch, and resolves
// each claimed record individually. A crash mid-batch leaves only the
// unresolved remainder claimed, for the reclaimer to pick up later.
func (s *Service) RunDispatchCycle(ctx context.Context) error {
	timer := prometheus.NewTimer(s.metrics.DispatchCycleDuration)
	defer timer.ObserveDuration()

	now := s.now().UTC()

	reclaimed, err := s.repo.ReclaimStale(ctx, now.Add(-s.config.ClaimTTL), s.config.MaxRetries)
	if err != nil {
		return fmt.Errorf("failed to reclaim stale claims: %w", err)
	}
	if reclaimed > 0 {
		s.metrics.NotificationsReclaimed.Add(float64(reclaimed))
		s.logger.Warn("reclaimed stale notification claims", "count", reclaimed)
	}

	token := uuid.New().String()
	claimed, err := s.repo.ClaimBatch(ctx, token, now, s.config.BatchSize, s.config.MaxRetries)
	if err != nil {
		return fmt.Errorf("failed to claim notification batch: %w", err)
	}
	if claimed == 0 {
		s.updateQueueGauge(ctx)
		return nil
	}

	// Re-read by token instead of trusting the update count; the readable
	// set is what this invocation actually owns.
	batch, err := s.repo.GetClaimed(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to read claimed batch: %w", err)
	}

	s.logger.Info("processing claimed notifications", "count", len(batch))

	for _, n := range batch {
		s.resolve(ctx, n)
	}

	s.updateQueueGauge(ctx)
	return nil
}

// resolve attempts delivery of one claimed record and commits the outcome.
// Errors are contained here so one bad record never aborts its siblings.
func (s *Service) resolve(ctx context.Context, n *model.EmailNotification) {
	sendErr := s.transport.Send(ctx, n.Recipient, n.Subject, n.Body)
	if sendErr == nil {
		sentAt := s.now().UTC()
		if err := s.repo.MarkSent(ctx, n.ID, sentAt); err != nil {
			s.logger.Error(err, "failed to persist sent status", "notification_id", n.ID.String())
			return
		}
		s.metrics.NotificationsSent.Inc()
		s.publish(ctx, messaging.ChannelNotificationSent, messaging.LifecycleEvent{
			ID:         n.ID,
			Recipient:  n.Recipient,
			Subject:    n.Subject,
			Status:     string(model.NotificationStatusSent),
			RetryCount: n.RetryCount,
			OccurredAt: sentAt,
		})
		return
	}

	attempts := n.RetryCount + 1
	exhausted := attempts >= s.config.MaxRetries

	s.logger.Error(sendErr, "failed to send queued notification",
		"notification_id", n.ID.String(), "retry_count", attempts)

	if err := s.repo.MarkAttemptFailed(ctx, n.ID, sendErr.Error(), s.config.MaxRetries); err != nil {
		s.logger.Error(err, "failed to persist delivery failure", "notification_id", n.ID.String())
		return
	}

	if exhausted {
		s.metrics.NotificationsFailed.Inc()
		s.publish(ctx, messaging.ChannelNotificationFailed, messaging.LifecycleEvent{
			ID:         n.ID,
			Recipient:  n.Recipient,
			Subject:    n.Subject,
			Status:     string(model.NotificationStatusFailed),
			RetryCount: attempts,
			Error:      sendErr.Error(),
			OccurredAt: s.now().UTC(),
		})
		return
	}
	s.metrics.NotificationsRetried.Inc()
}

func (s *Service) publish(ctx context.Context, channel string, event messaging.LifecycleEvent) {
	if s.broker == nil {
		return
	}
	if err := s.broker.PublishLifecycle(ctx, channel, event); err != nil {
		s.logger.Error(err, "failed to publish lifecycle event",
			"channel", channel, "notification_id", event.ID.String())
	}
}

func (s *Service) updateQueueGauge(ctx context.Context) {
	pending, err := s.repo.CountByStatus(ctx, model.NotificationStatusPending)
	if err != nil {
		s.logger.Debug("failed to count pending notifications", "error", err.Error())
		return
	}
	s.metrics.PendingQueueSize.Set(float64(pending))
}
