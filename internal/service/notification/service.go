package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/insideout-platform/notify-service/internal/model"
	"github.com/insideout-platform/notify-service/internal/repository"
	"github.com/insideout-platform/notify-service/internal/service/preference"
	"github.com/insideout-platform/notify-service/pkg/logger"
)

// Service owns the enqueue contract and the producer-facing notification
// flows. Delivery happens later, in the dispatcher.
type Service interface {
	// Enqueue adds an email to the durable queue. With a dedup key the call
	// is idempotent: the second return reports whether a new record was
	// created, and callers racing on the same key all receive the same record.
	Enqueue(ctx context.Context, recipient, subject, body string, dedupKey *string) (*model.EmailNotification, bool, error)

	NotifyPaymentConfirmed(ctx context.Context, student *model.User, courseTitle string) (int, error)
	NotifyScheduleCreated(ctx context.Context, student *model.User, courseTitle string, sessionCount int, firstDate *time.Time) (int, error)
	NotifyNewCoursePublished(ctx context.Context, courseTitle string) (int, error)
}

type service struct {
	repo   repository.NotificationRepository
	users  repository.UserRepository
	prefs  *preference.Service
	logger *logger.Logger
}

func NewService(repo repository.NotificationRepository, users repository.UserRepository, prefs *preference.Service, logger *logger.Logger) Service {
	return &service{
		repo:   repo,
		users:  users,
		prefs:  prefs,
		logger: logger,
	}
}

func (s *service) Enqueue(ctx context.Context, recipient, subject, body string, dedupKey *string) (*model.EmailNotification, bool, error) {
	if recipient == "" {
		return nil, false, fmt.Errorf("recipient is required")
	}
	if subject == "" {
		return nil, false, fmt.Errorf("subject is required")
	}

	if dedupKey != nil {
		existing, err := s.repo.GetByDedupKey(ctx, *dedupKey)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, false, fmt.Errorf("failed to check dedup key: %w", err)
		}
	}

	n := &model.EmailNotification{
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
		DedupKey:  dedupKey,
	}

	err := s.repo.Create(ctx, n)
	if err == nil {
		return n, true, nil
	}

	// A concurrent producer won the insert race on the same key; return the
	// winner's record instead of surfacing the constraint violation.
	if errors.Is(err, repository.ErrDuplicateDedupKey) && dedupKey != nil {
		existing, fetchErr := s.repo.GetByDedupKey(ctx, *dedupKey)
		if fetchErr != nil {
			return nil, false, fmt.Errorf("failed to fetch notification after dedup conflict: %w", fetchErr)
		}
		return existing, false, nil
	}

	return nil, false, fmt.Errorf("failed to enqueue notification: %w", err)
}

// queueOutcome mirrors the three ways a per-user notification can resolve.
type queueOutcome string

const (
	outcomeQueued  queueOutcome = "queued"
	outcomeSkipped queueOutcome = "skipped"
	outcomeError   queueOutcome = "error"
)

func (s *service) queueUserNotification(ctx context.Context, user *model.User, category model.NotificationCategory, subject, body string) queueOutcome {
	enabled, err := s.prefs.Enabled(ctx, user.ID, category)
	if err != nil {
		s.logger.Error(err, "failed to resolve notification settings", "user_id", user.ID.String())
		return outcomeError
	}
	if !enabled {
		s.logger.Debug("notification skipped by user settings",
			"user_id", user.ID.String(), "category", string(category))
		return outcomeSkipped
	}

	if _, _, err := s.Enqueue(ctx, user.Email, subject, body, nil); err != nil {
		s.logger.Error(err, "failed to queue user notification", "user_id", user.ID.String())
		return outcomeError
	}
	return outcomeQueued
}

// studentAndAdminRecipients returns the student plus every admin user,
// deduplicated by id (an admin enrolled as a student appears once).
func (s *service) studentAndAdminRecipients(ctx context.Context, student *model.User) ([]*model.User, error) {
	admins, err := s.users.ListByRole(ctx, model.UserRoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to list admin recipients: %w", err)
	}

	recipients := []*model.User{student}
	for _, admin := range admins {
		if admin.ID == student.ID {
			continue
		}
		recipients = append(recipients, admin)
	}
	return recipients, nil
}

func (s *service) NotifyPaymentConfirmed(ctx context.Context, student *model.User, courseTitle string) (int, error) {
	recipients, err := s.studentAndAdminRecipients(ctx, student)
	if err != nil {
		return 0, err
	}

	queued := 0
	for _, recipient := range recipients {
		var subject, body string
		if recipient.ID == student.ID {
			subject = "Payment confirmed"
			body = fmt.Sprintf(
				"<p>Hi %s,</p>"+
					"<p>Your payment for <strong>%s</strong> was confirmed successfully.</p>"+
					"<p>You can now continue with onboarding and schedule your first session.</p>",
				recipient.FirstName, courseTitle)
		} else {
			subject = "Student payment confirmed"
			body = fmt.Sprintf(
				"<p>Hi %s,</p>"+
					"<p>A payment for <strong>%s</strong> was confirmed.</p>"+
					"<p><strong>Student:</strong> %s %s</p>",
				recipient.FirstName, courseTitle, student.FirstName, student.LastName)
		}

		if s.queueUserNotification(ctx, recipient, model.CategoryNewPayment, subject, body) == outcomeQueued {
			queued++
		}
	}
	return queued, nil
}

func (s *service) NotifyScheduleCreated(ctx context.Context, student *model.User, courseTitle string, sessionCount int, firstDate *time.Time) (int, error) {
	recipients, err := s.studentAndAdminRecipients(ctx, student)
	if err != nil {
		return 0, err
	}

	plural := ""
	if sessionCount != 1 {
		plural = "s"
	}
	dateHint := ""
	if firstDate != nil {
		dateHint = fmt.Sprintf(" starting on <strong>%s</strong>", firstDate.Format("2006-01-02"))
	}

	queued := 0
	for _, recipient := range recipients {
		var subject, body string
		if recipient.ID == student.ID {
			subject = "Schedule confirmed"
			body = fmt.Sprintf(
				"<p>Hi %s,</p>"+
					"<p>Your schedule for <strong>%s</strong> has been updated.</p>"+
					"<p>%d session%s were created%s.</p>",
				recipient.FirstName, courseTitle, sessionCount, plural, dateHint)
		} else {
			subject = "Student schedule created"
			body = fmt.Sprintf(
				"<p>Hi %s,</p>"+
					"<p>A schedule for <strong>%s</strong> has been created.</p>"+
					"<p><strong>Student:</strong> %s %s<br/><strong>Sessions:</strong> %d</p>",
				recipient.FirstName, courseTitle, student.FirstName, student.LastName, sessionCount)
		}

		if s.queueUserNotification(ctx, recipient, model.CategoryScheduleChange, subject, body) == outcomeQueued {
			queued++
		}
	}
	return queued, nil
}

func (s *service) NotifyNewCoursePublished(ctx context.Context, courseTitle string) (int, error) {
	students, err := s.users.ListByRole(ctx, model.UserRoleStudent)
	if err != nil {
		return 0, fmt.Errorf("failed to list students: %w", err)
	}
	if len(students) == 0 {
		return 0, nil
	}

	queued := 0
	for _, user := range students {
		subject := "New course available"
		body := fmt.Sprintf(
			"<p>Hi %s,</p>"+
				"<p>A new course <strong>%s</strong> is now available on InsideOut.</p>"+
				"<p>Log in to explore the new content.</p>",
			user.FirstName, courseTitle)

		if s.queueUserNotification(ctx, user, model.CategoryNewCourse, subject, body) == outcomeQueued {
			queued++
		}
	}

	s.logger.Info("queued new-course notifications", "course_title", courseTitle, "queued_count", queued)
	return queued, nil
}
