package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/insideout-platform/notify-service/internal/model"
	"github.com/insideout-platform/notify-service/internal/repository"
	"github.com/insideout-platform/notify-service/internal/service/preference"
	"github.com/insideout-platform/notify-service/pkg/logger"
	"github.com/insideout-platform/notify-service/pkg/metrics"
)

type Config struct {
	DefaultLeadMinutes int
	MinLeadMinutes     int
	MaxLeadMinutes     int
	WindowSeconds      int
}

// Enqueuer is the dedup-aware enqueue contract the generator fires into.
type Enqueuer interface {
	Enqueue(ctx context.Context, recipient, subject, body string, dedupKey *string) (*model.EmailNotification, bool, error)
}

// Service derives meeting reminders from upcoming sessions. A reminder fires
// once per (schedule, recipient, lead) inside a tolerance window sized to
// exceed the polling interval; the dedup key keeps later polls that still
// land inside the window from firing again.
type Service struct {
	schedules repository.ScheduleRepository
	users     repository.UserRepository
	prefs     *preference.Service
	enqueuer  Enqueuer
	config    Config
	logger    *logger.Logger
	metrics   *metrics.Metrics

	now func() time.Time
}

func NewService(
	schedules repository.ScheduleRepository,
	users repository.UserRepository,
	prefs *preference.Service,
	enqueuer Enqueuer,
	config Config,
	logger *logger.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		schedules: schedules,
		users:     users,
		prefs:     prefs,
		enqueuer:  enqueuer,
		config:    config,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
	}
}

// bounds returns (default, min, max) lead minutes clamped so that
// min <= default <= max and min is at least one minute.
func (s *Service) bounds() (int, int, int) {
	minLead := s.config.MinLeadMinutes
	if minLead < 1 {
		minLead = 1
	}
	maxLead := s.config.MaxLeadMinutes
	if maxLead < minLead {
		maxLead = minLead
	}
	defaultLead := s.config.DefaultLeadMinutes
	if defaultLead < minLead {
		defaultLead = minLead
	}
	if defaultLead > maxLead {
		defaultLead = maxLead
	}
	return defaultLead, minLead, maxLead
}

func (s *Service) window() time.Duration {
	seconds := s.config.WindowSeconds
	if seconds < 15 {
		seconds = 15
	}
	return time.Duration(seconds) * time.Second
}

// leadMinutes resolves a recipient's personalized lead time, clamped into
// the global bounds. Missing settings or a missing value mean the default.
func (s *Service) leadMinutes(ctx context.Context, user *model.User) (int, error) {
	defaultLead, minLead, maxLead := s.bounds()

	settings, err := s.prefs.Get(ctx, user.ID)
	if err != nil {
		return 0, err
	}
	if settings == nil || settings.ReminderLeadMinutes == nil {
		return defaultLead, nil
	}

	lead := *settings.ReminderLeadMinutes
	if lead < minLead {
		lead = minLead
	}
	if lead > maxLead {
		lead = maxLead
	}
	return lead, nil
}

// RunReminderCycle scans sessions starting within the lookahead horizon and
// queues any reminders whose target instant falls inside the tolerance
// window right now. Returns the count of newly queued reminders; reminders
// already queued under their dedup key do not count.
func (s *Service) RunReminderCycle(ctx context.Context) (int, error) {
	timer := prometheus.NewTimer(s.metrics.ReminderCycleDuration)
	defer timer.ObserveDuration()

	_, _, maxLead := s.bounds()
	window := s.window()

	now := s.now().UTC()
	horizon := now.Add(time.Duration(maxLead)*time.Minute + window)

	dates := []time.Time{now}
	if !horizon.Truncate(24 * time.Hour).Equal(now.Truncate(24 * time.Hour)) {
		dates = append(dates, horizon)
	}

	candidates, err := s.schedules.ListScheduledOnDates(ctx, dates)
	if err != nil {
		return 0, fmt.Errorf("failed to list reminder candidates: %w", err)
	}

	admins, err := s.users.ListByRole(ctx, model.UserRoleAdmin)
	if err != nil {
		return 0, fmt.Errorf("failed to list admin recipients: %w", err)
	}

	queued := 0
	for _, schedule := range candidates {
		n, err := s.remindForSchedule(ctx, schedule, admins, now, window)
		if err != nil {
			s.logger.Error(err, "failed to process reminder candidate", "schedule_id", schedule.ID.String())
			continue
		}
		queued += n
	}

	if queued > 0 {
		s.metrics.RemindersQueued.Add(float64(queued))
		s.logger.Info("meeting reminders queued", "count", queued)
	}
	return queued, nil
}

func (s *Service) remindForSchedule(ctx context.Context, schedule *model.Schedule, admins []*model.User, now time.Time, window time.Duration) (int, error) {
	startAt := schedule.StartAt.UTC()
	if !startAt.After(now) {
		return 0, nil
	}

	student := &model.User{
		ID:        schedule.StudentID,
		Email:     schedule.StudentEmail,
		FirstName: schedule.StudentFirstName,
		LastName:  schedule.StudentLastName,
		Role:      model.UserRoleStudent,
	}

	recipients := []*model.User{student}
	for _, admin := range admins {
		if admin.ID == student.ID {
			continue
		}
		recipients = append(recipients, admin)
	}

	courseTitle := schedule.CourseTitle
	if courseTitle == "" {
		courseTitle = "your course"
	}
	dateLabel := startAt.Format("2006-01-02")
	timeLabel := startAt.Format("15:04")

	queued := 0
	for _, recipient := range recipients {
		lead, err := s.leadMinutes(ctx, recipient)
		if err != nil {
			s.logger.Error(err, "failed to resolve reminder lead time", "user_id", recipient.ID.String())
			continue
		}

		target := startAt.Add(-time.Duration(lead) * time.Minute)
		if now.Before(target.Add(-window)) || now.After(target.Add(window)) {
			continue
		}

		enabled, err := s.prefs.Enabled(ctx, recipient.ID, model.CategoryMeetingReminder)
		if err != nil {
			s.logger.Error(err, "failed to resolve notification settings", "user_id", recipient.ID.String())
			continue
		}
		if !enabled {
			continue
		}

		subject := fmt.Sprintf("Meeting reminder: starts in %d minute(s)", lead)
		var body string
		if recipient.ID == student.ID {
			body = fmt.Sprintf(
				"<p>Hi %s,</p>"+
					"<p>This is a reminder that your session for <strong>%s</strong> starts in %d minute(s).</p>"+
					"<p><strong>Date:</strong> %s<br/><strong>Time:</strong> %s</p>",
				recipient.FirstName, courseTitle, lead, dateLabel, timeLabel)
		} else {
			body = fmt.Sprintf(
				"<p>Hi %s,</p>"+
					"<p>Reminder: a session for <strong>%s</strong> starts in %d minute(s).</p>"+
					"<p><strong>Student:</strong> %s %s<br/><strong>Date:</strong> %s<br/><strong>Time:</strong> %s</p>",
				recipient.FirstName, courseTitle, lead,
				student.FirstName, student.LastName, dateLabel, timeLabel)
		}

		// Lead minutes are part of the key so a changed lead setting gets a
		// fresh reminder under the new schedule.
		dedupKey := fmt.Sprintf("meeting-reminder:%s:%s:%d", schedule.ID, recipient.ID, lead)

		_, created, err := s.enqueuer.Enqueue(ctx, recipient.Email, subject, body, &dedupKey)
		if err != nil {
			s.logger.Error(err, "failed to queue meeting reminder",
				"schedule_id", schedule.ID.String(), "user_id", recipient.ID.String())
			continue
		}
		if created {
			queued++
		}
	}
	return queued, nil
}
