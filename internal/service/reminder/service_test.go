package reminder

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insideout-platform/notify-service/internal/model"
	"github.com/insideout-platform/notify-service/internal/repository"
	"github.com/insideout-platform/notify-service/internal/service/preference"
	"github.com/insideout-platform/notify-service/pkg/logger"
	"github.com/insideout-platform/notify-service/pkg/metrics"
)

type fakeScheduleRepo struct {
	schedules []*model.Schedule
}

func (r *fakeScheduleRepo) ListScheduledOnDates(ctx context.Context, dates []time.Time) ([]*model.Schedule, error) {
	return r.schedules, nil
}

type fakeUserRepo struct {
	admins []*model.User
}

func (r *fakeUserRepo) ListByRole(ctx context.Context, role model.UserRole) ([]*model.User, error) {
	if role == model.UserRoleAdmin {
		return r.admins, nil
	}
	return nil, nil
}

type fakeSettingsRepo struct {
	settings map[uuid.UUID]*model.NotificationSettings
}

func (r *fakeSettingsRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.NotificationSettings, error) {
	if s, ok := r.settings[userID]; ok {
		return s, nil
	}
	return nil, repository.ErrNotFound
}

// fakeEnqueuer mimics the dedup-aware enqueue path: the first call with a
// given key creates, repeats return the existing record.
type fakeEnqueuer struct {
	mu      sync.Mutex
	byKey   map[string]*model.EmailNotification
	created int
}

func newFakeEnqueuer() *fakeEnqueuer {
	return &fakeEnqueuer{byKey: make(map[string]*model.EmailNotification)}
}

func (e *fakeEnqueuer) Enqueue(ctx context.Context, recipient, subject, body string, dedupKey *string) (*model.EmailNotification, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if dedupKey != nil {
		if existing, ok := e.byKey[*dedupKey]; ok {
			return existing, false, nil
		}
	}
	n := &model.EmailNotification{
		ID:        uuid.New(),
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
		DedupKey:  dedupKey,
		Status:    model.NotificationStatusPending,
	}
	if dedupKey != nil {
		e.byKey[*dedupKey] = n
	}
	e.created++
	return n, true, nil
}

func (e *fakeEnqueuer) createdCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.created
}

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }

type fixture struct {
	svc      *Service
	enqueuer *fakeEnqueuer
	settings *fakeSettingsRepo
	student  *model.User
	schedule *model.Schedule
}

func newFixture(t *testing.T, cfg Config, startAt time.Time, admins []*model.User) *fixture {
	t.Helper()

	student := &model.User{
		ID:        uuid.New(),
		Email:     "student@example.com",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Role:      model.UserRoleStudent,
	}
	schedule := &model.Schedule{
		ID:               uuid.New(),
		EnrollmentID:     uuid.New(),
		StartAt:          startAt,
		EndAt:            startAt.Add(time.Hour),
		Status:           model.ScheduleStatusScheduled,
		StudentID:        student.ID,
		StudentEmail:     student.Email,
		StudentFirstName: student.FirstName,
		StudentLastName:  student.LastName,
		CourseTitle:      "Intro to Painting",
	}

	settings := &fakeSettingsRepo{settings: make(map[uuid.UUID]*model.NotificationSettings)}
	enqueuer := newFakeEnqueuer()

	svc := NewService(
		&fakeScheduleRepo{schedules: []*model.Schedule{schedule}},
		&fakeUserRepo{admins: admins},
		preference.NewService(settings, time.Minute),
		enqueuer,
		cfg,
		logger.NewLogger(nil),
		metrics.New("test"),
	)

	return &fixture{
		svc:      svc,
		enqueuer: enqueuer,
		settings: settings,
		student:  student,
		schedule: schedule,
	}
}

func defaultConfig() Config {
	return Config{
		DefaultLeadMinutes: 60,
		MinLeadMinutes:     30,
		MaxLeadMinutes:     1440,
		WindowSeconds:      90,
	}
}

func TestRunReminderCycle_FiresInsideWindow(t *testing.T) {
	// Session at T+60min, default lead 60 → target is exactly now.
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	f := newFixture(t, defaultConfig(), now.Add(60*time.Minute), nil)
	f.svc.now = func() time.Time { return now }

	queued, err := f.svc.RunReminderCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, queued)
	assert.Equal(t, 1, f.enqueuer.createdCount())
}

func TestRunReminderCycle_SecondRunIsIdempotent(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	f := newFixture(t, defaultConfig(), now.Add(60*time.Minute), nil)
	f.svc.now = func() time.Time { return now }

	queued, err := f.svc.RunReminderCycle(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, queued)

	// Same clock, same preferences: the dedup key short-circuits.
	queued, err = f.svc.RunReminderCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, queued)
	assert.Equal(t, 1, f.enqueuer.createdCount())
}

func TestRunReminderCycle_PastWindowStillNotDuplicated(t *testing.T) {
	// Queue at T, then re-run at T+91s: outside the window, but already
	// queued, so the cycle neither errors nor creates a second record.
	start := time.Date(2025, 6, 2, 11, 0, 0, 0, time.UTC)
	f := newFixture(t, defaultConfig(), start.Add(60*time.Minute), nil)

	f.svc.now = func() time.Time { return start }
	queued, err := f.svc.RunReminderCycle(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, queued)

	f.svc.now = func() time.Time { return start.Add(91 * time.Second) }
	queued, err = f.svc.RunReminderCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, queued)
	assert.Equal(t, 1, f.enqueuer.createdCount())
}

func TestRunReminderCycle_OutsideWindowDoesNothing(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	// Target is now+30min; now is well before the window opens.
	f := newFixture(t, defaultConfig(), now.Add(90*time.Minute), nil)
	f.svc.now = func() time.Time { return now }

	queued, err := f.svc.RunReminderCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, queued)
}

func TestRunReminderCycle_SkipsStartedSessions(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	f := newFixture(t, defaultConfig(), now.Add(-time.Minute), nil)
	f.svc.now = func() time.Time { return now }

	queued, err := f.svc.RunReminderCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, queued)
}

func TestRunReminderCycle_DisabledPreferenceSkips(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	f := newFixture(t, defaultConfig(), now.Add(60*time.Minute), nil)
	f.svc.now = func() time.Time { return now }

	f.settings.settings[f.student.ID] = &model.NotificationSettings{
		UserID:                  f.student.ID,
		NotifyOnMeetingReminder: boolPtr(false),
	}

	queued, err := f.svc.RunReminderCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, queued)
	assert.Equal(t, 0, f.enqueuer.createdCount())
}

func TestRunReminderCycle_PersonalizedLeadTimes(t *testing.T) {
	admin := &model.User{
		ID:        uuid.New(),
		Email:     "admin@example.com",
		FirstName: "Grace",
		LastName:  "Hopper",
		Role:      model.UserRoleAdmin,
	}

	start := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, defaultConfig(), start, []*model.User{admin})

	// Student reminds 30 minutes out, admin 120 minutes out.
	f.settings.settings[f.student.ID] = &model.NotificationSettings{
		UserID:              f.student.ID,
		ReminderLeadMinutes: intPtr(30),
	}
	f.settings.settings[admin.ID] = &model.NotificationSettings{
		UserID:              admin.ID,
		ReminderLeadMinutes: intPtr(120),
	}

	// At T-120min only the admin is due.
	f.svc.now = func() time.Time { return start.Add(-120 * time.Minute) }
	queued, err := f.svc.RunReminderCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, queued)

	// At T-30min only the student is due; the admin's key already exists.
	f.svc.now = func() time.Time { return start.Add(-30 * time.Minute) }
	queued, err = f.svc.RunReminderCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, queued)
	assert.Equal(t, 2, f.enqueuer.createdCount())
}

func TestRunReminderCycle_LeadClampedIntoBounds(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	// Lead of 5 clamps up to the 30-minute minimum, so a session starting
	// in 30 minutes is due now.
	f := newFixture(t, defaultConfig(), now.Add(30*time.Minute), nil)
	f.svc.now = func() time.Time { return now }

	f.settings.settings[f.student.ID] = &model.NotificationSettings{
		UserID:              f.student.ID,
		ReminderLeadMinutes: intPtr(5),
	}

	queued, err := f.svc.RunReminderCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, queued)
}

func TestRunReminderCycle_AdminDedupAgainstStudent(t *testing.T) {
	// An admin who is also the session's student gets a single reminder.
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	f := newFixture(t, defaultConfig(), now.Add(60*time.Minute), nil)

	adminTwin := &model.User{
		ID:        f.student.ID,
		Email:     f.student.Email,
		FirstName: f.student.FirstName,
		LastName:  f.student.LastName,
		Role:      model.UserRoleAdmin,
	}
	f.svc.users = &fakeUserRepo{admins: []*model.User{adminTwin}}
	f.svc.now = func() time.Time { return now }

	queued, err := f.svc.RunReminderCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, queued)
}

func TestRunReminderCycle_DedupKeyShape(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	f := newFixture(t, defaultConfig(), now.Add(60*time.Minute), nil)
	f.svc.now = func() time.Time { return now }

	_, err := f.svc.RunReminderCycle(context.Background())
	require.NoError(t, err)

	expected := "meeting-reminder:" + f.schedule.ID.String() + ":" + f.student.ID.String() + ":60"
	_, ok := f.enqueuer.byKey[expected]
	assert.True(t, ok, "expected dedup key %s", expected)
}
