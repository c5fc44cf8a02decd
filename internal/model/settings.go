package model

import "github.com/google/uuid"

// NotificationSettings holds a user's opt-in flags per notification category.
// A missing row means all categories enabled with the default reminder lead.
// Nil pointer fields on an existing row mean the same as true/default.
type NotificationSettings struct {
	ID                      uuid.UUID `db:"id"`
	UserID                  uuid.UUID `db:"user_id"`
	NotifyOnNewPayment      *bool     `db:"notify_on_new_payment"`
	NotifyOnScheduleChange  *bool     `db:"notify_on_schedule_change"`
	NotifyOnNewCourse       *bool     `db:"notify_on_new_course"`
	NotifyOnMeetingReminder *bool     `db:"notify_on_meeting_reminder"`
	ReminderLeadMinutes     *int      `db:"reminder_lead_minutes"`
}

// NotificationCategory selects which opt-in flag gates a send.
type NotificationCategory string

const (
	CategoryNewPayment      NotificationCategory = "new_payment"
	CategoryScheduleChange  NotificationCategory = "schedule_change"
	CategoryNewCourse       NotificationCategory = "new_course"
	CategoryMeetingReminder NotificationCategory = "meeting_reminder"
)

// Enabled reports whether the given category is enabled; nil settings or a
// nil flag count as enabled.
func (s *NotificationSettings) Enabled(category NotificationCategory) bool {
	if s == nil {
		return true
	}
	var flag *bool
	switch category {
	case CategoryNewPayment:
		flag = s.NotifyOnNewPayment
	case CategoryScheduleChange:
		flag = s.NotifyOnScheduleChange
	case CategoryNewCourse:
		flag = s.NotifyOnNewCourse
	case CategoryMeetingReminder:
		flag = s.NotifyOnMeetingReminder
	default:
		return true
	}
	if flag == nil {
		return true
	}
	return *flag
}
