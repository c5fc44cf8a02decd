package model

import (
	"time"

	"github.com/google/uuid"
)

type ScheduleStatus string

const (
	ScheduleStatusScheduled           ScheduleStatus = "scheduled"
	ScheduleStatusRescheduleRequested ScheduleStatus = "reschedule_requested"
)

// Schedule is a single booked session of an enrollment. The reminder
// generator only reads schedules; they are owned by the enrollment flows.
type Schedule struct {
	ID           uuid.UUID      `db:"id"`
	EnrollmentID uuid.UUID      `db:"enrollment_id"`
	StartAt      time.Time      `db:"start_at"`
	EndAt        time.Time      `db:"end_at"`
	Status       ScheduleStatus `db:"status"`

	// Joined columns for reminder candidates.
	StudentID        uuid.UUID `db:"student_id"`
	StudentEmail     string    `db:"student_email"`
	StudentFirstName string    `db:"student_first_name"`
	StudentLastName  string    `db:"student_last_name"`
	CourseTitle      string    `db:"course_title"`
}

type UserRole string

const (
	UserRoleStudent UserRole = "student"
	UserRoleAdmin   UserRole = "admin"
)

// User is the slice of the platform's user entity this service reads:
// just enough to address and personalize an email.
type User struct {
	ID        uuid.UUID `db:"id"`
	Email     string    `db:"email"`
	FirstName string    `db:"first_name"`
	LastName  string    `db:"last_name"`
	Role      UserRole  `db:"role"`
}
