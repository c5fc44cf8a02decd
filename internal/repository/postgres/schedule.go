package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/insideout-platform/notify-service/internal/model"
	"github.com/insideout-platform/notify-service/internal/repository"
)

type scheduleRepository struct {
	db *sqlx.DB
}

func NewScheduleRepository(db *sqlx.DB) repository.ScheduleRepository {
	return &scheduleRepository{db: db}
}

// ListScheduledOnDates is the coarse pre-filter for the reminder generator:
// it matches on calendar date only, and joins the student and course so the
// generator does not fan out per-candidate queries.
func (r *scheduleRepository) ListScheduledOnDates(ctx context.Context, dates []time.Time) ([]*model.Schedule, error) {
	days := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		days = append(days, time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC))
	}

	query := `
		SELECT s.id, s.enrollment_id, s.start_at, s.end_at, s.status,
			   u.id AS student_id, u.email AS student_email,
			   u.first_name AS student_first_name, u.last_name AS student_last_name,
			   c.title AS course_title
		FROM schedules s
		JOIN enrollments e ON e.id = s.enrollment_id
		JOIN users u ON u.id = e.student_id
		JOIN courses c ON c.id = e.course_id
		WHERE s.status = $1
		AND s.start_at::date = ANY($2)
		ORDER BY s.start_at ASC
	`
	var schedules []*model.Schedule
	err := r.db.SelectContext(ctx, &schedules, query, model.ScheduleStatusScheduled, pq.Array(days))
	if err != nil {
		return nil, fmt.Errorf("failed to list scheduled sessions: %w", err)
	}
	return schedules, nil
}
