package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/insideout-platform/notify-service/internal/model"
	"github.com/insideout-platform/notify-service/internal/repository"
)

type settingsRepository struct {
	db *sqlx.DB
}

func NewSettingsRepository(db *sqlx.DB) repository.SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.NotificationSettings, error) {
	query := `
		SELECT id, user_id, notify_on_new_payment, notify_on_schedule_change,
			   notify_on_new_course, notify_on_meeting_reminder, reminder_lead_minutes
		FROM notification_settings
		WHERE user_id = $1
	`
	var settings model.NotificationSettings
	err := r.db.GetContext(ctx, &settings, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification settings: %w", err)
	}
	return &settings, nil
}
