package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/raido/internal/models"
)

// GetReminderSettings returns the singleton reminder settings row, creating
// it with defaults stamped at now on first access.
func (s *Store) GetReminderSettings(ctx context.Context, now time.Time) (models.ReminderSettings, error) {
	var (
		enabled   bool
		statuses  string
		updatedAt time.Time
	)
	err := s.conn.QueryRowContext(ctx,
		`SELECT enabled, statuses, updated_at FROM reminder_settings WHERE id = 1`,
	).Scan(&enabled, &statuses, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		defaults := models.DefaultReminderSettings()
		defaults.UpdatedAt = now
		if err := s.PutReminderSettings(ctx, defaults); err != nil {
			return models.ReminderSettings{}, err
		}
		return defaults, nil
	}
	if err != nil {
		return models.ReminderSettings{}, fmt.Errorf("store: get settings: %w", err)
	}

	out := models.ReminderSettings{Enabled: enabled, UpdatedAt: updatedAt}
	if err := json.Unmarshal([]byte(statuses), &out.StatusSettings); err != nil {
		return models.ReminderSettings{}, fmt.Errorf("store: unmarshal settings: %w", err)
	}
	return out, nil
}

// PutReminderSettings upserts the singleton reminder settings row.
func (s *Store) PutReminderSettings(ctx context.Context, settings models.ReminderSettings) error {
	statuses, err := json.Marshal(settings.StatusSettings)
	if err != nil {
		return fmt.Errorf("store: marshal settings: %w", err)
	}
	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO reminder_settings (id, enabled, statuses, updated_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			enabled    = excluded.enabled,
			statuses   = excluded.statuses,
			updated_at = excluded.updated_at
	`, settings.Enabled, string(statuses), settings.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: put settings: %w", err)
	}
	return nil
}
