package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/starford/raido/internal/models"
)

type rowScanner interface {
	Scan(dest ...any) error
}

// scanDirective hydrates one directive row, unmarshalling the JSON sequence
// columns and migrating any legacy monitoring status on the way out.
func scanDirective(row rowScanner) (*models.Directive, error) {
	var (
		d               models.Directive
		source, status  string
		implStart       sql.NullTime
		implEnd         sql.NullTime
		lastReminder    sql.NullTime
		lastOwnerUpdate sql.NullTime
		outcomes        string
		history         string
		reminderLog     string
	)
	err := row.Scan(
		&d.ID, &d.Ref, &source, &d.SheetName, &d.MeetingDate, &d.Subject, &d.Particulars,
		&d.Owner, &d.PrimaryEmail, &d.SecondaryEmail, &d.Amount, &d.Vendor,
		&implStart, &implEnd, &d.ImplementationStatus, &status,
		&d.Reminders, &lastReminder, &lastOwnerUpdate, &d.IsResponsive,
		&d.CompletionNote, &outcomes, &history, &reminderLog,
		&d.CreatedAt, &d.UpdatedAt, &d.UpdatedBy, &d.Version,
	)
	if err != nil {
		return nil, err
	}

	d.Source = models.Source(source)
	d.MonitoringStatus = models.MigrateMonitoringStatus(status)
	d.ImplementationStartDate = timePtr(implStart)
	d.ImplementationEndDate = timePtr(implEnd)
	d.LastReminderDate = timePtr(lastReminder)
	d.LastOwnerUpdate = timePtr(lastOwnerUpdate)

	if err := json.Unmarshal([]byte(outcomes), &d.Outcomes); err != nil {
		return nil, fmt.Errorf("unmarshal outcomes: %w", err)
	}
	if err := json.Unmarshal([]byte(history), &d.StatusHistory); err != nil {
		return nil, fmt.Errorf("unmarshal status history: %w", err)
	}
	if err := json.Unmarshal([]byte(reminderLog), &d.ReminderHistory); err != nil {
		return nil, fmt.Errorf("unmarshal reminder history: %w", err)
	}
	return &d, nil
}

func collectDirectives(rows *sql.Rows) ([]*models.Directive, error) {
	var out []*models.Directive
	for rows.Next() {
		d, err := scanDirective(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
