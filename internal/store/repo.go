package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
)

const directiveColumns = `id, ref, source, sheet_name, meeting_date, subject, particulars,
	owner, primary_email, secondary_email, amount, vendor,
	impl_start, impl_end, impl_status, monitoring_status,
	reminders, last_reminder, last_owner_update, is_responsive,
	completion_note, outcomes, status_history, reminder_history,
	created_at, updated_at, updated_by, version`

// Put inserts a new directive. The caller is expected to have populated ID,
// CreatedAt, and UpdatedAt; Version starts at 1.
func (s *Store) Put(ctx context.Context, d *models.Directive) error {
	outcomes, history, reminders, err := marshalSequences(d)
	if err != nil {
		return err
	}
	d.Version = 1
	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO directives (`+directiveColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		d.ID, d.Ref, string(d.Source), d.SheetName, d.MeetingDate, d.Subject, d.Particulars,
		d.Owner, d.PrimaryEmail, d.SecondaryEmail, d.Amount, d.Vendor,
		nullTime(d.ImplementationStartDate), nullTime(d.ImplementationEndDate),
		d.ImplementationStatus, string(d.MonitoringStatus),
		d.Reminders, nullTime(d.LastReminderDate), nullTime(d.LastOwnerUpdate), d.IsResponsive,
		d.CompletionNote, outcomes, history, reminders,
		d.CreatedAt, d.UpdatedAt, d.UpdatedBy, d.Version,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return apperr.ErrAlreadyExists
		}
		return fmt.Errorf("store: put: %w", err)
	}
	return nil
}

// Get returns the directive with the given id.
func (s *Store) Get(ctx context.Context, id string) (*models.Directive, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT `+directiveColumns+` FROM directives WHERE id = ?`, id)
	d, err := scanDirective(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get %s: %w", id, err)
	}
	return d, nil
}

// Update persists a directive conditionally on the version it was loaded
// at. A version mismatch (concurrent writer won) returns ErrConflict; the
// caller should reload and retry rather than overwrite blindly.
func (s *Store) Update(ctx context.Context, d *models.Directive) error {
	outcomes, history, reminders, err := marshalSequences(d)
	if err != nil {
		return err
	}
	res, err := s.conn.ExecContext(ctx, `
		UPDATE directives SET
			ref = ?, source = ?, sheet_name = ?, meeting_date = ?, subject = ?, particulars = ?,
			owner = ?, primary_email = ?, secondary_email = ?, amount = ?, vendor = ?,
			impl_start = ?, impl_end = ?, impl_status = ?, monitoring_status = ?,
			reminders = ?, last_reminder = ?, last_owner_update = ?, is_responsive = ?,
			completion_note = ?, outcomes = ?, status_history = ?, reminder_history = ?,
			updated_at = ?, updated_by = ?, version = version + 1
		WHERE id = ? AND version = ?
	`,
		d.Ref, string(d.Source), d.SheetName, d.MeetingDate, d.Subject, d.Particulars,
		d.Owner, d.PrimaryEmail, d.SecondaryEmail, d.Amount, d.Vendor,
		nullTime(d.ImplementationStartDate), nullTime(d.ImplementationEndDate),
		d.ImplementationStatus, string(d.MonitoringStatus),
		d.Reminders, nullTime(d.LastReminderDate), nullTime(d.LastOwnerUpdate), d.IsResponsive,
		d.CompletionNote, outcomes, history, reminders,
		d.UpdatedAt, d.UpdatedBy,
		d.ID, d.Version,
	)
	if err != nil {
		return fmt.Errorf("store: update %s: %w", d.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: update %s: rows affected: %w", d.ID, err)
	}
	if n == 0 {
		// Distinguish a missing row from a lost race.
		var one int
		err := s.conn.QueryRowContext(ctx, `SELECT 1 FROM directives WHERE id = ?`, d.ID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.ErrNotFound
		}
		return apperr.ErrConflict
	}
	d.Version++
	return nil
}

// Filter narrows List results. Zero-value fields are ignored.
type Filter struct {
	Source    models.Source
	Owner     string // substring match, case-insensitive
	Status    models.MonitoringStatus
	SheetName string
}

// List returns directives matching the filter, most recently created first.
func (s *Store) List(ctx context.Context, f Filter) ([]*models.Directive, error) {
	query := `SELECT ` + directiveColumns + ` FROM directives`
	var conds []string
	var args []any
	if f.Source != "" {
		conds = append(conds, "source = ?")
		args = append(args, string(f.Source))
	}
	if f.Owner != "" {
		conds = append(conds, "owner LIKE ? COLLATE NOCASE")
		args = append(args, "%"+f.Owner+"%")
	}
	if f.Status != "" {
		conds = append(conds, "monitoring_status = ?")
		args = append(args, string(f.Status))
	}
	if f.SheetName != "" {
		conds = append(conds, "sheet_name = ?")
		args = append(args, f.SheetName)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()
	return collectDirectives(rows)
}

// EligibleForReminder returns directives whose monitoring status is in the
// allow-list and whose reminder counter is below the cap.
func (s *Store) EligibleForReminder(ctx context.Context, statuses []models.MonitoringStatus, reminderCap int) ([]*models.Directive, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(statuses)), ", ")
	args := make([]any, 0, len(statuses)+1)
	for _, st := range statuses {
		args = append(args, string(st))
	}
	args = append(args, reminderCap)

	rows, err := s.conn.QueryContext(ctx, `
		SELECT `+directiveColumns+` FROM directives
		WHERE monitoring_status IN (`+placeholders+`) AND reminders < ?
		ORDER BY created_at
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("store: eligible: %w", err)
	}
	defer rows.Close()
	return collectDirectives(rows)
}

// FindByImportKey locates a directive by the import dedup key
// (subject, meeting date, sheet name).
func (s *Store) FindByImportKey(ctx context.Context, subject string, meetingDate time.Time, sheetName string) (*models.Directive, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT `+directiveColumns+` FROM directives
		WHERE subject = ? AND meeting_date = ? AND sheet_name = ?
	`, subject, meetingDate, sheetName)
	d, err := scanDirective(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: find by import key: %w", err)
	}
	return d, nil
}

// Delete removes a single directive.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM directives WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// DeleteAll removes every directive. Administrative bulk-clear only.
func (s *Store) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM directives`)
	if err != nil {
		return 0, fmt.Errorf("store: delete all: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// DistinctOwners returns every named process owner, sorted, excluding the
// Unassigned sentinel.
func (s *Store) DistinctOwners(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, `SELECT DISTINCT owner FROM directives WHERE owner != '' AND owner != ? ORDER BY owner`, models.OwnerUnassigned)
}

// DistinctSheets returns every sheet name present, sorted.
func (s *Store) DistinctSheets(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, `SELECT DISTINCT sheet_name FROM directives WHERE sheet_name != '' ORDER BY sheet_name`)
}

func (s *Store) distinct(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: distinct: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// NextRefSequence returns the next sequence number for references with the
// given prefix, month abbreviation, and year. It is one past the highest
// existing sequence, so numbers are never reissued after a delete.
func (s *Store) NextRefSequence(ctx context.Context, prefix, month string, year int) (int, error) {
	pattern := fmt.Sprintf("%s/%s/%%/%d", prefix, month, year)
	rows, err := s.conn.QueryContext(ctx, `SELECT ref FROM directives WHERE ref LIKE ?`, pattern)
	if err != nil {
		return 0, fmt.Errorf("store: next ref sequence: %w", err)
	}
	defer rows.Close()

	highest := 0
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return 0, err
		}
		parts := strings.Split(ref, "/")
		if len(parts) != 4 {
			continue
		}
		if n, err := strconv.Atoi(parts[2]); err == nil && n > highest {
			highest = n
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("store: next ref sequence: %w", err)
	}
	return highest + 1, nil
}

func marshalSequences(d *models.Directive) (outcomes, history, reminders string, err error) {
	ob, err := json.Marshal(orEmptyOutcomes(d.Outcomes))
	if err != nil {
		return "", "", "", fmt.Errorf("store: marshal outcomes: %w", err)
	}
	hb, err := json.Marshal(orEmptyHistory(d.StatusHistory))
	if err != nil {
		return "", "", "", fmt.Errorf("store: marshal status history: %w", err)
	}
	rb, err := json.Marshal(orEmptyReminders(d.ReminderHistory))
	if err != nil {
		return "", "", "", fmt.Errorf("store: marshal reminder history: %w", err)
	}
	return string(ob), string(hb), string(rb), nil
}

func orEmptyOutcomes(v []models.Outcome) []models.Outcome {
	if v == nil {
		return []models.Outcome{}
	}
	return v
}

func orEmptyHistory(v []models.StatusChange) []models.StatusChange {
	if v == nil {
		return []models.StatusChange{}
	}
	return v
}

func orEmptyReminders(v []models.ReminderRecord) []models.ReminderRecord {
	if v == nil {
		return []models.ReminderRecord{}
	}
	return v
}
