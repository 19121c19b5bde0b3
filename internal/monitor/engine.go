// Package monitor implements the monitoring-status engine and reminder
// pacing rules for directives. Every function takes the evaluation time as
// an explicit parameter; nothing here reads the wall clock.
package monitor

import (
	"fmt"
	"math"
	"time"

	"github.com/starford/raido/internal/models"
)

// ReminderCap is the maximum number of automatic reminders per directive.
// Escalation beyond the cap is an administrative decision, not automatic.
// The same threshold marks an owner non-responsive when no update has
// arrived since the last reminder.
const ReminderCap = 3

// Change describes the outcome of a Recompute call.
type Change struct {
	OldStatus       models.MonitoringStatus
	NewStatus       models.MonitoringStatus
	Responsive      bool
	HistoryAppended bool
}

// Changed reports whether the monitoring status moved.
func (c Change) Changed() bool { return c.OldStatus != c.NewStatus }

// Recompute derives the directive's monitoring status and responsiveness
// from its current field values as of asOf, mutating d in place. The
// branch order encodes priority:
//
//  1. All outcomes completed (non-empty) or implementation marked
//     Completed wins outright, and a completed directive is never flagged
//     non-responsive.
//  2. An absent end date is its own terminal state (Needs Timeline) and
//     must be decided before any day arithmetic.
//  3. Otherwise risk follows days until the deadline, with a persistent
//     non-response (reminders at the cap) forcing At Risk regardless of
//     the calendar.
//
// Exactly one status-history entry is appended when the computed status
// differs from the stored one; note overrides the default entry text.
func Recompute(d *models.Directive, asOf time.Time, note string) Change {
	old := d.MonitoringStatus

	switch {
	case d.AllOutcomesCompleted() || d.ImplementationStatus == models.ImplementationCompleted:
		d.MonitoringStatus = models.StatusCompleted
		d.IsResponsive = true

	case d.ImplementationEndDate == nil:
		d.MonitoringStatus = models.StatusNeedsTimeline
		applyResponsiveness(d)

	default:
		days := daysUntil(asOf, *d.ImplementationEndDate)
		switch {
		case days <= 7:
			d.MonitoringStatus = models.StatusHighRisk
		case days < 30 || d.Reminders >= ReminderCap:
			d.MonitoringStatus = models.StatusAtRisk
		default:
			d.MonitoringStatus = models.StatusOnTrack
		}
		applyResponsiveness(d)
	}

	appended := false
	if old != d.MonitoringStatus {
		if note == "" {
			note = fmt.Sprintf("Status changed from %s to %s", old, d.MonitoringStatus)
		}
		d.StatusHistory = append(d.StatusHistory, models.StatusChange{
			Status:    d.MonitoringStatus,
			ChangedAt: asOf,
			Notes:     note,
		})
		appended = true
	}

	return Change{
		OldStatus:       old,
		NewStatus:       d.MonitoringStatus,
		Responsive:      d.IsResponsive,
		HistoryAppended: appended,
	}
}

// applyResponsiveness updates the sticky IsResponsive flag. An owner is
// non-responsive once the reminder cap is reached with no update since the
// last reminder; any later update flips the flag back. When neither
// condition holds the flag keeps its previous value.
func applyResponsiveness(d *models.Directive) {
	switch {
	case d.Reminders >= ReminderCap && silentSinceLastReminder(d):
		d.IsResponsive = false
	case d.LastOwnerUpdate != nil && d.LastOwnerUpdate.After(responseBaseline(d)):
		d.IsResponsive = true
	}
}

func silentSinceLastReminder(d *models.Directive) bool {
	if d.LastOwnerUpdate == nil {
		return true
	}
	return d.LastReminderDate != nil && d.LastOwnerUpdate.Before(*d.LastReminderDate)
}

// responseBaseline is the moment an owner update must postdate to count as
// a response: the last reminder, or creation when none was ever sent.
func responseBaseline(d *models.Directive) time.Time {
	if d.LastReminderDate != nil {
		return *d.LastReminderDate
	}
	return d.CreatedAt
}

// daysUntil returns the number of calendar days from 'from' until 'to',
// rounding partial days up. Negative when 'to' is in the past.
func daysUntil(from, to time.Time) int {
	return int(math.Ceil(to.Sub(from).Hours() / 24))
}
