package monitor

import (
	"time"

	"github.com/starford/raido/internal/models"
)

// IsReminderDue reports whether the directive has earned another reminder
// as of asOf. Reminders are paced relative to the directive's runway: a
// full implementation window is split into thirds and one reminder comes
// due per third elapsed, gated by how many were already sent. Directives
// with no complete window fall back to a 30/60/90-day cadence from
// creation. Completed directives and directives at the cap never come due.
func IsReminderDue(d *models.Directive, asOf time.Time) bool {
	if d.MonitoringStatus == models.StatusCompleted {
		return false
	}
	if d.Reminders >= ReminderCap {
		return false
	}

	if d.ImplementationStartDate != nil && d.ImplementationEndDate != nil {
		totalDays := daysUntil(*d.ImplementationStartDate, *d.ImplementationEndDate)
		interval := totalDays / 3
		sinceStart := daysUntil(*d.ImplementationStartDate, asOf)

		switch d.Reminders {
		case 0:
			return sinceStart >= interval
		case 1:
			return sinceStart >= 2*interval
		case 2:
			return sinceStart >= totalDays
		}
		return false
	}

	age := daysUntil(d.CreatedAt, asOf)
	switch d.Reminders {
	case 0:
		return age >= 30
	case 1:
		return age >= 60
	case 2:
		return age >= 90
	}
	return false
}
