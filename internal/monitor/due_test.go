package monitor

import (
	"testing"
	"time"

	"github.com/starford/raido/internal/models"
)

func TestIsReminderDueTimelinePacing(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 90) // interval = 30 days

	d := baseDirective()
	d.ImplementationStartDate = &start
	d.ImplementationEndDate = &end

	tests := []struct {
		name      string
		reminders int
		day       int
		want      bool
	}{
		{"first not due at day 29", 0, 29, false},
		{"first due at day 30", 0, 30, true},
		{"second not due at day 59", 1, 59, false},
		{"second due at day 60", 1, 60, true},
		{"third not due at day 89", 2, 89, false},
		{"third due at day 90", 2, 90, true},
		{"capped never due", 3, 200, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d.Reminders = tt.reminders
			asOf := start.AddDate(0, 0, tt.day)
			if got := IsReminderDue(d, asOf); got != tt.want {
				t.Errorf("IsReminderDue(day %d, reminders %d) = %v, want %v", tt.day, tt.reminders, got, tt.want)
			}
		})
	}
}

func TestIsReminderDueAgeFallback(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	d := baseDirective()
	d.CreatedAt = created
	d.ImplementationStartDate = nil
	d.ImplementationEndDate = nil
	d.MonitoringStatus = models.StatusNeedsTimeline

	tests := []struct {
		name      string
		reminders int
		day       int
		want      bool
	}{
		{"not due at day 29", 0, 29, false},
		{"due at day 30", 0, 30, true},
		{"second due at day 60", 1, 60, true},
		{"second not due at day 59", 1, 59, false},
		{"third due at day 90", 2, 90, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d.Reminders = tt.reminders
			asOf := created.AddDate(0, 0, tt.day)
			if got := IsReminderDue(d, asOf); got != tt.want {
				t.Errorf("IsReminderDue = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsReminderDueCompleted(t *testing.T) {
	d := baseDirective()
	d.MonitoringStatus = models.StatusCompleted
	d.CreatedAt = now.AddDate(-1, 0, 0)
	if IsReminderDue(d, now) {
		t.Error("completed directive must never be due")
	}
}

func TestIsReminderDueStartDateOnlyFallsBack(t *testing.T) {
	// A start date without an end date is not a full window; pacing falls
	// back to age since creation.
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d := baseDirective()
	d.CreatedAt = created
	d.ImplementationStartDate = &created
	d.ImplementationEndDate = nil
	d.Reminders = 0

	if IsReminderDue(d, created.AddDate(0, 0, 15)) {
		t.Error("due at day 15 without a full window")
	}
	if !IsReminderDue(d, created.AddDate(0, 0, 30)) {
		t.Error("not due at day 30 without a full window")
	}
}

func TestIsReminderDueShortWindow(t *testing.T) {
	// A 9-day project is reminded at roughly thirds of its runway.
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 9)
	d := baseDirective()
	d.ImplementationStartDate = &start
	d.ImplementationEndDate = &end
	d.Reminders = 0

	if IsReminderDue(d, start.AddDate(0, 0, 2)) {
		t.Error("due before the first third elapsed")
	}
	if !IsReminderDue(d, start.AddDate(0, 0, 3)) {
		t.Error("not due at one third of the window")
	}
}
