// Package models defines the domain types for Raido.
package models

import "time"

// Source identifies the governing body that issued a directive.
type Source string

// Known directive sources.
const (
	SourceCouncil Source = "CouncilDecision"
	SourceBoard   Source = "BoardDecision"
)

// Valid reports whether s is one of the two known source values.
func (s Source) Valid() bool {
	return s == SourceCouncil || s == SourceBoard
}

// RefPrefix returns the reference-number prefix for the source.
func (s Source) RefPrefix() string {
	if s == SourceBoard {
		return "BD"
	}
	return "CG"
}

// MonitoringStatus is the derived risk classification of a directive.
// It is recomputed by the monitor package and never hand-set by callers.
type MonitoringStatus string

// Monitoring statuses.
const (
	StatusOnTrack       MonitoringStatus = "On Track"
	StatusAtRisk        MonitoringStatus = "At Risk"
	StatusHighRisk      MonitoringStatus = "High Risk"
	StatusNeedsTimeline MonitoringStatus = "Needs Timeline"
	StatusCompleted     MonitoringStatus = "Completed"
)

// Valid reports whether m is one of the five known monitoring statuses.
func (m MonitoringStatus) Valid() bool {
	switch m {
	case StatusOnTrack, StatusAtRisk, StatusHighRisk, StatusNeedsTimeline, StatusCompleted:
		return true
	default:
		return false
	}
}

// MigrateMonitoringStatus maps legacy stored status values onto the current
// enum. "Awaiting Next Reminder" and "Non-Responsive" were retired: the
// former became On Track and the latter became the IsResponsive flag, so a
// legacy row lands on On Track and the next recompute reclassifies it.
func MigrateMonitoringStatus(raw string) MonitoringStatus {
	switch raw {
	case "Awaiting Next Reminder", "Non-Responsive":
		return StatusOnTrack
	default:
		if m := MonitoringStatus(raw); m.Valid() {
			return m
		}
		return StatusOnTrack
	}
}

// OutcomeStatus is the implementation state of a single outcome.
type OutcomeStatus string

// Outcome statuses.
const (
	OutcomeNotStarted       OutcomeStatus = "Not Started"
	OutcomeBeingImplemented OutcomeStatus = "Being Implemented"
	OutcomeDelayed          OutcomeStatus = "Delayed"
	OutcomeCompleted        OutcomeStatus = "Completed"
)

// Valid reports whether o is one of the four known outcome statuses.
func (o OutcomeStatus) Valid() bool {
	switch o {
	case OutcomeNotStarted, OutcomeBeingImplemented, OutcomeDelayed, OutcomeCompleted:
		return true
	default:
		return false
	}
}

// ImplementationCompleted is the implementation-status value that forces a
// directive's monitoring status to Completed regardless of its outcomes.
const ImplementationCompleted = "Completed"

// OwnerUnassigned is the sentinel owner for directives with no accountable
// party on record.
const OwnerUnassigned = "Unassigned"

// OutcomeTextLimit is the practical cap on outcome text length.
const OutcomeTextLimit = 800

// Outcome is one discrete commitment within a directive.
type Outcome struct {
	Text              string        `json:"text"`
	Status            OutcomeStatus `json:"status"`
	CompletionDetails string        `json:"completion_details,omitempty"`
	DelayReason       string        `json:"delay_reason,omitempty"`
	Challenges        string        `json:"challenges,omitempty"`
}

// StatusChange is one entry in a directive's append-only status history.
type StatusChange struct {
	Status    MonitoringStatus `json:"status"`
	ChangedAt time.Time        `json:"changed_at"`
	Notes     string           `json:"notes,omitempty"`
}

// ReminderMethod records how a reminder reached (or failed to reach) the owner.
type ReminderMethod string

// Reminder delivery methods. System marks a dispatch whose email send failed;
// the attempt still counts for pacing.
const (
	MethodEmail  ReminderMethod = "Email"
	MethodSystem ReminderMethod = "System"
)

// ReminderRecord is one entry in a directive's append-only reminder history.
type ReminderRecord struct {
	SentAt       time.Time      `json:"sent_at"`
	Recipient    string         `json:"recipient"`
	Method       ReminderMethod `json:"method"`
	Acknowledged bool           `json:"acknowledged"`
}

// Directive is one governance decision requiring tracked implementation.
type Directive struct {
	ID             string    `json:"id"`
	Ref            string    `json:"ref,omitempty"`
	Source         Source    `json:"source"`
	SheetName      string    `json:"sheet_name,omitempty"`
	MeetingDate    time.Time `json:"meeting_date"`
	Subject        string    `json:"subject"`
	Particulars    string    `json:"particulars"`
	Owner          string    `json:"owner"`
	PrimaryEmail   string    `json:"primary_email,omitempty"`
	SecondaryEmail string    `json:"secondary_email,omitempty"`
	Amount         string    `json:"amount,omitempty"`
	Vendor         string    `json:"vendor,omitempty"`

	// Implementation window. A nil end date is the meaningful
	// "no timeline yet" state, not an error.
	ImplementationStartDate *time.Time `json:"implementation_start_date,omitempty"`
	ImplementationEndDate   *time.Time `json:"implementation_end_date,omitempty"`
	ImplementationStatus    string     `json:"implementation_status"`

	Outcomes []Outcome `json:"outcomes"`

	MonitoringStatus MonitoringStatus `json:"monitoring_status"`
	StatusHistory    []StatusChange   `json:"status_history"`

	Reminders        int              `json:"reminders"`
	LastReminderDate *time.Time       `json:"last_reminder_date,omitempty"`
	ReminderHistory  []ReminderRecord `json:"reminder_history"`

	IsResponsive    bool       `json:"is_responsive"`
	LastOwnerUpdate *time.Time `json:"last_owner_update,omitempty"`

	CompletionNote string    `json:"completion_note,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	UpdatedBy      string    `json:"updated_by,omitempty"`

	// Version supports conditional writes at the storage layer.
	Version int64 `json:"version"`
}

// AllOutcomesCompleted reports whether the directive has at least one
// outcome and every outcome is Completed. An empty outcome list is
// treated as not completed.
func (d *Directive) AllOutcomesCompleted() bool {
	if len(d.Outcomes) == 0 {
		return false
	}
	for _, o := range d.Outcomes {
		if o.Status != OutcomeCompleted {
			return false
		}
	}
	return true
}

// ReminderSettings is the admin-configured allow-list of monitoring
// statuses for which automatic reminders are enabled.
type ReminderSettings struct {
	Enabled        bool                      `json:"enabled"`
	StatusSettings map[MonitoringStatus]bool `json:"status_settings"`
	UpdatedAt      time.Time                 `json:"updated_at"`
}

// DefaultReminderSettings enables automatic reminders for the three active
// risk tiers. Completed and Needs Timeline are excluded by convention.
func DefaultReminderSettings() ReminderSettings {
	return ReminderSettings{
		Enabled: true,
		StatusSettings: map[MonitoringStatus]bool{
			StatusOnTrack:       true,
			StatusAtRisk:        true,
			StatusHighRisk:      true,
			StatusNeedsTimeline: false,
			StatusCompleted:     false,
		},
	}
}

// EnabledStatuses returns the statuses for which automatic reminders are on.
func (s ReminderSettings) EnabledStatuses() []MonitoringStatus {
	var out []MonitoringStatus
	for _, m := range []MonitoringStatus{StatusOnTrack, StatusAtRisk, StatusHighRisk, StatusNeedsTimeline, StatusCompleted} {
		if s.StatusSettings[m] {
			out = append(out, m)
		}
	}
	return out
}
