package api

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/raido/internal/models"
)

// OutcomeDTO is one outcome in a create/update request.
type OutcomeDTO struct {
	Text              string `json:"text"`
	Status            string `json:"status"`
	CompletionDetails string `json:"completion_details,omitempty"`
	DelayReason       string `json:"delay_reason,omitempty"`
	Challenges        string `json:"challenges,omitempty"`
}

// Validate checks one outcome. An empty status defaults to Not Started
// at conversion time; a present status must be a known value.
func (o OutcomeDTO) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.Text, validation.Required, validation.Length(1, models.OutcomeTextLimit)),
		validation.Field(&o.Status, validation.In(
			string(models.OutcomeNotStarted),
			string(models.OutcomeBeingImplemented),
			string(models.OutcomeDelayed),
			string(models.OutcomeCompleted),
		)),
	)
}

func (o OutcomeDTO) toModel() models.Outcome {
	status := models.OutcomeStatus(o.Status)
	if o.Status == "" {
		status = models.OutcomeNotStarted
	}
	return models.Outcome{
		Text:              o.Text,
		Status:            status,
		CompletionDetails: o.CompletionDetails,
		DelayReason:       o.DelayReason,
		Challenges:        o.Challenges,
	}
}

func toOutcomes(dtos []OutcomeDTO) []models.Outcome {
	if dtos == nil {
		return nil
	}
	out := make([]models.Outcome, len(dtos))
	for i, o := range dtos {
		out[i] = o.toModel()
	}
	return out
}

// CreateDirectiveRequest is the request body for creating a directive.
type CreateDirectiveRequest struct {
	Source               string       `json:"source"`
	SheetName            string       `json:"sheet_name"`
	MeetingDate          time.Time    `json:"meeting_date"`
	Subject              string       `json:"subject"`
	Particulars          string       `json:"particulars"`
	Owner                string       `json:"owner"`
	PrimaryEmail         string       `json:"primary_email"`
	SecondaryEmail       string       `json:"secondary_email"`
	Amount               string       `json:"amount"`
	Vendor               string       `json:"vendor"`
	StartDate            *time.Time   `json:"implementation_start_date"`
	EndDate              *time.Time   `json:"implementation_end_date"`
	ImplementationStatus string       `json:"implementation_status"`
	Outcomes             []OutcomeDTO `json:"outcomes"`
}

// Validate checks the create request.
func (r CreateDirectiveRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Source, validation.Required, validation.In(
			string(models.SourceCouncil),
			string(models.SourceBoard),
		)),
		validation.Field(&r.Subject, validation.Required),
		validation.Field(&r.MeetingDate, validation.Required),
		validation.Field(&r.Outcomes),
	)
}

func (r CreateDirectiveRequest) toModel() *models.Directive {
	return &models.Directive{
		Source:                  models.Source(r.Source),
		SheetName:               r.SheetName,
		MeetingDate:             r.MeetingDate,
		Subject:                 r.Subject,
		Particulars:             r.Particulars,
		Owner:                   r.Owner,
		PrimaryEmail:            r.PrimaryEmail,
		SecondaryEmail:          r.SecondaryEmail,
		Amount:                  r.Amount,
		Vendor:                  r.Vendor,
		ImplementationStartDate: r.StartDate,
		ImplementationEndDate:   r.EndDate,
		ImplementationStatus:    r.ImplementationStatus,
		Outcomes:                toOutcomes(r.Outcomes),
	}
}

// UpdateDirectiveRequest is the request body for patching a directive.
// Absent fields are left untouched.
type UpdateDirectiveRequest struct {
	Subject              *string      `json:"subject"`
	Particulars          *string      `json:"particulars"`
	Owner                *string      `json:"owner"`
	PrimaryEmail         *string      `json:"primary_email"`
	SecondaryEmail       *string      `json:"secondary_email"`
	Amount               *string      `json:"amount"`
	Vendor               *string      `json:"vendor"`
	SheetName            *string      `json:"sheet_name"`
	MeetingDate          *time.Time   `json:"meeting_date"`
	StartDate            *time.Time   `json:"implementation_start_date"`
	EndDate              *time.Time   `json:"implementation_end_date"`
	ClearEndDate         bool         `json:"clear_end_date"`
	ImplementationStatus *string      `json:"implementation_status"`
	CompletionNote       *string      `json:"completion_note"`
	Outcomes             []OutcomeDTO `json:"outcomes"`
	UpdatedBy            string       `json:"updated_by"`
}

// Validate checks the update request.
func (r UpdateDirectiveRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Outcomes),
	)
}

// ReminderSettingsRequest is the request body for updating reminder settings.
type ReminderSettingsRequest struct {
	Enabled        bool            `json:"enabled"`
	StatusSettings map[string]bool `json:"status_settings"`
}

// Validate checks that every status key is a known monitoring status.
func (r ReminderSettingsRequest) Validate() error {
	for key := range r.StatusSettings {
		if !models.MonitoringStatus(key).Valid() {
			return validation.NewError("validation_unknown_status", "unknown monitoring status: "+key)
		}
	}
	return nil
}

func (r ReminderSettingsRequest) toModel() models.ReminderSettings {
	settings := models.ReminderSettings{Enabled: r.Enabled}
	if r.StatusSettings != nil {
		settings.StatusSettings = make(map[models.MonitoringStatus]bool, len(r.StatusSettings))
		for key, on := range r.StatusSettings {
			settings.StatusSettings[models.MonitoringStatus(key)] = on
		}
	}
	return settings
}

// DirectiveListResponse wraps a directive listing.
type DirectiveListResponse struct {
	Directives []*models.Directive `json:"directives"`
	Total      int                 `json:"total"`
}
