// Package directiveservice coordinates persistence, the monitoring engine,
// and the notifier for directive operations.
package directiveservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/monitor"
	"github.com/starford/raido/internal/notifier"
	"github.com/starford/raido/internal/store"
)

// conflictRetries bounds how often a read-modify-write is retried against a
// freshly loaded record after losing a version race.
const conflictRetries = 3

// defaultSendTimeout bounds one notifier call during dispatch.
const defaultSendTimeout = 30 * time.Second

// Service exposes directive operations to the API and scheduler.
type Service struct {
	store    *store.Store
	notifier notifier.Notifier
	logger   *slog.Logger

	// Now is the clock for every time-dependent operation. Tests replace
	// it with a fixed value.
	Now func() time.Time

	sendTimeout time.Duration
}

// NewService creates a directive service.
func NewService(st *store.Store, n notifier.Notifier, logger *slog.Logger) *Service {
	return &Service{
		store:       st,
		notifier:    n,
		logger:      logger,
		Now:         time.Now,
		sendTimeout: defaultSendTimeout,
	}
}

// Create inserts a new directive: defaults applied, reference number
// generated, monitoring status derived, and the opening history entry
// recorded.
func (s *Service) Create(ctx context.Context, d *models.Directive) (*models.Directive, error) {
	now := s.Now()
	d.ID = uuid.NewString()
	if strings.TrimSpace(d.Owner) == "" {
		d.Owner = models.OwnerUnassigned
	}
	if d.ImplementationStatus == "" {
		d.ImplementationStatus = "Not Started"
	}
	d.CreatedAt = now
	d.UpdatedAt = now
	d.IsResponsive = true
	d.Reminders = 0

	if d.Ref == "" {
		ref, err := s.generateRef(ctx, d)
		if err != nil {
			return nil, err
		}
		d.Ref = ref
	}

	monitor.Recompute(d, now, "Initial status")
	if len(d.StatusHistory) == 0 {
		// Recompute only appends on change; the opening status is still
		// worth a history entry.
		d.StatusHistory = append(d.StatusHistory, models.StatusChange{
			Status:    d.MonitoringStatus,
			ChangedAt: now,
			Notes:     "Initial status",
		})
	}

	if err := s.store.Put(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Get returns one directive by id.
func (s *Service) Get(ctx context.Context, id string) (*models.Directive, error) {
	return s.store.Get(ctx, id)
}

// List returns directives matching the filter.
func (s *Service) List(ctx context.Context, f store.Filter) ([]*models.Directive, error) {
	return s.store.List(ctx, f)
}

// Patch describes an owner- or admin-submitted edit. Nil fields are left
// untouched. ClearEndDate removes an end date explicitly (distinct from
// leaving it alone).
type Patch struct {
	Subject              *string
	Particulars          *string
	Owner                *string
	PrimaryEmail         *string
	SecondaryEmail       *string
	Amount               *string
	Vendor               *string
	SheetName            *string
	MeetingDate          *time.Time
	StartDate            *time.Time
	EndDate              *time.Time
	ClearEndDate         bool
	ImplementationStatus *string
	CompletionNote       *string
	Outcomes             []models.Outcome
	UpdatedBy            string
}

// Update applies a patch to a directive and recomputes its monitoring
// status. An outcome change counts as an owner response and stamps
// LastOwnerUpdate. Version conflicts are retried against a fresh load.
func (s *Service) Update(ctx context.Context, id string, p Patch) (*models.Directive, error) {
	var out *models.Directive
	err := s.withRetry(ctx, id, func(d *models.Directive) error {
		now := s.Now()
		applyPatch(d, p)

		note := "Directive edited"
		if p.Outcomes != nil {
			d.LastOwnerUpdate = &now
			note = "Owner update received"
		}
		d.UpdatedAt = now
		if p.UpdatedBy != "" {
			d.UpdatedBy = p.UpdatedBy
		}

		monitor.Recompute(d, now, note)
		out = d
		return nil
	})
	return out, err
}

func applyPatch(d *models.Directive, p Patch) {
	setString := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	setString(&d.Subject, p.Subject)
	setString(&d.Particulars, p.Particulars)
	setString(&d.PrimaryEmail, p.PrimaryEmail)
	setString(&d.SecondaryEmail, p.SecondaryEmail)
	setString(&d.Amount, p.Amount)
	setString(&d.Vendor, p.Vendor)
	setString(&d.SheetName, p.SheetName)
	setString(&d.ImplementationStatus, p.ImplementationStatus)
	setString(&d.CompletionNote, p.CompletionNote)
	if p.Owner != nil {
		d.Owner = *p.Owner
		if strings.TrimSpace(d.Owner) == "" {
			d.Owner = models.OwnerUnassigned
		}
	}
	if p.MeetingDate != nil {
		d.MeetingDate = *p.MeetingDate
	}
	if p.StartDate != nil {
		t := *p.StartDate
		d.ImplementationStartDate = &t
	}
	if p.EndDate != nil {
		t := *p.EndDate
		d.ImplementationEndDate = &t
	}
	if p.ClearEndDate {
		d.ImplementationEndDate = nil
	}
	if p.Outcomes != nil {
		d.Outcomes = p.Outcomes
	}
}

// Delete removes one directive.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// DeleteAll clears every directive. Administrative use only.
func (s *Service) DeleteAll(ctx context.Context) (int64, error) {
	return s.store.DeleteAll(ctx)
}

// Owners returns every named process owner.
func (s *Service) Owners(ctx context.Context) ([]string, error) {
	return s.store.DistinctOwners(ctx)
}

// Sheets returns every sheet name on record.
func (s *Service) Sheets(ctx context.Context) ([]string, error) {
	return s.store.DistinctSheets(ctx)
}

// withRetry runs a read-modify-write against the directive, retrying the
// whole cycle on a version conflict so a concurrent owner update is never
// silently dropped.
func (s *Service) withRetry(ctx context.Context, id string, mutate func(*models.Directive) error) error {
	var lastErr error
	for attempt := 0; attempt < conflictRetries; attempt++ {
		d, err := s.store.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := mutate(d); err != nil {
			return err
		}
		err = s.store.Update(ctx, d)
		if err == nil {
			return nil
		}
		if !errors.Is(err, apperr.ErrConflict) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("directiveservice: update %s: retries exhausted: %w", id, lastErr)
}

// generateRef builds the next reference number for the directive's source
// and meeting month, e.g. "CG/JAN/3/2026".
func (s *Service) generateRef(ctx context.Context, d *models.Directive) (string, error) {
	prefix := d.Source.RefPrefix()
	month := strings.ToUpper(d.MeetingDate.Format("Jan"))
	year := d.MeetingDate.Year()
	seq, err := s.store.NextRefSequence(ctx, prefix, month, year)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s/%d/%d", prefix, month, seq, year), nil
}
