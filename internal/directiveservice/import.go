package directiveservice

import (
	"context"
	"errors"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/monitor"
)

// ImportUpsert inserts an imported directive or refreshes the existing
// record matching its import key (subject, meeting date, sheet name).
// A refresh never clobbers operator-entered state: an end date already set
// stays, and outcomes are only replaced while every existing outcome is
// still untouched (Not Started). Returns true when a new record was
// created.
func (s *Service) ImportUpsert(ctx context.Context, incoming *models.Directive) (bool, error) {
	existing, err := s.store.FindByImportKey(ctx, incoming.Subject, incoming.MeetingDate, incoming.SheetName)
	if errors.Is(err, apperr.ErrNotFound) {
		_, err := s.Create(ctx, incoming)
		return true, err
	}
	if err != nil {
		return false, err
	}

	err = s.withRetry(ctx, existing.ID, func(d *models.Directive) error {
		now := s.Now()
		d.Particulars = incoming.Particulars
		d.Owner = incoming.Owner
		d.Amount = incoming.Amount
		d.Vendor = incoming.Vendor
		d.ImplementationStatus = incoming.ImplementationStatus
		if incoming.PrimaryEmail != "" {
			d.PrimaryEmail = incoming.PrimaryEmail
		}
		if incoming.SecondaryEmail != "" {
			d.SecondaryEmail = incoming.SecondaryEmail
		}
		if d.ImplementationStartDate == nil {
			d.ImplementationStartDate = incoming.ImplementationStartDate
		}
		if d.ImplementationEndDate == nil {
			d.ImplementationEndDate = incoming.ImplementationEndDate
		}
		if allNotStarted(d.Outcomes) && len(incoming.Outcomes) > 0 {
			d.Outcomes = incoming.Outcomes
		}
		d.UpdatedAt = now
		monitor.Recompute(d, now, "Imported update")
		return nil
	})
	return false, err
}

func allNotStarted(outcomes []models.Outcome) bool {
	for _, o := range outcomes {
		if o.Status != models.OutcomeNotStarted {
			return false
		}
	}
	return true
}
