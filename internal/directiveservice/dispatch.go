package directiveservice

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/monitor"
	"github.com/starford/raido/internal/store"
)

// DispatchResult reports the outcome of one reminder dispatch.
type DispatchResult struct {
	Directive *models.Directive `json:"directive"`
	EmailSent bool              `json:"email_sent"`
}

// Remind dispatches a manual reminder for one directive, regardless of
// pacing. The cap on the reminder counter applies to the sweep only;
// sending past it here is an operator escalation.
func (s *Service) Remind(ctx context.Context, id string) (*DispatchResult, error) {
	var result *DispatchResult
	err := s.withRetry(ctx, id, func(d *models.Directive) error {
		result = s.dispatch(ctx, d, "Manual reminder")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// dispatch sends the reminder, advances the counter and history, and
// recomputes monitoring status. A failed send is recorded with method
// System and still counts toward pacing, so an unreachable inbox cannot
// cause runaway duplicate sends. The caller persists the directive.
func (s *Service) dispatch(ctx context.Context, d *models.Directive, kind string) *DispatchResult {
	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	err := s.notifier.Send(sendCtx, d)
	cancel()

	sent := err == nil
	if err != nil {
		s.logger.Warn("reminder send failed",
			slog.String("directive", d.ID),
			slog.String("owner", d.Owner),
			slog.String("error", err.Error()))
	}

	now := s.Now()
	d.Reminders++
	d.LastReminderDate = &now
	method := models.MethodEmail
	if !sent {
		method = models.MethodSystem
	}
	d.ReminderHistory = append(d.ReminderHistory, models.ReminderRecord{
		SentAt:    now,
		Recipient: d.Owner,
		Method:    method,
	})

	note := fmt.Sprintf("%s %d sent", kind, d.Reminders)
	if sent {
		note += " via email"
	}
	monitor.Recompute(d, now, note)
	d.UpdatedAt = now

	return &DispatchResult{Directive: d, EmailSent: sent}
}

// SweepResult summarises one reminder sweep.
type SweepResult struct {
	Checked int `json:"checked"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
}

// Sweep runs the reminder pass: for every directive eligible under current
// settings it evaluates the due predicate and dispatches when due. Items
// are processed sequentially and a failure in one never aborts the rest.
func (s *Service) Sweep(ctx context.Context) (SweepResult, error) {
	settings, err := s.store.GetReminderSettings(ctx, s.Now())
	if err != nil {
		return SweepResult{}, err
	}
	if !settings.Enabled {
		s.logger.Info("automatic reminders disabled, sweep skipped")
		return SweepResult{}, nil
	}

	eligible, err := s.store.EligibleForReminder(ctx, settings.EnabledStatuses(), monitor.ReminderCap)
	if err != nil {
		return SweepResult{}, err
	}

	var result SweepResult
	now := s.Now()
	for _, d := range eligible {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		result.Checked++
		if !monitor.IsReminderDue(d, now) {
			continue
		}

		r := s.dispatch(ctx, d, "Reminder")
		if err := s.store.Update(ctx, d); err != nil {
			// Lost a race or storage failed; skip this item, the next
			// sweep re-evaluates it from fresh state.
			result.Failed++
			s.logger.Error("sweep: persist failed",
				slog.String("directive", d.ID),
				slog.String("error", err.Error()))
			continue
		}
		result.Sent++
		s.logger.Info("reminder dispatched",
			slog.String("directive", d.ID),
			slog.String("ref", d.Ref),
			slog.String("owner", d.Owner),
			slog.Int("reminder", d.Reminders),
			slog.Bool("email_sent", r.EmailSent))
	}

	s.logger.Info("reminder sweep finished",
		slog.Int("checked", result.Checked),
		slog.Int("sent", result.Sent),
		slog.Int("failed", result.Failed))
	return result, nil
}

// Settings returns the reminder settings.
func (s *Service) Settings(ctx context.Context) (models.ReminderSettings, error) {
	return s.store.GetReminderSettings(ctx, s.Now())
}

// UpdateSettings replaces the reminder settings.
func (s *Service) UpdateSettings(ctx context.Context, settings models.ReminderSettings) (models.ReminderSettings, error) {
	settings.UpdatedAt = s.Now()
	if settings.StatusSettings == nil {
		settings.StatusSettings = models.DefaultReminderSettings().StatusSettings
	}
	if err := s.store.PutReminderSettings(ctx, settings); err != nil {
		return models.ReminderSettings{}, err
	}
	return settings, nil
}

// Stats returns the aggregate compliance report.
func (s *Service) Stats(ctx context.Context, source models.Source) (store.Stats, error) {
	return s.store.Stats(ctx, source, s.Now())
}

// NonResponsive returns directives whose owners have stopped engaging.
func (s *Service) NonResponsive(ctx context.Context, source models.Source) ([]*models.Directive, error) {
	return s.store.NonResponsive(ctx, source)
}
