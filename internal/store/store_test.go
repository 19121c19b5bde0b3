package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/store"
	"github.com/starford/raido/internal/testutil"
)

var meeting = time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

func TestPutGetRoundTrip(t *testing.T) {
	st := testutil.TestStore(t)
	ctx := context.Background()

	end := meeting.AddDate(0, 3, 0)
	d := testutil.Directive("Procure water meters", meeting)
	d.SheetName = "jan-council"
	d.PrimaryEmail = "owner@example.org"
	d.ImplementationEndDate = &end
	d.Outcomes = []models.Outcome{{Text: "Tender issued", Status: models.OutcomeNotStarted}}

	if err := st.Put(ctx, d); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := st.Get(ctx, d.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Subject != "Procure water meters" {
		t.Errorf("subject = %q", got.Subject)
	}
	if got.Version != 1 {
		t.Errorf("version = %d, want 1", got.Version)
	}
	if got.ImplementationEndDate == nil || !got.ImplementationEndDate.Equal(end) {
		t.Errorf("end date = %v, want %v", got.ImplementationEndDate, end)
	}
	if len(got.Outcomes) != 1 || got.Outcomes[0].Text != "Tender issued" {
		t.Errorf("outcomes = %+v", got.Outcomes)
	}
	if got.Outcomes == nil || got.StatusHistory == nil || got.ReminderHistory == nil {
		t.Error("sequence fields should round-trip as empty slices, not nil")
	}
}

func TestPutDuplicateID(t *testing.T) {
	st := testutil.TestStore(t)
	ctx := context.Background()

	d := testutil.Directive("First", meeting)
	if err := st.Put(ctx, d); err != nil {
		t.Fatalf("put: %v", err)
	}
	dup := testutil.Directive("Second", meeting)
	dup.ID = d.ID
	if err := st.Put(ctx, dup); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("duplicate id error = %v, want ErrAlreadyExists", err)
	}
}

func TestGetMissing(t *testing.T) {
	st := testutil.TestStore(t)
	if _, err := st.Get(context.Background(), "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateBumpsVersion(t *testing.T) {
	st := testutil.TestStore(t)
	ctx := context.Background()

	d := testutil.Directive("Versioned", meeting)
	if err := st.Put(ctx, d); err != nil {
		t.Fatalf("put: %v", err)
	}
	d.Owner = "Finance"
	if err := st.Update(ctx, d); err != nil {
		t.Fatalf("update: %v", err)
	}
	if d.Version != 2 {
		t.Errorf("in-memory version = %d, want 2", d.Version)
	}
	got, err := st.Get(ctx, d.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Version != 2 || got.Owner != "Finance" {
		t.Errorf("stored version=%d owner=%q", got.Version, got.Owner)
	}
}

func TestUpdateStaleVersionConflicts(t *testing.T) {
	st := testutil.TestStore(t)
	ctx := context.Background()

	d := testutil.Directive("Contended", meeting)
	if err := st.Put(ctx, d); err != nil {
		t.Fatalf("put: %v", err)
	}

	stale, err := st.Get(ctx, d.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	d.Owner = "First writer"
	if err := st.Update(ctx, d); err != nil {
		t.Fatalf("first update: %v", err)
	}

	stale.Owner = "Second writer"
	if err := st.Update(ctx, stale); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("stale update err = %v, want ErrConflict", err)
	}
}

func TestUpdateMissingDirective(t *testing.T) {
	st := testutil.TestStore(t)
	d := testutil.Directive("Ghost", meeting)
	d.Version = 1
	if err := st.Update(context.Background(), d); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListFilters(t *testing.T) {
	st := testutil.TestStore(t)
	ctx := context.Background()

	a := testutil.Directive("Council item", meeting)
	a.Owner = "Water Services"
	b := testutil.Directive("Board item", meeting)
	b.Source = models.SourceBoard
	b.Owner = "Finance"
	b.MonitoringStatus = models.StatusHighRisk
	for _, d := range []*models.Directive{a, b} {
		if err := st.Put(ctx, d); err != nil {
			t.Fatalf("put: %v", err)
		}
	}

	all, err := st.List(ctx, store.Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("list all = %d, want 2", len(all))
	}

	boards, err := st.List(ctx, store.Filter{Source: models.SourceBoard})
	if err != nil {
		t.Fatalf("list by source: %v", err)
	}
	if len(boards) != 1 || boards[0].Subject != "Board item" {
		t.Errorf("source filter got %d rows", len(boards))
	}

	// Owner match is a case-insensitive substring.
	byOwner, err := st.List(ctx, store.Filter{Owner: "water"})
	if err != nil {
		t.Fatalf("list by owner: %v", err)
	}
	if len(byOwner) != 1 || byOwner[0].Owner != "Water Services" {
		t.Errorf("owner filter got %d rows", len(byOwner))
	}

	risky, err := st.List(ctx, store.Filter{Status: models.StatusHighRisk})
	if err != nil {
		t.Fatalf("list by status: %v", err)
	}
	if len(risky) != 1 {
		t.Errorf("status filter got %d rows", len(risky))
	}
}

func TestEligibleForReminder(t *testing.T) {
	st := testutil.TestStore(t)
	ctx := context.Background()

	under := testutil.Directive("Under cap", meeting)
	under.MonitoringStatus = models.StatusAtRisk
	under.Reminders = 2
	capped := testutil.Directive("At cap", meeting)
	capped.MonitoringStatus = models.StatusAtRisk
	capped.Reminders = 3
	wrongStatus := testutil.Directive("Completed already", meeting)
	wrongStatus.MonitoringStatus = models.StatusCompleted
	for _, d := range []*models.Directive{under, capped, wrongStatus} {
		if err := st.Put(ctx, d); err != nil {
			t.Fatalf("put: %v", err)
		}
	}

	got, err := st.EligibleForReminder(ctx, []models.MonitoringStatus{models.StatusOnTrack, models.StatusAtRisk, models.StatusHighRisk}, 3)
	if err != nil {
		t.Fatalf("eligible: %v", err)
	}
	if len(got) != 1 || got[0].Subject != "Under cap" {
		t.Fatalf("eligible = %d rows, want only the under-cap directive", len(got))
	}

	none, err := st.EligibleForReminder(ctx, nil, 3)
	if err != nil {
		t.Fatalf("eligible empty: %v", err)
	}
	if none != nil {
		t.Errorf("empty status list should match nothing")
	}
}

func TestFindByImportKey(t *testing.T) {
	st := testutil.TestStore(t)
	ctx := context.Background()

	d := testutil.Directive("Street lighting", meeting)
	d.SheetName = "feb-board"
	if err := st.Put(ctx, d); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := st.FindByImportKey(ctx, "Street lighting", meeting, "feb-board")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.ID != d.ID {
		t.Errorf("found %q, want %q", got.ID, d.ID)
	}

	if _, err := st.FindByImportKey(ctx, "Street lighting", meeting, "other-sheet"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("different sheet err = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	st := testutil.TestStore(t)
	ctx := context.Background()

	d := testutil.Directive("Removable", meeting)
	if err := st.Put(ctx, d); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := st.Delete(ctx, d.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := st.Delete(ctx, d.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestDeleteAll(t *testing.T) {
	st := testutil.TestStore(t)
	ctx := context.Background()

	for _, subject := range []string{"One", "Two", "Three"} {
		if err := st.Put(ctx, testutil.Directive(subject, meeting)); err != nil {
			t.Fatalf("put: %v", err)
		}
	}
	n, err := st.DeleteAll(ctx)
	if err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if n != 3 {
		t.Errorf("deleted %d, want 3", n)
	}
}

func TestDistinctOwnersExcludesUnassigned(t *testing.T) {
	st := testutil.TestStore(t)
	ctx := context.Background()

	a := testutil.Directive("A", meeting)
	a.Owner = "Finance"
	b := testutil.Directive("B", meeting)
	b.Owner = "Finance"
	c := testutil.Directive("C", meeting)
	// c keeps the Unassigned sentinel.
	for _, d := range []*models.Directive{a, b, c} {
		if err := st.Put(ctx, d); err != nil {
			t.Fatalf("put: %v", err)
		}
	}

	owners, err := st.DistinctOwners(ctx)
	if err != nil {
		t.Fatalf("owners: %v", err)
	}
	if len(owners) != 1 || owners[0] != "Finance" {
		t.Errorf("owners = %v, want [Finance]", owners)
	}
}

func TestNextRefSequence(t *testing.T) {
	st := testutil.TestStore(t)
	ctx := context.Background()

	n, err := st.NextRefSequence(ctx, "CG", "JAN", 2026)
	if err != nil {
		t.Fatalf("next ref: %v", err)
	}
	if n != 1 {
		t.Errorf("empty table sequence = %d, want 1", n)
	}

	first := testutil.Directive("Seeded", meeting)
	first.Ref = "CG/JAN/1/2026"
	if err := st.Put(ctx, first); err != nil {
		t.Fatalf("put: %v", err)
	}
	second := testutil.Directive("Seeded again", meeting)
	second.Ref = "CG/JAN/2/2026"
	if err := st.Put(ctx, second); err != nil {
		t.Fatalf("put: %v", err)
	}

	n, err = st.NextRefSequence(ctx, "CG", "JAN", 2026)
	if err != nil {
		t.Fatalf("next ref: %v", err)
	}
	if n != 3 {
		t.Errorf("sequence = %d, want 3", n)
	}

	// A deleted directive never frees its number for reuse.
	if err := st.Delete(ctx, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	n, err = st.NextRefSequence(ctx, "CG", "JAN", 2026)
	if err != nil {
		t.Fatalf("next ref: %v", err)
	}
	if n != 3 {
		t.Errorf("sequence after delete = %d, want 3", n)
	}
}

func TestLegacyStatusMigratedOnRead(t *testing.T) {
	st := testutil.TestStore(t)
	ctx := context.Background()

	d := testutil.Directive("Legacy", meeting)
	d.MonitoringStatus = models.MonitoringStatus("Non-Responsive")
	if err := st.Put(ctx, d); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := st.Get(ctx, d.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.MonitoringStatus != models.StatusOnTrack {
		t.Errorf("status = %q, want %q", got.MonitoringStatus, models.StatusOnTrack)
	}
}

func TestReminderSettingsDefaultsOnFirstRead(t *testing.T) {
	st := testutil.TestStore(t)
	ctx := context.Background()

	settings, err := st.GetReminderSettings(ctx, meeting)
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if !settings.Enabled {
		t.Error("defaults should be enabled")
	}
	if !settings.UpdatedAt.Equal(meeting) {
		t.Errorf("updated_at = %v, want the caller's clock %v", settings.UpdatedAt, meeting)
	}
	if !settings.StatusSettings[models.StatusOnTrack] || settings.StatusSettings[models.StatusCompleted] {
		t.Errorf("default statuses = %v", settings.StatusSettings)
	}
}

func TestReminderSettingsUpsert(t *testing.T) {
	st := testutil.TestStore(t)
	ctx := context.Background()

	settings := models.DefaultReminderSettings()
	settings.Enabled = false
	settings.StatusSettings[models.StatusOnTrack] = false
	settings.UpdatedAt = meeting
	if err := st.PutReminderSettings(ctx, settings); err != nil {
		t.Fatalf("put settings: %v", err)
	}

	got, err := st.GetReminderSettings(ctx, meeting)
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if got.Enabled {
		t.Error("enabled should persist as false")
	}
	if got.StatusSettings[models.StatusOnTrack] {
		t.Error("On Track override should persist")
	}
}

func TestStatsReport(t *testing.T) {
	st := testutil.TestStore(t)
	ctx := context.Background()
	asOf := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	overdueEnd := asOf.AddDate(0, 0, -10)
	soonEnd := asOf.AddDate(0, 0, 15)

	done := testutil.Directive("Done", meeting)
	done.Owner = "Finance"
	done.MonitoringStatus = models.StatusCompleted

	late := testutil.Directive("Late", meeting)
	late.Owner = "Finance"
	late.MonitoringStatus = models.StatusHighRisk
	late.ImplementationEndDate = &overdueEnd
	late.IsResponsive = false

	soon := testutil.Directive("Soon", meeting)
	soon.Owner = "Water Services"
	soon.MonitoringStatus = models.StatusAtRisk
	soon.ImplementationEndDate = &soonEnd

	for _, d := range []*models.Directive{done, late, soon} {
		if err := st.Put(ctx, d); err != nil {
			t.Fatalf("put: %v", err)
		}
	}

	stats, err := st.Stats(ctx, "", asOf)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Summary.Total != 3 || stats.Summary.Completed != 1 || stats.Summary.HighRisk != 1 || stats.Summary.AtRisk != 1 {
		t.Errorf("summary = %+v", stats.Summary)
	}
	if stats.Summary.NonResponsive != 1 {
		t.Errorf("non-responsive = %d, want 1", stats.Summary.NonResponsive)
	}
	if stats.Overdue != 1 {
		t.Errorf("overdue = %d, want 1", stats.Overdue)
	}
	if stats.DueSoon != 1 {
		t.Errorf("due soon = %d, want 1", stats.DueSoon)
	}
	if len(stats.OwnerPerformance) != 2 {
		t.Fatalf("owner rows = %d, want 2", len(stats.OwnerPerformance))
	}
	if stats.OwnerPerformance[0].Owner != "Finance" || stats.OwnerPerformance[0].Total != 2 {
		t.Errorf("top owner = %+v", stats.OwnerPerformance[0])
	}
	if stats.ComplianceRate < 33.2 || stats.ComplianceRate > 33.4 {
		t.Errorf("compliance rate = %f", stats.ComplianceRate)
	}
}

func TestNonResponsiveList(t *testing.T) {
	st := testutil.TestStore(t)
	ctx := context.Background()

	silent := testutil.Directive("Silent owner", meeting)
	silent.MonitoringStatus = models.StatusAtRisk
	silent.IsResponsive = false
	silent.Reminders = 3

	engaged := testutil.Directive("Engaged owner", meeting)
	engaged.MonitoringStatus = models.StatusAtRisk

	completedSilent := testutil.Directive("Completed anyway", meeting)
	completedSilent.MonitoringStatus = models.StatusCompleted
	completedSilent.IsResponsive = false

	for _, d := range []*models.Directive{silent, engaged, completedSilent} {
		if err := st.Put(ctx, d); err != nil {
			t.Fatalf("put: %v", err)
		}
	}

	got, err := st.NonResponsive(ctx, "")
	if err != nil {
		t.Fatalf("non-responsive: %v", err)
	}
	if len(got) != 1 || got[0].Subject != "Silent owner" {
		t.Fatalf("non-responsive rows = %d, want only the silent open directive", len(got))
	}
}
