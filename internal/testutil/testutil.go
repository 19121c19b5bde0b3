// Package testutil provides shared test helpers for setting up databases and fixtures.
package testutil

import (
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/store"
)

// TestStore creates a temporary SQLite store that is automatically cleaned up.
func TestStore(t *testing.T) *store.Store {
	t.Helper()
	dbFile, err := os.CreateTemp("", "raido-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	st, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// Directive builds a minimal valid directive for tests. Callers mutate the
// returned value before persisting it.
func Directive(subject string, meeting time.Time) *models.Directive {
	return &models.Directive{
		ID:                   uuid.NewString(),
		Ref:                  "CG/JAN/1/2026",
		Source:               models.SourceCouncil,
		Subject:              subject,
		Particulars:          subject,
		Owner:                models.OwnerUnassigned,
		MeetingDate:          meeting,
		ImplementationStatus: "Not Started",
		MonitoringStatus:     models.StatusOnTrack,
		IsResponsive:         true,
		Version:              1,
		CreatedAt:            meeting,
		UpdatedAt:            meeting,
	}
}
