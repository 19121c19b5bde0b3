// Package importer ingests directive records from CSV drops. Columns are
// matched by header name only; no text heuristics are applied to directive
// content.
package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/starford/raido/internal/directiveservice"
	"github.com/starford/raido/internal/models"
)

// Importer parses CSV directive data and upserts it through the service.
type Importer struct {
	svc    *directiveservice.Service
	logger *slog.Logger
}

// New creates an importer.
func New(svc *directiveservice.Service, logger *slog.Logger) *Importer {
	return &Importer{svc: svc, logger: logger}
}

// Result summarises one import run.
type Result struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

// Recognised header names (lowercased, trimmed). "outcomes" holds
// semicolon-separated outcome texts.
var knownColumns = []string{
	"source", "date", "subject", "particulars", "owner",
	"primary_email", "secondary_email", "amount", "vendor",
	"start_date", "end_date", "implementation_status", "outcomes",
}

// ImportCSV reads directive rows from r and upserts each. sheetName labels
// the batch (it is part of the dedup key); per-row failures are collected,
// not fatal.
func (imp *Importer) ImportCSV(ctx context.Context, r io.Reader, sheetName string) (Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return Result{}, fmt.Errorf("importer: read header: %w", err)
	}
	cols := mapColumns(header)
	if _, ok := cols["subject"]; !ok {
		return Result{}, fmt.Errorf("importer: header has no subject column")
	}

	var result Result
	line := 1
	for {
		line++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		d, ok := imp.parseRow(cols, record, sheetName)
		if !ok {
			result.Skipped++
			continue
		}

		created, err := imp.svc.ImportUpsert(ctx, d)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	imp.logger.Info("import finished",
		slog.String("sheet", sheetName),
		slog.Int("created", result.Created),
		slog.Int("updated", result.Updated),
		slog.Int("skipped", result.Skipped),
		slog.Int("errors", len(result.Errors)))
	return result, nil
}

// parseRow maps one CSV record onto a directive. Rows without a subject
// are skipped. Unparseable dates are logged and left unset; a fabricated
// deadline would corrupt the monitoring calculation.
func (imp *Importer) parseRow(cols map[string]int, record []string, sheetName string) (*models.Directive, bool) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	subject := field("subject")
	if subject == "" {
		return nil, false
	}

	source := models.SourceCouncil
	if raw := strings.ToLower(field("source")); strings.Contains(raw, "board") {
		source = models.SourceBoard
	}

	meetingDate := imp.parseDate(field("date"), "date")
	if meetingDate == nil {
		// A directive needs its decision date; without one the row is
		// unusable.
		imp.logger.Warn("import: row skipped, no meeting date", slog.String("subject", subject))
		return nil, false
	}

	owner := field("owner")
	if owner == "" {
		owner = models.OwnerUnassigned
	}

	implStatus := field("implementation_status")
	if implStatus == "" {
		implStatus = "Not Started"
	}

	d := &models.Directive{
		Source:                  source,
		SheetName:               sheetName,
		MeetingDate:             *meetingDate,
		Subject:                 subject,
		Particulars:             field("particulars"),
		Owner:                   owner,
		PrimaryEmail:            field("primary_email"),
		SecondaryEmail:          field("secondary_email"),
		Amount:                  field("amount"),
		Vendor:                  field("vendor"),
		ImplementationStartDate: imp.parseDate(field("start_date"), "start_date"),
		ImplementationEndDate:   imp.parseDate(field("end_date"), "end_date"),
		ImplementationStatus:    implStatus,
		Outcomes:                parseOutcomes(field("outcomes")),
	}
	if d.Particulars == "" {
		d.Particulars = subject
	}
	return d, true
}

var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
}

// parseDate tries the accepted layouts and returns nil when none match.
// It never falls back to "today".
func (imp *Importer) parseDate(raw, column string) *time.Time {
	if raw == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	imp.logger.Warn("import: unparseable date left unset",
		slog.String("column", column),
		slog.String("value", raw))
	return nil
}

// parseOutcomes splits the outcomes column on semicolons. No smarter
// extraction is attempted; an empty column yields a single placeholder so
// the directive is never born "completed" by vacuity.
func parseOutcomes(raw string) []models.Outcome {
	var out []models.Outcome
	for _, part := range strings.Split(raw, ";") {
		text := strings.TrimSpace(part)
		if text == "" {
			continue
		}
		if len(text) > models.OutcomeTextLimit {
			// Cut on a rune boundary so the stored text stays valid UTF-8.
			cut := models.OutcomeTextLimit
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			text = text[:cut]
		}
		out = append(out, models.Outcome{Text: text, Status: models.OutcomeNotStarted})
	}
	if len(out) == 0 {
		out = append(out, models.Outcome{Text: "Implementation required", Status: models.OutcomeNotStarted})
	}
	return out
}

func mapColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		key = strings.ReplaceAll(key, " ", "_")
		for _, known := range knownColumns {
			if key == known {
				cols[known] = i
				break
			}
		}
	}
	return cols
}
