package store

import (
	"context"
	"fmt"
	"time"

	"github.com/starford/raido/internal/models"
)

// StatusCounts breaks the directive population down by monitoring status.
type StatusCounts struct {
	Total         int `json:"total"`
	Completed     int `json:"completed"`
	OnTrack       int `json:"on_track"`
	AtRisk        int `json:"at_risk"`
	HighRisk      int `json:"high_risk"`
	NeedsTimeline int `json:"needs_timeline"`
	NonResponsive int `json:"non_responsive"`
}

// OwnerPerformance summarises one process owner's directives.
type OwnerPerformance struct {
	Owner     string `json:"owner"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
	Delayed   int    `json:"delayed"`
}

// Stats is the aggregate compliance report.
type Stats struct {
	Summary          StatusCounts       `json:"summary"`
	Overdue          int                `json:"overdue"`
	DueSoon          int                `json:"due_soon"`
	OwnerPerformance []OwnerPerformance `json:"owner_performance"`
	ComplianceRate   float64            `json:"compliance_rate"`
	RiskRate         float64            `json:"risk_rate"`
}

// Stats computes the aggregate compliance report, optionally narrowed to
// one source. Overdue counts open directives past their end date; due-soon
// counts open directives ending within 30 days of asOf.
func (s *Store) Stats(ctx context.Context, source models.Source, asOf time.Time) (Stats, error) {
	where := ""
	var args []any
	if source != "" {
		where = " WHERE source = ?"
		args = append(args, string(source))
	}

	var out Stats
	rows, err := s.conn.QueryContext(ctx,
		`SELECT monitoring_status, is_responsive, COUNT(*) FROM directives`+where+` GROUP BY monitoring_status, is_responsive`,
		args...)
	if err != nil {
		return Stats{}, fmt.Errorf("store: stats counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status     string
			responsive bool
			n          int
		)
		if err := rows.Scan(&status, &responsive, &n); err != nil {
			return Stats{}, err
		}
		out.Summary.Total += n
		if !responsive {
			out.Summary.NonResponsive += n
		}
		switch models.MigrateMonitoringStatus(status) {
		case models.StatusCompleted:
			out.Summary.Completed += n
		case models.StatusOnTrack:
			out.Summary.OnTrack += n
		case models.StatusAtRisk:
			out.Summary.AtRisk += n
		case models.StatusHighRisk:
			out.Summary.HighRisk += n
		case models.StatusNeedsTimeline:
			out.Summary.NeedsTimeline += n
		}
	}
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}

	timelineArgs := append(append([]any{}, args...), string(models.StatusCompleted), asOf)
	err = s.conn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM directives`+whereAnd(where)+`
			monitoring_status != ? AND impl_end IS NOT NULL AND impl_end < ?
	`, timelineArgs...).Scan(&out.Overdue)
	if err != nil {
		return Stats{}, fmt.Errorf("store: stats overdue: %w", err)
	}

	dueSoonArgs := append(append([]any{}, args...), string(models.StatusCompleted), asOf, asOf.AddDate(0, 0, 30))
	err = s.conn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM directives`+whereAnd(where)+`
			monitoring_status != ? AND impl_end IS NOT NULL AND impl_end >= ? AND impl_end <= ?
	`, dueSoonArgs...).Scan(&out.DueSoon)
	if err != nil {
		return Stats{}, fmt.Errorf("store: stats due soon: %w", err)
	}

	ownerRows, err := s.conn.QueryContext(ctx, `
		SELECT owner,
			COUNT(*),
			SUM(CASE WHEN monitoring_status = 'Completed' THEN 1 ELSE 0 END),
			SUM(CASE WHEN monitoring_status IN ('At Risk', 'High Risk') THEN 1 ELSE 0 END)
		FROM directives`+where+`
		GROUP BY owner ORDER BY COUNT(*) DESC
	`, args...)
	if err != nil {
		return Stats{}, fmt.Errorf("store: stats owners: %w", err)
	}
	defer ownerRows.Close()
	for ownerRows.Next() {
		var p OwnerPerformance
		if err := ownerRows.Scan(&p.Owner, &p.Total, &p.Completed, &p.Delayed); err != nil {
			return Stats{}, err
		}
		out.OwnerPerformance = append(out.OwnerPerformance, p)
	}
	if err := ownerRows.Err(); err != nil {
		return Stats{}, err
	}

	if out.Summary.Total > 0 {
		atRisk := out.Summary.AtRisk + out.Summary.HighRisk
		out.ComplianceRate = float64(out.Summary.Completed) / float64(out.Summary.Total) * 100
		out.RiskRate = float64(atRisk) / float64(out.Summary.Total) * 100
	}
	return out, nil
}

// NonResponsive returns open directives whose owners have stopped engaging,
// most reminded first.
func (s *Store) NonResponsive(ctx context.Context, source models.Source) ([]*models.Directive, error) {
	query := `SELECT ` + directiveColumns + ` FROM directives WHERE is_responsive = 0 AND monitoring_status != ?`
	args := []any{string(models.StatusCompleted)}
	if source != "" {
		query += " AND source = ?"
		args = append(args, string(source))
	}
	query += " ORDER BY reminders DESC, created_at"

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: non-responsive: %w", err)
	}
	defer rows.Close()
	return collectDirectives(rows)
}

// whereAnd continues an optional WHERE clause with AND, or starts one.
func whereAnd(where string) string {
	if where == "" {
		return " WHERE"
	}
	return where + " AND"
}
