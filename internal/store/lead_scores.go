package store

import (
	"context"
	"database/sql"
	"fmt"

	"hiring-signals/internal/domain"
)

// ReplaceLeadScores swaps in the rebuilt latest-week ranking.
func (d *DB) ReplaceLeadScores(ctx context.Context, scores []domain.LeadScore) error {
	return d.rebuild(ctx, "lead_scores", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO lead_scores
  (company_normalized, company, week_start, jobs_this_week, jobs_last_week, velocity_score, tech_match_score, volume_score, composite_score, score_metadata)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, s := range scores {
			_, err := stmt.ExecContext(ctx,
				s.CompanyNormalized, s.Company, fmtDate(s.WeekStart),
				s.JobsThisWeek, s.JobsLastWeek,
				s.VelocityScore, s.TechMatchScore, s.VolumeScore, s.CompositeScore,
				s.TechStack,
			)
			if err != nil {
				return fmt.Errorf("insert lead score %s: %w", s.CompanyNormalized, err)
			}
		}
		return nil
	})
}

// ListLeadScores returns the ranking, best composite first.
func (d *DB) ListLeadScores(ctx context.Context) ([]domain.LeadScore, error) {
	rows, err := d.Pool.QueryContext(ctx, `
SELECT company_normalized, company, week_start, jobs_this_week, jobs_last_week, velocity_score, tech_match_score, volume_score, composite_score, score_metadata
FROM lead_scores
ORDER BY composite_score DESC, company_normalized;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.LeadScore
	for rows.Next() {
		var s domain.LeadScore
		var week string
		if err := rows.Scan(
			&s.CompanyNormalized, &s.Company, &week, &s.JobsThisWeek, &s.JobsLastWeek,
			&s.VelocityScore, &s.TechMatchScore, &s.VolumeScore, &s.CompositeScore,
			&s.TechStack,
		); err != nil {
			return nil, err
		}
		s.WeekStart = parseDate(week)
		out = append(out, s)
	}
	return out, rows.Err()
}
