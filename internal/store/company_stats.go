package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"hiring-signals/internal/domain"
)

// ReplaceCompanyStats swaps in the full rebuilt weekly aggregation.
func (d *DB) ReplaceCompanyStats(ctx context.Context, stats []domain.CompanyWeekStat) error {
	return d.rebuild(ctx, "company_stats", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO company_stats
  (company_normalized, company, week_start, jobs_posted, tech_stack, locations, senior_count, junior_count, lead_count, mid_count)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, s := range stats {
			// tech_stack is a comma-joined string on purpose: the scorer
			// matches target names as substrings of it. Locations can
			// contain commas, so they go in as JSON.
			locs, err := json.Marshal(emptyNotNull(s.Locations))
			if err != nil {
				return err
			}
			_, err = stmt.ExecContext(ctx,
				s.CompanyNormalized, s.Company, fmtDate(s.WeekStart), s.JobsPosted,
				s.TechStackString(), string(locs),
				s.SeniorCount, s.JuniorCount, s.LeadCount, s.MidCount,
			)
			if err != nil {
				return fmt.Errorf("insert stat %s/%s: %w", s.CompanyNormalized, fmtDate(s.WeekStart), err)
			}
		}
		return nil
	})
}

// ListCompanyStats returns every weekly bucket, newest and busiest weeks
// first. The ordering is presentation only; consumers that need another
// order sort for themselves.
func (d *DB) ListCompanyStats(ctx context.Context) ([]domain.CompanyWeekStat, error) {
	rows, err := d.Pool.QueryContext(ctx, `
SELECT company_normalized, company, week_start, jobs_posted, tech_stack, locations, senior_count, junior_count, lead_count, mid_count
FROM company_stats
ORDER BY week_start DESC, jobs_posted DESC, company_normalized;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CompanyWeekStat
	for rows.Next() {
		var s domain.CompanyWeekStat
		var week, stack, locations string
		if err := rows.Scan(
			&s.CompanyNormalized, &s.Company, &week, &s.JobsPosted, &stack, &locations,
			&s.SeniorCount, &s.JuniorCount, &s.LeadCount, &s.MidCount,
		); err != nil {
			return nil, err
		}
		s.WeekStart = parseDate(week)
		s.TechStack = splitStack(stack)
		_ = json.Unmarshal([]byte(locations), &s.Locations)
		out = append(out, s)
	}
	return out, rows.Err()
}

func splitStack(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func emptyNotNull(xs []string) []string {
	if xs == nil {
		return []string{}
	}
	return xs
}
