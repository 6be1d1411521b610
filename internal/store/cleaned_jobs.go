package store

import (
	"context"
	"database/sql"
	"fmt"

	"hiring-signals/internal/domain"
)

// ReplaceCleanedJobs swaps in the full rebuilt cleaned set.
func (d *DB) ReplaceCleanedJobs(ctx context.Context, jobs []domain.CleanedJob) error {
	return d.rebuild(ctx, "cleaned_jobs", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO cleaned_jobs
  (job_id, company, company_normalized, title, title_normalized, description, location, posting_date, url, source, first_seen, last_seen)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, j := range jobs {
			_, err := stmt.ExecContext(ctx,
				j.JobID, j.Company, j.CompanyNormalized, j.Title, j.TitleNormalized,
				j.Description, j.Location, fmtDate(j.PostingDate), j.URL, j.Source,
				fmtTime(j.FirstSeen), fmtTime(j.LastSeen),
			)
			if err != nil {
				return fmt.Errorf("insert cleaned job %s: %w", j.JobID, err)
			}
		}
		return nil
	})
}

func (d *DB) ListCleanedJobs(ctx context.Context) ([]domain.CleanedJob, error) {
	rows, err := d.Pool.QueryContext(ctx, `
SELECT job_id, company, company_normalized, title, title_normalized, description, location, posting_date, url, source, first_seen, last_seen
FROM cleaned_jobs
ORDER BY job_id;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CleanedJob
	for rows.Next() {
		var j domain.CleanedJob
		var postingDate, firstSeen, lastSeen string
		if err := rows.Scan(
			&j.JobID, &j.Company, &j.CompanyNormalized, &j.Title, &j.TitleNormalized,
			&j.Description, &j.Location, &postingDate, &j.URL, &j.Source,
			&firstSeen, &lastSeen,
		); err != nil {
			return nil, err
		}
		j.PostingDate = parseDate(postingDate)
		j.FirstSeen = parseTime(firstSeen)
		j.LastSeen = parseTime(lastSeen)
		out = append(out, j)
	}
	return out, rows.Err()
}
