package store

import (
	"context"
	"fmt"

	"hiring-signals/internal/domain"
)

// UpsertRawJobs applies a batch of scrape observations. New job_ids insert
// the full row; known job_ids only move last_scraped_at forward (the
// "still open" signal) and never touch any other field. The whole batch
// commits atomically.
func (d *DB) UpsertRawJobs(ctx context.Context, jobs []domain.RawJob) (inserted, updated int, err error) {
	tx, err := d.Pool.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = tx.Rollback() }()

	ins, err := tx.PrepareContext(ctx, `
INSERT OR IGNORE INTO raw_jobs
  (job_id, company, title, description, location, posting_date, url, source, first_scraped_at, last_scraped_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`)
	if err != nil {
		return 0, 0, err
	}
	defer ins.Close()

	upd, err := tx.PrepareContext(ctx, `
UPDATE raw_jobs
SET last_scraped_at = MAX(last_scraped_at, ?)
WHERE job_id = ?;`)
	if err != nil {
		return 0, 0, err
	}
	defer upd.Close()

	for _, j := range jobs {
		_, err := ins.ExecContext(ctx,
			j.JobID, j.Company, j.Title, j.Description, j.Location,
			fmtDate(j.PostingDate), j.URL, j.Source,
			fmtTime(j.FirstScrapedAt), fmtTime(j.LastScrapedAt),
		)
		if err != nil {
			return 0, 0, fmt.Errorf("insert raw job %s: %w", j.JobID, err)
		}

		// SQLite doesn't report rows affected reliably with IGNORE across
		// drivers; changes() on the same connection does.
		var changes int
		if err := tx.QueryRowContext(ctx, `SELECT changes();`).Scan(&changes); err != nil {
			return 0, 0, err
		}
		if changes > 0 {
			inserted++
			continue
		}

		if _, err := upd.ExecContext(ctx, fmtTime(j.LastScrapedAt), j.JobID); err != nil {
			return 0, 0, fmt.Errorf("touch raw job %s: %w", j.JobID, err)
		}
		updated++
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, err
	}
	return inserted, updated, nil
}

func (d *DB) ListRawJobs(ctx context.Context) ([]domain.RawJob, error) {
	rows, err := d.Pool.QueryContext(ctx, `
SELECT job_id, company, title, description, location, posting_date, url, source, first_scraped_at, last_scraped_at
FROM raw_jobs
ORDER BY job_id;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RawJob
	for rows.Next() {
		var j domain.RawJob
		var postingDate, firstSeen, lastSeen string
		if err := rows.Scan(
			&j.JobID, &j.Company, &j.Title, &j.Description, &j.Location,
			&postingDate, &j.URL, &j.Source, &firstSeen, &lastSeen,
		); err != nil {
			return nil, err
		}
		j.PostingDate = parseDate(postingDate)
		j.FirstScrapedAt = parseTime(firstSeen)
		j.LastScrapedAt = parseTime(lastSeen)
		out = append(out, j)
	}
	return out, rows.Err()
}

func (d *DB) CountRawJobs(ctx context.Context) (int, error) {
	var n int
	err := d.Pool.QueryRowContext(ctx, `SELECT COUNT(*) FROM raw_jobs;`).Scan(&n)
	return n, err
}
