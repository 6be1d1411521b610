package ingest

import (
	"context"
	"fmt"

	"hiring-signals/internal/logging"
	"hiring-signals/internal/metrics"
	"hiring-signals/internal/store"
)

// Report summarizes one fetcher's landing in raw_jobs.
type Report struct {
	Source   string `json:"source"`
	Fetched  int    `json:"fetched"`
	Inserted int    `json:"inserted"`
	Updated  int    `json:"updated"`
}

// Apply runs one fetcher and lands its observations through the raw_jobs
// upsert contract: unknown ids insert, known ids only move last_scraped_at.
// Logger and collector are optional.
func Apply(ctx context.Context, db *store.DB, f Fetcher, logger logging.Logger, collector *metrics.Collector) (Report, error) {
	jobs, err := f.Fetch(ctx)
	if err != nil {
		return Report{Source: f.Name()}, fmt.Errorf("fetch %s: %w", f.Name(), err)
	}

	inserted, updated, err := db.UpsertRawJobs(ctx, jobs)
	if err != nil {
		return Report{Source: f.Name(), Fetched: len(jobs)}, fmt.Errorf("upsert %s: %w", f.Name(), err)
	}

	rep := Report{Source: f.Name(), Fetched: len(jobs), Inserted: inserted, Updated: updated}
	collector.JobsIngested(rep.Source, inserted, updated)
	if logger != nil {
		logger.WithFields(logging.Fields{
			"source":   rep.Source,
			"fetched":  rep.Fetched,
			"inserted": rep.Inserted,
			"updated":  rep.Updated,
		}).Info("ingest applied")
	}
	return rep, nil
}
