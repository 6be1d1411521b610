package store

import "database/sql"

// Migrate brings the schema up to the current version. All statements run
// in one transaction; the version is tracked in PRAGMA user_version.
func Migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}

	if v >= 1 {
		return tx.Commit()
	}

	// ---- Schema v1 ----

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS raw_jobs (
  job_id TEXT PRIMARY KEY,
  company TEXT NOT NULL,
  title TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  location TEXT NOT NULL DEFAULT '',
  posting_date TEXT NOT NULL DEFAULT '',
  url TEXT NOT NULL DEFAULT '',
  source TEXT NOT NULL DEFAULT '',
  first_scraped_at TEXT NOT NULL,
  last_scraped_at TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS idx_raw_jobs_company ON raw_jobs(company);`,

		`CREATE TABLE IF NOT EXISTS cleaned_jobs (
  job_id TEXT PRIMARY KEY,
  company TEXT NOT NULL,
  company_normalized TEXT NOT NULL,
  title TEXT NOT NULL,
  title_normalized TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  location TEXT NOT NULL DEFAULT '',
  posting_date TEXT NOT NULL DEFAULT '',
  url TEXT NOT NULL DEFAULT '',
  source TEXT NOT NULL DEFAULT '',
  first_seen TEXT NOT NULL,
  last_seen TEXT NOT NULL
);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_cleaned_jobs_dedup
ON cleaned_jobs(company_normalized, title_normalized, location);`,
		`CREATE INDEX IF NOT EXISTS idx_cleaned_jobs_posting_date
ON cleaned_jobs(posting_date);`,

		`CREATE TABLE IF NOT EXISTS tech_config (
  tech_name TEXT PRIMARY KEY,
  keywords TEXT NOT NULL DEFAULT '[]',
  category TEXT NOT NULL DEFAULT '',
  is_target INTEGER NOT NULL DEFAULT 0,
  score_weight REAL NOT NULL DEFAULT 1.0
);`,

		`CREATE TABLE IF NOT EXISTS company_stats (
  company_normalized TEXT NOT NULL,
  company TEXT NOT NULL,
  week_start TEXT NOT NULL,
  jobs_posted INTEGER NOT NULL,
  tech_stack TEXT NOT NULL DEFAULT '',
  locations TEXT NOT NULL DEFAULT '[]',
  senior_count INTEGER NOT NULL DEFAULT 0,
  junior_count INTEGER NOT NULL DEFAULT 0,
  lead_count INTEGER NOT NULL DEFAULT 0,
  mid_count INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (company_normalized, week_start)
);`,
		`CREATE INDEX IF NOT EXISTS idx_company_stats_week ON company_stats(week_start);`,

		`CREATE TABLE IF NOT EXISTS lead_scores (
  company_normalized TEXT PRIMARY KEY,
  company TEXT NOT NULL,
  week_start TEXT NOT NULL,
  jobs_this_week INTEGER NOT NULL,
  jobs_last_week INTEGER NOT NULL DEFAULT 0,
  velocity_score REAL NOT NULL,
  tech_match_score REAL NOT NULL,
  volume_score REAL NOT NULL,
  composite_score REAL NOT NULL,
  score_metadata TEXT NOT NULL DEFAULT ''
);`,
	}

	for _, s := range stmts {
		if _, err := tx.Exec(s); err != nil {
			return err
		}
	}

	// Mark schema v1
	if _, err := tx.Exec(`PRAGMA user_version = 1;`); err != nil {
		return err
	}

	return tx.Commit()
}
