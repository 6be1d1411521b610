package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"hiring-signals/internal/domain"
)

// ListTechConfigs loads the full taxonomy, keywords decoded from their JSON
// column. Callers load this once per run, never per row.
func (d *DB) ListTechConfigs(ctx context.Context) ([]domain.TechConfig, error) {
	rows, err := d.Pool.QueryContext(ctx, `
SELECT tech_name, keywords, category, is_target, score_weight
FROM tech_config
ORDER BY tech_name;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TechConfig
	for rows.Next() {
		var t domain.TechConfig
		var keywordsJSON string
		if err := rows.Scan(&t.Name, &keywordsJSON, &t.Category, &t.IsTarget, &t.ScoreWeight); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(keywordsJSON), &t.Keywords)
		out = append(out, t)
	}
	return out, rows.Err()
}

// SeedTechConfigs inserts the given taxonomy only when the table is empty.
// The table stays the authority: operators add or retarget techs with plain
// SQL and a seed never overwrites their rows.
func (d *DB) SeedTechConfigs(ctx context.Context, techs []domain.TechConfig) (seeded bool, err error) {
	var n int
	if err := d.Pool.QueryRowContext(ctx, `SELECT COUNT(*) FROM tech_config;`).Scan(&n); err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if err := d.ReplaceTechConfigs(ctx, techs); err != nil {
		return false, err
	}
	return true, nil
}

// ReplaceTechConfigs overwrites the whole taxonomy (forced reseed).
func (d *DB) ReplaceTechConfigs(ctx context.Context, techs []domain.TechConfig) error {
	return d.rebuild(ctx, "tech_config", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO tech_config (tech_name, keywords, category, is_target, score_weight)
VALUES (?, ?, ?, ?, ?);`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, t := range techs {
			kw, err := json.Marshal(t.Keywords)
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, t.Name, string(kw), t.Category, t.IsTarget, t.ScoreWeight); err != nil {
				return fmt.Errorf("insert tech %s: %w", t.Name, err)
			}
		}
		return nil
	})
}
