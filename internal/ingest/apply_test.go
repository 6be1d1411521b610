package ingest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hiring-signals/internal/store"
)

func newTestStore(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "signals.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(db.Pool))
	return db
}

func TestApplyLandsAndReobserves(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	lines := `{"job_id":"indeed:1","company":"Acme Corp","title":"Senior Go Engineer","location":"Austin, TX"}
{"job_id":"indeed:2","company":"Globex","title":"Python Developer"}
`
	path := writeFixture(t, "dump.jsonl", lines)

	t0 := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	rep, err := Apply(ctx, db, JSONLFetcher{Path: path, Now: func() time.Time { return t0 }}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, Report{Source: "jsonl", Fetched: 2, Inserted: 2, Updated: 0}, rep)

	// same dump a day later: nothing new, only last_scraped_at moves
	t1 := t0.Add(24 * time.Hour)
	rep, err = Apply(ctx, db, JSONLFetcher{Path: path, Now: func() time.Time { return t1 }}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, Report{Source: "jsonl", Fetched: 2, Inserted: 0, Updated: 2}, rep)

	raw, err := db.ListRawJobs(ctx)
	require.NoError(t, err)
	require.Len(t, raw, 2)
	assert.Equal(t, t0, raw[0].FirstScrapedAt)
	assert.Equal(t, t1, raw[0].LastScrapedAt)
	assert.Equal(t, "Acme Corp", raw[0].Company)
}

func TestApplyPropagatesFetchError(t *testing.T) {
	db := newTestStore(t)

	rep, err := Apply(context.Background(), db, JSONLFetcher{Path: filepath.Join(t.TempDir(), "nope.jsonl")}, nil, nil)
	require.Error(t, err)
	assert.Equal(t, "jsonl", rep.Source)
	assert.Zero(t, rep.Fetched)
}
