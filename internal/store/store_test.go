package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hiring-signals/internal/domain"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "signals.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(db.Pool))
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, Migrate(db.Pool))

	var v int
	require.NoError(t, db.Pool.QueryRow(`PRAGMA user_version;`).Scan(&v))
	assert.Equal(t, 1, v)
}

func TestUpsertRawJobsInsertsAndTouches(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	t0 := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	job := domain.RawJob{
		JobID:          "indeed:abc123",
		Company:        "Acme Corp",
		Title:          "Senior Go Engineer",
		Description:    "Build services in Go",
		Location:       "Austin, TX",
		PostingDate:    time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
		URL:            "https://example.com/jobs/abc123",
		Source:         "indeed_rss",
		FirstScrapedAt: t0,
		LastScrapedAt:  t0,
	}

	inserted, updated, err := db.UpsertRawJobs(ctx, []domain.RawJob{job})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
	assert.Equal(t, 0, updated)

	// Re-observation: changed fields must be ignored, only last_scraped_at moves.
	reobserved := job
	reobserved.Company = "Acme Corporation Renamed"
	reobserved.Title = "Totally Different Title"
	reobserved.LastScrapedAt = t0.Add(48 * time.Hour)

	inserted, updated, err = db.UpsertRawJobs(ctx, []domain.RawJob{reobserved})
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
	assert.Equal(t, 1, updated)

	got, err := db.ListRawJobs(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Acme Corp", got[0].Company)
	assert.Equal(t, "Senior Go Engineer", got[0].Title)
	assert.Equal(t, t0, got[0].FirstScrapedAt)
	assert.Equal(t, t0.Add(48*time.Hour), got[0].LastScrapedAt)
}

func TestUpsertRawJobsNeverRegressesLastScraped(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	t0 := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	job := domain.RawJob{JobID: "x1", Company: "Acme", Title: "Dev", FirstScrapedAt: t0, LastScrapedAt: t0.Add(time.Hour)}
	_, _, err := db.UpsertRawJobs(ctx, []domain.RawJob{job})
	require.NoError(t, err)

	stale := job
	stale.LastScrapedAt = t0.Add(-time.Hour)
	_, _, err = db.UpsertRawJobs(ctx, []domain.RawJob{stale})
	require.NoError(t, err)

	got, err := db.ListRawJobs(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, t0.Add(time.Hour), got[0].LastScrapedAt)
}

func TestReplaceCleanedJobsSwapsSnapshot(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	t0 := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	first := []domain.CleanedJob{{
		JobID: "a", Company: "Acme", CompanyNormalized: "acme",
		Title: "Go Engineer", TitleNormalized: "go engineer",
		PostingDate: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
		FirstSeen:   t0, LastSeen: t0,
	}}
	require.NoError(t, db.ReplaceCleanedJobs(ctx, first))

	second := []domain.CleanedJob{{
		JobID: "b", Company: "Globex", CompanyNormalized: "globex",
		Title: "Python Dev", TitleNormalized: "python dev",
		FirstSeen: t0, LastSeen: t0,
	}}
	require.NoError(t, db.ReplaceCleanedJobs(ctx, second))

	got, err := db.ListCleanedJobs(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].JobID)
	assert.True(t, got[0].PostingDate.IsZero())
}

func TestRebuildKeepsOldSnapshotOnFailure(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	t0 := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	good := []domain.CleanedJob{{
		JobID: "a", Company: "Acme", CompanyNormalized: "acme",
		Title: "Go Engineer", TitleNormalized: "go engineer",
		FirstSeen: t0, LastSeen: t0,
	}}
	require.NoError(t, db.ReplaceCleanedJobs(ctx, good))

	// Duplicate primary key inside the batch forces a mid-insert failure;
	// the previous snapshot must survive untouched.
	bad := []domain.CleanedJob{
		{JobID: "dup", Company: "X", CompanyNormalized: "x", Title: "T", TitleNormalized: "t", FirstSeen: t0, LastSeen: t0},
		{JobID: "dup", Company: "Y", CompanyNormalized: "y", Title: "U", TitleNormalized: "u", FirstSeen: t0, LastSeen: t0},
	}
	err := db.ReplaceCleanedJobs(ctx, bad)
	require.Error(t, err)

	got, err := db.ListCleanedJobs(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].JobID)
}

func TestSeedTechConfigsOnlyWhenEmpty(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	seed := []domain.TechConfig{
		{Name: "Go", Keywords: []string{"golang", "go "}, Category: "language", IsTarget: true, ScoreWeight: 1.0},
		{Name: "Python", Keywords: []string{"python"}, Category: "language", IsTarget: true, ScoreWeight: 1.0},
	}

	seeded, err := db.SeedTechConfigs(ctx, seed)
	require.NoError(t, err)
	assert.True(t, seeded)

	// Operator edits win over later seeds.
	_, err = db.Pool.ExecContext(ctx, `UPDATE tech_config SET is_target = 0 WHERE tech_name = 'Python';`)
	require.NoError(t, err)

	seeded, err = db.SeedTechConfigs(ctx, seed)
	require.NoError(t, err)
	assert.False(t, seeded)

	got, err := db.ListTechConfigs(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Go", got[0].Name)
	assert.Equal(t, []string{"golang", "go "}, got[0].Keywords)
	assert.True(t, got[0].IsTarget)
	assert.False(t, got[1].IsTarget)
}

func TestCompanyStatsRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	week := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	stats := []domain.CompanyWeekStat{
		{
			CompanyNormalized: "acme", Company: "Acme", WeekStart: week,
			JobsPosted: 3, TechStack: []string{"Go", "Python"},
			Locations: []string{"Austin, TX", "Remote"}, SeniorCount: 1, MidCount: 2,
		},
		{
			CompanyNormalized: "globex", Company: "Globex", WeekStart: week,
			JobsPosted: 5, TechStack: nil, Locations: nil, MidCount: 5,
		},
	}
	require.NoError(t, db.ReplaceCompanyStats(ctx, stats))

	got, err := db.ListCompanyStats(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// busiest first within the week
	assert.Equal(t, "globex", got[0].CompanyNormalized)
	assert.Empty(t, got[0].TechStack)
	assert.Equal(t, "acme", got[1].CompanyNormalized)
	assert.Equal(t, []string{"Go", "Python"}, got[1].TechStack)
	assert.Equal(t, []string{"Austin, TX", "Remote"}, got[1].Locations)
	assert.Equal(t, week, got[1].WeekStart)
}

func TestLeadScoresRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	week := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	scores := []domain.LeadScore{
		{CompanyNormalized: "acme", Company: "Acme", WeekStart: week, JobsThisWeek: 3, JobsLastWeek: 1, VelocityScore: 100, TechMatchScore: 50, VolumeScore: 20, CompositeScore: 62.5, TechStack: "Go,Python"},
		{CompanyNormalized: "globex", Company: "Globex", WeekStart: week, JobsThisWeek: 5, VelocityScore: 100, TechMatchScore: 0, VolumeScore: 100, CompositeScore: 65, TechStack: ""},
	}
	require.NoError(t, db.ReplaceLeadScores(ctx, scores))

	got, err := db.ListLeadScores(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "globex", got[0].CompanyNormalized) // highest composite first
	assert.Equal(t, 0, got[0].JobsLastWeek)
	assert.Equal(t, 62.5, got[1].CompositeScore)
	assert.Equal(t, "Go,Python", got[1].TechStack)
	assert.Equal(t, 1, got[1].JobsLastWeek)
}
