package ingest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const boardFixture = `<html><body>
<nav><a href="/about">About us</a></nav>
<div class="opening">
  <a href="https://boards.example.com/acme/jobs/4012345">Senior  Go&nbsp;Engineer</a>
  <span class="location">Location: Austin, TX, Austin</span>
</div>
<div class="opening">
  <a href="/acme/jobs/4012345?src=footer">Senior Go Engineer</a>
  <span class="location">Austin, TX</span>
</div>
<div class="opening">
  <a href="/acme/jobs/887920">Engineering Manager, Platform</a>
</div>
<div class="opening">
  <a href="/acme/jobs/999111/apply">Apply now</a>
</div>
<div class="opening">
  <a href="/acme/jobs/search">Search all jobs</a>
</div>
</body></html>`

func TestBoardFetcher(t *testing.T) {
	path := writeFixture(t, "board.html", boardFixture)
	asOf := time.Date(2026, 1, 10, 14, 30, 0, 0, time.UTC)

	f := BoardFetcher{Path: path, Company: "Acme Corp", Slug: "acme", AsOf: asOf}
	jobs, err := f.Fetch(context.Background())
	require.NoError(t, err)

	// duplicate id, apply link and digitless href all skipped
	require.Len(t, jobs, 2)

	assert.Equal(t, "board:acme:4012345", jobs[0].JobID)
	assert.Equal(t, "Acme Corp", jobs[0].Company)
	assert.Equal(t, "Senior Go Engineer", jobs[0].Title) // entities and runs collapsed
	assert.Equal(t, "Austin, TX", jobs[0].Location)
	assert.Equal(t, "https://boards.example.com/acme/jobs/4012345", jobs[0].URL)
	assert.Equal(t, "board", jobs[0].Source)
	assert.Equal(t, asOf, jobs[0].FirstScrapedAt)

	// boards carry no posting date; the snapshot day stands in
	assert.Equal(t, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), jobs[0].PostingDate)

	assert.Equal(t, "board:acme:887920", jobs[1].JobID)
	assert.Equal(t, "Engineering Manager, Platform", jobs[1].Title)
	assert.Empty(t, jobs[1].Location) // no sibling location node
}

func TestBoardFetcherMissingFile(t *testing.T) {
	f := BoardFetcher{Path: filepath.Join(t.TempDir(), "nope.html"), Company: "Acme", Slug: "acme"}
	_, err := f.Fetch(context.Background())
	assert.Error(t, err)
}

func TestExtractJobID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/acme/jobs/4012345", "4012345"},
		{"/acme/jobs/4012345?src=nav", "4012345"},
		{"/acme/jobs/4012345/apply", "4012345"},
		{"/acme/jobs/search", ""},
		{"/acme/careers/4012345", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, extractJobID(tt.in), tt.in)
	}
}
