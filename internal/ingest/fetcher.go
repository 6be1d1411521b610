package ingest

import (
	"context"
	"strings"

	"hiring-signals/internal/domain"
)

// Fetcher turns one operator-supplied input into raw job observations.
// The network fetch itself happens outside the engine; fetchers only parse
// what the scrape layer dropped off.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) ([]domain.RawJob, error)
}

// CleanText collapses whitespace runs (including non-breaking spaces) from
// scraped text.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(s)
}

// NormalizeLocation strips label prefixes and duplicate segments from a
// scraped location ("Location: Austin, TX, Austin" stays "Austin, TX").
// Locations land in the weekly stats as distinct set members, so two
// renderings of the same place must collapse here, not downstream.
func NormalizeLocation(loc string) string {
	loc = CleanText(loc)
	if loc == "" {
		return ""
	}

	loc = strings.TrimPrefix(loc, "Location:")
	loc = strings.TrimPrefix(loc, "LOCATIONS:")
	loc = strings.TrimSpace(loc)

	parts := strings.Split(loc, ",")
	seen := map[string]bool{}
	var out []string
	for _, p := range parts {
		p = CleanText(p)
		if p == "" {
			continue
		}
		k := strings.ToLower(p)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, p)
	}
	return strings.Join(out, ", ")
}
