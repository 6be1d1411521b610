package domain

import (
	"strings"
	"time"
)

// RawJob is one scrape observation as delivered by an ingest source.
// JobID is the source-assigned identifier and is unique per row. A job
// observed again only moves LastScrapedAt forward; every other field keeps
// its first-observation value.
type RawJob struct {
	JobID          string
	Company        string
	Title          string
	Description    string
	Location       string
	PostingDate    time.Time // zero when the source did not expose one
	URL            string
	Source         string
	FirstScrapedAt time.Time
	LastScrapedAt  time.Time
}

// CleanedJob is the canonical posting derived from the raw observations
// sharing a dedup key. Descriptive fields come from the representative (the
// earliest-scraped member); FirstSeen/LastSeen span the whole group.
type CleanedJob struct {
	JobID             string
	Company           string
	CompanyNormalized string
	Title             string
	TitleNormalized   string
	Description       string
	Location          string
	PostingDate       time.Time
	URL               string
	Source            string
	FirstSeen         time.Time
	LastSeen          time.Time
}

// NormalizeName lowercases and trims a company or title for matching.
// Inner whitespace is preserved.
func NormalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// DedupKey identifies duplicate postings: same normalized company and title
// in the same location. A missing location contributes an empty segment, so
// located and unlocated copies of a posting stay distinct from each other
// but collapse among themselves.
func (j RawJob) DedupKey() string {
	return NormalizeName(j.Company) + "|" + NormalizeName(j.Title) + "|" + j.Location
}

// DedupKey returns the normalized triple this row survived under.
func (j CleanedJob) DedupKey() string {
	return j.CompanyNormalized + "|" + j.TitleNormalized + "|" + j.Location
}
