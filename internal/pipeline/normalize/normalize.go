package normalize

import (
	"math"
	"sort"

	"hiring-signals/internal/domain"
)

// Result carries the rebuilt cleaned set and its run metadata.
type Result struct {
	Jobs []domain.CleanedJob
	Meta Metadata
}

// Metadata summarizes one normalization pass.
type Metadata struct {
	RawCount          int            `json:"raw_count"`
	CleanedCount      int            `json:"cleaned_count"`
	DuplicatesRemoved int            `json:"duplicates_removed"`
	DuplicateRate     float64        `json:"duplicate_rate"` // percent of raw rows dropped
	DateRange         string         `json:"date_range,omitempty"`
	TopCompanies      map[string]int `json:"top_companies,omitempty"`
	Sources           map[string]int `json:"sources,omitempty"`
	Diagnostic        string         `json:"diagnostic,omitempty"`
}

// Dedupe collapses raw observations into one canonical job per dedup key.
// The earliest-scraped member of each group (job_id breaks ties) donates
// the descriptive fields; first_seen/last_seen span the whole group. Pure
// function of its input: same raw set in, same cleaned set out.
func Dedupe(raw []domain.RawJob) Result {
	meta := Metadata{RawCount: len(raw)}
	if len(raw) == 0 {
		meta.Diagnostic = "raw_jobs is empty; nothing to normalize"
		return Result{Meta: meta}
	}

	ordered := make([]domain.RawJob, len(raw))
	copy(ordered, raw)
	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].FirstScrapedAt.Equal(ordered[j].FirstScrapedAt) {
			return ordered[i].FirstScrapedAt.Before(ordered[j].FirstScrapedAt)
		}
		return ordered[i].JobID < ordered[j].JobID
	})

	index := map[string]int{} // dedup key -> position in jobs
	var jobs []domain.CleanedJob
	for _, r := range ordered {
		key := r.DedupKey()
		if i, ok := index[key]; ok {
			j := &jobs[i]
			if r.FirstScrapedAt.Before(j.FirstSeen) {
				j.FirstSeen = r.FirstScrapedAt
			}
			if r.LastScrapedAt.After(j.LastSeen) {
				j.LastSeen = r.LastScrapedAt
			}
			continue
		}
		index[key] = len(jobs)
		jobs = append(jobs, domain.CleanedJob{
			JobID:             r.JobID,
			Company:           r.Company,
			CompanyNormalized: domain.NormalizeName(r.Company),
			Title:             r.Title,
			TitleNormalized:   domain.NormalizeName(r.Title),
			Description:       r.Description,
			Location:          r.Location,
			PostingDate:       r.PostingDate,
			URL:               r.URL,
			Source:            r.Source,
			FirstSeen:         r.FirstScrapedAt,
			LastSeen:          r.LastScrapedAt,
		})
	}

	meta.CleanedCount = len(jobs)
	meta.DuplicatesRemoved = len(raw) - len(jobs)
	meta.DuplicateRate = math.Round(float64(meta.DuplicatesRemoved)/float64(len(raw))*100*100) / 100
	meta.DateRange = dateRange(jobs)
	meta.TopCompanies = topCompanies(jobs, 10)
	meta.Sources = sourceBreakdown(jobs)

	return Result{Jobs: jobs, Meta: meta}
}

func dateRange(jobs []domain.CleanedJob) string {
	var earliest, latest string
	for _, j := range jobs {
		if j.PostingDate.IsZero() {
			continue
		}
		d := j.PostingDate.Format(domain.DateFormat)
		if earliest == "" || d < earliest {
			earliest = d
		}
		if d > latest {
			latest = d
		}
	}
	if earliest == "" {
		return ""
	}
	return earliest + " to " + latest
}

// topCompanies returns the n companies with the most surviving rows.
// Selection is deterministic: count descending, then name.
func topCompanies(jobs []domain.CleanedJob, n int) map[string]int {
	counts := map[string]int{}
	for _, j := range jobs {
		counts[j.CompanyNormalized]++
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > n {
		names = names[:n]
	}
	top := make(map[string]int, len(names))
	for _, name := range names {
		top[name] = counts[name]
	}
	return top
}

func sourceBreakdown(jobs []domain.CleanedJob) map[string]int {
	out := map[string]int{}
	for _, j := range jobs {
		out[j.Source]++
	}
	return out
}
