package detect

import (
	"context"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"hiring-signals/internal/domain"
)

// Result carries the rebuilt weekly aggregation and its run metadata.
type Result struct {
	Stats []domain.CompanyWeekStat
	Meta  Metadata
}

// Metadata summarizes one aggregation pass for logs, events and the run
// report.
type Metadata struct {
	Rows            int            `json:"rows"`
	Companies       int            `json:"companies"`
	Weeks           int            `json:"weeks"`
	TechsConfigured int            `json:"techs_configured"`
	TechsDetected   int            `json:"techs_detected"`
	AvgJobsPerWeek  float64        `json:"avg_jobs_per_week"`
	Detections      map[string]int `json:"detections,omitempty"` // tech -> company-week rows listing it
	Diagnostic      string         `json:"diagnostic,omitempty"`
}

// Aggregate rolls dated cleaned jobs into one row per (company, week): the
// detected tech set, distinct locations and a seniority breakdown. Every
// (company, week) pair with at least one dated job appears in the output,
// with an empty tech set when nothing matched. workers bounds the detection
// fan-out; the merge is commutative, so results are identical for any
// worker count.
func Aggregate(ctx context.Context, jobs []domain.CleanedJob, techs []domain.TechConfig, workers int) (Result, error) {
	meta := Metadata{TechsConfigured: len(techs), Detections: map[string]int{}}

	var dated []domain.CleanedJob
	for _, j := range jobs {
		if !j.PostingDate.IsZero() {
			dated = append(dated, j)
		}
	}
	if len(dated) == 0 {
		meta.Diagnostic = "no cleaned jobs carry a posting date; nothing to aggregate"
		return Result{Meta: meta}, nil
	}
	if len(techs) == 0 {
		meta.Diagnostic = "tech_config is empty; aggregating with empty tech sets"
	}

	detected, err := detectAll(ctx, dated, NewMatcher(techs), workers)
	if err != nil {
		return Result{}, err
	}

	display := displayNames(dated)

	type key struct {
		company string
		week    time.Time
	}
	type bucket struct {
		titles    map[string]domain.Seniority
		techs     map[string]struct{}
		locations map[string]struct{}
	}

	buckets := map[key]*bucket{}
	for i, j := range dated {
		k := key{j.CompanyNormalized, domain.WeekStart(j.PostingDate)}
		b := buckets[k]
		if b == nil {
			b = &bucket{
				titles:    map[string]domain.Seniority{},
				techs:     map[string]struct{}{},
				locations: map[string]struct{}{},
			}
			buckets[k] = b
		}
		if _, ok := b.titles[j.Title]; !ok {
			b.titles[j.Title] = domain.ClassifySeniority(j.Title)
		}
		for _, name := range detected[i] {
			b.techs[name] = struct{}{}
		}
		if j.Location != "" {
			b.locations[j.Location] = struct{}{}
		}
	}

	companies := map[string]struct{}{}
	weeks := map[time.Time]struct{}{}
	totalJobs := 0

	stats := make([]domain.CompanyWeekStat, 0, len(buckets))
	for k, b := range buckets {
		s := domain.CompanyWeekStat{
			CompanyNormalized: k.company,
			Company:           display[k.company],
			WeekStart:         k.week,
			JobsPosted:        len(b.titles),
			TechStack:         sortedSet(b.techs),
			Locations:         sortedSet(b.locations),
		}
		for _, sen := range b.titles {
			switch sen {
			case domain.SenioritySenior:
				s.SeniorCount++
			case domain.SeniorityJunior:
				s.JuniorCount++
			case domain.SeniorityLead:
				s.LeadCount++
			default:
				s.MidCount++
			}
		}
		stats = append(stats, s)

		companies[k.company] = struct{}{}
		weeks[k.week] = struct{}{}
		totalJobs += s.JobsPosted
		for _, tech := range s.TechStack {
			meta.Detections[tech]++
		}
	}

	// Newest and busiest weeks first; presentation order only.
	sort.Slice(stats, func(i, j int) bool {
		if !stats[i].WeekStart.Equal(stats[j].WeekStart) {
			return stats[i].WeekStart.After(stats[j].WeekStart)
		}
		if stats[i].JobsPosted != stats[j].JobsPosted {
			return stats[i].JobsPosted > stats[j].JobsPosted
		}
		return stats[i].CompanyNormalized < stats[j].CompanyNormalized
	})

	meta.Rows = len(stats)
	meta.Companies = len(companies)
	meta.Weeks = len(weeks)
	meta.TechsDetected = len(meta.Detections)
	meta.AvgJobsPerWeek = math.Round(float64(totalJobs)/float64(len(stats))*100) / 100

	return Result{Stats: stats, Meta: meta}, nil
}

// detectAll runs the matcher over every job, fanning the scan out across
// workers. Each worker owns a disjoint slice range, so no locking is needed
// and the output does not depend on scheduling.
func detectAll(ctx context.Context, jobs []domain.CleanedJob, m *Matcher, workers int) ([][]string, error) {
	if workers <= 0 {
		workers = 1
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	detected := make([][]string, len(jobs))
	chunk := (len(jobs) + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := min(lo+chunk, len(jobs))
		if lo >= hi {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := lo; i < hi; i++ {
				detected[i] = m.Detect(jobs[i].Title, jobs[i].Description)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return detected, nil
}

// displayNames picks one display spelling per normalized company: the
// spelling on its earliest-seen job, ties broken by job_id. Without this,
// two raw spellings of the same company would split into two rows and break
// the one-row-per-(company, week) invariant.
func displayNames(jobs []domain.CleanedJob) map[string]string {
	type pick struct {
		firstSeen time.Time
		jobID     string
		name      string
	}
	best := map[string]pick{}
	for _, j := range jobs {
		p, ok := best[j.CompanyNormalized]
		if !ok || j.FirstSeen.Before(p.firstSeen) ||
			(j.FirstSeen.Equal(p.firstSeen) && j.JobID < p.jobID) {
			best[j.CompanyNormalized] = pick{j.FirstSeen, j.JobID, j.Company}
		}
	}
	out := make(map[string]string, len(best))
	for k, p := range best {
		out[k] = p.name
	}
	return out
}

func sortedSet(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
