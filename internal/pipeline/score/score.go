package score

import (
	"math"
	"sort"
	"strings"
	"time"

	"hiring-signals/internal/domain"
)

// Sub-score weights. They must sum to 1.0; tech_config is the tuning
// surface for WHAT is scored, these fix HOW MUCH each signal counts.
const (
	WeightVelocity  = 0.40
	WeightTechMatch = 0.35
	WeightVolume    = 0.25
)

// Composite thresholds for the hot/warm/cold lead buckets.
const (
	ThresholdHot  = 80.0
	ThresholdWarm = 50.0
)

// Result carries the rebuilt lead table and its run metadata.
type Result struct {
	Scores []domain.LeadScore
	Meta   Metadata
}

// Metadata summarizes one scoring pass.
type Metadata struct {
	Scored       int      `json:"scored"`
	LatestWeek   string   `json:"latest_week,omitempty"`
	TargetTechs  []string `json:"target_techs,omitempty"`
	HotLeads     int      `json:"hot_leads"`
	WarmLeads    int      `json:"warm_leads"`
	ColdLeads    int      `json:"cold_leads"`
	AvgComposite float64  `json:"avg_composite_score"`
	TopCompany   string   `json:"top_company,omitempty"`
	Diagnostic   string   `json:"diagnostic,omitempty"`
}

// Rank scores every company present in the latest aggregated week and
// returns the rows composite-descending. Earlier weeks feed the velocity
// delta but are never scored themselves.
//
// With no target techs configured the scorer cannot produce meaningful
// composites, so it returns zero rows and a diagnostic instead of
// degenerate output.
func Rank(stats []domain.CompanyWeekStat, techs []domain.TechConfig) Result {
	var targets []domain.TechConfig
	totalWeight := 0.0
	for _, t := range techs {
		if t.IsTarget {
			targets = append(targets, t)
			totalWeight += t.ScoreWeight
		}
	}

	meta := Metadata{TargetTechs: techNames(targets)}
	if len(targets) == 0 {
		meta.Diagnostic = "no target technologies configured; set is_target in tech_config"
		return Result{Meta: meta}
	}
	if len(stats) == 0 {
		meta.Diagnostic = "company_stats is empty; nothing to score"
		return Result{Meta: meta}
	}

	var latest time.Time
	for _, s := range stats {
		if s.WeekStart.After(latest) {
			latest = s.WeekStart
		}
	}
	meta.LatestWeek = latest.Format(domain.DateFormat)

	// Per company: the latest-week row to score and, for velocity, the
	// jobs_posted of the nearest earlier week in that company's own
	// history. Gaps in the calendar do not zero the delta.
	type history struct {
		current  *domain.CompanyWeekStat
		prevWeek time.Time
		prevJobs int
	}
	byCompany := map[string]*history{}
	for i := range stats {
		s := &stats[i]
		h := byCompany[s.CompanyNormalized]
		if h == nil {
			h = &history{}
			byCompany[s.CompanyNormalized] = h
		}
		switch {
		case s.WeekStart.Equal(latest):
			h.current = s
		case h.prevWeek.IsZero() || s.WeekStart.After(h.prevWeek):
			h.prevWeek = s.WeekStart
			h.prevJobs = s.JobsPosted
		}
	}

	maxJobs := 0
	for _, h := range byCompany {
		if h.current != nil && h.current.JobsPosted > maxJobs {
			maxJobs = h.current.JobsPosted
		}
	}

	var scores []domain.LeadScore
	for _, h := range byCompany {
		if h.current == nil {
			continue
		}
		s := h.current
		stack := s.TechStackString()

		velocity := 100.0
		if h.prevJobs > 0 {
			growth := float64(s.JobsPosted-h.prevJobs) / float64(h.prevJobs) * 100
			velocity = math.Min(100, growth)
		}

		techMatch := 0.0
		if totalWeight > 0 {
			matched := 0.0
			for _, t := range targets {
				if strings.Contains(stack, t.Name) {
					matched += t.ScoreWeight
				}
			}
			techMatch = matched / totalWeight * 100
		}

		volume := 0.0
		if maxJobs > 0 {
			volume = float64(s.JobsPosted) / float64(maxJobs) * 100
		}

		composite := WeightVelocity*velocity + WeightTechMatch*techMatch + WeightVolume*volume

		scores = append(scores, domain.LeadScore{
			CompanyNormalized: s.CompanyNormalized,
			Company:           s.Company,
			WeekStart:         s.WeekStart,
			JobsThisWeek:      s.JobsPosted,
			JobsLastWeek:      h.prevJobs,
			VelocityScore:     round2(velocity),
			TechMatchScore:    round2(techMatch),
			VolumeScore:       round2(volume),
			CompositeScore:    round2(composite),
			TechStack:         stack,
		})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].CompositeScore != scores[j].CompositeScore {
			return scores[i].CompositeScore > scores[j].CompositeScore
		}
		return scores[i].CompanyNormalized < scores[j].CompanyNormalized
	})

	dist := Distribute(scores)
	meta.Scored = len(scores)
	meta.HotLeads = dist.Hot
	meta.WarmLeads = dist.Warm
	meta.ColdLeads = dist.Cold
	meta.AvgComposite = dist.AvgComposite
	if len(scores) > 0 {
		meta.TopCompany = scores[0].Company
	}

	return Result{Scores: scores, Meta: meta}
}

// Distribution buckets leads by composite score.
type Distribution struct {
	Hot          int // composite >= ThresholdHot
	Warm         int // ThresholdWarm <= composite < ThresholdHot
	Cold         int // composite < ThresholdWarm
	AvgComposite float64
}

// Distribute counts hot/warm/cold leads and the mean composite. Shared by
// the scorer's metadata and the exported summary so the two never disagree.
func Distribute(scores []domain.LeadScore) Distribution {
	var d Distribution
	if len(scores) == 0 {
		return d
	}
	sum := 0.0
	for _, s := range scores {
		switch {
		case s.CompositeScore >= ThresholdHot:
			d.Hot++
		case s.CompositeScore >= ThresholdWarm:
			d.Warm++
		default:
			d.Cold++
		}
		sum += s.CompositeScore
	}
	d.AvgComposite = round2(sum / float64(len(scores)))
	return d
}

func techNames(techs []domain.TechConfig) []string {
	if len(techs) == 0 {
		return nil
	}
	names := make([]string, len(techs))
	for i, t := range techs {
		names[i] = t.Name
	}
	sort.Strings(names)
	return names
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
