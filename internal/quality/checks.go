package quality

import (
	"fmt"

	"hiring-signals/internal/domain"
)

// Severity of a failed check. Checks observe and report; the orchestrator
// decides what a failure means.
type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warn"
)

// Advisory thresholds.
const (
	MinJobCount  = 50
	MinLeadCount = 5
)

const exampleLimit = 3

// CheckResult is one post-stage data quality observation with structured
// evidence for the run report.
type CheckResult struct {
	Name     string         `json:"name"`
	Passed   bool           `json:"passed"`
	Severity Severity       `json:"severity"`
	Evidence map[string]any `json:"evidence,omitempty"`
}

// CheckCleanedJobs validates the normalizer's output table.
func CheckCleanedJobs(jobs []domain.CleanedJob) []CheckResult {
	return []CheckResult{
		noNullCompanies(jobs),
		minimumJobCount(jobs),
		dedupEffective(jobs),
	}
}

// CheckLeadScores validates the scorer's output table and its taxonomy
// precondition.
func CheckLeadScores(scores []domain.LeadScore, techs []domain.TechConfig) []CheckResult {
	return []CheckResult{
		targetTechsConfigured(techs),
		minimumLeadCount(scores),
		scoresInRange(scores),
	}
}

// FailedAt returns the failed results carrying the given severity.
func FailedAt(results []CheckResult, sev Severity) []CheckResult {
	var out []CheckResult
	for _, r := range results {
		if !r.Passed && r.Severity == sev {
			out = append(out, r)
		}
	}
	return out
}

func noNullCompanies(jobs []domain.CleanedJob) CheckResult {
	nulls := 0
	for _, j := range jobs {
		if j.CompanyNormalized == "" {
			nulls++
		}
	}
	pct := 0.0
	if len(jobs) > 0 {
		pct = float64(nulls) / float64(len(jobs)) * 100
	}
	return CheckResult{
		Name:     "no_null_companies",
		Passed:   nulls == 0,
		Severity: SeverityError,
		Evidence: map[string]any{
			"null_count":      nulls,
			"total_count":     len(jobs),
			"null_percentage": fmt.Sprintf("%.2f%%", pct),
		},
	}
}

func minimumJobCount(jobs []domain.CleanedJob) CheckResult {
	return CheckResult{
		Name:     "minimum_job_count",
		Passed:   len(jobs) >= MinJobCount,
		Severity: SeverityWarn,
		Evidence: map[string]any{
			"job_count":    len(jobs),
			"min_expected": MinJobCount,
		},
	}
}

func dedupEffective(jobs []domain.CleanedJob) CheckResult {
	counts := map[string]int{}
	for _, j := range jobs {
		counts[j.DedupKey()]++
	}
	var examples []string
	groups := 0
	for key, n := range counts {
		if n > 1 {
			groups++
			if len(examples) < exampleLimit {
				examples = append(examples, fmt.Sprintf("%s (%d rows)", key, n))
			}
		}
	}
	ev := map[string]any{"duplicate_groups": groups}
	if len(examples) > 0 {
		ev["examples"] = examples
	}
	return CheckResult{
		Name:     "dedup_effective",
		Passed:   groups == 0,
		Severity: SeverityError,
		Evidence: ev,
	}
}

func targetTechsConfigured(techs []domain.TechConfig) CheckResult {
	targets := 0
	for _, t := range techs {
		if t.IsTarget {
			targets++
		}
	}
	return CheckResult{
		Name:     "target_techs_configured",
		Passed:   targets > 0,
		Severity: SeverityError,
		Evidence: map[string]any{"target_tech_count": targets},
	}
}

func minimumLeadCount(scores []domain.LeadScore) CheckResult {
	return CheckResult{
		Name:     "minimum_lead_count",
		Passed:   len(scores) >= MinLeadCount,
		Severity: SeverityWarn,
		Evidence: map[string]any{
			"lead_count":   len(scores),
			"min_expected": MinLeadCount,
		},
	}
}

func scoresInRange(scores []domain.LeadScore) CheckResult {
	invalid := 0
	var examples []string
	for _, s := range scores {
		if inRange(s.VelocityScore) && inRange(s.TechMatchScore) &&
			inRange(s.VolumeScore) && inRange(s.CompositeScore) {
			continue
		}
		invalid++
		if len(examples) < exampleLimit {
			examples = append(examples, fmt.Sprintf(
				"%s velocity=%g tech_match=%g volume=%g composite=%g",
				s.Company, s.VelocityScore, s.TechMatchScore, s.VolumeScore, s.CompositeScore))
		}
	}
	ev := map[string]any{"invalid_count": invalid}
	if len(examples) > 0 {
		ev["examples"] = examples
	}
	return CheckResult{
		Name:     "scores_in_range",
		Passed:   invalid == 0,
		Severity: SeverityError,
		Evidence: ev,
	}
}

func inRange(v float64) bool {
	return v >= 0 && v <= 100
}
