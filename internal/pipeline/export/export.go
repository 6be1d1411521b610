package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"hiring-signals/internal/domain"
	"hiring-signals/internal/pipeline/score"
)

// Export file names under the export directory.
const (
	LeadScoresFile = "lead_scores_latest.csv"
	TrendsFile     = "company_trends.csv"
	SummaryFile    = "summary.json"
)

// Exporter projects the scored tables into dashboard files. No computation
// happens here beyond sorting and re-aggregating already-stored values.
type Exporter struct {
	Dir string
	Now func() time.Time // defaults to time.Now
}

// Metadata summarizes one export pass.
type Metadata struct {
	LeadRows       int    `json:"lead_rows"`
	TrendRows      int    `json:"trend_rows"`
	HotLeads       int    `json:"hot_leads"`
	LeadScoresPath string `json:"lead_scores_path"`
	TrendsPath     string `json:"trends_path"`
	SummaryPath    string `json:"summary_path"`
	GeneratedAt    string `json:"generated_at"`
}

// Summary is the exported summary.json document.
type Summary struct {
	GeneratedAt       string         `json:"generated_at"`
	LatestWeek        string         `json:"latest_week"` // "N/A" when nothing was scored
	TotalCompanies    int            `json:"total_companies"`
	HotLeads          int            `json:"hot_leads"`
	WarmLeads         int            `json:"warm_leads"`
	ColdLeads         int            `json:"cold_leads"`
	AvgCompositeScore float64        `json:"avg_composite_score"`
	TechDistribution  map[string]int `json:"tech_distribution"`
}

// WriteAll writes the three export files. Each file lands via temp + rename,
// so a dashboard polling the directory never reads a half-written file.
func (e Exporter) WriteAll(scores []domain.LeadScore, stats []domain.CompanyWeekStat) (Metadata, error) {
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return Metadata{}, fmt.Errorf("create export dir: %w", err)
	}

	leads := make([]domain.LeadScore, len(scores))
	copy(leads, scores)
	sort.Slice(leads, func(i, j int) bool {
		if leads[i].CompositeScore != leads[j].CompositeScore {
			return leads[i].CompositeScore > leads[j].CompositeScore
		}
		return leads[i].CompanyNormalized < leads[j].CompanyNormalized
	})

	trends := make([]domain.CompanyWeekStat, len(stats))
	copy(trends, stats)
	sort.Slice(trends, func(i, j int) bool {
		if trends[i].CompanyNormalized != trends[j].CompanyNormalized {
			return trends[i].CompanyNormalized < trends[j].CompanyNormalized
		}
		return trends[i].WeekStart.Before(trends[j].WeekStart)
	})

	meta := Metadata{
		LeadRows:       len(leads),
		TrendRows:      len(trends),
		LeadScoresPath: filepath.Join(e.Dir, LeadScoresFile),
		TrendsPath:     filepath.Join(e.Dir, TrendsFile),
		SummaryPath:    filepath.Join(e.Dir, SummaryFile),
	}

	if err := writeCSV(meta.LeadScoresPath, leadHeader, leadRecords(leads)); err != nil {
		return Metadata{}, err
	}
	if err := writeCSV(meta.TrendsPath, trendHeader, trendRecords(trends)); err != nil {
		return Metadata{}, err
	}

	summary := BuildSummary(e.now(), leads, trends)
	if err := writeJSON(meta.SummaryPath, summary); err != nil {
		return Metadata{}, err
	}

	meta.HotLeads = summary.HotLeads
	meta.GeneratedAt = summary.GeneratedAt
	return meta, nil
}

// BuildSummary re-aggregates the scored leads plus the all-weeks tech
// distribution from company_stats.
func BuildSummary(now time.Time, scores []domain.LeadScore, stats []domain.CompanyWeekStat) Summary {
	s := Summary{
		GeneratedAt:      now.UTC().Format(time.RFC3339),
		LatestWeek:       "N/A",
		TotalCompanies:   len(scores),
		TechDistribution: map[string]int{},
	}

	dist := score.Distribute(scores)
	s.HotLeads = dist.Hot
	s.WarmLeads = dist.Warm
	s.ColdLeads = dist.Cold
	s.AvgCompositeScore = dist.AvgComposite

	for _, lead := range scores {
		week := lead.WeekStart.Format(domain.DateFormat)
		if s.LatestWeek == "N/A" || week > s.LatestWeek {
			s.LatestWeek = week
		}
	}

	// distribution counts company-week rows listing each tech, all weeks
	for _, st := range stats {
		for _, tech := range strings.Split(st.TechStackString(), ",") {
			tech = strings.TrimSpace(tech)
			if tech != "" {
				s.TechDistribution[tech]++
			}
		}
	}

	return s
}

var leadHeader = []string{
	"company", "composite_score", "velocity_score", "tech_match_score",
	"volume_score", "jobs_this_week", "jobs_last_week", "tech_stack",
	"week_start",
}

func leadRecords(leads []domain.LeadScore) [][]string {
	records := make([][]string, 0, len(leads))
	for _, l := range leads {
		records = append(records, []string{
			l.Company,
			formatScore(l.CompositeScore),
			formatScore(l.VelocityScore),
			formatScore(l.TechMatchScore),
			formatScore(l.VolumeScore),
			strconv.Itoa(l.JobsThisWeek),
			strconv.Itoa(l.JobsLastWeek),
			l.TechStack,
			l.WeekStart.Format(domain.DateFormat),
		})
	}
	return records
}

var trendHeader = []string{
	"company_normalized", "company", "week_start", "jobs_posted", "tech_stack",
}

func trendRecords(trends []domain.CompanyWeekStat) [][]string {
	records := make([][]string, 0, len(trends))
	for _, t := range trends {
		records = append(records, []string{
			t.CompanyNormalized,
			t.Company,
			t.WeekStart.Format(domain.DateFormat),
			strconv.Itoa(t.JobsPosted),
			t.TechStackString(),
		})
	}
	return records
}

// formatScore keeps CSV floats minimal: "62.5", never "62.50".
func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeCSV(path string, header []string, records [][]string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}

	w := csv.NewWriter(f)
	err = w.Write(header)
	for _, rec := range records {
		if err != nil {
			break
		}
		err = w.Write(rec)
	}
	if err == nil {
		w.Flush()
		err = w.Error()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return os.Rename(tmp, path)
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(b, '\n'), 0o644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return os.Rename(tmp, path)
}

func (e Exporter) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}
