package httpapi

import "hiring-signals/internal/domain"

// LeadView is the JSON shape of one scored lead. Week starts render as
// dates, matching the CSV exports.
type LeadView struct {
	Company        string  `json:"company"`
	CompositeScore float64 `json:"composite_score"`
	VelocityScore  float64 `json:"velocity_score"`
	TechMatchScore float64 `json:"tech_match_score"`
	VolumeScore    float64 `json:"volume_score"`
	JobsThisWeek   int     `json:"jobs_this_week"`
	JobsLastWeek   int     `json:"jobs_last_week"`
	TechStack      string  `json:"tech_stack"`
	WeekStart      string  `json:"week_start"`
}

func leadView(s domain.LeadScore) LeadView {
	return LeadView{
		Company:        s.Company,
		CompositeScore: s.CompositeScore,
		VelocityScore:  s.VelocityScore,
		TechMatchScore: s.TechMatchScore,
		VolumeScore:    s.VolumeScore,
		JobsThisWeek:   s.JobsThisWeek,
		JobsLastWeek:   s.JobsLastWeek,
		TechStack:      s.TechStack,
		WeekStart:      s.WeekStart.Format("2006-01-02"),
	}
}

// TrendView is the JSON shape of one (company, week) aggregation row.
type TrendView struct {
	CompanyNormalized string   `json:"company_normalized"`
	Company           string   `json:"company"`
	WeekStart         string   `json:"week_start"`
	JobsPosted        int      `json:"jobs_posted"`
	TechStack         []string `json:"tech_stack"`
	Locations         []string `json:"locations"`
	SeniorCount       int      `json:"senior_count"`
	JuniorCount       int      `json:"junior_count"`
	MidCount          int      `json:"mid_count"`
	LeadCount         int      `json:"lead_count"`
}

func trendView(s domain.CompanyWeekStat) TrendView {
	return TrendView{
		CompanyNormalized: s.CompanyNormalized,
		Company:           s.Company,
		WeekStart:         s.WeekStart.Format("2006-01-02"),
		JobsPosted:        s.JobsPosted,
		TechStack:         s.TechStack,
		Locations:         s.Locations,
		SeniorCount:       s.SeniorCount,
		JuniorCount:       s.JuniorCount,
		MidCount:          s.MidCount,
		LeadCount:         s.LeadCount,
	}
}
