package domain

import (
	"strings"
	"time"
)

// CompanyWeekStat is one hiring bucket: a company's postings for a single
// week with the detected tech set, locations and seniority breakdown. Every
// (company, week) pair present in the dated cleaned set gets exactly one
// row, even when nothing was detected.
type CompanyWeekStat struct {
	CompanyNormalized string
	Company           string
	WeekStart         time.Time
	JobsPosted        int
	TechStack         []string // sorted distinct detected tech names
	Locations         []string // sorted distinct non-empty locations
	SeniorCount       int
	JuniorCount       int
	LeadCount         int
	MidCount          int
}

// TechStackString serializes the detected set the way it is stored and
// matched against: comma-joined, empty when nothing was detected.
func (s CompanyWeekStat) TechStackString() string {
	return strings.Join(s.TechStack, ",")
}

// LeadScore ranks one company for the latest aggregated week.
type LeadScore struct {
	CompanyNormalized string
	Company           string
	WeekStart         time.Time
	JobsThisWeek      int
	JobsLastWeek      int // 0 when the company has no earlier week
	VelocityScore     float64
	TechMatchScore    float64
	VolumeScore       float64
	CompositeScore    float64
	TechStack         string // serialized stack carried through for export
}
