package domain

import "strings"

type Seniority string

const (
	SenioritySenior Seniority = "Senior"
	SeniorityJunior Seniority = "Junior"
	SeniorityLead   Seniority = "Lead"
	SeniorityMid    Seniority = "Mid-Level"
)

// ClassifySeniority buckets a title by case-insensitive substring, first
// match wins: senior/sr. beat junior/jr., which beat lead/principal.
// Every component that needs seniority calls this; the rule exists exactly
// once.
func ClassifySeniority(title string) Seniority {
	t := strings.ToLower(title)
	switch {
	case strings.Contains(t, "senior"), strings.Contains(t, "sr."):
		return SenioritySenior
	case strings.Contains(t, "junior"), strings.Contains(t, "jr."):
		return SeniorityJunior
	case strings.Contains(t, "lead"), strings.Contains(t, "principal"):
		return SeniorityLead
	default:
		return SeniorityMid
	}
}
