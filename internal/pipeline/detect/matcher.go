package detect

import (
	"sort"
	"strings"

	"github.com/cloudflare/ahocorasick"

	"hiring-signals/internal/domain"
)

// Matcher is the compiled keyword automaton for one taxonomy generation.
// A single pass over a job's text yields every tech whose keywords appear,
// instead of re-scanning the text once per configured tech.
type Matcher struct {
	machine      *ahocorasick.Matcher
	patternTechs [][]int // pattern index -> indexes into names
	names        []string
}

// NewMatcher compiles the taxonomy's keywords into one multi-pattern
// automaton. Keywords are lowercased as patterns; a keyword shared by
// several techs fans out to all of them.
func NewMatcher(techs []domain.TechConfig) *Matcher {
	m := &Matcher{names: make([]string, len(techs))}

	index := map[string]int{} // lowercased keyword -> position in patterns
	var patterns []string

	for ti, t := range techs {
		m.names[ti] = t.Name
		for _, kw := range t.Keywords {
			k := strings.ToLower(kw)
			if k == "" {
				continue
			}
			pi, ok := index[k]
			if !ok {
				pi = len(patterns)
				index[k] = pi
				patterns = append(patterns, k)
				m.patternTechs = append(m.patternTechs, nil)
			}
			m.patternTechs[pi] = append(m.patternTechs[pi], ti)
		}
	}

	if len(patterns) > 0 {
		m.machine = ahocorasick.NewStringMatcher(patterns)
	}
	return m
}

// Detect returns the sorted distinct tech names with a keyword hit in the
// job's title or description. Matching is case-insensitive substring, so
// short keywords can over-match; that is the configured tradeoff, not a bug.
// Nil when nothing matches.
func (m *Matcher) Detect(title, description string) []string {
	if m.machine == nil {
		return nil
	}

	text := strings.ToLower(title + " " + description)
	hits := m.machine.MatchThreadSafe([]byte(text))
	if len(hits) == 0 {
		return nil
	}

	seen := make(map[int]bool, len(hits))
	var names []string
	for _, pi := range hits {
		for _, ti := range m.patternTechs[pi] {
			if !seen[ti] {
				seen[ti] = true
				names = append(names, m.names[ti])
			}
		}
	}
	sort.Strings(names)
	return names
}
