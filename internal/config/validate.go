package config

import (
	"fmt"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate returns a normalized copy plus everything wrong or
// suspicious about it. Empty defaults are filled in rather than rejected.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	if out.Exports.Dir == "" {
		out.Exports.Dir = "exports"
	}
	if out.Pipeline.DetectWorkers <= 0 {
		out.Pipeline.DetectWorkers = 4
	}

	// ---- Validation rules ----

	if out.App.Port <= 0 || out.App.Port > 65535 {
		res.addErr("app.port must be 1..65535")
	}
	if out.Pipeline.IntervalSeconds < 0 {
		res.addErr("pipeline.interval_seconds must be >= 0")
	} else if out.Pipeline.IntervalSeconds > 0 && out.Pipeline.IntervalSeconds < 60 {
		res.addWarn("pipeline.interval_seconds is very low (%d); full rebuilds are not that cheap.", out.Pipeline.IntervalSeconds)
	}

	// taxonomy seed sanity
	seen := map[string]bool{}
	targets := 0
	for i, tech := range out.Technologies {
		name := strings.TrimSpace(tech.Name)
		out.Technologies[i].Name = name
		if name == "" {
			res.addErr("technologies[%d].name is required", i)
			continue
		}
		key := strings.ToLower(name)
		if seen[key] {
			res.addErr("technologies[%d] duplicates tech name %q", i, name)
		}
		seen[key] = true

		if len(tech.Keywords) == 0 {
			res.addErr("technologies[%d] (%s) needs at least 1 keyword", i, name)
		}
		for j, kw := range tech.Keywords {
			if strings.TrimSpace(kw) == "" {
				res.addErr("technologies[%d].keywords[%d] cannot be blank", i, j)
			}
		}
		if tech.Weight < 0 {
			res.addErr("technologies[%d] (%s) weight must be >= 0", i, name)
		}
		if tech.Target {
			targets++
		}
	}
	if len(out.Technologies) > 0 && targets == 0 {
		res.addWarn("no technology is marked target: true; lead scoring will produce zero rows.")
	}

	return out, res
}
