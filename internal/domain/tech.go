package domain

// TechConfig is one row of the detection taxonomy. Keywords are matched as
// case-insensitive substrings of a job's title and description. IsTarget
// marks techs that count toward lead scoring; ScoreWeight is that tech's
// share of the tech-match score.
type TechConfig struct {
	Name        string
	Keywords    []string
	Category    string
	IsTarget    bool
	ScoreWeight float64
}
