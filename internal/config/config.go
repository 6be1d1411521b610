package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"hiring-signals/internal/domain"
)

// Technology is one taxonomy seed entry. It only reaches the tech_config
// table when that table is empty; after that the table is the authority and
// operators edit it directly.
type Technology struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Category string   `yaml:"category"`
	Target   bool     `yaml:"target"`
	Weight   float64  `yaml:"weight"`
}

type Config struct {
	App struct {
		Port int `yaml:"port"`
	} `yaml:"app"`

	Exports struct {
		Dir string `yaml:"dir"`
	} `yaml:"exports"`

	Pipeline struct {
		// IntervalSeconds > 0 makes serve mode run the pipeline on a
		// ticker. 0 leaves runs to the CLI or the HTTP trigger.
		IntervalSeconds int `yaml:"interval_seconds"`
		DetectWorkers   int `yaml:"detect_workers"`
	} `yaml:"pipeline"`

	Technologies []Technology `yaml:"technologies"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}

// Default is what a fresh data dir gets bootstrapped with. The exports dir
// is relative to the data dir; main resolves it.
func Default() Config {
	var cfg Config
	cfg.App.Port = 8091
	cfg.Exports.Dir = "exports"
	cfg.Pipeline.IntervalSeconds = 0
	cfg.Pipeline.DetectWorkers = 4
	cfg.Technologies = []Technology{
		{Name: "Go", Keywords: []string{"golang", " go "}, Category: "language", Target: true, Weight: 1.0},
		{Name: "Python", Keywords: []string{"python"}, Category: "language", Target: true, Weight: 1.0},
		{Name: "TypeScript", Keywords: []string{"typescript"}, Category: "language", Target: true, Weight: 0.8},
		{Name: "React", Keywords: []string{"react"}, Category: "frontend", Target: false, Weight: 0.5},
		{Name: "Kubernetes", Keywords: []string{"kubernetes", "k8s"}, Category: "infra", Target: true, Weight: 1.0},
		{Name: "Terraform", Keywords: []string{"terraform"}, Category: "infra", Target: false, Weight: 0.7},
		{Name: "AWS", Keywords: []string{"aws", "amazon web services"}, Category: "cloud", Target: true, Weight: 0.9},
		{Name: "PostgreSQL", Keywords: []string{"postgres", "postgresql"}, Category: "database", Target: false, Weight: 0.6},
		{Name: "Kafka", Keywords: []string{"kafka"}, Category: "streaming", Target: false, Weight: 0.6},
	}
	return cfg
}

// TechSeed converts the taxonomy seed to domain rows.
func (c Config) TechSeed() []domain.TechConfig {
	out := make([]domain.TechConfig, 0, len(c.Technologies))
	for _, t := range c.Technologies {
		out = append(out, domain.TechConfig{
			Name:        t.Name,
			Keywords:    t.Keywords,
			Category:    t.Category,
			IsTarget:    t.Target,
			ScoreWeight: t.Weight,
		})
	}
	return out
}
