package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"hiring-signals/internal/config"
	"hiring-signals/internal/domain"
	"hiring-signals/internal/events"
	"hiring-signals/internal/ingest"
	"hiring-signals/internal/logging"
	"hiring-signals/internal/metrics"
	"hiring-signals/internal/pipeline"
	"hiring-signals/internal/pipeline/export"
	"hiring-signals/internal/quality"
	"hiring-signals/internal/store"
)

// Exit codes for the orchestrator driving this binary.
const (
	exitOK           = 0
	exitFault        = 1 // a stage failed; tables keep their previous generation
	exitFailedChecks = 2 // run committed but an error-severity quality check failed
)

func main() {
	var (
		mode    = flag.String("mode", "run", "run | ingest | serve | export | seed")
		file    = flag.String("file", "", "input file for -mode ingest")
		format  = flag.String("format", "jsonl", "ingest input format: jsonl | board")
		company = flag.String("company", "", "company display name for -format board")
		slug    = flag.String("slug", "", "board slug used in generated job ids (derived from -company when empty)")
		andRun  = flag.Bool("run", false, "chain a pipeline run after -mode ingest")
	)
	flag.Parse()

	config.LoadEnv(nil) // before the logger so LOG_LEVEL from .env applies
	logger := logging.NewLoggerWithService("signals")

	dataDir := config.GetEnv("SIGNALS_DATA_DIR", ".")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		logger.WithError(err).Fatal("create data dir")
	}

	cfgPath, err := config.EnsureUserConfig(dataDir)
	if err != nil {
		logger.WithError(err).Fatal("config bootstrap failed")
	}
	cfg, err := loadConfig(logger, cfgPath)
	if err != nil {
		logger.WithError(err).WithField("path", cfgPath).Fatal("config load failed")
	}

	db, err := store.Open(filepath.Join(dataDir, "signals.db"))
	if err != nil {
		logger.WithError(err).Fatal("open store")
	}
	if err := store.Migrate(db.Pool); err != nil {
		_ = db.Close()
		logger.WithError(err).Fatal("migrate store")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{logger: logger, db: db, dataDir: dataDir, cfgPath: cfgPath}

	var code int
	switch *mode {
	case "run":
		code = a.seedTaxonomy(ctx, cfg, false)
		if code == exitOK {
			code = a.runOnce(ctx, cfg)
		}
	case "ingest":
		code = a.seedTaxonomy(ctx, cfg, false)
		if code == exitOK {
			code = a.ingestFile(ctx, cfg, *file, *format, *company, *slug, *andRun)
		}
	case "serve":
		code = a.seedTaxonomy(ctx, cfg, false)
		if code == exitOK {
			code = a.serve(ctx, cfg)
		}
	case "export":
		code = a.exportOnly(ctx, cfg)
	case "seed":
		code = a.seedTaxonomy(ctx, cfg, true)
	default:
		logger.WithField("mode", *mode).Error("unknown mode; use run, ingest, serve, export or seed")
		code = exitFault
	}

	_ = db.Close()
	os.Exit(code)
}

type app struct {
	logger  logging.Logger
	db      *store.DB
	dataDir string
	cfgPath string
}

// loadConfig reads and normalizes the user config. Validation warnings are
// logged; validation errors reject the config.
func loadConfig(logger logging.Logger, path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	normalized, vr := config.NormalizeAndValidate(cfg)
	for _, w := range vr.Warnings {
		logger.WithField("path", path).Warn(w)
	}
	if !vr.OK() {
		return config.Config{}, errors.New("invalid config:\n- " + strings.Join(vr.Errors, "\n- "))
	}
	return normalized, nil
}

// resolve anchors relative paths in cfg to the data dir, so runs behave the
// same regardless of the process working directory.
func (a *app) resolve(cfg config.Config) config.Config {
	if !filepath.IsAbs(cfg.Exports.Dir) {
		cfg.Exports.Dir = filepath.Join(a.dataDir, cfg.Exports.Dir)
	}
	return cfg
}

func (a *app) newRunner(cfgFn func() config.Config, hub *events.Hub, collector *metrics.Collector) *pipeline.Runner {
	return &pipeline.Runner{
		Store:    a.db,
		Logger:   a.logger,
		Hub:      hub,
		Metrics:  collector,
		Cfg:      cfgFn,
		LockPath: filepath.Join(a.dataDir, "signals.db.lock"),
	}
}

// seedTaxonomy applies the config's taxonomy seed when tech_config is
// empty. The table stays the authority otherwise; explicit=true is the
// operator-invoked seed mode, which reports a skip.
func (a *app) seedTaxonomy(ctx context.Context, cfg config.Config, explicit bool) int {
	seed := cfg.TechSeed()
	seeded, err := a.db.SeedTechConfigs(ctx, seed)
	if err != nil {
		a.logger.WithError(err).Error("seed tech_config")
		return exitFault
	}
	if seeded {
		a.logger.WithField("techs", len(seed)).Info("tech_config seeded from config taxonomy")
	} else if explicit {
		a.logger.Info("tech_config not empty; seed skipped")
	}
	return exitOK
}

func (a *app) runOnce(ctx context.Context, cfg config.Config) int {
	runner := a.newRunner(func() config.Config { return a.resolve(cfg) }, nil, nil)

	report, err := runner.Run(ctx)
	if err != nil {
		a.logger.WithError(err).Error("pipeline run failed")
		return exitFault
	}
	if n := report.FailedChecks(quality.SeverityError); n > 0 {
		a.logger.WithFields(logging.Fields{
			"run_id":        report.RunID,
			"failed_checks": n,
		}).Error("run committed but error-severity quality checks failed")
		return exitFailedChecks
	}
	return exitOK
}

func (a *app) ingestFile(ctx context.Context, cfg config.Config, file, format, company, slug string, andRun bool) int {
	if file == "" {
		a.logger.Error("-mode ingest requires -file")
		return exitFault
	}

	var fetcher ingest.Fetcher
	switch format {
	case "jsonl":
		fetcher = ingest.JSONLFetcher{Path: file, Logger: a.logger}
	case "board":
		if company == "" {
			a.logger.Error("-format board requires -company")
			return exitFault
		}
		if slug == "" {
			slug = strings.ReplaceAll(domain.NormalizeName(company), " ", "-")
		}
		fetcher = ingest.BoardFetcher{Path: file, Company: company, Slug: slug}
	default:
		a.logger.WithField("format", format).Error("unknown ingest format; use jsonl or board")
		return exitFault
	}

	rep, err := ingest.Apply(ctx, a.db, fetcher, a.logger, nil)
	if err != nil {
		a.logger.WithError(err).Error("ingest failed")
		return exitFault
	}
	if total, err := a.db.CountRawJobs(ctx); err == nil {
		a.logger.WithFields(logging.Fields{
			"source":    rep.Source,
			"raw_total": total,
		}).Info("raw_jobs table updated")
	}

	if andRun {
		return a.runOnce(ctx, cfg)
	}
	return exitOK
}

// exportOnly re-projects the current tables into the export files without
// running the pipeline.
func (a *app) exportOnly(ctx context.Context, cfg config.Config) int {
	leads, err := a.db.ListLeadScores(ctx)
	if err != nil {
		a.logger.WithError(err).Error("load lead_scores")
		return exitFault
	}
	stats, err := a.db.ListCompanyStats(ctx)
	if err != nil {
		a.logger.WithError(err).Error("load company_stats")
		return exitFault
	}

	exp := export.Exporter{Dir: a.resolve(cfg).Exports.Dir}
	meta, err := exp.WriteAll(leads, stats)
	if err != nil {
		a.logger.WithError(err).Error("export failed")
		return exitFault
	}
	a.logger.WithFields(logging.Fields{
		"leads":  meta.LeadRows,
		"trends": meta.TrendRows,
		"dir":    exp.Dir,
	}).Info("export written")
	return exitOK
}
