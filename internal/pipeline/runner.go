package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"hiring-signals/internal/config"
	"hiring-signals/internal/events"
	"hiring-signals/internal/logging"
	"hiring-signals/internal/metrics"
	"hiring-signals/internal/pipeline/detect"
	"hiring-signals/internal/pipeline/export"
	"hiring-signals/internal/pipeline/normalize"
	"hiring-signals/internal/pipeline/score"
	"hiring-signals/internal/quality"
	"hiring-signals/internal/store"
)

// Stage names, in execution order.
const (
	StageNormalize = "normalize"
	StageDetect    = "detect"
	StageScore     = "score"
	StageExport    = "export"
)

// ErrAlreadyRunning reports that a run was requested while another is in
// flight, in this process or in another one holding the run lock.
var ErrAlreadyRunning = errors.New("pipeline run already in progress")

// StageReport is one stage's slice of the run report.
type StageReport struct {
	Stage      string                `json:"stage"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt time.Time             `json:"finished_at"`
	DurationMS int64                 `json:"duration_ms"`
	Rows       int                   `json:"rows"`
	Metadata   any                   `json:"metadata,omitempty"`
	Checks     []quality.CheckResult `json:"checks,omitempty"`
}

// RunReport is the durable record of one pipeline run.
type RunReport struct {
	RunID      string        `json:"run_id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Stages     []StageReport `json:"stages"`
	Error      string        `json:"error,omitempty"`
}

// OK reports whether every stage committed.
func (r RunReport) OK() bool { return r.Error == "" }

// FailedChecks counts failed quality checks at the given severity across
// all stages.
func (r RunReport) FailedChecks(sev quality.Severity) int {
	n := 0
	for _, s := range r.Stages {
		n += len(quality.FailedAt(s.Checks, sev))
	}
	return n
}

// Status is the runner's externally visible snapshot. Times are RFC3339
// strings, empty until the first run.
type Status struct {
	Running    bool       `json:"running"`
	LastRunAt  string     `json:"last_run_at"`
	LastOkAt   string     `json:"last_ok_at"`
	LastError  string     `json:"last_error"`
	LastReport *RunReport `json:"last_report,omitempty"`
}

// Runner executes the batch pipeline: normalize raw jobs, detect and
// aggregate weekly stats, score leads, export files. Each stage writes its
// table in one transactional rebuild before the next stage reads it back,
// so a fault leaves every table at its previous generation.
//
// Runs are serialized two ways: an in-process flag and an advisory file
// lock (LockPath) shared with other processes. A rejected run returns
// ErrAlreadyRunning and touches nothing.
type Runner struct {
	Store    *store.DB
	Logger   logging.Logger
	Hub      *events.Hub        // optional; run lifecycle events
	Metrics  *metrics.Collector // optional
	Cfg      func() config.Config
	LockPath string
	Now      func() time.Time // test injection

	running atomic.Bool
	status  atomic.Value // Status
}

// Status returns the current snapshot.
func (r *Runner) Status() Status {
	if v := r.status.Load(); v != nil {
		return v.(Status)
	}
	return Status{}
}

// Run executes one full pipeline pass. The returned report is populated as
// far as the run got; err is non-nil on a stage fault or when another run
// holds the lock. Failed quality checks never fail the run; they ride in
// the report for the caller to judge.
func (r *Runner) Run(ctx context.Context) (RunReport, error) {
	if !r.running.CompareAndSwap(false, true) {
		return RunReport{}, ErrAlreadyRunning
	}
	defer r.running.Store(false)

	if r.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		r.Logger = l
	}

	if r.LockPath != "" {
		lock := flock.New(r.LockPath)
		locked, err := lock.TryLock()
		if err != nil {
			return RunReport{}, fmt.Errorf("acquire run lock: %w", err)
		}
		if !locked {
			return RunReport{}, ErrAlreadyRunning
		}
		defer lock.Unlock()
	}

	report := RunReport{RunID: uuid.NewString(), StartedAt: r.now()}

	prev := r.Status()
	r.status.Store(Status{
		Running:    true,
		LastRunAt:  report.StartedAt.Format(time.RFC3339),
		LastOkAt:   prev.LastOkAt,
		LastError:  prev.LastError,
		LastReport: prev.LastReport,
	})
	r.publish(report.RunID, events.TypeRunStarted, nil)
	r.Logger.WithField("run_id", report.RunID).Info("pipeline run started")

	err := r.runStages(ctx, &report)
	report.FinishedAt = r.now()

	st := Status{
		LastRunAt:  report.StartedAt.Format(time.RFC3339),
		LastReport: &report,
	}
	outcome := "succeeded"
	if err != nil {
		report.Error = err.Error()
		outcome = "failed"
		st.LastError = report.Error
		st.LastOkAt = prev.LastOkAt
	} else {
		st.LastOkAt = report.FinishedAt.Format(time.RFC3339)
	}
	r.status.Store(st)

	r.Metrics.RunCompleted(outcome)
	r.publish(report.RunID, events.TypeRunCompleted, map[string]any{
		"status":        outcome,
		"duration_ms":   report.FinishedAt.Sub(report.StartedAt).Milliseconds(),
		"stages":        len(report.Stages),
		"failed_checks": report.FailedChecks(quality.SeverityError),
	})
	r.Logger.WithFields(logging.Fields{
		"run_id":      report.RunID,
		"status":      outcome,
		"duration_ms": report.FinishedAt.Sub(report.StartedAt).Milliseconds(),
	}).Info("pipeline run finished")

	return report, err
}

func (r *Runner) runStages(ctx context.Context, report *RunReport) error {
	cfg := r.cfg()

	// taxonomy snapshot for the whole run: detection and scoring must see
	// the same generation even if an operator edits tech_config mid-run
	techs, err := r.Store.ListTechConfigs(ctx)
	if err != nil {
		return fmt.Errorf("load tech_config: %w", err)
	}

	// normalize
	started := r.now()
	raw, err := r.Store.ListRawJobs(ctx)
	if err != nil {
		return fmt.Errorf("load raw_jobs: %w", err)
	}
	norm := normalize.Dedupe(raw)
	if err := r.Store.ReplaceCleanedJobs(ctx, norm.Jobs); err != nil {
		return fmt.Errorf("replace cleaned_jobs: %w", err)
	}
	r.completeStage(report, StageNormalize, started, len(norm.Jobs), norm.Meta,
		quality.CheckCleanedJobs(norm.Jobs))
	r.diagnose(report.RunID, StageNormalize, norm.Meta.Diagnostic)

	// detect
	started = r.now()
	cleaned, err := r.Store.ListCleanedJobs(ctx)
	if err != nil {
		return fmt.Errorf("load cleaned_jobs: %w", err)
	}
	det, err := detect.Aggregate(ctx, cleaned, techs, cfg.Pipeline.DetectWorkers)
	if err != nil {
		return fmt.Errorf("aggregate company stats: %w", err)
	}
	if err := r.Store.ReplaceCompanyStats(ctx, det.Stats); err != nil {
		return fmt.Errorf("replace company_stats: %w", err)
	}
	r.completeStage(report, StageDetect, started, len(det.Stats), det.Meta, nil)
	r.diagnose(report.RunID, StageDetect, det.Meta.Diagnostic)

	// score
	started = r.now()
	stats, err := r.Store.ListCompanyStats(ctx)
	if err != nil {
		return fmt.Errorf("load company_stats: %w", err)
	}
	sc := score.Rank(stats, techs)
	if err := r.Store.ReplaceLeadScores(ctx, sc.Scores); err != nil {
		return fmt.Errorf("replace lead_scores: %w", err)
	}
	r.completeStage(report, StageScore, started, len(sc.Scores), sc.Meta,
		quality.CheckLeadScores(sc.Scores, techs))
	r.diagnose(report.RunID, StageScore, sc.Meta.Diagnostic)

	// export
	started = r.now()
	leads, err := r.Store.ListLeadScores(ctx)
	if err != nil {
		return fmt.Errorf("load lead_scores: %w", err)
	}
	exp := export.Exporter{Dir: cfg.Exports.Dir, Now: r.Now}
	expMeta, err := exp.WriteAll(leads, stats)
	if err != nil {
		return fmt.Errorf("export files: %w", err)
	}
	r.completeStage(report, StageExport, started, expMeta.LeadRows+expMeta.TrendRows, expMeta, nil)

	return nil
}

func (r *Runner) completeStage(report *RunReport, stage string, started time.Time, rows int, meta any, checks []quality.CheckResult) {
	finished := r.now()
	sr := StageReport{
		Stage:      stage,
		StartedAt:  started,
		FinishedAt: finished,
		DurationMS: finished.Sub(started).Milliseconds(),
		Rows:       rows,
		Metadata:   meta,
		Checks:     checks,
	}
	report.Stages = append(report.Stages, sr)

	r.Metrics.StageCompleted(stage, finished.Sub(started), rows)
	r.publish(report.RunID, events.TypeStageCompleted, map[string]any{
		"stage":       stage,
		"rows":        rows,
		"duration_ms": sr.DurationMS,
	})
	r.Logger.WithFields(logging.Fields{
		"run_id":      report.RunID,
		"stage":       stage,
		"rows":        rows,
		"duration_ms": sr.DurationMS,
	}).Info("stage completed")

	for _, c := range checks {
		if c.Passed {
			continue
		}
		r.Metrics.CheckFailed(c.Name, string(c.Severity))
		r.publish(report.RunID, events.TypeCheckFailed, c)
		r.Logger.WithFields(logging.Fields{
			"run_id":   report.RunID,
			"stage":    stage,
			"check":    c.Name,
			"severity": c.Severity,
			"evidence": c.Evidence,
		}).Warn("quality check failed")
	}
}

func (r *Runner) diagnose(runID, stage, diagnostic string) {
	if diagnostic == "" {
		return
	}
	r.Logger.WithFields(logging.Fields{
		"run_id": runID,
		"stage":  stage,
	}).Warn(diagnostic)
}

func (r *Runner) publish(runID, typ string, data any) {
	if r.Hub == nil {
		return
	}
	r.Hub.Publish(events.MakeEvent(runID, typ, 1, data))
}

func (r *Runner) cfg() config.Config {
	if r.Cfg != nil {
		return r.Cfg()
	}
	return config.Default()
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}
