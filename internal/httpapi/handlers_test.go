package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"hiring-signals/internal/config"
	"hiring-signals/internal/domain"
	"hiring-signals/internal/events"
	"hiring-signals/internal/logging"
	"hiring-signals/internal/metrics"
	"hiring-signals/internal/pipeline"
	"hiring-signals/internal/pipeline/export"
	"hiring-signals/internal/store"
)

func discardLogger() logging.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type testAPI struct {
	db      *store.DB
	hub     *events.Hub
	runner  *pipeline.Runner
	cfgVal  *atomic.Value
	cfgPath string
	deps    Deps
	mux     *http.ServeMux
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "signals.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(db.Pool))

	cfg := config.Default()
	cfg.Exports.Dir = filepath.Join(t.TempDir(), "exports")

	a := &testAPI{
		db:      db,
		hub:     events.NewHub(),
		cfgVal:  &atomic.Value{},
		cfgPath: filepath.Join(t.TempDir(), "config.yaml"),
	}
	a.cfgVal.Store(cfg)
	a.runner = &pipeline.Runner{
		Store:  db,
		Logger: discardLogger(),
		Hub:    a.hub,
		Cfg:    func() config.Config { return a.cfgVal.Load().(config.Config) },
	}
	a.deps = Deps{
		DB:          db,
		Hub:         a.hub,
		CfgVal:      a.cfgVal,
		UserCfgPath: a.cfgPath,
		LoadCfg: func() (config.Config, error) {
			loaded, err := config.Load(a.cfgPath)
			if err != nil {
				return config.Config{}, err
			}
			out, _ := config.NormalizeAndValidate(loaded)
			return out, nil
		},
		Runner:  a.runner,
		Metrics: metrics.NewCollector(),
		Logger:  discardLogger(),
	}
	a.mux = NewMux(a.deps)
	return a
}

func (a *testAPI) do(t *testing.T, method, target string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	rec := httptest.NewRecorder()
	a.mux.ServeHTTP(rec, req)
	return rec
}

// waitIdle blocks until the runner has started and finished at least one run.
func waitIdle(t *testing.T, r *pipeline.Runner) pipeline.Status {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		st := r.Status()
		if !st.Running && st.LastRunAt != "" {
			return st
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("pipeline run never finished")
	return pipeline.Status{}
}

func seedScoredTables(t *testing.T, db *store.DB) {
	t.Helper()
	ctx := context.Background()

	week1 := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	week2 := time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)
	stats := []domain.CompanyWeekStat{
		{CompanyNormalized: "acme corp", Company: "Acme Corp", WeekStart: week1, JobsPosted: 2, TechStack: []string{"Go", "Python"}, MidCount: 2},
		{CompanyNormalized: "acme corp", Company: "Acme Corp", WeekStart: week2, JobsPosted: 5, TechStack: []string{"Go"}, SeniorCount: 3, MidCount: 2},
		{CompanyNormalized: "globex", Company: "Globex", WeekStart: week2, JobsPosted: 3, TechStack: []string{"Python"}, MidCount: 3},
	}
	require.NoError(t, db.ReplaceCompanyStats(ctx, stats))

	scores := []domain.LeadScore{
		{CompanyNormalized: "acme corp", Company: "Acme Corp", WeekStart: week2, JobsThisWeek: 5, JobsLastWeek: 2, VelocityScore: 100, TechMatchScore: 80, VolumeScore: 100, CompositeScore: 93, TechStack: "Go"},
		{CompanyNormalized: "globex", Company: "Globex", WeekStart: week2, JobsThisWeek: 3, VelocityScore: 100, TechMatchScore: 0, VolumeScore: 60, CompositeScore: 55, TechStack: "Python"},
	}
	require.NoError(t, db.ReplaceLeadScores(ctx, scores))
}

func seedRawPipeline(t *testing.T, db *store.DB) {
	t.Helper()
	ctx := context.Background()

	scraped := time.Date(2026, 1, 8, 6, 0, 0, 0, time.UTC)
	raw := []domain.RawJob{
		{
			JobID: "board:1", Company: "Acme Corp", Title: "Senior Go Engineer",
			Description: "Go services on kubernetes", Location: "Austin, TX",
			PostingDate:    time.Date(2026, 1, 7, 0, 0, 0, 0, time.UTC),
			Source:         "board",
			FirstScrapedAt: scraped, LastScrapedAt: scraped,
		},
		{
			JobID: "board:2", Company: "Acme Corp", Title: "Python Developer",
			Description: "etl pipelines in python", Location: "Remote",
			PostingDate:    time.Date(2026, 1, 9, 0, 0, 0, 0, time.UTC),
			Source:         "board",
			FirstScrapedAt: scraped, LastScrapedAt: scraped,
		},
	}
	_, _, err := db.UpsertRawJobs(ctx, raw)
	require.NoError(t, err)

	techs := []domain.TechConfig{
		{Name: "Go", Keywords: []string{"golang", "go"}, Category: "language", IsTarget: true, ScoreWeight: 1.0},
		{Name: "Python", Keywords: []string{"python"}, Category: "language", IsTarget: true, ScoreWeight: 1.0},
	}
	require.NoError(t, db.ReplaceTechConfigs(ctx, techs))
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestMethodNotAllowed(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodDelete, "/leads", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "GET", rec.Header().Get("Allow"))

	var er APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &er))
	assert.Equal(t, "method_not_allowed", er.Error.Code)
}

func TestLeadsListBestFirst(t *testing.T) {
	a := newTestAPI(t)
	seedScoredTables(t, a.db)

	rec := a.do(t, http.MethodGet, "/leads", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Leads []LeadView `json:"leads"`
		Count int        `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 2, body.Count)
	assert.Equal(t, "Acme Corp", body.Leads[0].Company)
	assert.Equal(t, 93.0, body.Leads[0].CompositeScore)
	assert.Equal(t, "2026-01-12", body.Leads[0].WeekStart)
	assert.Equal(t, "Globex", body.Leads[1].Company)
}

func TestLeadsListEmpty(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodGet, "/leads", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"leads":[],"count":0}`, rec.Body.String())
}

func TestTrendsCompanyFilter(t *testing.T) {
	a := newTestAPI(t)
	seedScoredTables(t, a.db)

	rec := a.do(t, http.MethodGet, "/trends", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var all struct {
		Trends []TrendView `json:"trends"`
		Count  int         `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Equal(t, 3, all.Count)

	// the filter normalizes like ingest does, so case and padding don't matter
	rec = a.do(t, http.MethodGet, "/trends?company=+ACME+Corp+", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var filtered struct {
		Trends []TrendView `json:"trends"`
		Count  int         `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &filtered))
	require.Equal(t, 2, filtered.Count)
	for _, tr := range filtered.Trends {
		assert.Equal(t, "acme corp", tr.CompanyNormalized)
	}
	// newest week first
	assert.Equal(t, "2026-01-12", filtered.Trends[0].WeekStart)
	assert.Equal(t, []string{"Go"}, filtered.Trends[0].TechStack)
	assert.Equal(t, []string{"Go", "Python"}, filtered.Trends[1].TechStack)
}

func TestSummary(t *testing.T) {
	a := newTestAPI(t)
	seedScoredTables(t, a.db)

	rec := a.do(t, http.MethodGet, "/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var s export.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	assert.Equal(t, "2026-01-12", s.LatestWeek)
	assert.Equal(t, 2, s.TotalCompanies)
	assert.Equal(t, 1, s.HotLeads)
	assert.Equal(t, 1, s.WarmLeads)
	assert.Equal(t, 0, s.ColdLeads)
	assert.Equal(t, 74.0, s.AvgCompositeScore)
	assert.Equal(t, map[string]int{"Go": 2, "Python": 2}, s.TechDistribution)
}

func TestSummaryEmpty(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodGet, "/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var s export.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	assert.Equal(t, "N/A", s.LatestWeek)
	assert.Equal(t, 0, s.TotalCompanies)
}

func TestPipelineStatusBeforeFirstRun(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodGet, "/pipeline/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var st pipeline.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.False(t, st.Running)
	assert.Empty(t, st.LastRunAt)
	assert.Nil(t, st.LastReport)
}

func TestPipelineRunTriggersFullRun(t *testing.T) {
	a := newTestAPI(t)
	seedRawPipeline(t, a.db)

	rec := a.do(t, http.MethodPost, "/pipeline/run", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var body struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.OK)

	st := waitIdle(t, a.runner)
	assert.Empty(t, st.LastError)
	assert.NotEmpty(t, st.LastOkAt)
	require.NotNil(t, st.LastReport)
	assert.Len(t, st.LastReport.Stages, 4)

	scores, err := a.db.ListLeadScores(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, scores)

	rec = a.do(t, http.MethodGet, "/pipeline/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var after pipeline.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &after))
	assert.False(t, after.Running)
	require.NotNil(t, after.LastReport)
	assert.True(t, after.LastReport.OK())
}

func TestPipelineRunConflictsWhileRunning(t *testing.T) {
	a := newTestAPI(t)

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	cfg := a.cfgVal.Load().(config.Config)
	a.runner.Cfg = func() config.Config {
		once.Do(func() { close(started) })
		<-release
		return cfg
	}

	rec := a.do(t, http.MethodPost, "/pipeline/run", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	<-started

	rec = a.do(t, http.MethodPost, "/pipeline/run", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	var e APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	assert.Equal(t, "already_running", e.Error.Code)

	close(release)
	waitIdle(t, a.runner)
}

func TestPipelineRunRateLimited(t *testing.T) {
	a := newTestAPI(t)
	a.deps.RunLimiter = rate.NewLimiter(rate.Every(time.Hour), 1)
	require.True(t, a.deps.RunLimiter.Allow()) // drain the only token
	a.mux = NewMux(a.deps)

	rec := a.do(t, http.MethodPost, "/pipeline/run", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	var e APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	assert.Equal(t, "rate_limited", e.Error.Code)

	// throttled triggers never reach the runner
	assert.Empty(t, a.runner.Status().LastRunAt)
}

func TestConfigGet(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodGet, "/config", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var cfg config.Config
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cfg))
	assert.Equal(t, config.Default().App.Port, cfg.App.Port)
}

func TestConfigPutPersistsAndHotSwaps(t *testing.T) {
	a := newTestAPI(t)
	sub := a.hub.Subscribe()
	defer a.hub.Unsubscribe(sub)

	next := config.Default()
	next.App.Port = 9000
	body, err := json.Marshal(next)
	require.NoError(t, err)

	rec := a.do(t, http.MethodPut, "/config", bytes.NewReader(body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var saved config.Config
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))
	assert.Equal(t, 9000, saved.App.Port)

	// active config swapped
	assert.Equal(t, 9000, a.cfgVal.Load().(config.Config).App.Port)

	// persisted to disk
	onDisk, err := config.Load(a.cfgPath)
	require.NoError(t, err)
	assert.Equal(t, 9000, onDisk.App.Port)

	// accepted updates are announced
	select {
	case evt := <-sub:
		assert.Contains(t, evt, events.TypeConfigUpdated)
	default:
		t.Fatal("no config_updated event published")
	}
}

func TestConfigPutRejectsInvalid(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPut, "/config", bytes.NewBufferString(`{"App":{"Port":-1}}`))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var vr config.Validation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &vr))
	assert.Contains(t, vr.Errors, "app.port must be 1..65535")

	// rejected configs change nothing: active stays, nothing lands on disk
	assert.Equal(t, config.Default().App.Port, a.cfgVal.Load().(config.Config).App.Port)
	_, err := os.Stat(a.cfgPath)
	assert.True(t, os.IsNotExist(err))
}

func TestConfigPutRejectsUnknownFields(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPut, "/config", bytes.NewBufferString(`{"bogus":1}`))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var e APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	assert.Equal(t, "invalid_json", e.Error.Code)
}

func TestConfigPath(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodGet, "/config/path", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	abs, _ := filepath.Abs(a.cfgPath)
	assert.Equal(t, abs, body["path"])
}

func TestMiddlewareRequestIDAndRecover(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	})
	h := Chain(mux, RequestID, AccessLog(discardLogger(), nil), Recover(discardLogger()))

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))

	var e APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	assert.Equal(t, "internal_error", e.Error.Code)
	assert.Equal(t, "req-123", e.Error.RequestID)
}

func TestMiddlewareGeneratesRequestID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"id": RequestIDFrom(r.Context())})
	})
	h := Chain(mux, RequestID)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))

	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, rec.Header().Get("X-Request-ID"), body["id"])
}

func TestCorsPreflight(t *testing.T) {
	h := Chain(http.NewServeMux(), Cors)

	req := httptest.NewRequest(http.MethodOptions, "/leads", nil)
	req.Header.Set("Origin", "http://dashboard.local")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://dashboard.local", rec.Header().Get("Access-Control-Allow-Origin"))
}

type sseRecorder struct {
	*httptest.ResponseRecorder
	flushed chan struct{}
}

func (s *sseRecorder) Flush() {
	select {
	case s.flushed <- struct{}{}:
	default:
	}
}

func waitFlush(t *testing.T, rec *sseRecorder) {
	t.Helper()
	select {
	case <-rec.flushed:
	case <-time.After(2 * time.Second):
		t.Fatal("no flush before deadline")
	}
}

func TestEventsStreamDeliversPublished(t *testing.T) {
	hub := events.NewHub()
	h := EventsHandler{Hub: hub}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	rec := &sseRecorder{ResponseRecorder: httptest.NewRecorder(), flushed: make(chan struct{}, 8)}

	done := make(chan struct{})
	go func() {
		h.ServeSSE(rec, req)
		close(done)
	}()

	// first flush means the ping went out, so the subscription is live
	waitFlush(t, rec)
	hub.Publish(events.MakeEvent("r1", events.TypeRunStarted, 1, nil))
	waitFlush(t, rec)

	cancel()
	<-done

	body := rec.Body.String()
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, body, `"type":"ping"`)
	assert.Contains(t, body, `"type":"run_started"`)
	assert.Contains(t, body, "event: message")
}
