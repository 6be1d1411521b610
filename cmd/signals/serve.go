package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"hiring-signals/internal/config"
	"hiring-signals/internal/events"
	"hiring-signals/internal/httpapi"
	"hiring-signals/internal/metrics"
	"hiring-signals/internal/pipeline"
	"hiring-signals/internal/scheduler"
)

// How often POST /pipeline/run may fire. Full rebuilds are cheap but not
// free; bursts beyond this answer 429.
const runTriggerInterval = 5 * time.Second

// serve runs the HTTP API, the config file watch and, when configured, the
// interval pipeline schedule, until ctx is cancelled.
func (a *app) serve(ctx context.Context, cfg config.Config) int {
	var cfgVal atomic.Value
	cfgVal.Store(cfg)
	currentCfg := func() config.Config { return a.resolve(cfgVal.Load().(config.Config)) }

	hub := events.NewHub()
	collector := metrics.NewCollector()
	runner := a.newRunner(currentCfg, hub, collector)

	mux := httpapi.NewMux(httpapi.Deps{
		DB:          a.db,
		Hub:         hub,
		CfgVal:      &cfgVal,
		UserCfgPath: a.cfgPath,
		LoadCfg:     func() (config.Config, error) { return loadConfig(a.logger, a.cfgPath) },
		Runner:      runner,
		RunLimiter:  rate.NewLimiter(rate.Every(runTriggerInterval), 1),
		Metrics:     collector,
		Logger:      a.logger,
	})
	handler := httpapi.Chain(mux,
		httpapi.RequestID,
		httpapi.AccessLog(a.logger, collector),
		httpapi.Recover(a.logger),
		httpapi.Cors,
	)

	// Hot-reload config edits; interval changes still need a restart.
	go func() {
		err := config.Watch(ctx, a.cfgPath, a.logger, func(next config.Config) {
			prev := cfgVal.Load().(config.Config)
			cfgVal.Store(next)
			if next.Pipeline.IntervalSeconds != prev.Pipeline.IntervalSeconds {
				a.logger.Warn("pipeline.interval_seconds changed; restart serve mode to apply")
			}
		})
		if err != nil && ctx.Err() == nil {
			a.logger.WithError(err).Error("config watch stopped")
		}
	}()

	if secs := cfg.Pipeline.IntervalSeconds; secs > 0 {
		interval := time.Duration(secs) * time.Second
		a.logger.WithField("interval", interval.String()).Info("interval pipeline runs enabled")
		go scheduler.Every(ctx, a.logger, interval, "pipeline", func(ctx context.Context) error {
			_, err := runner.Run(ctx)
			if errors.Is(err, pipeline.ErrAlreadyRunning) {
				return nil // an HTTP trigger got there first
			}
			return err
		})
	}

	port := config.GetEnvInt("SIGNALS_PORT", cfg.App.Port)
	addr := config.GetEnv("SIGNALS_ADDR", fmt.Sprintf("127.0.0.1:%d", port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	a.logger.WithField("addr", addr).Info("signals api listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.logger.WithError(err).Error("http server failed")
		return exitFault
	}
	a.logger.Info("shut down cleanly")
	return exitOK
}
