package httpapi

import (
	"sync/atomic"

	"golang.org/x/time/rate"

	"hiring-signals/internal/config"
	"hiring-signals/internal/events"
	"hiring-signals/internal/logging"
	"hiring-signals/internal/metrics"
	"hiring-signals/internal/pipeline"
	"hiring-signals/internal/store"
)

type Deps struct {
	DB *store.DB

	Hub *events.Hub

	// Active config; holds config.Config.
	CfgVal *atomic.Value

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)

	// Pipeline trigger (inject for testability)
	Runner *pipeline.Runner

	// Throttles POST /pipeline/run. Nil means no throttle.
	RunLimiter *rate.Limiter

	Metrics *metrics.Collector
	Logger  logging.Logger
}
