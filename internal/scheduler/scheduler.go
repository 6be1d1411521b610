package scheduler

import (
	"context"
	"time"

	"hiring-signals/internal/logging"
)

type Task func(ctx context.Context) error

// Every runs task once immediately and then on every interval tick until
// ctx is cancelled. A failing task is logged and the schedule keeps going;
// serialization against other run paths is the task's own concern.
func Every(ctx context.Context, logger logging.Logger, interval time.Duration, name string, task Task) {
	run := func() {
		if err := task(ctx); err != nil {
			logger.WithField("task", name).WithError(err).Error("scheduled task failed")
		}
	}

	t := time.NewTicker(interval)
	defer t.Stop()

	go run()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			run()
		}
	}
}
