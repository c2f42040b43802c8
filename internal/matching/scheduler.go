package matching

import (
	"context"
	"time"

	"github.com/imadgeboyega/kiekky-matching/internal/logging"
)

type Scheduler struct {
	tasks []scheduledTask
}

type scheduledTask struct {
	name     string
	interval time.Duration
	run      func(context.Context) error
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Every registers a task run at a fixed interval once Start is called.
func (s *Scheduler) Every(name string, interval time.Duration, task func(context.Context) error) {
	s.tasks = append(s.tasks, scheduledTask{name: name, interval: interval, run: task})
}

// Start launches every task; they stop when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	for _, t := range s.tasks {
		go s.runPeriodic(ctx, t)
	}
}

func (s *Scheduler) runPeriodic(ctx context.Context, t scheduledTask) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := t.run(ctx); err != nil {
				logging.Warn().Err(err).Str("task", t.name).Msg("scheduled task failed")
			}
		case <-ctx.Done():
			return
		}
	}
}

// SweepTask adapts MemoryCache.Sweep to the scheduler.
func SweepTask(c *MemoryCache) func(context.Context) error {
	return func(context.Context) error {
		if n := c.Sweep(); n > 0 {
			logging.Debug().Int("removed", n).Msg("swept expired compatibility results")
		}
		return nil
	}
}
