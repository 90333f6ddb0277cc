// Package jobs runs the background jobs of the API.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/campusdesk/core"
)

const sweepTimeout = 2 * time.Minute

// Purger removes expired records and returns how many were removed.
type Purger interface {
	PurgeExpired(ctx context.Context) (int, error)
}

type Scheduler struct {
	cron   *cron.Cron
	logger core.Logger
}

func NewScheduler(logger core.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger))),
		logger: logger,
	}
}

// AddSweep schedules purger on spec (a cron expression or @every descriptor).
// An empty spec disables the job.
func (s *Scheduler) AddSweep(name, spec string, purger Purger) error {
	if spec == "" {
		return nil
	}
	_, err := s.cron.AddFunc(spec, func() { s.sweep(name, purger) })
	return errors.Wrapf(err, "scheduling %s", name)
}

func (s *Scheduler) sweep(name string, purger Purger) {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	n, err := purger.PurgeExpired(ctx)
	if err != nil {
		s.logger.Error(name+" failed", err)
		return
	}
	if n > 0 {
		s.logger.Info(fmt.Sprintf("%s: %d removed", name, n))
	}
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop waits for running jobs to complete, or ctx to be done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}
