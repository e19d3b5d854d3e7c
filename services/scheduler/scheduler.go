// Package schedsvc runs the periodic maintenance jobs.
package schedsvc

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/edutrack/core"
	"github.com/trezcool/edutrack/core/school"
)

const sweepTimeout = time.Minute

type Scheduler struct {
	cron    *cron.Cron
	schools school.Service
	logger  core.Logger
	nowFunc func() time.Time
}

func NewScheduler(schools school.Service, logger core.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		schools: schools,
		logger:  logger,
		nowFunc: time.Now,
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start(conf *core.Config) error {
	if _, err := s.cron.AddFunc(conf.Scheduler.SubscriptionSweep, s.sweepJob); err != nil {
		return errors.Wrapf(err, "scheduling subscription sweep %q", conf.Scheduler.SubscriptionSweep)
	}
	s.cron.Start()
	s.logger.Info("scheduler started")
	return nil
}

// Stop waits for the running jobs to complete.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) sweepJob() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()
	if _, err := s.SweepSubscriptions(ctx); err != nil {
		s.logger.Error("subscription sweep", err)
	}
}

// SweepSubscriptions expires the schools whose subscription has lapsed.
func (s *Scheduler) SweepSubscriptions(ctx context.Context) (int, error) {
	n, err := s.schools.ExpireSubscriptions(ctx, s.nowFunc())
	if err != nil {
		return n, errors.Wrap(err, "expiring subscriptions")
	}
	if n > 0 {
		s.logger.Info(fmt.Sprintf("expired %d school subscription(s)", n))
	}
	return n, nil
}
