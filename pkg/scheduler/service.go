package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yachaerang/pricebatch/pkg/orchestrator"
	"github.com/yachaerang/pricebatch/pkg/period"
)

// Jobs is the slice of the orchestrator the scheduler drives.
type Jobs interface {
	RunSingleDay(ctx context.Context, date time.Time) (*orchestrator.JobResult, error)
	RunWeek(ctx context.Context, year, week int) (*orchestrator.JobResult, error)
	RunMonth(ctx context.Context, year, month int) (*orchestrator.JobResult, error)
	RunYear(ctx context.Context, year int) (*orchestrator.JobResult, error)
}

// Service defines the public interface for the scheduler
type Service interface {
	// Start initializes and starts the scheduler service
	Start(ctx context.Context) error

	// Stop gracefully shuts down the scheduler service
	Stop() error
}

type service struct {
	log  logrus.FieldLogger
	cfg  *Config
	jobs Jobs

	elector LeaderElector
	tracker runTracker
	cron    *cron.Cron

	now func() time.Time
}

// NewService creates a new scheduler service
func NewService(log logrus.FieldLogger, cfg *Config, jobs Jobs, redisClient *redis.Client) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &service{
		log:     log.WithField("service", "scheduler"),
		cfg:     cfg,
		jobs:    jobs,
		elector: NewLeaderElector(log, redisClient),
		tracker: newRunTracker(log, redisClient),
		cron:    cron.New(cron.WithLocation(time.UTC)),
		now:     time.Now,
	}, nil
}

// Start registers the cron entries and begins contesting leadership.
func (s *service) Start(ctx context.Context) error {
	if err := s.elector.Start(ctx); err != nil {
		return fmt.Errorf("failed to start leader election: %w", err)
	}

	entries := []struct {
		job  string
		expr string
		run  func(context.Context) error
	}{
		{job: "daily", expr: s.cfg.Daily, run: s.runDaily},
		{job: "weekly", expr: s.cfg.Weekly, run: s.runWeekly},
		{job: "monthly", expr: s.cfg.Monthly, run: s.runMonthly},
		{job: "yearly", expr: s.cfg.Yearly, run: s.runYearly},
	}

	for _, entry := range entries {
		if _, err := s.cron.AddFunc(entry.expr, func() {
			s.fire(entry.job, entry.run)
		}); err != nil {
			return fmt.Errorf("invalid %s schedule %q: %w", entry.job, entry.expr, err)
		}

		s.log.WithFields(logrus.Fields{
			"job":      entry.job,
			"schedule": entry.expr,
		}).Info("Registered schedule")
	}

	s.cron.Start()
	s.log.Info("Scheduler started")

	return nil
}

// Stop drains running cron jobs and releases leadership.
func (s *service) Stop() error {
	stopCtx := s.cron.Stop()

	select {
	case <-stopCtx.Done():
	case <-time.After(s.cfg.JobTimeout):
		s.log.Warn("Timed out waiting for running jobs to finish")
	}

	if err := s.elector.Stop(); err != nil {
		return err
	}

	s.log.Info("Scheduler stopped")

	return nil
}

// fire runs one scheduled job on the leader. A period already locked by
// a manual run is skipped quietly; the next schedule picks it up.
func (s *service) fire(job string, run func(context.Context) error) {
	if !s.elector.IsLeader() {
		s.log.WithField("job", job).Debug("Not the leader, skipping scheduled job")

		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JobTimeout)
	defer cancel()

	s.log.WithField("job", job).Info("Running scheduled job")

	if err := run(ctx); err != nil {
		if errors.Is(err, orchestrator.ErrPeriodLocked) {
			s.log.WithField("job", job).Info("Period already being processed, skipping")

			return
		}

		s.log.WithError(err).WithField("job", job).Error("Scheduled job failed")

		return
	}

	if err := s.tracker.SetLastRun(ctx, job, s.now().UTC()); err != nil {
		s.log.WithError(err).WithField("job", job).Warn("Failed to record job completion")
	}
}

func (s *service) runDaily(ctx context.Context) error {
	yesterday := period.Day(s.now().UTC()).AddDate(0, 0, -1)

	_, err := s.jobs.RunSingleDay(ctx, yesterday)

	return err
}

func (s *service) runWeekly(ctx context.Context) error {
	week := lastElapsedWeek(period.Day(s.now().UTC()))

	_, err := s.jobs.RunWeek(ctx, week.Year, week.Week)

	return err
}

func (s *service) runMonthly(ctx context.Context) error {
	now := s.now().UTC()
	// Anchor on the first of the month; AddDate on day 31 would
	// normalize into the wrong month.
	prev := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)

	_, err := s.jobs.RunMonth(ctx, prev.Year(), int(prev.Month()))

	return err
}

func (s *service) runYearly(ctx context.Context) error {
	_, err := s.jobs.RunYear(ctx, s.now().UTC().Year()-1)

	return err
}

// lastElapsedWeek returns the newest ISO week whose Sunday lies
// strictly before yesterday, stepping back a week at a time.
func lastElapsedWeek(today time.Time) period.Week {
	yesterday := today.AddDate(0, 0, -1)

	for candidate := today.AddDate(0, 0, -7); ; candidate = candidate.AddDate(0, 0, -7) {
		year, week := candidate.ISOWeek()

		window, err := period.WeekWindow(year, week)
		if err != nil {
			continue
		}

		if window.End.Before(yesterday) {
			return period.Week{Year: year, Week: week}
		}
	}
}
