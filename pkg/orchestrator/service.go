package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yachaerang/pricebatch/pkg/ingest"
	"github.com/yachaerang/pricebatch/pkg/observability"
	"github.com/yachaerang/pricebatch/pkg/period"
	"github.com/yachaerang/pricebatch/pkg/rollup"
)

var (
	// ErrValidation is returned when a job request names a period that
	// cannot be processed
	ErrValidation = errors.New("invalid job request")
)

// Ingester runs daily ingestion. Satisfied by ingest.Service.
type Ingester interface {
	IngestDay(ctx context.Context, date time.Time) (ingest.DayResult, error)
	IngestDayInRange(ctx context.Context, date time.Time) (ingest.DayResult, error)
}

// Rolluper computes period aggregates. Satisfied by rollup.Service.
type Rolluper interface {
	RollupWeek(ctx context.Context, year, week int) (rollup.Result, error)
	RollupMonth(ctx context.Context, year, month int) (rollup.Result, error)
	RollupYear(ctx context.Context, year int) (rollup.Result, error)
}

// JobResult reports one orchestrated run.
type JobResult struct {
	ID        string             `json:"id"`
	Job       string             `json:"job"`
	StartedAt time.Time          `json:"started_at"`
	Duration  time.Duration      `json:"duration"`
	Days      []ingest.DayResult `json:"days,omitempty"`
	Periods   []rollup.Result    `json:"periods,omitempty"`
	Failures  []string           `json:"failures,omitempty"`
}

// Service validates and runs jobs, one period lock at a time.
type Service struct {
	log       logrus.FieldLogger
	cfg       *Config
	ingester  Ingester
	rollups   Rolluper
	locker    Locker
	keyPrefix string
	now       func() time.Time
}

// NewService creates the orchestrator.
func NewService(log logrus.FieldLogger, cfg *Config, ingester Ingester, rollups Rolluper, locker Locker, keyPrefix string) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid orchestrator configuration: %w", err)
	}

	return &Service{
		log:       log.WithField("service", "orchestrator"),
		cfg:       cfg,
		ingester:  ingester,
		rollups:   rollups,
		locker:    locker,
		keyPrefix: keyPrefix,
		now:       time.Now,
	}, nil
}

// RunSingleDay ingests one day of prices.
func (s *Service) RunSingleDay(ctx context.Context, date time.Time) (*JobResult, error) {
	job, date := "daily", period.Day(date)

	if date.After(s.today()) {
		return nil, s.invalid(job, fmt.Errorf("%w: date %s is in the future", ErrValidation, date.Format(time.DateOnly)))
	}

	result := s.begin(job)

	err := s.withLock(ctx, job, date.Format(time.DateOnly), func(ctx context.Context) error {
		day, err := s.ingester.IngestDay(ctx, date)
		if err != nil {
			return err
		}

		result.Days = append(result.Days, day)

		return nil
	})

	return s.finish(result, err)
}

// RunDateRange ingests every day of the inclusive [start, end] range,
// one partition per day, over the bounded worker pool. Failed days do
// not stop the remaining ones unless configured to abort.
func (s *Service) RunDateRange(ctx context.Context, start, end time.Time) (*JobResult, error) {
	job := "daily-range"

	partitions, err := ingest.PartitionRange(start, end)
	if err != nil {
		return nil, s.invalid(job, fmt.Errorf("%w: %s", ErrValidation, err.Error()))
	}

	if period.Day(end).After(s.today()) {
		return nil, s.invalid(job, fmt.Errorf("%w: end date %s is in the future", ErrValidation, period.Day(end).Format(time.DateOnly)))
	}

	result := s.begin(job)
	rangeKey := fmt.Sprintf("%s:%s", period.Day(start).Format(time.DateOnly), period.Day(end).Format(time.DateOnly))

	err = s.withLock(ctx, job, rangeKey, func(ctx context.Context) error {
		return s.runPartitions(ctx, result, partitions)
	})

	return s.finish(result, err)
}

func (s *Service) runPartitions(ctx context.Context, result *JobResult, partitions []ingest.Partition) error {
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)

	for _, p := range partitions {
		g.Go(func() error {
			day, err := s.ingester.IngestDayInRange(gctx, p.Date)
			if err != nil {
				observability.PartitionsTotal.WithLabelValues("failed").Inc()
				s.log.WithError(err).WithField("date", p.Date.Format(time.DateOnly)).Error("Partition failed")

				if s.cfg.AbortRangeOnError {
					return err
				}

				mu.Lock()
				result.Failures = append(result.Failures, fmt.Sprintf("%s: %s", p.Date.Format(time.DateOnly), err.Error()))
				mu.Unlock()

				return nil
			}

			observability.PartitionsTotal.WithLabelValues("success").Inc()

			mu.Lock()
			result.Days = append(result.Days, day)
			mu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	sort.Slice(result.Days, func(i, j int) bool {
		return result.Days[i].Date.Before(result.Days[j].Date)
	})
	sort.Strings(result.Failures)

	return nil
}

// RunWeek computes the weekly rollup for one fully elapsed ISO week.
func (s *Service) RunWeek(ctx context.Context, year, week int) (*JobResult, error) {
	job := "weekly"

	if err := s.validateWeek(year, week); err != nil {
		return nil, s.invalid(job, err)
	}

	result := s.begin(job)

	err := s.withLock(ctx, job, period.Week{Year: year, Week: week}.Key(), func(ctx context.Context) error {
		res, err := s.rollups.RollupWeek(ctx, year, week)
		if err != nil {
			return err
		}

		result.Periods = append(result.Periods, res)

		return nil
	})

	return s.finish(result, err)
}

// RunWeekRange computes weekly rollups for every week of the inclusive
// range, continuing past failed weeks unless configured to abort.
func (s *Service) RunWeekRange(ctx context.Context, from, to period.Week) (*JobResult, error) {
	job := "weekly-range"

	if from.Year > to.Year || (from.Year == to.Year && from.Week > to.Week) {
		return nil, s.invalid(job, fmt.Errorf("%w: range start %s is after end %s", ErrValidation, from.Key(), to.Key()))
	}

	if err := s.validateWeek(from.Year, from.Week); err != nil {
		return nil, s.invalid(job, err)
	}

	if err := s.validateWeek(to.Year, to.Week); err != nil {
		return nil, s.invalid(job, err)
	}

	result := s.begin(job)

	for w := from; ; w = period.NextWeek(w) {
		err := s.withLock(ctx, "weekly", w.Key(), func(ctx context.Context) error {
			res, err := s.rollups.RollupWeek(ctx, w.Year, w.Week)
			if err != nil {
				return err
			}

			result.Periods = append(result.Periods, res)

			return nil
		})
		if err != nil {
			if s.cfg.AbortRangeOnError || errors.Is(err, context.Canceled) {
				return s.finish(result, err)
			}

			s.log.WithError(err).WithField("week", w.Key()).Error("Weekly rollup failed, continuing range")
			result.Failures = append(result.Failures, fmt.Sprintf("%s: %s", w.Key(), err.Error()))
		}

		if w == to {
			break
		}
	}

	return s.finish(result, nil)
}

// RunMonth computes the monthly rollup for one past calendar month.
func (s *Service) RunMonth(ctx context.Context, year, month int) (*JobResult, error) {
	job := "monthly"

	if err := s.validateMonth(year, month); err != nil {
		return nil, s.invalid(job, err)
	}

	result := s.begin(job)

	err := s.withLock(ctx, job, period.Month{Year: year, Month: month}.Key(), func(ctx context.Context) error {
		res, err := s.rollups.RollupMonth(ctx, year, month)
		if err != nil {
			return err
		}

		result.Periods = append(result.Periods, res)

		return nil
	})

	return s.finish(result, err)
}

// RunYear computes the yearly rollup for one past calendar year.
func (s *Service) RunYear(ctx context.Context, year int) (*JobResult, error) {
	job := "yearly"

	if err := s.validateYear(year); err != nil {
		return nil, s.invalid(job, err)
	}

	result := s.begin(job)

	err := s.withLock(ctx, job, fmt.Sprintf("%d", year), func(ctx context.Context) error {
		res, err := s.rollups.RollupYear(ctx, year)
		if err != nil {
			return err
		}

		result.Periods = append(result.Periods, res)

		return nil
	})

	return s.finish(result, err)
}

// validateWeek rejects week numbers the year does not have and weeks
// that have not fully elapsed yet. A week is processable once its
// Sunday lies strictly before yesterday, so every daily ingestion for
// it has had a chance to run.
func (s *Service) validateWeek(year, week int) error {
	last := period.LastWeek(year)
	if week < 1 || week > last {
		return fmt.Errorf("%w: year %d has weeks 1-%d, got %d", ErrValidation, year, last, week)
	}

	window, err := period.WeekWindow(year, week)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}

	yesterday := s.today().AddDate(0, 0, -1)
	if !window.End.Before(yesterday) {
		return fmt.Errorf("%w: week %s has not fully elapsed", ErrValidation, period.Week{Year: year, Week: week}.Key())
	}

	return nil
}

func (s *Service) validateMonth(year, month int) error {
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: month must be 1-12, got %d", ErrValidation, month)
	}

	now := s.now().UTC()
	if year > now.Year() || (year == now.Year() && month >= int(now.Month())) {
		return fmt.Errorf("%w: month %s has not ended yet", ErrValidation, period.Month{Year: year, Month: month}.Key())
	}

	return nil
}

func (s *Service) validateYear(year int) error {
	if year >= s.now().UTC().Year() {
		return fmt.Errorf("%w: year %d has not ended yet", ErrValidation, year)
	}

	return nil
}

func (s *Service) withLock(ctx context.Context, job, periodKey string, fn func(context.Context) error) error {
	key := fmt.Sprintf("%s:%s:%s", s.keyPrefix, job, periodKey)

	if err := s.locker.Acquire(ctx, key, s.cfg.LockTTL); err != nil {
		if errors.Is(err, ErrPeriodLocked) {
			observability.JobsTotal.WithLabelValues(job, "locked").Inc()

			return fmt.Errorf("%w: %s %s", ErrPeriodLocked, job, periodKey)
		}

		return err
	}
	defer s.locker.Release(ctx, key)

	return fn(ctx)
}

func (s *Service) begin(job string) *JobResult {
	return &JobResult{
		ID:        uuid.New().String(),
		Job:       job,
		StartedAt: s.now().UTC(),
	}
}

func (s *Service) finish(result *JobResult, err error) (*JobResult, error) {
	result.Duration = s.now().UTC().Sub(result.StartedAt)
	observability.JobDuration.WithLabelValues(result.Job).Observe(result.Duration.Seconds())

	if err != nil {
		if !errors.Is(err, ErrPeriodLocked) {
			observability.JobsTotal.WithLabelValues(result.Job, "failed").Inc()
		}

		return result, err
	}

	observability.JobsTotal.WithLabelValues(result.Job, "success").Inc()
	s.log.WithFields(logrus.Fields{
		"job":      result.Job,
		"id":       result.ID,
		"duration": result.Duration,
		"failures": len(result.Failures),
	}).Info("Job finished")

	return result, nil
}

func (s *Service) invalid(job string, err error) error {
	observability.JobsTotal.WithLabelValues(job, "invalid").Inc()

	return err
}

func (s *Service) today() time.Time {
	return period.Day(s.now().UTC())
}
