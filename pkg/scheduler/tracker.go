package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Full key pattern: pricebatch:scheduler:lastrun:{job}
// Example: pricebatch:scheduler:lastrun:daily
const lastRunKeyPrefix = "pricebatch:scheduler:lastrun:"

// runTracker records when each scheduled job last completed, so a
// restarted instance can tell whether a schedule was missed.
type runTracker interface {
	// GetLastRun retrieves the last completion timestamp for a job.
	// Returns zero time if the job has never run.
	GetLastRun(ctx context.Context, job string) (time.Time, error)

	// SetLastRun updates the last completion timestamp for a job.
	SetLastRun(ctx context.Context, job string, timestamp time.Time) error
}

type redisRunTracker struct {
	log   logrus.FieldLogger
	redis *redis.Client
}

func newRunTracker(log logrus.FieldLogger, redisClient *redis.Client) runTracker {
	return &redisRunTracker{
		log:   log.WithField("component", "run_tracker"),
		redis: redisClient,
	}
}

func (r *redisRunTracker) GetLastRun(ctx context.Context, job string) (time.Time, error) {
	val, err := r.redis.Get(ctx, lastRunKeyPrefix+job).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, nil
		}

		return time.Time{}, fmt.Errorf("failed to get last run for job %s: %w", job, err)
	}

	timestamp, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse last run for job %s: %w", job, err)
	}

	return timestamp, nil
}

func (r *redisRunTracker) SetLastRun(ctx context.Context, job string, timestamp time.Time) error {
	err := r.redis.Set(ctx, lastRunKeyPrefix+job, timestamp.Format(time.RFC3339), 0).Err()
	if err != nil {
		return fmt.Errorf("failed to set last run for job %s: %w", job, err)
	}

	r.log.WithFields(logrus.Fields{
		"job":       job,
		"timestamp": timestamp,
	}).Debug("Updated last run for job")

	return nil
}

var _ runTracker = (*redisRunTracker)(nil)
