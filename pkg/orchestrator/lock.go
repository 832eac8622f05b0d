package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var (
	// ErrPeriodLocked is returned when another run already holds the
	// lock for the requested period
	ErrPeriodLocked = errors.New("another run is already processing this period")
)

// Locker serializes job runs per period key.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) error
	Release(ctx context.Context, key string)
}

// redisLocker implements Locker with a Redis SetNX lease, the same
// mechanism the scheduler uses for leader election. The lease TTL
// bounds how long a crashed run can block its period.
type redisLocker struct {
	log    logrus.FieldLogger
	client *redis.Client
	owner  string
}

// NewRedisLocker creates a Redis-backed period locker.
func NewRedisLocker(log logrus.FieldLogger, client *redis.Client) Locker {
	return &redisLocker{
		log:    log.WithField("component", "lock"),
		client: client,
		owner:  uuid.New().String(),
	}
}

func (l *redisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) error {
	acquired, err := l.client.SetNX(ctx, key, l.owner, ttl).Result()
	if err != nil {
		return err
	}

	if !acquired {
		return ErrPeriodLocked
	}

	l.log.WithFields(logrus.Fields{"key": key, "ttl": ttl}).Debug("Acquired period lock")

	return nil
}

func (l *redisLocker) Release(ctx context.Context, key string) {
	// Only the owner may delete the lease; a lock that expired and was
	// re-acquired by another run must stay theirs.
	owner, err := l.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			l.log.WithError(err).WithField("key", key).Warn("Failed to check period lock owner")
		}

		return
	}

	if owner != l.owner {
		return
	}

	if err := l.client.Del(ctx, key).Err(); err != nil {
		l.log.WithError(err).WithField("key", key).Warn("Failed to release period lock")
	}
}
