// Package runlock keeps two replicas from reconciling the same station-day
// at once. Without Redis every acquire succeeds and the database unique
// constraints remain the only guard.
package runlock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/fuelrecon/internal/config"
	"github.com/smallbiznis/fuelrecon/pkg/bizdate"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const keyStationDay = "fuelrecon:reconcile:lock:%s:%s"

const defaultTTL = 10 * time.Minute

// ReleaseFunc gives the lock back. It is safe to call on a lock that expired.
type ReleaseFunc func(context.Context) error

type StationLock struct {
	locker *Locker
	ttl    time.Duration
	log    *zap.Logger
}

// NewClient returns nil when no Redis address is configured.
func NewClient(lc fx.Lifecycle, cfg config.Config) *redis.Client {
	if !cfg.RedisEnabled() {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     strings.TrimSpace(cfg.RedisAddr),
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client
}

func New(cfg config.Config, client *redis.Client, log *zap.Logger) *StationLock {
	lock := &StationLock{
		ttl: cfg.Scheduler.LockTTL,
		log: log.Named("runlock"),
	}
	if lock.ttl <= 0 {
		lock.ttl = defaultTTL
	}
	if client != nil {
		lock.locker = NewLocker(client)
	}
	return lock
}

func (l *StationLock) Enabled() bool {
	return l != nil && l.locker != nil
}

// StationDayKey is the redis key guarding one (station, business date).
func StationDayKey(stationID snowflake.ID, date time.Time) string {
	return fmt.Sprintf(keyStationDay, stationID.String(), bizdate.Format(date))
}

// Acquire reports false without error when another holder owns the lock.
func (l *StationLock) Acquire(ctx context.Context, stationID snowflake.ID, date time.Time) (ReleaseFunc, bool, error) {
	if !l.Enabled() {
		return func(context.Context) error { return nil }, true, nil
	}
	key := StationDayKey(stationID, date)
	token, ok, err := l.locker.TryLock(ctx, key, l.ttl)
	if err != nil {
		return nil, false, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	release := func(ctx context.Context) error {
		if err := l.locker.Release(ctx, key, token); err != nil {
			l.log.Warn("release run lock failed", zap.String("key", key), zap.Error(err))
			return err
		}
		return nil
	}
	return release, true, nil
}
