package runlock

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/fuelrecon/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var day = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func TestStationDayKey(t *testing.T) {
	assert.Equal(t, "fuelrecon:reconcile:lock:42:2024-06-01", StationDayKey(snowflake.ID(42), day.Add(15*time.Hour)))
}

func TestAcquireWithoutRedis(t *testing.T) {
	lock := New(config.Config{}, nil, zap.NewNop())
	assert.False(t, lock.Enabled())
	assert.Equal(t, defaultTTL, lock.ttl)

	release, ok, err := lock.Acquire(context.Background(), snowflake.ID(42), day)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, release(context.Background()))
}

func TestLockerValidation(t *testing.T) {
	var nilLocker *Locker
	_, _, err := nilLocker.TryLock(context.Background(), "k", time.Second)
	assert.ErrorIs(t, err, ErrLockNotConfigured)
	assert.NoError(t, nilLocker.Release(context.Background(), "k", "t"))
	assert.Nil(t, NewLocker(nil))

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 50 * time.Millisecond})
	t.Cleanup(func() { _ = client.Close() })
	locker := NewLocker(client)

	_, _, err = locker.TryLock(context.Background(), "", time.Second)
	assert.ErrorIs(t, err, ErrEmptyKey)
	_, _, err = locker.TryLock(context.Background(), "k", 0)
	assert.ErrorIs(t, err, ErrInvalidTTL)
	assert.NoError(t, locker.Release(context.Background(), "k", ""))
}

func TestAcquireSurfacesRedisErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 50 * time.Millisecond})
	t.Cleanup(func() { _ = client.Close() })
	lock := New(config.Config{Scheduler: config.SchedulerConfig{LockTTL: time.Minute}}, client, zap.NewNop())
	require.True(t, lock.Enabled())

	release, ok, err := lock.Acquire(context.Background(), snowflake.ID(42), day)
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Nil(t, release)
}
