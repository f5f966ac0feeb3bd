package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/fuelrecon/internal/clock"
	pumpdomain "github.com/smallbiznis/fuelrecon/internal/pump/domain"
	"github.com/smallbiznis/fuelrecon/internal/pump/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:pump_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&pumpdomain.Pump{}))
	return db
}

func newTestService(t *testing.T) pumpdomain.Service {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return New(Params{
		DB:    setupTestDB(t),
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
}

func TestCreatePump(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	station := snowflake.ID(7)

	pump, err := svc.Create(ctx, pumpdomain.CreateRequest{StationID: station, Number: " P-01 ", MeterCapacity: "999999.9999"})
	require.NoError(t, err)
	assert.Equal(t, "P-01", pump.Number)
	assert.Equal(t, pumpdomain.StatusActive, pump.Status)
	assert.True(t, pump.IsActive)
	assert.Equal(t, "1000000", pump.MeterCapacity.String())

	got, err := svc.Get(ctx, pump.ID)
	require.NoError(t, err)
	assert.Equal(t, pump.Number, got.Number)

	cases := []struct {
		name string
		req  pumpdomain.CreateRequest
		want error
	}{
		{"missing station", pumpdomain.CreateRequest{Number: "P-02", MeterCapacity: "100"}, pumpdomain.ErrInvalidStation},
		{"blank number", pumpdomain.CreateRequest{StationID: station, Number: " ", MeterCapacity: "100"}, pumpdomain.ErrInvalidNumber},
		{"zero capacity", pumpdomain.CreateRequest{StationID: station, Number: "P-02", MeterCapacity: "0"}, pumpdomain.ErrInvalidCapacity},
		{"bad capacity", pumpdomain.CreateRequest{StationID: station, Number: "P-02", MeterCapacity: "big"}, pumpdomain.ErrInvalidCapacity},
		{"bad status", pumpdomain.CreateRequest{StationID: station, Number: "P-02", MeterCapacity: "100", Status: "broken"}, pumpdomain.ErrInvalidStatus},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err = svc.Get(ctx, snowflake.ID(99))
	assert.ErrorIs(t, err, pumpdomain.ErrNotFound)
}

func TestPumpLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	station := snowflake.ID(7)

	a, err := svc.Create(ctx, pumpdomain.CreateRequest{StationID: station, Number: "P-01", MeterCapacity: "1000"})
	require.NoError(t, err)
	b, err := svc.Create(ctx, pumpdomain.CreateRequest{StationID: station, Number: "P-02", MeterCapacity: "1000"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, pumpdomain.CreateRequest{StationID: snowflake.ID(8), Number: "P-01", MeterCapacity: "1000", Status: pumpdomain.StatusCalibration})
	require.NoError(t, err)

	active, err := svc.ListActive(ctx, station)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	updated, err := svc.ChangeStatus(ctx, a.ID, pumpdomain.StatusMaintenance)
	require.NoError(t, err)
	assert.Equal(t, pumpdomain.StatusMaintenance, updated.Status)

	active, err = svc.ListActive(ctx, station)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, b.ID, active[0].ID)

	all, err := svc.List(ctx, station)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	stations, err := svc.ListStationsWithActivePumps(ctx)
	require.NoError(t, err)
	assert.Equal(t, []snowflake.ID{station}, stations)

	_, err = svc.Deactivate(ctx, b.ID)
	require.NoError(t, err)
	_, err = svc.ChangeStatus(ctx, b.ID, pumpdomain.StatusActive)
	assert.ErrorIs(t, err, pumpdomain.ErrInactive)

	stations, err = svc.ListStationsWithActivePumps(ctx)
	require.NoError(t, err)
	assert.Empty(t, stations)
}
