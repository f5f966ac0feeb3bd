package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	recondomain "github.com/smallbiznis/fuelrecon/internal/reconciliation/domain"
	"github.com/smallbiznis/fuelrecon/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var day = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:recon_repo_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&recondomain.DailyCalculation{},
		&recondomain.StationDailySummary{},
		&recondomain.ReconciliationRun{},
	))
	return conn
}

func newCalculation(node *snowflake.Node, station, pump snowflake.ID, date time.Time, volume string, estimated bool) *recondomain.DailyCalculation {
	v := decimal.RequireFromString(volume)
	method := recondomain.MethodMeterReadings
	approval := recondomain.ApprovalNotRequired
	if estimated {
		method = recondomain.MethodEstimated
		approval = recondomain.ApprovalPending
	}
	return &recondomain.DailyCalculation{
		ID:               node.Generate(),
		StationID:        station,
		PumpID:           pump,
		BusinessDate:     date,
		OpeningReading:   decimal.Zero,
		ClosingReading:   v,
		VolumeDispensed:  v,
		UnitPrice:        decimal.NewFromInt(10),
		TotalRevenue:     v.Mul(decimal.NewFromInt(10)),
		DeviationPercent: decimal.Zero,
		IsEstimated:      estimated,
		Method:           method,
		CalculatedBy:     "system",
		ApprovalStatus:   approval,
		CreatedAt:        day,
		UpdatedAt:        day,
	}
}

func TestCalculationRepository(t *testing.T) {
	conn := setupTestDB(t)
	repo := Provide()
	node, _ := snowflake.NewNode(1)
	ctx := context.Background()
	station := node.Generate()
	pump := node.Generate()
	other := node.Generate()

	for i := 1; i <= 5; i++ {
		require.NoError(t, repo.InsertCalculation(ctx, conn, newCalculation(node, station, pump, day.AddDate(0, 0, -i), fmt.Sprintf("%d", 100*i), i == 3)))
	}
	today := newCalculation(node, station, pump, day, "42.5", false)
	require.NoError(t, repo.InsertCalculation(ctx, conn, today))
	require.NoError(t, repo.InsertCalculation(ctx, conn, newCalculation(node, station, other, day, "7", true)))

	t.Run("DuplicatePumpDate", func(t *testing.T) {
		err := repo.InsertCalculation(ctx, conn, newCalculation(node, station, pump, day, "1", false))
		require.Error(t, err)
		assert.True(t, db.IsDuplicateKeyErr(err))
	})

	t.Run("Find", func(t *testing.T) {
		got, err := repo.FindCalculation(ctx, conn, pump, day)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, today.ID, got.ID)
		assert.True(t, got.VolumeDispensed.Equal(decimal.RequireFromString("42.5")))

		byID, err := repo.FindCalculationByID(ctx, conn, today.ID)
		require.NoError(t, err)
		require.NotNil(t, byID)
		assert.Equal(t, pump, byID.PumpID)

		missing, err := repo.FindCalculation(ctx, conn, pump, day.AddDate(0, 0, 1))
		assert.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("ListCalculations", func(t *testing.T) {
		calcs, err := repo.ListCalculations(ctx, conn, station, day)
		require.NoError(t, err)
		assert.Len(t, calcs, 2)

		ranged, err := repo.ListCalculationsInRange(ctx, conn, station, day.AddDate(0, 0, -2), day)
		require.NoError(t, err)
		assert.Len(t, ranged, 4)
	})

	t.Run("ListRecentActual", func(t *testing.T) {
		recent, err := repo.ListRecentActual(ctx, conn, pump, day, 3)
		require.NoError(t, err)
		require.Len(t, recent, 3)
		assert.True(t, recent[0].VolumeDispensed.Equal(decimal.NewFromInt(100)))
		assert.True(t, recent[1].VolumeDispensed.Equal(decimal.NewFromInt(200)))
		assert.True(t, recent[2].VolumeDispensed.Equal(decimal.NewFromInt(400)))
	})

	t.Run("ListActualHistory", func(t *testing.T) {
		history, err := repo.ListActualHistory(ctx, conn, pump, day.AddDate(0, 0, -4), day.AddDate(0, 0, -1))
		require.NoError(t, err)
		assert.Len(t, history, 3)
		for _, h := range history {
			assert.False(t, h.IsEstimated)
		}
	})

	t.Run("ListPendingApprovals", func(t *testing.T) {
		pending, err := repo.ListPendingApprovals(ctx, conn, station, nil, nil)
		require.NoError(t, err)
		assert.Len(t, pending, 2)

		from, to := day, day
		pending, err = repo.ListPendingApprovals(ctx, conn, station, &from, &to)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, other, pending[0].PumpID)
	})

	t.Run("Update", func(t *testing.T) {
		actor := "manager"
		today.ApprovedBy = &actor
		today.VolumeDispensed = decimal.NewFromInt(50)
		require.NoError(t, repo.UpdateCalculation(ctx, conn, today))

		got, err := repo.FindCalculationByID(ctx, conn, today.ID)
		require.NoError(t, err)
		assert.True(t, got.VolumeDispensed.Equal(decimal.NewFromInt(50)))
		require.NotNil(t, got.ApprovedBy)
		assert.Equal(t, actor, *got.ApprovedBy)
	})

	t.Run("Delete", func(t *testing.T) {
		n, err := repo.DeleteCalculations(ctx, conn, station, day)
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)

		calcs, err := repo.ListCalculations(ctx, conn, station, day)
		require.NoError(t, err)
		assert.Empty(t, calcs)
	})
}

func TestUpsertSummary(t *testing.T) {
	conn := setupTestDB(t)
	repo := Provide()
	node, _ := snowflake.NewNode(1)
	ctx := context.Background()
	station := node.Generate()

	first := &recondomain.StationDailySummary{
		ID:               node.Generate(),
		StationID:        station,
		BusinessDate:     day,
		TotalVolume:      decimal.NewFromInt(100),
		TotalRevenue:     decimal.NewFromInt(1000),
		AverageUnitPrice: decimal.NewFromInt(10),
		PumpCount:        1,
		EstimatedVolume:  decimal.Zero,
		Breakdown:        []byte(`[]`),
		CreatedAt:        day,
		UpdatedAt:        day,
	}
	require.NoError(t, repo.UpsertSummary(ctx, conn, first))

	second := *first
	second.ID = node.Generate()
	second.TotalVolume = decimal.NewFromInt(250)
	second.PumpCount = 2
	second.UpdatedAt = day.Add(time.Hour)
	require.NoError(t, repo.UpsertSummary(ctx, conn, &second))

	got, err := repo.FindSummary(ctx, conn, station, day)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, 2, got.PumpCount)
	assert.True(t, got.TotalVolume.Equal(decimal.NewFromInt(250)))

	var rows int64
	require.NoError(t, conn.Model(&recondomain.StationDailySummary{}).Count(&rows).Error)
	assert.EqualValues(t, 1, rows)

	missing, err := repo.FindSummary(ctx, conn, station, day.AddDate(0, 0, 1))
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUpsertRun(t *testing.T) {
	conn := setupTestDB(t)
	repo := Provide()
	node, _ := snowflake.NewNode(1)
	ctx := context.Background()
	station := node.Generate()

	started := day.Add(6 * time.Hour)
	run := &recondomain.ReconciliationRun{
		ID:           node.Generate(),
		StationID:    station,
		BusinessDate: day,
		RunKey:       "01J000000000000000000000AA",
		State:        recondomain.RunComputing,
		StartedAt:    &started,
		CreatedAt:    started,
		UpdatedAt:    started,
	}
	require.NoError(t, repo.UpsertRun(ctx, conn, run))

	completed := started.Add(time.Minute)
	run.State = recondomain.RunCompleted
	run.CompletedAt = &completed
	run.SucceededCount = 3
	run.UpdatedAt = completed
	require.NoError(t, repo.UpsertRun(ctx, conn, run))

	got, err := repo.FindRun(ctx, conn, station, day)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, recondomain.RunCompleted, got.State)
	assert.Equal(t, 3, got.SucceededCount)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, got.CompletedAt.Equal(completed))

	missing, err := repo.FindRun(ctx, conn, node.Generate(), day)
	assert.NoError(t, err)
	assert.Nil(t, missing)
}
