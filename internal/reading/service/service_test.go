package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/fuelrecon/internal/clock"
	pumpdomain "github.com/smallbiznis/fuelrecon/internal/pump/domain"
	pumprepository "github.com/smallbiznis/fuelrecon/internal/pump/repository"
	readingdomain "github.com/smallbiznis/fuelrecon/internal/reading/domain"
	"github.com/smallbiznis/fuelrecon/internal/reading/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var day = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:reading_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&pumpdomain.Pump{}, &readingdomain.MeterReading{}))
	return db
}

func setup(t *testing.T) (readingdomain.Service, *clock.FakeClock, pumpdomain.Pump) {
	t.Helper()
	db := setupTestDB(t)
	node, _ := snowflake.NewNode(1)
	fake := clock.NewFakeClock(time.Date(2024, 6, 1, 22, 0, 0, 0, time.UTC))
	pumps := pumprepository.Provide()

	pump := pumpdomain.Pump{
		ID:            node.Generate(),
		StationID:     snowflake.ID(7),
		Number:        "P-01",
		MeterCapacity: decimal.NewFromInt(1000),
		Status:        pumpdomain.StatusActive,
		IsActive:      true,
		CreatedAt:     fake.Now(),
		UpdatedAt:     fake.Now(),
	}
	require.NoError(t, pumps.Insert(context.Background(), db, &pump))

	svc := New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    fake,
		Repo:     repository.Provide(),
		PumpRepo: pumps,
	})
	return svc, fake, pump
}

func TestRecordReading(t *testing.T) {
	svc, _, pump := setup(t)
	ctx := context.Background()

	reading, err := svc.Record(ctx, readingdomain.RecordRequest{
		PumpID:     pump.ID,
		Date:       day.Add(18 * time.Hour),
		Type:       readingdomain.TypeOpening,
		Value:      "950.1234",
		RecordedBy: "attendant",
	})
	require.NoError(t, err)
	assert.Equal(t, day, reading.BusinessDate)
	assert.Equal(t, "950.123", reading.Value.String())
	assert.Equal(t, pump.StationID, reading.StationID)
	assert.False(t, reading.IsEstimated)

	_, err = svc.Record(ctx, readingdomain.RecordRequest{PumpID: pump.ID, Date: day, Type: readingdomain.TypeOpening, Value: "960"})
	assert.ErrorIs(t, err, readingdomain.ErrConflict)

	estimate, err := svc.Record(ctx, readingdomain.RecordRequest{
		PumpID:           pump.ID,
		Date:             day,
		Type:             readingdomain.TypeClosing,
		Value:            "990",
		EstimationMethod: readingdomain.EstimationTransactionBased,
	})
	require.NoError(t, err)
	assert.True(t, estimate.IsEstimated)
	assert.Equal(t, "system", estimate.RecordedBy)

	readings, err := svc.List(ctx, pump.ID, day)
	require.NoError(t, err)
	assert.Len(t, readings, 2)

	cases := []struct {
		name string
		req  readingdomain.RecordRequest
		want error
	}{
		{"missing pump", readingdomain.RecordRequest{Date: day, Type: readingdomain.TypeOpening, Value: "1"}, readingdomain.ErrInvalidPump},
		{"missing date", readingdomain.RecordRequest{PumpID: pump.ID, Type: readingdomain.TypeOpening, Value: "1"}, readingdomain.ErrInvalidDate},
		{"bad type", readingdomain.RecordRequest{PumpID: pump.ID, Date: day, Type: "midday", Value: "1"}, readingdomain.ErrInvalidType},
		{"negative value", readingdomain.RecordRequest{PumpID: pump.ID, Date: day, Type: readingdomain.TypeOpening, Value: "-1"}, readingdomain.ErrInvalidValue},
		{"above capacity", readingdomain.RecordRequest{PumpID: pump.ID, Date: day.AddDate(0, 0, 1), Type: readingdomain.TypeOpening, Value: "1000.5"}, readingdomain.ErrValueExceedsCapacity},
		{"bad estimation method", readingdomain.RecordRequest{PumpID: pump.ID, Date: day, Type: readingdomain.TypeOpening, Value: "1", EstimationMethod: "guess"}, readingdomain.ErrInvalidEstimationMethod},
		{"unknown pump", readingdomain.RecordRequest{PumpID: snowflake.ID(1), Date: day, Type: readingdomain.TypeOpening, Value: "1"}, pumpdomain.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Record(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCorrectReading(t *testing.T) {
	svc, fake, pump := setup(t)
	ctx := context.Background()

	reading, err := svc.Record(ctx, readingdomain.RecordRequest{
		PumpID:           pump.ID,
		Date:             day,
		Type:             readingdomain.TypeClosing,
		Value:            "500",
		EstimationMethod: readingdomain.EstimationManual,
	})
	require.NoError(t, err)

	fake.Advance(time.Hour)
	corrected, err := svc.Correct(ctx, readingdomain.CorrectRequest{ReadingID: reading.ID, Value: "510", ModifiedBy: "supervisor"})
	require.NoError(t, err)
	assert.Equal(t, "510", corrected.Value.String())
	assert.False(t, corrected.IsEstimated)
	assert.Nil(t, corrected.EstimationMethod)
	require.True(t, corrected.OriginalValue.Valid)
	assert.Equal(t, "500", corrected.OriginalValue.Decimal.String())
	require.NotNil(t, corrected.ModifiedAt)
	assert.True(t, corrected.ModifiedAt.Equal(fake.Now()))

	again, err := svc.Correct(ctx, readingdomain.CorrectRequest{ReadingID: reading.ID, Value: "520"})
	require.NoError(t, err)
	assert.Equal(t, "500", again.OriginalValue.Decimal.String())
	assert.Equal(t, "system", *again.ModifiedBy)

	stored, err := svc.List(ctx, pump.ID, day)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "520", stored[0].Value.String())
	assert.Equal(t, "500", stored[0].OriginalValue.Decimal.String())

	_, err = svc.Correct(ctx, readingdomain.CorrectRequest{ReadingID: reading.ID, Value: "2000"})
	assert.ErrorIs(t, err, readingdomain.ErrValueExceedsCapacity)
	_, err = svc.Correct(ctx, readingdomain.CorrectRequest{ReadingID: snowflake.ID(3), Value: "1"})
	assert.ErrorIs(t, err, readingdomain.ErrNotFound)
	_, err = svc.Correct(ctx, readingdomain.CorrectRequest{Value: "1"})
	assert.ErrorIs(t, err, readingdomain.ErrInvalidID)
}
