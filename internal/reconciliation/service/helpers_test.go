package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/fuelrecon/internal/clock"
	productdomain "github.com/smallbiznis/fuelrecon/internal/product/domain"
	productrepository "github.com/smallbiznis/fuelrecon/internal/product/repository"
	productservice "github.com/smallbiznis/fuelrecon/internal/product/service"
	pumpdomain "github.com/smallbiznis/fuelrecon/internal/pump/domain"
	pumprepository "github.com/smallbiznis/fuelrecon/internal/pump/repository"
	readingdomain "github.com/smallbiznis/fuelrecon/internal/reading/domain"
	readingrepository "github.com/smallbiznis/fuelrecon/internal/reading/repository"
	recondomain "github.com/smallbiznis/fuelrecon/internal/reconciliation/domain"
	reconrepository "github.com/smallbiznis/fuelrecon/internal/reconciliation/repository"
	"github.com/smallbiznis/fuelrecon/pkg/bizdate"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	businessDay = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	stationID   = snowflake.ID(42)
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:recon_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&pumpdomain.Pump{},
		&productdomain.FuelProduct{},
		&readingdomain.MeterReading{},
		&recondomain.DailyCalculation{},
		&recondomain.StationDailySummary{},
		&recondomain.ReconciliationRun{},
	))
	return db
}

type fixture struct {
	t        *testing.T
	db       *gorm.DB
	node     *snowflake.Node
	clock    *clock.FakeClock
	repo     recondomain.Repository
	readings readingdomain.Repository
	pumps    pumpdomain.Repository
	products productdomain.Repository
	prices   productdomain.PriceLookup
	settings recondomain.Settings
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	products := productrepository.Provide()
	return &fixture{
		t:        t,
		db:       setupTestDB(t),
		node:     node,
		clock:    clock.NewFakeClock(time.Date(2024, 6, 2, 6, 0, 0, 0, time.UTC)),
		repo:     reconrepository.Provide(),
		readings: readingrepository.Provide(),
		pumps:    pumprepository.Provide(),
		products: products,
		prices:   productservice.NewPriceLookup(products),
		settings: recondomain.DefaultSettings(),
	}
}

func (f *fixture) service() *Service {
	return f.serviceWith(f.repo, f.prices)
}

func (f *fixture) serviceWith(repo recondomain.Repository, prices productdomain.PriceLookup) *Service {
	return New(Params{
		DB:          f.db,
		Log:         zap.NewNop(),
		GenID:       f.node,
		Clock:       f.clock,
		Repo:        repo,
		PumpRepo:    f.pumps,
		ReadingRepo: f.readings,
		Prices:      prices,
		Settings:    recondomain.StaticSettings(f.settings),
	}).(*Service)
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func (f *fixture) addProduct(price string) snowflake.ID {
	f.t.Helper()
	now := f.clock.Now()
	product := &productdomain.FuelProduct{
		ID:        f.node.Generate(),
		StationID: stationID,
		Code:      fmt.Sprintf("fuel-%d", f.node.Generate()),
		Name:      "Pertalite",
		UnitPrice: dec(price),
		Currency:  "IDR",
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(f.t, f.products.Insert(context.Background(), f.db, product))
	return product.ID
}

func (f *fixture) addPump(productID *snowflake.ID, capacity string) pumpdomain.Pump {
	f.t.Helper()
	now := f.clock.Now()
	pump := pumpdomain.Pump{
		ID:            f.node.Generate(),
		StationID:     stationID,
		Number:        fmt.Sprintf("P-%d", f.node.Generate()%1000),
		ProductID:     productID,
		MeterCapacity: dec(capacity),
		Status:        pumpdomain.StatusActive,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(f.t, f.pumps.Insert(context.Background(), f.db, &pump))
	return pump
}

func (f *fixture) addReading(pump pumpdomain.Pump, date time.Time, typ readingdomain.Type, value string) *readingdomain.MeterReading {
	f.t.Helper()
	now := f.clock.Now()
	reading := &readingdomain.MeterReading{
		ID:           f.node.Generate(),
		StationID:    pump.StationID,
		PumpID:       pump.ID,
		BusinessDate: bizdate.Normalize(date),
		ReadingType:  typ,
		Value:        dec(value),
		RecordedBy:   "attendant",
		RecordedAt:   now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(f.t, f.readings.Insert(context.Background(), f.db, reading))
	return reading
}

// addHistory stores a past calculation of volume for pump on date.
func (f *fixture) addHistory(pump pumpdomain.Pump, date time.Time, volume string, estimated bool) {
	f.t.Helper()
	now := f.clock.Now()
	method := recondomain.MethodMeterReadings
	approval := recondomain.ApprovalNotRequired
	if estimated {
		method = recondomain.MethodEstimated
		approval = recondomain.ApprovalApproved
	}
	calc := &recondomain.DailyCalculation{
		ID:              f.node.Generate(),
		StationID:       pump.StationID,
		PumpID:          pump.ID,
		ProductID:       pump.ProductID,
		BusinessDate:    bizdate.Normalize(date),
		OpeningReading:  dec("0"),
		ClosingReading:  dec(volume),
		VolumeDispensed: dec(volume),
		UnitPrice:       dec("10"),
		TotalRevenue:    dec(volume).Mul(dec("10")),
		IsEstimated:     estimated,
		Method:          method,
		CalculatedBy:    "system",
		ApprovalStatus:  approval,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(f.t, f.repo.InsertCalculation(context.Background(), f.db, calc))
}

func (f *fixture) countCalculations() int64 {
	f.t.Helper()
	var n int64
	require.NoError(f.t, f.db.Model(&recondomain.DailyCalculation{}).Count(&n).Error)
	return n
}

// countWrites counts statements that can modify the database.
func countWrites(t *testing.T, db *gorm.DB) *int64 {
	t.Helper()
	var n int64
	inc := func(*gorm.DB) { atomic.AddInt64(&n, 1) }
	require.NoError(t, db.Callback().Raw().After("gorm:raw").Register("test:count_raw", inc))
	require.NoError(t, db.Callback().Create().After("gorm:create").Register("test:count_create", inc))
	require.NoError(t, db.Callback().Update().After("gorm:update").Register("test:count_update", inc))
	require.NoError(t, db.Callback().Delete().After("gorm:delete").Register("test:count_delete", inc))
	return &n
}

func calcFor(t *testing.T, res *recondomain.CalculateResult, pumpID snowflake.ID) recondomain.DailyCalculation {
	t.Helper()
	for _, c := range res.Calculations {
		if c.PumpID == pumpID {
			return c
		}
	}
	t.Fatalf("no calculation for pump %s", pumpID)
	return recondomain.DailyCalculation{}
}
