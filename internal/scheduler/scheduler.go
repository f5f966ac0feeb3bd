package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fuelrecon/internal/clock"
	obsmetrics "github.com/smallbiznis/fuelrecon/internal/observability/metrics"
	pumpdomain "github.com/smallbiznis/fuelrecon/internal/pump/domain"
	recondomain "github.com/smallbiznis/fuelrecon/internal/reconciliation/domain"
	"github.com/smallbiznis/fuelrecon/internal/runlock"
	"github.com/smallbiznis/fuelrecon/pkg/bizdate"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const jobReconcileStations = "reconcile_stations"

const actorScheduler = "scheduler"

var ErrInvalidConfig = errors.New("invalid scheduler config")

// RunLocker serializes reconciliation of one station-day across replicas.
type RunLocker interface {
	Acquire(ctx context.Context, stationID snowflake.ID, date time.Time) (runlock.ReleaseFunc, bool, error)
}

type Params struct {
	fx.In

	Log               *zap.Logger
	ReconciliationSvc recondomain.Service
	PumpSvc           pumpdomain.Service
	Locker            RunLocker `optional:"true"`
	GenID             *snowflake.Node
	Clock             clock.Clock
	Config            Config `optional:"true"`
}

type Scheduler struct {
	log               *zap.Logger
	cfg               Config
	genID             *snowflake.Node
	clock             clock.Clock
	reconciliationSvc recondomain.Service
	pumpSvc           pumpdomain.Service
	locker            RunLocker
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.ReconciliationSvc == nil || p.PumpSvc == nil || p.GenID == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:               p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:               p.Config.withDefaults(),
		genID:             p.GenID,
		clock:             p.Clock,
		reconciliationSvc: p.ReconciliationSvc,
		pumpSvc:           p.PumpSvc,
		locker:            p.Locker,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	batchSize int,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run, owner := s.ensureJobRun(ctx, name, batchSize)
	if owner {
		s.logJobStart(ctx, run)
	}
	log := s.logger(ctx).With(
		zap.String("job", name),
		zap.String("run_id", run.runID),
	)
	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	err := fn(ctx)
	schedMetrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	if owner {
		if err != nil && run.errorCount == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		return nil
	}

	// Deadlines are soft: stations not reached are picked up by the next tick.
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		schedMetrics.IncJobTimeout(name)
	}
	schedMetrics.IncJobError(name, err)
	if isTimeout {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	return s.runJob(parent, jobReconcileStations, len(s.cfg.StationIDs), s.cfg.JobTimeout, s.ReconcileStationsJob)
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.RunInterval)
	schedMetrics := obsmetrics.Scheduler()

	for {
		runLag := s.clock.Now().Sub(nextRun)
		if runLag > 0 {
			schedMetrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// TargetDate is the business date a run started now reconciles.
func (s *Scheduler) TargetDate() time.Time {
	return bizdate.AddDays(bizdate.Normalize(s.clock.Now()), -s.cfg.LookbackDays)
}

// ReconcileStationsJob reconciles the target date for every station. One
// station failing does not stop the others; their errors are joined.
func (s *Scheduler) ReconcileStationsJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)
	date := s.TargetDate()

	stations, err := s.stations(ctx, run)
	if err != nil {
		return err
	}

	var errs error
	for _, stationID := range stations {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Join(errs, ctxErr)
		}
		errs = errors.Join(errs, s.reconcileStation(ctx, run, stationID, date))
	}
	return errs
}

func (s *Scheduler) stations(ctx context.Context, run *jobRun) ([]snowflake.ID, error) {
	if len(s.cfg.StationIDs) == 0 {
		return s.pumpSvc.ListStationsWithActivePumps(ctx)
	}
	ids := make([]snowflake.ID, 0, len(s.cfg.StationIDs))
	for _, raw := range s.cfg.StationIDs {
		id, err := snowflake.ParseString(strings.TrimSpace(raw))
		if err != nil || id == 0 {
			s.logSchedulerError(ctx, run, "scheduler.station.invalid_id", jobReconcileStations, 0,
				recondomain.ErrInvalidStation, zap.String("raw_station_id", raw))
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Scheduler) reconcileStation(ctx context.Context, run *jobRun, stationID snowflake.ID, date time.Time) error {
	ctx = s.withLogContext(ctx, stationID)
	schedMetrics := obsmetrics.Scheduler()

	if s.locker != nil {
		release, ok, err := s.locker.Acquire(ctx, stationID, date)
		if err != nil {
			s.logSchedulerError(ctx, run, "scheduler.station.lock_failed", jobReconcileStations, stationID, err)
			return err
		}
		if !ok {
			schedMetrics.IncJobSkipped(jobReconcileStations, obsmetrics.SchedulerSkipReasonLockHeld)
			s.logger(ctx).Info("scheduler.station.skipped",
				zap.String("station_id", stationID.String()),
				zap.String("reason", obsmetrics.SchedulerSkipReasonLockHeld),
			)
			return nil
		}
		defer func() { _ = release(context.WithoutCancel(ctx)) }()
	}

	res, err := s.reconciliationSvc.CalculateForDate(ctx, recondomain.CalculateRequest{
		StationID: stationID,
		Date:      date,
		Actor:     actorScheduler,
	})
	if res != nil {
		run.AddProcessed(res.NewlyCalculated)
		schedMetrics.AddBatchProcessed(jobReconcileStations, "pump_calculation", res.NewlyCalculated)
	}
	switch {
	case errors.Is(err, recondomain.ErrNoActivePumps):
		schedMetrics.IncJobSkipped(jobReconcileStations, obsmetrics.SchedulerJobReasonNoActivePumps)
		return nil
	case err != nil:
		s.logSchedulerError(ctx, run, "scheduler.station.failed", jobReconcileStations, stationID, err)
		return fmt.Errorf("station %s: %w", stationID, err)
	}

	if batchErr := res.Err(); batchErr != nil {
		s.logSchedulerError(ctx, run, "scheduler.station.partial", jobReconcileStations, stationID, batchErr,
			zap.Int("failed_pumps", len(res.Failed)),
			zap.Int("calculated_count", res.CalculatedCount),
		)
		return fmt.Errorf("station %s: %w", stationID, batchErr)
	}

	s.logger(ctx).Info("scheduler.station.reconciled",
		zap.String("station_id", stationID.String()),
		zap.String("business_date", bizdate.Format(date)),
		zap.String("run_key", res.RunKey),
		zap.Int("newly_calculated", res.NewlyCalculated),
		zap.Int("skipped", len(res.Skipped)),
	)
	return nil
}
