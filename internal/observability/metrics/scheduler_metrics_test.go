package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	recondomain "github.com/smallbiznis/fuelrecon/internal/reconciliation/domain"
	"gorm.io/gorm"
)

func TestClassifySchedulerJobReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "deadline",
			err:  context.DeadlineExceeded,
			want: SchedulerJobReasonDeadlineExceeded,
		},
		{
			name: "db_lock_timeout",
			err:  &pgconn.PgError{Code: "55P03"},
			want: SchedulerJobReasonDBLockTimeout,
		},
		{
			name: "serialization_failure",
			err:  &pgconn.PgError{Code: "40001"},
			want: SchedulerJobReasonSerializationFailure,
		},
		{
			name: "unique_violation",
			err:  gorm.ErrDuplicatedKey,
			want: SchedulerJobReasonUniqueViolation,
		},
		{
			name: "calculation_conflict",
			err:  fmt.Errorf("pump 1: %w", recondomain.ErrCalculationConflict),
			want: SchedulerJobReasonUniqueViolation,
		},
		{
			name: "no_active_pumps",
			err:  recondomain.ErrNoActivePumps,
			want: SchedulerJobReasonNoActivePumps,
		},
		{
			name: "partial_batch",
			err:  fmt.Errorf("station 7: %w", &recondomain.PartialBatchFailure{Failed: []recondomain.PumpFailure{{Reason: "boom"}}}),
			want: SchedulerJobReasonPartialBatch,
		},
		{
			name: "unknown",
			err:  errors.New("boom"),
			want: SchedulerJobReasonUnknown,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifySchedulerJobReason(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestIsSchedulerErrorRetryable(t *testing.T) {
	if !IsSchedulerErrorRetryable(context.DeadlineExceeded) {
		t.Fatalf("expected deadline to be retryable")
	}
	if IsSchedulerErrorRetryable(recondomain.ErrNoActivePumps) {
		t.Fatalf("expected missing pumps not to be retryable")
	}
}

func TestAddBatchProcessed(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := newSchedulerMetrics(registry, Config{
		ServiceName: "fuelrecon",
		Environment: "test",
	})

	metrics.AddBatchProcessed("daily_reconciliation", "stations", 3)
	metrics.IncJobSkipped("daily_reconciliation", SchedulerSkipReasonLockHeld)

	if got := testutil.ToFloat64(metrics.batchProcessed.WithLabelValues("daily_reconciliation", "stations")); got != 3 {
		t.Fatalf("expected processed count 3, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.jobSkipped.WithLabelValues("daily_reconciliation", SchedulerSkipReasonLockHeld)); got != 1 {
		t.Fatalf("expected skipped count 1, got %v", got)
	}
}
