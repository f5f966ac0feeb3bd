package domain

import (
	"errors"
	"fmt"
	"strings"

	productdomain "github.com/smallbiznis/fuelrecon/internal/product/domain"
	pumpdomain "github.com/smallbiznis/fuelrecon/internal/pump/domain"
	readingdomain "github.com/smallbiznis/fuelrecon/internal/reading/domain"
)

var (
	ErrInvalidStation       = errors.New("invalid_station_id")
	ErrInvalidPump          = errors.New("invalid_pump_id")
	ErrInvalidCalculation   = errors.New("invalid_calculation_id")
	ErrInvalidDate          = errors.New("invalid_business_date")
	ErrInvalidDateRange     = errors.New("invalid_date_range")
	ErrInvalidRolloverValue = errors.New("invalid_rollover_value")
	ErrInvalidClosing       = errors.New("invalid_closing_reading")
	ErrInvalidThreshold     = errors.New("invalid_threshold")
	ErrInvalidWindow        = errors.New("invalid_window_days")
	ErrRolloverExceedsCap   = errors.New("rollover_value_exceeds_capacity")
	ErrInvalidCapacity      = errors.New("invalid_meter_capacity")

	ErrCalculationNotFound = errors.New("calculation_not_found")
	ErrNoActivePumps       = errors.New("no_active_pumps")
	ErrSummaryNotFound     = errors.New("summary_not_found")
	ErrRunNotFound         = errors.New("run_not_found")

	ErrCalculationConflict = errors.New("calculation_conflict")

	ErrBusinessRule = errors.New("business_rule_violation")
)

// Collaborator errors surfaced unchanged by the engine.
var (
	ErrPumpNotFound    = pumpdomain.ErrNotFound
	ErrProductNotFound = productdomain.ErrNotFound
	ErrPriceNotFound   = productdomain.ErrPriceNotFound
	ErrReadingNotFound = readingdomain.ErrNotFound
	ErrReadingConflict = readingdomain.ErrConflict
)

// ValidationError rejects malformed input before any computation.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error { return e.Err }

func NewValidationError(field string, err error) *ValidationError {
	return &ValidationError{Field: field, Reason: err.Error(), Err: err}
}

// BusinessRuleViolation rejects a well-formed request that contradicts the
// stored state.
type BusinessRuleViolation struct {
	Rule   string
	Reason string
}

func (e *BusinessRuleViolation) Error() string {
	return fmt.Sprintf("%s: %s", e.Rule, e.Reason)
}

func (e *BusinessRuleViolation) Is(target error) bool {
	return target == ErrBusinessRule
}

const (
	RuleNotEstimated         = "calculation_not_estimated"
	RuleAlreadyReviewed      = "calculation_already_reviewed"
	RuleRolloverBelowOpening = "rollover_below_opening"
	RuleClosingNotBelowOpen  = "closing_not_below_opening"
)

func NewBusinessRuleViolation(rule, reason string) *BusinessRuleViolation {
	return &BusinessRuleViolation{Rule: rule, Reason: reason}
}

// PartialBatchFailure reports the pumps that failed in an otherwise
// completed station run.
type PartialBatchFailure struct {
	Failed []PumpFailure
}

func (e *PartialBatchFailure) Error() string {
	parts := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		parts = append(parts, fmt.Sprintf("pump %s: %s", f.PumpID, f.Reason))
	}
	return fmt.Sprintf("%d pump(s) failed: %s", len(e.Failed), strings.Join(parts, "; "))
}

// Unwrap exposes the individual pump errors to errors.Is and errors.As.
func (e *PartialBatchFailure) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, f := range e.Failed {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
	}
	return errs
}

// IsValidation reports whether err belongs to the validation class.
func IsValidation(err error) bool {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return true
	}
	for _, target := range []error{
		ErrInvalidStation, ErrInvalidPump, ErrInvalidCalculation, ErrInvalidDate,
		ErrInvalidDateRange, ErrInvalidRolloverValue, ErrInvalidClosing,
		ErrInvalidThreshold, ErrInvalidWindow, ErrRolloverExceedsCap, ErrInvalidCapacity,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsNotFound reports whether err belongs to the not-found class.
func IsNotFound(err error) bool {
	for _, target := range []error{
		ErrCalculationNotFound, ErrNoActivePumps, ErrSummaryNotFound, ErrRunNotFound,
		ErrPumpNotFound, ErrProductNotFound, ErrPriceNotFound, ErrReadingNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
