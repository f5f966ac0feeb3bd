// Package rollover decides whether a pump meter wrapped past its capacity
// between the opening and closing reading of a day.
package rollover

import (
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/fuelrecon/pkg/quantity"
)

// DefaultMaxCapacityRatio bounds how much of the meter capacity a single day's
// wraparound may account for before it is considered implausible.
var DefaultMaxCapacityRatio = decimal.RequireFromString("0.5")

// Result is the volume derived from a pair of meter values.
type Result struct {
	VolumeDispensed decimal.Decimal
	HasRollover     bool
	// RolloverValue is the capacity the meter wrapped at. Zero when HasRollover is false.
	RolloverValue decimal.Decimal
	// Ambiguous marks a backwards reading that could not be explained by a
	// plausible rollover and needs operator confirmation.
	Ambiguous bool
}

type Detector struct {
	maxRatio decimal.Decimal
}

// NewDetector returns a detector using maxRatio as the plausibility bound.
// Non-positive ratios fall back to DefaultMaxCapacityRatio.
func NewDetector(maxRatio decimal.Decimal) Detector {
	if !maxRatio.IsPositive() {
		maxRatio = DefaultMaxCapacityRatio
	}
	return Detector{maxRatio: maxRatio}
}

// Detect never fails. A closing value below the opening value is accepted as a
// rollover only when (capacity-opening)+closing stays within capacity*ratio;
// otherwise the absolute difference is returned and the result is flagged
// ambiguous.
func (d Detector) Detect(opening, closing, capacity decimal.Decimal) Result {
	if closing.GreaterThanOrEqual(opening) {
		return Result{VolumeDispensed: quantity.Volume(closing.Sub(opening))}
	}

	if capacity.IsPositive() {
		total := capacity.Sub(opening).Add(closing)
		limit := capacity.Mul(d.maxRatio)
		if !total.IsNegative() && total.LessThanOrEqual(limit) {
			return Result{
				VolumeDispensed: quantity.Volume(total),
				HasRollover:     true,
				RolloverValue:   capacity,
			}
		}
	}

	return Result{
		VolumeDispensed: quantity.Volume(closing.Sub(opening).Abs()),
		Ambiguous:       true,
	}
}

// Known describes a pair whose volume is already established, such as one
// completed from history. A closing below the opening, or a volume reaching
// capacity, is a wrap at capacity and is never ambiguous.
func Known(opening, closing, capacity, volume decimal.Decimal) Result {
	res := Result{VolumeDispensed: quantity.Volume(volume)}
	if !capacity.IsPositive() {
		return res
	}
	if closing.LessThan(opening) || volume.GreaterThanOrEqual(capacity) {
		res.HasRollover = true
		res.RolloverValue = capacity
	}
	return res
}
