// Package quantity holds fixed-point helpers for meter volumes and money.
package quantity

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// VolumeScale is the number of liter decimals kept on meter values.
	VolumeScale int32 = 3
	// MoneyScale is the number of decimals kept on revenue amounts.
	MoneyScale int32 = 2
	// PriceScale is the number of decimals kept on unit prices.
	PriceScale int32 = 4
	// PercentScale is the number of decimals kept on deviation percentages.
	PercentScale int32 = 2
)

var (
	ErrInvalidNumber = errors.New("invalid_number")
	ErrNegative      = errors.New("negative_value")
)

var hundred = decimal.NewFromInt(100)

// Parse reads a decimal from its string form.
func Parse(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, ErrInvalidNumber
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, ErrInvalidNumber
	}
	return d, nil
}

// ParseNonNegative reads a decimal and rejects values below zero.
func ParseNonNegative(value string) (decimal.Decimal, error) {
	d, err := Parse(value)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, ErrNegative
	}
	return d, nil
}

// MustParse is for constants and tests.
func MustParse(value string) decimal.Decimal {
	d, err := Parse(value)
	if err != nil {
		panic(err)
	}
	return d
}

func Volume(d decimal.Decimal) decimal.Decimal { return d.Round(VolumeScale) }

func Money(d decimal.Decimal) decimal.Decimal { return d.Round(MoneyScale) }

func Price(d decimal.Decimal) decimal.Decimal { return d.Round(PriceScale) }

// Revenue multiplies a volume by a unit price and rounds to money scale.
func Revenue(volume, unitPrice decimal.Decimal) decimal.Decimal {
	return Money(volume.Mul(unitPrice))
}

// Sum adds all values. An empty slice sums to zero.
func Sum(values []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// Mean returns the arithmetic mean and false when values is empty.
// Division keeps decimal.DivisionPrecision digits; callers round as needed.
func Mean(values []decimal.Decimal) (decimal.Decimal, bool) {
	if len(values) == 0 {
		return decimal.Zero, false
	}
	return Sum(values).Div(decimal.NewFromInt(int64(len(values)))), true
}

// PercentChange returns ((current-base)/base)*100 rounded to PercentScale.
// A zero base yields zero.
func PercentChange(current, base decimal.Decimal) decimal.Decimal {
	if base.IsZero() {
		return decimal.Zero
	}
	return current.Sub(base).Div(base).Mul(hundred).Round(PercentScale)
}

// Wrap folds value into [0, capacity) for a meter that rolls over at capacity.
func Wrap(value, capacity decimal.Decimal) decimal.Decimal {
	if !capacity.IsPositive() {
		return value
	}
	wrapped := value.Mod(capacity)
	if wrapped.IsNegative() {
		wrapped = wrapped.Add(capacity)
	}
	return wrapped
}
