// Package sequence computes fractional sort values for ordered adorned target
// lists and the bracket a rebalance has to renumber afterwards.
package sequence

import (
	"math"

	"github.com/erp/openadmin/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// WindowSize is the number of neighbouring siblings fetched around a requested
// position
const WindowSize = 3

// SortScale is the number of decimal places stored by sort columns. Midpoints
// between rows spaced one rebalance increment apart need one place more than
// the increment.
const SortScale = 10

var (
	one         = decimal.NewFromInt(1)
	maxPosition = decimal.NewFromInt(math.MaxInt32)
)

// Sibling is one join row seen by the placement computation
type Sibling struct {
	// Key identifies the row; rows are the same record when keys are equal.
	Key      any
	Sequence decimal.Decimal
}

// Window is the neighbourhood of a requested position: up to WindowSize rows
// in ascending sort order, the total number of siblings and the record being
// placed.
type Window struct {
	Rows  []Sibling
	Total int64
	Self  Sibling
}

// Value is the outcome of a placement. NewSequence is null when the record
// already occupies the requested slot.
type Value struct {
	NewSequence decimal.NullDecimal
	IsStart     bool
	IsEnd       bool
}

// NeedsRebalance reports whether the placement landed between two siblings
func (v Value) NeedsRebalance() bool {
	return v.NewSequence.Valid && !v.IsStart && !v.IsEnd
}

// Position converts a requested sort value into a 1-based position. The value
// must be a whole number of at least one. Positions beyond math.MaxInt32 are
// clamped to it and so land after every sibling.
func Position(requested decimal.Decimal) (int, error) {
	if !requested.IsInteger() || requested.LessThan(one) {
		return 0, shared.Wrapf(shared.ErrFormat, "invalid position %s", requested)
	}
	if requested.GreaterThan(maxPosition) {
		return math.MaxInt32, nil
	}
	return int(requested.IntPart()), nil
}

// Scale returns the number of significant decimal places of v
func Scale(v decimal.Decimal) int32 {
	scale := -v.Exponent()
	for scale > 0 && v.Truncate(scale-1).Equal(v) {
		scale--
	}
	return max(scale, 0)
}

// CheckScale rejects explicit sort values a sort column would round
func CheckScale(v decimal.Decimal) error {
	if Scale(v) > SortScale {
		return shared.Wrapf(shared.ErrFormat, "sort value %s has more than %d decimal places", v, SortScale)
	}
	return nil
}

// WindowBounds returns the offset and limit of the sibling window for a
// 1-based position
func WindowBounds(position int) (offset, limit int) {
	offset = position - 2
	if offset < 0 {
		offset = position - 1
	}
	return offset, WindowSize
}

// IsExplicit reports whether a caller supplied sort value carries a decimal
// scale. Such values are stored verbatim and never rebalanced.
func IsExplicit(requested decimal.Decimal) bool {
	return requested.Exponent() < 0
}

// Append returns the sort value placing a row after every sibling: max+1, or 1
// for the first row.
func Append(max decimal.NullDecimal) decimal.Decimal {
	if !max.Valid {
		return one
	}
	return max.Decimal.Add(one)
}

// ComputePlacement derives the sort value that moves w.Self to position. The
// window must have been fetched with WindowBounds(position) after the record
// itself was stored.
func ComputePlacement(position int, w Window) Value {
	v := Value{
		IsStart: position-1 == 0,
		IsEnd:   int64(position) == w.Total,
	}
	if len(w.Rows) == 0 {
		return v
	}

	var (
		current Sibling
		before  *Sibling
	)
	switch {
	case v.IsStart:
		current = w.Rows[0]
	case len(w.Rows) > 1:
		if (sameRecord(w.Self, w.Rows[0]) || w.Self.Sequence.LessThan(w.Rows[1].Sequence)) && len(w.Rows) > 2 {
			// the slot is taken by the second row either way
			before = &Sibling{Key: w.Rows[1].Key, Sequence: w.Rows[1].Sequence}
			current = Sibling{Key: w.Rows[1].Key, Sequence: w.Rows[2].Sequence}
		} else {
			before = &w.Rows[0]
			current = w.Rows[1]
		}
	default:
		current = w.Rows[0]
	}

	if sameRecord(w.Self, current) {
		return v
	}

	switch {
	case v.IsStart:
		v.NewSequence = decimal.NewNullDecimal(current.Sequence.Sub(one))
	case v.IsEnd:
		v.NewSequence = decimal.NewNullDecimal(current.Sequence.Add(one))
	case before == nil:
		// a lone neighbour that is neither first nor last: place after it
		v.NewSequence = decimal.NewNullDecimal(current.Sequence.Add(one))
		v.IsEnd = true
	default:
		gap := current.Sequence.Sub(before.Sequence)
		v.NewSequence = decimal.NewNullDecimal(before.Sequence.Add(gap.Div(decimal.NewFromInt(2))))
	}
	return v
}

func sameRecord(a, b Sibling) bool {
	return a.Key != nil && a.Key == b.Key
}
