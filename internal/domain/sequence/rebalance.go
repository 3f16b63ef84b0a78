package sequence

import (
	"github.com/shopspring/decimal"
)

// DefaultIncrement is the spacing a rebalance assigns between renumbered rows
var DefaultIncrement = decimal.RequireFromString("0.00001")

// Bracket returns the integer floor and ceiling around a fractional sort
// value. Only rows strictly inside the bracket are renumbered.
func Bracket(v decimal.Decimal) (floor, ceiling decimal.Decimal) {
	return v.Floor(), v.Ceil()
}

// RebalanceWindow describes the rows of one parent and sandbox partition whose
// sort values lie strictly between Floor and Ceiling. They are renumbered to
// Floor+Increment, Floor+2*Increment, ... in ascending sort order.
type RebalanceWindow struct {
	Table        string
	IDColumn     string
	SortColumn   string
	ParentColumn string
	ParentValues []any

	// Sandboxed tables are additionally restricted to SandboxID (nil means
	// production rows) and to rows neither deleted nor archived.
	Sandboxed bool
	SandboxID *int64

	Floor     decimal.Decimal
	Ceiling   decimal.Decimal
	Increment decimal.Decimal
}

// NewRebalanceWindow brackets placed and fills the bounds of a window
func NewRebalanceWindow(placed, increment decimal.Decimal) RebalanceWindow {
	floor, ceiling := Bracket(placed)
	if increment.IsZero() {
		increment = DefaultIncrement
	}
	return RebalanceWindow{
		Floor:     floor,
		Ceiling:   ceiling,
		Increment: increment,
	}
}

// Empty reports whether no row can lie strictly inside the bracket
func (w RebalanceWindow) Empty() bool {
	return !w.Floor.LessThan(w.Ceiling)
}

// Renumber returns the values assigned to n rows, in order
func (w RebalanceWindow) Renumber(n int) []decimal.Decimal {
	out := make([]decimal.Decimal, n)
	for i := range out {
		out[i] = w.Floor.Add(w.Increment.Mul(decimal.NewFromInt(int64(i + 1))))
	}
	return out
}
