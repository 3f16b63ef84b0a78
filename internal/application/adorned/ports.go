// Package adorned implements fetch, add, update and remove for adorned target
// lists: many-to-many relationships stored as join rows that carry their own
// fields, most commonly a fractional sort value.
package adorned

import (
	"context"
	"time"

	"github.com/erp/openadmin/internal/domain/admin"
	"github.com/erp/openadmin/internal/domain/criteria"
	"github.com/erp/openadmin/internal/domain/sequence"
	"github.com/shopspring/decimal"
)

// DataAccess loads and stores rows of registered entity types. Rows are
// pointers to the registered Go structs.
type DataAccess interface {
	Retrieve(ctx context.Context, entity string, id any) (any, error)
	Merge(ctx context.Context, entity string, row any, scope admin.Scope) (any, error)
	Remove(ctx context.Context, entity string, row any, scope admin.Scope) error
	Query(ctx context.Context, q criteria.Query) ([]any, error)
	Count(ctx context.Context, q criteria.Query) (int64, error)
	Max(ctx context.Context, q criteria.Query, path *criteria.FieldPath) (decimal.NullDecimal, error)
}

// Rebalancer renumbers the rows of a rebalance window and reports how many
// were updated
type Rebalancer interface {
	Rebalance(ctx context.Context, w sequence.RebalanceWindow) (int64, error)
}

// Transactor runs fn inside one transaction carried by the context it passes
type Transactor interface {
	Within(ctx context.Context, fn func(ctx context.Context) error) error
}

// Recorder receives operation and rebalance measurements
type Recorder interface {
	RecordOperation(ctx context.Context, collection, operation, outcome string, d time.Duration)
	RecordRebalance(ctx context.Context, collection string, rows int64)
}

type nopRecorder struct{}

func (nopRecorder) RecordOperation(context.Context, string, string, string, time.Duration) {}
func (nopRecorder) RecordRebalance(context.Context, string, int64)                         {}
