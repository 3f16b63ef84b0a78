package adorned

import (
	"context"

	"github.com/erp/openadmin/internal/domain/admin"
	"github.com/erp/openadmin/internal/domain/sequence"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// place moves a stored join row to requested. A value with a decimal scale is
// stored verbatim. A whole number is a 1-based position: the row gets a sort
// value relative to the siblings around that position, and landing between
// two siblings renumbers the bracket around the new value. Siblings are the
// rows filed under any of linkedIDs.
func (o *Orchestrator) place(ctx context.Context, b *binding, row any, linkedIDs []string, requested decimal.Decimal, scope admin.Scope) error {
	if sequence.IsExplicit(requested) {
		if err := sequence.CheckScale(requested); err != nil {
			return err
		}
		if err := b.sort.Set(row, requested); err != nil {
			return err
		}
		_, err := o.dao.Merge(ctx, b.instance.Name, row, scope)
		return err
	}

	position, err := sequence.Position(requested)
	if err != nil {
		return err
	}
	window, err := o.window(ctx, b, row, linkedIDs, position, scope)
	if err != nil {
		return err
	}
	v := sequence.ComputePlacement(position, window)
	if !v.NewSequence.Valid {
		return nil
	}

	if err := b.sort.Set(row, v.NewSequence.Decimal); err != nil {
		return err
	}
	if _, err := o.dao.Merge(ctx, b.instance.Name, row, scope); err != nil {
		return err
	}
	if !v.NeedsRebalance() {
		return nil
	}
	return o.rebalance(ctx, b, row, linkedIDs, v.NewSequence.Decimal, scope)
}

// window loads the siblings around position, including row itself
func (o *Orchestrator) window(ctx context.Context, b *binding, row any, linkedIDs []string, position int, scope admin.Scope) (sequence.Window, error) {
	q, err := b.identityQuery(o.registry, linkedIDs, nil, scope)
	if err != nil {
		return sequence.Window{}, err
	}
	q.Mappings = append(q.Mappings, b.sortMapping())

	total, err := o.dao.Count(ctx, q)
	if err != nil {
		return sequence.Window{}, err
	}
	q.Offset, q.Limit = sequence.WindowBounds(position)
	rows, err := o.dao.Query(ctx, q)
	if err != nil {
		return sequence.Window{}, err
	}

	w := sequence.Window{Total: total, Self: b.sibling(row)}
	for _, r := range rows {
		w.Rows = append(w.Rows, b.sibling(r))
	}
	return w, nil
}

func (o *Orchestrator) rebalance(ctx context.Context, b *binding, row any, linkedIDs []string, placed decimal.Decimal, scope admin.Scope) error {
	parent, _ := b.linkedRef.Get(row)
	parents := []any{parent}
	for _, raw := range linkedIDs {
		v, err := b.linkedRef.Parse(raw)
		if err != nil {
			return err
		}
		if v != parent {
			parents = append(parents, v)
		}
	}

	w := sequence.NewRebalanceWindow(placed, o.increment)
	w.Table = b.join.Table
	w.IDColumn = b.instance.IDField().Column
	w.SortColumn = b.sort.Column
	w.ParentColumn = b.linkedRef.Column
	w.ParentValues = parents
	w.Sandboxed = b.join.Sandboxed
	w.SandboxID = scope.SandboxID

	n, err := o.rebalancer.Rebalance(ctx, w)
	if err != nil {
		return &RebalanceError{Window: w, Err: err}
	}
	o.recorder.RecordRebalance(ctx, b.list.CollectionFieldName, n)
	o.logger.Debug("Rebalanced sort window",
		zap.String("collection", b.list.CollectionFieldName),
		zap.String("floor", w.Floor.String()),
		zap.String("ceiling", w.Ceiling.String()),
		zap.Int64("rows", n),
	)
	return nil
}
