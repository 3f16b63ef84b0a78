package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AdminMetrics records adorned target list activity: operations by outcome,
// their latency and the rows renumbered by sort rebalances.
type AdminMetrics struct {
	operations *Counter
	duration   *Histogram
	rebalanced *Counter
}

// NewAdminMetrics creates the admin instruments on meter
func NewAdminMetrics(meter metric.Meter) (*AdminMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	m := &AdminMetrics{}
	var err error

	m.operations, err = NewCounter(
		meter,
		"openadmin_adorned_operations_total",
		"Total number of adorned target list operations",
		"{operations}",
	)
	if err != nil {
		return nil, err
	}

	m.duration, err = NewHistogram(meter, HistogramOpts{
		Name:        "openadmin_adorned_operation_duration_seconds",
		Description: "Duration of adorned target list operations",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	m.rebalanced, err = NewCounter(
		meter,
		"openadmin_sort_rebalanced_rows_total",
		"Total number of join rows renumbered by sort rebalances",
		"{rows}",
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordOperation records one finished operation. outcome is "ok" or the
// error kind the operation failed with.
func (m *AdminMetrics) RecordOperation(ctx context.Context, collection, operation, outcome string, d time.Duration) {
	attrs := []attribute.KeyValue{
		AttrCollection.String(collection),
		AttrOperation.String(operation),
		AttrOutcome.String(outcome),
	}
	m.operations.Inc(ctx, attrs...)
	m.duration.RecordDuration(ctx, d, attrs[:2]...)
}

// RecordRebalance records the rows renumbered by one rebalance
func (m *AdminMetrics) RecordRebalance(ctx context.Context, collection string, rows int64) {
	m.rebalanced.Add(ctx, rows, AttrCollection.String(collection))
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewAdminMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
