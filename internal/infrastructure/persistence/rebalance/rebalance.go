// Package rebalance renumbers the sort column of a window of sibling rows in
// one set-based statement per dialect.
package rebalance

import (
	"context"
	"fmt"
	"strings"

	"github.com/erp/openadmin/internal/domain/sequence"
	"github.com/erp/openadmin/internal/domain/shared"
	"github.com/erp/openadmin/internal/infrastructure/persistence"
	"github.com/erp/openadmin/internal/infrastructure/persistence/models"
	"github.com/erp/openadmin/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const savepoint = "sort_rebalance"

// SortRebalance executes rebalance statements through the first dialect that
// handles the active gorm dialector.
type SortRebalance struct {
	db       *gorm.DB
	dialects []Dialect
	logger   *zap.Logger
}

// Option configures a SortRebalance
type Option func(*SortRebalance)

// WithDialects replaces the dialect lookup list
func WithDialects(dialects ...Dialect) Option {
	return func(s *SortRebalance) {
		s.dialects = dialects
	}
}

// New creates a SortRebalance over db with the default dialects
func New(db *gorm.DB, logger *zap.Logger, opts ...Option) *SortRebalance {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &SortRebalance{db: db, dialects: DefaultDialects(), logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dialect returns the dialect serving the active database
func (s *SortRebalance) Dialect() (Dialect, error) {
	name := s.db.Dialector.Name()
	for _, d := range s.dialects {
		if d.CanHandle(name) {
			return d, nil
		}
	}
	return nil, shared.Wrapf(shared.ErrUnsupported, "no rebalance dialect for database %q", name)
}

// RebalanceRows renumbers the rows of table matched by where and returns the
// number of rows updated. Statements run on the transaction carried by ctx
// behind a savepoint, so a failed batch leaves the transaction usable. Without
// a transaction they run on one pinned connection and a failure part way
// through a multi-statement batch leaves the earlier statements applied.
func (s *SortRebalance) RebalanceRows(ctx context.Context, table, idColumn, sortColumn string, where Where, start, increment decimal.Decimal) (int64, error) {
	d, err := s.Dialect()
	if err != nil {
		return 0, err
	}
	return s.run(ctx, d, table, d.CreateRebalanceQuery(table, idColumn, sortColumn, where, start, increment))
}

// Rebalance renumbers the rows inside w to Floor+Increment, Floor+2*Increment, ...
func (s *SortRebalance) Rebalance(ctx context.Context, w sequence.RebalanceWindow) (int64, error) {
	if w.Empty() {
		return 0, nil
	}
	d, err := s.Dialect()
	if err != nil {
		return 0, err
	}
	where, err := WindowWhere(d, w)
	if err != nil {
		return 0, err
	}
	return s.run(ctx, d, w.Table, d.CreateRebalanceQuery(w.Table, w.IDColumn, w.SortColumn, where, w.Floor, w.Increment))
}

func (s *SortRebalance) run(ctx context.Context, d Dialect, table string, stmts []Statement) (int64, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "sort_rebalance", "rebalance",
		telemetry.WithAttribute("db.table", table),
		telemetry.WithAttribute("db.dialect", d.Name()),
	)
	defer span.End()

	var total int64
	exec := func(tx *gorm.DB) error {
		for _, st := range stmts {
			res := tx.Exec(st.SQL, st.Vars...)
			if res.Error != nil {
				return fmt.Errorf("failed to rebalance %s: %w", table, res.Error)
			}
			total += res.RowsAffected
		}
		return nil
	}

	conn := persistence.Conn(ctx, s.db)
	var err error
	if persistence.InTransaction(ctx) {
		err = s.withSavepoint(conn, exec)
	} else {
		err = conn.Connection(exec)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return total, err
	}

	telemetry.SetAttributes(span, "db.rows_affected", total)
	s.logger.Debug("Rebalanced sort values",
		zap.String("table", table),
		zap.String("dialect", d.Name()),
		zap.Int64("rows", total),
	)
	return total, nil
}

func (s *SortRebalance) withSavepoint(tx *gorm.DB, exec func(*gorm.DB) error) error {
	if err := tx.SavePoint(savepoint).Error; err != nil {
		return fmt.Errorf("failed to open rebalance savepoint: %w", err)
	}
	if err := exec(tx); err != nil {
		if rbErr := tx.RollbackTo(savepoint).Error; rbErr != nil {
			s.logger.Warn("Failed to roll back rebalance savepoint", zap.Error(rbErr))
		}
		return err
	}
	return nil
}

// WindowWhere renders the partition and bracket of w for d
func WindowWhere(d Dialect, w sequence.RebalanceWindow) (Where, error) {
	if len(w.ParentValues) == 0 {
		return Where{}, fmt.Errorf("rebalance window on %s has no parent values", w.Table)
	}

	var parts []string
	var vars []any

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(w.ParentValues)), ",")
	parts = append(parts, fmt.Sprintf("%s IN (%s)", d.Quote(w.ParentColumn), placeholders))
	vars = append(vars, w.ParentValues...)

	if w.Sandboxed {
		if w.SandboxID == nil {
			parts = append(parts, d.Quote(models.SandboxColumn)+" IS NULL")
		} else {
			parts = append(parts, d.Quote(models.SandboxColumn)+" = ?")
			vars = append(vars, *w.SandboxID)
		}
		parts = append(parts,
			d.Quote(models.SandboxDeletedColumn)+" IS NULL",
			d.Quote(models.SandboxArchivedColumn)+" IS NULL",
		)
	}

	sort := d.Quote(w.SortColumn)
	parts = append(parts, sort+" > ?", sort+" < ?")
	vars = append(vars, w.Floor, w.Ceiling)

	return Where{SQL: strings.Join(parts, " AND "), Vars: vars}, nil
}
