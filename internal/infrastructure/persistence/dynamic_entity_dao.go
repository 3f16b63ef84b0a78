package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/openadmin/internal/domain/admin"
	"github.com/erp/openadmin/internal/domain/criteria"
	"github.com/erp/openadmin/internal/domain/metadata"
	"github.com/erp/openadmin/internal/domain/shared"
	"github.com/erp/openadmin/internal/infrastructure/persistence/models"
	"github.com/erp/openadmin/internal/infrastructure/persistence/sandbox"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DynamicEntityDao loads and stores rows of any registered entity type. The
// row type, table and columns come from the metadata registry; statements run
// on the transaction carried by the context, if any.
type DynamicEntityDao struct {
	db       *gorm.DB
	registry *metadata.Registry
}

// NewDynamicEntityDao creates a DAO over db for the types of registry
func NewDynamicEntityDao(db *gorm.DB, registry *metadata.Registry) *DynamicEntityDao {
	return &DynamicEntityDao{db: db, registry: registry}
}

// Retrieve loads the row of entity with primary key id
func (d *DynamicEntityDao) Retrieve(ctx context.Context, entity string, id any) (any, error) {
	et, err := d.registry.Lookup(entity)
	if err != nil {
		return nil, err
	}
	row := et.New()
	err = Conn(ctx, d.db).
		Where(clause.Eq{Column: clause.Column{Table: clause.CurrentTable, Name: et.IDField().Column}, Value: id}).
		Take(row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.Wrapf(shared.ErrNotFound, "%s %v not found", entity, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve %s %v: %w", entity, id, err)
	}
	return row, nil
}

// Merge inserts row when its id is unset and saves it otherwise. Rows created
// in a sandbox scope are stamped with the sandbox id.
func (d *DynamicEntityDao) Merge(ctx context.Context, entity string, row any, scope admin.Scope) (any, error) {
	et, err := d.registry.Lookup(entity)
	if err != nil {
		return nil, err
	}
	id, ok := et.IDField().Get(row)
	if !ok {
		return nil, fmt.Errorf("failed to merge %s: unexpected row type %T", entity, row)
	}

	tx := sandbox.WithSandbox(Conn(ctx, d.db), scope)
	if isUnset(id) {
		err = tx.Create(row).Error
	} else {
		err = tx.Save(row).Error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to merge %s: %w", entity, err)
	}
	return row, nil
}

// Remove deletes row. Sandboxed rows removed inside a sandbox are flagged as
// deleted instead so promotion can carry the removal.
func (d *DynamicEntityDao) Remove(ctx context.Context, entity string, row any, scope admin.Scope) error {
	et, err := d.registry.Lookup(entity)
	if err != nil {
		return err
	}
	tx := Conn(ctx, d.db)
	if et.Sandboxed && scope.InSandbox() {
		err = tx.Model(row).Update(models.SandboxDeletedColumn, true).Error
	} else {
		err = tx.Delete(row).Error
	}
	if err != nil {
		return fmt.Errorf("failed to remove %s: %w", entity, err)
	}
	return nil
}

// Query loads the page of rows selected by q
func (d *DynamicEntityDao) Query(ctx context.Context, q criteria.Query) ([]any, error) {
	et, err := d.registry.Lookup(q.Entity)
	if err != nil {
		return nil, err
	}
	tx, err := d.build(ctx, et, q)
	if err != nil {
		return nil, err
	}

	tx = tx.Select(criteria.RootAlias + ".*")
	for _, m := range q.Mappings {
		if m.SortDirection == nil {
			continue
		}
		tx = tx.Order(clause.OrderByColumn{
			Column: column(m.FieldPath),
			Desc:   *m.SortDirection == admin.SortDescending,
		})
	}
	tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Table: criteria.RootAlias, Name: et.IDField().Column}})
	if q.Offset > 0 {
		tx = tx.Offset(q.Offset)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	dest := et.NewSlice()
	if err := tx.Find(dest).Error; err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", q.Entity, err)
	}
	return et.Rows(dest), nil
}

// Count returns the number of rows matching q, ignoring its page window
func (d *DynamicEntityDao) Count(ctx context.Context, q criteria.Query) (int64, error) {
	et, err := d.registry.Lookup(q.Entity)
	if err != nil {
		return 0, err
	}
	tx, err := d.build(ctx, et, q.Unpaged())
	if err != nil {
		return 0, err
	}
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", q.Entity, err)
	}
	return total, nil
}

// Max returns the largest value of path among the rows matching q. The
// result is invalid when no row matches.
func (d *DynamicEntityDao) Max(ctx context.Context, q criteria.Query, path *criteria.FieldPath) (decimal.NullDecimal, error) {
	var max decimal.NullDecimal
	et, err := d.registry.Lookup(q.Entity)
	if err != nil {
		return max, err
	}
	tx, err := d.build(ctx, et, q.Unpaged())
	if err != nil {
		return max, err
	}

	rows, err := tx.Select("MAX(?)", column(path)).Rows()
	if err != nil {
		return max, fmt.Errorf("failed to read max %s of %s: %w", path.Path, q.Entity, err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&max); err != nil {
			return max, fmt.Errorf("failed to scan max %s of %s: %w", path.Path, q.Entity, err)
		}
	}
	return max, rows.Err()
}

// build applies the joins, predicates and sandbox visibility of q
func (d *DynamicEntityDao) build(ctx context.Context, et *metadata.EntityType, q criteria.Query) (*gorm.DB, error) {
	tx := Conn(ctx, d.db).Table("? AS "+criteria.RootAlias, clause.Table{Name: et.Table})

	joined := make(map[string]bool)
	for _, m := range q.Mappings {
		for _, j := range m.FieldPath.Joins {
			if joined[j.Alias] {
				continue
			}
			joined[j.Alias] = true
			tx = tx.Joins("LEFT JOIN ? ON ? = ?",
				clause.Table{Name: j.Table, Alias: j.Alias},
				clause.Column{Table: j.ParentAlias, Name: j.ForeignKey},
				clause.Column{Table: j.Alias, Name: j.TargetKey},
			)
		}
	}

	for _, m := range q.Mappings {
		if !m.HasPredicate() {
			continue
		}
		p, err := m.Predicate()
		if err != nil {
			return nil, err
		}
		tx = tx.Where(predicate(m.FieldPath, p))
	}

	if et.Sandboxed {
		tx = tx.Where(sandbox.Condition(q.Scope, criteria.RootAlias))
	}
	return tx, nil
}

func column(path *criteria.FieldPath) clause.Column {
	return clause.Column{Table: path.Alias, Name: path.Column()}
}

func predicate(path *criteria.FieldPath, p criteria.Predicate) clause.Expression {
	col := column(path)
	switch p.Operator {
	case criteria.OpIsNull:
		return clause.Eq{Column: col, Value: nil}
	case criteria.OpEqual:
		if len(p.Values) == 1 {
			return clause.Eq{Column: col, Value: p.Values[0]}
		}
	}
	return clause.IN{Column: col, Values: p.Values}
}

func isUnset(id any) bool {
	switch v := id.(type) {
	case nil:
		return true
	case int64:
		return v == 0
	case string:
		return v == ""
	default:
		return false
	}
}
