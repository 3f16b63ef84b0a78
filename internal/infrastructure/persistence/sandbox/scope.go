// Package sandbox scopes sandboxed join rows to the edit context of a request.
//
// Production rows carry a NULL sandbox_id; rows edited in a sandbox carry its
// id. Rows removed or archived inside a sandbox keep their row but set the
// sandbox_deleted or sandbox_archived flag, and are hidden unless the scope
// includes archived rows (promotion).
//
// Usage:
//
//	db.Scopes(sandbox.Scope(admin.SandboxScope(7), "root")).Find(&rows)
package sandbox

import (
	"github.com/erp/openadmin/internal/domain/admin"
	"github.com/erp/openadmin/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Condition returns the visibility predicate of scope on the sandbox columns of
// the table aliased as alias. An empty alias qualifies with the current table.
func Condition(scope admin.Scope, alias string) clause.Expression {
	table := alias
	if table == "" {
		table = clause.CurrentTable
	}
	column := func(name string) clause.Column {
		return clause.Column{Table: table, Name: name}
	}

	exprs := make([]clause.Expression, 0, 3)
	if scope.SandboxID == nil {
		exprs = append(exprs, clause.Eq{Column: column(models.SandboxColumn), Value: nil})
	} else {
		exprs = append(exprs, clause.Eq{Column: column(models.SandboxColumn), Value: *scope.SandboxID})
	}
	if !scope.IncludeArchived {
		exprs = append(exprs,
			clause.Eq{Column: column(models.SandboxDeletedColumn), Value: nil},
			clause.Eq{Column: column(models.SandboxArchivedColumn), Value: nil},
		)
	}
	return clause.And(exprs...)
}

// Scope applies Condition as a gorm scope
func Scope(scope admin.Scope, alias string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(Condition(scope, alias))
	}
}
