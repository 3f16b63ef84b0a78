package rebalance

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Statement is one SQL statement with positional ? placeholders
type Statement struct {
	SQL  string
	Vars []any
}

// Where is a boolean SQL fragment restricting the renumbered rows. Identifiers
// in SQL must already be quoted for the target dialect.
type Where struct {
	SQL  string
	Vars []any
}

// Dialect renders the statements that renumber the sort column of the rows
// selected by a Where, in ascending (sort, id) order, to start+increment,
// start+2*increment, ...
type Dialect interface {
	Name() string
	// CanHandle reports whether the dialect serves the named gorm dialector
	CanHandle(dialector string) bool
	Quote(identifier string) string
	CreateRebalanceQuery(table, idColumn, sortColumn string, where Where, start, increment decimal.Decimal) []Statement
}

// DefaultDialects returns the built-in dialects in lookup order
func DefaultDialects() []Dialect {
	return []Dialect{Postgres{}, SQLite{}, MySQL{}}
}

// Postgres renumbers with a ROW_NUMBER window joined through UPDATE ... FROM
type Postgres struct{}

func (Postgres) Name() string { return "postgres" }

func (Postgres) CanHandle(dialector string) bool {
	return dialector == "postgres" || dialector == "pgx"
}

func (Postgres) Quote(identifier string) string { return pq.QuoteIdentifier(identifier) }

func (d Postgres) CreateRebalanceQuery(table, idColumn, sortColumn string, where Where, start, increment decimal.Decimal) []Statement {
	next := "CAST(? AS NUMERIC) + ROW_NUMBER() OVER (ORDER BY %[1]s, %[2]s) * CAST(? AS NUMERIC)"
	return []Statement{windowUpdate(d, next, table, idColumn, sortColumn, where, start, increment)}
}

// SQLite uses the same window form. Values are rounded to the scale of the
// increment because SQLite computes NUMERIC arithmetic in floating point.
type SQLite struct{}

func (SQLite) Name() string { return "sqlite" }

func (SQLite) CanHandle(dialector string) bool {
	return dialector == "sqlite" || dialector == "sqlite3"
}

// Quote uses the ANSI double-quote form SQLite shares with PostgreSQL
func (SQLite) Quote(identifier string) string { return pq.QuoteIdentifier(identifier) }

func (d SQLite) CreateRebalanceQuery(table, idColumn, sortColumn string, where Where, start, increment decimal.Decimal) []Statement {
	scale := max(-increment.Exponent(), 0)
	next := fmt.Sprintf("ROUND(CAST(? AS NUMERIC) + ROW_NUMBER() OVER (ORDER BY %%[1]s, %%[2]s) * CAST(? AS NUMERIC), %d)", scale)
	return []Statement{windowUpdate(d, next, table, idColumn, sortColumn, where, start, increment)}
}

// MySQL has no UPDATE ... FROM with window functions in every supported
// version, so rows are numbered through a session variable in an ordered
// UPDATE. Both statements must run on the same connection.
type MySQL struct{}

func (MySQL) Name() string { return "mysql" }

func (MySQL) CanHandle(dialector string) bool { return dialector == "mysql" }

func (MySQL) Quote(identifier string) string {
	return "`" + strings.ReplaceAll(identifier, "`", "``") + "`"
}

func (d MySQL) CreateRebalanceQuery(table, idColumn, sortColumn string, where Where, start, increment decimal.Decimal) []Statement {
	t, id, sort := d.Quote(table), d.Quote(idColumn), d.Quote(sortColumn)
	update := fmt.Sprintf("UPDATE %s SET %s = ? + (@rownum := @rownum + 1) * ? WHERE %s ORDER BY %s, %s",
		t, sort, where.SQL, sort, id)
	return []Statement{
		{SQL: "SET @rownum = 0"},
		{SQL: update, Vars: append([]any{start, increment}, where.Vars...)},
	}
}

func windowUpdate(d Dialect, next, table, idColumn, sortColumn string, where Where, start, increment decimal.Decimal) Statement {
	t, id, sort := d.Quote(table), d.Quote(idColumn), d.Quote(sortColumn)
	sql := fmt.Sprintf("UPDATE %[1]s SET %[3]s = r.next_sort FROM (SELECT %[2]s AS row_id, %[4]s AS next_sort FROM %[1]s WHERE %[5]s) AS r WHERE %[1]s.%[2]s = r.row_id",
		t, id, sort, fmt.Sprintf(next, sort, id), where.SQL)
	return Statement{SQL: sql, Vars: append([]any{start, increment}, where.Vars...)}
}
