package rebalance

import (
	"testing"

	"github.com/erp/openadmin/internal/domain/sequence"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func window(sandboxID *int64) sequence.RebalanceWindow {
	w := sequence.NewRebalanceWindow(decimal.RequireFromString("1.5"), decimal.Zero)
	w.Table = "category_products"
	w.IDColumn = "id"
	w.SortColumn = "sequence"
	w.ParentColumn = "category_id"
	w.ParentValues = []any{int64(4)}
	w.Sandboxed = true
	w.SandboxID = sandboxID
	return w
}

func TestDialect_CanHandle(t *testing.T) {
	tests := []struct {
		dialector string
		want      string
	}{
		{"postgres", "postgres"},
		{"pgx", "postgres"},
		{"sqlite", "sqlite"},
		{"sqlite3", "sqlite"},
		{"mysql", "mysql"},
		{"sqlserver", ""},
	}
	for _, tt := range tests {
		t.Run(tt.dialector, func(t *testing.T) {
			got := ""
			for _, d := range DefaultDialects() {
				if d.CanHandle(tt.dialector) {
					got = d.Name()
					break
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDialect_Quote(t *testing.T) {
	assert.Equal(t, `"sequence"`, Postgres{}.Quote("sequence"))
	assert.Equal(t, `"we""ird"`, SQLite{}.Quote(`we"ird`))
	assert.Equal(t, "`we``ird`", MySQL{}.Quote("we`ird"))
}

func TestWindowWhere(t *testing.T) {
	t.Run("production partition", func(t *testing.T) {
		where, err := WindowWhere(Postgres{}, window(nil))
		require.NoError(t, err)
		assert.Equal(t,
			`"category_id" IN (?) AND "sandbox_id" IS NULL AND "sandbox_deleted" IS NULL AND "sandbox_archived" IS NULL AND "sequence" > ? AND "sequence" < ?`,
			where.SQL)
		require.Len(t, where.Vars, 3)
		assert.Equal(t, int64(4), where.Vars[0])
		assert.Equal(t, "1", where.Vars[1].(decimal.Decimal).String())
		assert.Equal(t, "2", where.Vars[2].(decimal.Decimal).String())
	})

	t.Run("sandbox partition", func(t *testing.T) {
		id := int64(9)
		where, err := WindowWhere(Postgres{}, window(&id))
		require.NoError(t, err)
		assert.Contains(t, where.SQL, `"sandbox_id" = ?`)
		assert.Equal(t, int64(9), where.Vars[1])
	})

	t.Run("unsandboxed table with several parents", func(t *testing.T) {
		w := window(nil)
		w.Sandboxed = false
		w.ParentValues = []any{int64(1), int64(2)}
		where, err := WindowWhere(MySQL{}, w)
		require.NoError(t, err)
		assert.Equal(t, "`category_id` IN (?,?) AND `sequence` > ? AND `sequence` < ?", where.SQL)
		assert.Len(t, where.Vars, 4)
	})

	t.Run("no parent values", func(t *testing.T) {
		w := window(nil)
		w.ParentValues = nil
		_, err := WindowWhere(Postgres{}, w)
		assert.Error(t, err)
	})
}

func TestPostgres_CreateRebalanceQuery(t *testing.T) {
	where := Where{SQL: `"category_id" = ?`, Vars: []any{int64(4)}}
	stmts := Postgres{}.CreateRebalanceQuery("category_products", "id", "sequence", where,
		decimal.NewFromInt(1), sequence.DefaultIncrement)

	require.Len(t, stmts, 1)
	assert.Equal(t,
		`UPDATE "category_products" SET "sequence" = r.next_sort FROM (SELECT "id" AS row_id, CAST(? AS NUMERIC) + ROW_NUMBER() OVER (ORDER BY "sequence", "id") * CAST(? AS NUMERIC) AS next_sort FROM "category_products" WHERE "category_id" = ?) AS r WHERE "category_products"."id" = r.row_id`,
		stmts[0].SQL)
	require.Len(t, stmts[0].Vars, 3)
	assert.Equal(t, "0.00001", stmts[0].Vars[1].(decimal.Decimal).String())
	assert.Equal(t, int64(4), stmts[0].Vars[2])
}

func TestSQLite_CreateRebalanceQuery(t *testing.T) {
	where := Where{SQL: `"category_id" = ?`, Vars: []any{int64(4)}}
	stmts := SQLite{}.CreateRebalanceQuery("category_products", "id", "sequence", where,
		decimal.NewFromInt(1), decimal.RequireFromString("0.001"))

	require.Len(t, stmts, 1)
	assert.Contains(t, stmts[0].SQL, `ROUND(CAST(? AS NUMERIC) + ROW_NUMBER() OVER (ORDER BY "sequence", "id") * CAST(? AS NUMERIC), 3) AS next_sort`)
}

func TestMySQL_CreateRebalanceQuery(t *testing.T) {
	where := Where{SQL: "`category_id` = ?", Vars: []any{int64(4)}}
	stmts := MySQL{}.CreateRebalanceQuery("category_products", "id", "sequence", where,
		decimal.NewFromInt(1), sequence.DefaultIncrement)

	require.Len(t, stmts, 2)
	assert.Equal(t, "SET @rownum = 0", stmts[0].SQL)
	assert.Empty(t, stmts[0].Vars)
	assert.Equal(t,
		"UPDATE `category_products` SET `sequence` = ? + (@rownum := @rownum + 1) * ? WHERE `category_id` = ? ORDER BY `sequence`, `id`",
		stmts[1].SQL)
	assert.Len(t, stmts[1].Vars, 3)
}
