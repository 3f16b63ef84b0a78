package persistence

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}

// Transactor runs admin operations inside one gorm transaction carried in the
// context. Data access resolves its handle through Conn so every statement
// of an operation shares the transaction.
type Transactor struct {
	db *gorm.DB
}

// NewTransactor creates a Transactor over db
func NewTransactor(db *gorm.DB) *Transactor {
	return &Transactor{db: db}
}

// Within runs fn in a transaction. A context already carrying a transaction
// joins it instead of nesting. The transaction is rolled back when fn
// returns an error and committed otherwise.
func (t *Transactor) Within(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// Conn returns the transaction carried by ctx, or db bound to ctx
func Conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

// InTransaction reports whether ctx carries a transaction opened by Within
func InTransaction(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*gorm.DB)
	return ok
}
