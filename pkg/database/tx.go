package database

import (
	"context"

	"anoa.com/foodrescue/pkg/retry"
	"gorm.io/gorm"
)

type txKey struct{}

// Transactor runs fn inside one database transaction. Repositories pick the
// transaction up from ctx through Conn.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type gormTransactor struct {
	db    *gorm.DB
	retry retry.Config
}

func NewTransactor(db *gorm.DB, cfg retry.Config) Transactor {
	return &gormTransactor{db: db, retry: cfg}
}

// WithinTransaction joins an outer transaction when ctx carries one.
// A top-level transaction that fails with a transient error is retried whole.
func (t *gormTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if InTransaction(ctx) {
		return fn(ctx)
	}

	return retry.Do(ctx, t.retry, func(ctx context.Context) error {
		return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(WithTx(ctx, tx))
		})
	})
}

// WithTx binds tx to ctx so Conn and InTransaction see it.
func WithTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// InTransaction reports whether ctx carries an open transaction.
func InTransaction(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*gorm.DB)
	return ok
}

// Conn returns the transaction bound to ctx, or db scoped to ctx.
func Conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}

// Detached drops any transaction from ctx while keeping its deadline and
// values. Used for writes that must survive a rollback.
func Detached(ctx context.Context) context.Context {
	if !InTransaction(ctx) {
		return ctx
	}
	return context.WithValue(ctx, txKey{}, nil)
}
