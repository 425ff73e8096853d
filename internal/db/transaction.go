package db

import (
	"context"
	"errors"
	"fmt"

	"account_system/internal/domain"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MySQL error numbers that mean the transaction lost a race
const (
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

// txKey is the key type for storing the gorm transaction in context.
type txKey struct{}

// TransactionManager implements domain.TransactionManager using GORM.
type TransactionManager struct {
	db *gorm.DB
}

// NewTransactionManager creates a new TransactionManager.
func NewTransactionManager(db *gorm.DB) *TransactionManager {
	return &TransactionManager{db: db}
}

// WithTransaction executes fn within a database transaction. The transaction
// is stored in the context so repositories pick it up. Calls nested inside an
// open transaction join it.
func (tm *TransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}
	err := tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
	return translateError(err)
}

// conn returns the transaction from ctx, or the pool bound to ctx.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}

func inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*gorm.DB)
	return ok
}

// forUpdate appends SELECT ... FOR UPDATE.
func forUpdate(q *gorm.DB) *gorm.DB {
	return q.Clauses(clause.Locking{Strength: "UPDATE"})
}

// translateError maps races reported by MySQL onto domain.ErrWriteConflict.
// Business errors returned by the unit of work pass through untouched.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", domain.ErrWriteConflict, err)
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlDeadlock, mysqlLockWaitTimeout:
			return fmt.Errorf("%w: %v", domain.ErrWriteConflict, err)
		}
	}
	return err
}

// found normalizes a single-row lookup: missing rows become (nil, nil).
func found[T any](v *T, err error, what string) (*T, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find %s: %w", what, translateError(err))
	}
	return v, nil
}
