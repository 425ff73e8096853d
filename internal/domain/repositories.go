package domain

import (
	"context"
	"errors"
	"time"
)

// ErrWriteConflict is returned by a repository when a write lost a race
// (duplicate key or deadlock). The whole transaction may be retried.
var ErrWriteConflict = errors.New("write conflict")

// Lookups return (nil, nil) when the row does not exist.

// UserRepository defines data access for AccountUser.
type UserRepository interface {
	FindUserByID(ctx context.Context, id int64) (*AccountUser, error)

	// LockUserByID is FindUserByID holding the user's row lock until the
	// surrounding transaction ends. It serializes account creation per user.
	LockUserByID(ctx context.Context, id int64) (*AccountUser, error)

	FindUserByName(ctx context.Context, name string) (*AccountUser, error)
	CreateUser(ctx context.Context, user *AccountUser) error
}

// AccountRepository defines data access for Account.
type AccountRepository interface {
	FindAccountByNumber(ctx context.Context, number string) (*Account, error)
	FindAccountByID(ctx context.Context, id int64) (*Account, error)

	// FindLastAccount returns the account with the highest number. Inside a
	// transaction the row (or, for an empty table, the insert position) stays
	// locked until the transaction ends.
	FindLastAccount(ctx context.Context) (*Account, error)

	// LockAccountByNumber is FindAccountByNumber holding the account's row
	// lock until the surrounding transaction ends.
	LockAccountByNumber(ctx context.Context, number string) (*Account, error)

	CountActiveAccountsForUser(ctx context.Context, userID int64) (int, error)
	FindAccountsByUser(ctx context.Context, userID int64) ([]Account, error)

	// SaveAccount inserts or updates the account. A clash on the account
	// number yields ErrWriteConflict.
	SaveAccount(ctx context.Context, account *Account) (*Account, error)
}

// TransactionRepository defines data access for Transaction.
type TransactionRepository interface {
	FindTransactionByTransactionID(ctx context.Context, transactionID string) (*Transaction, error)

	// FindSuccessfulCancel returns the successful CANCEL that reversed the
	// given USE, if any.
	FindSuccessfulCancel(ctx context.Context, transactionID string) (*Transaction, error)

	// FindTransactionsByAccount returns every record made against the
	// account, failed attempts included, oldest first.
	FindTransactionsByAccount(ctx context.Context, accountID int64) ([]Transaction, error)

	SaveTransaction(ctx context.Context, transaction *Transaction) (*Transaction, error)
}

// TransactionManager runs a unit of work atomically. If fn returns an
// error every write made through the context it received is rolled back.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// AccountLocker grants short exclusive access to an account across
// processes. Lock fails with ErrAccountTransactionLock when the wait elapses.
type AccountLocker interface {
	Lock(ctx context.Context, accountNumber string) (func(), error)
}

// TransactionEvent is published after a balance mutation commits.
type TransactionEvent struct {
	EventType       string    `json:"eventType"`
	TransactionID   string    `json:"transactionId"`
	AccountNumber   string    `json:"accountNumber"`
	Amount          int64     `json:"amount"`
	BalanceSnapshot int64     `json:"balanceSnapshot"`
	TransactedAt    time.Time `json:"transactedAt"`
}

// Event types
const (
	EventTransactionUsed      = "transaction.used"
	EventTransactionCancelled = "transaction.cancelled"
)

// EventPublisher emits domain events to external systems.
type EventPublisher interface {
	PublishTransaction(ctx context.Context, event TransactionEvent) error
}
