package service

import (
	"context"
	"testing"
	"time"

	"account_system/internal/db"
	"account_system/internal/domain"
	"account_system/internal/lock"

	"github.com/stretchr/testify/require"
)

// recordingPublisher collects published events.
type recordingPublisher struct {
	events chan domain.TransactionEvent
}

func (p *recordingPublisher) PublishTransaction(_ context.Context, e domain.TransactionEvent) error {
	p.events <- e
	return nil
}

type fixture struct {
	store        *db.MemoryStore
	locker       *lock.LocalLocker
	publisher    *recordingPublisher
	accounts     *AccountService
	transactions *TransactionService
}

func newFixture(t *testing.T, lockWait time.Duration) *fixture {
	t.Helper()
	store := db.NewMemoryStore()
	locker := lock.NewLocalLocker(lockWait)
	publisher := &recordingPublisher{events: make(chan domain.TransactionEvent, 64)}
	return &fixture{
		store:     store,
		locker:    locker,
		publisher: publisher,
		accounts:  NewAccountService(store, store, store),
		transactions: NewTransactionService(store, store, store, store, locker, publisher,
			domain.DefaultCancelWindow),
	}
}

func (f *fixture) user(t *testing.T, name string) *domain.AccountUser {
	t.Helper()
	u := &domain.AccountUser{Name: name, Password: "x"}
	require.NoError(t, f.store.CreateUser(context.Background(), u))
	return u
}

func (f *fixture) account(t *testing.T, userID, balance int64) string {
	t.Helper()
	summary, err := f.accounts.CreateAccount(context.Background(), userID, balance)
	require.NoError(t, err)
	return summary.AccountNumber
}

func (f *fixture) balance(t *testing.T, number string) int64 {
	t.Helper()
	a, err := f.accounts.GetAccountByNumber(context.Background(), number)
	require.NoError(t, err)
	return a.Balance
}

func (f *fixture) records(t *testing.T, number string) []domain.Transaction {
	t.Helper()
	a, err := f.accounts.GetAccountByNumber(context.Background(), number)
	require.NoError(t, err)
	ts, err := f.store.FindTransactionsByAccount(context.Background(), a.ID)
	require.NoError(t, err)
	return ts
}
