package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"account_system/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUseBalance(t *testing.T) {
	f := newFixture(t, time.Second)
	u := f.user(t, "alice")
	number := f.account(t, u.ID, 10000)

	result, err := f.transactions.UseBalance(context.Background(), u.ID, number, 1000)
	require.NoError(t, err)
	assert.Equal(t, number, result.AccountNumber)
	assert.Equal(t, domain.TransactionTypeUse, result.TransactionType)
	assert.Equal(t, domain.TransactionResultSuccess, result.TransactionResult)
	assert.Equal(t, int64(1000), result.Amount)
	assert.Equal(t, int64(9000), result.BalanceSnapshot)
	assert.Len(t, result.TransactionID, 32)
	assert.False(t, result.TransactedAt.IsZero())

	assert.Equal(t, int64(9000), f.balance(t, number))

	select {
	case e := <-f.publisher.events:
		assert.Equal(t, domain.EventTransactionUsed, e.EventType)
		assert.Equal(t, result.TransactionID, e.TransactionID)
		assert.Equal(t, int64(9000), e.BalanceSnapshot)
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
}

func TestUseBalanceFullBalance(t *testing.T) {
	f := newFixture(t, time.Second)
	u := f.user(t, "alice")
	number := f.account(t, u.ID, 500)

	result, err := f.transactions.UseBalance(context.Background(), u.ID, number, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.BalanceSnapshot)
}

func TestUseBalanceRejectionsWithoutRecord(t *testing.T) {
	f := newFixture(t, time.Second)
	u := f.user(t, "alice")
	number := f.account(t, u.ID, 10000)

	tests := []struct {
		name    string
		userID  int64
		number  string
		amount  int64
		wantErr error
	}{
		{"unknown user wins over bad amount", 999, number, 1, domain.ErrUserNotFound},
		{"amount below minimum", u.ID, number, 9, domain.ErrInvalidArgument},
		{"amount above maximum", u.ID, number, domain.MaxUseAmount + 1, domain.ErrInvalidArgument},
		{"unknown account", u.ID, "9999999999", 100, domain.ErrAccountNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.transactions.UseBalance(context.Background(), tt.userID, tt.number, tt.amount)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Empty(t, f.records(t, number))
	assert.Equal(t, int64(10000), f.balance(t, number))
}

func TestUseBalanceRejectionsRecordFailure(t *testing.T) {
	f := newFixture(t, time.Second)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	small := f.account(t, alice.ID, 100)
	bobs := f.account(t, bob.ID, 5000)
	closed := f.account(t, alice.ID, 0)
	_, err := f.accounts.DeleteAccount(context.Background(), alice.ID, closed)
	require.NoError(t, err)

	tests := []struct {
		name    string
		number  string
		amount  int64
		wantErr error
		balance int64
	}{
		{"owner mismatch", bobs, 100, domain.ErrUserAccountMismatch, 5000},
		{"unregistered account", closed, 100, domain.ErrAccountAlreadyUnregistered, 0},
		{"amount exceeds balance", small, 101, domain.ErrAmountExceedBalance, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.transactions.UseBalance(context.Background(), alice.ID, tt.number, tt.amount)
			require.ErrorIs(t, err, tt.wantErr)

			records := f.records(t, tt.number)
			require.Len(t, records, 1)
			assert.Equal(t, domain.TransactionTypeUse, records[0].TransactionType)
			assert.Equal(t, domain.TransactionResultFail, records[0].TransactionResultType)
			assert.Equal(t, tt.amount, records[0].Amount)
			assert.Equal(t, tt.balance, records[0].BalanceSnapshot)
			assert.Equal(t, tt.balance, f.balance(t, tt.number))
		})
	}
}

func TestUseBalanceLockContention(t *testing.T) {
	f := newFixture(t, 50*time.Millisecond)
	u := f.user(t, "alice")
	number := f.account(t, u.ID, 1000)

	unlock, err := f.locker.Lock(context.Background(), number)
	require.NoError(t, err)

	_, err = f.transactions.UseBalance(context.Background(), u.ID, number, 100)
	assert.ErrorIs(t, err, domain.ErrAccountTransactionLock)
	assert.Empty(t, f.records(t, number))

	unlock()
	_, err = f.transactions.UseBalance(context.Background(), u.ID, number, 100)
	assert.NoError(t, err)
}

func TestConcurrentUseNeverOverdraws(t *testing.T) {
	f := newFixture(t, 10*time.Second)
	u := f.user(t, "alice")
	number := f.account(t, u.ID, 1000)

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.transactions.UseBalance(context.Background(), u.ID, number, 100)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrAmountExceedBalance)
	}
	assert.Equal(t, 10, succeeded)
	assert.Equal(t, int64(0), f.balance(t, number))
}

func TestCancelBalance(t *testing.T) {
	f := newFixture(t, time.Second)
	u := f.user(t, "alice")
	number := f.account(t, u.ID, 10000)
	use, err := f.transactions.UseBalance(context.Background(), u.ID, number, 1000)
	require.NoError(t, err)

	result, err := f.transactions.CancelBalance(context.Background(), use.TransactionID, number, 1000)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionTypeCancel, result.TransactionType)
	assert.Equal(t, domain.TransactionResultSuccess, result.TransactionResult)
	assert.Equal(t, int64(10000), result.BalanceSnapshot)
	assert.NotEqual(t, use.TransactionID, result.TransactionID)
	assert.Equal(t, int64(10000), f.balance(t, number))

	// The USE record itself is never rewritten
	original, err := f.transactions.QueryTransaction(context.Background(), use.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionResultSuccess, original.TransactionResult)
	assert.Equal(t, int64(9000), original.BalanceSnapshot)

	_, err = f.transactions.CancelBalance(context.Background(), use.TransactionID, number, 1000)
	assert.ErrorIs(t, err, domain.ErrTransactionAlreadyCancelled)
	assert.Equal(t, int64(10000), f.balance(t, number))
}

func TestCancelBalancePrecedence(t *testing.T) {
	f := newFixture(t, time.Second)
	u := f.user(t, "alice")
	number := f.account(t, u.ID, 10000)
	other := f.account(t, u.ID, 10000)
	use, err := f.transactions.UseBalance(context.Background(), u.ID, number, 1000)
	require.NoError(t, err)
	_, err = f.transactions.UseBalance(context.Background(), u.ID, number, 20000)
	require.ErrorIs(t, err, domain.ErrAmountExceedBalance)
	failedUse := f.records(t, number)[1]
	require.Equal(t, domain.TransactionResultFail, failedUse.TransactionResultType)

	tests := []struct {
		name          string
		transactionID string
		number        string
		amount        int64
		wantErr       error
	}{
		{"unknown transaction wins over unknown account", "missing", "9999999999", 1000, domain.ErrTransactionNotFound},
		{"failed use cannot be cancelled", failedUse.TransactionID, number, 20000, domain.ErrTransactionNotFound},
		{"unknown account", use.TransactionID, "9999999999", 1000, domain.ErrAccountNotFound},
		{"other account", use.TransactionID, other, 1000, domain.ErrTransactionAccountUnMatch},
		{"partial amount", use.TransactionID, number, 500, domain.ErrCancelMustFully},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.transactions.CancelBalance(context.Background(), tt.transactionID, tt.number, tt.amount)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.Equal(t, int64(9000), f.balance(t, number))
	assert.Equal(t, int64(10000), f.balance(t, other))
}

func TestCancelBalanceRecordsFailure(t *testing.T) {
	f := newFixture(t, time.Second)
	u := f.user(t, "alice")
	number := f.account(t, u.ID, 10000)
	use, err := f.transactions.UseBalance(context.Background(), u.ID, number, 1000)
	require.NoError(t, err)

	_, err = f.transactions.CancelBalance(context.Background(), use.TransactionID, number, 500)
	require.ErrorIs(t, err, domain.ErrCancelMustFully)

	records := f.records(t, number)
	require.Len(t, records, 2)
	failed := records[1]
	assert.Equal(t, domain.TransactionTypeCancel, failed.TransactionType)
	assert.Equal(t, domain.TransactionResultFail, failed.TransactionResultType)
	assert.Equal(t, int64(500), failed.Amount)
	assert.Equal(t, int64(9000), failed.BalanceSnapshot)
	require.NotNil(t, failed.CanceledTransactionID)
	assert.Equal(t, use.TransactionID, *failed.CanceledTransactionID)

	// A failed cancel does not block the full one
	_, err = f.transactions.CancelBalance(context.Background(), use.TransactionID, number, 1000)
	assert.NoError(t, err)
}

func TestCancelBalanceTooOld(t *testing.T) {
	f := newFixture(t, time.Second)
	u := f.user(t, "alice")
	number := f.account(t, u.ID, 10000)
	use, err := f.transactions.UseBalance(context.Background(), u.ID, number, 1000)
	require.NoError(t, err)

	f.transactions.now = func() time.Time { return time.Now().UTC().Add(domain.DefaultCancelWindow + time.Hour) }

	_, err = f.transactions.CancelBalance(context.Background(), use.TransactionID, number, 1000)
	assert.ErrorIs(t, err, domain.ErrTooOldOrderToCancelBalance)
	assert.Equal(t, int64(9000), f.balance(t, number))
}

func TestCancelBalanceOnUnregisteredAccount(t *testing.T) {
	f := newFixture(t, time.Second)
	u := f.user(t, "alice")
	number := f.account(t, u.ID, 1000)
	use, err := f.transactions.UseBalance(context.Background(), u.ID, number, 1000)
	require.NoError(t, err)
	_, err = f.accounts.DeleteAccount(context.Background(), u.ID, number)
	require.NoError(t, err)

	_, err = f.transactions.CancelBalance(context.Background(), use.TransactionID, number, 1000)
	assert.ErrorIs(t, err, domain.ErrAccountAlreadyUnregistered)
	assert.Equal(t, int64(0), f.balance(t, number))
}

func TestConcurrentCancelAppliesOnce(t *testing.T) {
	f := newFixture(t, 10*time.Second)
	u := f.user(t, "alice")
	number := f.account(t, u.ID, 10000)
	use, err := f.transactions.UseBalance(context.Background(), u.ID, number, 1000)
	require.NoError(t, err)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.transactions.CancelBalance(context.Background(), use.TransactionID, number, 1000)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrTransactionAlreadyCancelled)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, int64(10000), f.balance(t, number))
}

func TestQueryTransaction(t *testing.T) {
	f := newFixture(t, time.Second)
	u := f.user(t, "alice")
	number := f.account(t, u.ID, 100)
	use, err := f.transactions.UseBalance(context.Background(), u.ID, number, 40)
	require.NoError(t, err)

	got, err := f.transactions.QueryTransaction(context.Background(), use.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, use.TransactionID, got.TransactionID)
	assert.Equal(t, number, got.AccountNumber)
	assert.Equal(t, int64(60), got.BalanceSnapshot)

	_, err = f.transactions.UseBalance(context.Background(), u.ID, number, 1000)
	require.ErrorIs(t, err, domain.ErrAmountExceedBalance)
	failed := f.records(t, number)[1]
	got, err = f.transactions.QueryTransaction(context.Background(), failed.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionResultFail, got.TransactionResult)

	_, err = f.transactions.QueryTransaction(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestListTransactions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Second)
	u := f.user(t, "alice")
	number := f.account(t, u.ID, 100)
	account, err := f.accounts.GetAccountByNumber(ctx, number)
	require.NoError(t, err)

	use, err := f.transactions.UseBalance(ctx, u.ID, number, 40)
	require.NoError(t, err)
	_, err = f.transactions.UseBalance(ctx, u.ID, number, 1000)
	require.ErrorIs(t, err, domain.ErrAmountExceedBalance)
	cancel, err := f.transactions.CancelBalance(ctx, use.TransactionID, number, 40)
	require.NoError(t, err)

	history, err := f.transactions.ListTransactions(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, use.TransactionID, history[0].TransactionID)
	assert.Equal(t, domain.TransactionResultFail, history[1].TransactionResult)
	assert.Equal(t, cancel.TransactionID, history[2].TransactionID)
	for _, r := range history {
		assert.Equal(t, number, r.AccountNumber)
	}

	_, err = f.transactions.ListTransactions(ctx, account.ID+100)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	_, err = f.transactions.ListTransactions(ctx, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestNewTransactionServiceDefaultsCancelWindow(t *testing.T) {
	f := newFixture(t, time.Second)
	s := NewTransactionService(f.store, f.store, f.store, f.store, f.locker, nil, 0)
	assert.Equal(t, domain.DefaultCancelWindow, s.cancelWindow)
}
