package service

import (
	"context"
	"strings"
	"time"

	"account_system/internal/domain"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// TransactionService applies USE and CANCEL balance mutations.
//
// Every mutation runs under the account's distributed lock and, inside it,
// a database transaction holding the account row lock. Attempts rejected by
// a business rule after the account was resolved are recorded as F
// transactions once the unit of work has rolled back.
type TransactionService struct {
	users        domain.UserRepository
	accounts     domain.AccountRepository
	transactions domain.TransactionRepository
	txManager    domain.TransactionManager
	locker       domain.AccountLocker
	// Optional event publisher for committed mutations
	publisher    domain.EventPublisher
	cancelWindow time.Duration
	now          func() time.Time
}

// NewTransactionService creates a new TransactionService.
// Pass nil for publisher if no events should be emitted; a non-positive
// cancelWindow falls back to domain.DefaultCancelWindow.
func NewTransactionService(
	users domain.UserRepository,
	accounts domain.AccountRepository,
	transactions domain.TransactionRepository,
	txManager domain.TransactionManager,
	locker domain.AccountLocker,
	publisher domain.EventPublisher,
	cancelWindow time.Duration,
) *TransactionService {
	if cancelWindow <= 0 {
		cancelWindow = domain.DefaultCancelWindow
	}
	return &TransactionService{
		users:        users,
		accounts:     accounts,
		transactions: transactions,
		txManager:    txManager,
		locker:       locker,
		publisher:    publisher,
		cancelWindow: cancelWindow,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// failedAttempt is the account state a rejected mutation is recorded against.
type failedAttempt struct {
	accountID int64
	balance   int64
}

// UseBalance debits amount from the user's account.
// Checks run in this order: user, amount bounds, account, owner, status, balance.
func (s *TransactionService) UseBalance(ctx context.Context, userID int64, accountNumber string, amount int64) (*TransactionResult, error) {
	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	if amount < domain.MinUseAmount || amount > domain.MaxUseAmount {
		return nil, domain.NewAccountError(domain.InvalidArgument,
			"amount must be between %d and %d", domain.MinUseAmount, domain.MaxUseAmount)
	}

	unlock, err := s.locker.Lock(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var failed *failedAttempt
	var result *TransactionResult
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		account, err := s.accounts.LockAccountByNumber(txCtx, accountNumber)
		if err != nil {
			return err
		}
		if account == nil {
			return domain.ErrAccountNotFound
		}

		failed = &failedAttempt{accountID: account.ID, balance: account.Balance}
		if !account.IsOwnedBy(user.ID) {
			return domain.ErrUserAccountMismatch
		}
		if account.IsUnregistered() {
			return domain.ErrAccountAlreadyUnregistered
		}
		if err := account.Debit(amount); err != nil {
			return err
		}
		failed = nil

		saved, err := s.accounts.SaveAccount(txCtx, account)
		if err != nil {
			return err
		}
		t, err := s.transactions.SaveTransaction(txCtx,
			s.newTransaction(domain.TransactionTypeUse, domain.TransactionResultSuccess, saved, amount, nil))
		if err != nil {
			return err
		}
		result = newTransactionResult(saved.AccountNumber, t)
		return nil
	})
	if err != nil {
		if failed != nil && domain.CodeOf(err) != "" {
			s.recordFailure(ctx, domain.TransactionTypeUse, failed, amount, nil, err)
		}
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":        userID,
		"account_number": accountNumber,
		"amount":         amount,
		"transaction_id": result.TransactionID,
		"balance":        result.BalanceSnapshot,
	}).Info("Use transaction")
	s.publish(domain.EventTransactionUsed, result)
	return result, nil
}

// CancelBalance reverses a successful USE in full.
// Checks run in this order: original transaction, account, transaction
// belongs to account, full amount, not yet cancelled, within the cancel
// window, account still in use.
func (s *TransactionService) CancelBalance(ctx context.Context, transactionID, accountNumber string, amount int64) (*TransactionResult, error) {
	unlock, err := s.locker.Lock(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var failed *failedAttempt
	var result *TransactionResult
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		// Lock first: everything read afterwards reflects every cancel
		// committed against this account before us.
		account, err := s.accounts.LockAccountByNumber(txCtx, accountNumber)
		if err != nil {
			return err
		}
		original, err := s.transactions.FindTransactionByTransactionID(txCtx, transactionID)
		if err != nil {
			return err
		}
		if original == nil || !original.IsSuccessfulUse() {
			return domain.ErrTransactionNotFound
		}
		if account == nil {
			return domain.ErrAccountNotFound
		}

		failed = &failedAttempt{accountID: account.ID, balance: account.Balance}
		if original.AccountID != account.ID {
			return domain.ErrTransactionAccountUnMatch
		}
		if original.Amount != amount {
			return domain.ErrCancelMustFully
		}
		previous, err := s.transactions.FindSuccessfulCancel(txCtx, transactionID)
		if err != nil {
			return err
		}
		if previous != nil {
			return domain.ErrTransactionAlreadyCancelled
		}
		if original.OlderThan(s.cancelWindow, s.now()) {
			return domain.ErrTooOldOrderToCancelBalance
		}
		if account.IsUnregistered() {
			return domain.ErrAccountAlreadyUnregistered
		}
		account.Credit(amount)
		failed = nil

		saved, err := s.accounts.SaveAccount(txCtx, account)
		if err != nil {
			return err
		}
		t, err := s.transactions.SaveTransaction(txCtx,
			s.newTransaction(domain.TransactionTypeCancel, domain.TransactionResultSuccess, saved, amount, &transactionID))
		if err != nil {
			return err
		}
		result = newTransactionResult(saved.AccountNumber, t)
		return nil
	})
	if err != nil {
		if failed != nil && domain.CodeOf(err) != "" {
			s.recordFailure(ctx, domain.TransactionTypeCancel, failed, amount, &transactionID, err)
		}
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"account_number":          accountNumber,
		"amount":                  amount,
		"transaction_id":          result.TransactionID,
		"canceled_transaction_id": transactionID,
		"balance":                 result.BalanceSnapshot,
	}).Info("Cancel transaction")
	s.publish(domain.EventTransactionCancelled, result)
	return result, nil
}

// QueryTransaction returns a stored transaction record, failed ones included.
func (s *TransactionService) QueryTransaction(ctx context.Context, transactionID string) (*TransactionResult, error) {
	t, err := s.transactions.FindTransactionByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, domain.ErrTransactionNotFound
	}
	account, err := s.accounts.FindAccountByID(ctx, t.AccountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrAccountNotFound
	}
	return newTransactionResult(account.AccountNumber, t), nil
}

// ListTransactions returns the history of an account by internal id, oldest first.
func (s *TransactionService) ListTransactions(ctx context.Context, accountID int64) ([]TransactionResult, error) {
	if accountID < 0 {
		return nil, domain.NewAccountError(domain.InvalidArgument, "account id must not be negative: %d", accountID)
	}
	account, err := s.accounts.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrAccountNotFound
	}
	ts, err := s.transactions.FindTransactionsByAccount(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	results := make([]TransactionResult, 0, len(ts))
	for i := range ts {
		results = append(results, *newTransactionResult(account.AccountNumber, &ts[i]))
	}
	return results, nil
}

func (s *TransactionService) newTransaction(
	typ domain.TransactionType,
	res domain.TransactionResultType,
	account *domain.Account,
	amount int64,
	canceled *string,
) *domain.Transaction {
	return &domain.Transaction{
		TransactionID:         newTransactionID(),
		AccountID:             account.ID,
		TransactionType:       typ,
		TransactionResultType: res,
		Amount:                amount,
		BalanceSnapshot:       account.Balance,
		CanceledTransactionID: canceled,
		TransactedAt:          s.now(),
	}
}

// recordFailure writes the F record of a rejected attempt. It outlives the
// request context; a write failure is logged and never replaces cause.
func (s *TransactionService) recordFailure(
	ctx context.Context,
	typ domain.TransactionType,
	failed *failedAttempt,
	amount int64,
	canceled *string,
	cause error,
) {
	t := &domain.Transaction{
		TransactionID:         newTransactionID(),
		AccountID:             failed.accountID,
		TransactionType:       typ,
		TransactionResultType: domain.TransactionResultFail,
		Amount:                amount,
		BalanceSnapshot:       failed.balance,
		CanceledTransactionID: canceled,
		TransactedAt:          s.now(),
	}
	fields := logrus.Fields{
		"account_id":     failed.accountID,
		"type":           typ,
		"amount":         amount,
		"transaction_id": t.TransactionID,
		"error_code":     domain.CodeOf(cause),
	}
	if _, err := s.transactions.SaveTransaction(context.WithoutCancel(ctx), t); err != nil {
		fields["error"] = err.Error()
		logrus.WithFields(fields).Error("Failed to record failed transaction")
		return
	}
	logrus.WithFields(fields).Warn("Transaction rejected")
}

// publish emits the event in the background. The mutation has already
// committed, so a broker failure is only logged.
func (s *TransactionService) publish(eventType string, r *TransactionResult) {
	if s.publisher == nil {
		return
	}
	event := domain.TransactionEvent{
		EventType:       eventType,
		TransactionID:   r.TransactionID,
		AccountNumber:   r.AccountNumber,
		Amount:          r.Amount,
		BalanceSnapshot: r.BalanceSnapshot,
		TransactedAt:    r.TransactedAt,
	}
	go func() {
		if err := s.publisher.PublishTransaction(context.Background(), event); err != nil {
			logrus.WithFields(logrus.Fields{
				"event_type":     eventType,
				"transaction_id": event.TransactionID,
				"error":          err.Error(),
			}).Error("Failed to publish transaction event")
		}
	}()
}

// newTransactionID returns a 32-character opaque id.
func newTransactionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
