package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"account_system/internal/domain"

	"github.com/sirupsen/logrus"
)

// maxCreateAttempts bounds the retries of an account insert that lost an
// account-number race.
const maxCreateAttempts = 5

// AccountService opens, closes and looks up accounts.
type AccountService struct {
	users     domain.UserRepository
	accounts  domain.AccountRepository
	txManager domain.TransactionManager
	numbers   *NumberGenerator
	now       func() time.Time
}

// NewAccountService creates a new AccountService.
func NewAccountService(
	users domain.UserRepository,
	accounts domain.AccountRepository,
	txManager domain.TransactionManager,
) *AccountService {
	return &AccountService{
		users:     users,
		accounts:  accounts,
		txManager: txManager,
		numbers:   NewNumberGenerator(accounts),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateAccount opens an IN_USE account for the user with the given balance.
//
// The user row is locked for the whole unit of work so two creations for the
// same user cannot both pass the account-count check, and the number read
// stays locked until the insert commits. An insert that still collides on
// the account number is retried from scratch.
func (s *AccountService) CreateAccount(ctx context.Context, userID, initialBalance int64) (*AccountSummary, error) {
	if initialBalance < 0 {
		return nil, domain.NewAccountError(domain.InvalidArgument, "initial balance must not be negative")
	}

	var created *domain.Account
	var err error
	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
			user, err := s.users.LockUserByID(txCtx, userID)
			if err != nil {
				return err
			}
			if user == nil {
				return domain.ErrUserNotFound
			}

			count, err := s.accounts.CountActiveAccountsForUser(txCtx, user.ID)
			if err != nil {
				return err
			}
			if count >= domain.MaxAccountsPerUser {
				return domain.ErrMaxAccountPerUserExceeded
			}

			number, err := s.numbers.Next(txCtx)
			if err != nil {
				return err
			}
			created, err = s.accounts.SaveAccount(txCtx, domain.NewAccount(user.ID, number, initialBalance, s.now()))
			return err
		})
		if !errors.Is(err, domain.ErrWriteConflict) {
			break
		}
		logrus.WithFields(logrus.Fields{
			"user_id": userID,
			"attempt": attempt,
			"error":   err.Error(),
		}).Warn("Account number conflict, retrying")
	}
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":        userID,
		"account_number": created.AccountNumber,
		"balance":        created.Balance,
	}).Info("Account created")

	registeredAt := created.RegisteredAt
	return &AccountSummary{
		UserID:        created.AccountUserID,
		AccountNumber: created.AccountNumber,
		RegisteredAt:  &registeredAt,
	}, nil
}

// DeleteAccount unregisters the user's account. Checks run in this order:
// user, account, owner, empty balance, not yet unregistered.
func (s *AccountService) DeleteAccount(ctx context.Context, userID int64, accountNumber string) (*AccountSummary, error) {
	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}

	var closed *domain.Account
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		account, err := s.accounts.LockAccountByNumber(txCtx, accountNumber)
		if err != nil {
			return err
		}
		if account == nil {
			return domain.ErrAccountNotFound
		}
		if !account.IsOwnedBy(user.ID) {
			return domain.ErrUserAccountMismatch
		}
		if account.Balance != 0 {
			return domain.ErrBalanceNotEmpty
		}
		if account.IsUnregistered() {
			return domain.ErrAccountAlreadyUnregistered
		}

		account.Unregister(s.now())
		closed, err = s.accounts.SaveAccount(txCtx, account)
		return err
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":        userID,
		"account_number": closed.AccountNumber,
	}).Info("Account unregistered")

	return &AccountSummary{
		UserID:         closed.AccountUserID,
		AccountNumber:  closed.AccountNumber,
		UnregisteredAt: closed.UnregisteredAt,
	}, nil
}

// GetAccount looks an account up by internal id. Negative ids are rejected
// before storage is consulted.
func (s *AccountService) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	if id < 0 {
		return nil, domain.NewAccountError(domain.InvalidArgument, "account id must not be negative: %d", id)
	}
	account, err := s.accounts.FindAccountByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrAccountNotFound
	}
	return account, nil
}

// GetAccountByNumber looks an account up by account number.
func (s *AccountService) GetAccountByNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	account, err := s.accounts.FindAccountByNumber(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrAccountNotFound
	}
	return account, nil
}

// ListAccounts returns every account of the user, closed ones included.
func (s *AccountService) ListAccounts(ctx context.Context, userID int64) ([]AccountInfo, error) {
	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}

	accounts, err := s.accounts.FindAccountsByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts of user %d: %w", userID, err)
	}
	infos := make([]AccountInfo, 0, len(accounts))
	for _, a := range accounts {
		infos = append(infos, AccountInfo{
			AccountNumber: a.AccountNumber,
			Balance:       a.Balance,
			AccountStatus: a.AccountStatus,
		})
	}
	return infos, nil
}
