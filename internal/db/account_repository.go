package db

import (
	"context"
	"fmt"

	"account_system/internal/domain"

	"gorm.io/gorm"
)

// AccountRepository implements domain.AccountRepository using GORM.
type AccountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// FindAccountByNumber retrieves an account by its account number.
func (r *AccountRepository) FindAccountByNumber(ctx context.Context, number string) (*domain.Account, error) {
	var account domain.Account
	err := conn(ctx, r.db).Where("account_number = ?", number).Take(&account).Error
	return found(&account, err, "account")
}

// FindAccountByID retrieves an account by primary key.
func (r *AccountRepository) FindAccountByID(ctx context.Context, id int64) (*domain.Account, error) {
	var account domain.Account
	err := conn(ctx, r.db).Where("id = ?", id).Take(&account).Error
	return found(&account, err, "account")
}

// FindLastAccount retrieves the account with the highest number.
// Inside a transaction this is a locking read: InnoDB holds the next-key
// lock on the last index entry, so concurrent creators queue up behind it.
func (r *AccountRepository) FindLastAccount(ctx context.Context) (*domain.Account, error) {
	q := conn(ctx, r.db)
	if inTx(ctx) {
		q = forUpdate(q)
	}
	var account domain.Account
	err := q.Order("account_number DESC").Limit(1).Take(&account).Error
	return found(&account, err, "last account")
}

// LockAccountByNumber retrieves an account and locks its row.
// This method MUST be called within a transaction context.
func (r *AccountRepository) LockAccountByNumber(ctx context.Context, number string) (*domain.Account, error) {
	var account domain.Account
	err := forUpdate(conn(ctx, r.db)).Where("account_number = ?", number).Take(&account).Error
	return found(&account, err, "account")
}

// CountActiveAccountsForUser counts the user's accounts that are not UNREGISTERED.
func (r *AccountRepository) CountActiveAccountsForUser(ctx context.Context, userID int64) (int, error) {
	var count int64
	err := conn(ctx, r.db).Model(&domain.Account{}).
		Where("account_user_id = ? AND account_status <> ?", userID, domain.AccountStatusUnregistered).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", translateError(err))
	}
	return int(count), nil
}

// FindAccountsByUser lists every account of the user, oldest first.
func (r *AccountRepository) FindAccountsByUser(ctx context.Context, userID int64) ([]domain.Account, error) {
	var accounts []domain.Account
	err := conn(ctx, r.db).Where("account_user_id = ?", userID).Order("id").Find(&accounts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", translateError(err))
	}
	return accounts, nil
}

// SaveAccount inserts a new account or updates an existing one.
func (r *AccountRepository) SaveAccount(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	if err := conn(ctx, r.db).Save(account).Error; err != nil {
		return nil, fmt.Errorf("failed to save account: %w", translateError(err))
	}
	return account, nil
}
