package domain

import (
	"fmt"
	"strconv"
	"time"
)

// AccountStatus is the lifecycle state of an account.
type AccountStatus string

const (
	AccountStatusInUse        AccountStatus = "IN_USE"
	AccountStatusUnregistered AccountStatus = "UNREGISTERED"
)

const (
	// AccountNumberLength is the fixed width of every account number.
	AccountNumberLength = 10

	// MaxAccountsPerUser caps the number of active accounts one user may hold.
	MaxAccountsPerUser = 10
)

// FirstAccountNumber is assigned when no account exists yet.
var FirstAccountNumber = FormatAccountNumber(0)

// Account is a balance held by one AccountUser. Balance is in the smallest
// currency unit and never goes negative.
type Account struct {
	ID             int64         `gorm:"primaryKey" json:"id"`
	AccountUserID  int64         `gorm:"index;not null" json:"accountUserId"`
	AccountNumber  string        `gorm:"size:10;uniqueIndex;not null" json:"accountNumber"`
	Balance        int64         `gorm:"not null;default:0" json:"balance"`
	AccountStatus  AccountStatus `gorm:"size:16;not null" json:"accountStatus"`
	RegisteredAt   time.Time     `gorm:"not null" json:"registeredAt"`
	UnregisteredAt *time.Time    `json:"unregisteredAt,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// NewAccount opens an IN_USE account for the user.
func NewAccount(userID int64, number string, balance int64, now time.Time) *Account {
	return &Account{
		AccountUserID: userID,
		AccountNumber: number,
		Balance:       balance,
		AccountStatus: AccountStatusInUse,
		RegisteredAt:  now,
	}
}

// IsOwnedBy reports whether the account belongs to the given user.
func (a *Account) IsOwnedBy(userID int64) bool {
	return a.AccountUserID == userID
}

// IsUnregistered reports whether the account has been closed.
func (a *Account) IsUnregistered() bool {
	return a.AccountStatus == AccountStatusUnregistered
}

// Unregister closes the account. The caller has already checked the balance is zero.
func (a *Account) Unregister(now time.Time) {
	a.AccountStatus = AccountStatusUnregistered
	a.UnregisteredAt = &now
}

// Debit subtracts amount from the balance.
func (a *Account) Debit(amount int64) error {
	if amount > a.Balance {
		return ErrAmountExceedBalance
	}
	a.Balance -= amount
	return nil
}

// Credit adds amount to the balance.
func (a *Account) Credit(amount int64) {
	a.Balance += amount
}

// FormatAccountNumber renders n as a zero-padded account number.
func FormatAccountNumber(n uint64) string {
	return fmt.Sprintf("%0*d", AccountNumberLength, n)
}

// NextAccountNumber returns the number following last.
func NextAccountNumber(last string) (string, error) {
	n, err := strconv.ParseUint(last, 10, 64)
	if err != nil {
		return "", fmt.Errorf("malformed account number %q: %w", last, err)
	}
	next := FormatAccountNumber(n + 1)
	if len(next) > AccountNumberLength {
		return "", fmt.Errorf("account number space exhausted after %s", last)
	}
	return next, nil
}
