package domain

import "time"

// TransactionType tells a debit from its reversal.
type TransactionType string

const (
	TransactionTypeUse    TransactionType = "USE"
	TransactionTypeCancel TransactionType = "CANCEL"
)

// TransactionResultType records whether the attempt was applied.
type TransactionResultType string

const (
	TransactionResultSuccess TransactionResultType = "S"
	TransactionResultFail    TransactionResultType = "F"
)

// Bounds for a single use amount
const (
	MinUseAmount int64 = 10
	MaxUseAmount int64 = 1_000_000_000
)

// DefaultCancelWindow is how long a USE stays cancellable.
const DefaultCancelWindow = 365 * 24 * time.Hour

// Transaction records one USE or CANCEL attempt. Rows are written once and
// never updated. BalanceSnapshot is the balance right after the attempt and
// CanceledTransactionID is set on a CANCEL to the USE it reverses.
type Transaction struct {
	ID                    int64                 `gorm:"primaryKey" json:"id"`
	TransactionID         string                `gorm:"size:32;uniqueIndex;not null" json:"transactionId"`
	AccountID             int64                 `gorm:"index;not null" json:"accountId"`
	TransactionType       TransactionType       `gorm:"size:8;not null" json:"transactionType"`
	TransactionResultType TransactionResultType `gorm:"size:1;not null" json:"transactionResultType"`
	Amount                int64                 `gorm:"not null" json:"amount"`
	BalanceSnapshot       int64                 `gorm:"not null" json:"balanceSnapshot"`
	CanceledTransactionID *string               `gorm:"size:32;index" json:"canceledTransactionId,omitempty"`
	TransactedAt          time.Time             `gorm:"not null" json:"transactedAt"`
	CreatedAt             time.Time             `json:"createdAt"`
}

// IsSuccessfulUse reports whether t is an applied debit.
func (t *Transaction) IsSuccessfulUse() bool {
	return t.TransactionType == TransactionTypeUse && t.TransactionResultType == TransactionResultSuccess
}

// OlderThan reports whether t happened more than window before now.
func (t *Transaction) OlderThan(window time.Duration, now time.Time) bool {
	return t.TransactedAt.Before(now.Add(-window))
}
