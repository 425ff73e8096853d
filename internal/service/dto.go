package service

import (
	"time"

	"account_system/internal/domain"
)

// AccountSummary is returned by account open and close.
type AccountSummary struct {
	UserID         int64      `json:"userId"`
	AccountNumber  string     `json:"accountNumber"`
	RegisteredAt   *time.Time `json:"registeredAt,omitempty"`
	UnregisteredAt *time.Time `json:"unregisteredAt,omitempty"`
}

// AccountInfo is one line of a user's account list.
type AccountInfo struct {
	AccountNumber string               `json:"accountNumber"`
	Balance       int64                `json:"balance"`
	AccountStatus domain.AccountStatus `json:"accountStatus"`
}

// TransactionResult is returned by use, cancel and transaction lookups.
type TransactionResult struct {
	AccountNumber     string                       `json:"accountNumber"`
	TransactionType   domain.TransactionType       `json:"transactionType"`
	TransactionResult domain.TransactionResultType `json:"transactionResult"`
	TransactionID     string                       `json:"transactionId"`
	Amount            int64                        `json:"amount"`
	BalanceSnapshot   int64                        `json:"balanceSnapshot"`
	TransactedAt      time.Time                    `json:"transactedAt"`
}

func newTransactionResult(accountNumber string, t *domain.Transaction) *TransactionResult {
	return &TransactionResult{
		AccountNumber:     accountNumber,
		TransactionType:   t.TransactionType,
		TransactionResult: t.TransactionResultType,
		TransactionID:     t.TransactionID,
		Amount:            t.Amount,
		BalanceSnapshot:   t.BalanceSnapshot,
		TransactedAt:      t.TransactedAt,
	}
}
