package db

import (
	"context"
	"fmt"

	"account_system/internal/domain"

	"gorm.io/gorm"
)

// TransactionRepository implements domain.TransactionRepository using GORM.
type TransactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// FindTransactionByTransactionID retrieves a transaction by its external id.
func (r *TransactionRepository) FindTransactionByTransactionID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	var t domain.Transaction
	err := conn(ctx, r.db).Where("transaction_id = ?", transactionID).Take(&t).Error
	return found(&t, err, "transaction")
}

// FindSuccessfulCancel retrieves the applied CANCEL of a USE transaction.
func (r *TransactionRepository) FindSuccessfulCancel(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	var t domain.Transaction
	err := conn(ctx, r.db).
		Where("canceled_transaction_id = ? AND transaction_type = ? AND transaction_result_type = ?",
			transactionID, domain.TransactionTypeCancel, domain.TransactionResultSuccess).
		Take(&t).Error
	return found(&t, err, "cancel transaction")
}

// FindTransactionsByAccount retrieves the history of an account in insertion order.
func (r *TransactionRepository) FindTransactionsByAccount(ctx context.Context, accountID int64) ([]domain.Transaction, error) {
	var ts []domain.Transaction
	if err := conn(ctx, r.db).Where("account_id = ?", accountID).Order("id").Find(&ts).Error; err != nil {
		return nil, fmt.Errorf("failed to find transactions: %w", err)
	}
	return ts, nil
}

// SaveTransaction inserts a transaction record.
func (r *TransactionRepository) SaveTransaction(ctx context.Context, t *domain.Transaction) (*domain.Transaction, error) {
	if err := conn(ctx, r.db).Create(t).Error; err != nil {
		return nil, fmt.Errorf("failed to save transaction: %w", translateError(err))
	}
	return t, nil
}
