package service

import (
	"context"
	"fmt"

	"account_system/internal/domain"
)

// NumberGenerator derives sequential account numbers from the last one assigned.
type NumberGenerator struct {
	accounts domain.AccountRepository
}

// NewNumberGenerator creates a NumberGenerator.
func NewNumberGenerator(accounts domain.AccountRepository) *NumberGenerator {
	return &NumberGenerator{accounts: accounts}
}

// Next returns the number following the highest existing one, or
// domain.FirstAccountNumber when there is none. Call it inside the
// transaction that inserts the account so the read stays locked until commit.
func (g *NumberGenerator) Next(ctx context.Context) (string, error) {
	last, err := g.accounts.FindLastAccount(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read last account: %w", err)
	}
	if last == nil {
		return domain.FirstAccountNumber, nil
	}
	return domain.NextAccountNumber(last.AccountNumber)
}
