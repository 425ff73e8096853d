package domain

import (
	"errors"
	"fmt"
)

// ErrorCode is the stable, transport-agnostic kind of a business failure.
type ErrorCode string

const (
	UserNotFound                ErrorCode = "USER_NOT_FOUND"
	AccountNotFound             ErrorCode = "ACCOUNT_NOT_FOUND"
	TransactionNotFound         ErrorCode = "TRANSACTION_NOT_FOUND"
	UserAccountMismatch         ErrorCode = "USER_ACCOUNT_UN_MATCH"
	BalanceNotEmpty             ErrorCode = "BALANCE_NOT_EMPTY"
	AccountAlreadyUnregistered  ErrorCode = "ACCOUNT_ALREADY_UNREGISTERED"
	MaxAccountPerUserExceeded   ErrorCode = "MAX_ACCOUNT_PER_USER_10"
	AmountExceedBalance         ErrorCode = "AMOUNT_EXCEED_BALANCE"
	CancelMustFully             ErrorCode = "CANCEL_MUST_FULLY"
	TransactionAlreadyCancelled ErrorCode = "TRANSACTION_ALREADY_CANCELLED"
	TransactionAccountUnMatch   ErrorCode = "TRANSACTION_ACCOUNT_UN_MATCH"
	TooOldOrderToCancelBalance  ErrorCode = "TOO_OLD_ORDER_TO_CANCEL"
	AccountTransactionLock      ErrorCode = "ACCOUNT_TRANSACTION_LOCK"
	InvalidArgument             ErrorCode = "INVALID_ARGUMENT"
)

// AccountError is a business rule violation. It carries its kind and a
// human-readable message and is never retried by the core.
type AccountError struct {
	Code    ErrorCode
	Message string
}

func (e *AccountError) Error() string {
	return e.Message
}

// Is matches any AccountError with the same code, so a sentinel compares
// equal to a copy carrying a more specific message.
func (e *AccountError) Is(target error) bool {
	var t *AccountError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// NewAccountError builds an AccountError with a formatted message.
func NewAccountError(code ErrorCode, format string, args ...any) *AccountError {
	return &AccountError{Code: code, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrUserNotFound                = NewAccountError(UserNotFound, "user not found")
	ErrAccountNotFound             = NewAccountError(AccountNotFound, "account not found")
	ErrTransactionNotFound         = NewAccountError(TransactionNotFound, "transaction not found")
	ErrUserAccountMismatch         = NewAccountError(UserAccountMismatch, "account does not belong to the user")
	ErrBalanceNotEmpty             = NewAccountError(BalanceNotEmpty, "account to close must have no balance left")
	ErrAccountAlreadyUnregistered  = NewAccountError(AccountAlreadyUnregistered, "account is already unregistered")
	ErrMaxAccountPerUserExceeded   = NewAccountError(MaxAccountPerUserExceeded, "a user may hold at most %d accounts", MaxAccountsPerUser)
	ErrAmountExceedBalance         = NewAccountError(AmountExceedBalance, "amount exceeds the account balance")
	ErrCancelMustFully             = NewAccountError(CancelMustFully, "partial cancellation is not allowed")
	ErrTransactionAlreadyCancelled = NewAccountError(TransactionAlreadyCancelled, "transaction is already cancelled")
	ErrTransactionAccountUnMatch   = NewAccountError(TransactionAccountUnMatch, "transaction was not made against this account")
	ErrTooOldOrderToCancelBalance  = NewAccountError(TooOldOrderToCancelBalance, "transaction is too old to cancel")
	ErrAccountTransactionLock      = NewAccountError(AccountTransactionLock, "account is in use by another transaction")
	ErrInvalidArgument             = NewAccountError(InvalidArgument, "invalid argument")
)

// CodeOf returns the ErrorCode carried by err, or "" for infrastructure errors.
func CodeOf(err error) ErrorCode {
	var ae *AccountError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}
