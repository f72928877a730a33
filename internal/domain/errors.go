package domain

import "errors"

var (
	// ErrBelowMinimumAmount is returned when a transfer is smaller than the policy minimum
	ErrBelowMinimumAmount = errors.New("amount below minimum transfer amount")

	// ErrDailyLimitExceeded is returned when the outgoing total would pass the currency ceiling
	ErrDailyLimitExceeded = errors.New("daily transfer limit exceeded")

	// ErrAccountNotFound is returned when an account doesn't exist
	ErrAccountNotFound = errors.New("account not found")

	// ErrInsufficientFunds is returned when the account doesn't have enough balance
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrCurrencyMismatch is returned when account and request currencies don't match
	ErrCurrencyMismatch = errors.New("currency mismatch")

	// ErrInterbankTransferFailed is returned when the interbank gateway rejects a transfer
	ErrInterbankTransferFailed = errors.New("interbank transfer failed")

	// ErrInvalidAmount is returned when a credit or debit amount is not positive
	ErrInvalidAmount = errors.New("invalid amount: must be positive")
)

// IsRejection reports whether err is one of the business rejections above,
// as opposed to an infrastructure failure.
func IsRejection(err error) bool {
	for _, target := range []error{
		ErrBelowMinimumAmount,
		ErrDailyLimitExceeded,
		ErrAccountNotFound,
		ErrInsufficientFunds,
		ErrCurrencyMismatch,
		ErrInterbankTransferFailed,
		ErrInvalidAmount,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
