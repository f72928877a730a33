package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a decimal amount string and requires it to be positive.
func ParseAmount(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, fmt.Errorf("amount value cannot be empty")
	}

	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount: %w", err)
	}

	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}

	return amount, nil
}

// ParseCurrency validates that a currency code belongs to the supported set.
func ParseCurrency(code string) (Currency, error) {
	if code == "" {
		return "", fmt.Errorf("currency code cannot be empty")
	}

	currency := Currency(strings.ToUpper(strings.TrimSpace(code)))
	if !currency.Valid() {
		return "", fmt.Errorf("unsupported currency %q: only %s or %s are accepted", code, CurrencyPesos, CurrencyDollars)
	}

	return currency, nil
}
