package domain

import (
	"github.com/shopspring/decimal"
)

// CurrencyRule holds the per-currency limits and pricing.
type CurrencyRule struct {
	// DailyLimit caps the system-wide outgoing transfer total plus the new amount
	DailyLimit decimal.Decimal

	// SurchargeThreshold is the amount above which SurchargeRate applies
	SurchargeThreshold decimal.Decimal

	// SurchargeRate is a fraction of the amount (0.02 means 2%)
	SurchargeRate decimal.Decimal
}

// Policy groups the business constants the transfer pipeline runs against.
type Policy struct {
	MinTransferAmount decimal.Decimal
	Rules             map[Currency]CurrencyRule
}

// DefaultPolicy returns the bank's reference values.
func DefaultPolicy() Policy {
	return Policy{
		MinTransferAmount: decimal.NewFromInt(100),
		Rules: map[Currency]CurrencyRule{
			CurrencyPesos: {
				DailyLimit:         decimal.NewFromInt(500_000),
				SurchargeThreshold: decimal.NewFromInt(1_000_000),
				SurchargeRate:      decimal.RequireFromString("0.02"),
			},
			CurrencyDollars: {
				DailyLimit:         decimal.NewFromInt(10_000),
				SurchargeThreshold: decimal.NewFromInt(5_000),
				SurchargeRate:      decimal.RequireFromString("0.005"),
			},
		},
	}
}

// DailyLimit returns the ceiling for currency. Anything that is not the
// local currency is held to the foreign ceiling.
func (p Policy) DailyLimit(currency Currency) decimal.Decimal {
	if currency == CurrencyPesos {
		return p.Rules[CurrencyPesos].DailyLimit
	}
	return p.Rules[CurrencyDollars].DailyLimit
}

// Surcharge returns the fee for moving amount in currency; zero at or below the threshold.
func (p Policy) Surcharge(amount decimal.Decimal, currency Currency) decimal.Decimal {
	rule, ok := p.Rules[currency]
	if !ok || !amount.GreaterThan(rule.SurchargeThreshold) {
		return decimal.Zero
	}
	return amount.Mul(rule.SurchargeRate)
}

// PriceTransfer returns the total actually moved: amount plus surcharge.
func (p Policy) PriceTransfer(amount decimal.Decimal, currency Currency) decimal.Decimal {
	return amount.Add(p.Surcharge(amount, currency))
}
