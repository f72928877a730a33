package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultRecentLimit is the number of entries GetRecentHistory returns when no limit is given.
const DefaultRecentLimit = 10

// GetBalance retrieves the current balance of an account.
func (s *TransferService) GetBalance(ctx context.Context, number int64) (decimal.Decimal, error) {
	account, err := s.accountRepo.GetByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return decimal.Zero, fmt.Errorf("%w: account %d", ErrAccountNotFound, number)
		}
		return decimal.Zero, fmt.Errorf("failed to get account: %w", err)
	}
	return account.Balance, nil
}

// GetHistory returns every ledger entry of an account, newest first.
func (s *TransferService) GetHistory(ctx context.Context, number int64) ([]LedgerEntryView, error) {
	entries, err := s.ledgerRepo.ListByAccount(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	return views(entries), nil
}

// GetRecentHistory returns the most recent entries of an account, newest first.
// A non-positive limit falls back to DefaultRecentLimit.
func (s *TransferService) GetRecentHistory(ctx context.Context, number int64, limit int) ([]LedgerEntryView, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	entries, err := s.ledgerRepo.ListRecentByAccount(ctx, number, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent ledger entries: %w", err)
	}
	return views(entries), nil
}

// GetHistoryByKind returns the entries of an account restricted to one kind.
func (s *TransferService) GetHistoryByKind(ctx context.Context, number int64, kind EntryKind) ([]LedgerEntryView, error) {
	entries, err := s.ledgerRepo.ListByAccountAndKind(ctx, number, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries by kind: %w", err)
	}
	return views(entries), nil
}

// GetTotalsByKind sums the amounts of an account for every entry kind.
// Kinds with no entries are present with a zero total.
func (s *TransferService) GetTotalsByKind(ctx context.Context, number int64) (map[EntryKind]decimal.Decimal, error) {
	totals := make(map[EntryKind]decimal.Decimal, len(EntryKinds))
	for _, kind := range EntryKinds {
		sum, err := s.ledgerRepo.SumByAccountAndKind(ctx, number, kind)
		if err != nil {
			return nil, fmt.Errorf("failed to sum %s entries: %w", kind, err)
		}
		totals[kind] = sum
	}
	return totals, nil
}

func views(entries []LedgerEntry) []LedgerEntryView {
	out := make([]LedgerEntryView, 0, len(entries))
	for i := range entries {
		out = append(out, entries[i].View())
	}
	return out
}
