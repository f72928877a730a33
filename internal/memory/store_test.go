package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spbu-ds-practicum-2025/banking-core/internal/domain"
)

func TestStore_RollbackRestoresAccountsAndLedger(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	s.AddAccount(ctx, domain.Account{Number: 1, Balance: decimal.NewFromInt(500), Currency: domain.CurrencyPesos})

	boom := errors.New("boom")
	err := s.WithTransaction(ctx, func(txCtx context.Context) error {
		acc, err := s.Lock(txCtx, 1)
		require.NoError(t, err)
		acc.Debit(decimal.NewFromInt(200))
		require.NoError(t, s.Update(txCtx, acc))
		require.NoError(t, s.Append(txCtx, &domain.LedgerEntry{AccountNumber: 1, Kind: domain.EntryKindDebit, Amount: decimal.NewFromInt(200)}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	acc, err := s.GetByNumber(ctx, 1)
	require.NoError(t, err)
	assert.True(t, acc.Balance.Equal(decimal.NewFromInt(500)), "balance = %s", acc.Balance)

	entries, err := s.ListByAccount(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// IDs restart where the rolled back transaction found them
	entry := &domain.LedgerEntry{AccountNumber: 1, Kind: domain.EntryKindCredit, Amount: decimal.NewFromInt(1)}
	require.NoError(t, s.Append(ctx, entry))
	assert.Equal(t, int64(1), entry.ID)
}

func TestStore_ListOrdersNewestFirstAndLimits(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Append(ctx, &domain.LedgerEntry{
			AccountNumber: 7,
			Kind:          domain.EntryKindCredit,
			Amount:        decimal.NewFromInt(int64(i + 1)),
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}))
	}
	// same timestamp as the newest one: the later ID wins
	require.NoError(t, s.Append(ctx, &domain.LedgerEntry{
		AccountNumber: 7,
		Kind:          domain.EntryKindDebit,
		Amount:        decimal.NewFromInt(9),
		CreatedAt:     base.Add(4 * time.Minute),
	}))

	all, err := s.ListByAccount(ctx, 7)
	require.NoError(t, err)
	require.Len(t, all, 6)
	assert.Equal(t, int64(6), all[0].ID)
	assert.Equal(t, int64(5), all[1].ID)
	assert.Equal(t, int64(1), all[5].ID)

	recent, err := s.ListRecentByAccount(ctx, 7, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, int64(6), recent[0].ID)

	debits, err := s.ListByAccountAndKind(ctx, 7, domain.EntryKindDebit)
	require.NoError(t, err)
	require.Len(t, debits, 1)

	sum, err := s.SumByAccountAndKind(ctx, 7, domain.EntryKindCredit)
	require.NoError(t, err)
	assert.True(t, sum.Equal(decimal.NewFromInt(15)))

	none, err := s.SumByKind(ctx, domain.EntryKindTransferOut)
	require.NoError(t, err)
	assert.True(t, none.IsZero())
}

func TestStore_UnknownAccount(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	_, err := s.GetByNumber(ctx, 42)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	err = s.Update(ctx, &domain.Account{Number: 42})
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	ok, err := s.Exists(ctx, 42)
	require.NoError(t, err)
	assert.False(t, ok)
}
