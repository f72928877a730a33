package domain_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spbu-ds-practicum-2025/banking-core/internal/domain"
)

func TestGetBalance_AccountNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.GetBalance(context.Background(), 4242)
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

// steppingClock returns a new minute on every call.
func steppingClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		t := current
		current = current.Add(time.Minute)
		return t
	}
}

func TestHistoryQueries(t *testing.T) {
	start := time.Date(2024, 3, 9, 8, 30, 0, 0, time.UTC)
	f := newFixture(t, domain.WithClock(steppingClock(start)))
	f.addAccount(sourceNumber, "10000", domain.CurrencyPesos)
	f.addAccount(destNumber, "0", domain.CurrencyPesos)
	ctx := context.Background()

	_, err := f.service.Credit(ctx, sourceNumber, dec("50"))
	require.NoError(t, err)
	for i := 0; i < 12; i++ {
		_, err := f.service.Transfer(ctx, pesos(fmt.Sprint(100+i)))
		require.NoError(t, err)
	}
	_, err = f.service.Debit(ctx, sourceNumber, dec("5"))
	require.NoError(t, err)

	history, err := f.service.GetHistory(ctx, sourceNumber)
	require.NoError(t, err)
	require.Len(t, history, 14)
	assert.Equal(t, domain.EntryKindDebit, history[0].Kind)
	assert.Equal(t, "Account debit", history[0].Description)
	assert.Equal(t, domain.EntryKindCredit, history[13].Kind)
	assert.Equal(t, "09-03-2024", history[0].Date)

	recent, err := f.service.GetRecentHistory(ctx, sourceNumber, 0)
	require.NoError(t, err)
	require.Len(t, recent, domain.DefaultRecentLimit)
	assert.Equal(t, history[:domain.DefaultRecentLimit], recent)

	recent, err = f.service.GetRecentHistory(ctx, sourceNumber, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, domain.EntryKindTransferOut, recent[1].Kind)
	assertDecimal(t, "111", recent[1].Amount)

	outs, err := f.service.GetHistoryByKind(ctx, sourceNumber, domain.EntryKindTransferOut)
	require.NoError(t, err)
	assert.Len(t, outs, 12)
	for _, v := range outs {
		assert.Equal(t, "Transfer to account 1002", v.Description)
	}

	ins, err := f.service.GetHistoryByKind(ctx, destNumber, domain.EntryKindTransferIn)
	require.NoError(t, err)
	assert.Len(t, ins, 12)

	empty, err := f.service.GetHistory(ctx, 4242)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGetTotalsByKind(t *testing.T) {
	f := newFixture(t)
	f.addAccount(sourceNumber, "10000", domain.CurrencyPesos)
	f.addAccount(destNumber, "0", domain.CurrencyPesos)
	ctx := context.Background()

	_, err := f.service.Transfer(ctx, pesos("1000"))
	require.NoError(t, err)
	_, err = f.service.Transfer(ctx, pesos("500"))
	require.NoError(t, err)
	_, err = f.service.Credit(ctx, sourceNumber, dec("20"))
	require.NoError(t, err)

	totals, err := f.service.GetTotalsByKind(ctx, sourceNumber)
	require.NoError(t, err)
	require.Len(t, totals, 4)
	assertDecimal(t, "1500", totals[domain.EntryKindTransferOut])
	assertDecimal(t, "20", totals[domain.EntryKindCredit])
	assertDecimal(t, "0", totals[domain.EntryKindDebit])
	assertDecimal(t, "0", totals[domain.EntryKindTransferIn])
}
