package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/spbu-ds-practicum-2025/banking-core/internal/domain"
)

// LedgerRepository implements domain.LedgerRepository using PostgreSQL.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{
		pool: pool,
	}
}

const selectEntries = `
	SELECT id, account_number, kind, amount::text, description, created_at
	FROM ledger_entries
`

const newestFirst = ` ORDER BY created_at DESC, id DESC`

// Append persists a new entry and assigns its ID.
func (r *LedgerRepository) Append(ctx context.Context, entry *domain.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (account_number, kind, amount, description, created_at)
		VALUES ($1, $2, $3::numeric, $4, $5)
		RETURNING id
	`

	err := conn(ctx, r.pool).QueryRow(ctx, query,
		entry.AccountNumber,
		string(entry.Kind),
		entry.Amount.String(),
		entry.Description,
		entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

// ListByAccount returns every entry of an account, newest first.
func (r *LedgerRepository) ListByAccount(ctx context.Context, number int64) ([]domain.LedgerEntry, error) {
	return r.list(ctx, selectEntries+`WHERE account_number = $1`+newestFirst, number)
}

// ListByAccountAndKind returns the entries of an account restricted to one kind.
func (r *LedgerRepository) ListByAccountAndKind(ctx context.Context, number int64, kind domain.EntryKind) ([]domain.LedgerEntry, error) {
	return r.list(ctx, selectEntries+`WHERE account_number = $1 AND kind = $2`+newestFirst, number, string(kind))
}

// ListRecentByAccount returns at most limit entries of an account, newest first.
func (r *LedgerRepository) ListRecentByAccount(ctx context.Context, number int64, limit int) ([]domain.LedgerEntry, error) {
	return r.list(ctx, selectEntries+`WHERE account_number = $1`+newestFirst+` LIMIT $2`, number, limit)
}

// SumByKind returns the system-wide total of one kind.
func (r *LedgerRepository) SumByKind(ctx context.Context, kind domain.EntryKind) (decimal.Decimal, error) {
	return r.sum(ctx, `SELECT COALESCE(SUM(amount), 0)::text FROM ledger_entries WHERE kind = $1`, string(kind))
}

// SumByAccountAndKind returns the total of one kind for an account.
func (r *LedgerRepository) SumByAccountAndKind(ctx context.Context, number int64, kind domain.EntryKind) (decimal.Decimal, error) {
	return r.sum(ctx,
		`SELECT COALESCE(SUM(amount), 0)::text FROM ledger_entries WHERE account_number = $1 AND kind = $2`,
		number, string(kind))
}

func (r *LedgerRepository) list(ctx context.Context, query string, args ...any) ([]domain.LedgerEntry, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.LedgerEntry, error) {
		var (
			entry  domain.LedgerEntry
			kind   string
			amount string
		)
		if err := row.Scan(&entry.ID, &entry.AccountNumber, &kind, &amount, &entry.Description, &entry.CreatedAt); err != nil {
			return entry, err
		}
		value, err := decimal.NewFromString(amount)
		if err != nil {
			return entry, fmt.Errorf("invalid amount %q: %w", amount, err)
		}
		entry.Kind = domain.EntryKind(kind)
		entry.Amount = value
		return entry, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan ledger entries: %w", err)
	}
	return entries, nil
}

func (r *LedgerRepository) sum(ctx context.Context, query string, args ...any) (decimal.Decimal, error) {
	var total string
	if err := conn(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum ledger entries: %w", err)
	}
	return decimal.NewFromString(total)
}
