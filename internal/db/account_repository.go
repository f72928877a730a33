package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/spbu-ds-practicum-2025/banking-core/internal/domain"
)

// AccountRepository implements domain.AccountRepository using PostgreSQL.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{
		pool: pool,
	}
}

const selectAccount = `
	SELECT number, balance::text, currency, customer_id
	FROM accounts
	WHERE number = $1
`

// GetByNumber retrieves an account by its number.
func (r *AccountRepository) GetByNumber(ctx context.Context, number int64) (*domain.Account, error) {
	account, err := scanAccount(conn(ctx, r.pool).QueryRow(ctx, selectAccount, number))
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

// Exists reports whether the account is held by this bank.
func (r *AccountRepository) Exists(ctx context.Context, number int64) (bool, error) {
	var exists bool
	err := conn(ctx, r.pool).
		QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE number = $1)`, number).
		Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check account: %w", err)
	}
	return exists, nil
}

// Lock acquires a pessimistic lock on the account for the duration of the transaction.
// This method MUST be called within a transaction context.
// Uses SELECT ... FOR UPDATE to lock the row.
func (r *AccountRepository) Lock(ctx context.Context, number int64) (*domain.Account, error) {
	tx := getTx(ctx)
	if tx == nil {
		return nil, errors.New("lock requires a transaction")
	}

	account, err := scanAccount(tx.QueryRow(ctx, selectAccount+" FOR UPDATE", number))
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to lock account: %w", err)
	}
	return account, nil
}

// Update persists the balance of an existing account.
func (r *AccountRepository) Update(ctx context.Context, account *domain.Account) error {
	query := `
		UPDATE accounts
		SET balance = $2::numeric,
		    updated_at = NOW()
		WHERE number = $1
	`

	result, err := conn(ctx, r.pool).Exec(ctx, query, account.Number, account.Balance.String())
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}

	return nil
}

// Create inserts a new account. Used to seed accounts; the transfer engine
// never creates them.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (number, balance, currency, customer_id)
		VALUES ($1, $2::numeric, $3, $4)
	`

	_, err := conn(ctx, r.pool).Exec(ctx, query,
		account.Number,
		account.Balance.String(),
		string(account.Currency),
		account.CustomerID,
	)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		account  domain.Account
		balance  string
		currency string
	)

	if err := row.Scan(&account.Number, &balance, &currency, &account.CustomerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}

	value, err := decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("invalid balance %q: %w", balance, err)
	}
	account.Balance = value
	account.Currency = domain.Currency(currency)

	return &account, nil
}
