// Package memory keeps accounts and the ledger in process memory.
//
// A single mutex serializes every transaction, so the daily limit is exact.
// A failed transaction is rolled back by restoring the snapshot taken when it
// started.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/spbu-ds-practicum-2025/banking-core/internal/domain"
)

// txKey marks a context that already holds the store mutex.
type txKey struct{}

// Store implements domain.AccountRepository, domain.LedgerRepository and
// domain.TransactionManager.
type Store struct {
	mu       sync.Mutex
	nextID   int64
	accounts map[int64]domain.Account
	entries  []domain.LedgerEntry
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{accounts: make(map[int64]domain.Account)}
}

// AddAccount inserts or replaces an account. Account lifecycle lives outside
// the transfer engine; this is how callers seed the store.
func (s *Store) AddAccount(ctx context.Context, account domain.Account) {
	unlock := s.acquire(ctx)
	defer unlock()
	s.accounts[account.Number] = account
}

// WithTransaction runs fn while holding the store mutex. Nested calls join the
// outer transaction.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	accounts := make(map[int64]domain.Account, len(s.accounts))
	for k, v := range s.accounts {
		accounts[k] = v
	}
	entryCount, nextID := len(s.entries), s.nextID

	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.accounts = accounts
		s.entries = s.entries[:entryCount]
		s.nextID = nextID
		return err
	}
	return nil
}

// GetByNumber retrieves an account by its number.
func (s *Store) GetByNumber(ctx context.Context, number int64) (*domain.Account, error) {
	unlock := s.acquire(ctx)
	defer unlock()

	account, ok := s.accounts[number]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return &account, nil
}

// Exists reports whether the account is held by the store.
func (s *Store) Exists(ctx context.Context, number int64) (bool, error) {
	unlock := s.acquire(ctx)
	defer unlock()

	_, ok := s.accounts[number]
	return ok, nil
}

// Lock returns the account; exclusivity comes from the transaction mutex.
func (s *Store) Lock(ctx context.Context, number int64) (*domain.Account, error) {
	return s.GetByNumber(ctx, number)
}

// Update persists the account balance.
func (s *Store) Update(ctx context.Context, account *domain.Account) error {
	unlock := s.acquire(ctx)
	defer unlock()

	stored, ok := s.accounts[account.Number]
	if !ok {
		return domain.ErrAccountNotFound
	}
	stored.Balance = account.Balance
	s.accounts[account.Number] = stored
	return nil
}

// Append stores the entry and assigns its ID.
func (s *Store) Append(ctx context.Context, entry *domain.LedgerEntry) error {
	unlock := s.acquire(ctx)
	defer unlock()

	s.nextID++
	entry.ID = s.nextID
	s.entries = append(s.entries, *entry)
	return nil
}

// ListByAccount returns the entries of an account, newest first.
func (s *Store) ListByAccount(ctx context.Context, number int64) ([]domain.LedgerEntry, error) {
	return s.list(ctx, func(e *domain.LedgerEntry) bool { return e.AccountNumber == number }, 0), nil
}

// ListByAccountAndKind returns the entries of an account with the given kind, newest first.
func (s *Store) ListByAccountAndKind(ctx context.Context, number int64, kind domain.EntryKind) ([]domain.LedgerEntry, error) {
	return s.list(ctx, func(e *domain.LedgerEntry) bool {
		return e.AccountNumber == number && e.Kind == kind
	}, 0), nil
}

// ListRecentByAccount returns at most limit entries of an account, newest first.
func (s *Store) ListRecentByAccount(ctx context.Context, number int64, limit int) ([]domain.LedgerEntry, error) {
	return s.list(ctx, func(e *domain.LedgerEntry) bool { return e.AccountNumber == number }, limit), nil
}

// SumByKind totals every entry of a kind across all accounts.
func (s *Store) SumByKind(ctx context.Context, kind domain.EntryKind) (decimal.Decimal, error) {
	return s.sum(ctx, func(e *domain.LedgerEntry) bool { return e.Kind == kind }), nil
}

// SumByAccountAndKind totals the entries of one kind on one account.
func (s *Store) SumByAccountAndKind(ctx context.Context, number int64, kind domain.EntryKind) (decimal.Decimal, error) {
	return s.sum(ctx, func(e *domain.LedgerEntry) bool {
		return e.AccountNumber == number && e.Kind == kind
	}), nil
}

func (s *Store) list(ctx context.Context, match func(*domain.LedgerEntry) bool, limit int) []domain.LedgerEntry {
	unlock := s.acquire(ctx)
	defer unlock()

	out := make([]domain.LedgerEntry, 0)
	for i := range s.entries {
		if match(&s.entries[i]) {
			out = append(out, s.entries[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *Store) sum(ctx context.Context, match func(*domain.LedgerEntry) bool) decimal.Decimal {
	unlock := s.acquire(ctx)
	defer unlock()

	total := decimal.Zero
	for i := range s.entries {
		if match(&s.entries[i]) {
			total = total.Add(s.entries[i].Amount)
		}
	}
	return total
}

// acquire locks the store unless ctx already runs inside one of its transactions.
func (s *Store) acquire(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, ok := ctx.Value(txKey{}).(*Store)
	return ok && owner == s
}
