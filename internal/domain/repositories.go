package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// AccountRepository defines the interface for account data access operations.
// Implementations return ErrAccountNotFound when the account does not exist.
type AccountRepository interface {
	// GetByNumber retrieves an account by its number without locking it.
	GetByNumber(ctx context.Context, number int64) (*Account, error)

	// Exists reports whether an account with the given number is held locally.
	Exists(ctx context.Context, number int64) (bool, error)

	// Lock acquires an exclusive lock on the account for the duration of the transaction
	// and returns its current state. Must be called within a transaction context.
	Lock(ctx context.Context, number int64) (*Account, error)

	// Update persists the balance of an existing account.
	Update(ctx context.Context, account *Account) error
}

// LedgerRepository defines the interface for the append-only ledger store.
type LedgerRepository interface {
	// Append persists a new entry and assigns its ID.
	Append(ctx context.Context, entry *LedgerEntry) error

	// ListByAccount returns every entry of an account, newest first.
	ListByAccount(ctx context.Context, number int64) ([]LedgerEntry, error)

	// ListByAccountAndKind returns the entries of an account restricted to one kind.
	ListByAccountAndKind(ctx context.Context, number int64, kind EntryKind) ([]LedgerEntry, error)

	// ListRecentByAccount returns at most limit entries of an account, newest first.
	ListRecentByAccount(ctx context.Context, number int64, limit int) ([]LedgerEntry, error)

	// SumByKind returns the system-wide total of one kind (zero if none).
	SumByKind(ctx context.Context, kind EntryKind) (decimal.Decimal, error)

	// SumByAccountAndKind returns the total of one kind for an account (zero if none).
	SumByAccountAndKind(ctx context.Context, number int64, kind EntryKind) (decimal.Decimal, error)
}

// TransactionManager defines the interface for managing storage transactions.
// This abstraction allows the service layer to work with transactions
// without being coupled to a specific database implementation.
type TransactionManager interface {
	// WithTransaction executes the given function within a transaction.
	// If the function returns an error, every change is rolled back.
	// Otherwise, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// InterbankGateway moves funds to accounts not held by this bank.
type InterbankGateway interface {
	// Transfer asks the external network to move amount to destination.
	// A false result with a nil error is a clean rejection.
	Transfer(ctx context.Context, source, destination int64, amount decimal.Decimal, currency Currency) (bool, error)
}

// Event types published after a successful commit.
const (
	EventTypeTransferCompleted = "transfer.completed"
	EventTypeAccountCredited   = "account.credited"
	EventTypeAccountDebited    = "account.debited"
)

// Routes describe how an operation was executed.
const (
	RouteLocal     = "LOCAL"
	RouteInterbank = "INTERBANK"
	RouteDirect    = "DIRECT"
)

// OperationEvent describes a committed balance-affecting operation.
type OperationEvent struct {
	Type               string
	SourceAccount      int64
	DestinationAccount int64
	Amount             decimal.Decimal
	TotalAmount        decimal.Decimal
	Currency           Currency
	Route              string
	OccurredAt         time.Time
}

// EventPublisher publishes domain events to external systems (e.g. RabbitMQ).
type EventPublisher interface {
	Publish(ctx context.Context, event OperationEvent) error
}
