package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account represents a bank account held by this bank.
// The balance is mutated only by TransferService inside a transaction.
type Account struct {
	Number     int64           // Unique account number, assigned at creation
	Balance    decimal.Decimal // Current account balance (may go negative after a surcharge)
	Currency   Currency        // Currency the account is held in
	CustomerID int64           // Owning customer (foreign id only)
}

// Currency is one of the closed set of currencies the bank operates in.
type Currency string

const (
	// CurrencyPesos is the local currency
	CurrencyPesos Currency = "PESOS"

	// CurrencyDollars is the foreign currency
	CurrencyDollars Currency = "DOLARES"
)

// Valid reports whether c belongs to the supported set.
func (c Currency) Valid() bool {
	return c == CurrencyPesos || c == CurrencyDollars
}

// EntryKind classifies a ledger entry.
type EntryKind string

const (
	// EntryKindCredit is a direct credit on an account
	EntryKindCredit EntryKind = "CREDIT"

	// EntryKindDebit is a direct debit on an account
	EntryKindDebit EntryKind = "DEBIT"

	// EntryKindTransferIn is the receiving side of a local transfer
	EntryKindTransferIn EntryKind = "TRANSFER_IN"

	// EntryKindTransferOut is the sending side of a local or interbank transfer
	EntryKindTransferOut EntryKind = "TRANSFER_OUT"
)

// EntryKinds lists every kind in a stable order.
var EntryKinds = []EntryKind{
	EntryKindCredit,
	EntryKindDebit,
	EntryKindTransferIn,
	EntryKindTransferOut,
}

// ParseEntryKind converts a label into an EntryKind.
func ParseEntryKind(s string) (EntryKind, bool) {
	for _, k := range EntryKinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// LedgerEntry is an immutable record of a single balance-affecting event.
type LedgerEntry struct {
	ID            int64           // Assigned by the ledger store on append
	AccountNumber int64           // Owning account, set once
	Kind          EntryKind       // What happened
	Amount        decimal.Decimal // Always positive
	Description   string          // Human-readable, references the counterparty
	CreatedAt     time.Time       // Execution time
}

// LedgerEntryView is the flattened read model returned to callers.
type LedgerEntryView struct {
	Date        string          `json:"date"`
	Kind        EntryKind       `json:"kind"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// viewDateLayout renders dates as dd-MM-yyyy.
const viewDateLayout = "02-01-2006"

// View flattens the entry for presentation.
func (e *LedgerEntry) View() LedgerEntryView {
	return LedgerEntryView{
		Date:        e.CreatedAt.Format(viewDateLayout),
		Kind:        e.Kind,
		Description: e.Description,
		Amount:      e.Amount,
	}
}

// TransferRequest is a request to move funds between two accounts.
// It lives only for the duration of one TransferService call.
type TransferRequest struct {
	SourceAccount      int64
	DestinationAccount int64
	Amount             decimal.Decimal
	Currency           Currency
}

// TransferStatus represents the outcome of an operation.
type TransferStatus string

const (
	// TransferStatusSuccess indicates the operation completed
	TransferStatusSuccess TransferStatus = "SUCCESS"

	// TransferStatusFailed indicates the operation was rejected
	TransferStatusFailed TransferStatus = "FAILED"
)

// TransferResult is returned to the caller of a mutating operation.
type TransferResult struct {
	Status  TransferStatus `json:"status"`
	Message string         `json:"message"`
}

// Destination is where a transfer lands: a local account or a remote one.
// The two implementations are LocalDestination and RemoteDestination.
type Destination interface {
	destination()
}

// LocalDestination is an account held by this bank.
type LocalDestination struct {
	Account *Account
}

// RemoteDestination is an account reached through the interbank gateway.
type RemoteDestination struct {
	Number int64
}

func (LocalDestination) destination()  {}
func (RemoteDestination) destination() {}

// Debit subtracts amount from the balance. Funds are checked by the caller.
func (a *Account) Debit(amount decimal.Decimal) {
	a.Balance = a.Balance.Sub(amount)
}

// Credit adds amount to the balance.
func (a *Account) Credit(amount decimal.Decimal) {
	a.Balance = a.Balance.Add(amount)
}

// HasSufficientFunds checks if the account has enough balance for the given amount.
func (a *Account) HasSufficientFunds(amount decimal.Decimal) bool {
	return a.Balance.GreaterThanOrEqual(amount)
}
