package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	transferCompletedMessage = "Transfer completed successfully"
	creditRegisteredMessage  = "Credit registered successfully"
	debitRegisteredMessage   = "Debit registered successfully"

	// publishTimeout bounds a single best-effort event publish.
	publishTimeout = 5 * time.Second
)

// TransferService handles the business logic for money movements.
// It coordinates between repositories and ensures transactional consistency.
type TransferService struct {
	accountRepo    AccountRepository
	ledgerRepo     LedgerRepository
	txManager      TransactionManager
	gateway        InterbankGateway
	eventPublisher EventPublisher
	logger         *zap.Logger
	policy         Policy
	now            func() time.Time
}

// Option customizes a TransferService.
type Option func(*TransferService)

// WithPolicy replaces the default limits and pricing.
func WithPolicy(p Policy) Option {
	return func(s *TransferService) { s.policy = p }
}

// WithClock replaces time.Now for ledger timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *TransferService) { s.now = now }
}

// WithEventPublisher enables post-commit events.
func WithEventPublisher(p EventPublisher) Option {
	return func(s *TransferService) { s.eventPublisher = p }
}

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *TransferService) { s.logger = l }
}

// NewTransferService creates a new instance of TransferService.
func NewTransferService(
	accountRepo AccountRepository,
	ledgerRepo LedgerRepository,
	txManager TransactionManager,
	gateway InterbankGateway,
	opts ...Option,
) *TransferService {
	s := &TransferService{
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		txManager:   txManager,
		gateway:     gateway,
		logger:      zap.NewNop(),
		policy:      DefaultPolicy(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the limits and pricing the service runs against.
func (s *TransferService) Policy() Policy {
	return s.policy
}

// Transfer moves funds from a local source account to a local or remote destination.
//
// The request runs through, in order and stopping at the first failure:
// 1. Minimum amount check
// 2. Daily limit check against the system-wide TRANSFER_OUT total
// 3. Source account validation (exists, funds, currency)
// 4. Destination resolution (local account with matching currency, or interbank gateway)
//
// Then the amount is priced and the balances and ledger entries are written.
// Everything after step 1 happens in one transaction, so a failure leaves no mutation.
func (s *TransferService) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	if req.Amount.LessThan(s.policy.MinTransferAmount) {
		return nil, s.reject(req, fmt.Errorf("%w: minimum transfer amount is %s",
			ErrBelowMinimumAmount, s.policy.MinTransferAmount))
	}

	var (
		total decimal.Decimal
		route string
	)
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.checkDailyLimit(txCtx, req.Amount, req.Currency); err != nil {
			return err
		}

		source, destAccount, err := s.lockParties(txCtx, req.SourceAccount, req.DestinationAccount)
		if err != nil {
			return err
		}

		if err := validateSource(source, req); err != nil {
			return err
		}

		dest, err := s.resolveDestination(txCtx, req, destAccount)
		if err != nil {
			return err
		}

		total = s.policy.PriceTransfer(req.Amount, req.Currency)
		now := s.now()

		switch d := dest.(type) {
		case LocalDestination:
			route = RouteLocal
			return s.executeLocal(txCtx, source, d.Account, total, now)
		case RemoteDestination:
			route = RouteInterbank
			return s.executeInterbank(txCtx, source, d.Number, total, now)
		default:
			return fmt.Errorf("unknown destination type %T", dest)
		}
	})
	if err != nil {
		return nil, s.reject(req, err)
	}

	s.logger.Info("transfer completed",
		zap.Int64("source_account", req.SourceAccount),
		zap.Int64("destination_account", req.DestinationAccount),
		zap.String("amount", req.Amount.String()),
		zap.String("total_amount", total.String()),
		zap.String("currency", string(req.Currency)),
		zap.String("route", route),
	)

	s.publish(OperationEvent{
		Type:               EventTypeTransferCompleted,
		SourceAccount:      req.SourceAccount,
		DestinationAccount: req.DestinationAccount,
		Amount:             req.Amount,
		TotalAmount:        total,
		Currency:           req.Currency,
		Route:              route,
		OccurredAt:         s.now(),
	})

	return &TransferResult{Status: TransferStatusSuccess, Message: transferCompletedMessage}, nil
}

// Credit adds amount to an account. It bypasses the transfer pipeline:
// no minimum, no daily limit and no currency check.
func (s *TransferService) Credit(ctx context.Context, number int64, amount decimal.Decimal) (*TransferResult, error) {
	return s.adjust(ctx, number, amount, EntryKindCredit)
}

// Debit subtracts amount from an account. Like Credit it only checks
// that the account exists and, here, that it holds enough funds.
func (s *TransferService) Debit(ctx context.Context, number int64, amount decimal.Decimal) (*TransferResult, error) {
	return s.adjust(ctx, number, amount, EntryKindDebit)
}

func (s *TransferService) adjust(ctx context.Context, number int64, amount decimal.Decimal, kind EntryKind) (*TransferResult, error) {
	log := s.logger.With(
		zap.Int64("account", number),
		zap.String("amount", amount.String()),
		zap.String("kind", string(kind)),
	)

	if !amount.IsPositive() {
		log.Warn("adjustment rejected", zap.Error(ErrInvalidAmount))
		return nil, ErrInvalidAmount
	}

	var currency Currency
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		account, err := s.accountRepo.Lock(txCtx, number)
		if err != nil {
			if errors.Is(err, ErrAccountNotFound) {
				return fmt.Errorf("%w: account %d", ErrAccountNotFound, number)
			}
			return fmt.Errorf("failed to lock account: %w", err)
		}
		currency = account.Currency

		entry := &LedgerEntry{
			AccountNumber: number,
			Kind:          kind,
			Amount:        amount,
			CreatedAt:     s.now(),
		}
		if kind == EntryKindDebit {
			if !account.HasSufficientFunds(amount) {
				return ErrInsufficientFunds
			}
			account.Debit(amount)
			entry.Description = "Account debit"
		} else {
			account.Credit(amount)
			entry.Description = "Account credit"
		}

		if err := s.accountRepo.Update(txCtx, account); err != nil {
			return fmt.Errorf("failed to update account: %w", err)
		}
		if err := s.ledgerRepo.Append(txCtx, entry); err != nil {
			return fmt.Errorf("failed to append ledger entry: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Warn("adjustment rejected", zap.Error(err))
		return nil, err
	}
	log.Info("adjustment registered")

	event := OperationEvent{
		Amount:      amount,
		TotalAmount: amount,
		Currency:    currency,
		Route:       RouteDirect,
		OccurredAt:  s.now(),
	}
	message := creditRegisteredMessage
	if kind == EntryKindDebit {
		event.Type = EventTypeAccountDebited
		event.SourceAccount = number
		message = debitRegisteredMessage
	} else {
		event.Type = EventTypeAccountCredited
		event.DestinationAccount = number
	}
	s.publish(event)

	return &TransferResult{Status: TransferStatusSuccess, Message: message}, nil
}

// checkDailyLimit compares the new amount against the system-wide outgoing total.
// The total is neither per-account nor per-day, and it is read without exclusivity
// against concurrent transactions, so under load the limit is soft.
func (s *TransferService) checkDailyLimit(ctx context.Context, amount decimal.Decimal, currency Currency) error {
	used, err := s.ledgerRepo.SumByKind(ctx, EntryKindTransferOut)
	if err != nil {
		return fmt.Errorf("failed to sum outgoing transfers: %w", err)
	}

	if used.Add(amount).GreaterThan(s.policy.DailyLimit(currency)) {
		return fmt.Errorf("%w in %s", ErrDailyLimitExceeded, currency)
	}
	return nil
}

// lockParties locks the source and, if held locally, the destination account.
// Locks are taken in ascending account number order to prevent deadlocks.
// A missing account comes back as nil; the caller decides what that means.
func (s *TransferService) lockParties(ctx context.Context, sourceNumber, destNumber int64) (source, dest *Account, err error) {
	if sourceNumber == destNumber {
		source, err = s.lockOptional(ctx, sourceNumber)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to lock source account: %w", err)
		}
		return source, source, nil
	}

	first, second := sourceNumber, destNumber
	if destNumber < sourceNumber {
		first, second = destNumber, sourceNumber
	}

	firstAccount, err := s.lockOptional(ctx, first)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lock account %d: %w", first, err)
	}
	secondAccount, err := s.lockOptional(ctx, second)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lock account %d: %w", second, err)
	}

	if first == sourceNumber {
		return firstAccount, secondAccount, nil
	}
	return secondAccount, firstAccount, nil
}

func (s *TransferService) lockOptional(ctx context.Context, number int64) (*Account, error) {
	account, err := s.accountRepo.Lock(ctx, number)
	if errors.Is(err, ErrAccountNotFound) {
		return nil, nil
	}
	return account, err
}

// validateSource checks existence, funds and currency, in that order.
// Funds are compared against the requested amount, not the priced total.
func validateSource(source *Account, req TransferRequest) error {
	if source == nil {
		return fmt.Errorf("%w: source account %d", ErrAccountNotFound, req.SourceAccount)
	}
	if !source.HasSufficientFunds(req.Amount) {
		return ErrInsufficientFunds
	}
	if source.Currency != req.Currency {
		return fmt.Errorf("%w: source account is held in %s", ErrCurrencyMismatch, source.Currency)
	}
	return nil
}

// resolveDestination returns the local account, or hands the transfer to the
// interbank gateway when the destination is not held by this bank. No currency
// check is possible on the interbank path.
func (s *TransferService) resolveDestination(ctx context.Context, req TransferRequest, local *Account) (Destination, error) {
	if local != nil {
		if local.Currency != req.Currency {
			return nil, fmt.Errorf("%w: destination account is held in %s", ErrCurrencyMismatch, local.Currency)
		}
		return LocalDestination{Account: local}, nil
	}

	ok, err := s.gateway.Transfer(ctx, req.SourceAccount, req.DestinationAccount, req.Amount, req.Currency)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInterbankTransferFailed, err)
	}
	if !ok {
		return nil, ErrInterbankTransferFailed
	}
	return RemoteDestination{Number: req.DestinationAccount}, nil
}

func (s *TransferService) executeLocal(ctx context.Context, source, dest *Account, total decimal.Decimal, now time.Time) error {
	source.Debit(total)
	dest.Credit(total)

	if err := s.accountRepo.Update(ctx, source); err != nil {
		return fmt.Errorf("failed to update source account: %w", err)
	}
	if dest != source {
		if err := s.accountRepo.Update(ctx, dest); err != nil {
			return fmt.Errorf("failed to update destination account: %w", err)
		}
	}

	out := &LedgerEntry{
		AccountNumber: source.Number,
		Kind:          EntryKindTransferOut,
		Amount:        total,
		Description:   fmt.Sprintf("Transfer to account %d", dest.Number),
		CreatedAt:     now,
	}
	if err := s.ledgerRepo.Append(ctx, out); err != nil {
		return fmt.Errorf("failed to record outgoing transfer: %w", err)
	}

	in := &LedgerEntry{
		AccountNumber: dest.Number,
		Kind:          EntryKindTransferIn,
		Amount:        total,
		Description:   fmt.Sprintf("Transfer from account %d", source.Number),
		CreatedAt:     now,
	}
	if err := s.ledgerRepo.Append(ctx, in); err != nil {
		return fmt.Errorf("failed to record incoming transfer: %w", err)
	}
	return nil
}

func (s *TransferService) executeInterbank(ctx context.Context, source *Account, destNumber int64, total decimal.Decimal, now time.Time) error {
	source.Debit(total)
	if err := s.accountRepo.Update(ctx, source); err != nil {
		return fmt.Errorf("failed to update source account: %w", err)
	}

	out := &LedgerEntry{
		AccountNumber: source.Number,
		Kind:          EntryKindTransferOut,
		Amount:        total,
		Description:   fmt.Sprintf("Transfer to account %d", destNumber),
		CreatedAt:     now,
	}
	if err := s.ledgerRepo.Append(ctx, out); err != nil {
		return fmt.Errorf("failed to record outgoing transfer: %w", err)
	}
	return nil
}

func (s *TransferService) reject(req TransferRequest, err error) error {
	fields := []zap.Field{
		zap.Int64("source_account", req.SourceAccount),
		zap.Int64("destination_account", req.DestinationAccount),
		zap.String("amount", req.Amount.String()),
		zap.String("currency", string(req.Currency)),
		zap.Error(err),
	}
	if IsRejection(err) {
		s.logger.Warn("transfer rejected", fields...)
	} else {
		s.logger.Error("transfer failed", fields...)
	}
	return err
}

// publish emits the event after commit in the background. Failures are only logged.
func (s *TransferService) publish(event OperationEvent) {
	if s.eventPublisher == nil {
		return
	}
	go func(e OperationEvent) {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := s.eventPublisher.Publish(ctx, e); err != nil {
			s.logger.Warn("failed to publish operation event",
				zap.String("event_type", e.Type),
				zap.Error(err),
			)
		}
	}(event)
}
