package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"sacco-ledger/internal/pkg/config"
	"sacco-ledger/internal/pkg/log_messages"
	"sacco-ledger/internal/pkg/logger"
	"sacco-ledger/internal/pkg/models"
	"sacco-ledger/internal/pkg/otel"
	storemodels "sacco-ledger/internal/pkg/store/models"
	"sacco-ledger/internal/service/interfaces"

	"github.com/oklog/ulid/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// DeltaFunc derives a posting from the wallet as read on the current attempt.
// It runs again after every version conflict, so it must not keep state
// between calls beyond recording its latest result.
type DeltaFunc func(current storemodels.Wallet) (storemodels.WalletDelta, error)

// Fixed posts the same delta whatever the wallet holds.
func Fixed(delta storemodels.WalletDelta) DeltaFunc {
	return func(storemodels.Wallet) (storemodels.WalletDelta, error) {
		return delta, nil
	}
}

// Entry is one wallet's part of a ledger posting. Derive, when set, replaces
// Delta. Journal may be nil only when a fixed delta moves collateral (Locked)
// and nothing else.
type Entry struct {
	WalletID primitive.ObjectID
	Delta    storemodels.WalletDelta
	Derive   DeltaFunc
	Journal  *storemodels.Transaction
}

func (e Entry) deltaFunc() DeltaFunc {
	if e.Derive != nil {
		return e.Derive
	}
	return Fixed(e.Delta)
}

var errAlreadySettled = errors.New("journal entry already settled")

type LedgerServiceInterface interface {
	OpenWallet(ctx context.Context, memberID primitive.ObjectID) (*storemodels.Wallet, error)
	GetWallet(ctx context.Context, memberID primitive.ObjectID) (*storemodels.Wallet, error)
	ApplyEntry(ctx context.Context, walletID primitive.ObjectID, delta storemodels.WalletDelta,
		journal *storemodels.Transaction) (*storemodels.Wallet, error)
	ApplyDerived(ctx context.Context, walletID primitive.ObjectID, derive DeltaFunc,
		journal *storemodels.Transaction) (*storemodels.Wallet, error)
	ApplyEntries(ctx context.Context, entries []Entry) ([]storemodels.Wallet, error)
	RecordPending(ctx context.Context, journal *storemodels.Transaction) error
	SettlePending(ctx context.Context, journal *storemodels.Transaction, success bool,
		derive DeltaFunc, metadata map[string]interface{}) (bool, error)
	Journal(ctx context.Context, memberID primitive.ObjectID) ([]storemodels.Transaction, error)
}

// LedgerService is the only writer of wallet balances.
type LedgerService struct {
	uow          interfaces.UnitOfWork
	wallets      interfaces.WalletRepositoryInterface
	transactions interfaces.TransactionRepositoryInterface
	maxRetries   int
	now          func() time.Time
}

var _ LedgerServiceInterface = (*LedgerService)(nil)

func NewLedgerService(
	uow interfaces.UnitOfWork,
	wallets interfaces.WalletRepositoryInterface,
	transactions interfaces.TransactionRepositoryInterface,
	rules config.RulesConfig,
) *LedgerService {
	retries := rules.LedgerMaxCASRetries
	if retries < 1 {
		retries = 1
	}
	return &LedgerService{
		uow:          uow,
		wallets:      wallets,
		transactions: transactions,
		maxRetries:   retries,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the service clock.
func (s *LedgerService) WithClock(now func() time.Time) *LedgerService {
	s.now = now
	return s
}

// NewReference returns a sortable journal reference such as PAY-01J9....
func NewReference(prefix string) string {
	return prefix + "-" + ulid.Make().String()
}

func (s *LedgerService) OpenWallet(ctx context.Context, memberID primitive.ObjectID) (*storemodels.Wallet, error) {
	wallet := &storemodels.Wallet{
		MemberID:  memberID,
		UpdatedAt: s.now(),
	}
	if err := s.wallets.Create(ctx, wallet); err != nil {
		return nil, err
	}
	return wallet, nil
}

func (s *LedgerService) GetWallet(ctx context.Context, memberID primitive.ObjectID) (*storemodels.Wallet, error) {
	return s.wallets.GetByMemberID(ctx, memberID)
}

func (s *LedgerService) Journal(ctx context.Context, memberID primitive.ObjectID) ([]storemodels.Transaction, error) {
	wallet, err := s.wallets.GetByMemberID(ctx, memberID)
	if err != nil {
		return nil, err
	}
	return s.transactions.ListByWallet(ctx, wallet.ID)
}

// ApplyEntry applies delta to one wallet and appends the journal entry atomically.
func (s *LedgerService) ApplyEntry(
	ctx context.Context,
	walletID primitive.ObjectID,
	delta storemodels.WalletDelta,
	journal *storemodels.Transaction,
) (*storemodels.Wallet, error) {
	wallets, err := s.ApplyEntries(ctx, []Entry{{WalletID: walletID, Delta: delta, Journal: journal}})
	if err != nil {
		return nil, err
	}
	return &wallets[0], nil
}

// ApplyDerived is ApplyEntry for a delta that depends on the wallet's
// balances, such as a deposit split. derive sees the wallet the
// compare-and-set is checked against.
func (s *LedgerService) ApplyDerived(
	ctx context.Context,
	walletID primitive.ObjectID,
	derive DeltaFunc,
	journal *storemodels.Transaction,
) (*storemodels.Wallet, error) {
	wallets, err := s.ApplyEntries(ctx, []Entry{{WalletID: walletID, Derive: derive, Journal: journal}})
	if err != nil {
		return nil, err
	}
	return &wallets[0], nil
}

// ApplyEntries posts every entry in one unit of work. Wallets are written in
// ascending id order; the result follows the input order.
func (s *LedgerService) ApplyEntries(ctx context.Context, entries []Entry) ([]storemodels.Wallet, error) {
	if len(entries) == 0 {
		return nil, models.NewValidationError("ledger posting has no entries")
	}
	for _, e := range entries {
		if e.Journal == nil && (e.Derive != nil || !collateralOnly(e.Delta)) {
			return nil, models.NewInvariantViolation("balance change on wallet %s has no journal entry", e.WalletID.Hex())
		}
	}

	order := make([]int, len(entries))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return bytes.Compare(entries[order[a]].WalletID[:], entries[order[b]].WalletID[:]) < 0
	})

	ctx, span := otel.StartSpan(ctx, "ledger.ApplyEntries")
	defer span.End()
	span.SetAttributes(attribute.Int("ledger.entries", len(entries)))

	result := make([]storemodels.Wallet, len(entries))
	err := s.uow.Do(ctx, func(ctx context.Context) error {
		at := s.now()
		for _, i := range order {
			e := entries[i]
			wallet, err := s.applyDelta(ctx, e.WalletID, e.deltaFunc(), at)
			if err != nil {
				return err
			}
			if e.Journal != nil {
				if err := s.appendJournal(ctx, wallet.ID, e.Journal, at); err != nil {
					return err
				}
			}
			result[i] = *wallet
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return result, nil
}

// RecordPending stores a journal entry whose money has not arrived yet.
func (s *LedgerService) RecordPending(ctx context.Context, journal *storemodels.Transaction) error {
	journal.Status = models.TxPending
	if journal.CreatedAt.IsZero() {
		journal.CreatedAt = s.now()
	}
	return s.transactions.Create(ctx, journal)
}

// SettlePending moves a pending entry to its final status and, on success,
// applies the derived delta to the entry's wallet, all in one unit of work.
// The delta is applied first so derive can still add to metadata before the
// entry is stored. It reports false when the entry was already final.
// It must run as its own unit of work, never nested in a caller's.
func (s *LedgerService) SettlePending(
	ctx context.Context,
	journal *storemodels.Transaction,
	success bool,
	derive DeltaFunc,
	metadata map[string]interface{},
) (bool, error) {
	status, err := journal.Status.Settle(success)
	if err != nil {
		return false, nil
	}

	err = s.uow.Do(ctx, func(ctx context.Context) error {
		at := s.now()
		if success && derive != nil {
			if _, err := s.applyDelta(ctx, journal.WalletID, derive, at); err != nil {
				return err
			}
		}
		ok, err := s.transactions.Settle(ctx, journal.ID, status, metadata, at)
		if err != nil {
			return err
		}
		if !ok {
			return errAlreadySettled
		}
		return nil
	})
	if errors.Is(err, errAlreadySettled) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *LedgerService) appendJournal(ctx context.Context, walletID primitive.ObjectID, journal *storemodels.Transaction, at time.Time) error {
	journal.WalletID = walletID
	if journal.Status == "" {
		journal.Status = models.TxCompleted
	}
	if journal.CreatedAt.IsZero() {
		journal.CreatedAt = at
	}
	if journal.Status == models.TxCompleted && journal.CompletedAt == nil {
		completed := at
		journal.CompletedAt = &completed
	}
	return s.transactions.Create(ctx, journal)
}

// applyDelta is a compare-and-set on the wallet version, retried while the
// wallet keeps moving underneath. The delta is derived again on every attempt.
func (s *LedgerService) applyDelta(
	ctx context.Context,
	walletID primitive.ObjectID,
	derive DeltaFunc,
	at time.Time,
) (*storemodels.Wallet, error) {
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		current, err := s.wallets.GetByID(ctx, walletID)
		if err != nil {
			return nil, err
		}
		delta, err := derive(*current)
		if err != nil {
			return nil, err
		}
		next := current.Apply(delta)
		if err := checkBalances(ctx, *current, next, delta); err != nil {
			return nil, err
		}
		if delta.IsZero() {
			return current, nil
		}

		ok, err := s.wallets.ApplyDelta(ctx, current.ID, current.Version, delta, at)
		if err != nil {
			return nil, err
		}
		if ok {
			next.Version = current.Version + 1
			next.UpdatedAt = at
			logger.CtxDebug(ctx, log_messages.LedgerEntryApplied,
				zap.String("walletId", walletID.Hex()),
				zap.Int64("version", next.Version))
			return &next, nil
		}
		logger.CtxWarn(ctx, log_messages.WalletVersionConflict,
			zap.String("walletId", walletID.Hex()),
			zap.Int("attempt", attempt))
	}

	logger.CtxError(ctx, log_messages.LedgerRetriesExhausted, nil, zap.String("walletId", walletID.Hex()))
	return nil, models.NewConflict("wallet %s is being updated concurrently, try again", walletID.Hex())
}

// checkBalances enforces savings >= 0, locked <= savings and no negative
// sub-balance. Shortfalls of the member's own money are InsufficientFunds;
// anything else is a programming error.
func checkBalances(ctx context.Context, before, after storemodels.Wallet, delta storemodels.WalletDelta) error {
	switch {
	case after.Savings < 0:
		return models.NewInsufficientFunds("Insufficient savings. Available: %s, required: %s",
			before.Savings, -delta.Savings)
	case after.Locked > after.Savings && delta.Locked > 0:
		return models.NewInsufficientFunds("Insufficient free savings. Available: %s, required: %s",
			before.FreeSavings(), delta.Locked)
	case after.Locked > after.Savings:
		return models.NewInsufficientFunds("Insufficient free savings. Available: %s, required: %s",
			before.FreeSavings(), -delta.Savings)
	}

	var violation string
	switch {
	case after.Locked < 0:
		violation = "locked"
	case after.LoanLiability < 0:
		violation = "loanLiability"
	case after.Welfare < 0:
		violation = "welfare"
	case after.Fines < 0:
		violation = "fines"
	default:
		return nil
	}
	err := models.NewInvariantViolation("wallet %s %s would become negative", before.ID.Hex(), violation)
	logger.CtxError(ctx, log_messages.LedgerInvariantViolation, err,
		zap.String("walletId", before.ID.Hex()),
		zap.String("wallet", describeWallet(before)),
		zap.Any("delta", delta))
	return err
}

func collateralOnly(d storemodels.WalletDelta) bool {
	return d.Locked != 0 && d.Savings == 0 && d.LoanLiability == 0 && d.Welfare == 0 && d.Fines == 0
}

// JournalEntry builds a completed journal entry for the given movement.
func JournalEntry(kind models.TransactionKind, amount models.Money, reference, provider string,
	metadata map[string]interface{}) *storemodels.Transaction {
	return &storemodels.Transaction{
		Amount:    amount,
		Kind:      kind,
		Status:    models.TxCompleted,
		Reference: reference,
		Provider:  provider,
		Metadata:  metadata,
	}
}

func describeWallet(w storemodels.Wallet) string {
	return fmt.Sprintf("savings=%s locked=%s loanLiability=%s welfare=%s fines=%s",
		w.Savings, w.Locked, w.LoanLiability, w.Welfare, w.Fines)
}
