// Package memstore keeps every collection in process memory. It implements
// the repository interfaces and a rollback unit of work so services can be
// exercised end to end without a database.
package memstore

import (
	"bytes"
	"context"
	"sort"
	"sync"

	storemodels "sacco-ledger/internal/pkg/store/models"
	"sacco-ledger/internal/service/interfaces"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ctxKey struct{}

type tables struct {
	members      map[primitive.ObjectID]storemodels.Member
	wallets      map[primitive.ObjectID]storemodels.Wallet
	transactions map[primitive.ObjectID]storemodels.Transaction
	loans        map[primitive.ObjectID]storemodels.Loan
	guarantors   map[primitive.ObjectID]storemodels.Guarantor
	withdrawals  map[primitive.ObjectID]storemodels.WithdrawalRequest
	claims       map[primitive.ObjectID]storemodels.WelfareClaim
}

func newTables() tables {
	return tables{
		members:      map[primitive.ObjectID]storemodels.Member{},
		wallets:      map[primitive.ObjectID]storemodels.Wallet{},
		transactions: map[primitive.ObjectID]storemodels.Transaction{},
		loans:        map[primitive.ObjectID]storemodels.Loan{},
		guarantors:   map[primitive.ObjectID]storemodels.Guarantor{},
		withdrawals:  map[primitive.ObjectID]storemodels.WithdrawalRequest{},
		claims:       map[primitive.ObjectID]storemodels.WelfareClaim{},
	}
}

// clone copies every table. Records are values and are replaced, never
// mutated in place, so a shallow copy per map is enough.
func (t tables) clone() tables {
	c := newTables()
	for k, v := range t.members {
		c.members[k] = v
	}
	for k, v := range t.wallets {
		c.wallets[k] = v
	}
	for k, v := range t.transactions {
		c.transactions[k] = v
	}
	for k, v := range t.loans {
		c.loans[k] = v
	}
	for k, v := range t.guarantors {
		c.guarantors[k] = v
	}
	for k, v := range t.withdrawals {
		c.withdrawals[k] = v
	}
	for k, v := range t.claims {
		c.claims[k] = v
	}
	return c
}

type Store struct {
	mu   sync.Mutex
	work sync.Mutex
	data tables

	walletConflicts int
}

var _ interfaces.UnitOfWork = (*Store)(nil)

func New() *Store {
	return &Store{data: newTables()}
}

// Do serializes units of work and restores the pre-call state when fn fails.
// Nested calls join the outer unit.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(ctxKey{}) != nil {
		return fn(ctx)
	}

	s.work.Lock()
	defer s.work.Unlock()

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	if err := fn(context.WithValue(ctx, ctxKey{}, true)); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// InjectWalletConflicts makes the next n ApplyDelta calls report a moved version.
func (s *Store) InjectWalletConflicts(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.walletConflicts = n
}

func (s *Store) Members() *MemberRepo           { return &MemberRepo{s} }
func (s *Store) Wallets() *WalletRepo           { return &WalletRepo{s} }
func (s *Store) Transactions() *TransactionRepo { return &TransactionRepo{s} }
func (s *Store) Loans() *LoanRepo               { return &LoanRepo{s} }
func (s *Store) Guarantors() *GuarantorRepo     { return &GuarantorRepo{s} }
func (s *Store) Withdrawals() *WithdrawalRepo   { return &WithdrawalRepo{s} }
func (s *Store) WelfareClaims() *ClaimRepo      { return &ClaimRepo{s} }

func sortByID[T any](items []T, id func(T) primitive.ObjectID, desc bool) []T {
	sort.Slice(items, func(i, j int) bool {
		a, b := id(items[i]), id(items[j])
		if desc {
			return bytes.Compare(a[:], b[:]) > 0
		}
		return bytes.Compare(a[:], b[:]) < 0
	})
	return items
}
