// Package servicetest wires the in-memory store and recording sinks used by
// the service tests.
package servicetest

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"sacco-ledger/internal/pkg/config"
	"sacco-ledger/internal/pkg/models"
	"sacco-ledger/internal/pkg/store/memstore"
	storemodels "sacco-ledger/internal/pkg/store/models"
	"sacco-ledger/internal/service/interfaces"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Now is the fixed instant every fixture clock starts at.
var Now = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

type AuditRecorder struct {
	mu     sync.Mutex
	events []models.AuditEvent
}

var _ interfaces.AuditSink = (*AuditRecorder)(nil)

func (r *AuditRecorder) Emit(_ context.Context, event models.AuditEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *AuditRecorder) Events() []models.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.AuditEvent(nil), r.events...)
}

func (r *AuditRecorder) Actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Action)
	}
	return out
}

type NotifyRecorder struct {
	mu       sync.Mutex
	messages []models.NotificationMessage
}

var _ interfaces.Notifier = (*NotifyRecorder)(nil)

func (r *NotifyRecorder) Notify(_ context.Context, msg models.NotificationMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

func (r *NotifyRecorder) Messages() []models.NotificationMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.NotificationMessage(nil), r.messages...)
}

func (r *NotifyRecorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.messages))
	for _, m := range r.messages {
		out = append(out, m.Event)
	}
	return out
}

type Fixture struct {
	Store    *memstore.Store
	Audit    *AuditRecorder
	Notifier *NotifyRecorder
	Rules    config.RulesConfig

	mu  sync.Mutex
	now time.Time
}

func New() *Fixture {
	return &Fixture{
		Store:    memstore.New(),
		Audit:    &AuditRecorder{},
		Notifier: &NotifyRecorder{},
		Rules:    Rules(),
		now:      Now,
	}
}

// Rules mirrors the defaults applied by config loading.
func Rules() config.RulesConfig {
	return config.RulesConfig{
		MinSavings:          10000,
		LoanLimitRatio:      0.80,
		InterestRate:        0.05,
		PenaltyRate:         0.10,
		WelfareTarget:       4000,
		MinTenureMonths:     6,
		LoanTermDays:        30,
		DefaultAfterDays:    91,
		MinLoanAmount:       500,
		LedgerMaxCASRetries: 5,
	}
}

func (f *Fixture) Clock() func() time.Time {
	return func() time.Time {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.now
	}
}

func (f *Fixture) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

type MemberSpec struct {
	Email     string
	FirstName string
	Role      models.Role
	JoinedAt  time.Time
	Status    models.MemberStatus
	Balances  storemodels.WalletDelta
	NoWallet  bool
}

// SeedMember stores an active member joined a year ago and a wallet holding
// the given balances.
func (f *Fixture) SeedMember(t *testing.T, seed MemberSpec) (*storemodels.Member, *storemodels.Wallet) {
	t.Helper()
	ctx := context.Background()
	if seed.Role == "" {
		seed.Role = models.RoleMember
	}
	if seed.JoinedAt.IsZero() {
		seed.JoinedAt = Now.AddDate(-1, 0, 0)
	}
	if seed.Status == "" {
		seed.Status = models.MemberActive
	}
	if seed.FirstName == "" {
		seed.FirstName = strings.Split(seed.Email, "@")[0]
	}

	member := &storemodels.Member{
		Email:     seed.Email,
		FirstName: seed.FirstName,
		LastName:  "Test",
		Role:      seed.Role,
		Status:    seed.Status,
		JoinedAt:  seed.JoinedAt,
	}
	require.NoError(t, f.Store.Members().Create(ctx, member))
	if seed.NoWallet {
		return member, nil
	}

	wallet := (storemodels.Wallet{MemberID: member.ID}).Apply(seed.Balances)
	require.NoError(t, f.Store.Wallets().Create(ctx, &wallet))
	return member, &wallet
}

// SeedLoan stores a loan with 5% flat interest straight into status.
func (f *Fixture) SeedLoan(t *testing.T, borrower *storemodels.Member, principal models.Money, status models.LoanStatus) *storemodels.Loan {
	t.Helper()
	interest := principal.MulRate(decimal.NewFromFloat(f.Rules.InterestRate))
	loan := &storemodels.Loan{
		BorrowerID:            borrower.ID,
		Principal:             principal,
		Interest:              interest,
		TotalDue:              principal + interest,
		Balance:               principal + interest,
		Status:                status,
		Purpose:               "stock",
		RepaymentPeriodMonths: 1,
		AppliedAt:             Now,
		UpdatedAt:             Now,
	}
	require.NoError(t, f.Store.Loans().Create(context.Background(), loan))
	return loan
}

func (f *Fixture) Loan(t *testing.T, id primitive.ObjectID) storemodels.Loan {
	t.Helper()
	l, err := f.Store.Loans().GetByID(context.Background(), id)
	require.NoError(t, err)
	return *l
}

func (f *Fixture) Wallet(t *testing.T, member *storemodels.Member) storemodels.Wallet {
	t.Helper()
	w, err := f.Store.Wallets().GetByMemberID(context.Background(), member.ID)
	require.NoError(t, err)
	return *w
}

func Actor(m *storemodels.Member) models.Actor {
	return models.Actor{MemberID: m.ID, Role: m.Role}
}

// RequireInvariants checks every stored wallet against the balance invariants.
func (f *Fixture) RequireInvariants(t *testing.T) {
	t.Helper()
	for _, w := range f.Store.Wallets().All() {
		require.GreaterOrEqual(t, int64(w.Savings), int64(0), "savings of wallet %s", w.ID.Hex())
		require.LessOrEqual(t, int64(w.Locked), int64(w.Savings), "locked of wallet %s", w.ID.Hex())
		require.GreaterOrEqual(t, int64(w.Locked), int64(0), "locked of wallet %s", w.ID.Hex())
		require.GreaterOrEqual(t, int64(w.LoanLiability), int64(0), "loanLiability of wallet %s", w.ID.Hex())
	}
}
