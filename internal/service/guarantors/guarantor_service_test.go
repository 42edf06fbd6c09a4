package guarantors

import (
	"context"
	"testing"

	"sacco-ledger/internal/pkg/consts"
	"sacco-ledger/internal/pkg/models"
	storemodels "sacco-ledger/internal/pkg/store/models"
	"sacco-ledger/internal/service/ledger"
	"sacco-ledger/internal/service/servicetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	*servicetest.Fixture
	svc      *GuarantorService
	borrower *storemodels.Member
	finance  models.Actor
}

func newHarness(t *testing.T) *harness {
	f := servicetest.New()
	ledgerService := ledger.NewLedgerService(f.Store, f.Store.Wallets(), f.Store.Transactions(), f.Rules).WithClock(f.Clock())
	svc := NewGuarantorService(f.Store, Repositories{
		Members:    f.Store.Members(),
		Wallets:    f.Store.Wallets(),
		Loans:      f.Store.Loans(),
		Guarantors: f.Store.Guarantors(),
	}, ledgerService, f.Audit, f.Notifier).WithClock(f.Clock())

	borrower, _ := f.SeedMember(t, servicetest.MemberSpec{
		Email:    "bella@sacco.test",
		Balances: storemodels.WalletDelta{Savings: models.KES(50000)},
	})
	officer, _ := f.SeedMember(t, servicetest.MemberSpec{Email: "fin@sacco.test", Role: models.RoleFinanceOfficer})
	return &harness{Fixture: f, svc: svc, borrower: borrower, finance: servicetest.Actor(officer)}
}

// pledgeReady walks a pledge to PENDING_GUARANTOR_ACTION.
func (h *harness) pledgeReady(t *testing.T, loan *storemodels.Loan, email string, amount models.Money) *storemodels.Guarantor {
	t.Helper()
	ctx := context.Background()
	pledge, err := h.svc.Request(ctx, servicetest.Actor(h.borrower), loan.ID, models.GuarantorInvite{Email: email, Amount: amount})
	require.NoError(t, err)
	pledge, err = h.svc.AdminCheck(ctx, h.finance, pledge.ID)
	require.NoError(t, err)
	require.Equal(t, models.GuarantorPendingFinanceApproval, pledge.Status)
	pledge, err = h.svc.Notify(ctx, h.finance, pledge.ID)
	require.NoError(t, err)
	return pledge
}

func TestPledgeLifecycleReachesCoverage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	grace, _ := h.SeedMember(t, servicetest.MemberSpec{
		Email:     "grace@sacco.test",
		FirstName: "Grace",
		Balances:  storemodels.WalletDelta{Savings: models.KES(100000)},
	})
	loan := h.SeedLoan(t, h.borrower, models.KES(40000), models.LoanPendingGuarantors)

	pledge := h.pledgeReady(t, loan, "Grace@Sacco.test", models.KES(40000))
	assert.Equal(t, models.GuarantorPendingGuarantorAction, pledge.Status)
	assert.Equal(t, grace.ID, *pledge.GuarantorID)
	assert.Equal(t, []string{models.EventGuarantorInvited}, h.Notifier.Events())
	assert.Equal(t, "grace@sacco.test", h.Notifier.Messages()[0].Email)

	incoming, err := h.svc.ListIncoming(ctx, servicetest.Actor(grace))
	require.NoError(t, err)
	require.Len(t, incoming, 1)

	accepted, err := h.svc.Respond(ctx, servicetest.Actor(grace), pledge.ID,
		models.GuarantorResponseRequest{Decision: models.DecisionAccept, Signature: " grace "})
	require.NoError(t, err)
	assert.Equal(t, models.GuarantorAccepted, accepted.Status)
	assert.NotNil(t, accepted.RespondedAt)

	assert.Equal(t, models.KES(40000), h.Wallet(t, grace).Locked)
	assert.Equal(t, models.LoanPendingVerification, h.Loan(t, loan.ID).Status)
	assert.Contains(t, h.Audit.Actions(), consts.AuditLoanCovered)
	assert.Contains(t, h.Notifier.Events(), models.EventLoanStatusChanged)
	h.RequireInvariants(t)
}

func TestRespondSignatureMismatch(t *testing.T) {
	h := newHarness(t)
	grace, _ := h.SeedMember(t, servicetest.MemberSpec{
		Email:     "grace@sacco.test",
		FirstName: "Grace",
		Balances:  storemodels.WalletDelta{Savings: models.KES(100000)},
	})
	loan := h.SeedLoan(t, h.borrower, models.KES(40000), models.LoanPendingGuarantors)
	pledge := h.pledgeReady(t, loan, grace.Email, models.KES(40000))

	_, err := h.svc.Respond(context.Background(), servicetest.Actor(grace), pledge.ID,
		models.GuarantorResponseRequest{Decision: models.DecisionAccept, Signature: "Gracie"})

	assert.True(t, models.IsCode(err, models.ErrCodeSignatureMismatch))
	assert.Equal(t, models.Money(0), h.Wallet(t, grace).Locked)
	stored, _ := h.Store.Guarantors().GetByID(context.Background(), pledge.ID)
	assert.Equal(t, models.GuarantorPendingGuarantorAction, stored.Status)
	assert.Equal(t, models.LoanPendingGuarantors, h.Loan(t, loan.ID).Status)
}

func TestRespondGuards(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	grace, _ := h.SeedMember(t, servicetest.MemberSpec{
		Email:    "grace@sacco.test",
		Balances: storemodels.WalletDelta{Savings: models.KES(100000)},
	})
	mallory, _ := h.SeedMember(t, servicetest.MemberSpec{Email: "mallory@sacco.test", Role: models.RoleSuperAdmin})
	loan := h.SeedLoan(t, h.borrower, models.KES(40000), models.LoanPendingGuarantors)
	pledge := h.pledgeReady(t, loan, grace.Email, models.KES(40000))

	_, err := h.svc.Respond(ctx, servicetest.Actor(mallory), pledge.ID,
		models.GuarantorResponseRequest{Decision: models.DecisionAccept, Signature: "mallory"})
	assert.True(t, models.IsCode(err, models.ErrCodeForbidden))

	_, err = h.svc.Respond(ctx, servicetest.Actor(grace), pledge.ID,
		models.GuarantorResponseRequest{Decision: models.DecisionAccept})
	assert.True(t, models.IsCode(err, models.ErrCodeValidation))

	declined, err := h.svc.Respond(ctx, servicetest.Actor(grace), pledge.ID,
		models.GuarantorResponseRequest{Decision: models.DecisionReject})
	require.NoError(t, err)
	assert.Equal(t, models.GuarantorRejected, declined.Status)
	assert.Equal(t, models.Money(0), h.Wallet(t, grace).Locked)

	_, err = h.svc.Respond(ctx, servicetest.Actor(grace), pledge.ID,
		models.GuarantorResponseRequest{Decision: models.DecisionAccept, Signature: "grace"})
	assert.True(t, models.IsCode(err, models.ErrCodePreconditionFailed))
}

func TestPledgeStopsOnceLoanLeavesPendingGuarantors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	grace, _ := h.SeedMember(t, servicetest.MemberSpec{
		Email:     "grace@sacco.test",
		FirstName: "Grace",
		Balances:  storemodels.WalletDelta{Savings: models.KES(100000)},
	})
	loan := h.SeedLoan(t, h.borrower, models.KES(40000), models.LoanPendingGuarantors)
	ready := h.pledgeReady(t, loan, grace.Email, models.KES(40000))
	unchecked, err := h.svc.Request(ctx, servicetest.Actor(h.borrower), loan.ID,
		models.GuarantorInvite{Email: "other@sacco.test", Amount: models.KES(1000)})
	require.NoError(t, err)

	rejected := h.Loan(t, loan.ID)
	rejected.Status = models.LoanRejected
	h.Store.Loans().Put(rejected)

	_, err = h.svc.Respond(ctx, servicetest.Actor(grace), ready.ID,
		models.GuarantorResponseRequest{Decision: models.DecisionAccept, Signature: "Grace"})
	assert.True(t, models.IsCode(err, models.ErrCodePreconditionFailed))
	assert.Equal(t, models.Money(0), h.Wallet(t, grace).Locked)
	stored, _ := h.Store.Guarantors().GetByID(ctx, ready.ID)
	assert.Equal(t, models.GuarantorPendingGuarantorAction, stored.Status)

	_, err = h.svc.AdminCheck(ctx, h.finance, unchecked.ID)
	assert.True(t, models.IsCode(err, models.ErrCodePreconditionFailed))

	declined, err := h.svc.Respond(ctx, servicetest.Actor(grace), ready.ID,
		models.GuarantorResponseRequest{Decision: models.DecisionReject})
	require.NoError(t, err)
	assert.Equal(t, models.GuarantorRejected, declined.Status)
	h.RequireInvariants(t)
}

func TestNotifyRefusedOnClosedLoan(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.SeedMember(t, servicetest.MemberSpec{
		Email:    "grace@sacco.test",
		Balances: storemodels.WalletDelta{Savings: models.KES(100000)},
	})
	loan := h.SeedLoan(t, h.borrower, models.KES(40000), models.LoanPendingGuarantors)
	pledge, err := h.svc.Request(ctx, servicetest.Actor(h.borrower), loan.ID,
		models.GuarantorInvite{Email: "grace@sacco.test", Amount: models.KES(40000)})
	require.NoError(t, err)
	_, err = h.svc.AdminCheck(ctx, h.finance, pledge.ID)
	require.NoError(t, err)

	completed := h.Loan(t, loan.ID)
	completed.Status = models.LoanCompleted
	h.Store.Loans().Put(completed)

	_, err = h.svc.Notify(ctx, h.finance, pledge.ID)
	assert.True(t, models.IsCode(err, models.ErrCodePreconditionFailed))
	assert.Empty(t, h.Notifier.Events())
}

func TestAcceptFailsWhenFreeSavingsShrank(t *testing.T) {
	h := newHarness(t)
	grace, wallet := h.SeedMember(t, servicetest.MemberSpec{
		Email:    "grace@sacco.test",
		Balances: storemodels.WalletDelta{Savings: models.KES(50000)},
	})
	loan := h.SeedLoan(t, h.borrower, models.KES(40000), models.LoanPendingGuarantors)
	pledge := h.pledgeReady(t, loan, grace.Email, models.KES(40000))

	// another pledge locks most of the savings after the silent check passed
	other := ledger.NewLedgerService(h.Store, h.Store.Wallets(), h.Store.Transactions(), h.Rules)
	_, err := other.ApplyEntry(context.Background(), wallet.ID, storemodels.WalletDelta{Locked: models.KES(30000)}, nil)
	require.NoError(t, err)

	_, err = h.svc.Respond(context.Background(), servicetest.Actor(grace), pledge.ID,
		models.GuarantorResponseRequest{Decision: models.DecisionAccept, Signature: "grace"})

	assert.True(t, models.IsCode(err, models.ErrCodeInsufficientFunds))
	stored, _ := h.Store.Guarantors().GetByID(context.Background(), pledge.ID)
	assert.Equal(t, models.GuarantorPendingGuarantorAction, stored.Status)
	assert.Equal(t, models.KES(30000), h.Wallet(t, grace).Locked)
}

func TestRequestRules(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	stranger, _ := h.SeedMember(t, servicetest.MemberSpec{Email: "stranger@sacco.test"})
	pending := h.SeedLoan(t, h.borrower, models.KES(40000), models.LoanPendingGuarantors)
	verifying := h.SeedLoan(t, h.borrower, models.KES(40000), models.LoanPendingVerification)
	invite := models.GuarantorInvite{Email: "grace@sacco.test", Amount: models.KES(1000)}

	_, err := h.svc.Request(ctx, servicetest.Actor(h.borrower), pending.ID, invite)
	require.NoError(t, err)

	tests := []struct {
		name   string
		actor  models.Actor
		loan   storemodels.Loan
		invite models.GuarantorInvite
		code   string
	}{
		{"duplicate email", servicetest.Actor(h.borrower), *pending, models.GuarantorInvite{Email: "GRACE@sacco.test", Amount: models.KES(5)}, models.ErrCodeConflict},
		{"self invite", servicetest.Actor(h.borrower), *pending, models.GuarantorInvite{Email: h.borrower.Email, Amount: models.KES(5)}, models.ErrCodeValidation},
		{"loan past guarantors", servicetest.Actor(h.borrower), *verifying, invite, models.ErrCodePreconditionFailed},
		{"not the borrower", servicetest.Actor(stranger), *pending, models.GuarantorInvite{Email: "x@sacco.test", Amount: models.KES(5)}, models.ErrCodeForbidden},
		{"zero amount", servicetest.Actor(h.borrower), *pending, models.GuarantorInvite{Email: "y@sacco.test"}, models.ErrCodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.Request(ctx, tt.actor, tt.loan.ID, tt.invite)
			assert.Equal(t, tt.code, models.GetErrorCode(err))
		})
	}

	pledges, err := h.svc.ListForLoan(ctx, servicetest.Actor(h.borrower), pending.ID)
	require.NoError(t, err)
	assert.Len(t, pledges, 1)
	_, err = h.svc.ListForLoan(ctx, servicetest.Actor(stranger), pending.ID)
	assert.True(t, models.IsCode(err, models.ErrCodeForbidden))
}

func TestAdminCheckRejections(t *testing.T) {
	tests := []struct {
		name       string
		seed       *servicetest.MemberSpec
		email      string
		wantReason string
	}{
		{
			name:       "email not registered",
			email:      "ghost@sacco.test",
			wantReason: "No member is registered with ghost@sacco.test",
		},
		{
			name: "free savings too low",
			seed: &servicetest.MemberSpec{
				Email:    "grace@sacco.test",
				Balances: storemodels.WalletDelta{Savings: models.KES(50000), Locked: models.KES(20000)},
			},
			email:      "grace@sacco.test",
			wantReason: "Insufficient free savings. Available: KES 30,000.00, required: KES 40,000.00",
		},
		{
			name: "frozen account",
			seed: &servicetest.MemberSpec{
				Email:    "grace@sacco.test",
				Status:   models.MemberFrozen,
				Balances: storemodels.WalletDelta{Savings: models.KES(100000)},
			},
			email:      "grace@sacco.test",
			wantReason: "Guarantor account is FROZEN",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			if tt.seed != nil {
				h.SeedMember(t, *tt.seed)
			}
			loan := h.SeedLoan(t, h.borrower, models.KES(40000), models.LoanPendingGuarantors)
			pledge, err := h.svc.Request(ctx, servicetest.Actor(h.borrower), loan.ID,
				models.GuarantorInvite{Email: tt.email, Amount: models.KES(40000)})
			require.NoError(t, err)

			checked, err := h.svc.AdminCheck(ctx, h.finance, pledge.ID)

			require.NoError(t, err)
			assert.Equal(t, models.GuarantorRejected, checked.Status)
			assert.Equal(t, tt.wantReason, checked.RejectReason)
			assert.Nil(t, checked.GuarantorID)
			assert.Equal(t, []string{models.EventGuarantorCheckFailed}, h.Notifier.Events())
			assert.Contains(t, h.Audit.Actions(), consts.AuditGuarantorCheckFailed)
		})
	}
}

func TestAdminCheckAndNotifyGates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	loan := h.SeedLoan(t, h.borrower, models.KES(40000), models.LoanPendingGuarantors)
	pledge, err := h.svc.Request(ctx, servicetest.Actor(h.borrower), loan.ID,
		models.GuarantorInvite{Email: "ghost@sacco.test", Amount: models.KES(1)})
	require.NoError(t, err)
	chair, _ := h.SeedMember(t, servicetest.MemberSpec{Email: "chair@sacco.test", Role: models.RoleChairperson})

	_, err = h.svc.AdminCheck(ctx, servicetest.Actor(h.borrower), pledge.ID)
	assert.True(t, models.IsCode(err, models.ErrCodeForbidden))

	_, err = h.svc.Notify(ctx, h.finance, pledge.ID)
	assert.True(t, models.IsCode(err, models.ErrCodePreconditionFailed))

	_, err = h.svc.AdminCheck(ctx, servicetest.Actor(chair), pledge.ID)
	require.NoError(t, err)
	_, err = h.svc.AdminCheck(ctx, servicetest.Actor(chair), pledge.ID)
	assert.True(t, models.IsCode(err, models.ErrCodePreconditionFailed))
}

func TestCoverageNeedsWholePrincipal(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	loan := h.SeedLoan(t, h.borrower, models.KES(40000), models.LoanPendingGuarantors)
	var members []*storemodels.Member
	var pledges []*storemodels.Guarantor
	for _, email := range []string{"amos@sacco.test", "beth@sacco.test"} {
		m, _ := h.SeedMember(t, servicetest.MemberSpec{Email: email, Balances: storemodels.WalletDelta{Savings: models.KES(30000)}})
		members = append(members, m)
		pledges = append(pledges, h.pledgeReady(t, loan, email, models.KES(20000)))
	}

	_, err := h.svc.Respond(ctx, servicetest.Actor(members[0]), pledges[0].ID,
		models.GuarantorResponseRequest{Decision: models.DecisionAccept, Signature: "amos"})
	require.NoError(t, err)
	assert.Equal(t, models.LoanPendingGuarantors, h.Loan(t, loan.ID).Status)

	_, err = h.svc.Respond(ctx, servicetest.Actor(members[1]), pledges[1].ID,
		models.GuarantorResponseRequest{Decision: models.DecisionAccept, Signature: "BETH"})
	require.NoError(t, err)
	assert.Equal(t, models.LoanPendingVerification, h.Loan(t, loan.ID).Status)
}

func TestReleaseForLoanUnlocksOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	grace, _ := h.SeedMember(t, servicetest.MemberSpec{
		Email:    "grace@sacco.test",
		Balances: storemodels.WalletDelta{Savings: models.KES(100000), Locked: models.KES(5000)},
	})
	loan := h.SeedLoan(t, h.borrower, models.KES(40000), models.LoanPendingGuarantors)
	pledge := h.pledgeReady(t, loan, grace.Email, models.KES(40000))
	_, err := h.svc.Respond(ctx, servicetest.Actor(grace), pledge.ID,
		models.GuarantorResponseRequest{Decision: models.DecisionAccept, Signature: "grace"})
	require.NoError(t, err)
	require.Equal(t, models.KES(45000), h.Wallet(t, grace).Locked)

	var released []storemodels.Guarantor
	require.NoError(t, h.Store.Do(ctx, func(ctx context.Context) error {
		released, err = h.svc.ReleaseForLoan(ctx, loan.ID)
		return err
	}))
	require.Len(t, released, 1)
	assert.Equal(t, models.GuarantorReleased, released[0].Status)
	assert.Equal(t, models.KES(5000), h.Wallet(t, grace).Locked)

	require.NoError(t, h.Store.Do(ctx, func(ctx context.Context) error {
		released, err = h.svc.ReleaseForLoan(ctx, loan.ID)
		return err
	}))
	assert.Empty(t, released)
	assert.Equal(t, models.KES(5000), h.Wallet(t, grace).Locked)
	h.RequireInvariants(t)
}
