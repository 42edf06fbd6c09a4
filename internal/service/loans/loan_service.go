// Package loans drives a loan from application through guarantee coverage,
// the approval chain and disbursement to repayment, penalty or default.
package loans

import (
	"context"
	"strconv"
	"time"

	"sacco-ledger/internal/pkg/config"
	"sacco-ledger/internal/pkg/consts"
	"sacco-ledger/internal/pkg/models"
	storemodels "sacco-ledger/internal/pkg/store/models"
	"sacco-ledger/internal/service/guarantors"
	"sacco-ledger/internal/service/interfaces"
	"sacco-ledger/internal/service/ledger"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type LoanServiceInterface interface {
	Eligibility(ctx context.Context, actor models.Actor) (*Eligibility, error)
	Apply(ctx context.Context, actor models.Actor, req models.LoanApplicationRequest) (*storemodels.Loan, error)
	InviteGuarantor(ctx context.Context, actor models.Actor, loanID primitive.ObjectID, invite models.GuarantorInvite) (*storemodels.Guarantor, error)
	Verify(ctx context.Context, actor models.Actor, loanID primitive.ObjectID) (*storemodels.Loan, error)
	Approve(ctx context.Context, actor models.Actor, loanID primitive.ObjectID) (*storemodels.Loan, error)
	Reject(ctx context.Context, actor models.Actor, loanID primitive.ObjectID, req models.LoanRejectionRequest) (*storemodels.Loan, error)
	Disburse(ctx context.Context, actor models.Actor, loanID primitive.ObjectID) (*storemodels.Loan, error)
	Repay(ctx context.Context, actor models.Actor, loanID primitive.ObjectID, req models.RepaymentRequest) (*Repayment, error)
	AddNote(ctx context.Context, actor models.Actor, loanID primitive.ObjectID, req models.LoanNoteRequest) (*storemodels.Loan, error)
	Get(ctx context.Context, actor models.Actor, loanID primitive.ObjectID) (*storemodels.Loan, error)
	ListByBorrower(ctx context.Context, actor models.Actor, borrowerID primitive.ObjectID) ([]storemodels.Loan, error)
	ListByStatus(ctx context.Context, actor models.Actor, status models.LoanStatus) ([]storemodels.Loan, error)
	FindOverdueLoans(ctx context.Context, asOf time.Time) ([]storemodels.Loan, error)
	ApplyPenalty(ctx context.Context, loanID primitive.ObjectID, asOf time.Time) (bool, error)
	MarkDefault(ctx context.Context, loanID primitive.ObjectID, asOf time.Time) (bool, error)
}

// Eligibility is the read-only answer to "may I borrow, and how much".
type Eligibility struct {
	Eligible bool         `json:"eligible"`
	Limit    models.Money `json:"limit"`
	Savings  models.Money `json:"savings"`
	Reason   string       `json:"reason,omitempty"`
	conflict bool
}

// Repayment is the outcome of one payment against a loan.
type Repayment struct {
	Loan      storemodels.Loan         `json:"loan"`
	Deduction models.Money             `json:"deduction"`
	Excess    models.Money             `json:"excess"`
	Journal   *storemodels.Transaction `json:"journal,omitempty"`
	Released  []storemodels.Guarantor  `json:"released,omitempty"`
}

type Repositories struct {
	Members interfaces.MemberRepositoryInterface
	Wallets interfaces.WalletRepositoryInterface
	Loans   interfaces.LoanRepositoryInterface
}

type LoanService struct {
	uow        interfaces.UnitOfWork
	repos      Repositories
	ledger     ledger.LedgerServiceInterface
	guarantors *guarantors.GuarantorService
	audit      interfaces.AuditSink
	notifier   interfaces.Notifier
	rules      config.RulesConfig
	now        func() time.Time
}

var _ LoanServiceInterface = (*LoanService)(nil)

var staffRoles = []models.Role{
	models.RoleFinanceOfficer, models.RoleChairperson, models.RoleTreasurer, models.RoleSecretary,
}

func NewLoanService(
	uow interfaces.UnitOfWork,
	repos Repositories,
	ledgerService ledger.LedgerServiceInterface,
	guarantorService *guarantors.GuarantorService,
	audit interfaces.AuditSink,
	notifier interfaces.Notifier,
	rules config.RulesConfig,
) *LoanService {
	return &LoanService{
		uow:        uow,
		repos:      repos,
		ledger:     ledgerService,
		guarantors: guarantorService,
		audit:      audit,
		notifier:   notifier,
		rules:      rules,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the service clock.
func (s *LoanService) WithClock(now func() time.Time) *LoanService {
	s.now = now
	return s
}

func (s *LoanService) Eligibility(ctx context.Context, actor models.Actor) (*Eligibility, error) {
	member, err := s.repos.Members.GetByID(ctx, actor.MemberID)
	if err != nil {
		return nil, err
	}
	wallet, err := s.repos.Wallets.GetByMemberID(ctx, member.ID)
	if err != nil {
		return nil, err
	}
	result := &Eligibility{
		Savings: wallet.Savings,
		Limit:   wallet.Savings.MulRate(decimal.NewFromFloat(s.rules.LoanLimitRatio)),
	}

	open, err := s.repos.Loans.HasOpenLoan(ctx, member.ID)
	if err != nil {
		return nil, err
	}
	minSavings := models.KES(s.rules.MinSavings)
	switch {
	case member.Status != models.MemberActive:
		result.Reason = "Account is " + string(member.Status) + ", only active members may borrow"
	case open:
		result.Reason = "You already have an open loan"
		result.conflict = true
	case !member.JoinedAt.AddDate(0, s.rules.MinTenureMonths, 0).Before(s.now()):
		result.Reason = "Membership must be older than " + pluralMonths(s.rules.MinTenureMonths)
	case wallet.Savings < minSavings:
		result.Reason = "Minimum savings of " + minSavings.String() + " required. Current: " + wallet.Savings.String()
	default:
		result.Eligible = true
	}
	return result, nil
}

// Apply creates the loan in PENDING_GUARANTORS together with its first pledge.
func (s *LoanService) Apply(ctx context.Context, actor models.Actor, req models.LoanApplicationRequest) (*storemodels.Loan, error) {
	if err := models.Validate(req); err != nil {
		return nil, err
	}
	if minAmount := models.KES(s.rules.MinLoanAmount); req.Amount < minAmount {
		return nil, models.NewValidationError("Minimum loan amount is %s", minAmount)
	}

	eligibility, err := s.Eligibility(ctx, actor)
	if err != nil {
		return nil, err
	}
	if eligibility.conflict {
		return nil, models.NewConflict("%s", eligibility.Reason)
	}
	if !eligibility.Eligible {
		return nil, models.NewPreconditionFailed("%s", eligibility.Reason)
	}
	if req.Amount > eligibility.Limit {
		return nil, models.NewPreconditionFailed("Requested amount exceeds your limit. Limit: %s, requested: %s",
			eligibility.Limit, req.Amount)
	}
	borrower, err := s.repos.Members.GetByID(ctx, actor.MemberID)
	if err != nil {
		return nil, err
	}

	interest := req.Amount.MulRate(decimal.NewFromFloat(s.rules.InterestRate))
	at := s.now()
	loan := &storemodels.Loan{
		BorrowerID:            borrower.ID,
		Principal:             req.Amount,
		Interest:              interest,
		TotalDue:              req.Amount + interest,
		Balance:               req.Amount + interest,
		Status:                models.LoanPendingGuarantors,
		Purpose:               req.Purpose,
		RepaymentPeriodMonths: req.RepaymentPeriodMonths,
		AppliedAt:             at,
		UpdatedAt:             at,
	}

	var pledge *storemodels.Guarantor
	err = s.uow.Do(ctx, func(ctx context.Context) error {
		// must precede the open-loan count: concurrent applications by one
		// member then collide on the member document
		if err := s.repos.Members.RecordLoanApplication(ctx, borrower.ID, at); err != nil {
			return err
		}
		open, err := s.repos.Loans.HasOpenLoan(ctx, borrower.ID)
		if err != nil {
			return err
		}
		if open {
			return models.NewConflict("You already have an open loan")
		}
		if err := s.repos.Loans.Create(ctx, loan); err != nil {
			return err
		}
		pledge, err = s.guarantors.RequestForLoan(ctx, loan, borrower, req.Guarantor)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, actor, consts.AuditLoanApplied, loan, map[string]interface{}{
		"principal": int64(loan.Principal),
		"totalDue":  int64(loan.TotalDue),
	})
	s.audit.Emit(ctx, models.NewAuditEvent(actor, consts.AuditGuarantorRequested, consts.AuditEntityGuarantor,
		pledge.ID.Hex(), map[string]interface{}{"loanId": loan.ID.Hex(), "email": pledge.Email}))
	return loan, nil
}

func (s *LoanService) InviteGuarantor(
	ctx context.Context,
	actor models.Actor,
	loanID primitive.ObjectID,
	invite models.GuarantorInvite,
) (*storemodels.Guarantor, error) {
	return s.guarantors.Request(ctx, actor, loanID, invite)
}

func (s *LoanService) Verify(ctx context.Context, actor models.Actor, loanID primitive.ObjectID) (*storemodels.Loan, error) {
	if err := models.RequireRole(actor, "verify loans", models.RoleFinanceOfficer); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, loanID, models.LoanStatus.Verify, consts.AuditLoanVerified,
		func(t *storemodels.LoanTransition) { t.VerifiedBy = &actor.MemberID })
}

func (s *LoanService) Approve(ctx context.Context, actor models.Actor, loanID primitive.ObjectID) (*storemodels.Loan, error) {
	if err := models.RequireRole(actor, "approve loans", models.RoleChairperson); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, loanID, models.LoanStatus.Approve, consts.AuditLoanApproved,
		func(t *storemodels.LoanTransition) { t.ApprovedBy = &actor.MemberID })
}

func (s *LoanService) Reject(
	ctx context.Context,
	actor models.Actor,
	loanID primitive.ObjectID,
	req models.LoanRejectionRequest,
) (*storemodels.Loan, error) {
	if err := models.RequireRole(actor, "reject loans", models.RoleChairperson, models.RoleSecretary); err != nil {
		return nil, err
	}
	if err := models.Validate(req); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, loanID, models.LoanStatus.Reject, consts.AuditLoanRejected,
		func(t *storemodels.LoanTransition) { t.RejectionReason = req.Reason })
}

// transition performs a status change with no ledger effect.
func (s *LoanService) transition(
	ctx context.Context,
	actor models.Actor,
	loanID primitive.ObjectID,
	next func(models.LoanStatus) (models.LoanStatus, error),
	action string,
	decorate func(*storemodels.LoanTransition),
) (*storemodels.Loan, error) {
	loan, err := s.repos.Loans.GetByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	to, err := next(loan.Status)
	if err != nil {
		return nil, err
	}
	t := storemodels.LoanTransition{From: loan.Status, To: to, At: s.now()}
	decorate(&t)

	ok, err := s.repos.Loans.Transition(ctx, loanID, t)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewConflict("loan %s changed concurrently, reload and retry", loanID.Hex())
	}
	updated := t.Apply(*loan)
	s.emit(ctx, actor, action, &updated, map[string]interface{}{"from": string(loan.Status)})
	s.notifyStatus(ctx, &updated)
	return &updated, nil
}

// Disburse activates the loan and books the full amount due as the
// borrower's liability.
func (s *LoanService) Disburse(ctx context.Context, actor models.Actor, loanID primitive.ObjectID) (*storemodels.Loan, error) {
	if err := models.RequireRole(actor, "disburse loans", models.RoleTreasurer); err != nil {
		return nil, err
	}
	loan, err := s.repos.Loans.GetByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	to, err := loan.Status.Disburse()
	if err != nil {
		return nil, err
	}

	var updated storemodels.Loan
	var journal *storemodels.Transaction
	err = s.uow.Do(ctx, func(ctx context.Context) error {
		at := s.now()
		due := at.AddDate(0, 0, s.rules.LoanTermDays)
		t := storemodels.LoanTransition{
			From: loan.Status, To: to, At: at, DisbursedBy: &actor.MemberID, DisbursedAt: &at, DueDate: &due,
		}
		ok, err := s.repos.Loans.Transition(ctx, loanID, t)
		if err != nil {
			return err
		}
		if !ok {
			return models.NewConflict("loan %s changed concurrently, reload and retry", loanID.Hex())
		}
		updated = t.Apply(*loan)

		wallet, err := s.repos.Wallets.GetByMemberID(ctx, loan.BorrowerID)
		if err != nil {
			return err
		}
		journal = ledger.JournalEntry(models.TxLoanDisbursement, loan.Principal,
			ledger.NewReference(consts.ReferencePrefixLoan), models.ProviderSystem,
			map[string]interface{}{
				"loanId":      loanID.Hex(),
				"totalDue":    int64(loan.TotalDue),
				"disbursedBy": actor.MemberID.Hex(),
			})
		_, err = s.ledger.ApplyEntry(ctx, wallet.ID, storemodels.WalletDelta{LoanLiability: loan.TotalDue}, journal)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, actor, consts.AuditLoanDisbursed, &updated, map[string]interface{}{
		"reference": journal.Reference,
		"dueDate":   updated.DueDate.Format(consts.DateFormat),
	})
	s.notifyStatus(ctx, &updated)
	return &updated, nil
}

// Repay applies a payment against the loan's own balance. Anything above the
// balance lands in savings. Clearing the balance completes the loan and
// releases every accepted pledge in the same unit of work.
func (s *LoanService) Repay(
	ctx context.Context,
	actor models.Actor,
	loanID primitive.ObjectID,
	req models.RepaymentRequest,
) (*Repayment, error) {
	if err := models.Validate(req); err != nil {
		return nil, err
	}
	if req.Source == "" {
		req.Source = models.RepayExternal
	}
	loan, err := s.repos.Loans.GetByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.BorrowerID != actor.MemberID {
		return nil, models.NewForbidden("only the borrower may repay loan %s", loanID.Hex())
	}
	if !loan.Status.Repayable() {
		return nil, models.NewPreconditionFailed("Loan is not repayable. Current status: %s", loan.Status)
	}
	if req.Amount == 0 {
		return &Repayment{Loan: *loan}, nil
	}

	deduction := models.MinMoney(req.Amount, loan.Balance)
	result := &Repayment{Deduction: deduction, Excess: req.Amount - deduction}
	newBalance := loan.Balance - deduction
	to := loan.Status
	if newBalance == 0 {
		if to, err = loan.Status.Clear(); err != nil {
			return nil, err
		}
	}

	// Savings-funded repayments only move what the loan still owes.
	paid := req.Amount
	delta := storemodels.WalletDelta{LoanLiability: -deduction, Savings: result.Excess}
	provider := models.ProviderMpesa
	if req.Source == models.RepayFromSavings {
		paid = deduction
		result.Excess = 0
		delta.Savings = -deduction
		provider = models.ProviderSystem
	}

	err = s.uow.Do(ctx, func(ctx context.Context) error {
		at := s.now()
		ok, err := s.repos.Loans.UpdateBalance(ctx, loanID, loan.Status, loan.Balance, newBalance, to, at)
		if err != nil {
			return err
		}
		if !ok {
			return models.NewConflict("loan %s changed concurrently, reload and retry", loanID.Hex())
		}

		wallet, err := s.repos.Wallets.GetByMemberID(ctx, loan.BorrowerID)
		if err != nil {
			return err
		}
		result.Journal = ledger.JournalEntry(models.TxLoanRepayment, paid,
			ledger.NewReference(consts.ReferencePrefixRepayment), provider,
			map[string]interface{}{
				"loanId":    loanID.Hex(),
				"source":    string(req.Source),
				"deduction": int64(deduction),
				"excess":    int64(result.Excess),
			})
		if _, err := s.ledger.ApplyEntry(ctx, wallet.ID, delta, result.Journal); err != nil {
			return err
		}

		if to == models.LoanCompleted {
			result.Released, err = s.guarantors.ReleaseForLoan(ctx, loanID)
			if err != nil {
				return err
			}
		}
		updated := *loan
		updated.Balance = newBalance
		updated.Status = to
		updated.UpdatedAt = at
		result.Loan = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, actor, consts.AuditLoanRepaid, &result.Loan, map[string]interface{}{
		"reference": result.Journal.Reference,
		"deduction": int64(deduction),
		"excess":    int64(result.Excess),
	})
	if result.Loan.Status == models.LoanCompleted {
		s.emit(ctx, actor, consts.AuditLoanCompleted, &result.Loan, nil)
		s.guarantors.EmitReleased(ctx, result.Released)
		s.notifyStatus(ctx, &result.Loan)
	}
	return result, nil
}

func (s *LoanService) AddNote(
	ctx context.Context,
	actor models.Actor,
	loanID primitive.ObjectID,
	req models.LoanNoteRequest,
) (*storemodels.Loan, error) {
	if err := models.RequireRole(actor, "add loan notes", staffRoles...); err != nil {
		return nil, err
	}
	if err := models.Validate(req); err != nil {
		return nil, err
	}
	note := storemodels.LoanNote{Content: req.Content, Role: actor.Role, Author: actor.MemberID, CreatedAt: s.now()}
	ok, err := s.repos.Loans.AddNote(ctx, loanID, note)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewNotFound("loan %s not found", loanID.Hex())
	}
	loan, err := s.repos.Loans.GetByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, actor, consts.AuditLoanNoteAdded, loan, nil)
	return loan, nil
}

func (s *LoanService) Get(ctx context.Context, actor models.Actor, loanID primitive.ObjectID) (*storemodels.Loan, error) {
	loan, err := s.repos.Loans.GetByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.BorrowerID != actor.MemberID && !models.HasRole(actor.Role, staffRoles...) {
		return nil, models.NewForbidden("members may only view their own loans")
	}
	return loan, nil
}

func (s *LoanService) ListByBorrower(ctx context.Context, actor models.Actor, borrowerID primitive.ObjectID) ([]storemodels.Loan, error) {
	if borrowerID != actor.MemberID && !models.HasRole(actor.Role, staffRoles...) {
		return nil, models.NewForbidden("members may only list their own loans")
	}
	return s.repos.Loans.ListByBorrower(ctx, borrowerID)
}

func (s *LoanService) ListByStatus(ctx context.Context, actor models.Actor, status models.LoanStatus) ([]storemodels.Loan, error) {
	if err := models.RequireRole(actor, "list loans by status", staffRoles...); err != nil {
		return nil, err
	}
	return s.repos.Loans.ListByStatus(ctx, status)
}

func (s *LoanService) emit(ctx context.Context, actor models.Actor, action string, loan *storemodels.Loan, details map[string]interface{}) {
	if details == nil {
		details = map[string]interface{}{}
	}
	details["status"] = string(loan.Status)
	details["balance"] = int64(loan.Balance)
	s.audit.Emit(ctx, models.NewAuditEvent(actor, action, consts.AuditEntityLoan, loan.ID.Hex(), details))
}

func (s *LoanService) notifyStatus(ctx context.Context, loan *storemodels.Loan) {
	s.notifier.Notify(ctx, models.NotificationMessage{
		Event:       models.EventLoanStatusChanged,
		RecipientID: loan.BorrowerID.Hex(),
		Parameters: map[string]string{
			"loanId":  loan.ID.Hex(),
			"status":  string(loan.Status),
			"balance": loan.Balance.String(),
		},
	})
}

func pluralMonths(n int) string {
	if n == 1 {
		return "1 month"
	}
	return strconv.Itoa(n) + " months"
}
