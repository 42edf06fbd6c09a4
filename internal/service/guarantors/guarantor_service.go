// Package guarantors runs the pledge lifecycle: invitation by email, the
// silent admin check, finance notification, the guarantor's signed response
// and release when the loan is cleared.
package guarantors

import (
	"context"
	"strings"
	"time"

	"sacco-ledger/internal/pkg/consts"
	"sacco-ledger/internal/pkg/log_messages"
	"sacco-ledger/internal/pkg/logger"
	"sacco-ledger/internal/pkg/models"
	storemodels "sacco-ledger/internal/pkg/store/models"
	"sacco-ledger/internal/service/interfaces"
	"sacco-ledger/internal/service/ledger"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type GuarantorServiceInterface interface {
	Request(ctx context.Context, actor models.Actor, loanID primitive.ObjectID, invite models.GuarantorInvite) (*storemodels.Guarantor, error)
	AdminCheck(ctx context.Context, actor models.Actor, guarantorID primitive.ObjectID) (*storemodels.Guarantor, error)
	Notify(ctx context.Context, actor models.Actor, guarantorID primitive.ObjectID) (*storemodels.Guarantor, error)
	Respond(ctx context.Context, actor models.Actor, guarantorID primitive.ObjectID, req models.GuarantorResponseRequest) (*storemodels.Guarantor, error)
	ListIncoming(ctx context.Context, actor models.Actor) ([]storemodels.Guarantor, error)
	ListForLoan(ctx context.Context, actor models.Actor, loanID primitive.ObjectID) ([]storemodels.Guarantor, error)
}

type Repositories struct {
	Members    interfaces.MemberRepositoryInterface
	Wallets    interfaces.WalletRepositoryInterface
	Loans      interfaces.LoanRepositoryInterface
	Guarantors interfaces.GuarantorRepositoryInterface
}

type GuarantorService struct {
	uow      interfaces.UnitOfWork
	repos    Repositories
	ledger   ledger.LedgerServiceInterface
	audit    interfaces.AuditSink
	notifier interfaces.Notifier
	now      func() time.Time
}

var _ GuarantorServiceInterface = (*GuarantorService)(nil)

func NewGuarantorService(
	uow interfaces.UnitOfWork,
	repos Repositories,
	ledgerService ledger.LedgerServiceInterface,
	audit interfaces.AuditSink,
	notifier interfaces.Notifier,
) *GuarantorService {
	return &GuarantorService{
		uow:      uow,
		repos:    repos,
		ledger:   ledgerService,
		audit:    audit,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the service clock.
func (s *GuarantorService) WithClock(now func() time.Time) *GuarantorService {
	s.now = now
	return s
}

// Request invites another guarantor onto the actor's own loan.
func (s *GuarantorService) Request(
	ctx context.Context,
	actor models.Actor,
	loanID primitive.ObjectID,
	invite models.GuarantorInvite,
) (*storemodels.Guarantor, error) {
	if err := models.Validate(invite); err != nil {
		return nil, err
	}
	loan, err := s.repos.Loans.GetByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.BorrowerID != actor.MemberID {
		return nil, models.NewForbidden("only the borrower may invite guarantors on loan %s", loanID.Hex())
	}
	inviter, err := s.repos.Members.GetByID(ctx, actor.MemberID)
	if err != nil {
		return nil, err
	}

	var pledge *storemodels.Guarantor
	err = s.uow.Do(ctx, func(ctx context.Context) error {
		pledge, err = s.RequestForLoan(ctx, loan, inviter, invite)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, actor, consts.AuditGuarantorRequested, pledge, map[string]interface{}{"email": pledge.Email})
	return pledge, nil
}

// RequestForLoan stores a pledge addressed by email. Callers run it inside
// their unit of work; the loan application does so for its first guarantor.
func (s *GuarantorService) RequestForLoan(
	ctx context.Context,
	loan *storemodels.Loan,
	inviter *storemodels.Member,
	invite models.GuarantorInvite,
) (*storemodels.Guarantor, error) {
	email := strings.ToLower(strings.TrimSpace(invite.Email))
	if email == strings.ToLower(inviter.Email) {
		return nil, models.NewValidationError("You cannot guarantee your own loan")
	}
	if err := openForPledges(loan); err != nil {
		return nil, err
	}
	exists, err := s.repos.Guarantors.ExistsForLoan(ctx, loan.ID, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, models.NewConflict("%s is already invited on this loan", email)
	}

	at := s.now()
	pledge := &storemodels.Guarantor{
		LoanID:    loan.ID,
		InvitedBy: inviter.ID,
		Email:     email,
		Amount:    invite.Amount,
		Status:    models.GuarantorPendingAdminCheck,
		CreatedAt: at,
		UpdatedAt: at,
	}
	if err := s.repos.Guarantors.Create(ctx, pledge); err != nil {
		return nil, err
	}
	return pledge, nil
}

// AdminCheck resolves the invited email and checks that the member can cover
// the pledge from free savings. A failed check rejects the pledge and the
// reason is returned on it; it is not an error for the caller.
func (s *GuarantorService) AdminCheck(ctx context.Context, actor models.Actor, guarantorID primitive.ObjectID) (*storemodels.Guarantor, error) {
	if err := models.RequireRole(actor, "check guarantors", models.RoleFinanceOfficer, models.RoleChairperson); err != nil {
		return nil, err
	}
	pledge, err := s.repos.Guarantors.GetByID(ctx, guarantorID)
	if err != nil {
		return nil, err
	}
	if _, err := pledge.Status.PassCheck(); err != nil {
		return nil, err
	}
	loan, err := s.repos.Loans.GetByID(ctx, pledge.LoanID)
	if err != nil {
		return nil, err
	}
	if err := openForPledges(loan); err != nil {
		return nil, err
	}

	at := s.now()
	t := storemodels.GuarantorTransition{From: models.GuarantorPendingAdminCheck, At: at, CheckedBy: &actor.MemberID}
	reason, resolved, err := s.silentCheck(ctx, pledge, loan)
	if err != nil {
		return nil, err
	}
	if reason != "" {
		t.To = models.GuarantorRejected
		t.RejectReason = reason
	} else {
		t.To = models.GuarantorPendingFinanceApproval
		t.GuarantorID = &resolved.ID
	}

	ok, err := s.repos.Guarantors.Transition(ctx, pledge.ID, t)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewConflict("guarantor request %s changed while it was being checked", pledge.ID.Hex())
	}
	updated := t.Apply(*pledge)

	if reason != "" {
		logger.CtxInfo(ctx, log_messages.GuarantorCheckFailed,
			zap.String("guarantorId", pledge.ID.Hex()),
			zap.String("reason", reason))
		s.emit(ctx, actor, consts.AuditGuarantorCheckFailed, &updated, map[string]interface{}{"reason": reason})
		s.notifier.Notify(ctx, models.NotificationMessage{
			Event:       models.EventGuarantorCheckFailed,
			RecipientID: loan.BorrowerID.Hex(),
			Parameters:  map[string]string{"guarantorEmail": pledge.Email, "reason": reason},
		})
		return &updated, nil
	}
	s.emit(ctx, actor, consts.AuditGuarantorCheckPassed, &updated, map[string]interface{}{"guarantorId": resolved.ID.Hex()})
	return &updated, nil
}

// silentCheck returns a rejection reason, or the resolved member when the
// pledge can be honored.
func (s *GuarantorService) silentCheck(
	ctx context.Context,
	pledge *storemodels.Guarantor,
	loan *storemodels.Loan,
) (string, *storemodels.Member, error) {
	member, err := s.repos.Members.GetByEmail(ctx, pledge.Email)
	if models.IsCode(err, models.ErrCodeNotFound) {
		return "No member is registered with " + pledge.Email, nil, nil
	}
	if err != nil {
		return "", nil, err
	}
	if member.ID == loan.BorrowerID {
		return "A borrower cannot guarantee their own loan", nil, nil
	}
	if member.Status != models.MemberActive {
		return "Guarantor account is " + string(member.Status), nil, nil
	}
	wallet, err := s.repos.Wallets.GetByMemberID(ctx, member.ID)
	if models.IsCode(err, models.ErrCodeNotFound) {
		return "Guarantor has no wallet", nil, nil
	}
	if err != nil {
		return "", nil, err
	}
	if wallet.FreeSavings() < pledge.Amount {
		return "Insufficient free savings. Available: " + wallet.FreeSavings().String() +
			", required: " + pledge.Amount.String(), nil, nil
	}
	return "", member, nil
}

// Notify is the finance approval that first tells the guarantor about the pledge.
func (s *GuarantorService) Notify(ctx context.Context, actor models.Actor, guarantorID primitive.ObjectID) (*storemodels.Guarantor, error) {
	if err := models.RequireRole(actor, "notify guarantors", models.RoleFinanceOfficer); err != nil {
		return nil, err
	}
	pledge, err := s.repos.Guarantors.GetByID(ctx, guarantorID)
	if err != nil {
		return nil, err
	}
	to, err := pledge.Status.Notify()
	if err != nil {
		return nil, err
	}
	loan, err := s.repos.Loans.GetByID(ctx, pledge.LoanID)
	if err != nil {
		return nil, err
	}
	if err := openForPledges(loan); err != nil {
		return nil, err
	}
	t := storemodels.GuarantorTransition{From: pledge.Status, To: to, At: s.now(), NotifiedBy: &actor.MemberID}
	ok, err := s.repos.Guarantors.Transition(ctx, pledge.ID, t)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewConflict("guarantor request %s changed concurrently", pledge.ID.Hex())
	}
	updated := t.Apply(*pledge)

	s.emit(ctx, actor, consts.AuditGuarantorNotified, &updated, nil)
	recipient := ""
	if updated.GuarantorID != nil {
		recipient = updated.GuarantorID.Hex()
	}
	s.notifier.Notify(ctx, models.NotificationMessage{
		Event:       models.EventGuarantorInvited,
		RecipientID: recipient,
		Email:       updated.Email,
		Parameters: map[string]string{
			"guarantorRequestId": updated.ID.Hex(),
			"amount":             updated.Amount.String(),
		},
	})
	return &updated, nil
}

// Respond records the guarantor's decision. Acceptance locks the pledge on
// the guarantor's wallet and may complete the loan's guarantee coverage.
func (s *GuarantorService) Respond(
	ctx context.Context,
	actor models.Actor,
	guarantorID primitive.ObjectID,
	req models.GuarantorResponseRequest,
) (*storemodels.Guarantor, error) {
	if err := models.Validate(req); err != nil {
		return nil, err
	}
	pledge, err := s.repos.Guarantors.GetByID(ctx, guarantorID)
	if err != nil {
		return nil, err
	}
	if pledge.GuarantorID == nil || *pledge.GuarantorID != actor.MemberID {
		return nil, models.NewForbidden("only the invited guarantor may respond to this request")
	}

	if req.Decision == models.DecisionReject {
		return s.decline(ctx, actor, pledge)
	}

	if _, err := pledge.Status.Accept(); err != nil {
		return nil, err
	}
	member, err := s.repos.Members.GetByID(ctx, actor.MemberID)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(strings.TrimSpace(req.Signature), strings.TrimSpace(member.FirstName)) {
		return nil, models.NewSignatureMismatch("Signature does not match. Type your first name to sign.")
	}

	var updated storemodels.Guarantor
	var covered *storemodels.Loan
	err = s.uow.Do(ctx, func(ctx context.Context) error {
		loan, err := s.repos.Loans.GetByID(ctx, pledge.LoanID)
		if err != nil {
			return err
		}
		if err := openForPledges(loan); err != nil {
			return err
		}

		at := s.now()
		t := storemodels.GuarantorTransition{
			From: models.GuarantorPendingGuarantorAction, To: models.GuarantorAccepted, At: at, RespondedAt: &at,
		}
		ok, err := s.repos.Guarantors.Transition(ctx, pledge.ID, t)
		if err != nil {
			return err
		}
		if !ok {
			return models.NewConflict("guarantor request %s was already answered", pledge.ID.Hex())
		}
		updated = t.Apply(*pledge)

		wallet, err := s.repos.Wallets.GetByMemberID(ctx, member.ID)
		if err != nil {
			return err
		}
		if _, err := s.ledger.ApplyEntry(ctx, wallet.ID, storemodels.WalletDelta{Locked: pledge.Amount}, nil); err != nil {
			return err
		}

		covered, err = s.advanceIfCovered(ctx, pledge.LoanID, at)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, actor, consts.AuditGuarantorAccepted, &updated, map[string]interface{}{"locked": int64(updated.Amount)})
	s.notifyDecision(ctx, &updated)
	if covered != nil {
		s.audit.Emit(ctx, models.NewAuditEvent(models.Actor{}, consts.AuditLoanCovered, consts.AuditEntityLoan,
			covered.ID.Hex(), map[string]interface{}{"status": string(covered.Status)}))
		s.notifier.Notify(ctx, models.NotificationMessage{
			Event:       models.EventLoanStatusChanged,
			RecipientID: covered.BorrowerID.Hex(),
			Parameters:  map[string]string{"loanId": covered.ID.Hex(), "status": string(covered.Status)},
		})
	}
	return &updated, nil
}

func (s *GuarantorService) decline(ctx context.Context, actor models.Actor, pledge *storemodels.Guarantor) (*storemodels.Guarantor, error) {
	to, err := pledge.Status.Decline()
	if err != nil {
		return nil, err
	}
	at := s.now()
	t := storemodels.GuarantorTransition{From: pledge.Status, To: to, At: at, RespondedAt: &at}
	ok, err := s.repos.Guarantors.Transition(ctx, pledge.ID, t)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewConflict("guarantor request %s was already answered", pledge.ID.Hex())
	}
	updated := t.Apply(*pledge)
	s.emit(ctx, actor, consts.AuditGuarantorDeclined, &updated, nil)
	s.notifyDecision(ctx, &updated)
	return &updated, nil
}

// openForPledges refuses pledge progress once the loan has left
// PENDING_GUARANTORS; only completion releases collateral.
func openForPledges(loan *storemodels.Loan) error {
	if loan.Status != models.LoanPendingGuarantors {
		return models.NewPreconditionFailed("Guarantor requests can only progress while the loan is %s. Current status: %s",
			models.LoanPendingGuarantors, loan.Status)
	}
	return nil
}

// advanceIfCovered moves the loan to verification once accepted pledges
// cover the principal. It returns the loan only when it moved.
func (s *GuarantorService) advanceIfCovered(ctx context.Context, loanID primitive.ObjectID, at time.Time) (*storemodels.Loan, error) {
	loan, err := s.repos.Loans.GetByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	to, err := loan.Status.CoverageReached()
	if err != nil {
		return nil, nil
	}
	accepted, err := s.repos.Guarantors.SumAccepted(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if accepted < loan.Principal {
		return nil, nil
	}

	t := storemodels.LoanTransition{From: loan.Status, To: to, At: at}
	ok, err := s.repos.Loans.Transition(ctx, loanID, t)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewConflict("loan %s changed concurrently", loanID.Hex())
	}
	moved := t.Apply(*loan)
	logger.CtxInfo(ctx, log_messages.GuarantorCoverageReached,
		zap.String("loanId", loanID.Hex()),
		zap.String("accepted", accepted.String()))
	return &moved, nil
}

// ReleaseForLoan unlocks every accepted pledge on the loan. It runs inside
// the repayment's unit of work and returns the released pledges.
func (s *GuarantorService) ReleaseForLoan(ctx context.Context, loanID primitive.ObjectID) ([]storemodels.Guarantor, error) {
	accepted, err := s.repos.Guarantors.ListByLoanAndStatus(ctx, loanID, models.GuarantorAccepted)
	if err != nil {
		return nil, err
	}
	if len(accepted) == 0 {
		return nil, nil
	}

	at := s.now()
	entries := make([]ledger.Entry, 0, len(accepted))
	released := make([]storemodels.Guarantor, 0, len(accepted))
	for _, pledge := range accepted {
		to, err := pledge.Status.Release()
		if err != nil {
			return nil, err
		}
		t := storemodels.GuarantorTransition{From: pledge.Status, To: to, At: at, ReleasedAt: &at}
		ok, err := s.repos.Guarantors.Transition(ctx, pledge.ID, t)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, models.NewConflict("guarantor request %s was already released", pledge.ID.Hex())
		}
		if pledge.GuarantorID == nil {
			return nil, models.NewInvariantViolation("accepted guarantor request %s has no guarantor", pledge.ID.Hex())
		}
		wallet, err := s.repos.Wallets.GetByMemberID(ctx, *pledge.GuarantorID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, ledger.Entry{WalletID: wallet.ID, Delta: storemodels.WalletDelta{Locked: -pledge.Amount}})
		released = append(released, t.Apply(pledge))
	}

	if _, err := s.ledger.ApplyEntries(ctx, entries); err != nil {
		return nil, err
	}
	for _, pledge := range released {
		logger.CtxInfo(ctx, log_messages.GuarantorReleased,
			zap.String("guarantorId", pledge.ID.Hex()),
			zap.String("amount", pledge.Amount.String()))
	}
	return released, nil
}

// EmitReleased records the audit trail for pledges released by a committed repayment.
func (s *GuarantorService) EmitReleased(ctx context.Context, released []storemodels.Guarantor) {
	for i := range released {
		s.emit(ctx, models.Actor{}, consts.AuditGuarantorReleased, &released[i],
			map[string]interface{}{"unlocked": int64(released[i].Amount)})
	}
}

func (s *GuarantorService) ListIncoming(ctx context.Context, actor models.Actor) ([]storemodels.Guarantor, error) {
	return s.repos.Guarantors.ListIncoming(ctx, actor.MemberID)
}

func (s *GuarantorService) ListForLoan(ctx context.Context, actor models.Actor, loanID primitive.ObjectID) ([]storemodels.Guarantor, error) {
	loan, err := s.repos.Loans.GetByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.BorrowerID != actor.MemberID && actor.Role == models.RoleMember {
		return nil, models.NewForbidden("members may only view guarantors on their own loans")
	}
	return s.repos.Guarantors.ListByLoan(ctx, loanID)
}

func (s *GuarantorService) notifyDecision(ctx context.Context, pledge *storemodels.Guarantor) {
	loan, err := s.repos.Loans.GetByID(ctx, pledge.LoanID)
	if err != nil {
		logger.CtxWarn(ctx, log_messages.ErrorFetchingLoan, zap.String("loanId", pledge.LoanID.Hex()), zap.Error(err))
		return
	}
	s.notifier.Notify(ctx, models.NotificationMessage{
		Event:       models.EventGuarantorDecision,
		RecipientID: loan.BorrowerID.Hex(),
		Parameters: map[string]string{
			"guarantorEmail": pledge.Email,
			"status":         string(pledge.Status),
		},
	})
}

func (s *GuarantorService) emit(ctx context.Context, actor models.Actor, action string, pledge *storemodels.Guarantor, details map[string]interface{}) {
	if details == nil {
		details = map[string]interface{}{}
	}
	details["loanId"] = pledge.LoanID.Hex()
	details["status"] = string(pledge.Status)
	s.audit.Emit(ctx, models.NewAuditEvent(actor, action, consts.AuditEntityGuarantor, pledge.ID.Hex(), details))
}
