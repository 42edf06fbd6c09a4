package loans

import (
	"context"
	"math"
	"time"

	"sacco-ledger/internal/pkg/consts"
	"sacco-ledger/internal/pkg/log_messages"
	"sacco-ledger/internal/pkg/logger"
	"sacco-ledger/internal/pkg/models"
	storemodels "sacco-ledger/internal/pkg/store/models"
	"sacco-ledger/internal/service/ledger"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// DaysOverdue counts started days past due. A loan one second late is one day overdue.
func DaysOverdue(due, asOf time.Time) int {
	if !asOf.After(due) {
		return 0
	}
	return int(math.Ceil(asOf.Sub(due).Hours() / 24))
}

func (s *LoanService) FindOverdueLoans(ctx context.Context, asOf time.Time) ([]storemodels.Loan, error) {
	return s.repos.Loans.FindOverdue(ctx, asOf)
}

// ApplyPenalty adds the penalty rate of the current balance to an ACTIVE loan
// that is overdue but not yet in default. A loan is penalized at most once; a
// repeat call reports false.
func (s *LoanService) ApplyPenalty(ctx context.Context, loanID primitive.ObjectID, asOf time.Time) (bool, error) {
	loan, err := s.repos.Loans.GetByID(ctx, loanID)
	if err != nil {
		return false, err
	}
	if loan.Status != models.LoanActive || loan.DueDate == nil {
		return false, nil
	}
	days := DaysOverdue(*loan.DueDate, asOf)
	if days < 1 || days >= s.rules.DefaultAfterDays {
		return false, nil
	}
	if loan.PenalizedAt != nil {
		logger.CtxDebug(ctx, log_messages.LoanPenaltyAlreadyApplied,
			zap.String("loanId", loanID.Hex()),
			zap.Time("penalizedAt", *loan.PenalizedAt))
		return false, nil
	}

	penalty := loan.Balance.MulRate(decimal.NewFromFloat(s.rules.PenaltyRate))
	if penalty <= 0 {
		return false, nil
	}

	var journal *storemodels.Transaction
	applied := false
	err = s.uow.Do(ctx, func(ctx context.Context) error {
		ok, err := s.repos.Loans.ApplyPenalty(ctx, loanID, loan.Balance, penalty, s.now())
		if err != nil || !ok {
			return err
		}
		applied = true

		wallet, err := s.repos.Wallets.GetByMemberID(ctx, loan.BorrowerID)
		if models.IsCode(err, models.ErrCodeNotFound) {
			logger.CtxWarn(ctx, log_messages.WalletMissingForPenalty,
				zap.String("loanId", loanID.Hex()),
				zap.String("borrowerId", loan.BorrowerID.Hex()))
			return nil
		}
		if err != nil {
			return err
		}
		journal = ledger.JournalEntry(models.TxLoanPenalty, penalty,
			ledger.NewReference(consts.ReferencePrefixPenalty), models.ProviderSystem,
			map[string]interface{}{
				"loanId":      loanID.Hex(),
				"daysOverdue": days,
				"rate":        s.rules.PenaltyRate,
			})
		_, err = s.ledger.ApplyEntry(ctx, wallet.ID, storemodels.WalletDelta{LoanLiability: penalty}, journal)
		return err
	})
	if err != nil {
		return false, err
	}
	if !applied {
		return false, nil
	}

	loan.Balance += penalty
	loan.TotalDue += penalty
	logger.CtxInfo(ctx, log_messages.LoanPenaltyApplied,
		zap.String("loanId", loanID.Hex()),
		zap.Int("daysOverdue", days),
		zap.String("penalty", penalty.String()))
	details := map[string]interface{}{"penalty": int64(penalty), "daysOverdue": days}
	if journal != nil {
		details["reference"] = journal.Reference
	}
	s.emit(ctx, models.Actor{}, consts.AuditLoanPenalized, loan, details)
	s.notifyStatus(ctx, loan)
	return true, nil
}

// MarkDefault moves an ACTIVE loan past the default threshold to DEFAULTED and
// freezes the borrower. Money is untouched.
func (s *LoanService) MarkDefault(ctx context.Context, loanID primitive.ObjectID, asOf time.Time) (bool, error) {
	loan, err := s.repos.Loans.GetByID(ctx, loanID)
	if err != nil {
		return false, err
	}
	if loan.DueDate == nil || DaysOverdue(*loan.DueDate, asOf) < s.rules.DefaultAfterDays {
		return false, nil
	}
	to, err := loan.Status.Default()
	if err != nil {
		return false, nil
	}

	var updated storemodels.Loan
	frozen := false
	err = s.uow.Do(ctx, func(ctx context.Context) error {
		t := storemodels.LoanTransition{From: loan.Status, To: to, At: s.now()}
		ok, err := s.repos.Loans.Transition(ctx, loanID, t)
		if err != nil {
			return err
		}
		if !ok {
			return models.NewConflict("loan %s changed concurrently, reload and retry", loanID.Hex())
		}
		updated = t.Apply(*loan)
		frozen, err = s.repos.Members.UpdateStatus(ctx, loan.BorrowerID,
			[]models.MemberStatus{models.MemberActive, models.MemberPending}, models.MemberFrozen)
		return err
	})
	if err != nil {
		return false, err
	}

	logger.CtxInfo(ctx, log_messages.LoanMarkedDefaulted,
		zap.String("loanId", loanID.Hex()),
		zap.Bool("memberFrozen", frozen))
	s.emit(ctx, models.Actor{}, consts.AuditLoanDefaulted, &updated, map[string]interface{}{
		"daysOverdue": DaysOverdue(*loan.DueDate, asOf),
	})
	if frozen {
		s.audit.Emit(ctx, models.NewAuditEvent(models.Actor{}, consts.AuditMemberFrozen, consts.AuditEntityMember,
			loan.BorrowerID.Hex(), map[string]interface{}{"loanId": loanID.Hex()}))
	}
	s.notifyStatus(ctx, &updated)
	return true, nil
}
