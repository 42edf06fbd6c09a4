// Package withdrawals runs the four-eyes withdrawal workflow: a member
// requests, finance verifies, the chairperson approves and the treasurer
// disburses against savings.
package withdrawals

import (
	"context"
	"time"

	"sacco-ledger/internal/pkg/consts"
	"sacco-ledger/internal/pkg/models"
	storemodels "sacco-ledger/internal/pkg/store/models"
	"sacco-ledger/internal/service/interfaces"
	"sacco-ledger/internal/service/ledger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type WithdrawalServiceInterface interface {
	Request(ctx context.Context, actor models.Actor, req models.WithdrawalCreateRequest) (*storemodels.WithdrawalRequest, error)
	Verify(ctx context.Context, actor models.Actor, id primitive.ObjectID) (*storemodels.WithdrawalRequest, error)
	Approve(ctx context.Context, actor models.Actor, id primitive.ObjectID) (*storemodels.WithdrawalRequest, error)
	Disburse(ctx context.Context, actor models.Actor, id primitive.ObjectID) (*storemodels.WithdrawalRequest, error)
	Get(ctx context.Context, actor models.Actor, id primitive.ObjectID) (*storemodels.WithdrawalRequest, error)
	ListMine(ctx context.Context, actor models.Actor) ([]storemodels.WithdrawalRequest, error)
	ListByStatus(ctx context.Context, actor models.Actor, status models.WithdrawalStatus) ([]storemodels.WithdrawalRequest, error)
}

type Repositories struct {
	Wallets     interfaces.WalletRepositoryInterface
	Withdrawals interfaces.WithdrawalRepositoryInterface
}

type WithdrawalService struct {
	uow      interfaces.UnitOfWork
	repos    Repositories
	ledger   ledger.LedgerServiceInterface
	audit    interfaces.AuditSink
	notifier interfaces.Notifier
	now      func() time.Time
}

var _ WithdrawalServiceInterface = (*WithdrawalService)(nil)

var staffRoles = []models.Role{
	models.RoleFinanceOfficer, models.RoleChairperson, models.RoleTreasurer, models.RoleSecretary,
}

func NewWithdrawalService(
	uow interfaces.UnitOfWork,
	repos Repositories,
	ledgerService ledger.LedgerServiceInterface,
	audit interfaces.AuditSink,
	notifier interfaces.Notifier,
) *WithdrawalService {
	return &WithdrawalService{
		uow:      uow,
		repos:    repos,
		ledger:   ledgerService,
		audit:    audit,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the service clock.
func (s *WithdrawalService) WithClock(now func() time.Time) *WithdrawalService {
	s.now = now
	return s
}

// Request files a withdrawal. Savings are checked here and again at disbursement.
func (s *WithdrawalService) Request(
	ctx context.Context,
	actor models.Actor,
	req models.WithdrawalCreateRequest,
) (*storemodels.WithdrawalRequest, error) {
	if err := models.Validate(req); err != nil {
		return nil, err
	}
	wallet, err := s.repos.Wallets.GetByMemberID(ctx, actor.MemberID)
	if err != nil {
		return nil, err
	}
	if wallet.Savings < req.Amount {
		return nil, models.NewPreconditionFailed("Insufficient savings. Available: %s, requested: %s",
			wallet.Savings, req.Amount)
	}

	at := s.now()
	request := &storemodels.WithdrawalRequest{
		RequesterID: actor.MemberID,
		Amount:      req.Amount,
		Destination: req.Destination,
		Reason:      req.Reason,
		Status:      models.WithdrawalPendingVerification,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
	if err := s.repos.Withdrawals.Create(ctx, request); err != nil {
		return nil, err
	}
	s.emit(ctx, actor, consts.AuditWithdrawalRequested, request, map[string]interface{}{
		"amount":      int64(request.Amount),
		"destination": request.Destination,
	})
	return request, nil
}

func (s *WithdrawalService) Verify(ctx context.Context, actor models.Actor, id primitive.ObjectID) (*storemodels.WithdrawalRequest, error) {
	if err := models.RequireRole(actor, "verify withdrawals", models.RoleFinanceOfficer); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, id, models.WithdrawalStatus.Verify, consts.AuditWithdrawalVerified,
		func(t *storemodels.WithdrawalTransition) { t.VerifiedBy = &actor.MemberID })
}

func (s *WithdrawalService) Approve(ctx context.Context, actor models.Actor, id primitive.ObjectID) (*storemodels.WithdrawalRequest, error) {
	if err := models.RequireRole(actor, "approve withdrawals", models.RoleChairperson); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, id, models.WithdrawalStatus.Approve, consts.AuditWithdrawalApproved,
		func(t *storemodels.WithdrawalTransition) { t.ApprovedBy = &actor.MemberID })
}

func (s *WithdrawalService) transition(
	ctx context.Context,
	actor models.Actor,
	id primitive.ObjectID,
	next func(models.WithdrawalStatus) (models.WithdrawalStatus, error),
	action string,
	decorate func(*storemodels.WithdrawalTransition),
) (*storemodels.WithdrawalRequest, error) {
	request, err := s.repos.Withdrawals.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	to, err := next(request.Status)
	if err != nil {
		return nil, err
	}
	t := storemodels.WithdrawalTransition{From: request.Status, To: to, At: s.now()}
	decorate(&t)
	ok, err := s.repos.Withdrawals.Transition(ctx, id, t)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewConflict("withdrawal request %s changed concurrently, reload and retry", id.Hex())
	}
	updated := t.Apply(*request)
	s.emit(ctx, actor, action, &updated, map[string]interface{}{"from": string(request.Status)})
	return &updated, nil
}

// Disburse pays out an approved request. When savings no longer cover the
// amount the request stays approved and can be retried once funded.
func (s *WithdrawalService) Disburse(ctx context.Context, actor models.Actor, id primitive.ObjectID) (*storemodels.WithdrawalRequest, error) {
	if err := models.RequireRole(actor, "disburse withdrawals", models.RoleTreasurer); err != nil {
		return nil, err
	}
	request, err := s.repos.Withdrawals.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	to, err := request.Status.Disburse()
	if err != nil {
		return nil, err
	}

	var updated storemodels.WithdrawalRequest
	var journal *storemodels.Transaction
	err = s.uow.Do(ctx, func(ctx context.Context) error {
		wallet, err := s.repos.Wallets.GetByMemberID(ctx, request.RequesterID)
		if err != nil {
			return err
		}
		if wallet.Savings < request.Amount {
			return models.NewInsufficientFunds("Insufficient savings. Available: %s, required: %s",
				wallet.Savings, request.Amount)
		}

		metadata := map[string]interface{}{
			"withdrawalId": id.Hex(),
			"destination":  request.Destination,
			"disbursedBy":  actor.MemberID.Hex(),
		}
		if request.ApprovedBy != nil {
			metadata["authorizedBy"] = request.ApprovedBy.Hex()
		}
		journal = ledger.JournalEntry(models.TxWithdrawal, request.Amount,
			ledger.NewReference(consts.ReferencePrefixWithdrawal), models.ProviderMpesa, metadata)
		if _, err := s.ledger.ApplyEntry(ctx, wallet.ID, storemodels.WalletDelta{Savings: -request.Amount}, journal); err != nil {
			return err
		}

		at := s.now()
		t := storemodels.WithdrawalTransition{
			From: request.Status, To: to, At: at, DisbursedBy: &actor.MemberID, TransactionID: &journal.ID,
		}
		ok, err := s.repos.Withdrawals.Transition(ctx, id, t)
		if err != nil {
			return err
		}
		if !ok {
			return models.NewConflict("withdrawal request %s changed concurrently, reload and retry", id.Hex())
		}
		updated = t.Apply(*request)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, actor, consts.AuditWithdrawalDisbursed, &updated, map[string]interface{}{
		"reference": journal.Reference,
		"amount":    int64(updated.Amount),
	})
	s.notifier.Notify(ctx, models.NotificationMessage{
		Event:       models.EventWithdrawalCompleted,
		RecipientID: updated.RequesterID.Hex(),
		Parameters: map[string]string{
			"withdrawalId": updated.ID.Hex(),
			"amount":       updated.Amount.String(),
			"destination":  updated.Destination,
			"reference":    journal.Reference,
		},
	})
	return &updated, nil
}

func (s *WithdrawalService) Get(ctx context.Context, actor models.Actor, id primitive.ObjectID) (*storemodels.WithdrawalRequest, error) {
	request, err := s.repos.Withdrawals.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.RequesterID != actor.MemberID && !models.HasRole(actor.Role, staffRoles...) {
		return nil, models.NewForbidden("members may only view their own withdrawals")
	}
	return request, nil
}

func (s *WithdrawalService) ListMine(ctx context.Context, actor models.Actor) ([]storemodels.WithdrawalRequest, error) {
	return s.repos.Withdrawals.ListByRequester(ctx, actor.MemberID)
}

func (s *WithdrawalService) ListByStatus(
	ctx context.Context,
	actor models.Actor,
	status models.WithdrawalStatus,
) ([]storemodels.WithdrawalRequest, error) {
	if err := models.RequireRole(actor, "list withdrawals by status", staffRoles...); err != nil {
		return nil, err
	}
	return s.repos.Withdrawals.ListByStatus(ctx, status)
}

func (s *WithdrawalService) emit(
	ctx context.Context,
	actor models.Actor,
	action string,
	request *storemodels.WithdrawalRequest,
	details map[string]interface{},
) {
	if details == nil {
		details = map[string]interface{}{}
	}
	details["status"] = string(request.Status)
	s.audit.Emit(ctx, models.NewAuditEvent(actor, action, consts.AuditEntityWithdrawal, request.ID.Hex(), details))
}
