// Package deposits books money arriving from outside: cash recorded by an
// officer and mobile-money collections confirmed by the gateway callback.
// Both run through the same allocation waterfall.
package deposits

import (
	"context"
	"strings"
	"time"

	"sacco-ledger/internal/pkg/config"
	"sacco-ledger/internal/pkg/consts"
	"sacco-ledger/internal/pkg/log_messages"
	"sacco-ledger/internal/pkg/logger"
	"sacco-ledger/internal/pkg/models"
	storemodels "sacco-ledger/internal/pkg/store/models"
	"sacco-ledger/internal/service/allocation"
	"sacco-ledger/internal/service/interfaces"
	"sacco-ledger/internal/service/ledger"

	"go.uber.org/zap"
)

type DepositServiceInterface interface {
	RecordManual(ctx context.Context, actor models.Actor, req models.ManualDepositRequest) (*Deposit, error)
	InitiateGateway(ctx context.Context, actor models.Actor, req models.GatewayDepositRequest) (*storemodels.Transaction, error)
	HandleCallback(ctx context.Context, cb models.GatewayCallback) (bool, error)
}

// Deposit is a booked deposit and how it was split.
type Deposit struct {
	Journal *storemodels.Transaction `json:"journal"`
	Split   allocation.Split         `json:"split"`
	Wallet  *storemodels.Wallet      `json:"wallet"`
}

type Repositories struct {
	Members      interfaces.MemberRepositoryInterface
	Wallets      interfaces.WalletRepositoryInterface
	Transactions interfaces.TransactionRepositoryInterface
}

type DepositService struct {
	uow      interfaces.UnitOfWork
	repos    Repositories
	ledger   ledger.LedgerServiceInterface
	gateway  interfaces.PaymentGateway
	seen     interfaces.RedisStoreOperations
	audit    interfaces.AuditSink
	notifier interfaces.Notifier
	rules    config.RulesConfig
	now      func() time.Time
}

var _ DepositServiceInterface = (*DepositService)(nil)

// NewDepositService builds the service. seen may be nil, in which case only
// the journal status guards against replayed callbacks.
func NewDepositService(
	uow interfaces.UnitOfWork,
	repos Repositories,
	ledgerService ledger.LedgerServiceInterface,
	gateway interfaces.PaymentGateway,
	seen interfaces.RedisStoreOperations,
	audit interfaces.AuditSink,
	notifier interfaces.Notifier,
	rules config.RulesConfig,
) *DepositService {
	return &DepositService{
		uow:      uow,
		repos:    repos,
		ledger:   ledgerService,
		gateway:  gateway,
		seen:     seen,
		audit:    audit,
		notifier: notifier,
		rules:    rules,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the service clock.
func (s *DepositService) WithClock(now func() time.Time) *DepositService {
	s.now = now
	return s
}

// RecordManual books cash handed to an officer against the member's wallet.
func (s *DepositService) RecordManual(ctx context.Context, actor models.Actor, req models.ManualDepositRequest) (*Deposit, error) {
	if err := models.RequireRole(actor, "record manual deposits", models.RoleFinanceOfficer, models.RoleTreasurer); err != nil {
		return nil, err
	}
	if err := models.Validate(req); err != nil {
		return nil, err
	}
	member, err := s.repos.Members.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.MemberEmail)))
	if err != nil {
		return nil, err
	}

	reference := req.Reference
	if reference == "" {
		reference = ledger.NewReference(consts.ReferencePrefixDeposit)
	}

	result := &Deposit{}
	err = s.uow.Do(ctx, func(ctx context.Context) error {
		wallet, err := s.repos.Wallets.GetByMemberID(ctx, member.ID)
		if err != nil {
			return err
		}
		metadata := map[string]interface{}{"recordedBy": actor.MemberID.Hex()}
		result.Journal = ledger.JournalEntry(models.TxManualDeposit, req.Amount, reference, models.ProviderCash, metadata)
		result.Wallet, err = s.ledger.ApplyDerived(ctx, wallet.ID, s.splitInto(req.Amount, &result.Split, metadata), result.Journal)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.audit.Emit(ctx, models.NewAuditEvent(actor, consts.AuditDepositRecorded, consts.AuditEntityTransaction,
		result.Journal.ID.Hex(), map[string]interface{}{
			"memberId":  member.ID.Hex(),
			"amount":    int64(req.Amount),
			"reference": reference,
		}))
	s.notifyReceived(ctx, member.ID.Hex(), member.Phone, req.Amount, result.Split, reference)
	return result, nil
}

// InitiateGateway records a pending deposit and then asks the gateway to
// collect it. The tracking id the gateway hands back is what the callback
// is matched on.
func (s *DepositService) InitiateGateway(
	ctx context.Context,
	actor models.Actor,
	req models.GatewayDepositRequest,
) (*storemodels.Transaction, error) {
	if err := models.Validate(req); err != nil {
		return nil, err
	}
	wallet, err := s.repos.Wallets.GetByMemberID(ctx, actor.MemberID)
	if err != nil {
		return nil, err
	}

	reference := ledger.NewReference(consts.ReferencePrefixDeposit)
	journal := &storemodels.Transaction{
		WalletID:  wallet.ID,
		Amount:    req.Amount,
		Kind:      models.TxDeposit,
		Reference: reference,
		Provider:  models.ProviderMpesa,
		Metadata:  map[string]interface{}{"phone": req.Phone},
	}
	if err := s.ledger.RecordPending(ctx, journal); err != nil {
		return nil, err
	}

	trackingID, err := s.gateway.InitiateDeposit(ctx, req.Phone, req.Amount, reference)
	if err != nil {
		logger.CtxError(ctx, log_messages.GatewayRequestFailed, err, zap.String("reference", reference))
		if _, settleErr := s.ledger.SettlePending(ctx, journal, false, nil,
			map[string]interface{}{"failure": err.Error()}); settleErr != nil {
			logger.CtxError(ctx, log_messages.ErrorSettlingTransaction, settleErr, zap.String("reference", reference))
		}
		return nil, err
	}

	ok, err := s.repos.Transactions.AttachTrackingID(ctx, journal.ID, trackingID)
	if err != nil || !ok {
		logger.CtxError(ctx, log_messages.GatewayTrackingIDNotLinked, err,
			zap.String("reference", reference),
			zap.String("trackingId", trackingID))
		if err == nil {
			err = models.NewConflict("deposit %s is no longer pending", reference)
		}
		return nil, err
	}
	journal.TrackingID = trackingID

	s.audit.Emit(ctx, models.NewAuditEvent(actor, consts.AuditDepositInitiated, consts.AuditEntityTransaction,
		journal.ID.Hex(), map[string]interface{}{
			"amount":     int64(req.Amount),
			"trackingId": trackingID,
			"reference":  reference,
		}))
	return journal, nil
}

// HandleCallback settles the pending deposit the callback refers to, at most
// once. Unknown and already settled tracking ids are logged and ignored so
// the gateway does not retry them. It reports whether this call settled the
// deposit.
func (s *DepositService) HandleCallback(ctx context.Context, cb models.GatewayCallback) (bool, error) {
	if err := models.Validate(cb); err != nil {
		return false, err
	}
	fields := []zap.Field{zap.String("trackingId", cb.TrackingID), zap.Int("resultCode", cb.ResultCode)}

	seenKey := consts.CallbackSeenKeyPrefix + cb.TrackingID
	marked := false
	if s.seen != nil {
		first, err := s.seen.SetNX(ctx, seenKey, cb.ResultCode, consts.CallbackSeenTTL)
		switch {
		case err != nil:
			logger.CtxWarn(ctx, log_messages.GatewayDedupUnavailable, append(fields, zap.Error(err))...)
		case !first:
			logger.CtxWarn(ctx, log_messages.GatewayCallbackDuplicate, fields...)
			return false, nil
		default:
			marked = true
		}
	}

	settled, err := s.settle(ctx, cb, fields)
	if err != nil && marked {
		// let the gateway's retry through once the failure is fixed
		if delErr := s.seen.Delete(ctx, seenKey); delErr != nil {
			logger.CtxWarn(ctx, log_messages.GatewayDedupUnavailable, append(fields, zap.Error(delErr))...)
		}
	}
	return settled, err
}

func (s *DepositService) settle(ctx context.Context, cb models.GatewayCallback, fields []zap.Field) (bool, error) {
	journal, err := s.repos.Transactions.GetByTrackingID(ctx, cb.TrackingID)
	if models.IsCode(err, models.ErrCodeNotFound) {
		logger.CtxWarn(ctx, log_messages.GatewayCallbackUnknown, fields...)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if journal.Status.Final() {
		logger.CtxWarn(ctx, log_messages.GatewayCallbackAlreadyFinal, append(fields, zap.String("status", string(journal.Status)))...)
		return false, nil
	}

	success := cb.ResultCode == consts.GatewayResultSuccess
	metadata := map[string]interface{}{
		"resultCode": cb.ResultCode,
		"resultDesc": cb.ResultDesc,
	}
	var split allocation.Split
	var derive ledger.DeltaFunc
	amount := journal.Amount
	if success {
		if cb.Amount > 0 {
			amount = cb.Amount
		}
		derive = s.splitInto(amount, &split, metadata)
		metadata["receiptNumber"] = cb.ReceiptNumber
		metadata["settledAmount"] = int64(amount)
	}

	settled, err := s.ledger.SettlePending(ctx, journal, success, derive, metadata)
	if err != nil {
		return false, err
	}
	if !settled {
		logger.CtxWarn(ctx, log_messages.GatewayCallbackAlreadyFinal, fields...)
		return false, nil
	}

	logger.CtxInfo(ctx, log_messages.GatewayCallbackApplied, append(fields, zap.Bool("success", success))...)
	s.audit.Emit(ctx, models.NewAuditEvent(models.Actor{}, consts.AuditDepositSettled, consts.AuditEntityTransaction,
		journal.ID.Hex(), map[string]interface{}{
			"success":       success,
			"trackingId":    cb.TrackingID,
			"receiptNumber": cb.ReceiptNumber,
			"amount":        int64(amount),
		}))
	if success {
		wallet, err := s.repos.Wallets.GetByID(ctx, journal.WalletID)
		if err == nil {
			s.notifyReceived(ctx, wallet.MemberID.Hex(), "", amount, split, journal.Reference)
		}
	}
	return true, nil
}

// splitInto runs the waterfall against the wallet the ledger is about to
// write, keeping the latest split in split and metadata.
func (s *DepositService) splitInto(amount models.Money, split *allocation.Split, metadata map[string]interface{}) ledger.DeltaFunc {
	return func(current storemodels.Wallet) (storemodels.WalletDelta, error) {
		next, err := allocation.Allocate(amount, current.Fines, current.Welfare, models.KES(s.rules.WelfareTarget))
		if err != nil {
			return storemodels.WalletDelta{}, err
		}
		*split = next
		metadata["split"] = next.Metadata()
		return next.Delta(), nil
	}
}

func (s *DepositService) notifyReceived(ctx context.Context, memberID, phone string, amount models.Money, split allocation.Split, reference string) {
	s.notifier.Notify(ctx, models.NotificationMessage{
		Event:       models.EventDepositReceived,
		RecipientID: memberID,
		Phone:       phone,
		Parameters: map[string]string{
			"amount":    amount.String(),
			"toSavings": split.ToSavings.String(),
			"toWelfare": split.ToWelfare.String(),
			"toFines":   split.ToFines.String(),
			"reference": reference,
		},
	})
}
