package welfare

import (
	"context"
	"time"

	"sacco-ledger/internal/pkg/consts"
	"sacco-ledger/internal/pkg/log_messages"
	"sacco-ledger/internal/pkg/logger"
	"sacco-ledger/internal/pkg/models"
	storemodels "sacco-ledger/internal/pkg/store/models"
	"sacco-ledger/internal/service/interfaces"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type WelfareServiceInterface interface {
	FileClaim(ctx context.Context, actor models.Actor, req models.WelfareClaimRequest, evidence *models.EvidenceFile) (*storemodels.WelfareClaim, error)
	ListMine(ctx context.Context, actor models.Actor) ([]storemodels.WelfareClaim, error)
	ListAll(ctx context.Context, actor models.Actor) ([]storemodels.WelfareClaim, error)
	Review(ctx context.Context, actor models.Actor, id primitive.ObjectID, req models.WelfareClaimReviewRequest) (*storemodels.WelfareClaim, error)
}

type WelfareService struct {
	claims   interfaces.WelfareClaimRepositoryInterface
	evidence interfaces.EvidenceStore
	audit    interfaces.AuditSink
	notifier interfaces.Notifier
	now      func() time.Time
}

var _ WelfareServiceInterface = (*WelfareService)(nil)

var reviewerRoles = []models.Role{models.RoleFinanceOfficer, models.RoleChairperson, models.RoleSecretary}

// NewWelfareService builds the claims service. evidence may be nil when no
// bucket is configured; claims with attachments are then refused.
func NewWelfareService(
	claims interfaces.WelfareClaimRepositoryInterface,
	evidence interfaces.EvidenceStore,
	audit interfaces.AuditSink,
	notifier interfaces.Notifier,
) *WelfareService {
	return &WelfareService{
		claims:   claims,
		evidence: evidence,
		audit:    audit,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the service clock.
func (s *WelfareService) WithClock(now func() time.Time) *WelfareService {
	s.now = now
	return s
}

func (s *WelfareService) FileClaim(
	ctx context.Context,
	actor models.Actor,
	req models.WelfareClaimRequest,
	evidence *models.EvidenceFile,
) (*storemodels.WelfareClaim, error) {
	if err := models.Validate(req); err != nil {
		return nil, err
	}

	documentURL := ""
	if evidence != nil && len(evidence.Data) > 0 {
		if len(evidence.Data) > consts.MaxEvidenceBytes {
			return nil, models.NewValidationError("Evidence file exceeds %d MB", consts.MaxEvidenceBytes>>20)
		}
		if s.evidence == nil {
			return nil, models.NewPreconditionFailed("Evidence uploads are not available")
		}
		url, err := s.evidence.Upload(ctx, actor.MemberID.Hex(), evidence.Name, evidence.ContentType, evidence.Data)
		if err != nil {
			return nil, err
		}
		documentURL = url
	}

	at := s.now()
	claim := &storemodels.WelfareClaim{
		MemberID:        actor.MemberID,
		Type:            req.Type,
		Description:     req.Description,
		AmountRequested: req.AmountRequested,
		DocumentURL:     documentURL,
		Status:          models.ClaimPending,
		CreatedAt:       at,
		UpdatedAt:       at,
	}
	if err := s.claims.Create(ctx, claim); err != nil {
		if documentURL != "" {
			logger.CtxWarn(ctx, log_messages.WelfareEvidenceOrphaned, zap.String("documentUrl", documentURL))
		}
		return nil, err
	}

	s.emit(ctx, actor, consts.AuditWelfareClaimFiled, claim, map[string]interface{}{
		"type":            claim.Type,
		"amountRequested": int64(claim.AmountRequested),
		"hasEvidence":     documentURL != "",
	})
	return claim, nil
}

func (s *WelfareService) ListMine(ctx context.Context, actor models.Actor) ([]storemodels.WelfareClaim, error) {
	return s.claims.ListByMember(ctx, actor.MemberID)
}

func (s *WelfareService) ListAll(ctx context.Context, actor models.Actor) ([]storemodels.WelfareClaim, error) {
	if err := models.RequireRole(actor, "list welfare claims", reviewerRoles...); err != nil {
		return nil, err
	}
	return s.claims.ListAll(ctx)
}

// Review records a decision on an open claim. Claims carry no ledger effect;
// payouts are booked separately.
func (s *WelfareService) Review(
	ctx context.Context,
	actor models.Actor,
	id primitive.ObjectID,
	req models.WelfareClaimReviewRequest,
) (*storemodels.WelfareClaim, error) {
	if err := models.RequireRole(actor, "review welfare claims", reviewerRoles...); err != nil {
		return nil, err
	}
	if err := models.Validate(req); err != nil {
		return nil, err
	}
	claim, err := s.claims.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	review := storemodels.ClaimReview{
		Status:     req.Status,
		AdminNotes: req.AdminNotes,
		ReviewedBy: actor.MemberID,
		At:         s.now(),
	}
	ok, err := s.claims.Review(ctx, id, review)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewPreconditionFailed("Claim is already %s", claim.Status)
	}

	previous := claim.Status
	claim.Status = review.Status
	claim.AdminNotes = review.AdminNotes
	claim.ReviewedBy = &review.ReviewedBy
	claim.UpdatedAt = review.At

	s.emit(ctx, actor, consts.AuditWelfareClaimReviewed, claim, map[string]interface{}{"from": string(previous)})
	s.notifier.Notify(ctx, models.NotificationMessage{
		Event:       models.EventWelfareClaimReviewed,
		RecipientID: claim.MemberID.Hex(),
		Parameters: map[string]string{
			"claimId":    claim.ID.Hex(),
			"status":     string(claim.Status),
			"adminNotes": claim.AdminNotes,
		},
	})
	return claim, nil
}

func (s *WelfareService) emit(
	ctx context.Context,
	actor models.Actor,
	action string,
	claim *storemodels.WelfareClaim,
	details map[string]interface{},
) {
	details["status"] = string(claim.Status)
	s.audit.Emit(ctx, models.NewAuditEvent(actor, action, consts.AuditEntityWelfareClaim, claim.ID.Hex(), details))
}
