// Package members registers members, manages their lifecycle status and
// exposes their wallet balances.
package members

import (
	"context"
	"strings"
	"time"

	"sacco-ledger/internal/pkg/consts"
	"sacco-ledger/internal/pkg/models"
	storemodels "sacco-ledger/internal/pkg/store/models"
	"sacco-ledger/internal/service/interfaces"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MemberServiceInterface interface {
	Register(ctx context.Context, req models.RegisterMemberRequest) (*storemodels.Member, error)
	Activate(ctx context.Context, actor models.Actor, id primitive.ObjectID) (*storemodels.Member, error)
	Freeze(ctx context.Context, actor models.Actor, id primitive.ObjectID) (*storemodels.Member, error)
	Get(ctx context.Context, actor models.Actor, id primitive.ObjectID) (*storemodels.Member, error)
	Wallet(ctx context.Context, actor models.Actor, memberID primitive.ObjectID) (*storemodels.Wallet, error)
}

type Repositories struct {
	Members interfaces.MemberRepositoryInterface
	Wallets interfaces.WalletRepositoryInterface
}

type MemberService struct {
	uow   interfaces.UnitOfWork
	repos Repositories
	audit interfaces.AuditSink
	now   func() time.Time
}

var _ MemberServiceInterface = (*MemberService)(nil)

var staffRoles = []models.Role{
	models.RoleFinanceOfficer, models.RoleChairperson, models.RoleTreasurer, models.RoleSecretary,
}

func NewMemberService(uow interfaces.UnitOfWork, repos Repositories, audit interfaces.AuditSink) *MemberService {
	return &MemberService{
		uow:   uow,
		repos: repos,
		audit: audit,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the service clock.
func (s *MemberService) WithClock(now func() time.Time) *MemberService {
	s.now = now
	return s
}

// Register stores a PENDING member together with an empty wallet.
func (s *MemberService) Register(ctx context.Context, req models.RegisterMemberRequest) (*storemodels.Member, error) {
	if err := models.Validate(req); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	phone := strings.TrimSpace(req.Phone)

	at := s.now()
	member := &storemodels.Member{
		Email:      email,
		Phone:      phone,
		FirstName:  strings.TrimSpace(req.FirstName),
		LastName:   strings.TrimSpace(req.LastName),
		NationalID: strings.TrimSpace(req.NationalID),
		Role:       models.RoleMember,
		Status:     models.MemberPending,
		JoinedAt:   at,
		UpdatedAt:  at,
	}
	err := s.uow.Do(ctx, func(ctx context.Context) error {
		exists, err := s.repos.Members.ExistsByEmailOrPhone(ctx, email, phone)
		if err != nil {
			return err
		}
		if exists {
			return models.NewConflict("A member with this email or phone is already registered")
		}
		if err := s.repos.Members.Create(ctx, member); err != nil {
			return err
		}
		return s.repos.Wallets.Create(ctx, &storemodels.Wallet{MemberID: member.ID, UpdatedAt: at})
	})
	if err != nil {
		return nil, err
	}

	actor := models.Actor{MemberID: member.ID, Role: member.Role}
	s.emit(ctx, actor, consts.AuditMemberRegistered, member, map[string]interface{}{"email": member.Email})
	return member, nil
}

func (s *MemberService) Activate(ctx context.Context, actor models.Actor, id primitive.ObjectID) (*storemodels.Member, error) {
	if err := models.RequireRole(actor, "activate members", models.RoleFinanceOfficer, models.RoleChairperson); err != nil {
		return nil, err
	}
	return s.setStatus(ctx, actor, id, []models.MemberStatus{models.MemberPending}, models.MemberActive,
		consts.AuditMemberActivated)
}

// Freeze stops an active or pending member from borrowing. Defaulting freezes
// members automatically; this is the manual path.
func (s *MemberService) Freeze(ctx context.Context, actor models.Actor, id primitive.ObjectID) (*storemodels.Member, error) {
	if err := models.RequireRole(actor, "freeze members", models.RoleChairperson); err != nil {
		return nil, err
	}
	return s.setStatus(ctx, actor, id, []models.MemberStatus{models.MemberActive, models.MemberPending},
		models.MemberFrozen, consts.AuditMemberFrozen)
}

func (s *MemberService) setStatus(
	ctx context.Context,
	actor models.Actor,
	id primitive.ObjectID,
	from []models.MemberStatus,
	to models.MemberStatus,
	action string,
) (*storemodels.Member, error) {
	member, err := s.repos.Members.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.repos.Members.UpdateStatus(ctx, id, from, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewPreconditionFailed("Member is %s and cannot become %s", member.Status, to)
	}
	previous := member.Status
	member.Status = to
	member.UpdatedAt = s.now()
	s.emit(ctx, actor, action, member, map[string]interface{}{"from": string(previous)})
	return member, nil
}

func (s *MemberService) Get(ctx context.Context, actor models.Actor, id primitive.ObjectID) (*storemodels.Member, error) {
	if err := s.requireSelfOrStaff(actor, id); err != nil {
		return nil, err
	}
	return s.repos.Members.GetByID(ctx, id)
}

func (s *MemberService) Wallet(ctx context.Context, actor models.Actor, memberID primitive.ObjectID) (*storemodels.Wallet, error) {
	if err := s.requireSelfOrStaff(actor, memberID); err != nil {
		return nil, err
	}
	return s.repos.Wallets.GetByMemberID(ctx, memberID)
}

func (s *MemberService) requireSelfOrStaff(actor models.Actor, memberID primitive.ObjectID) error {
	if actor.MemberID == memberID || models.HasRole(actor.Role, staffRoles...) {
		return nil
	}
	return models.NewForbidden("members may only view their own account")
}

func (s *MemberService) emit(
	ctx context.Context,
	actor models.Actor,
	action string,
	member *storemodels.Member,
	details map[string]interface{},
) {
	details["status"] = string(member.Status)
	s.audit.Emit(ctx, models.NewAuditEvent(actor, action, consts.AuditEntityMember, member.ID.Hex(), details))
}
