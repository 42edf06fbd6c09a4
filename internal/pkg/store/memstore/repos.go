package memstore

import (
	"context"
	"strings"
	"time"

	"sacco-ledger/internal/pkg/models"
	storemodels "sacco-ledger/internal/pkg/store/models"
	"sacco-ledger/internal/service/interfaces"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	_ interfaces.MemberRepositoryInterface       = (*MemberRepo)(nil)
	_ interfaces.WalletRepositoryInterface       = (*WalletRepo)(nil)
	_ interfaces.TransactionRepositoryInterface  = (*TransactionRepo)(nil)
	_ interfaces.LoanRepositoryInterface         = (*LoanRepo)(nil)
	_ interfaces.GuarantorRepositoryInterface    = (*GuarantorRepo)(nil)
	_ interfaces.WithdrawalRepositoryInterface   = (*WithdrawalRepo)(nil)
	_ interfaces.WelfareClaimRepositoryInterface = (*ClaimRepo)(nil)
)

type MemberRepo struct{ s *Store }

func (r *MemberRepo) Create(_ context.Context, member *storemodels.Member) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	member.Email = strings.ToLower(member.Email)
	for _, m := range r.s.data.members {
		if m.Email == member.Email || (member.Phone != "" && m.Phone == member.Phone) {
			return models.NewConflict("member with this email or phone already exists")
		}
	}
	if member.ID.IsZero() {
		member.ID = primitive.NewObjectID()
	}
	r.s.data.members[member.ID] = *member
	return nil
}

func (r *MemberRepo) GetByID(_ context.Context, id primitive.ObjectID) (*storemodels.Member, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.data.members[id]
	if !ok {
		return nil, models.NewNotFound("member %s not found", id.Hex())
	}
	return &m, nil
}

func (r *MemberRepo) GetByEmail(_ context.Context, email string) (*storemodels.Member, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.data.members {
		if m.Email == strings.ToLower(email) {
			return &m, nil
		}
	}
	return nil, models.NewNotFound("member %s not found", email)
}

func (r *MemberRepo) ExistsByEmailOrPhone(_ context.Context, email, phone string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.data.members {
		if m.Email == strings.ToLower(email) || (phone != "" && m.Phone == phone) {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemberRepo) RecordLoanApplication(_ context.Context, id primitive.ObjectID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.data.members[id]
	if !ok {
		return models.NewNotFound("member %s not found", id.Hex())
	}
	m.LoanApplications++
	m.UpdatedAt = at
	r.s.data.members[id] = m
	return nil
}

func (r *MemberRepo) UpdateStatus(_ context.Context, id primitive.ObjectID, from []models.MemberStatus, to models.MemberStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.data.members[id]
	if !ok {
		return false, nil
	}
	for _, f := range from {
		if m.Status == f {
			m.Status = to
			m.UpdatedAt = time.Now().UTC()
			r.s.data.members[id] = m
			return true, nil
		}
	}
	return false, nil
}

type WalletRepo struct{ s *Store }

func (r *WalletRepo) Create(_ context.Context, wallet *storemodels.Wallet) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, w := range r.s.data.wallets {
		if w.MemberID == wallet.MemberID {
			return models.NewConflict("member %s already has a wallet", wallet.MemberID.Hex())
		}
	}
	if wallet.ID.IsZero() {
		wallet.ID = primitive.NewObjectID()
	}
	r.s.data.wallets[wallet.ID] = *wallet
	return nil
}

func (r *WalletRepo) GetByID(_ context.Context, id primitive.ObjectID) (*storemodels.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.data.wallets[id]
	if !ok {
		return nil, models.NewNotFound("wallet for %s not found", id.Hex())
	}
	return &w, nil
}

func (r *WalletRepo) GetByMemberID(_ context.Context, memberID primitive.ObjectID) (*storemodels.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, w := range r.s.data.wallets {
		if w.MemberID == memberID {
			return &w, nil
		}
	}
	return nil, models.NewNotFound("wallet for %s not found", memberID.Hex())
}

func (r *WalletRepo) ApplyDelta(_ context.Context, id primitive.ObjectID, expectedVersion int64, delta storemodels.WalletDelta, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.walletConflicts > 0 {
		r.s.walletConflicts--
		return false, nil
	}
	w, ok := r.s.data.wallets[id]
	if !ok || w.Version != expectedVersion {
		return false, nil
	}
	w = w.Apply(delta)
	w.Version++
	w.UpdatedAt = at
	r.s.data.wallets[id] = w
	return true, nil
}

// All returns every wallet, for invariant sweeps in tests.
func (r *WalletRepo) All() []storemodels.Wallet {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]storemodels.Wallet, 0, len(r.s.data.wallets))
	for _, w := range r.s.data.wallets {
		out = append(out, w)
	}
	return out
}

type TransactionRepo struct{ s *Store }

func (r *TransactionRepo) Create(_ context.Context, tx *storemodels.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.data.transactions {
		if t.Reference == tx.Reference || (tx.TrackingID != "" && t.TrackingID == tx.TrackingID) {
			return models.NewConflict("transaction reference %s already recorded", tx.Reference)
		}
	}
	if tx.ID.IsZero() {
		tx.ID = primitive.NewObjectID()
	}
	r.s.data.transactions[tx.ID] = *tx
	return nil
}

func (r *TransactionRepo) GetByID(_ context.Context, id primitive.ObjectID) (*storemodels.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.data.transactions[id]
	if !ok {
		return nil, models.NewNotFound("transaction %s not found", id.Hex())
	}
	return &t, nil
}

func (r *TransactionRepo) GetByTrackingID(_ context.Context, trackingID string) (*storemodels.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.data.transactions {
		if t.TrackingID != "" && t.TrackingID == trackingID {
			return &t, nil
		}
	}
	return nil, models.NewNotFound("transaction %s not found", trackingID)
}

func (r *TransactionRepo) ListByWallet(_ context.Context, walletID primitive.ObjectID) ([]storemodels.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]storemodels.Transaction, 0)
	for _, t := range r.s.data.transactions {
		if t.WalletID == walletID {
			out = append(out, t)
		}
	}
	return sortByID(out, func(t storemodels.Transaction) primitive.ObjectID { return t.ID }, true), nil
}

func (r *TransactionRepo) AttachTrackingID(_ context.Context, id primitive.ObjectID, trackingID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.data.transactions[id]
	if !ok || t.Status != models.TxPending || t.TrackingID != "" {
		return false, nil
	}
	for _, other := range r.s.data.transactions {
		if other.TrackingID == trackingID {
			return false, models.NewConflict("tracking id %s already recorded", trackingID)
		}
	}
	t.TrackingID = trackingID
	r.s.data.transactions[id] = t
	return true, nil
}

func (r *TransactionRepo) Settle(_ context.Context, id primitive.ObjectID, status models.TransactionStatus, metadata map[string]interface{}, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.data.transactions[id]
	if !ok || t.Status != models.TxPending {
		return false, nil
	}
	merged := make(map[string]interface{}, len(t.Metadata)+len(metadata))
	for k, v := range t.Metadata {
		merged[k] = v
	}
	for k, v := range metadata {
		merged[k] = v
	}
	t.Status = status
	t.Metadata = merged
	t.CompletedAt = &at
	r.s.data.transactions[id] = t
	return true, nil
}

type LoanRepo struct{ s *Store }

func (r *LoanRepo) Create(_ context.Context, loan *storemodels.Loan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if loan.ID.IsZero() {
		loan.ID = primitive.NewObjectID()
	}
	if loan.Notes == nil {
		loan.Notes = []storemodels.LoanNote{}
	}
	r.s.data.loans[loan.ID] = *loan
	return nil
}

func (r *LoanRepo) GetByID(_ context.Context, id primitive.ObjectID) (*storemodels.Loan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.data.loans[id]
	if !ok {
		return nil, models.NewNotFound("loan %s not found", id.Hex())
	}
	return &l, nil
}

func (r *LoanRepo) HasOpenLoan(_ context.Context, borrowerID primitive.ObjectID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, l := range r.s.data.loans {
		if l.BorrowerID == borrowerID && !l.Status.Terminal() {
			return true, nil
		}
	}
	return false, nil
}

func (r *LoanRepo) filter(keep func(storemodels.Loan) bool, desc bool) []storemodels.Loan {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]storemodels.Loan, 0)
	for _, l := range r.s.data.loans {
		if keep(l) {
			out = append(out, l)
		}
	}
	return sortByID(out, func(l storemodels.Loan) primitive.ObjectID { return l.ID }, desc)
}

func (r *LoanRepo) ListByBorrower(_ context.Context, borrowerID primitive.ObjectID) ([]storemodels.Loan, error) {
	return r.filter(func(l storemodels.Loan) bool { return l.BorrowerID == borrowerID }, true), nil
}

func (r *LoanRepo) ListByStatus(_ context.Context, status models.LoanStatus) ([]storemodels.Loan, error) {
	return r.filter(func(l storemodels.Loan) bool { return l.Status == status }, false), nil
}

func (r *LoanRepo) FindOverdue(_ context.Context, asOf time.Time) ([]storemodels.Loan, error) {
	return r.filter(func(l storemodels.Loan) bool {
		return l.Status == models.LoanActive && l.DueDate != nil && l.DueDate.Before(asOf)
	}, false), nil
}

func (r *LoanRepo) Transition(_ context.Context, id primitive.ObjectID, t storemodels.LoanTransition) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.data.loans[id]
	if !ok || l.Status != t.From {
		return false, nil
	}
	r.s.data.loans[id] = t.Apply(l)
	return true, nil
}

func (r *LoanRepo) UpdateBalance(_ context.Context, id primitive.ObjectID, from models.LoanStatus, expectedBalance, newBalance models.Money, to models.LoanStatus, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.data.loans[id]
	if !ok || l.Status != from || l.Balance != expectedBalance {
		return false, nil
	}
	l.Balance = newBalance
	l.Status = to
	l.UpdatedAt = at
	r.s.data.loans[id] = l
	return true, nil
}

func (r *LoanRepo) ApplyPenalty(_ context.Context, id primitive.ObjectID, expectedBalance, penalty models.Money, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.data.loans[id]
	if !ok || l.Status != models.LoanActive || l.Balance != expectedBalance || l.PenalizedAt != nil {
		return false, nil
	}
	l.Balance += penalty
	l.TotalDue += penalty
	l.PenalizedAt = &at
	l.UpdatedAt = at
	r.s.data.loans[id] = l
	return true, nil
}

func (r *LoanRepo) AddNote(_ context.Context, id primitive.ObjectID, note storemodels.LoanNote) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.data.loans[id]
	if !ok {
		return false, nil
	}
	notes := make([]storemodels.LoanNote, len(l.Notes), len(l.Notes)+1)
	copy(notes, l.Notes)
	l.Notes = append(notes, note)
	l.UpdatedAt = note.CreatedAt
	r.s.data.loans[id] = l
	return true, nil
}

// Put overwrites a loan, for arranging test fixtures such as past due dates.
func (r *LoanRepo) Put(loan storemodels.Loan) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.data.loans[loan.ID] = loan
}

func (r *LoanRepo) All() []storemodels.Loan {
	return r.filter(func(storemodels.Loan) bool { return true }, false)
}

type GuarantorRepo struct{ s *Store }

func (r *GuarantorRepo) Create(_ context.Context, guarantor *storemodels.Guarantor) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	guarantor.Email = strings.ToLower(guarantor.Email)
	for _, g := range r.s.data.guarantors {
		if g.LoanID == guarantor.LoanID && g.Email == guarantor.Email {
			return models.NewConflict("%s is already invited on this loan", guarantor.Email)
		}
	}
	if guarantor.ID.IsZero() {
		guarantor.ID = primitive.NewObjectID()
	}
	r.s.data.guarantors[guarantor.ID] = *guarantor
	return nil
}

func (r *GuarantorRepo) GetByID(_ context.Context, id primitive.ObjectID) (*storemodels.Guarantor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	g, ok := r.s.data.guarantors[id]
	if !ok {
		return nil, models.NewNotFound("guarantor request %s not found", id.Hex())
	}
	return &g, nil
}

func (r *GuarantorRepo) ExistsForLoan(_ context.Context, loanID primitive.ObjectID, email string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, g := range r.s.data.guarantors {
		if g.LoanID == loanID && g.Email == strings.ToLower(email) {
			return true, nil
		}
	}
	return false, nil
}

func (r *GuarantorRepo) filter(keep func(storemodels.Guarantor) bool) []storemodels.Guarantor {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]storemodels.Guarantor, 0)
	for _, g := range r.s.data.guarantors {
		if keep(g) {
			out = append(out, g)
		}
	}
	return sortByID(out, func(g storemodels.Guarantor) primitive.ObjectID { return g.ID }, false)
}

func (r *GuarantorRepo) ListByLoan(_ context.Context, loanID primitive.ObjectID) ([]storemodels.Guarantor, error) {
	return r.filter(func(g storemodels.Guarantor) bool { return g.LoanID == loanID }), nil
}

func (r *GuarantorRepo) ListByLoanAndStatus(_ context.Context, loanID primitive.ObjectID, status models.GuarantorStatus) ([]storemodels.Guarantor, error) {
	return r.filter(func(g storemodels.Guarantor) bool { return g.LoanID == loanID && g.Status == status }), nil
}

func (r *GuarantorRepo) ListIncoming(_ context.Context, guarantorID primitive.ObjectID) ([]storemodels.Guarantor, error) {
	return r.filter(func(g storemodels.Guarantor) bool {
		return g.GuarantorID != nil && *g.GuarantorID == guarantorID && g.Status == models.GuarantorPendingGuarantorAction
	}), nil
}

func (r *GuarantorRepo) SumAccepted(_ context.Context, loanID primitive.ObjectID) (models.Money, error) {
	var total models.Money
	for _, g := range r.filter(func(g storemodels.Guarantor) bool {
		return g.LoanID == loanID && g.Status == models.GuarantorAccepted
	}) {
		total += g.Amount
	}
	return total, nil
}

func (r *GuarantorRepo) Transition(_ context.Context, id primitive.ObjectID, t storemodels.GuarantorTransition) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	g, ok := r.s.data.guarantors[id]
	if !ok || g.Status != t.From {
		return false, nil
	}
	r.s.data.guarantors[id] = t.Apply(g)
	return true, nil
}

func (r *GuarantorRepo) All() []storemodels.Guarantor {
	return r.filter(func(storemodels.Guarantor) bool { return true })
}

type WithdrawalRepo struct{ s *Store }

func (r *WithdrawalRepo) Create(_ context.Context, request *storemodels.WithdrawalRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if request.ID.IsZero() {
		request.ID = primitive.NewObjectID()
	}
	r.s.data.withdrawals[request.ID] = *request
	return nil
}

func (r *WithdrawalRepo) GetByID(_ context.Context, id primitive.ObjectID) (*storemodels.WithdrawalRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.data.withdrawals[id]
	if !ok {
		return nil, models.NewNotFound("withdrawal request %s not found", id.Hex())
	}
	return &w, nil
}

func (r *WithdrawalRepo) filter(keep func(storemodels.WithdrawalRequest) bool) []storemodels.WithdrawalRequest {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]storemodels.WithdrawalRequest, 0)
	for _, w := range r.s.data.withdrawals {
		if keep(w) {
			out = append(out, w)
		}
	}
	return sortByID(out, func(w storemodels.WithdrawalRequest) primitive.ObjectID { return w.ID }, true)
}

func (r *WithdrawalRepo) ListByRequester(_ context.Context, requesterID primitive.ObjectID) ([]storemodels.WithdrawalRequest, error) {
	return r.filter(func(w storemodels.WithdrawalRequest) bool { return w.RequesterID == requesterID }), nil
}

func (r *WithdrawalRepo) ListByStatus(_ context.Context, status models.WithdrawalStatus) ([]storemodels.WithdrawalRequest, error) {
	return r.filter(func(w storemodels.WithdrawalRequest) bool { return w.Status == status }), nil
}

func (r *WithdrawalRepo) Transition(_ context.Context, id primitive.ObjectID, t storemodels.WithdrawalTransition) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.data.withdrawals[id]
	if !ok || w.Status != t.From {
		return false, nil
	}
	r.s.data.withdrawals[id] = t.Apply(w)
	return true, nil
}

type ClaimRepo struct{ s *Store }

func (r *ClaimRepo) Create(_ context.Context, claim *storemodels.WelfareClaim) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if claim.ID.IsZero() {
		claim.ID = primitive.NewObjectID()
	}
	r.s.data.claims[claim.ID] = *claim
	return nil
}

func (r *ClaimRepo) GetByID(_ context.Context, id primitive.ObjectID) (*storemodels.WelfareClaim, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.data.claims[id]
	if !ok {
		return nil, models.NewNotFound("welfare claim %s not found", id.Hex())
	}
	return &c, nil
}

func (r *ClaimRepo) filter(keep func(storemodels.WelfareClaim) bool) []storemodels.WelfareClaim {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]storemodels.WelfareClaim, 0)
	for _, c := range r.s.data.claims {
		if keep(c) {
			out = append(out, c)
		}
	}
	return sortByID(out, func(c storemodels.WelfareClaim) primitive.ObjectID { return c.ID }, true)
}

func (r *ClaimRepo) ListByMember(_ context.Context, memberID primitive.ObjectID) ([]storemodels.WelfareClaim, error) {
	return r.filter(func(c storemodels.WelfareClaim) bool { return c.MemberID == memberID }), nil
}

func (r *ClaimRepo) ListAll(_ context.Context) ([]storemodels.WelfareClaim, error) {
	return r.filter(func(storemodels.WelfareClaim) bool { return true }), nil
}

func (r *ClaimRepo) Review(_ context.Context, id primitive.ObjectID, review storemodels.ClaimReview) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.data.claims[id]
	if !ok || (c.Status != models.ClaimPending && c.Status != models.ClaimProcessing) {
		return false, nil
	}
	reviewer := review.ReviewedBy
	c.Status = review.Status
	c.AdminNotes = review.AdminNotes
	c.ReviewedBy = &reviewer
	c.UpdatedAt = review.At
	r.s.data.claims[id] = c
	return true, nil
}
