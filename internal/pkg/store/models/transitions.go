package models

import (
	"time"

	"sacco-ledger/internal/pkg/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LoanTransition is a guarded status change. Nil fields are left untouched.
type LoanTransition struct {
	From            models.LoanStatus
	To              models.LoanStatus
	At              time.Time
	RejectionReason string
	VerifiedBy      *primitive.ObjectID
	ApprovedBy      *primitive.ObjectID
	DisbursedBy     *primitive.ObjectID
	DisbursedAt     *time.Time
	DueDate         *time.Time
}

type GuarantorTransition struct {
	From         models.GuarantorStatus
	To           models.GuarantorStatus
	At           time.Time
	GuarantorID  *primitive.ObjectID
	RejectReason string
	CheckedBy    *primitive.ObjectID
	NotifiedBy   *primitive.ObjectID
	RespondedAt  *time.Time
	ReleasedAt   *time.Time
}

type WithdrawalTransition struct {
	From          models.WithdrawalStatus
	To            models.WithdrawalStatus
	At            time.Time
	VerifiedBy    *primitive.ObjectID
	ApprovedBy    *primitive.ObjectID
	DisbursedBy   *primitive.ObjectID
	TransactionID *primitive.ObjectID
}

type ClaimReview struct {
	Status     models.WelfareClaimStatus
	AdminNotes string
	ReviewedBy primitive.ObjectID
	At         time.Time
}

// Apply mirrors the update the repositories send to the store.
func (t LoanTransition) Apply(l Loan) Loan {
	l.Status = t.To
	l.UpdatedAt = t.At
	if t.RejectionReason != "" {
		l.RejectionReason = t.RejectionReason
	}
	if t.VerifiedBy != nil {
		l.VerifiedBy = t.VerifiedBy
	}
	if t.ApprovedBy != nil {
		l.ApprovedBy = t.ApprovedBy
	}
	if t.DisbursedBy != nil {
		l.DisbursedBy = t.DisbursedBy
	}
	if t.DisbursedAt != nil {
		l.DisbursedAt = t.DisbursedAt
	}
	if t.DueDate != nil {
		l.DueDate = t.DueDate
	}
	return l
}

func (t GuarantorTransition) Apply(g Guarantor) Guarantor {
	g.Status = t.To
	g.UpdatedAt = t.At
	if t.GuarantorID != nil {
		g.GuarantorID = t.GuarantorID
	}
	if t.RejectReason != "" {
		g.RejectReason = t.RejectReason
	}
	if t.CheckedBy != nil {
		g.CheckedBy = t.CheckedBy
	}
	if t.NotifiedBy != nil {
		g.NotifiedBy = t.NotifiedBy
	}
	if t.RespondedAt != nil {
		g.RespondedAt = t.RespondedAt
	}
	if t.ReleasedAt != nil {
		g.ReleasedAt = t.ReleasedAt
	}
	return g
}

func (t WithdrawalTransition) Apply(w WithdrawalRequest) WithdrawalRequest {
	w.Status = t.To
	w.UpdatedAt = t.At
	if t.VerifiedBy != nil {
		w.VerifiedBy = t.VerifiedBy
	}
	if t.ApprovedBy != nil {
		w.ApprovedBy = t.ApprovedBy
	}
	if t.DisbursedBy != nil {
		w.DisbursedBy = t.DisbursedBy
	}
	if t.TransactionID != nil {
		w.TransactionID = t.TransactionID
	}
	return w
}
