package models

import (
	"time"

	"sacco-ledger/internal/pkg/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Member struct {
	ID               primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Email            string              `bson:"email" json:"email"`
	Phone            string              `bson:"phone" json:"phone"`
	FirstName        string              `bson:"firstName" json:"firstName"`
	LastName         string              `bson:"lastName" json:"lastName"`
	NationalID       string              `bson:"nationalId" json:"nationalId"`
	Role             models.Role         `bson:"role" json:"role"`
	Status           models.MemberStatus `bson:"status" json:"status"`
	JoinedAt         time.Time           `bson:"joinedAt" json:"joinedAt"`
	UpdatedAt        time.Time           `bson:"updatedAt" json:"updatedAt"`
	LoanApplications int64               `bson:"loanApplications" json:"loanApplications"`
}

type Wallet struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MemberID      primitive.ObjectID `bson:"memberId" json:"memberId"`
	Savings       models.Money       `bson:"savings" json:"savings"`
	Locked        models.Money       `bson:"locked" json:"locked"`
	LoanLiability models.Money       `bson:"loanLiability" json:"loanLiability"`
	Welfare       models.Money       `bson:"welfare" json:"welfare"`
	Fines         models.Money       `bson:"fines" json:"fines"`
	Version       int64              `bson:"version" json:"version"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// FreeSavings is the portion not pledged as collateral.
func (w Wallet) FreeSavings() models.Money {
	return w.Savings - w.Locked
}

// WalletDelta is a signed change to each sub-balance.
type WalletDelta struct {
	Savings       models.Money `json:"savings,omitempty"`
	Locked        models.Money `json:"locked,omitempty"`
	LoanLiability models.Money `json:"loanLiability,omitempty"`
	Welfare       models.Money `json:"welfare,omitempty"`
	Fines         models.Money `json:"fines,omitempty"`
}

func (d WalletDelta) IsZero() bool {
	return d == WalletDelta{}
}

// Apply returns the wallet after the delta, without checking invariants.
func (w Wallet) Apply(d WalletDelta) Wallet {
	w.Savings += d.Savings
	w.Locked += d.Locked
	w.LoanLiability += d.LoanLiability
	w.Welfare += d.Welfare
	w.Fines += d.Fines
	return w
}

type Transaction struct {
	ID          primitive.ObjectID       `bson:"_id,omitempty" json:"id"`
	WalletID    primitive.ObjectID       `bson:"walletId" json:"walletId"`
	Amount      models.Money             `bson:"amount" json:"amount"`
	Kind        models.TransactionKind   `bson:"kind" json:"kind"`
	Status      models.TransactionStatus `bson:"status" json:"status"`
	Reference   string                   `bson:"reference" json:"reference"`
	Provider    string                   `bson:"provider" json:"provider"`
	TrackingID  string                   `bson:"trackingId,omitempty" json:"trackingId,omitempty"`
	Metadata    map[string]interface{}   `bson:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt   time.Time                `bson:"createdAt" json:"createdAt"`
	CompletedAt *time.Time               `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
}

type LoanNote struct {
	Content   string             `bson:"content" json:"content"`
	Role      models.Role        `bson:"role" json:"role"`
	Author    primitive.ObjectID `bson:"author" json:"author"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

type Loan struct {
	ID                    primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	BorrowerID            primitive.ObjectID  `bson:"borrowerId" json:"borrowerId"`
	Principal             models.Money        `bson:"principal" json:"principal"`
	Interest              models.Money        `bson:"interest" json:"interest"`
	TotalDue              models.Money        `bson:"totalDue" json:"totalDue"`
	Balance               models.Money        `bson:"balance" json:"balance"`
	Status                models.LoanStatus   `bson:"status" json:"status"`
	Purpose               string              `bson:"purpose" json:"purpose"`
	RepaymentPeriodMonths int                 `bson:"repaymentPeriodMonths" json:"repaymentPeriodMonths"`
	RejectionReason       string              `bson:"rejectionReason,omitempty" json:"rejectionReason,omitempty"`
	AppliedAt             time.Time           `bson:"appliedAt" json:"appliedAt"`
	DisbursedAt           *time.Time          `bson:"disbursedAt,omitempty" json:"disbursedAt,omitempty"`
	DueDate               *time.Time          `bson:"dueDate,omitempty" json:"dueDate,omitempty"`
	PenalizedAt           *time.Time          `bson:"penalizedAt,omitempty" json:"penalizedAt,omitempty"`
	VerifiedBy            *primitive.ObjectID `bson:"verifiedBy,omitempty" json:"verifiedBy,omitempty"`
	ApprovedBy            *primitive.ObjectID `bson:"approvedBy,omitempty" json:"approvedBy,omitempty"`
	DisbursedBy           *primitive.ObjectID `bson:"disbursedBy,omitempty" json:"disbursedBy,omitempty"`
	Notes                 []LoanNote          `bson:"notes" json:"notes"`
	UpdatedAt             time.Time           `bson:"updatedAt" json:"updatedAt"`
}

type Guarantor struct {
	ID           primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	LoanID       primitive.ObjectID     `bson:"loanId" json:"loanId"`
	InvitedBy    primitive.ObjectID     `bson:"invitedBy" json:"invitedBy"`
	Email        string                 `bson:"email" json:"email"`
	GuarantorID  *primitive.ObjectID    `bson:"guarantorId,omitempty" json:"guarantorId,omitempty"`
	Amount       models.Money           `bson:"amount" json:"amount"`
	Status       models.GuarantorStatus `bson:"status" json:"status"`
	RejectReason string                 `bson:"rejectReason,omitempty" json:"rejectReason,omitempty"`
	CheckedBy    *primitive.ObjectID    `bson:"checkedBy,omitempty" json:"checkedBy,omitempty"`
	NotifiedBy   *primitive.ObjectID    `bson:"notifiedBy,omitempty" json:"notifiedBy,omitempty"`
	RespondedAt  *time.Time             `bson:"respondedAt,omitempty" json:"respondedAt,omitempty"`
	ReleasedAt   *time.Time             `bson:"releasedAt,omitempty" json:"releasedAt,omitempty"`
	CreatedAt    time.Time              `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time              `bson:"updatedAt" json:"updatedAt"`
}

type WithdrawalRequest struct {
	ID            primitive.ObjectID      `bson:"_id,omitempty" json:"id"`
	RequesterID   primitive.ObjectID      `bson:"requesterId" json:"requesterId"`
	Amount        models.Money            `bson:"amount" json:"amount"`
	Destination   string                  `bson:"destination" json:"destination"`
	Reason        string                  `bson:"reason" json:"reason"`
	Status        models.WithdrawalStatus `bson:"status" json:"status"`
	VerifiedBy    *primitive.ObjectID     `bson:"verifiedBy,omitempty" json:"verifiedBy,omitempty"`
	ApprovedBy    *primitive.ObjectID     `bson:"approvedBy,omitempty" json:"approvedBy,omitempty"`
	DisbursedBy   *primitive.ObjectID     `bson:"disbursedBy,omitempty" json:"disbursedBy,omitempty"`
	TransactionID *primitive.ObjectID     `bson:"transactionId,omitempty" json:"transactionId,omitempty"`
	CreatedAt     time.Time               `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time               `bson:"updatedAt" json:"updatedAt"`
}

type WelfareClaim struct {
	ID              primitive.ObjectID        `bson:"_id,omitempty" json:"id"`
	MemberID        primitive.ObjectID        `bson:"memberId" json:"memberId"`
	Type            string                    `bson:"type" json:"type"`
	Description     string                    `bson:"description" json:"description"`
	AmountRequested models.Money              `bson:"amountRequested" json:"amountRequested"`
	DocumentURL     string                    `bson:"documentUrl,omitempty" json:"documentUrl,omitempty"`
	Status          models.WelfareClaimStatus `bson:"status" json:"status"`
	AdminNotes      string                    `bson:"adminNotes,omitempty" json:"adminNotes,omitempty"`
	ReviewedBy      *primitive.ObjectID       `bson:"reviewedBy,omitempty" json:"reviewedBy,omitempty"`
	CreatedAt       time.Time                 `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time                 `bson:"updatedAt" json:"updatedAt"`
}
