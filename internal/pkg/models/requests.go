package models

type RegisterMemberRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone" validate:"required,min=10,max=13"`
	FirstName  string `json:"firstName" validate:"required,max=64"`
	LastName   string `json:"lastName" validate:"required,max=64"`
	NationalID string `json:"nationalId" validate:"required,max=20"`
}

type GuarantorInvite struct {
	Email  string `json:"email" validate:"required,email"`
	Amount Money  `json:"amount" validate:"gt=0"`
}

type LoanApplicationRequest struct {
	Amount                Money           `json:"amount" validate:"gt=0"`
	Purpose               string          `json:"purpose" validate:"required,max=255"`
	RepaymentPeriodMonths int             `json:"repaymentPeriodMonths" validate:"min=1,max=12"`
	Guarantor             GuarantorInvite `json:"guarantor"`
}

type LoanRejectionRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// RepaymentSource says where repayment money comes from.
type RepaymentSource string

const (
	// RepayExternal is new money arriving from outside the SACCO.
	RepayExternal RepaymentSource = "EXTERNAL"
	// RepayFromSavings moves the payment out of the borrower's own savings.
	RepayFromSavings RepaymentSource = "SAVINGS"
)

type RepaymentRequest struct {
	Amount Money           `json:"amount" validate:"gte=0"`
	Source RepaymentSource `json:"source" validate:"omitempty,oneof=EXTERNAL SAVINGS"`
}

type LoanNoteRequest struct {
	Content string `json:"content" validate:"required,max=2000"`
}

type GuarantorResponseRequest struct {
	Decision  GuarantorDecision `json:"decision" validate:"required,oneof=ACCEPT REJECT"`
	Signature string            `json:"signature" validate:"required_if=Decision ACCEPT,max=64"`
}

type WithdrawalCreateRequest struct {
	Amount      Money  `json:"amount" validate:"gt=0"`
	Destination string `json:"destination" validate:"required,max=64"`
	Reason      string `json:"reason" validate:"required,max=500"`
}

type ManualDepositRequest struct {
	MemberEmail string `json:"memberEmail" validate:"required,email"`
	Amount      Money  `json:"amount" validate:"gt=0"`
	Reference   string `json:"reference" validate:"omitempty,max=64"`
}

type GatewayDepositRequest struct {
	Phone  string `json:"phone" validate:"required,min=10,max=13"`
	Amount Money  `json:"amount" validate:"gt=0"`
}

// GatewayCallback is the settled outcome of a collection started with InitiateDeposit.
type GatewayCallback struct {
	TrackingID    string `json:"trackingId" validate:"required"`
	ResultCode    int    `json:"resultCode"`
	ResultDesc    string `json:"resultDesc"`
	Amount        Money  `json:"amount" validate:"gte=0"`
	ReceiptNumber string `json:"receiptNumber"`
}

type WelfareClaimRequest struct {
	Type            string `json:"type" validate:"required,max=50"`
	Description     string `json:"description" validate:"required,max=2000"`
	AmountRequested Money  `json:"amountRequested" validate:"gt=0"`
}

type WelfareClaimReviewRequest struct {
	Status     WelfareClaimStatus `json:"status" validate:"required,oneof=PROCESSING APPROVED REJECTED"`
	AdminNotes string             `json:"adminNotes" validate:"max=1000"`
}

// EvidenceFile is an optional upload attached to a welfare claim.
type EvidenceFile struct {
	Name        string
	ContentType string
	Data        []byte
}
