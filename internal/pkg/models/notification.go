package models

import "time"

const (
	EventGuarantorInvited     = "GUARANTOR_INVITED"
	EventGuarantorDecision    = "GUARANTOR_DECISION"
	EventGuarantorCheckFailed = "GUARANTOR_CHECK_FAILED"
	EventLoanStatusChanged    = "LOAN_STATUS_CHANGED"
	EventWithdrawalCompleted  = "WITHDRAWAL_COMPLETED"
	EventDepositReceived      = "DEPOSIT_RECEIVED"
	EventWelfareClaimReviewed = "WELFARE_CLAIM_REVIEWED"
)

// NotificationMessage is published to the notification topic for delivery by SMS or email.
type NotificationMessage struct {
	Event       string            `json:"event"`
	RecipientID string            `json:"recipientId,omitempty"`
	Email       string            `json:"email,omitempty"`
	Phone       string            `json:"phone,omitempty"`
	Parameters  map[string]string `json:"parameters,omitempty"`
	PublishedAt time.Time         `json:"publishedAt"`
}
