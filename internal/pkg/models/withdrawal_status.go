package models

type WithdrawalStatus string

const (
	WithdrawalPendingVerification         WithdrawalStatus = "PENDING_VERIFICATION"
	WithdrawalPendingApproval             WithdrawalStatus = "PENDING_APPROVAL"
	WithdrawalApprovedPendingDisbursement WithdrawalStatus = "APPROVED_PENDING_DISBURSEMENT"
	WithdrawalCompleted                   WithdrawalStatus = "COMPLETED"
)

func (s WithdrawalStatus) transition(to WithdrawalStatus, from WithdrawalStatus) (WithdrawalStatus, error) {
	if s != from {
		return s, NewPreconditionFailed("Invalid transition. Current status: %s", s)
	}
	return to, nil
}

func (s WithdrawalStatus) Verify() (WithdrawalStatus, error) {
	return s.transition(WithdrawalPendingApproval, WithdrawalPendingVerification)
}

func (s WithdrawalStatus) Approve() (WithdrawalStatus, error) {
	return s.transition(WithdrawalApprovedPendingDisbursement, WithdrawalPendingApproval)
}

func (s WithdrawalStatus) Disburse() (WithdrawalStatus, error) {
	return s.transition(WithdrawalCompleted, WithdrawalApprovedPendingDisbursement)
}
