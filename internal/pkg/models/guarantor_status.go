package models

type GuarantorStatus string

const (
	GuarantorPendingAdminCheck      GuarantorStatus = "PENDING_ADMIN_CHECK"
	GuarantorPendingFinanceApproval GuarantorStatus = "PENDING_FINANCE_APPROVAL"
	GuarantorPendingGuarantorAction GuarantorStatus = "PENDING_GUARANTOR_ACTION"
	GuarantorAccepted               GuarantorStatus = "ACCEPTED"
	GuarantorRejected               GuarantorStatus = "REJECTED"
	GuarantorReleased               GuarantorStatus = "RELEASED"
)

func (s GuarantorStatus) transition(to GuarantorStatus, from GuarantorStatus) (GuarantorStatus, error) {
	if s != from {
		return s, NewPreconditionFailed("Invalid guarantor transition. Current status: %s", s)
	}
	return to, nil
}

func (s GuarantorStatus) PassCheck() (GuarantorStatus, error) {
	return s.transition(GuarantorPendingFinanceApproval, GuarantorPendingAdminCheck)
}

func (s GuarantorStatus) FailCheck() (GuarantorStatus, error) {
	return s.transition(GuarantorRejected, GuarantorPendingAdminCheck)
}

func (s GuarantorStatus) Notify() (GuarantorStatus, error) {
	return s.transition(GuarantorPendingGuarantorAction, GuarantorPendingFinanceApproval)
}

func (s GuarantorStatus) Accept() (GuarantorStatus, error) {
	return s.transition(GuarantorAccepted, GuarantorPendingGuarantorAction)
}

func (s GuarantorStatus) Decline() (GuarantorStatus, error) {
	return s.transition(GuarantorRejected, GuarantorPendingGuarantorAction)
}

func (s GuarantorStatus) Release() (GuarantorStatus, error) {
	return s.transition(GuarantorReleased, GuarantorAccepted)
}

// GuarantorDecision is the guarantor's response to a pledge request.
type GuarantorDecision string

const (
	DecisionAccept GuarantorDecision = "ACCEPT"
	DecisionReject GuarantorDecision = "REJECT"
)
