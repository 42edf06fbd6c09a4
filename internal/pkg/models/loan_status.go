package models

type LoanStatus string

const (
	LoanPendingGuarantors   LoanStatus = "PENDING_GUARANTORS"
	LoanPendingVerification LoanStatus = "PENDING_VERIFICATION"
	LoanPendingApproval     LoanStatus = "PENDING_APPROVAL"
	LoanApproved            LoanStatus = "APPROVED"
	LoanActive              LoanStatus = "ACTIVE"
	LoanCompleted           LoanStatus = "COMPLETED"
	LoanRejected            LoanStatus = "REJECTED"
	LoanDefaulted           LoanStatus = "DEFAULTED"
)

// Terminal statuses no longer block a new application.
func (s LoanStatus) Terminal() bool {
	return s == LoanCompleted || s == LoanRejected
}

// Repayable statuses accept money against the outstanding balance.
func (s LoanStatus) Repayable() bool {
	return s == LoanActive || s == LoanDefaulted
}

func (s LoanStatus) transition(to LoanStatus, from ...LoanStatus) (LoanStatus, error) {
	for _, f := range from {
		if s == f {
			return to, nil
		}
	}
	return s, NewPreconditionFailed("Invalid transition. Current status: %s", s)
}

func (s LoanStatus) CoverageReached() (LoanStatus, error) {
	return s.transition(LoanPendingVerification, LoanPendingGuarantors)
}

func (s LoanStatus) Verify() (LoanStatus, error) {
	return s.transition(LoanPendingApproval, LoanPendingVerification)
}

func (s LoanStatus) Approve() (LoanStatus, error) {
	return s.transition(LoanApproved, LoanPendingApproval)
}

func (s LoanStatus) Reject() (LoanStatus, error) {
	return s.transition(LoanRejected, LoanPendingVerification, LoanPendingApproval)
}

func (s LoanStatus) Disburse() (LoanStatus, error) {
	return s.transition(LoanActive, LoanApproved)
}

// Clear moves a repayable loan to COMPLETED once its balance reaches zero.
func (s LoanStatus) Clear() (LoanStatus, error) {
	return s.transition(LoanCompleted, LoanActive, LoanDefaulted)
}

func (s LoanStatus) Default() (LoanStatus, error) {
	return s.transition(LoanDefaulted, LoanActive)
}
