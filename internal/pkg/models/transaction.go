package models

type TransactionKind string

const (
	TxDeposit          TransactionKind = "DEPOSIT"
	TxManualDeposit    TransactionKind = "MANUAL_DEPOSIT"
	TxLoanDisbursement TransactionKind = "LOAN_DISBURSEMENT"
	TxLoanRepayment    TransactionKind = "LOAN_REPAYMENT"
	TxLoanPenalty      TransactionKind = "LOAN_PENALTY"
	TxWithdrawal       TransactionKind = "WITHDRAWAL"
)

type TransactionStatus string

const (
	TxPending   TransactionStatus = "PENDING"
	TxCompleted TransactionStatus = "COMPLETED"
	TxFailed    TransactionStatus = "FAILED"
)

// Final statuses never change again.
func (s TransactionStatus) Final() bool {
	return s == TxCompleted || s == TxFailed
}

// Settle moves a pending entry to completed or failed exactly once.
func (s TransactionStatus) Settle(success bool) (TransactionStatus, error) {
	if s != TxPending {
		return s, NewPreconditionFailed("transaction already settled with status %s", s)
	}
	if success {
		return TxCompleted, nil
	}
	return TxFailed, nil
}

const (
	ProviderMpesa  = "MPESA"
	ProviderCash   = "CASH"
	ProviderSystem = "SYSTEM"
)

type MemberStatus string

const (
	MemberPending MemberStatus = "PENDING"
	MemberActive  MemberStatus = "ACTIVE"
	MemberFrozen  MemberStatus = "FROZEN"
)

type WelfareClaimStatus string

const (
	ClaimPending    WelfareClaimStatus = "PENDING"
	ClaimProcessing WelfareClaimStatus = "PROCESSING"
	ClaimApproved   WelfareClaimStatus = "APPROVED"
	ClaimRejected   WelfareClaimStatus = "REJECTED"
)

func (s WelfareClaimStatus) Reviewable() bool {
	return s == ClaimProcessing || s == ClaimApproved || s == ClaimRejected
}
