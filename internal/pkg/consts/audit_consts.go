package consts

// Audit actions, one per state-changing call.
const (
	AuditMemberRegistered = "MEMBER_REGISTERED"
	AuditMemberActivated  = "MEMBER_ACTIVATED"
	AuditMemberFrozen     = "MEMBER_FROZEN"

	AuditLoanApplied   = "LOAN_APPLIED"
	AuditLoanCovered   = "LOAN_GUARANTEE_COVERED"
	AuditLoanVerified  = "LOAN_VERIFIED"
	AuditLoanApproved  = "LOAN_APPROVED"
	AuditLoanRejected  = "LOAN_REJECTED"
	AuditLoanDisbursed = "LOAN_DISBURSED"
	AuditLoanRepaid    = "LOAN_REPAID"
	AuditLoanCompleted = "LOAN_COMPLETED"
	AuditLoanPenalized = "LOAN_PENALIZED"
	AuditLoanDefaulted = "LOAN_DEFAULTED"
	AuditLoanNoteAdded = "LOAN_NOTE_ADDED"

	AuditGuarantorRequested   = "GUARANTOR_REQUESTED"
	AuditGuarantorCheckPassed = "GUARANTOR_CHECK_PASSED"
	AuditGuarantorCheckFailed = "GUARANTOR_CHECK_FAILED"
	AuditGuarantorNotified    = "GUARANTOR_NOTIFIED"
	AuditGuarantorAccepted    = "GUARANTOR_ACCEPTED"
	AuditGuarantorDeclined    = "GUARANTOR_DECLINED"
	AuditGuarantorReleased    = "GUARANTOR_RELEASED"

	AuditWithdrawalRequested = "WITHDRAWAL_REQUESTED"
	AuditWithdrawalVerified  = "WITHDRAWAL_VERIFIED"
	AuditWithdrawalApproved  = "WITHDRAWAL_APPROVED"
	AuditWithdrawalDisbursed = "WITHDRAWAL_DISBURSED"

	AuditDepositRecorded  = "DEPOSIT_RECORDED"
	AuditDepositInitiated = "DEPOSIT_INITIATED"
	AuditDepositSettled   = "DEPOSIT_SETTLED"

	AuditWelfareClaimFiled    = "WELFARE_CLAIM_FILED"
	AuditWelfareClaimReviewed = "WELFARE_CLAIM_REVIEWED"
)
