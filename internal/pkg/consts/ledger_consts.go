package consts

const (
	DateFormat = "2006-01-02"

	ReferencePrefixLoan       = "LOAN"
	ReferencePrefixRepayment  = "PAY"
	ReferencePrefixWithdrawal = "WD"
	ReferencePrefixDeposit    = "DEP"
	ReferencePrefixPenalty    = "PEN"

	GatewayResultSuccess = 0

	AuditEntityLoan         = "LOAN"
	AuditEntityGuarantor    = "GUARANTOR"
	AuditEntityWithdrawal   = "WITHDRAWAL"
	AuditEntityTransaction  = "TRANSACTION"
	AuditEntityMember       = "MEMBER"
	AuditEntityWelfareClaim = "WELFARE_CLAIM"
)
