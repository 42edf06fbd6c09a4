package consts

const (
	APIBasePath = "/sacco"

	HeaderMemberID   = "X-Member-Id"
	HeaderMemberRole = "X-Member-Role"
	HeaderTraceID    = "X-Trace-Id"

	EvidenceFormField = "evidence"
)
