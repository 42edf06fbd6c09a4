package log_messages

const (
	FailedLoadingConfiguration = "Failed loading configuration"
	ServerStartFailure         = "Failed to start HTTP server"
	ServerExiting              = "Server exiting"
	CleanupStarted             = "Cleanup of resources started"
	CleanupCompleted           = "Cleanup of resources completed"
	RequestCompleted           = "Request completed"
	InvalidActorHeaders        = "Ignoring malformed actor headers"
	RequestFailed              = "Request failed"
	OptionalSinkDisabled       = "Optional sink not configured, falling back to logs"
	ServerStarted              = "HTTP server listening"
	TracerSetupFailed          = "Failed to set up tracing"
	MongoConnectFailed         = "Failed to connect to MongoDB"
	MongoIndexesFailed         = "Failed to ensure MongoDB indexes"
	RedisConnectFailed         = "Failed to connect to Redis"
	KafkaProducerFailed        = "Failure in Kafka producer creation"
	PubSubPublisherFailed      = "Failure in PubSub publisher creation"
	GCSClientFailed            = "Failed to create GCS client"

	KafkaProducerCreated        = "Kafka producer created"
	PubsubPublisherCreated      = "PubSub publisher created"
	GCSClientClosedSuccessfully = "GCS client closed successfully"
	ErrorClosingGCSClient       = "Error closing GCS client"
	ErrorClosingGCSWriter       = "Error closing GCS writer"
	ErrorUploadingToGCSBucket   = "Error uploading to GCS bucket"
	UploadedToGCSBucket         = "Uploaded object to GCS bucket"

	TransactionStartFailed = "Failed to start MongoDB session"
	DocumentNotFound       = "Document not found"

	ErrorCreatingWallet       = "Error creating wallet document"
	ErrorFetchingWallet       = "Error fetching wallet document"
	ErrorUpdatingWallet       = "Error updating wallet balances"
	WalletVersionConflict     = "Wallet version moved, retrying ledger entry"
	LedgerEntryApplied        = "Ledger entry applied"
	LedgerInvariantViolation  = "Ledger invariant violation"
	LedgerRetriesExhausted    = "Ledger compare-and-set retries exhausted"
	ErrorCreatingTransaction  = "Error creating transaction document"
	ErrorFetchingTransaction  = "Error fetching transaction document"
	ErrorSettlingTransaction  = "Error settling transaction document"
	ErrorCreatingMember       = "Error creating member document"
	ErrorFetchingMember       = "Error fetching member document"
	ErrorUpdatingMember       = "Error updating member document"
	ErrorCreatingLoan         = "Error creating loan document"
	ErrorFetchingLoan         = "Error fetching loan document"
	ErrorUpdatingLoan         = "Error updating loan document"
	ErrorCreatingGuarantor    = "Error creating guarantor document"
	ErrorFetchingGuarantor    = "Error fetching guarantor document"
	ErrorUpdatingGuarantor    = "Error updating guarantor document"
	ErrorCreatingWithdrawal   = "Error creating withdrawal request document"
	ErrorFetchingWithdrawal   = "Error fetching withdrawal request document"
	ErrorUpdatingWithdrawal   = "Error updating withdrawal request document"
	ErrorCreatingWelfareClaim = "Error creating welfare claim document"
	ErrorFetchingWelfareClaim = "Error fetching welfare claim document"
	ErrorUpdatingWelfareClaim = "Error updating welfare claim document"
	WelfareEvidenceOrphaned   = "Welfare claim evidence uploaded but claim not stored"
	ErrorDecodingDocument     = "Error decoding document"
	ErrorClosingCursor        = "Error closing cursor"

	ErrorPublishingAuditEvent   = "Error publishing audit event"
	ErrorMarshallingJSON        = "Error marshalling JSON"
	ErrorPublishingNotification = "Error publishing notification"
	AuditEventRecorded          = "Audit event recorded"
	NotificationPublished       = "Notification published"

	WalletMissingForPenalty          = "Borrower has no wallet, penalty recorded on loan only"
	LoanPenaltyApplied               = "Loan penalty applied"
	LoanPenaltyAlreadyApplied        = "Loan already penalized for this overdue period"
	LoanMarkedDefaulted              = "Loan marked as defaulted"
	ComplianceSweepStarted           = "Compliance sweep started"
	ComplianceSweepCompleted         = "Compliance sweep completed"
	ComplianceSweepAlreadyRan        = "Compliance sweep already holds today's lock"
	ComplianceSweepItemFailed        = "Compliance sweep item failed"
	ComplianceSweepLockReleaseFailed = "Compliance sweep lock could not be released"
	NoWorkerConfigured               = "no compliance sweep worker configured"
	ErrorChannelFullLoggingInstead   = "Error channel full, logging error instead"

	GatewayCallbackUnknown      = "Gateway callback for unknown tracking id ignored"
	GatewayCallbackAlreadyFinal = "Gateway callback for settled transaction ignored"
	GatewayCallbackDuplicate    = "Duplicate gateway callback ignored"
	GatewayCallbackApplied      = "Gateway callback applied"
	GatewayRequestFailed        = "Payment gateway request failed"
	GatewayTokenFailed          = "Payment gateway token request failed"
	GatewayDedupUnavailable     = "Gateway callback dedup marker unavailable, relying on journal status"
	GatewayTrackingIDNotLinked  = "Gateway tracking id could not be linked to the pending deposit"

	GuarantorCheckFailed     = "Guarantor silent check failed"
	GuarantorCoverageReached = "Guarantor coverage reached, loan moved to verification"
	GuarantorReleased        = "Guarantor collateral released"
)
