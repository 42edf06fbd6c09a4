package consts

const (
	ContentType = "application/json"

	GatewayTokenPath         = "/oauth/v1/generate?grant_type=client_credentials"
	GatewayStkPushPath       = "/mpesa/stkpush/v1/processrequest"
	GatewayTransactionType   = "CustomerPayBillOnline"
	GatewayTransactionDesc   = "Sacco Deposit"
	GatewayTimestampLayout   = "20060102150405"
	GatewayResponseCodeOK    = "0"
	GatewayCountryCode       = "254"
	GatewayMaxReferenceChars = 12
)
