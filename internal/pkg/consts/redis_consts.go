package consts

import "time"

const (
	// ComplianceSweepLockKeyPrefix is suffixed with the sweep date (YYYY-MM-DD).
	ComplianceSweepLockKeyPrefix = "sacco:compliance:sweep:"
	// CallbackSeenKeyPrefix is suffixed with the gateway tracking id.
	CallbackSeenKeyPrefix = "sacco:gateway:callback:"
	CallbackSeenTTL       = 48 * time.Hour
)

const (
	// GatewayTokenKey caches the gateway OAuth access token.
	GatewayTokenKey = "sacco:gateway:token"
	// GatewayTokenSafetyMargin is subtracted from the token lifetime before caching.
	GatewayTokenSafetyMargin = 60 * time.Second
)
