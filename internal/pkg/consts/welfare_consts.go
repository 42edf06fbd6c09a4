package consts

const (
	// MaxEvidenceBytes caps a single welfare-claim evidence upload.
	MaxEvidenceBytes = 5 << 20
)
