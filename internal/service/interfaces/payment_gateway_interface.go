package interfaces

import (
	"context"

	"sacco-ledger/internal/pkg/models"
)

// PaymentGateway starts an asynchronous mobile-money collection. The
// confirmation arrives later through the callback endpoint.
type PaymentGateway interface {
	InitiateDeposit(ctx context.Context, phone string, amount models.Money, reference string) (trackingID string, err error)
}

type EvidenceStore interface {
	Upload(ctx context.Context, memberID, fileName, contentType string, data []byte) (string, error)
}
