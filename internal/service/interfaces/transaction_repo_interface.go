package interfaces

import (
	"context"
	"time"

	"sacco-ledger/internal/pkg/models"
	storemodels "sacco-ledger/internal/pkg/store/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TransactionRepositoryInterface interface {
	Create(ctx context.Context, tx *storemodels.Transaction) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*storemodels.Transaction, error)
	GetByTrackingID(ctx context.Context, trackingID string) (*storemodels.Transaction, error)
	ListByWallet(ctx context.Context, walletID primitive.ObjectID) ([]storemodels.Transaction, error)
	// AttachTrackingID records the gateway tracking id on a pending entry that has none yet.
	AttachTrackingID(ctx context.Context, id primitive.ObjectID, trackingID string) (bool, error)
	// Settle finalizes a PENDING entry. It reports false when the entry was
	// no longer pending.
	Settle(ctx context.Context, id primitive.ObjectID, status models.TransactionStatus, metadata map[string]interface{}, at time.Time) (bool, error)
}
