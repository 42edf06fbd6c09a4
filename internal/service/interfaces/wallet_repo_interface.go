package interfaces

import (
	"context"
	"time"

	storemodels "sacco-ledger/internal/pkg/store/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type WalletRepositoryInterface interface {
	Create(ctx context.Context, wallet *storemodels.Wallet) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*storemodels.Wallet, error)
	GetByMemberID(ctx context.Context, memberID primitive.ObjectID) (*storemodels.Wallet, error)
	// ApplyDelta increments the balances only while the wallet is still at
	// expectedVersion. It reports false when the version has moved.
	ApplyDelta(ctx context.Context, id primitive.ObjectID, expectedVersion int64, delta storemodels.WalletDelta, at time.Time) (bool, error)
}
