package servicetest

import (
	"context"
	"time"

	storemodels "sacco-ledger/internal/pkg/store/models"
	"sacco-ledger/internal/service/interfaces"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MovingWallets commits Move to the wallet right before the first
// compare-and-set, as another writer would between a read and the write.
type MovingWallets struct {
	interfaces.WalletRepositoryInterface
	Move  storemodels.WalletDelta
	moved bool
}

var _ interfaces.WalletRepositoryInterface = (*MovingWallets)(nil)

func (w *MovingWallets) ApplyDelta(
	ctx context.Context,
	id primitive.ObjectID,
	expectedVersion int64,
	delta storemodels.WalletDelta,
	at time.Time,
) (bool, error) {
	if !w.moved {
		w.moved = true
		current, err := w.WalletRepositoryInterface.GetByID(ctx, id)
		if err != nil {
			return false, err
		}
		if _, err := w.WalletRepositoryInterface.ApplyDelta(ctx, id, current.Version, w.Move, at); err != nil {
			return false, err
		}
	}
	return w.WalletRepositoryInterface.ApplyDelta(ctx, id, expectedVersion, delta, at)
}
