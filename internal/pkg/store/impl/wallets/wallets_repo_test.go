package wallets

import (
	"context"
	"testing"
	"time"

	"sacco-ledger/internal/pkg/models"
	storemodels "sacco-ledger/internal/pkg/store/models"
	"sacco-ledger/internal/pkg/store/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func newRepo(mt *mtest.T) *WalletsRepository {
	return NewWalletsRepositoryWithInterface(repository.NewMongoRepository[storemodels.Wallet](mt.Coll))
}

func TestWalletsRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("ApplyDelta guards on version and bumps it", func(mt *mtest.T) {
		repo := newRepo(mt)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		ok, err := repo.ApplyDelta(ctx, id, 7, storemodels.WalletDelta{Savings: models.KES(-100), Locked: models.KES(50)}, time.Now())

		require.NoError(mt, err)
		assert.True(mt, ok)

		cmd := mt.GetStartedEvent().Command
		assert.Equal(mt, int64(7), cmd.Lookup("updates", "0", "q", "version").Int64())
		assert.Equal(mt, int64(-10000), cmd.Lookup("updates", "0", "u", "$inc", "savings").Int64())
		assert.Equal(mt, int64(5000), cmd.Lookup("updates", "0", "u", "$inc", "locked").Int64())
		assert.Equal(mt, int64(1), cmd.Lookup("updates", "0", "u", "$inc", "version").Int64())
	})

	mt.Run("ApplyDelta reports a moved version", func(mt *mtest.T) {
		repo := newRepo(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		ok, err := repo.ApplyDelta(ctx, primitive.NewObjectID(), 1, storemodels.WalletDelta{Savings: 1}, time.Now())

		require.NoError(mt, err)
		assert.False(mt, ok)
	})

	mt.Run("GetByMemberID decodes balances", func(mt *mtest.T) {
		repo := newRepo(mt)
		memberID := primitive.NewObjectID()
		ns := mt.DB.Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: primitive.NewObjectID()},
			{Key: "memberId", Value: memberID},
			{Key: "savings", Value: int64(5_000_000)},
			{Key: "locked", Value: int64(1_000_000)},
			{Key: "version", Value: int64(3)},
		}))

		wallet, err := repo.GetByMemberID(ctx, memberID)

		require.NoError(mt, err)
		assert.Equal(mt, models.KES(50_000), wallet.Savings)
		assert.Equal(mt, models.KES(40_000), wallet.FreeSavings())
		assert.Equal(mt, int64(3), wallet.Version)
	})

	mt.Run("GetByID not found", func(mt *mtest.T) {
		repo := newRepo(mt)
		ns := mt.DB.Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := repo.GetByID(ctx, primitive.NewObjectID())

		assert.Equal(mt, models.ErrCodeNotFound, models.GetErrorCode(err))
	})

	mt.Run("Create duplicate member wallet is a conflict", func(mt *mtest.T) {
		repo := newRepo(mt)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key"}))

		err := repo.Create(ctx, &storemodels.Wallet{MemberID: primitive.NewObjectID()})

		assert.Equal(mt, models.ErrCodeConflict, models.GetErrorCode(err))
	})
}
