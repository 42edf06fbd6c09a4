package transactions

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

func newRepo(mt *mtest.T) *TransactionsRepository {
	return NewTransactionsRepositoryWithInterface(repository.NewMongoRepository[storemodels.Transaction](mt.Coll))
}

func TestTransactionsRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("Settle only matches pending entries", func(mt *mtest.T) {
		repo := newRepo(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		ok, err := repo.Settle(ctx, primitive.NewObjectID(), models.TxCompleted, map[string]interface{}{"receipt": "QWE123"}, time.Now())

		require.NoError(mt, err)
		assert.True(mt, ok)
		cmd := mt.GetStartedEvent().Command
		assert.Equal(mt, string(models.TxPending), cmd.Lookup("updates", "0", "q", "status").StringValue())
		assert.Equal(mt, string(models.TxCompleted), cmd.Lookup("updates", "0", "u", "$set", "status").StringValue())
		assert.Equal(mt, "QWE123", cmd.Lookup("updates", "0", "u", "$set", "metadata.receipt").StringValue())
	})

	mt.Run("Settle on a final entry reports false", func(mt *mtest.T) {
		repo := newRepo(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))

		ok, err := repo.Settle(ctx, primitive.NewObjectID(), models.TxFailed, nil, time.Now())

		require.NoError(mt, err)
		assert.False(mt, ok)
	})

	mt.Run("AttachTrackingID only fills an empty pending entry", func(mt *mtest.T) {
		repo := newRepo(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		ok, err := repo.AttachTrackingID(ctx, primitive.NewObjectID(), "ws_CO_9")

		require.NoError(mt, err)
		assert.True(mt, ok)
		cmd := mt.GetStartedEvent().Command
		assert.False(mt, cmd.Lookup("updates", "0", "q", "trackingId", "$exists").Boolean())
		assert.Equal(mt, "ws_CO_9", cmd.Lookup("updates", "0", "u", "$set", "trackingId").StringValue())
	})

	mt.Run("GetByTrackingID", func(mt *mtest.T) {
		repo := newRepo(mt)
		ns := mt.DB.Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: primitive.NewObjectID()},
			{Key: "trackingId", Value: "ws_CO_1"},
			{Key: "status", Value: string(models.TxPending)},
			{Key: "amount", Value: int64(150_000)},
		}))

		tx, err := repo.GetByTrackingID(ctx, "ws_CO_1")

		require.NoError(mt, err)
		assert.Equal(mt, models.TxPending, tx.Status)
		assert.Equal(mt, models.KES(1_500), tx.Amount)
	})

	mt.Run("Create duplicate reference is a conflict", func(mt *mtest.T) {
		repo := newRepo(mt)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "E11000"}))

		err := repo.Create(ctx, &storemodels.Transaction{Reference: "PAY-1"})

		assert.True(mt, models.IsCode(err, models.ErrCodeConflict))
	})
}
