package transactions

import (
	"context"
	"errors"
	"time"

	"sacco-ledger/internal/pkg/consts"
	mongodb "sacco-ledger/internal/pkg/db/mongo"
	"sacco-ledger/internal/pkg/log_messages"
	"sacco-ledger/internal/pkg/logger"
	"sacco-ledger/internal/pkg/models"
	storemodels "sacco-ledger/internal/pkg/store/models"
	"sacco-ledger/internal/pkg/store/repository"
	"sacco-ledger/internal/service/interfaces"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type TransactionsRepository struct {
	repo interfaces.MongoStore[storemodels.Transaction]
}

var _ interfaces.TransactionRepositoryInterface = (*TransactionsRepository)(nil)

func NewTransactionsRepository(client *mongodb.MongoClient) *TransactionsRepository {
	collection := client.Database.Collection(consts.TransactionsCollection)
	repo := repository.NewMongoRepository[storemodels.Transaction](collection)
	return &TransactionsRepository{repo: repo}
}

func NewTransactionsRepositoryWithInterface(repo interfaces.MongoStore[storemodels.Transaction]) *TransactionsRepository {
	return &TransactionsRepository{repo: repo}
}

func (r *TransactionsRepository) Create(ctx context.Context, tx *storemodels.Transaction) error {
	if tx.ID.IsZero() {
		tx.ID = primitive.NewObjectID()
	}
	if _, err := r.repo.Create(ctx, tx); err != nil {
		logger.CtxError(ctx, log_messages.ErrorCreatingTransaction, err, zap.String("reference", tx.Reference))
		if mongo.IsDuplicateKeyError(err) {
			return models.NewConflict("transaction reference %s already recorded", tx.Reference)
		}
		return err
	}
	return nil
}

func (r *TransactionsRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*storemodels.Transaction, error) {
	return r.findOne(ctx, bson.M{"_id": id}, id.Hex())
}

func (r *TransactionsRepository) GetByTrackingID(ctx context.Context, trackingID string) (*storemodels.Transaction, error) {
	return r.findOne(ctx, bson.M{"trackingId": trackingID}, trackingID)
}

func (r *TransactionsRepository) ListByWallet(ctx context.Context, walletID primitive.ObjectID) ([]storemodels.Transaction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	txs, err := r.repo.Find(ctx, bson.M{"walletId": walletID}, opts)
	if err != nil {
		logger.CtxError(ctx, log_messages.ErrorFetchingTransaction, err, zap.String("walletId", walletID.Hex()))
		return nil, err
	}
	return txs, nil
}

func (r *TransactionsRepository) AttachTrackingID(ctx context.Context, id primitive.ObjectID, trackingID string) (bool, error) {
	filter := bson.M{"_id": id, "status": models.TxPending, "trackingId": bson.M{"$exists": false}}
	result, err := r.repo.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"trackingId": trackingID}})
	if err != nil {
		logger.CtxError(ctx, log_messages.ErrorSettlingTransaction, err,
			zap.String("transactionId", id.Hex()),
			zap.String("trackingId", trackingID))
		return false, err
	}
	return result.MatchedCount == 1, nil
}

func (r *TransactionsRepository) Settle(
	ctx context.Context,
	id primitive.ObjectID,
	status models.TransactionStatus,
	metadata map[string]interface{},
	at time.Time,
) (bool, error) {
	set := bson.M{"status": status, "completedAt": at}
	for k, v := range metadata {
		set["metadata."+k] = v
	}
	filter := bson.M{"_id": id, "status": models.TxPending}

	result, err := r.repo.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		logger.CtxError(ctx, log_messages.ErrorSettlingTransaction, err, zap.String("transactionId", id.Hex()))
		return false, err
	}
	return result.MatchedCount == 1, nil
}

func (r *TransactionsRepository) findOne(ctx context.Context, filter bson.M, key string) (*storemodels.Transaction, error) {
	tx, err := r.repo.FindOne(ctx, filter, nil)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.NewNotFound("transaction %s not found", key)
	}
	if err != nil {
		logger.CtxError(ctx, log_messages.ErrorFetchingTransaction, err)
		return nil, err
	}
	return &tx, nil
}
