package withdrawals

import (
	"context"
	"errors"

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

type WithdrawalsRepository struct {
	repo interfaces.MongoStore[storemodels.WithdrawalRequest]
}

var _ interfaces.WithdrawalRepositoryInterface = (*WithdrawalsRepository)(nil)

func NewWithdrawalsRepository(client *mongodb.MongoClient) *WithdrawalsRepository {
	collection := client.Database.Collection(consts.WithdrawalsCollection)
	repo := repository.NewMongoRepository[storemodels.WithdrawalRequest](collection)
	return &WithdrawalsRepository{repo: repo}
}

func NewWithdrawalsRepositoryWithInterface(repo interfaces.MongoStore[storemodels.WithdrawalRequest]) *WithdrawalsRepository {
	return &WithdrawalsRepository{repo: repo}
}

func (r *WithdrawalsRepository) Create(ctx context.Context, request *storemodels.WithdrawalRequest) error {
	if request.ID.IsZero() {
		request.ID = primitive.NewObjectID()
	}
	if _, err := r.repo.Create(ctx, request); err != nil {
		logger.CtxError(ctx, log_messages.ErrorCreatingWithdrawal, err, zap.String("requesterId", request.RequesterID.Hex()))
		return err
	}
	return nil
}

func (r *WithdrawalsRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*storemodels.WithdrawalRequest, error) {
	request, err := r.repo.FindOne(ctx, bson.M{"_id": id}, nil)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.NewNotFound("withdrawal request %s not found", id.Hex())
	}
	if err != nil {
		logger.CtxError(ctx, log_messages.ErrorFetchingWithdrawal, err, zap.String("withdrawalId", id.Hex()))
		return nil, err
	}
	return &request, nil
}

func (r *WithdrawalsRepository) ListByRequester(ctx context.Context, requesterID primitive.ObjectID) ([]storemodels.WithdrawalRequest, error) {
	return r.find(ctx, bson.M{"requesterId": requesterID})
}

func (r *WithdrawalsRepository) ListByStatus(ctx context.Context, status models.WithdrawalStatus) ([]storemodels.WithdrawalRequest, error) {
	return r.find(ctx, bson.M{"status": status})
}

func (r *WithdrawalsRepository) Transition(ctx context.Context, id primitive.ObjectID, t storemodels.WithdrawalTransition) (bool, error) {
	set := bson.M{"status": t.To, "updatedAt": t.At}
	if t.VerifiedBy != nil {
		set["verifiedBy"] = *t.VerifiedBy
	}
	if t.ApprovedBy != nil {
		set["approvedBy"] = *t.ApprovedBy
	}
	if t.DisbursedBy != nil {
		set["disbursedBy"] = *t.DisbursedBy
	}
	if t.TransactionID != nil {
		set["transactionId"] = *t.TransactionID
	}

	result, err := r.repo.UpdateOne(ctx, bson.M{"_id": id, "status": t.From}, bson.M{"$set": set})
	if err != nil {
		logger.CtxError(ctx, log_messages.ErrorUpdatingWithdrawal, err, zap.String("withdrawalId", id.Hex()))
		return false, err
	}
	return result.MatchedCount == 1, nil
}

func (r *WithdrawalsRepository) find(ctx context.Context, filter bson.M) ([]storemodels.WithdrawalRequest, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	requests, err := r.repo.Find(ctx, filter, opts)
	if err != nil {
		logger.CtxError(ctx, log_messages.ErrorFetchingWithdrawal, err)
		return nil, err
	}
	return requests, nil
}
