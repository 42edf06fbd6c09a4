package wallets

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
	"go.uber.org/zap"
)

type WalletsRepository struct {
	repo interfaces.MongoStore[storemodels.Wallet]
}

var _ interfaces.WalletRepositoryInterface = (*WalletsRepository)(nil)

func NewWalletsRepository(client *mongodb.MongoClient) *WalletsRepository {
	collection := client.Database.Collection(consts.WalletsCollection)
	repo := repository.NewMongoRepository[storemodels.Wallet](collection)
	return &WalletsRepository{repo: repo}
}

func NewWalletsRepositoryWithInterface(repo interfaces.MongoStore[storemodels.Wallet]) *WalletsRepository {
	return &WalletsRepository{repo: repo}
}

func (r *WalletsRepository) Create(ctx context.Context, wallet *storemodels.Wallet) error {
	if wallet.ID.IsZero() {
		wallet.ID = primitive.NewObjectID()
	}
	if _, err := r.repo.Create(ctx, wallet); err != nil {
		logger.CtxError(ctx, log_messages.ErrorCreatingWallet, err, zap.String("memberId", wallet.MemberID.Hex()))
		if mongo.IsDuplicateKeyError(err) {
			return models.NewConflict("member %s already has a wallet", wallet.MemberID.Hex())
		}
		return err
	}
	return nil
}

func (r *WalletsRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*storemodels.Wallet, error) {
	return r.findOne(ctx, bson.M{"_id": id}, id)
}

func (r *WalletsRepository) GetByMemberID(ctx context.Context, memberID primitive.ObjectID) (*storemodels.Wallet, error) {
	return r.findOne(ctx, bson.M{"memberId": memberID}, memberID)
}

func (r *WalletsRepository) ApplyDelta(
	ctx context.Context,
	id primitive.ObjectID,
	expectedVersion int64,
	delta storemodels.WalletDelta,
	at time.Time,
) (bool, error) {
	filter := bson.M{"_id": id, "version": expectedVersion}
	update := bson.M{
		"$inc": bson.M{
			"savings":       delta.Savings,
			"locked":        delta.Locked,
			"loanLiability": delta.LoanLiability,
			"welfare":       delta.Welfare,
			"fines":         delta.Fines,
			"version":       int64(1),
		},
		"$set": bson.M{"updatedAt": at},
	}

	result, err := r.repo.UpdateOne(ctx, filter, update)
	if err != nil {
		logger.CtxError(ctx, log_messages.ErrorUpdatingWallet, err, zap.String("walletId", id.Hex()))
		return false, err
	}
	return result.MatchedCount == 1, nil
}

func (r *WalletsRepository) findOne(ctx context.Context, filter bson.M, key primitive.ObjectID) (*storemodels.Wallet, error) {
	wallet, err := r.repo.FindOne(ctx, filter, nil)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.NewNotFound("wallet for %s not found", key.Hex())
	}
	if err != nil {
		logger.CtxError(ctx, log_messages.ErrorFetchingWallet, err)
		return nil, err
	}
	return &wallet, nil
}
