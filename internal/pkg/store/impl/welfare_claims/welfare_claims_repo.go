package welfareclaims

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

type WelfareClaimsRepository struct {
	repo interfaces.MongoStore[storemodels.WelfareClaim]
}

var _ interfaces.WelfareClaimRepositoryInterface = (*WelfareClaimsRepository)(nil)

func NewWelfareClaimsRepository(client *mongodb.MongoClient) *WelfareClaimsRepository {
	collection := client.Database.Collection(consts.WelfareClaimsCollection)
	repo := repository.NewMongoRepository[storemodels.WelfareClaim](collection)
	return &WelfareClaimsRepository{repo: repo}
}

func NewWelfareClaimsRepositoryWithInterface(repo interfaces.MongoStore[storemodels.WelfareClaim]) *WelfareClaimsRepository {
	return &WelfareClaimsRepository{repo: repo}
}

func (r *WelfareClaimsRepository) Create(ctx context.Context, claim *storemodels.WelfareClaim) error {
	if claim.ID.IsZero() {
		claim.ID = primitive.NewObjectID()
	}
	if _, err := r.repo.Create(ctx, claim); err != nil {
		logger.CtxError(ctx, log_messages.ErrorCreatingWelfareClaim, err, zap.String("memberId", claim.MemberID.Hex()))
		return err
	}
	return nil
}

func (r *WelfareClaimsRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*storemodels.WelfareClaim, error) {
	claim, err := r.repo.FindOne(ctx, bson.M{"_id": id}, nil)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.NewNotFound("welfare claim %s not found", id.Hex())
	}
	if err != nil {
		logger.CtxError(ctx, log_messages.ErrorFetchingWelfareClaim, err, zap.String("claimId", id.Hex()))
		return nil, err
	}
	return &claim, nil
}

func (r *WelfareClaimsRepository) ListByMember(ctx context.Context, memberID primitive.ObjectID) ([]storemodels.WelfareClaim, error) {
	return r.find(ctx, bson.M{"memberId": memberID})
}

func (r *WelfareClaimsRepository) ListAll(ctx context.Context) ([]storemodels.WelfareClaim, error) {
	return r.find(ctx, bson.M{})
}

// Review only touches claims that are still PENDING or PROCESSING.
func (r *WelfareClaimsRepository) Review(ctx context.Context, id primitive.ObjectID, review storemodels.ClaimReview) (bool, error) {
	filter := bson.M{
		"_id":    id,
		"status": bson.M{"$in": bson.A{models.ClaimPending, models.ClaimProcessing}},
	}
	update := bson.M{"$set": bson.M{
		"status":     review.Status,
		"adminNotes": review.AdminNotes,
		"reviewedBy": review.ReviewedBy,
		"updatedAt":  review.At,
	}}

	result, err := r.repo.UpdateOne(ctx, filter, update)
	if err != nil {
		logger.CtxError(ctx, log_messages.ErrorUpdatingWelfareClaim, err, zap.String("claimId", id.Hex()))
		return false, err
	}
	return result.MatchedCount == 1, nil
}

func (r *WelfareClaimsRepository) find(ctx context.Context, filter bson.M) ([]storemodels.WelfareClaim, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	claims, err := r.repo.Find(ctx, filter, opts)
	if err != nil {
		logger.CtxError(ctx, log_messages.ErrorFetchingWelfareClaim, err)
		return nil, err
	}
	return claims, nil
}
