package guarantors

import (
	"context"
	"errors"
	"strings"

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

type GuarantorsRepository struct {
	repo interfaces.MongoStore[storemodels.Guarantor]
}

var _ interfaces.GuarantorRepositoryInterface = (*GuarantorsRepository)(nil)

func NewGuarantorsRepository(client *mongodb.MongoClient) *GuarantorsRepository {
	collection := client.Database.Collection(consts.GuarantorsCollection)
	repo := repository.NewMongoRepository[storemodels.Guarantor](collection)
	return &GuarantorsRepository{repo: repo}
}

func NewGuarantorsRepositoryWithInterface(repo interfaces.MongoStore[storemodels.Guarantor]) *GuarantorsRepository {
	return &GuarantorsRepository{repo: repo}
}

func (r *GuarantorsRepository) Create(ctx context.Context, guarantor *storemodels.Guarantor) error {
	if guarantor.ID.IsZero() {
		guarantor.ID = primitive.NewObjectID()
	}
	guarantor.Email = strings.ToLower(guarantor.Email)
	if _, err := r.repo.Create(ctx, guarantor); err != nil {
		logger.CtxError(ctx, log_messages.ErrorCreatingGuarantor, err, zap.String("loanId", guarantor.LoanID.Hex()))
		if mongo.IsDuplicateKeyError(err) {
			return models.NewConflict("%s is already invited on this loan", guarantor.Email)
		}
		return err
	}
	return nil
}

func (r *GuarantorsRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*storemodels.Guarantor, error) {
	guarantor, err := r.repo.FindOne(ctx, bson.M{"_id": id}, nil)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.NewNotFound("guarantor request %s not found", id.Hex())
	}
	if err != nil {
		logger.CtxError(ctx, log_messages.ErrorFetchingGuarantor, err, zap.String("guarantorRequestId", id.Hex()))
		return nil, err
	}
	return &guarantor, nil
}

func (r *GuarantorsRepository) ExistsForLoan(ctx context.Context, loanID primitive.ObjectID, email string) (bool, error) {
	count, err := r.repo.CountDocuments(ctx, bson.M{"loanId": loanID, "email": strings.ToLower(email)})
	if err != nil {
		logger.CtxError(ctx, log_messages.ErrorFetchingGuarantor, err, zap.String("loanId", loanID.Hex()))
		return false, err
	}
	return count > 0, nil
}

func (r *GuarantorsRepository) ListByLoan(ctx context.Context, loanID primitive.ObjectID) ([]storemodels.Guarantor, error) {
	return r.find(ctx, bson.M{"loanId": loanID})
}

func (r *GuarantorsRepository) ListByLoanAndStatus(ctx context.Context, loanID primitive.ObjectID, status models.GuarantorStatus) ([]storemodels.Guarantor, error) {
	return r.find(ctx, bson.M{"loanId": loanID, "status": status})
}

func (r *GuarantorsRepository) ListIncoming(ctx context.Context, guarantorID primitive.ObjectID) ([]storemodels.Guarantor, error) {
	return r.find(ctx, bson.M{"guarantorId": guarantorID, "status": models.GuarantorPendingGuarantorAction})
}

func (r *GuarantorsRepository) SumAccepted(ctx context.Context, loanID primitive.ObjectID) (models.Money, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"loanId": loanID, "status": models.GuarantorAccepted}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$amount"}}}},
	}

	var out []struct {
		Total models.Money `bson:"total"`
	}
	if err := r.repo.AggregateAll(ctx, pipeline, &out); err != nil {
		logger.CtxError(ctx, log_messages.ErrorFetchingGuarantor, err, zap.String("loanId", loanID.Hex()))
		return 0, err
	}
	if len(out) == 0 {
		return 0, nil
	}
	return out[0].Total, nil
}

func (r *GuarantorsRepository) Transition(ctx context.Context, id primitive.ObjectID, t storemodels.GuarantorTransition) (bool, error) {
	set := bson.M{"status": t.To, "updatedAt": t.At}
	if t.GuarantorID != nil {
		set["guarantorId"] = *t.GuarantorID
	}
	if t.RejectReason != "" {
		set["rejectReason"] = t.RejectReason
	}
	if t.CheckedBy != nil {
		set["checkedBy"] = *t.CheckedBy
	}
	if t.NotifiedBy != nil {
		set["notifiedBy"] = *t.NotifiedBy
	}
	if t.RespondedAt != nil {
		set["respondedAt"] = *t.RespondedAt
	}
	if t.ReleasedAt != nil {
		set["releasedAt"] = *t.ReleasedAt
	}

	result, err := r.repo.UpdateOne(ctx, bson.M{"_id": id, "status": t.From}, bson.M{"$set": set})
	if err != nil {
		logger.CtxError(ctx, log_messages.ErrorUpdatingGuarantor, err, zap.String("guarantorRequestId", id.Hex()))
		return false, err
	}
	return result.MatchedCount == 1, nil
}

func (r *GuarantorsRepository) find(ctx context.Context, filter bson.M) ([]storemodels.Guarantor, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	guarantors, err := r.repo.Find(ctx, filter, opts)
	if err != nil {
		logger.CtxError(ctx, log_messages.ErrorFetchingGuarantor, err)
		return nil, err
	}
	return guarantors, nil
}
