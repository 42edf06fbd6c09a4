package loans

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

type LoansRepository struct {
	repo interfaces.MongoStore[storemodels.Loan]
}

var _ interfaces.LoanRepositoryInterface = (*LoansRepository)(nil)

func NewLoansRepository(client *mongodb.MongoClient) *LoansRepository {
	collection := client.Database.Collection(consts.LoansCollection)
	repo := repository.NewMongoRepository[storemodels.Loan](collection)
	return &LoansRepository{repo: repo}
}

func NewLoansRepositoryWithInterface(repo interfaces.MongoStore[storemodels.Loan]) *LoansRepository {
	return &LoansRepository{repo: repo}
}

func (r *LoansRepository) Create(ctx context.Context, loan *storemodels.Loan) error {
	if loan.ID.IsZero() {
		loan.ID = primitive.NewObjectID()
	}
	if loan.Notes == nil {
		loan.Notes = []storemodels.LoanNote{}
	}
	if _, err := r.repo.Create(ctx, loan); err != nil {
		logger.CtxError(ctx, log_messages.ErrorCreatingLoan, err, zap.String("borrowerId", loan.BorrowerID.Hex()))
		return err
	}
	return nil
}

func (r *LoansRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*storemodels.Loan, error) {
	loan, err := r.repo.FindOne(ctx, bson.M{"_id": id}, nil)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.NewNotFound("loan %s not found", id.Hex())
	}
	if err != nil {
		logger.CtxError(ctx, log_messages.ErrorFetchingLoan, err, zap.String("loanId", id.Hex()))
		return nil, err
	}
	return &loan, nil
}

func (r *LoansRepository) HasOpenLoan(ctx context.Context, borrowerID primitive.ObjectID) (bool, error) {
	count, err := r.repo.CountDocuments(ctx, bson.M{
		"borrowerId": borrowerID,
		"status":     bson.M{"$nin": bson.A{models.LoanCompleted, models.LoanRejected}},
	})
	if err != nil {
		logger.CtxError(ctx, log_messages.ErrorFetchingLoan, err, zap.String("borrowerId", borrowerID.Hex()))
		return false, err
	}
	return count > 0, nil
}

func (r *LoansRepository) ListByBorrower(ctx context.Context, borrowerID primitive.ObjectID) ([]storemodels.Loan, error) {
	return r.find(ctx, bson.M{"borrowerId": borrowerID}, options.Find().SetSort(bson.D{{Key: "appliedAt", Value: -1}}))
}

func (r *LoansRepository) ListByStatus(ctx context.Context, status models.LoanStatus) ([]storemodels.Loan, error) {
	return r.find(ctx, bson.M{"status": status}, options.Find().SetSort(bson.D{{Key: "appliedAt", Value: 1}}))
}

func (r *LoansRepository) FindOverdue(ctx context.Context, asOf time.Time) ([]storemodels.Loan, error) {
	filter := bson.M{
		"status":  models.LoanActive,
		"dueDate": bson.M{"$lt": asOf},
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "dueDate", Value: 1}}))
}

func (r *LoansRepository) Transition(ctx context.Context, id primitive.ObjectID, t storemodels.LoanTransition) (bool, error) {
	set := bson.M{"status": t.To, "updatedAt": t.At}
	if t.RejectionReason != "" {
		set["rejectionReason"] = t.RejectionReason
	}
	if t.VerifiedBy != nil {
		set["verifiedBy"] = *t.VerifiedBy
	}
	if t.ApprovedBy != nil {
		set["approvedBy"] = *t.ApprovedBy
	}
	if t.DisbursedBy != nil {
		set["disbursedBy"] = *t.DisbursedBy
	}
	if t.DisbursedAt != nil {
		set["disbursedAt"] = *t.DisbursedAt
	}
	if t.DueDate != nil {
		set["dueDate"] = *t.DueDate
	}

	return r.updateOne(ctx, bson.M{"_id": id, "status": t.From}, bson.M{"$set": set}, id)
}

func (r *LoansRepository) UpdateBalance(
	ctx context.Context,
	id primitive.ObjectID,
	from models.LoanStatus,
	expectedBalance, newBalance models.Money,
	to models.LoanStatus,
	at time.Time,
) (bool, error) {
	filter := bson.M{"_id": id, "status": from, "balance": expectedBalance}
	update := bson.M{"$set": bson.M{"balance": newBalance, "status": to, "updatedAt": at}}
	return r.updateOne(ctx, filter, update, id)
}

func (r *LoansRepository) ApplyPenalty(
	ctx context.Context,
	id primitive.ObjectID,
	expectedBalance, penalty models.Money,
	at time.Time,
) (bool, error) {
	filter := bson.M{
		"_id":         id,
		"status":      models.LoanActive,
		"balance":     expectedBalance,
		"penalizedAt": nil,
	}
	update := bson.M{
		"$inc": bson.M{"balance": penalty, "totalDue": penalty},
		"$set": bson.M{"penalizedAt": at, "updatedAt": at},
	}
	return r.updateOne(ctx, filter, update, id)
}

func (r *LoansRepository) AddNote(ctx context.Context, id primitive.ObjectID, note storemodels.LoanNote) (bool, error) {
	update := bson.M{
		"$push": bson.M{"notes": note},
		"$set":  bson.M{"updatedAt": note.CreatedAt},
	}
	return r.updateOne(ctx, bson.M{"_id": id}, update, id)
}

func (r *LoansRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]storemodels.Loan, error) {
	loans, err := r.repo.Find(ctx, filter, opts)
	if err != nil {
		logger.CtxError(ctx, log_messages.ErrorFetchingLoan, err)
		return nil, err
	}
	return loans, nil
}

func (r *LoansRepository) updateOne(ctx context.Context, filter, update bson.M, id primitive.ObjectID) (bool, error) {
	result, err := r.repo.UpdateOne(ctx, filter, update)
	if err != nil {
		logger.CtxError(ctx, log_messages.ErrorUpdatingLoan, err, zap.String("loanId", id.Hex()))
		return false, err
	}
	return result.MatchedCount == 1, nil
}
