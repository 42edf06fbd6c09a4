package members

import (
	"context"
	"errors"
	"strings"
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

type MembersRepository struct {
	repo interfaces.MongoStore[storemodels.Member]
}

var _ interfaces.MemberRepositoryInterface = (*MembersRepository)(nil)

func NewMembersRepository(client *mongodb.MongoClient) *MembersRepository {
	collection := client.Database.Collection(consts.MembersCollection)
	repo := repository.NewMongoRepository[storemodels.Member](collection)
	return &MembersRepository{repo: repo}
}

func NewMembersRepositoryWithInterface(repo interfaces.MongoStore[storemodels.Member]) *MembersRepository {
	return &MembersRepository{repo: repo}
}

func (r *MembersRepository) Create(ctx context.Context, member *storemodels.Member) error {
	if member.ID.IsZero() {
		member.ID = primitive.NewObjectID()
	}
	member.Email = strings.ToLower(member.Email)
	if _, err := r.repo.Create(ctx, member); err != nil {
		logger.CtxError(ctx, log_messages.ErrorCreatingMember, err)
		if mongo.IsDuplicateKeyError(err) {
			return models.NewConflict("member with this email or phone already exists")
		}
		return err
	}
	return nil
}

func (r *MembersRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*storemodels.Member, error) {
	return r.findOne(ctx, bson.M{"_id": id}, id.Hex())
}

func (r *MembersRepository) GetByEmail(ctx context.Context, email string) (*storemodels.Member, error) {
	return r.findOne(ctx, bson.M{"email": strings.ToLower(email)}, email)
}

func (r *MembersRepository) ExistsByEmailOrPhone(ctx context.Context, email, phone string) (bool, error) {
	count, err := r.repo.CountDocuments(ctx, bson.M{"$or": bson.A{
		bson.M{"email": strings.ToLower(email)},
		bson.M{"phone": phone},
	}})
	if err != nil {
		logger.CtxError(ctx, log_messages.ErrorFetchingMember, err)
		return false, err
	}
	return count > 0, nil
}

func (r *MembersRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, from []models.MemberStatus, to models.MemberStatus) (bool, error) {
	filter := bson.M{"_id": id, "status": bson.M{"$in": from}}
	update := bson.M{"$set": bson.M{"status": to, "updatedAt": time.Now().UTC()}}

	result, err := r.repo.UpdateOne(ctx, filter, update)
	if err != nil {
		logger.CtxError(ctx, log_messages.ErrorUpdatingMember, err, zap.String("memberId", id.Hex()))
		return false, err
	}
	return result.MatchedCount == 1, nil
}

func (r *MembersRepository) RecordLoanApplication(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	update := bson.M{
		"$inc": bson.M{"loanApplications": 1},
		"$set": bson.M{"updatedAt": at},
	}
	result, err := r.repo.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		logger.CtxError(ctx, log_messages.ErrorUpdatingMember, err, zap.String("memberId", id.Hex()))
		return err
	}
	if result.MatchedCount == 0 {
		return models.NewNotFound("member %s not found", id.Hex())
	}
	return nil
}

func (r *MembersRepository) findOne(ctx context.Context, filter bson.M, key string) (*storemodels.Member, error) {
	member, err := r.repo.FindOne(ctx, filter, nil)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.NewNotFound("member %s not found", key)
	}
	if err != nil {
		logger.CtxError(ctx, log_messages.ErrorFetchingMember, err)
		return nil, err
	}
	return &member, nil
}
