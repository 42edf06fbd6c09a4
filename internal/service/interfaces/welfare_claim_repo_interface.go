package interfaces

import (
	"context"

	storemodels "sacco-ledger/internal/pkg/store/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type WelfareClaimRepositoryInterface interface {
	Create(ctx context.Context, claim *storemodels.WelfareClaim) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*storemodels.WelfareClaim, error)
	ListByMember(ctx context.Context, memberID primitive.ObjectID) ([]storemodels.WelfareClaim, error)
	ListAll(ctx context.Context) ([]storemodels.WelfareClaim, error)
	// Review records a decision while the claim is still open.
	Review(ctx context.Context, id primitive.ObjectID, r storemodels.ClaimReview) (bool, error)
}
