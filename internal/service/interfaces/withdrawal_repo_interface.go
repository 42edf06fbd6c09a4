package interfaces

import (
	"context"

	"sacco-ledger/internal/pkg/models"
	storemodels "sacco-ledger/internal/pkg/store/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type WithdrawalRepositoryInterface interface {
	Create(ctx context.Context, request *storemodels.WithdrawalRequest) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*storemodels.WithdrawalRequest, error)
	ListByRequester(ctx context.Context, requesterID primitive.ObjectID) ([]storemodels.WithdrawalRequest, error)
	ListByStatus(ctx context.Context, status models.WithdrawalStatus) ([]storemodels.WithdrawalRequest, error)
	Transition(ctx context.Context, id primitive.ObjectID, t storemodels.WithdrawalTransition) (bool, error)
}
