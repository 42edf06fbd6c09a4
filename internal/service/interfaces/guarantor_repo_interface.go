package interfaces

import (
	"context"

	"sacco-ledger/internal/pkg/models"
	storemodels "sacco-ledger/internal/pkg/store/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type GuarantorRepositoryInterface interface {
	Create(ctx context.Context, guarantor *storemodels.Guarantor) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*storemodels.Guarantor, error)
	ExistsForLoan(ctx context.Context, loanID primitive.ObjectID, email string) (bool, error)
	ListByLoan(ctx context.Context, loanID primitive.ObjectID) ([]storemodels.Guarantor, error)
	ListByLoanAndStatus(ctx context.Context, loanID primitive.ObjectID, status models.GuarantorStatus) ([]storemodels.Guarantor, error)
	ListIncoming(ctx context.Context, guarantorID primitive.ObjectID) ([]storemodels.Guarantor, error)
	SumAccepted(ctx context.Context, loanID primitive.ObjectID) (models.Money, error)
	// Transition applies t only while the pledge is still in t.From.
	Transition(ctx context.Context, id primitive.ObjectID, t storemodels.GuarantorTransition) (bool, error)
}
