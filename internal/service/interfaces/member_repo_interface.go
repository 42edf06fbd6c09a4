package interfaces

import (
	"context"
	"time"

	"sacco-ledger/internal/pkg/models"
	storemodels "sacco-ledger/internal/pkg/store/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MemberRepositoryInterface interface {
	Create(ctx context.Context, member *storemodels.Member) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*storemodels.Member, error)
	GetByEmail(ctx context.Context, email string) (*storemodels.Member, error)
	ExistsByEmailOrPhone(ctx context.Context, email, phone string) (bool, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, from []models.MemberStatus, to models.MemberStatus) (bool, error)
	// RecordLoanApplication increments the member's application counter.
	RecordLoanApplication(ctx context.Context, id primitive.ObjectID, at time.Time) error
}
