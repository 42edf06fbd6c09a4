package interfaces

import (
	"context"
	"time"

	"sacco-ledger/internal/pkg/models"
	storemodels "sacco-ledger/internal/pkg/store/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type LoanRepositoryInterface interface {
	Create(ctx context.Context, loan *storemodels.Loan) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*storemodels.Loan, error)
	HasOpenLoan(ctx context.Context, borrowerID primitive.ObjectID) (bool, error)
	ListByBorrower(ctx context.Context, borrowerID primitive.ObjectID) ([]storemodels.Loan, error)
	ListByStatus(ctx context.Context, status models.LoanStatus) ([]storemodels.Loan, error)
	// FindOverdue returns ACTIVE loans whose due date is before asOf.
	FindOverdue(ctx context.Context, asOf time.Time) ([]storemodels.Loan, error)
	// Transition applies t only while the loan is still in t.From.
	Transition(ctx context.Context, id primitive.ObjectID, t storemodels.LoanTransition) (bool, error)
	// UpdateBalance swaps the balance and status only while both still hold
	// their expected values.
	UpdateBalance(ctx context.Context, id primitive.ObjectID, from models.LoanStatus, expectedBalance, newBalance models.Money, to models.LoanStatus, at time.Time) (bool, error)
	// ApplyPenalty adds penalty to balance and totalDue once per loan.
	ApplyPenalty(ctx context.Context, id primitive.ObjectID, expectedBalance, penalty models.Money, at time.Time) (bool, error)
	AddNote(ctx context.Context, id primitive.ObjectID, note storemodels.LoanNote) (bool, error)
}
