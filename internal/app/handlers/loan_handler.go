package handlers

import (
	"context"
	"net/http"

	"sacco-ledger/internal/pkg/models"
	storemodels "sacco-ledger/internal/pkg/store/models"
	"sacco-ledger/internal/service/loans"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type LoanHandler struct {
	service loans.LoanServiceInterface
}

func NewLoanHandler(service loans.LoanServiceInterface) *LoanHandler {
	return &LoanHandler{service: service}
}

func (h *LoanHandler) Eligibility(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	eligibility, err := h.service.Eligibility(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, eligibility)
}

func (h *LoanHandler) Apply(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req models.LoanApplicationRequest
	if !bindJSON(c, &req) {
		return
	}
	loan, err := h.service.Apply(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, loan)
}

func (h *LoanHandler) Get(c *gin.Context) {
	h.withLoan(c, h.service.Get)
}

// List filters by status for staff and by borrower otherwise; without a
// filter it lists the caller's own loans.
func (h *LoanHandler) List(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var (
		result []storemodels.Loan
		err    error
	)
	switch {
	case c.Query("status") != "":
		result, err = h.service.ListByStatus(ctx, actor, models.LoanStatus(c.Query("status")))
	case c.Query("borrowerId") != "":
		borrowerID, parseErr := primitive.ObjectIDFromHex(c.Query("borrowerId"))
		if parseErr != nil {
			respondError(c, models.NewValidationError("borrowerId must be a valid id"))
			return
		}
		result, err = h.service.ListByBorrower(ctx, actor, borrowerID)
	default:
		result, err = h.service.ListByBorrower(ctx, actor, actor.MemberID)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *LoanHandler) Verify(c *gin.Context) {
	h.withLoan(c, h.service.Verify)
}

func (h *LoanHandler) Approve(c *gin.Context) {
	h.withLoan(c, h.service.Approve)
}

func (h *LoanHandler) Disburse(c *gin.Context) {
	h.withLoan(c, h.service.Disburse)
}

func (h *LoanHandler) Reject(c *gin.Context) {
	var req models.LoanRejectionRequest
	h.withLoanBody(c, &req, func(ctx context.Context, actor models.Actor, id primitive.ObjectID) (interface{}, error) {
		return h.service.Reject(ctx, actor, id, req)
	})
}

func (h *LoanHandler) Repay(c *gin.Context) {
	var req models.RepaymentRequest
	h.withLoanBody(c, &req, func(ctx context.Context, actor models.Actor, id primitive.ObjectID) (interface{}, error) {
		return h.service.Repay(ctx, actor, id, req)
	})
}

func (h *LoanHandler) AddNote(c *gin.Context) {
	var req models.LoanNoteRequest
	h.withLoanBody(c, &req, func(ctx context.Context, actor models.Actor, id primitive.ObjectID) (interface{}, error) {
		return h.service.AddNote(ctx, actor, id, req)
	})
}

func (h *LoanHandler) InviteGuarantor(c *gin.Context) {
	var req models.GuarantorInvite
	h.withLoanBody(c, &req, func(ctx context.Context, actor models.Actor, id primitive.ObjectID) (interface{}, error) {
		return h.service.InviteGuarantor(ctx, actor, id, req)
	})
}

func (h *LoanHandler) withLoan(
	c *gin.Context,
	call func(ctx context.Context, actor models.Actor, id primitive.ObjectID) (*storemodels.Loan, error),
) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := pathObjectID(c, "id")
	if !ok {
		return
	}
	loan, err := call(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}

func (h *LoanHandler) withLoanBody(
	c *gin.Context,
	req interface{},
	call func(ctx context.Context, actor models.Actor, id primitive.ObjectID) (interface{}, error),
) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := pathObjectID(c, "id")
	if !ok {
		return
	}
	if !bindJSON(c, req) {
		return
	}
	result, err := call(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
