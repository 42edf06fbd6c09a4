package handlers

import (
	"context"
	"net/http"

	"sacco-ledger/internal/pkg/models"
	storemodels "sacco-ledger/internal/pkg/store/models"
	"sacco-ledger/internal/service/withdrawals"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type WithdrawalHandler struct {
	service withdrawals.WithdrawalServiceInterface
}

func NewWithdrawalHandler(service withdrawals.WithdrawalServiceInterface) *WithdrawalHandler {
	return &WithdrawalHandler{service: service}
}

func (h *WithdrawalHandler) Request(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req models.WithdrawalCreateRequest
	if !bindJSON(c, &req) {
		return
	}
	request, err := h.service.Request(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, request)
}

// List returns requests in a status for staff, otherwise the caller's own.
func (h *WithdrawalHandler) List(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var (
		result []storemodels.WithdrawalRequest
		err    error
	)
	if status := c.Query("status"); status != "" {
		result, err = h.service.ListByStatus(c.Request.Context(), actor, models.WithdrawalStatus(status))
	} else {
		result, err = h.service.ListMine(c.Request.Context(), actor)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *WithdrawalHandler) Get(c *gin.Context) {
	h.withRequest(c, h.service.Get)
}

func (h *WithdrawalHandler) Verify(c *gin.Context) {
	h.withRequest(c, h.service.Verify)
}

func (h *WithdrawalHandler) Approve(c *gin.Context) {
	h.withRequest(c, h.service.Approve)
}

func (h *WithdrawalHandler) Disburse(c *gin.Context) {
	h.withRequest(c, h.service.Disburse)
}

func (h *WithdrawalHandler) withRequest(
	c *gin.Context,
	call func(ctx context.Context, actor models.Actor, id primitive.ObjectID) (*storemodels.WithdrawalRequest, error),
) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := pathObjectID(c, "id")
	if !ok {
		return
	}
	request, err := call(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}
