package handlers

import (
	"net/http"

	"sacco-ledger/internal/pkg/models"
	"sacco-ledger/internal/service/guarantors"

	"github.com/gin-gonic/gin"
)

type GuarantorHandler struct {
	service guarantors.GuarantorServiceInterface
}

func NewGuarantorHandler(service guarantors.GuarantorServiceInterface) *GuarantorHandler {
	return &GuarantorHandler{service: service}
}

func (h *GuarantorHandler) Check(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := pathObjectID(c, "id")
	if !ok {
		return
	}
	pledge, err := h.service.AdminCheck(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pledge)
}

func (h *GuarantorHandler) Notify(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := pathObjectID(c, "id")
	if !ok {
		return
	}
	pledge, err := h.service.Notify(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pledge)
}

func (h *GuarantorHandler) Respond(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := pathObjectID(c, "id")
	if !ok {
		return
	}
	var req models.GuarantorResponseRequest
	if !bindJSON(c, &req) {
		return
	}
	pledge, err := h.service.Respond(c.Request.Context(), actor, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pledge)
}

func (h *GuarantorHandler) Incoming(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	pledges, err := h.service.ListIncoming(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pledges)
}

func (h *GuarantorHandler) ListForLoan(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	loanID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}
	pledges, err := h.service.ListForLoan(c.Request.Context(), actor, loanID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pledges)
}
