package handlers

import (
	"net/http"

	"sacco-ledger/internal/pkg/downstream"
	"sacco-ledger/internal/pkg/models"
	"sacco-ledger/internal/service/deposits"

	"github.com/gin-gonic/gin"
)

// CallbackAck is the acknowledgement body the gateway expects.
type CallbackAck struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

type DepositHandler struct {
	service deposits.DepositServiceInterface
}

func NewDepositHandler(service deposits.DepositServiceInterface) *DepositHandler {
	return &DepositHandler{service: service}
}

func (h *DepositHandler) RecordManual(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req models.ManualDepositRequest
	if !bindJSON(c, &req) {
		return
	}
	deposit, err := h.service.RecordManual(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, deposit)
}

func (h *DepositHandler) InitiateGateway(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req models.GatewayDepositRequest
	if !bindJSON(c, &req) {
		return
	}
	pending, err := h.service.InitiateGateway(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, pending)
}

// Callback acknowledges every callback it could process, including duplicates
// and unknown ids, so the gateway stops retrying. Only processing failures
// answer with an error status.
func (h *DepositHandler) Callback(c *gin.Context) {
	var envelope downstream.StkCallbackEnvelope
	if !bindJSON(c, &envelope) {
		return
	}
	if _, err := h.service.HandleCallback(c.Request.Context(), envelope.ToGatewayCallback()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, CallbackAck{ResultCode: 0, ResultDesc: "Accepted"})
}
