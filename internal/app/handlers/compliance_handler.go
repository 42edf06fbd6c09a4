package handlers

import (
	"net/http"

	"sacco-ledger/internal/service/compliance"

	"github.com/gin-gonic/gin"
)

type ComplianceHandler struct {
	service compliance.ComplianceServiceInterface
}

func NewComplianceHandler(service compliance.ComplianceServiceInterface) *ComplianceHandler {
	return &ComplianceHandler{service: service}
}

// Sweep answers 200 whenever some loans were handled, even when others failed.
func (h *ComplianceHandler) Sweep(c *gin.Context) {
	response := h.service.Sweep(c.Request.Context())

	if response.ErrorMsg == "" {
		c.JSON(http.StatusOK, response)
		return
	}

	if len(response.PenalizedIDs) > 0 || len(response.DefaultedIDs) > 0 {
		c.JSON(http.StatusOK, response)
		return
	}

	c.JSON(http.StatusInternalServerError, response)
}
