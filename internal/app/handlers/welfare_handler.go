package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"sacco-ledger/internal/pkg/consts"
	"sacco-ledger/internal/pkg/models"
	storemodels "sacco-ledger/internal/pkg/store/models"
	"sacco-ledger/internal/service/welfare"

	"github.com/gin-gonic/gin"
)

type WelfareHandler struct {
	service welfare.WelfareServiceInterface
}

func NewWelfareHandler(service welfare.WelfareServiceInterface) *WelfareHandler {
	return &WelfareHandler{service: service}
}

// FileClaim reads a multipart form with type, description, amountRequested
// (cents) and an optional evidence file.
func (h *WelfareHandler) FileClaim(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	amount, err := strconv.ParseInt(c.PostForm("amountRequested"), 10, 64)
	if err != nil {
		respondError(c, models.NewValidationError("amountRequested must be a whole number of cents"))
		return
	}
	req := models.WelfareClaimRequest{
		Type:            c.PostForm("type"),
		Description:     c.PostForm("description"),
		AmountRequested: models.Money(amount),
	}

	evidence, err := readEvidence(c)
	if err != nil {
		respondError(c, err)
		return
	}

	claim, err := h.service.FileClaim(c.Request.Context(), actor, req, evidence)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, claim)
}

func readEvidence(c *gin.Context) (*models.EvidenceFile, error) {
	header, err := c.FormFile(consts.EvidenceFormField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewValidationError("unreadable evidence upload: %v", err)
	}
	if header.Size > consts.MaxEvidenceBytes {
		return nil, models.NewValidationError("Evidence file exceeds %d MB", consts.MaxEvidenceBytes>>20)
	}
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	return &models.EvidenceFile{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// List returns the caller's claims when mine=true or the caller is a plain
// member, and every claim for reviewers.
func (h *WelfareHandler) List(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var (
		claims []storemodels.WelfareClaim
		err    error
	)
	if c.Query("mine") == "true" || actor.Role == models.RoleMember {
		claims, err = h.service.ListMine(c.Request.Context(), actor)
	} else {
		claims, err = h.service.ListAll(c.Request.Context(), actor)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, claims)
}

func (h *WelfareHandler) Review(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := pathObjectID(c, "id")
	if !ok {
		return
	}
	var req models.WelfareClaimReviewRequest
	if !bindJSON(c, &req) {
		return
	}
	claim, err := h.service.Review(c.Request.Context(), actor, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, claim)
}
