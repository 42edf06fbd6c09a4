package handlers

import (
	"net/http"

	"sacco-ledger/internal/pkg/models"
	"sacco-ledger/internal/service/members"

	"github.com/gin-gonic/gin"
)

type MemberHandler struct {
	service members.MemberServiceInterface
}

func NewMemberHandler(service members.MemberServiceInterface) *MemberHandler {
	return &MemberHandler{service: service}
}

// Register is open to callers without identity headers.
func (h *MemberHandler) Register(c *gin.Context) {
	var req models.RegisterMemberRequest
	if !bindJSON(c, &req) {
		return
	}
	member, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, member)
}

func (h *MemberHandler) Activate(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := pathObjectID(c, "id")
	if !ok {
		return
	}
	member, err := h.service.Activate(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

func (h *MemberHandler) Freeze(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := pathObjectID(c, "id")
	if !ok {
		return
	}
	member, err := h.service.Freeze(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

func (h *MemberHandler) Get(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := pathObjectID(c, "id")
	if !ok {
		return
	}
	member, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

func (h *MemberHandler) Wallet(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	memberID, ok := pathObjectID(c, "memberId")
	if !ok {
		return
	}
	wallet, err := h.service.Wallet(c.Request.Context(), actor, memberID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wallet)
}
