package handlers

import (
	"net/http"

	"sacco-ledger/internal/app/middleware"
	"sacco-ledger/internal/pkg/log_messages"
	"sacco-ledger/internal/pkg/logger"
	"sacco-ledger/internal/pkg/models"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const errCodeUnauthenticated = "UNAUTHENTICATED"

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

var statusByCode = map[string]int{
	models.ErrCodeValidation:         http.StatusBadRequest,
	models.ErrCodePreconditionFailed: http.StatusPreconditionFailed,
	models.ErrCodeForbidden:          http.StatusForbidden,
	models.ErrCodeConflict:           http.StatusConflict,
	models.ErrCodeNotFound:           http.StatusNotFound,
	models.ErrCodeInvariantViolation: http.StatusInternalServerError,
	models.ErrCodeInsufficientFunds:  http.StatusUnprocessableEntity,
	models.ErrCodeSignatureMismatch:  http.StatusUnprocessableEntity,
}

// HTTPStatus maps a domain error code to its response status.
func HTTPStatus(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	code := models.GetErrorCode(err)
	status := HTTPStatus(code)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		logger.CtxError(c.Request.Context(), log_messages.RequestFailed, err,
			zap.String("code", code),
			zap.String("route", c.FullPath()))
		if code == models.ErrCodeInternal {
			message = "internal error"
		}
	}
	middleware.SetErrorCode(c, code)
	c.AbortWithStatusJSON(status, ErrorResponse{Error: code, Message: message})
}

func requireActor(c *gin.Context) (models.Actor, bool) {
	actor, ok := middleware.Actor(c)
	if !ok {
		middleware.SetErrorCode(c, errCodeUnauthenticated)
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
			Error:   errCodeUnauthenticated,
			Message: "member identity headers are required",
		})
	}
	return actor, ok
}

func pathObjectID(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		respondError(c, models.NewValidationError("%s must be a valid id", name))
		return primitive.NilObjectID, false
	}
	return id, true
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, models.NewValidationError("invalid request body: %v", err))
		return false
	}
	return true
}
