package middleware

import (
	"strings"
	"time"

	"sacco-ledger/internal/pkg/consts"
	"sacco-ledger/internal/pkg/log_messages"
	"sacco-ledger/internal/pkg/logger"
	"sacco-ledger/internal/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const actorKey = "sacco.actor"

// AttachRequestContext stamps every request with a trace id and, when the
// identity provider set them, the caller's member id and role.
func AttachRequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		traceID := strings.TrimSpace(c.GetHeader(consts.HeaderTraceID))
		if traceID == "" {
			traceID = uuid.New().String()
		}
		ctx := logger.WithTraceID(c.Request.Context(), traceID)
		c.Request = c.Request.WithContext(ctx)
		c.Header(consts.HeaderTraceID, traceID)

		if actor, ok := parseActor(c); ok {
			c.Set(actorKey, actor)
		}

		c.Next()

		logger.CtxInfo(ctx, log_messages.RequestCompleted,
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

func parseActor(c *gin.Context) (models.Actor, bool) {
	rawID := strings.TrimSpace(c.GetHeader(consts.HeaderMemberID))
	rawRole := strings.ToUpper(strings.TrimSpace(c.GetHeader(consts.HeaderMemberRole)))
	if rawID == "" && rawRole == "" {
		return models.Actor{}, false
	}

	id, err := primitive.ObjectIDFromHex(rawID)
	role := models.Role(rawRole)
	if err != nil || !role.Valid() {
		logger.CtxWarn(c.Request.Context(), log_messages.InvalidActorHeaders,
			zap.String("memberId", rawID),
			zap.String("role", rawRole))
		return models.Actor{}, false
	}
	return models.Actor{MemberID: id, Role: role}, true
}

// Actor returns the caller attached by AttachRequestContext.
func Actor(c *gin.Context) (models.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return models.Actor{}, false
	}
	actor, ok := v.(models.Actor)
	return actor, ok
}
