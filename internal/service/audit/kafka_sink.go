// Package audit ships audit events to the audit topic.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"sacco-ledger/internal/pkg/log_messages"
	"sacco-ledger/internal/pkg/logger"
	"sacco-ledger/internal/pkg/models"
	"sacco-ledger/internal/service/interfaces"

	"go.uber.org/zap"
)

// KafkaSink publishes one JSON message per event, keyed by entity id so the
// events of one entity stay ordered on a partition.
type KafkaSink struct {
	producer interfaces.KafkaPublisher
	now      func() time.Time
}

var _ interfaces.AuditSink = (*KafkaSink)(nil)

func NewKafkaSink(producer interfaces.KafkaPublisher) *KafkaSink {
	return &KafkaSink{
		producer: producer,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Emit never fails the caller. The mutation it describes has already committed.
func (s *KafkaSink) Emit(ctx context.Context, event models.AuditEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now()
	}
	if event.TraceID == "" {
		event.TraceID = logger.GetTraceID(ctx)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		logger.CtxError(ctx, log_messages.ErrorMarshallingJSON, err, zap.String("action", event.Action))
		return
	}

	if err := s.producer.Publish(ctx, event.EntityID, payload); err != nil {
		logger.CtxError(ctx, log_messages.ErrorPublishingAuditEvent, err,
			zap.String("action", event.Action),
			zap.String("entityType", event.EntityType),
			zap.String("entityId", event.EntityID))
	}
}

// LogSink writes events to the log only. It stands in when no broker is configured.
type LogSink struct{}

var _ interfaces.AuditSink = LogSink{}

func (LogSink) Emit(ctx context.Context, event models.AuditEvent) {
	logger.CtxInfo(ctx, log_messages.AuditEventRecorded,
		zap.String("action", event.Action),
		zap.String("entityType", event.EntityType),
		zap.String("entityId", event.EntityID),
		zap.String("actorId", event.ActorID))
}
