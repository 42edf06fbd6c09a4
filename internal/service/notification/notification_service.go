// Package notification publishes member-facing events for the SMS and email
// senders subscribed to the notification topic.
package notification

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

const eventAttribute = "event"

type NotificationService struct {
	publisher interfaces.NotificationPublisher
	now       func() time.Time
}

var _ interfaces.Notifier = (*NotificationService)(nil)

func NewNotificationService(publisher interfaces.NotificationPublisher) *NotificationService {
	return &NotificationService{
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Notify is fire and forget. A failed publish is logged and never surfaces
// to the workflow that triggered it.
func (s *NotificationService) Notify(ctx context.Context, message models.NotificationMessage) {
	if message.PublishedAt.IsZero() {
		message.PublishedAt = s.now()
	}

	payload, err := json.Marshal(message)
	if err != nil {
		logger.CtxError(ctx, log_messages.ErrorMarshallingJSON, err, zap.String("event", message.Event))
		return
	}

	if err := s.publisher.Publish(ctx, payload, map[string]string{eventAttribute: message.Event}); err != nil {
		logger.CtxError(ctx, log_messages.ErrorPublishingNotification, err,
			zap.String("event", message.Event),
			zap.String("recipientId", message.RecipientID))
		return
	}
	logger.CtxDebug(ctx, log_messages.NotificationPublished, zap.String("event", message.Event))
}

// LogNotifier only logs. It stands in when no topic is configured.
type LogNotifier struct{}

var _ interfaces.Notifier = LogNotifier{}

func (LogNotifier) Notify(ctx context.Context, message models.NotificationMessage) {
	logger.CtxInfo(ctx, log_messages.NotificationPublished,
		zap.String("event", message.Event),
		zap.String("recipientId", message.RecipientID))
}
