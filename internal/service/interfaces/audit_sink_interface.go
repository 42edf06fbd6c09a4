package interfaces

import (
	"context"

	"sacco-ledger/internal/pkg/models"
)

// AuditSink receives a description of every state-changing call.
// Emit never fails the caller; delivery problems are the sink's to log.
type AuditSink interface {
	Emit(ctx context.Context, event models.AuditEvent)
}

type Notifier interface {
	Notify(ctx context.Context, message models.NotificationMessage)
}
