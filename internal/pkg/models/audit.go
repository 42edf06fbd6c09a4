package models

import "time"

// AuditEvent describes one state-changing call. Delivery is the sink's concern.
type AuditEvent struct {
	ActorID    string                 `json:"actorId"`
	Role       Role                   `json:"role"`
	Action     string                 `json:"action"`
	EntityType string                 `json:"entityType"`
	EntityID   string                 `json:"entityId"`
	Details    map[string]interface{} `json:"details,omitempty"`
	TraceID    string                 `json:"traceId,omitempty"`
	OccurredAt time.Time              `json:"occurredAt"`
}

func NewAuditEvent(actor Actor, action, entityType, entityID string, details map[string]interface{}) AuditEvent {
	actorID := ""
	if !actor.MemberID.IsZero() {
		actorID = actor.MemberID.Hex()
	}
	return AuditEvent{
		ActorID:    actorID,
		Role:       actor.Role,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
	}
}
