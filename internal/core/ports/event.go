package ports

import (
	"context"
	"time"
)

const (
	EventVisitCreated   = "visit.created"
	EventVisitCompleted = "visit.completed"
)

// VisitEvent is written to the outbox alongside the visit row and relayed to
// the message broker.
type VisitEvent struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	VisitID  string `json:"visit_id"`
	FamilyID string `json:"family_id"`
	ActorID  string `json:"actor_id"`
	Status   string `json:"status"`
	// ResolveUrgency records the caller's intent; the family update itself is
	// owned by the family service and may fail independently.
	ResolveUrgency bool      `json:"resolve_urgency"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type VisitEventPublisher interface {
	PublishVisitEvent(ctx context.Context, evt VisitEvent) error
}
