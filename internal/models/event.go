package models

import "time"

// EventType enumerates the discrete domain facts emitted to the
// notification collaborator.
type EventType string

const (
	EventGoalCompleted    EventType = "goal_completed"
	EventShiftNoShow      EventType = "shift_no_show"
	EventHighRiskActivity EventType = "high_risk_activity"
)

// DomainEvent is an idempotent fact about a resource. The dedupe key makes
// redelivery harmless: the same fact always produces the same key.
type DomainEvent struct {
	ID           string     `db:"id" json:"id"`
	Type         EventType  `db:"type" json:"type"`
	ResourceID   string     `db:"resource_id" json:"resource_id"`
	DedupeKey    string     `db:"dedupe_key" json:"dedupe_key"`
	Payload      []byte     `db:"payload" json:"payload,omitempty"`
	OccurredAt   time.Time  `db:"occurred_at" json:"occurred_at"`
	DispatchedAt *time.Time `db:"dispatched_at" json:"dispatched_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}
