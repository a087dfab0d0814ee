package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/carebridge/carebridge-api/internal/models"
)

// EventRepository persists domain events. The dedupe key carries the
// idempotency guarantee: re-emitting the same fact is a no-op.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs a new repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Insert stores the event unless its dedupe key was already recorded.
// Returns true when the event is new.
func (r *EventRepository) Insert(ctx context.Context, event *models.DomainEvent) (bool, error) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO domain_events (id, type, resource_id, dedupe_key, payload, occurred_at, created_at)
VALUES (:id, :type, :resource_id, :dedupe_key, :payload, :occurred_at, :created_at)
ON CONFLICT (dedupe_key) DO NOTHING`
	res, err := r.db.NamedExecContext(ctx, query, event)
	if err != nil {
		return false, fmt.Errorf("insert event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert event result: %w", err)
	}
	return affected == 1, nil
}

// MarkDispatched stamps successful delivery.
func (r *EventRepository) MarkDispatched(ctx context.Context, id string, ts time.Time) error {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE domain_events SET dispatched_at = $1 WHERE id = $2", ts, id); err != nil {
		return fmt.Errorf("mark event dispatched: %w", err)
	}
	return nil
}

// ListPending returns undelivered events, oldest first.
func (r *EventRepository) ListPending(ctx context.Context, limit int) ([]models.DomainEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id, type, resource_id, dedupe_key, payload, occurred_at, dispatched_at, created_at
FROM domain_events WHERE dispatched_at IS NULL ORDER BY occurred_at ASC LIMIT $1`
	var events []models.DomainEvent
	if err := r.db.SelectContext(ctx, &events, query, limit); err != nil {
		return nil, fmt.Errorf("list pending events: %w", err)
	}
	return events, nil
}
