package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/carebridge/carebridge-api/internal/models"
	"github.com/carebridge/carebridge-api/pkg/jobs"
)

type eventRepository interface {
	Insert(ctx context.Context, event *models.DomainEvent) (bool, error)
	MarkDispatched(ctx context.Context, id string, ts time.Time) error
	ListPending(ctx context.Context, limit int) ([]models.DomainEvent, error)
}

// Notifier delivers a domain event to the notification collaborator.
type Notifier interface {
	Notify(ctx context.Context, event models.DomainEvent) error
}

// LogNotifier is the default collaborator: it records deliveries in the
// application log. Real transports plug in behind the Notifier interface.
type LogNotifier struct {
	Logger *zap.Logger
}

// Notify logs the event.
func (n *LogNotifier) Notify(_ context.Context, event models.DomainEvent) error {
	logger := n.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("domain event dispatched",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.String("resource_id", event.ResourceID))
	return nil
}

// EventService persists domain events idempotently and dispatches them to
// the notification collaborator through a background queue.
type EventService struct {
	repo     eventRepository
	notifier Notifier
	queue    *jobs.Queue
	logger   *zap.Logger
}

// EventQueueConfig sizes the dispatch worker pool.
type EventQueueConfig struct {
	Workers    int
	BufferSize int
}

// NewEventService constructs the dispatcher. Call Start before emitting.
func NewEventService(repo eventRepository, notifier Notifier, cfg EventQueueConfig, logger *zap.Logger) *EventService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = &LogNotifier{Logger: logger}
	}
	s := &EventService{repo: repo, notifier: notifier, logger: logger}
	s.queue = jobs.NewQueue("domain-events", s.dispatch, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		Logger:     logger,
	})
	return s
}

// Start launches the dispatch workers and replays events that were
// persisted but never delivered.
func (s *EventService) Start(ctx context.Context) {
	s.queue.Start(ctx)
	pending, err := s.repo.ListPending(ctx, 500)
	if err != nil {
		s.logger.Warn("failed to load pending events", zap.Error(err))
		return
	}
	for _, event := range pending {
		s.enqueue(event)
	}
}

// Stop drains the dispatch workers.
func (s *EventService) Stop() {
	s.queue.Stop()
}

// Emit records the event keyed by its dedupe key and schedules delivery.
// Re-emitting an already recorded fact is a no-op.
func (s *EventService) Emit(ctx context.Context, eventType models.EventType, resourceID, dedupeKey string, payload interface{}, occurredAt time.Time) error {
	var raw []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode event payload: %w", err)
		}
		raw = encoded
	}

	event := &models.DomainEvent{
		Type:       eventType,
		ResourceID: resourceID,
		DedupeKey:  dedupeKey,
		Payload:    raw,
		OccurredAt: occurredAt,
	}

	inserted, err := s.repo.Insert(ctx, event)
	if err != nil {
		return err
	}
	if !inserted {
		return nil
	}

	s.enqueue(*event)
	return nil
}

func (s *EventService) enqueue(event models.DomainEvent) {
	if err := s.queue.Enqueue(jobs.Job{ID: event.ID, Type: string(event.Type), Payload: event}); err != nil {
		s.logger.Warn("failed to enqueue event, will replay on restart",
			zap.String("event_id", event.ID), zap.Error(err))
	}
}

func (s *EventService) dispatch(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(models.DomainEvent)
	if !ok {
		return fmt.Errorf("unexpected payload type for job %s", job.ID)
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		return err
	}
	return s.repo.MarkDispatched(ctx, event.ID, time.Now().UTC())
}
