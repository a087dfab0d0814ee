package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/carebridge/carebridge-api/internal/models"
)

type mockEventRepo struct {
	mu         sync.Mutex
	events     map[string]models.DomainEvent // keyed by dedupe key
	dispatched map[string]time.Time
	pending    []models.DomainEvent
}

func newMockEventRepo() *mockEventRepo {
	return &mockEventRepo{
		events:     map[string]models.DomainEvent{},
		dispatched: map[string]time.Time{},
	}
}

func (m *mockEventRepo) Insert(_ context.Context, event *models.DomainEvent) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.events[event.DedupeKey]; exists {
		return false, nil
	}
	if event.ID == "" {
		event.ID = "evt-" + event.DedupeKey
	}
	m.events[event.DedupeKey] = *event
	return true, nil
}

func (m *mockEventRepo) MarkDispatched(_ context.Context, id string, ts time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatched[id] = ts
	return nil
}

func (m *mockEventRepo) ListPending(_ context.Context, _ int) ([]models.DomainEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.DomainEvent
}

func (n *recordingNotifier) Notify(_ context.Context, event models.DomainEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

func TestEventServiceEmitDeliversOnce(t *testing.T) {
	repo := newMockEventRepo()
	notifier := &recordingNotifier{}
	svc := NewEventService(repo, notifier, EventQueueConfig{Workers: 1, BufferSize: 8}, zap.NewNop())

	ctx := context.Background()
	svc.Start(ctx)

	occurredAt := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	require.NoError(t, svc.Emit(ctx, models.EventGoalCompleted, "g1", "goal_completed:g1:1", nil, occurredAt))
	// same dedupe key: the fact is already recorded
	require.NoError(t, svc.Emit(ctx, models.EventGoalCompleted, "g1", "goal_completed:g1:1", nil, occurredAt))

	require.Eventually(t, func() bool { return notifier.count() == 1 }, time.Second, 10*time.Millisecond)
	svc.Stop()

	assert.Equal(t, 1, notifier.count())
	repo.mu.Lock()
	defer repo.mu.Unlock()
	require.Len(t, repo.dispatched, 1)
}

func TestEventServiceReplaysPendingOnStart(t *testing.T) {
	repo := newMockEventRepo()
	repo.pending = []models.DomainEvent{
		{ID: "evt-1", Type: models.EventShiftNoShow, ResourceID: "sh1", DedupeKey: "shift_no_show:sh1"},
	}
	notifier := &recordingNotifier{}
	svc := NewEventService(repo, notifier, EventQueueConfig{Workers: 1, BufferSize: 8}, zap.NewNop())

	svc.Start(context.Background())
	require.Eventually(t, func() bool { return notifier.count() == 1 }, time.Second, 10*time.Millisecond)
	svc.Stop()

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Contains(t, repo.dispatched, "evt-1")
}
