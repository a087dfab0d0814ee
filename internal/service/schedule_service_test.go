package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/carebridge/carebridge-api/internal/dto"
	"github.com/carebridge/carebridge-api/internal/models"
	appErrors "github.com/carebridge/carebridge-api/pkg/errors"
)

// mockScheduleRepo separates the snapshot served by FindByID from the
// state guarding transitions, mirroring the conditional-update rows.
type mockScheduleRepo struct {
	schedules  map[string]models.Schedule
	status     map[string]models.ScheduleStatus
	conflicts  []models.ScheduleConflict
	resolved   map[string]bool
	lastFilter models.ScheduleFilter
}

func (m *mockScheduleRepo) currentStatus(id string) models.ScheduleStatus {
	if s, ok := m.status[id]; ok {
		return s
	}
	return m.schedules[id].Status
}

func (m *mockScheduleRepo) setStatus(id string, status models.ScheduleStatus) {
	if m.status == nil {
		m.status = make(map[string]models.ScheduleStatus)
	}
	m.status[id] = status
}

func (m *mockScheduleRepo) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	if s, ok := m.schedules[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockScheduleRepo) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error) {
	m.lastFilter = filter
	var list []models.Schedule
	for _, s := range m.schedules {
		if filter.CarerID != "" && s.CarerID != filter.CarerID {
			continue
		}
		list = append(list, s)
	}
	return list, len(list), nil
}

func (m *mockScheduleRepo) Create(ctx context.Context, schedule *models.Schedule) error {
	if m.schedules == nil {
		m.schedules = make(map[string]models.Schedule)
	}
	if schedule.ID == "" {
		schedule.ID = "new-schedule"
	}
	m.schedules[schedule.ID] = *schedule
	return nil
}

func (m *mockScheduleRepo) UpdateDetails(ctx context.Context, schedule *models.Schedule) error {
	m.schedules[schedule.ID] = *schedule
	return nil
}

func (m *mockScheduleRepo) Transition(ctx context.Context, id string, from, to models.ScheduleStatus, ts time.Time) (bool, error) {
	if m.currentStatus(id) != from {
		return false, nil
	}
	m.setStatus(id, to)
	return true, nil
}

func (m *mockScheduleRepo) SetCompletionNotes(ctx context.Context, id string, notes *string, ts time.Time) error {
	return nil
}

func (m *mockScheduleRepo) Overlapping(ctx context.Context, carerID string, from, to time.Time, excludeID string) ([]models.Schedule, error) {
	var out []models.Schedule
	for _, s := range m.schedules {
		if s.CarerID != carerID || s.ID == excludeID || m.currentStatus(s.ID) != models.ScheduleStatusScheduled {
			continue
		}
		start, end := s.Window()
		if start.Before(to) && end.After(from) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockScheduleRepo) CreateConflict(ctx context.Context, conflict *models.ScheduleConflict) error {
	if conflict.ID == "" {
		conflict.ID = "new-conflict"
	}
	m.conflicts = append(m.conflicts, *conflict)
	return nil
}

func (m *mockScheduleRepo) ListConflicts(ctx context.Context, resolved *bool) ([]models.ScheduleConflict, error) {
	return m.conflicts, nil
}

func (m *mockScheduleRepo) ResolveConflict(ctx context.Context, id string, notes *string, ts time.Time) (bool, error) {
	if m.resolved == nil {
		m.resolved = make(map[string]bool)
	}
	if m.resolved[id] {
		return false, nil
	}
	m.resolved[id] = true
	return true, nil
}

func plannedSchedule() models.Schedule {
	minutes := 60
	return models.Schedule{
		ID:               "sch1",
		ActivityID:       "act-1",
		CarerID:          "carer-1",
		CreatedBy:        "admin-1",
		ScheduledAt:      time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC),
		EstimatedMinutes: &minutes,
		Status:           models.ScheduleStatusScheduled,
		Priority:         models.SchedulePriorityMedium,
	}
}

func newScheduleService(repo *mockScheduleRepo) *ScheduleService {
	return NewScheduleService(repo, validator.New(), zap.NewNop())
}

func TestScheduleCreateRecordsConflictOnOverlap(t *testing.T) {
	repo := &mockScheduleRepo{schedules: map[string]models.Schedule{"sch1": plannedSchedule()}}
	svc := newScheduleService(repo)

	created, err := svc.Create(context.Background(), adminClaims(), dto.CreateScheduleRequest{
		ActivityID:  "act-2",
		CarerID:     "carer-1",
		ScheduledAt: time.Date(2026, time.March, 2, 10, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusScheduled, created.Status)

	require.Len(t, repo.conflicts, 1)
	assert.Equal(t, created.ID, repo.conflicts[0].ScheduleID)
	assert.Equal(t, "sch1", repo.conflicts[0].ConflictingID)
	assert.Equal(t, models.ConflictDoubleBooking, repo.conflicts[0].ConflictType)
}

func TestScheduleCreateFreeWindowNoConflict(t *testing.T) {
	repo := &mockScheduleRepo{schedules: map[string]models.Schedule{"sch1": plannedSchedule()}}
	svc := newScheduleService(repo)

	_, err := svc.Create(context.Background(), adminClaims(), dto.CreateScheduleRequest{
		ActivityID:  "act-2",
		CarerID:     "carer-1",
		ScheduledAt: time.Date(2026, time.March, 2, 14, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Empty(t, repo.conflicts)
}

func TestScheduleCreateForbidsOtherCarer(t *testing.T) {
	repo := &mockScheduleRepo{}
	svc := newScheduleService(repo)

	_, err := svc.Create(context.Background(), carerClaims(), dto.CreateScheduleRequest{
		ActivityID:  "act-1",
		CarerID:     "someone-else",
		ScheduledAt: time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestScheduleRescheduleRejectsOccupiedWindow(t *testing.T) {
	other := plannedSchedule()
	other.ID = "sch2"
	other.ScheduledAt = time.Date(2026, time.March, 2, 15, 0, 0, 0, time.UTC)
	repo := &mockScheduleRepo{schedules: map[string]models.Schedule{
		"sch1": plannedSchedule(),
		"sch2": other,
	}}
	svc := newScheduleService(repo)

	_, err := svc.Reschedule(context.Background(), adminClaims(), "sch1", dto.RescheduleRequest{
		ScheduledAt: time.Date(2026, time.March, 2, 15, 30, 0, 0, time.UTC),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Equal(t, models.ScheduleStatusScheduled, repo.currentStatus("sch1"))
}

func TestScheduleRescheduleCreatesLinkedReplacement(t *testing.T) {
	repo := &mockScheduleRepo{schedules: map[string]models.Schedule{"sch1": plannedSchedule()}}
	svc := newScheduleService(repo)

	replacement, err := svc.Reschedule(context.Background(), adminClaims(), "sch1", dto.RescheduleRequest{
		ScheduledAt: time.Date(2026, time.March, 3, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NotNil(t, replacement.RescheduledFrom)
	assert.Equal(t, "sch1", *replacement.RescheduledFrom)
	assert.Equal(t, "act-1", replacement.ActivityID)
	assert.Equal(t, models.ScheduleStatusRescheduled, repo.currentStatus("sch1"))
	assert.Equal(t, models.ScheduleStatusScheduled, replacement.Status)
}

func TestScheduleStartWinsOnce(t *testing.T) {
	repo := &mockScheduleRepo{schedules: map[string]models.Schedule{"sch1": plannedSchedule()}}
	svc := newScheduleService(repo)

	started, err := svc.Start(context.Background(), carerClaims(), "sch1")
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusInProgress, started.Status)

	_, secondErr := svc.Start(context.Background(), carerClaims(), "sch1")
	require.Error(t, secondErr)
	assert.Equal(t, appErrors.ErrState.Code, appErrors.FromError(secondErr).Code)
}

func TestScheduleCompleteRequiresInProgress(t *testing.T) {
	repo := &mockScheduleRepo{schedules: map[string]models.Schedule{"sch1": plannedSchedule()}}
	svc := newScheduleService(repo)

	_, err := svc.Complete(context.Background(), carerClaims(), "sch1", dto.CompleteScheduleRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrState.Code, appErrors.FromError(err).Code)
}

func TestScheduleListScopesToCarer(t *testing.T) {
	repo := &mockScheduleRepo{schedules: map[string]models.Schedule{"sch1": plannedSchedule()}}
	svc := newScheduleService(repo)

	_, _, err := svc.List(context.Background(), carerClaims(), models.ScheduleFilter{CarerID: "someone-else"})
	require.NoError(t, err)
	assert.Equal(t, "carer-1", repo.lastFilter.CarerID)
}

func TestScheduleResolveConflictOnce(t *testing.T) {
	repo := &mockScheduleRepo{}
	svc := newScheduleService(repo)

	require.NoError(t, svc.ResolveConflict(context.Background(), adminClaims(), "conf-1", dto.ResolveConflictRequest{}))

	err := svc.ResolveConflict(context.Background(), adminClaims(), "conf-1", dto.ResolveConflictRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrState.Code, appErrors.FromError(err).Code)
}
