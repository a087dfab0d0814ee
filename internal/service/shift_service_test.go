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

// mockShiftRepo separates the snapshot served by FindByID from the
// state guarding conditional updates, so racing callers that both read
// "scheduled" can be simulated.
type mockShiftRepo struct {
	shifts   map[string]models.Shift
	status   map[string]models.ShiftStatus
	noShows  []string
	clockIns map[string]time.Time
	reviews  map[string]*int
}

func (m *mockShiftRepo) currentStatus(id string) models.ShiftStatus {
	if s, ok := m.status[id]; ok {
		return s
	}
	return m.shifts[id].Status
}

func (m *mockShiftRepo) setStatus(id string, status models.ShiftStatus) {
	if m.status == nil {
		m.status = make(map[string]models.ShiftStatus)
	}
	m.status[id] = status
}

func (m *mockShiftRepo) FindByID(ctx context.Context, id string) (*models.Shift, error) {
	if s, ok := m.shifts[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockShiftRepo) List(ctx context.Context, filter models.ShiftFilter) ([]models.Shift, int, error) {
	var list []models.Shift
	for _, s := range m.shifts {
		list = append(list, s)
	}
	return list, len(list), nil
}

func (m *mockShiftRepo) Create(ctx context.Context, shift *models.Shift) error {
	if m.shifts == nil {
		m.shifts = make(map[string]models.Shift)
	}
	if shift.ID == "" {
		shift.ID = "new-shift"
	}
	m.shifts[shift.ID] = *shift
	return nil
}

func (m *mockShiftRepo) UpdateSchedule(ctx context.Context, shift *models.Shift) error {
	m.shifts[shift.ID] = *shift
	return nil
}

func (m *mockShiftRepo) ClockIn(ctx context.Context, id string, ts time.Time, location *string, early bool) (bool, error) {
	if m.currentStatus(id) != models.ShiftStatusScheduled {
		return false, nil
	}
	m.setStatus(id, models.ShiftStatusInProgress)
	if m.clockIns == nil {
		m.clockIns = make(map[string]time.Time)
	}
	m.clockIns[id] = ts
	return true, nil
}

func (m *mockShiftRepo) ClockOut(ctx context.Context, id string, ts time.Time, location *string, actualMinutes int) (bool, error) {
	if m.currentStatus(id) != models.ShiftStatusInProgress {
		return false, nil
	}
	m.setStatus(id, models.ShiftStatusCompleted)
	return true, nil
}

func (m *mockShiftRepo) Cancel(ctx context.Context, id string, ts time.Time) (bool, error) {
	if m.currentStatus(id) != models.ShiftStatusScheduled {
		return false, nil
	}
	m.setStatus(id, models.ShiftStatusCancelled)
	return true, nil
}

func (m *mockShiftRepo) MarkNoShows(ctx context.Context, asOf time.Time, grace time.Duration) ([]string, error) {
	var marked []string
	for id, s := range m.shifts {
		if m.currentStatus(id) == models.ShiftStatusScheduled && asOf.After(s.ScheduledStart.Add(grace)) {
			m.setStatus(id, models.ShiftStatusNoShow)
			marked = append(marked, id)
		}
	}
	m.noShows = marked
	return marked, nil
}

func (m *mockShiftRepo) SetSupervisorReview(ctx context.Context, id string, rating *int, notes *string, ts time.Time) error {
	if m.reviews == nil {
		m.reviews = make(map[string]*int)
	}
	m.reviews[id] = rating
	return nil
}

func (m *mockShiftRepo) Summary(ctx context.Context, carerID string) (*models.ShiftSummary, error) {
	return &models.ShiftSummary{CarerID: carerID}, nil
}

type mockAudit struct {
	logs []models.AuditLog
}

func (m *mockAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.logs = append(m.logs, *log)
	return nil
}

func scheduledShift() models.Shift {
	return models.Shift{
		ID:             "sh1",
		CarerID:        "carer-1",
		Date:           time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC),
		ShiftType:      models.ShiftTypeFullDay,
		ScheduledStart: time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC),
		ScheduledEnd:   time.Date(2026, time.March, 2, 17, 0, 0, 0, time.UTC),
		BreakMinutes:   30,
		Status:         models.ShiftStatusScheduled,
	}
}

func newShiftService(repo *mockShiftRepo, events eventEmitter) *ShiftService {
	return NewShiftService(repo, &mockAudit{}, events, validator.New(), zap.NewNop(), ShiftConfig{GracePeriod: 15 * time.Minute})
}

func TestShiftClockInEarlyFlag(t *testing.T) {
	repo := &mockShiftRepo{shifts: map[string]models.Shift{"sh1": scheduledShift()}}
	svc := newShiftService(repo, nil)

	ts := time.Date(2026, time.March, 2, 8, 50, 0, 0, time.UTC)
	shift, err := svc.ClockIn(context.Background(), carerClaims(), "sh1", dto.ClockRequest{Timestamp: &ts})
	require.NoError(t, err)
	assert.Equal(t, models.ShiftStatusInProgress, shift.Status)
	assert.True(t, shift.EarlyClockIn)
	assert.Equal(t, ts, *shift.ClockIn)
}

func TestShiftClockInOnTimeNotEarly(t *testing.T) {
	repo := &mockShiftRepo{shifts: map[string]models.Shift{"sh1": scheduledShift()}}
	svc := newShiftService(repo, nil)

	ts := time.Date(2026, time.March, 2, 9, 5, 0, 0, time.UTC)
	shift, err := svc.ClockIn(context.Background(), carerClaims(), "sh1", dto.ClockRequest{Timestamp: &ts})
	require.NoError(t, err)
	assert.False(t, shift.EarlyClockIn)
}

func TestShiftClockInWrongCarer(t *testing.T) {
	repo := &mockShiftRepo{shifts: map[string]models.Shift{"sh1": scheduledShift()}}
	svc := newShiftService(repo, nil)

	other := &models.JWTClaims{UserID: "carer-2", Role: models.RoleSupportWorker, Approved: true}
	_, err := svc.ClockIn(context.Background(), other, "sh1", dto.ClockRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestShiftClockOutBeforeClockIn(t *testing.T) {
	repo := &mockShiftRepo{shifts: map[string]models.Shift{"sh1": scheduledShift()}}
	svc := newShiftService(repo, nil)

	_, err := svc.ClockOut(context.Background(), carerClaims(), "sh1", dto.ClockRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrState.Code, appErrors.FromError(err).Code)
}

func TestShiftActualDuration(t *testing.T) {
	shift := scheduledShift()
	clockIn := time.Date(2026, time.March, 2, 8, 50, 0, 0, time.UTC)
	shift.Status = models.ShiftStatusInProgress
	shift.ClockIn = &clockIn
	repo := &mockShiftRepo{shifts: map[string]models.Shift{"sh1": shift}}
	svc := newShiftService(repo, nil)

	out := time.Date(2026, time.March, 2, 17, 10, 0, 0, time.UTC)
	updated, err := svc.ClockOut(context.Background(), carerClaims(), "sh1", dto.ClockRequest{Timestamp: &out})
	require.NoError(t, err)
	// 08:50 to 17:10 is 500 minutes, minus a 30 minute break
	require.NotNil(t, updated.ActualMinutes)
	assert.Equal(t, 470, *updated.ActualMinutes)
	assert.Equal(t, models.ShiftStatusCompleted, updated.Status)
}

func TestShiftActualDurationClampedToZero(t *testing.T) {
	shift := scheduledShift()
	clockIn := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	shift.Status = models.ShiftStatusInProgress
	shift.ClockIn = &clockIn
	repo := &mockShiftRepo{shifts: map[string]models.Shift{"sh1": shift}}
	svc := newShiftService(repo, nil)

	out := clockIn.Add(10 * time.Minute) // shorter than the break
	updated, err := svc.ClockOut(context.Background(), carerClaims(), "sh1", dto.ClockRequest{Timestamp: &out})
	require.NoError(t, err)
	assert.Equal(t, 0, *updated.ActualMinutes)
}

func TestShiftConcurrentClockInOneWinner(t *testing.T) {
	// FindByID keeps serving the scheduled snapshot, so both callers
	// pass the precheck; the conditional update decides the winner.
	repo := &mockShiftRepo{shifts: map[string]models.Shift{"sh1": scheduledShift()}}
	svc := newShiftService(repo, nil)

	ts := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	_, firstErr := svc.ClockIn(context.Background(), carerClaims(), "sh1", dto.ClockRequest{Timestamp: &ts})
	_, secondErr := svc.ClockIn(context.Background(), carerClaims(), "sh1", dto.ClockRequest{Timestamp: &ts})

	require.NoError(t, firstErr)
	require.Error(t, secondErr)
	assert.Equal(t, appErrors.ErrState.Code, appErrors.FromError(secondErr).Code)
}

func TestShiftNoShowSweep(t *testing.T) {
	stale := scheduledShift()
	fresh := scheduledShift()
	fresh.ID = "sh2"
	fresh.ScheduledStart = time.Date(2026, time.March, 2, 18, 0, 0, 0, time.UTC)
	repo := &mockShiftRepo{shifts: map[string]models.Shift{"sh1": stale, "sh2": fresh}}
	emitter := &mockEmitter{}
	svc := newShiftService(repo, emitter)

	asOf := time.Date(2026, time.March, 2, 9, 30, 0, 0, time.UTC)
	count, err := svc.MarkNoShows(context.Background(), asOf)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, models.ShiftStatusNoShow, repo.currentStatus("sh1"))
	assert.Equal(t, models.ShiftStatusScheduled, repo.currentStatus("sh2"))
	require.Len(t, emitter.events, 1)
	assert.Equal(t, models.EventShiftNoShow, emitter.events[0].Type)
	assert.Equal(t, "shift_no_show:sh1", emitter.events[0].DedupeKey)
}

func TestShiftWithinGraceNotMarked(t *testing.T) {
	repo := &mockShiftRepo{shifts: map[string]models.Shift{"sh1": scheduledShift()}}
	svc := newShiftService(repo, nil)

	asOf := time.Date(2026, time.March, 2, 9, 10, 0, 0, time.UTC)
	count, err := svc.MarkNoShows(context.Background(), asOf)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, models.ShiftStatusScheduled, repo.currentStatus("sh1"))
}

func TestShiftSupervisorReviewRequiresCompleted(t *testing.T) {
	repo := &mockShiftRepo{shifts: map[string]models.Shift{"sh1": scheduledShift()}}
	svc := newShiftService(repo, nil)

	rating := 4
	_, err := svc.SupervisorReview(context.Background(), adminClaims(), "sh1", dto.SupervisorReviewRequest{PerformanceRating: &rating})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrState.Code, appErrors.FromError(err).Code)
}

func TestShiftSupervisorReviewAdminOnly(t *testing.T) {
	shift := scheduledShift()
	shift.Status = models.ShiftStatusCompleted
	repo := &mockShiftRepo{shifts: map[string]models.Shift{"sh1": shift}}
	svc := newShiftService(repo, nil)

	rating := 4
	_, err := svc.SupervisorReview(context.Background(), carerClaims(), "sh1", dto.SupervisorReviewRequest{PerformanceRating: &rating})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	reviewed, err := svc.SupervisorReview(context.Background(), adminClaims(), "sh1", dto.SupervisorReviewRequest{PerformanceRating: &rating})
	require.NoError(t, err)
	assert.Equal(t, 4, *reviewed.PerformanceRating)
}
