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

type mockGoalRepo struct {
	goals       map[string]models.Goal
	completions map[string][]models.QualifyingCompletion
	created     *models.Goal
	completedAt map[string]time.Time
	transitions []string
}

func (m *mockGoalRepo) FindByID(ctx context.Context, id string) (*models.Goal, error) {
	if g, ok := m.goals[id]; ok {
		return &g, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockGoalRepo) List(ctx context.Context, filter models.GoalFilter) ([]models.Goal, int, error) {
	var list []models.Goal
	for _, g := range m.goals {
		list = append(list, g)
	}
	return list, len(list), nil
}

func (m *mockGoalRepo) Create(ctx context.Context, goal *models.Goal) error {
	if m.goals == nil {
		m.goals = make(map[string]models.Goal)
	}
	if goal.ID == "" {
		goal.ID = "new-goal"
	}
	m.goals[goal.ID] = *goal
	m.created = goal
	return nil
}

func (m *mockGoalRepo) Update(ctx context.Context, goal *models.Goal) error {
	m.goals[goal.ID] = *goal
	return nil
}

func (m *mockGoalRepo) TransitionStatus(ctx context.Context, id string, from, to models.GoalStatus, ts time.Time) (bool, error) {
	g, ok := m.goals[id]
	if !ok || g.Status != from {
		return false, nil
	}
	g.Status = to
	m.goals[id] = g
	m.transitions = append(m.transitions, id+":"+string(to))
	return true, nil
}

func (m *mockGoalRepo) CompleteIfActive(ctx context.Context, id string, completedAt time.Time) (bool, error) {
	g, ok := m.goals[id]
	if !ok || g.Status != models.GoalStatusActive {
		return false, nil
	}
	g.Status = models.GoalStatusCompleted
	g.CompletedAt = &completedAt
	m.goals[id] = g
	if m.completedAt == nil {
		m.completedAt = make(map[string]time.Time)
	}
	m.completedAt[id] = completedAt
	return true, nil
}

func (m *mockGoalRepo) ReplaceAssignedCarers(ctx context.Context, goalID string, carerIDs []string) error {
	return nil
}

func (m *mockGoalRepo) AssignedCarerIDs(ctx context.Context, goalID string) ([]string, error) {
	return nil, nil
}

func (m *mockGoalRepo) QualifyingCompletions(ctx context.Context, goalID string) ([]models.QualifyingCompletion, error) {
	return m.completions[goalID], nil
}

func (m *mockGoalRepo) Analytics(ctx context.Context) (*models.GoalAnalytics, error) {
	return &models.GoalAnalytics{TotalGoals: len(m.goals)}, nil
}

type mockEmitter struct {
	events []models.DomainEvent
}

func (m *mockEmitter) Emit(ctx context.Context, eventType models.EventType, resourceID, dedupeKey string, payload interface{}, occurredAt time.Time) error {
	m.events = append(m.events, models.DomainEvent{Type: eventType, ResourceID: resourceID, DedupeKey: dedupeKey, OccurredAt: occurredAt})
	return nil
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin, Approved: true}
}

func carerClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "carer-1", Role: models.RoleSupportWorker, Approved: true}
}

func disabledCache() *CacheService {
	return NewCacheService(nil, nil, 0, zap.NewNop(), false)
}

func day(d int) time.Time {
	return time.Date(2026, time.March, d, 10, 0, 0, 0, time.UTC)
}

func qualifying(activityID string, d int, weight int) models.QualifyingCompletion {
	return models.QualifyingCompletion{
		LogID:       activityID + "-log",
		ActivityID:  activityID,
		CarerID:     "carer-1",
		Date:        day(d),
		Weight:      weight,
		CompletedAt: day(d).Add(2 * time.Hour),
	}
}

func TestComputeProgressCapsPerActivityPerDay(t *testing.T) {
	goal := &models.Goal{ID: "g1", RequiredActivitiesCount: 4, CompletionThreshold: 80, Status: models.GoalStatusActive}
	records := []models.QualifyingCompletion{
		qualifying("a1", 1, 100),
		qualifying("a1", 1, 100), // same activity, same day: must not double count
		qualifying("a1", 2, 100),
	}

	progress, _ := computeProgress(goal, records, 100)
	assert.Equal(t, 2, progress.CompletedCount)
	assert.Equal(t, 50, progress.Percentage)
}

func TestComputeProgressDefaultWeight(t *testing.T) {
	goal := &models.Goal{ID: "g1", RequiredActivitiesCount: 2, CompletionThreshold: 100, Status: models.GoalStatusActive}
	records := []models.QualifyingCompletion{
		qualifying("a1", 1, 0), // unset weight falls back to the default
	}

	progress, _ := computeProgress(goal, records, 100)
	assert.Equal(t, 50, progress.Percentage)
}

func TestComputeProgressZeroRequired(t *testing.T) {
	goal := &models.Goal{ID: "g1", RequiredActivitiesCount: 0, CompletionThreshold: 80, Status: models.GoalStatusActive}

	progress, _ := computeProgress(goal, nil, 100)
	assert.Equal(t, 0, progress.Percentage)

	progress, _ = computeProgress(goal, []models.QualifyingCompletion{qualifying("a1", 1, 100)}, 100)
	assert.Equal(t, 100, progress.Percentage)
}

func TestComputeProgressIdempotent(t *testing.T) {
	goal := &models.Goal{ID: "g1", RequiredActivitiesCount: 5, CompletionThreshold: 80, Status: models.GoalStatusActive}
	records := []models.QualifyingCompletion{
		qualifying("a1", 1, 100),
		qualifying("a2", 1, 50),
		qualifying("a1", 3, 100),
	}

	first, firstTrigger := computeProgress(goal, records, 100)
	second, secondTrigger := computeProgress(goal, records, 100)
	assert.Equal(t, first, second)
	assert.Equal(t, firstTrigger, secondTrigger)
}

func TestComputeProgressCapsAtHundred(t *testing.T) {
	goal := &models.Goal{ID: "g1", RequiredActivitiesCount: 2, CompletionThreshold: 80, Status: models.GoalStatusActive}
	records := []models.QualifyingCompletion{
		qualifying("a1", 1, 100),
		qualifying("a2", 2, 100),
		qualifying("a3", 3, 100),
	}

	progress, _ := computeProgress(goal, records, 100)
	assert.Equal(t, 100, progress.Percentage)
}

func TestRecomputeCompletesGoalAtThreshold(t *testing.T) {
	goal := models.Goal{ID: "g1", Status: models.GoalStatusActive, RequiredActivitiesCount: 5, CompletionThreshold: 80}
	records := []models.QualifyingCompletion{
		qualifying("a1", 1, 100),
		qualifying("a2", 2, 100),
		qualifying("a3", 3, 100),
		qualifying("a4", 4, 100),
	}
	repo := &mockGoalRepo{
		goals:       map[string]models.Goal{"g1": goal},
		completions: map[string][]models.QualifyingCompletion{"g1": records},
	}
	emitter := &mockEmitter{}
	svc := NewGoalService(repo, emitter, disabledCache(), validator.New(), zap.NewNop(), GoalConfig{DefaultContributionWeight: 100})

	svc.RecomputeOnCompletion(context.Background(), []string{"g1"})

	got := repo.goals["g1"]
	assert.Equal(t, models.GoalStatusCompleted, got.Status)
	// completion is dated to the record that crossed the threshold
	require.Contains(t, repo.completedAt, "g1")
	assert.Equal(t, records[3].CompletedAt, repo.completedAt["g1"])
	require.Len(t, emitter.events, 1)
	assert.Equal(t, models.EventGoalCompleted, emitter.events[0].Type)
}

func TestRecomputeAlreadyCompletedIsNoOp(t *testing.T) {
	completedAt := day(4).Add(2 * time.Hour)
	goal := models.Goal{ID: "g1", Status: models.GoalStatusCompleted, CompletedAt: &completedAt, RequiredActivitiesCount: 5, CompletionThreshold: 80}
	repo := &mockGoalRepo{
		goals: map[string]models.Goal{"g1": goal},
		completions: map[string][]models.QualifyingCompletion{"g1": {
			qualifying("a1", 1, 100), qualifying("a2", 2, 100), qualifying("a3", 3, 100),
			qualifying("a4", 4, 100), qualifying("a5", 5, 100),
		}},
	}
	emitter := &mockEmitter{}
	svc := NewGoalService(repo, emitter, disabledCache(), validator.New(), zap.NewNop(), GoalConfig{DefaultContributionWeight: 100})

	svc.RecomputeOnCompletion(context.Background(), []string{"g1"})

	got := repo.goals["g1"]
	assert.Equal(t, models.GoalStatusCompleted, got.Status)
	assert.Equal(t, completedAt, *got.CompletedAt)
	assert.Empty(t, emitter.events)
}

func TestGoalProgressBelowThresholdLeavesStatus(t *testing.T) {
	goal := models.Goal{ID: "g1", Status: models.GoalStatusActive, RequiredActivitiesCount: 5, CompletionThreshold: 80}
	repo := &mockGoalRepo{
		goals: map[string]models.Goal{"g1": goal},
		completions: map[string][]models.QualifyingCompletion{"g1": {
			qualifying("a1", 1, 100), qualifying("a2", 2, 100),
		}},
	}
	svc := NewGoalService(repo, &mockEmitter{}, disabledCache(), validator.New(), zap.NewNop(), GoalConfig{DefaultContributionWeight: 100})

	svc.RecomputeOnCompletion(context.Background(), []string{"g1"})
	assert.Equal(t, models.GoalStatusActive, repo.goals["g1"].Status)
}

func TestGoalCreateRequiresAdmin(t *testing.T) {
	svc := NewGoalService(&mockGoalRepo{}, nil, disabledCache(), validator.New(), zap.NewNop(), GoalConfig{})

	_, err := svc.Create(context.Background(), carerClaims(), dto.CreateGoalRequest{Name: "walk", Description: "daily walk", Priority: models.GoalPriorityHigh})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestGoalCreateDefaultsThreshold(t *testing.T) {
	repo := &mockGoalRepo{}
	svc := NewGoalService(repo, nil, disabledCache(), validator.New(), zap.NewNop(), GoalConfig{})

	goal, err := svc.Create(context.Background(), adminClaims(), dto.CreateGoalRequest{Name: "walk", Description: "daily walk", Priority: models.GoalPriorityHigh, RequiredActivitiesCount: 5})
	require.NoError(t, err)
	assert.Equal(t, 80, goal.CompletionThreshold)
	assert.Equal(t, models.GoalStatusActive, goal.Status)
}

func TestGoalUpdateStatusIllegalTransition(t *testing.T) {
	repo := &mockGoalRepo{goals: map[string]models.Goal{"g1": {ID: "g1", Status: models.GoalStatusCompleted}}}
	svc := NewGoalService(repo, nil, disabledCache(), validator.New(), zap.NewNop(), GoalConfig{})

	_, err := svc.UpdateStatus(context.Background(), adminClaims(), "g1", models.GoalStatusActive)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrState.Code, appErrors.FromError(err).Code)
}

func TestGoalUpdateStatusPausedResumes(t *testing.T) {
	repo := &mockGoalRepo{goals: map[string]models.Goal{"g1": {ID: "g1", Status: models.GoalStatusPaused}}}
	svc := NewGoalService(repo, nil, disabledCache(), validator.New(), zap.NewNop(), GoalConfig{})

	goal, err := svc.UpdateStatus(context.Background(), adminClaims(), "g1", models.GoalStatusActive)
	require.NoError(t, err)
	assert.Equal(t, models.GoalStatusActive, goal.Status)
}
