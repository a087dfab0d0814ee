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

type mockActivityRepo struct {
	activities map[string]models.Activity
}

func (m *mockActivityRepo) FindByID(ctx context.Context, id string) (*models.Activity, error) {
	if a, ok := m.activities[id]; ok {
		return &a, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockActivityRepo) List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, int, error) {
	var list []models.Activity
	for _, a := range m.activities {
		list = append(list, a)
	}
	return list, len(list), nil
}

func (m *mockActivityRepo) Create(ctx context.Context, activity *models.Activity) error {
	if m.activities == nil {
		m.activities = make(map[string]models.Activity)
	}
	if activity.ID == "" {
		activity.ID = "new-activity"
	}
	m.activities[activity.ID] = *activity
	return nil
}

func (m *mockActivityRepo) Update(ctx context.Context, activity *models.Activity) error {
	m.activities[activity.ID] = *activity
	return nil
}

func (m *mockActivityRepo) Deactivate(ctx context.Context, id string, ts time.Time) error {
	a := m.activities[id]
	a.Active = false
	m.activities[id] = a
	return nil
}

func (m *mockActivityRepo) ReplaceRelatedGoals(ctx context.Context, activityID string, goalIDs []string) error {
	return nil
}

func (m *mockActivityRepo) Stats(ctx context.Context, activityID string) (*models.ActivityStats, error) {
	return &models.ActivityStats{ActivityID: activityID}, nil
}

type mockLogRepo struct {
	logs     map[string]models.ActivityLog
	existing map[string]bool
}

func logKey(activityID, carerID string, date time.Time) string {
	return activityID + ":" + carerID + ":" + date.Format("2006-01-02")
}

func (m *mockLogRepo) FindByID(ctx context.Context, id string) (*models.ActivityLog, error) {
	if l, ok := m.logs[id]; ok {
		return &l, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockLogRepo) List(ctx context.Context, filter models.ActivityLogFilter) ([]models.ActivityLog, int, error) {
	var list []models.ActivityLog
	for _, l := range m.logs {
		if filter.CarerID != "" && l.CarerID != filter.CarerID {
			continue
		}
		list = append(list, l)
	}
	return list, len(list), nil
}

func (m *mockLogRepo) Create(ctx context.Context, log *models.ActivityLog) error {
	if m.logs == nil {
		m.logs = make(map[string]models.ActivityLog)
	}
	if log.ID == "" {
		log.ID = "new-log"
	}
	m.logs[log.ID] = *log
	if m.existing == nil {
		m.existing = make(map[string]bool)
	}
	if log.Completed {
		m.existing[logKey(log.ActivityID, log.CarerID, log.Date)] = true
	}
	return nil
}

func (m *mockLogRepo) Update(ctx context.Context, log *models.ActivityLog) error {
	m.logs[log.ID] = *log
	return nil
}

func (m *mockLogRepo) ExistsForDate(ctx context.Context, activityID, carerID string, date time.Time) (bool, error) {
	return m.existing[logKey(activityID, carerID, date)], nil
}

type mockRecomputer struct {
	calls [][]string
}

func (m *mockRecomputer) RecomputeOnCompletion(ctx context.Context, goalIDs []string) {
	m.calls = append(m.calls, goalIDs)
}

func activeActivity() models.Activity {
	goalID := "g1"
	return models.Activity{
		ID:                     "a1",
		Name:                   "morning walk",
		Category:               models.ActivityCategoryRecreational,
		Difficulty:             models.ActivityDifficultyEasy,
		GoalContributionWeight: 100,
		PrimaryGoalID:          &goalID,
		Active:                 true,
		CreatedAt:              day(1),
	}
}

func newActivityService(repo *mockActivityRepo, logs *mockLogRepo, progress progressRecomputer) *ActivityService {
	return NewActivityService(repo, logs, progress, validator.New(), zap.NewNop())
}

func completionReq(activityID string, d int) dto.RecordCompletionRequest {
	return dto.RecordCompletionRequest{
		ActivityID: activityID,
		Date:       day(d),
		Status:     models.ActivityLogCompleted,
	}
}

func TestRecordCompletionSignalsRecompute(t *testing.T) {
	repo := &mockActivityRepo{activities: map[string]models.Activity{"a1": activeActivity()}}
	logs := &mockLogRepo{}
	progress := &mockRecomputer{}
	svc := newActivityService(repo, logs, progress)

	log, err := svc.RecordCompletion(context.Background(), carerClaims(), completionReq("a1", 3))
	require.NoError(t, err)
	assert.True(t, log.Completed)
	require.Len(t, progress.calls, 1)
	assert.Equal(t, []string{"g1"}, progress.calls[0])
}

func TestRecordCompletionRepeatSameDaySkipsRecompute(t *testing.T) {
	repo := &mockActivityRepo{activities: map[string]models.Activity{"a1": activeActivity()}}
	logs := &mockLogRepo{}
	progress := &mockRecomputer{}
	svc := newActivityService(repo, logs, progress)

	_, err := svc.RecordCompletion(context.Background(), carerClaims(), completionReq("a1", 3))
	require.NoError(t, err)
	_, err = svc.RecordCompletion(context.Background(), carerClaims(), completionReq("a1", 3))
	require.NoError(t, err)

	// the second completed log for the same activity and day cannot move
	// capped progress
	assert.Len(t, progress.calls, 1)
}

func TestRecordCompletionIncompleteStatusNoRecompute(t *testing.T) {
	repo := &mockActivityRepo{activities: map[string]models.Activity{"a1": activeActivity()}}
	progress := &mockRecomputer{}
	svc := newActivityService(repo, &mockLogRepo{}, progress)

	req := completionReq("a1", 3)
	req.Status = models.ActivityLogSkipped
	log, err := svc.RecordCompletion(context.Background(), carerClaims(), req)
	require.NoError(t, err)
	assert.False(t, log.Completed)
	assert.Empty(t, progress.calls)
}

func TestRecordCompletionInactiveActivity(t *testing.T) {
	activity := activeActivity()
	activity.Active = false
	repo := &mockActivityRepo{activities: map[string]models.Activity{"a1": activity}}
	svc := newActivityService(repo, &mockLogRepo{}, nil)

	_, err := svc.RecordCompletion(context.Background(), carerClaims(), completionReq("a1", 3))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRecordCompletionUnknownActivity(t *testing.T) {
	svc := newActivityService(&mockActivityRepo{}, &mockLogRepo{}, nil)

	_, err := svc.RecordCompletion(context.Background(), carerClaims(), completionReq("missing", 3))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRecordCompletionDateBeforeActivityCreation(t *testing.T) {
	activity := activeActivity()
	activity.CreatedAt = day(5)
	repo := &mockActivityRepo{activities: map[string]models.Activity{"a1": activity}}
	svc := newActivityService(repo, &mockLogRepo{}, nil)

	_, err := svc.RecordCompletion(context.Background(), carerClaims(), completionReq("a1", 3))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRecordCompletionRatingOutOfRange(t *testing.T) {
	repo := &mockActivityRepo{activities: map[string]models.Activity{"a1": activeActivity()}}
	svc := newActivityService(repo, &mockLogRepo{}, nil)

	rating := 6
	req := completionReq("a1", 3)
	req.SatisfactionRating = &rating
	_, err := svc.RecordCompletion(context.Background(), carerClaims(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRecordCompletionUnapprovedCarer(t *testing.T) {
	svc := newActivityService(&mockActivityRepo{}, &mockLogRepo{}, nil)

	unapproved := &models.JWTClaims{UserID: "carer-2", Role: models.RoleSupportWorker, Approved: false}
	_, err := svc.RecordCompletion(context.Background(), unapproved, completionReq("a1", 3))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotApproved.Code, appErrors.FromError(err).Code)
}

func TestUpdateLogStatusFlipTriggersRecompute(t *testing.T) {
	repo := &mockActivityRepo{activities: map[string]models.Activity{"a1": activeActivity()}}
	logs := &mockLogRepo{logs: map[string]models.ActivityLog{"l1": {
		ID:         "l1",
		ActivityID: "a1",
		CarerID:    "carer-1",
		Date:       day(3),
		Status:     models.ActivityLogInProgress,
	}}}
	progress := &mockRecomputer{}
	svc := newActivityService(repo, logs, progress)

	status := models.ActivityLogCompleted
	updated, err := svc.UpdateLog(context.Background(), carerClaims(), "l1", dto.UpdateCompletionRequest{Status: &status})
	require.NoError(t, err)
	assert.True(t, updated.Completed)
	require.Len(t, progress.calls, 1)
	assert.Equal(t, []string{"g1"}, progress.calls[0])
}

func TestUpdateLogOtherCarerForbidden(t *testing.T) {
	logs := &mockLogRepo{logs: map[string]models.ActivityLog{"l1": {ID: "l1", ActivityID: "a1", CarerID: "carer-9"}}}
	svc := newActivityService(&mockActivityRepo{}, logs, nil)

	notes := "amended"
	_, err := svc.UpdateLog(context.Background(), carerClaims(), "l1", dto.UpdateCompletionRequest{Notes: &notes})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestActivityCreateRequiresAdmin(t *testing.T) {
	svc := newActivityService(&mockActivityRepo{}, &mockLogRepo{}, nil)

	req := dto.CreateActivityRequest{
		Name:        "morning walk",
		Description: "a short walk",
		Category:    models.ActivityCategoryRecreational,
		Difficulty:  models.ActivityDifficultyEasy,
	}
	_, err := svc.Create(context.Background(), carerClaims(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	activity, err := svc.Create(context.Background(), adminClaims(), req)
	require.NoError(t, err)
	assert.True(t, activity.Active)
}

func TestActivityCreateRejectsUnknownCategory(t *testing.T) {
	svc := newActivityService(&mockActivityRepo{}, &mockLogRepo{}, nil)

	req := dto.CreateActivityRequest{
		Name:        "morning walk",
		Description: "a short walk",
		Category:    models.ActivityCategory("bogus"),
		Difficulty:  models.ActivityDifficultyEasy,
	}
	_, err := svc.Create(context.Background(), adminClaims(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestListLogsScopedToCarer(t *testing.T) {
	logs := &mockLogRepo{logs: map[string]models.ActivityLog{
		"l1": {ID: "l1", CarerID: "carer-1"},
		"l2": {ID: "l2", CarerID: "carer-9"},
	}}
	svc := newActivityService(&mockActivityRepo{}, logs, nil)

	own, total, err := svc.ListLogs(context.Background(), carerClaims(), models.ActivityLogFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, own, 1)
	assert.Equal(t, "carer-1", own[0].CarerID)

	_, total, err = svc.ListLogs(context.Background(), adminClaims(), models.ActivityLogFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}
