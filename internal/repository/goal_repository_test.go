package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/carebridge-api/internal/models"
)

func newGoalMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func goalRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "name", "description", "category", "target_date", "status", "priority", "created_by",
		"notes", "required_activities_count", "completion_threshold", "completed_at", "created_at", "updated_at",
	}).AddRow("g1", "Independent dressing", "Dress without prompts", "daily_living", nil, "active", "high",
		"admin-1", nil, 5, 100, nil, now, now)
}

func TestGoalRepositoryFindByIDLoadsAssignments(t *testing.T) {
	db, mock, cleanup := newGoalMock(t)
	defer cleanup()
	repo := NewGoalRepository(db)

	mock.ExpectQuery("SELECT .* FROM goals WHERE id = \\$1").
		WithArgs("g1").
		WillReturnRows(goalRows())
	mock.ExpectQuery("SELECT carer_id FROM goal_assignments WHERE goal_id = \\$1").
		WithArgs("g1").
		WillReturnRows(sqlmock.NewRows([]string{"carer_id"}).AddRow("carer-1").AddRow("carer-2"))

	goal, err := repo.FindByID(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, "g1", goal.ID)
	assert.Equal(t, []string{"carer-1", "carer-2"}, goal.AssignedCarerIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGoalRepositoryListFiltersByCarer(t *testing.T) {
	db, mock, cleanup := newGoalMock(t)
	defer cleanup()
	repo := NewGoalRepository(db)

	mock.ExpectQuery("SELECT .* FROM goals WHERE 1=1 AND id IN \\(SELECT goal_id FROM goal_assignments WHERE carer_id = \\$1\\)").
		WithArgs("carer-1").
		WillReturnRows(goalRows())
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM goals WHERE 1=1 AND id IN").
		WithArgs("carer-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	goals, total, err := repo.List(context.Background(), models.GoalFilter{CarerID: "carer-1"})
	require.NoError(t, err)
	assert.Len(t, goals, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGoalRepositoryCreateWritesAssignments(t *testing.T) {
	db, mock, cleanup := newGoalMock(t)
	defer cleanup()
	repo := NewGoalRepository(db)

	mock.ExpectExec("INSERT INTO goals").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM goal_assignments WHERE goal_id = \\$1").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO goal_assignments").
		WithArgs(sqlmock.AnyArg(), "carer-1").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	goal := &models.Goal{
		Name:             "Independent dressing",
		Description:      "Dress without prompts",
		Status:           models.GoalStatusActive,
		Priority:         models.GoalPriorityHigh,
		CreatedBy:        "admin-1",
		AssignedCarerIDs: []string{"carer-1"},
	}
	err := repo.Create(context.Background(), goal)
	require.NoError(t, err)
	assert.NotEmpty(t, goal.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGoalRepositoryTransitionStatusLoses(t *testing.T) {
	db, mock, cleanup := newGoalMock(t)
	defer cleanup()
	repo := NewGoalRepository(db)

	ts := time.Now()
	mock.ExpectExec("UPDATE goals SET status = \\$1").
		WithArgs(models.GoalStatusPaused, ts, "g1", models.GoalStatusActive).
		WillReturnResult(sqlmock.NewResult(0, 0))

	won, err := repo.TransitionStatus(context.Background(), "g1", models.GoalStatusActive, models.GoalStatusPaused, ts)
	require.NoError(t, err)
	assert.False(t, won)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGoalRepositoryCompleteIfActiveIdempotent(t *testing.T) {
	db, mock, cleanup := newGoalMock(t)
	defer cleanup()
	repo := NewGoalRepository(db)

	completedAt := time.Now()
	mock.ExpectExec("UPDATE goals SET status = 'completed'").
		WithArgs(completedAt, "g1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE goals SET status = 'completed'").
		WithArgs(completedAt, "g1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	won, err := repo.CompleteIfActive(context.Background(), "g1", completedAt)
	require.NoError(t, err)
	assert.True(t, won)

	won, err = repo.CompleteIfActive(context.Background(), "g1", completedAt)
	require.NoError(t, err)
	assert.False(t, won)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGoalRepositoryQualifyingCompletions(t *testing.T) {
	db, mock, cleanup := newGoalMock(t)
	defer cleanup()
	repo := NewGoalRepository(db)

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT al.id AS log_id, al.activity_id").
		WithArgs("g1").
		WillReturnRows(sqlmock.NewRows([]string{"log_id", "activity_id", "carer_id", "date", "weight", "completed_at"}).
			AddRow("l1", "a1", "carer-1", day, 100, day.Add(10*time.Hour)).
			AddRow("l2", "a1", "carer-1", day.AddDate(0, 0, 1), 100, day.Add(34*time.Hour)))

	completions, err := repo.QualifyingCompletions(context.Background(), "g1")
	require.NoError(t, err)
	require.Len(t, completions, 2)
	assert.Equal(t, "a1", completions[0].ActivityID)
	assert.Equal(t, 100, completions[0].Weight)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGoalRepositoryAnalytics(t *testing.T) {
	db, mock, cleanup := newGoalMock(t)
	defer cleanup()
	repo := NewGoalRepository(db)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) AS total").
		WillReturnRows(sqlmock.NewRows([]string{"total", "active", "completed", "paused", "cancelled", "overdue"}).
			AddRow(12, 6, 4, 1, 1, 2))

	analytics, err := repo.Analytics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, analytics.TotalGoals)
	assert.Equal(t, 6, analytics.ActiveGoals)
	assert.Equal(t, 2, analytics.OverdueGoals)
	assert.NoError(t, mock.ExpectationsWereMet())
}
