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

func newShiftMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func shiftRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "carer_id", "date", "shift_type", "scheduled_start", "scheduled_end", "break_minutes",
		"clock_in", "clock_out", "clock_in_location", "clock_out_location", "early_clock_in", "status",
		"assigned_by", "client_id", "location", "notes", "actual_minutes", "performance_rating",
		"supervisor_notes", "created_at", "updated_at",
	}).AddRow("sh1", "carer-1", now, "full_day", now, now.Add(8*time.Hour), 30,
		nil, nil, nil, nil, false, "scheduled",
		nil, nil, nil, nil, nil, nil, nil, now, now)
}

func TestShiftRepositoryList(t *testing.T) {
	db, mock, cleanup := newShiftMock(t)
	defer cleanup()
	repo := NewShiftRepository(db)

	status := models.ShiftStatusScheduled
	mock.ExpectQuery("SELECT .* FROM shifts WHERE 1=1 AND carer_id = \\$1 AND status = \\$2 ORDER BY date DESC").
		WithArgs("carer-1", status).
		WillReturnRows(shiftRows())
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM shifts WHERE 1=1 AND carer_id = \\$1 AND status = \\$2").
		WithArgs("carer-1", status).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	shifts, total, err := repo.List(context.Background(), models.ShiftFilter{CarerID: "carer-1", Status: &status})
	require.NoError(t, err)
	assert.Len(t, shifts, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShiftRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newShiftMock(t)
	defer cleanup()
	repo := NewShiftRepository(db)

	mock.ExpectExec("INSERT INTO shifts").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	shift := &models.Shift{
		CarerID:        "carer-1",
		Date:           time.Now(),
		ShiftType:      models.ShiftTypeMorning,
		ScheduledStart: time.Now(),
		ScheduledEnd:   time.Now().Add(4 * time.Hour),
		Status:         models.ShiftStatusScheduled,
	}
	err := repo.Create(context.Background(), shift)
	require.NoError(t, err)
	assert.NotEmpty(t, shift.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShiftRepositoryClockInWinsWhenScheduled(t *testing.T) {
	db, mock, cleanup := newShiftMock(t)
	defer cleanup()
	repo := NewShiftRepository(db)

	ts := time.Now()
	mock.ExpectExec("UPDATE shifts SET status = 'in_progress'").
		WithArgs(ts, nil, true, "sh1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	won, err := repo.ClockIn(context.Background(), "sh1", ts, nil, true)
	require.NoError(t, err)
	assert.True(t, won)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShiftRepositoryClockInLosesWhenAlreadyTransitioned(t *testing.T) {
	db, mock, cleanup := newShiftMock(t)
	defer cleanup()
	repo := NewShiftRepository(db)

	ts := time.Now()
	mock.ExpectExec("UPDATE shifts SET status = 'in_progress'").
		WithArgs(ts, nil, false, "sh1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	won, err := repo.ClockIn(context.Background(), "sh1", ts, nil, false)
	require.NoError(t, err)
	assert.False(t, won)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShiftRepositoryClockOut(t *testing.T) {
	db, mock, cleanup := newShiftMock(t)
	defer cleanup()
	repo := NewShiftRepository(db)

	ts := time.Now()
	mock.ExpectExec("UPDATE shifts SET status = 'completed'").
		WithArgs(ts, nil, 470, "sh1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	won, err := repo.ClockOut(context.Background(), "sh1", ts, nil, 470)
	require.NoError(t, err)
	assert.True(t, won)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShiftRepositoryMarkNoShows(t *testing.T) {
	db, mock, cleanup := newShiftMock(t)
	defer cleanup()
	repo := NewShiftRepository(db)

	asOf := time.Now()
	mock.ExpectQuery("UPDATE shifts SET status = 'no_show'").
		WithArgs(asOf, "900 seconds").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("sh1").AddRow("sh2"))

	ids, err := repo.MarkNoShows(context.Background(), asOf, 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []string{"sh1", "sh2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShiftRepositorySummary(t *testing.T) {
	db, mock, cleanup := newShiftMock(t)
	defer cleanup()
	repo := NewShiftRepository(db)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) AS total").
		WithArgs("carer-1").
		WillReturnRows(sqlmock.NewRows([]string{"total", "completed", "no_shows", "total_minutes", "average_rating"}).
			AddRow(10, 8, 1, 3760, 4.2))

	summary, err := repo.Summary(context.Background(), "carer-1")
	require.NoError(t, err)
	assert.Equal(t, 10, summary.TotalShifts)
	assert.Equal(t, 8, summary.CompletedShifts)
	assert.Equal(t, 1, summary.NoShows)
	assert.Equal(t, 3760, summary.TotalMinutes)
	assert.InDelta(t, 4.2, summary.AverageRating, 0.001)
	assert.NoError(t, mock.ExpectationsWereMet())
}
