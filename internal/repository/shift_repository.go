package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/carebridge/carebridge-api/internal/models"
)

// ShiftRepository manages persistence for shifts. Every lifecycle mutation
// goes through a conditional update keyed on the current status so that
// concurrent transitions resolve to exactly one winner.
type ShiftRepository struct {
	db *sqlx.DB
}

// NewShiftRepository constructs a new repository.
func NewShiftRepository(db *sqlx.DB) *ShiftRepository {
	return &ShiftRepository{db: db}
}

const shiftColumns = `id, carer_id, date, shift_type, scheduled_start, scheduled_end, break_minutes, clock_in, clock_out,
clock_in_location, clock_out_location, early_clock_in, status, assigned_by, client_id, location, notes,
actual_minutes, performance_rating, supervisor_notes, created_at, updated_at`

// FindByID loads a single shift.
func (r *ShiftRepository) FindByID(ctx context.Context, id string) (*models.Shift, error) {
	var shift models.Shift
	query := fmt.Sprintf("SELECT %s FROM shifts WHERE id = $1", shiftColumns)
	if err := r.db.GetContext(ctx, &shift, query, id); err != nil {
		return nil, err
	}
	return &shift, nil
}

// List returns shifts matching the filter.
func (r *ShiftRepository) List(ctx context.Context, filter models.ShiftFilter) ([]models.Shift, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.CarerID != "" {
		where = append(where, fmt.Sprintf("carer_id = $%d", len(args)+1))
		args = append(args, filter.CarerID)
	}
	if filter.ClientID != "" {
		where = append(where, fmt.Sprintf("client_id = $%d", len(args)+1))
		args = append(args, filter.ClientID)
	}
	if filter.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM shifts WHERE %s ORDER BY date DESC, scheduled_start ASC LIMIT %d OFFSET %d",
		shiftColumns, whereClause, size, offset)
	var shifts []models.Shift
	if err := r.db.SelectContext(ctx, &shifts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list shifts: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM shifts WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count shifts: %w", err)
	}
	return shifts, total, nil
}

// Create inserts a new shift.
func (r *ShiftRepository) Create(ctx context.Context, shift *models.Shift) error {
	if shift.ID == "" {
		shift.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	shift.CreatedAt = now
	shift.UpdatedAt = now
	query := `INSERT INTO shifts (id, carer_id, date, shift_type, scheduled_start, scheduled_end, break_minutes, status,
assigned_by, client_id, location, notes, early_clock_in, created_at, updated_at)
VALUES (:id, :carer_id, :date, :shift_type, :scheduled_start, :scheduled_end, :break_minutes, :status,
:assigned_by, :client_id, :location, :notes, :early_clock_in, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, shift); err != nil {
		return fmt.Errorf("create shift: %w", err)
	}
	return nil
}

// UpdateSchedule modifies roster fields while the shift is still scheduled.
func (r *ShiftRepository) UpdateSchedule(ctx context.Context, shift *models.Shift) error {
	shift.UpdatedAt = time.Now().UTC()
	query := `UPDATE shifts SET date = :date, shift_type = :shift_type, scheduled_start = :scheduled_start,
scheduled_end = :scheduled_end, break_minutes = :break_minutes, client_id = :client_id, location = :location,
notes = :notes, updated_at = :updated_at
WHERE id = :id AND status = 'scheduled'`
	if _, err := r.db.NamedExecContext(ctx, query, shift); err != nil {
		return fmt.Errorf("update shift schedule: %w", err)
	}
	return nil
}

// ClockIn records the clock-in and transitions scheduled -> in_progress.
// Returns false when the shift was not in the scheduled state, i.e. a
// concurrent transition already won.
func (r *ShiftRepository) ClockIn(ctx context.Context, id string, ts time.Time, location *string, early bool) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE shifts SET status = 'in_progress', clock_in = $1, clock_in_location = $2, early_clock_in = $3, updated_at = NOW()
WHERE id = $4 AND status = 'scheduled'`, ts, location, early, id)
	if err != nil {
		return false, fmt.Errorf("clock in: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("clock in result: %w", err)
	}
	return affected == 1, nil
}

// ClockOut records the clock-out, derived duration and transitions
// in_progress -> completed under the same conditional-update discipline.
func (r *ShiftRepository) ClockOut(ctx context.Context, id string, ts time.Time, location *string, actualMinutes int) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE shifts SET status = 'completed', clock_out = $1, clock_out_location = $2, actual_minutes = $3, updated_at = NOW()
WHERE id = $4 AND status = 'in_progress'`, ts, location, actualMinutes, id)
	if err != nil {
		return false, fmt.Errorf("clock out: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("clock out result: %w", err)
	}
	return affected == 1, nil
}

// Cancel transitions scheduled -> cancelled.
func (r *ShiftRepository) Cancel(ctx context.Context, id string, ts time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE shifts SET status = 'cancelled', updated_at = $1 WHERE id = $2 AND status = 'scheduled'", ts, id)
	if err != nil {
		return false, fmt.Errorf("cancel shift: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("cancel shift result: %w", err)
	}
	return affected == 1, nil
}

// MarkNoShows sweeps shifts still scheduled past their start plus the grace
// period and transitions them to no_show, returning the affected ids.
func (r *ShiftRepository) MarkNoShows(ctx context.Context, asOf time.Time, grace time.Duration) ([]string, error) {
	query := `UPDATE shifts SET status = 'no_show', updated_at = $1
WHERE status = 'scheduled' AND scheduled_start + $2::interval < $1
RETURNING id`
	interval := fmt.Sprintf("%d seconds", int(grace.Seconds()))
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, asOf, interval); err != nil {
		return nil, fmt.Errorf("mark no shows: %w", err)
	}
	return ids, nil
}

// SetSupervisorReview updates rating and notes after completion.
func (r *ShiftRepository) SetSupervisorReview(ctx context.Context, id string, rating *int, notes *string, ts time.Time) error {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE shifts SET performance_rating = $1, supervisor_notes = $2, updated_at = $3 WHERE id = $4",
		rating, notes, ts, id); err != nil {
		return fmt.Errorf("set supervisor review: %w", err)
	}
	return nil
}

// Summary aggregates a carer's worked shifts.
func (r *ShiftRepository) Summary(ctx context.Context, carerID string) (*models.ShiftSummary, error) {
	query := `SELECT COUNT(*) AS total,
        COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0) AS completed,
        COALESCE(SUM(CASE WHEN status = 'no_show' THEN 1 ELSE 0 END), 0) AS no_shows,
        COALESCE(SUM(COALESCE(actual_minutes, 0)), 0) AS total_minutes,
        COALESCE(AVG(performance_rating), 0) AS average_rating
FROM shifts WHERE carer_id = $1`
	summary := &models.ShiftSummary{CarerID: carerID}
	if err := r.db.QueryRowxContext(ctx, query, carerID).Scan(
		&summary.TotalShifts, &summary.CompletedShifts, &summary.NoShows,
		&summary.TotalMinutes, &summary.AverageRating); err != nil {
		return nil, fmt.Errorf("shift summary: %w", err)
	}
	return summary, nil
}
