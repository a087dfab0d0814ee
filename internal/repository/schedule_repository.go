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

// ScheduleRepository manages persistence for planned activity slots and
// their recorded conflicts. Lifecycle transitions follow the same
// conditional-update discipline as shifts.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs a new repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const scheduleColumns = `id, activity_id, carer_id, created_by, scheduled_at, estimated_minutes, status, priority,
location, notes, preparation_notes, completion_notes, rescheduled_from, started_at, completed_at, created_at, updated_at`

// FindByID loads a single schedule.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	var schedule models.Schedule
	query := fmt.Sprintf("SELECT %s FROM schedules WHERE id = $1", scheduleColumns)
	if err := r.db.GetContext(ctx, &schedule, query, id); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// List returns schedules matching the filter.
func (r *ScheduleRepository) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.CarerID != "" {
		where = append(where, fmt.Sprintf("carer_id = $%d", len(args)+1))
		args = append(args, filter.CarerID)
	}
	if filter.ActivityID != "" {
		where = append(where, fmt.Sprintf("activity_id = $%d", len(args)+1))
		args = append(args, filter.ActivityID)
	}
	if filter.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("scheduled_at >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("scheduled_at <= $%d", len(args)+1))
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

	query := fmt.Sprintf("SELECT %s FROM schedules WHERE %s ORDER BY scheduled_at ASC LIMIT %d OFFSET %d",
		scheduleColumns, whereClause, size, offset)
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedules: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM schedules WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count schedules: %w", err)
	}
	return schedules, total, nil
}

// Create inserts a new schedule.
func (r *ScheduleRepository) Create(ctx context.Context, schedule *models.Schedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	schedule.CreatedAt = now
	schedule.UpdatedAt = now
	query := `INSERT INTO schedules (id, activity_id, carer_id, created_by, scheduled_at, estimated_minutes, status, priority,
location, notes, preparation_notes, rescheduled_from, created_at, updated_at)
VALUES (:id, :activity_id, :carer_id, :created_by, :scheduled_at, :estimated_minutes, :status, :priority,
:location, :notes, :preparation_notes, :rescheduled_from, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	return nil
}

// UpdateDetails modifies planning fields while the slot is still scheduled.
func (r *ScheduleRepository) UpdateDetails(ctx context.Context, schedule *models.Schedule) error {
	schedule.UpdatedAt = time.Now().UTC()
	query := `UPDATE schedules SET scheduled_at = :scheduled_at, estimated_minutes = :estimated_minutes,
priority = :priority, location = :location, notes = :notes, preparation_notes = :preparation_notes,
updated_at = :updated_at
WHERE id = :id AND status = 'scheduled'`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	return nil
}

// Transition moves a schedule from one status to another, stamping the
// relevant timestamp. Returns false when the slot was no longer in the
// expected source status.
func (r *ScheduleRepository) Transition(ctx context.Context, id string, from, to models.ScheduleStatus, ts time.Time) (bool, error) {
	var set string
	switch to {
	case models.ScheduleStatusInProgress:
		set = "status = $1, started_at = $2, updated_at = $2"
	case models.ScheduleStatusCompleted:
		set = "status = $1, completed_at = $2, updated_at = $2"
	default:
		set = "status = $1, updated_at = $2"
	}
	query := fmt.Sprintf("UPDATE schedules SET %s WHERE id = $3 AND status = $4", set)
	res, err := r.db.ExecContext(ctx, query, to, ts, id, from)
	if err != nil {
		return false, fmt.Errorf("transition schedule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition schedule result: %w", err)
	}
	return affected == 1, nil
}

// SetCompletionNotes records post-completion notes.
func (r *ScheduleRepository) SetCompletionNotes(ctx context.Context, id string, notes *string, ts time.Time) error {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE schedules SET completion_notes = $1, updated_at = $2 WHERE id = $3", notes, ts, id); err != nil {
		return fmt.Errorf("set completion notes: %w", err)
	}
	return nil
}

// Overlapping returns still-scheduled slots for the carer whose planned
// window intersects [from, to), excluding the given schedule id. A slot
// with no estimated duration counts as the default length.
func (r *ScheduleRepository) Overlapping(ctx context.Context, carerID string, from, to time.Time, excludeID string) ([]models.Schedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedules
WHERE carer_id = $1 AND status = 'scheduled' AND id <> $2
  AND scheduled_at < $3
  AND scheduled_at + make_interval(mins => COALESCE(estimated_minutes, %d)) > $4
ORDER BY scheduled_at ASC`, scheduleColumns, models.DefaultScheduleMinutes)
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, carerID, excludeID, to, from); err != nil {
		return nil, fmt.Errorf("find overlapping schedules: %w", err)
	}
	return schedules, nil
}

// CreateConflict records a detected collision.
func (r *ScheduleRepository) CreateConflict(ctx context.Context, conflict *models.ScheduleConflict) error {
	if conflict.ID == "" {
		conflict.ID = uuid.NewString()
	}
	conflict.CreatedAt = time.Now().UTC()
	query := `INSERT INTO schedule_conflicts (id, schedule_id, conflicting_id, conflict_type, resolved, created_at)
VALUES (:id, :schedule_id, :conflicting_id, :conflict_type, :resolved, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, conflict); err != nil {
		return fmt.Errorf("create schedule conflict: %w", err)
	}
	return nil
}

// ListConflicts returns recorded conflicts, optionally filtered by
// resolution state.
func (r *ScheduleRepository) ListConflicts(ctx context.Context, resolved *bool) ([]models.ScheduleConflict, error) {
	query := `SELECT id, schedule_id, conflicting_id, conflict_type, resolved, resolution_notes, created_at, resolved_at
FROM schedule_conflicts`
	args := []interface{}{}
	if resolved != nil {
		query += " WHERE resolved = $1"
		args = append(args, *resolved)
	}
	query += " ORDER BY created_at DESC"
	var conflicts []models.ScheduleConflict
	if err := r.db.SelectContext(ctx, &conflicts, query, args...); err != nil {
		return nil, fmt.Errorf("list schedule conflicts: %w", err)
	}
	return conflicts, nil
}

// ResolveConflict marks a conflict resolved. Returns false when it was
// already resolved.
func (r *ScheduleRepository) ResolveConflict(ctx context.Context, id string, notes *string, ts time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE schedule_conflicts SET resolved = TRUE, resolution_notes = $1, resolved_at = $2 WHERE id = $3 AND resolved = FALSE",
		notes, ts, id)
	if err != nil {
		return false, fmt.Errorf("resolve schedule conflict: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("resolve schedule conflict result: %w", err)
	}
	return affected == 1, nil
}
