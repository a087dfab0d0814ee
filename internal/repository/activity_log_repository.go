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

// ActivityLogRepository manages persistence for completion records.
type ActivityLogRepository struct {
	db *sqlx.DB
}

// NewActivityLogRepository constructs a new repository.
func NewActivityLogRepository(db *sqlx.DB) *ActivityLogRepository {
	return &ActivityLogRepository{db: db}
}

const activityLogColumns = `id, activity_id, carer_id, date, scheduled_time, start_time, end_time, status, completed,
completion_notes, difficulty_rating, satisfaction_rating, media_refs, notes, created_at, updated_at`

// FindByID loads a single completion record.
func (r *ActivityLogRepository) FindByID(ctx context.Context, id string) (*models.ActivityLog, error) {
	var log models.ActivityLog
	query := fmt.Sprintf("SELECT %s FROM activity_logs WHERE id = $1", activityLogColumns)
	if err := r.db.GetContext(ctx, &log, query, id); err != nil {
		return nil, err
	}
	return &log, nil
}

// List returns completion records matching the filter.
func (r *ActivityLogRepository) List(ctx context.Context, filter models.ActivityLogFilter) ([]models.ActivityLog, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.ActivityID != "" {
		where = append(where, fmt.Sprintf("activity_id = $%d", len(args)+1))
		args = append(args, filter.ActivityID)
	}
	if filter.CarerID != "" {
		where = append(where, fmt.Sprintf("carer_id = $%d", len(args)+1))
		args = append(args, filter.CarerID)
	}
	if filter.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Completed != nil {
		where = append(where, fmt.Sprintf("completed = $%d", len(args)+1))
		args = append(args, *filter.Completed)
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

	query := fmt.Sprintf("SELECT %s FROM activity_logs WHERE %s ORDER BY date DESC, created_at DESC LIMIT %d OFFSET %d",
		activityLogColumns, whereClause, size, offset)
	var logs []models.ActivityLog
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list activity logs: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM activity_logs WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count activity logs: %w", err)
	}
	return logs, total, nil
}

// Create inserts a completion record. One record per activity, carer and
// calendar day is enforced by a unique constraint.
func (r *ActivityLogRepository) Create(ctx context.Context, log *models.ActivityLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	log.CreatedAt = now
	log.UpdatedAt = now
	query := `INSERT INTO activity_logs (id, activity_id, carer_id, date, scheduled_time, start_time, end_time, status, completed,
completion_notes, difficulty_rating, satisfaction_rating, media_refs, notes, created_at, updated_at)
VALUES (:id, :activity_id, :carer_id, :date, :scheduled_time, :start_time, :end_time, :status, :completed,
:completion_notes, :difficulty_rating, :satisfaction_rating, :media_refs, :notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create activity log: %w", err)
	}
	return nil
}

// Update modifies status, ratings and notes. Records are superseded, never deleted.
func (r *ActivityLogRepository) Update(ctx context.Context, log *models.ActivityLog) error {
	log.UpdatedAt = time.Now().UTC()
	query := `UPDATE activity_logs SET status = :status, completed = :completed, start_time = :start_time, end_time = :end_time,
completion_notes = :completion_notes, difficulty_rating = :difficulty_rating, satisfaction_rating = :satisfaction_rating,
media_refs = :media_refs, notes = :notes, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("update activity log: %w", err)
	}
	return nil
}

// ExistsForDate reports whether a record already exists for the triple.
func (r *ActivityLogRepository) ExistsForDate(ctx context.Context, activityID, carerID string, date time.Time) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM activity_logs WHERE activity_id = $1 AND carer_id = $2 AND date = $3)`
	if err := r.db.GetContext(ctx, &exists, query, activityID, carerID, date); err != nil {
		return false, fmt.Errorf("check activity log exists: %w", err)
	}
	return exists, nil
}
