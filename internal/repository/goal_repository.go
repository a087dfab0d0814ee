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

// GoalRepository manages persistence for goals and their carer assignments.
type GoalRepository struct {
	db *sqlx.DB
}

// NewGoalRepository constructs a new repository.
func NewGoalRepository(db *sqlx.DB) *GoalRepository {
	return &GoalRepository{db: db}
}

const goalColumns = `id, name, description, category, target_date, status, priority, created_by, notes,
required_activities_count, completion_threshold, completed_at, created_at, updated_at`

// FindByID loads a goal with its assigned carer set.
func (r *GoalRepository) FindByID(ctx context.Context, id string) (*models.Goal, error) {
	var goal models.Goal
	query := fmt.Sprintf("SELECT %s FROM goals WHERE id = $1", goalColumns)
	if err := r.db.GetContext(ctx, &goal, query, id); err != nil {
		return nil, err
	}
	carers, err := r.AssignedCarerIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	goal.AssignedCarerIDs = carers
	return &goal, nil
}

// List returns goals matching the filter.
func (r *GoalRepository) List(ctx context.Context, filter models.GoalFilter) ([]models.Goal, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Priority != nil {
		where = append(where, fmt.Sprintf("priority = $%d", len(args)+1))
		args = append(args, *filter.Priority)
	}
	if filter.CarerID != "" {
		where = append(where, fmt.Sprintf("id IN (SELECT goal_id FROM goal_assignments WHERE carer_id = $%d)", len(args)+1))
		args = append(args, filter.CarerID)
	}
	if filter.Overdue {
		where = append(where, "status = 'active' AND target_date IS NOT NULL AND target_date < NOW()")
	}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("name ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Search+"%")
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

	query := fmt.Sprintf("SELECT %s FROM goals WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d",
		goalColumns, whereClause, size, offset)
	var goals []models.Goal
	if err := r.db.SelectContext(ctx, &goals, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list goals: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM goals WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count goals: %w", err)
	}
	return goals, total, nil
}

// Create inserts a new goal and its assignments.
func (r *GoalRepository) Create(ctx context.Context, goal *models.Goal) error {
	if goal.ID == "" {
		goal.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	goal.CreatedAt = now
	goal.UpdatedAt = now
	query := `INSERT INTO goals (id, name, description, category, target_date, status, priority, created_by, notes,
required_activities_count, completion_threshold, created_at, updated_at)
VALUES (:id, :name, :description, :category, :target_date, :status, :priority, :created_by, :notes,
:required_activities_count, :completion_threshold, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, goal); err != nil {
		return fmt.Errorf("create goal: %w", err)
	}
	return r.ReplaceAssignedCarers(ctx, goal.ID, goal.AssignedCarerIDs)
}

// Update modifies goal configuration.
func (r *GoalRepository) Update(ctx context.Context, goal *models.Goal) error {
	goal.UpdatedAt = time.Now().UTC()
	query := `UPDATE goals SET name = :name, description = :description, category = :category, target_date = :target_date,
priority = :priority, notes = :notes, required_activities_count = :required_activities_count,
completion_threshold = :completion_threshold, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, goal); err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	return r.ReplaceAssignedCarers(ctx, goal.ID, goal.AssignedCarerIDs)
}

// TransitionStatus performs a conditional status update. It returns true
// when this caller won the transition; false means the row was no longer in
// the expected source state.
func (r *GoalRepository) TransitionStatus(ctx context.Context, id string, from, to models.GoalStatus, ts time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE goals SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4", to, ts, id, from)
	if err != nil {
		return false, fmt.Errorf("transition goal status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition goal status result: %w", err)
	}
	return affected == 1, nil
}

// CompleteIfActive atomically marks an active goal completed, stamping the
// completion time with the triggering record's timestamp. Idempotent: an
// already-completed goal is left untouched and false is returned.
func (r *GoalRepository) CompleteIfActive(ctx context.Context, id string, completedAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE goals SET status = 'completed', completed_at = $1, updated_at = NOW() WHERE id = $2 AND status = 'active'",
		completedAt, id)
	if err != nil {
		return false, fmt.Errorf("complete goal: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("complete goal result: %w", err)
	}
	return affected == 1, nil
}

// ReplaceAssignedCarers rewrites the carer assignment set for a goal.
func (r *GoalRepository) ReplaceAssignedCarers(ctx context.Context, goalID string, carerIDs []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin goal assignments tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM goal_assignments WHERE goal_id = $1", goalID); err != nil {
		return fmt.Errorf("clear goal assignments: %w", err)
	}
	for _, carerID := range carerIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO goal_assignments (goal_id, carer_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
			goalID, carerID); err != nil {
			return fmt.Errorf("insert goal assignment: %w", err)
		}
	}
	return tx.Commit()
}

// AssignedCarerIDs lists carers currently assigned to the goal.
func (r *GoalRepository) AssignedCarerIDs(ctx context.Context, goalID string) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids,
		"SELECT carer_id FROM goal_assignments WHERE goal_id = $1 ORDER BY carer_id", goalID); err != nil {
		return nil, fmt.Errorf("assigned carer ids: %w", err)
	}
	return ids, nil
}

// QualifyingCompletions snapshots the completion records that feed progress
// for a goal: completed logs for linked activities by assigned carers,
// oldest first so threshold crossing can be dated to the triggering record.
func (r *GoalRepository) QualifyingCompletions(ctx context.Context, goalID string) ([]models.QualifyingCompletion, error) {
	query := `SELECT al.id AS log_id, al.activity_id, al.carer_id, al.date,
        a.goal_contribution_weight AS weight, al.updated_at AS completed_at
FROM activity_logs al
JOIN activities a ON a.id = al.activity_id
WHERE al.completed = true AND al.status = 'completed'
  AND (a.primary_goal_id = $1 OR al.activity_id IN (SELECT activity_id FROM activity_related_goals WHERE goal_id = $1))
  AND al.carer_id IN (SELECT carer_id FROM goal_assignments WHERE goal_id = $1)
ORDER BY al.date ASC, al.updated_at ASC`
	var completions []models.QualifyingCompletion
	if err := r.db.SelectContext(ctx, &completions, query, goalID); err != nil {
		return nil, fmt.Errorf("qualifying completions: %w", err)
	}
	return completions, nil
}

// Analytics aggregates the goal portfolio.
func (r *GoalRepository) Analytics(ctx context.Context) (*models.GoalAnalytics, error) {
	query := `SELECT COUNT(*) AS total,
        COALESCE(SUM(CASE WHEN status = 'active' THEN 1 ELSE 0 END), 0) AS active,
        COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0) AS completed,
        COALESCE(SUM(CASE WHEN status = 'paused' THEN 1 ELSE 0 END), 0) AS paused,
        COALESCE(SUM(CASE WHEN status = 'cancelled' THEN 1 ELSE 0 END), 0) AS cancelled,
        COALESCE(SUM(CASE WHEN status = 'active' AND target_date IS NOT NULL AND target_date < NOW() THEN 1 ELSE 0 END), 0) AS overdue
FROM goals`
	var analytics models.GoalAnalytics
	if err := r.db.QueryRowxContext(ctx, query).Scan(
		&analytics.TotalGoals, &analytics.ActiveGoals, &analytics.CompletedGoals,
		&analytics.PausedGoals, &analytics.CancelledGoals, &analytics.OverdueGoals); err != nil {
		return nil, fmt.Errorf("goal analytics: %w", err)
	}
	return &analytics, nil
}
