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

// ActivityRepository manages persistence for activity templates.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository constructs a new repository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

const activityColumns = `id, name, description, category, difficulty, instructions, prerequisites, estimated_duration,
primary_goal_id, goal_contribution_weight, image_url, video_url, active, created_by, created_at, updated_at`

// FindByID loads an activity template with its related goal set.
func (r *ActivityRepository) FindByID(ctx context.Context, id string) (*models.Activity, error) {
	var activity models.Activity
	query := fmt.Sprintf("SELECT %s FROM activities WHERE id = $1", activityColumns)
	if err := r.db.GetContext(ctx, &activity, query, id); err != nil {
		return nil, err
	}
	related, err := r.relatedGoalIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	activity.RelatedGoalIDs = related
	return &activity, nil
}

// List returns activity templates matching the filter.
func (r *ActivityRepository) List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.Category != nil {
		where = append(where, fmt.Sprintf("category = $%d", len(args)+1))
		args = append(args, *filter.Category)
	}
	if filter.Active != nil {
		where = append(where, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.GoalID != "" {
		where = append(where, fmt.Sprintf(
			"(primary_goal_id = $%d OR id IN (SELECT activity_id FROM activity_related_goals WHERE goal_id = $%d))",
			len(args)+1, len(args)+1))
		args = append(args, filter.GoalID)
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

	query := fmt.Sprintf("SELECT %s FROM activities WHERE %s ORDER BY name ASC LIMIT %d OFFSET %d",
		activityColumns, whereClause, size, offset)
	var activities []models.Activity
	if err := r.db.SelectContext(ctx, &activities, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list activities: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM activities WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count activities: %w", err)
	}
	return activities, total, nil
}

// Create inserts a new activity template.
func (r *ActivityRepository) Create(ctx context.Context, activity *models.Activity) error {
	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	activity.CreatedAt = now
	activity.UpdatedAt = now
	query := `INSERT INTO activities (id, name, description, category, difficulty, instructions, prerequisites, estimated_duration,
primary_goal_id, goal_contribution_weight, image_url, video_url, active, created_by, created_at, updated_at)
VALUES (:id, :name, :description, :category, :difficulty, :instructions, :prerequisites, :estimated_duration,
:primary_goal_id, :goal_contribution_weight, :image_url, :video_url, :active, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, activity); err != nil {
		return fmt.Errorf("create activity: %w", err)
	}
	return r.ReplaceRelatedGoals(ctx, activity.ID, activity.RelatedGoalIDs)
}

// Update modifies an activity template.
func (r *ActivityRepository) Update(ctx context.Context, activity *models.Activity) error {
	activity.UpdatedAt = time.Now().UTC()
	query := `UPDATE activities SET name = :name, description = :description, category = :category, difficulty = :difficulty,
instructions = :instructions, prerequisites = :prerequisites, estimated_duration = :estimated_duration,
primary_goal_id = :primary_goal_id, goal_contribution_weight = :goal_contribution_weight,
image_url = :image_url, video_url = :video_url, active = :active, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, activity); err != nil {
		return fmt.Errorf("update activity: %w", err)
	}
	return r.ReplaceRelatedGoals(ctx, activity.ID, activity.RelatedGoalIDs)
}

// Deactivate soft-deletes the template; referenced templates are never removed.
func (r *ActivityRepository) Deactivate(ctx context.Context, id string, ts time.Time) error {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE activities SET active = false, updated_at = $1 WHERE id = $2", ts, id); err != nil {
		return fmt.Errorf("deactivate activity: %w", err)
	}
	return nil
}

// ReplaceRelatedGoals rewrites the related-goal set for an activity.
func (r *ActivityRepository) ReplaceRelatedGoals(ctx context.Context, activityID string, goalIDs []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin related goals tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM activity_related_goals WHERE activity_id = $1", activityID); err != nil {
		return fmt.Errorf("clear related goals: %w", err)
	}
	for _, goalID := range goalIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO activity_related_goals (activity_id, goal_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
			activityID, goalID); err != nil {
			return fmt.Errorf("insert related goal: %w", err)
		}
	}
	return tx.Commit()
}

// Stats summarises completion history for a template.
func (r *ActivityRepository) Stats(ctx context.Context, activityID string) (*models.ActivityStats, error) {
	query := `SELECT COUNT(*) AS total,
        COALESCE(SUM(CASE WHEN completed THEN 1 ELSE 0 END), 0) AS completed
FROM activity_logs WHERE activity_id = $1`
	var total, completed int
	if err := r.db.QueryRowxContext(ctx, query, activityID).Scan(&total, &completed); err != nil {
		return nil, fmt.Errorf("activity stats: %w", err)
	}
	stats := &models.ActivityStats{ActivityID: activityID, TotalLogs: total, CompletedLogs: completed}
	if total > 0 {
		stats.CompletionRate = float64(completed) / float64(total) * 100
	}
	return stats, nil
}

func (r *ActivityRepository) relatedGoalIDs(ctx context.Context, activityID string) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids,
		"SELECT goal_id FROM activity_related_goals WHERE activity_id = $1 ORDER BY goal_id", activityID); err != nil {
		return nil, fmt.Errorf("related goal ids: %w", err)
	}
	return ids, nil
}
