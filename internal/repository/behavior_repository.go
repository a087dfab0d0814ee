package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/carebridge/carebridge-api/internal/models"
)

// BehaviorRepository manages persistence for behavior incidents.
type BehaviorRepository struct {
	db *sqlx.DB
}

// NewBehaviorRepository constructs a new repository.
func NewBehaviorRepository(db *sqlx.DB) *BehaviorRepository {
	return &BehaviorRepository{db: db}
}

const incidentColumns = `id, carer_id, client_id, occurred_at, location, specific_location, activity_id, activity_log_id,
occurrence, behavior_type, behaviors, warning_signs, duration_minutes, severity, harm_to_self, harm_to_others,
property_damage, damage_description, intervention_used, intervention_effective, intervention_notes,
follow_up_required, follow_up_notes, media_refs, notes, reviewed_by, reviewed_at, created_at, updated_at`

// FindByID loads a single incident.
func (r *BehaviorRepository) FindByID(ctx context.Context, id string) (*models.BehaviorIncident, error) {
	var incident models.BehaviorIncident
	query := fmt.Sprintf("SELECT %s FROM behavior_incidents WHERE id = $1", incidentColumns)
	if err := r.db.GetContext(ctx, &incident, query, id); err != nil {
		return nil, err
	}
	return &incident, nil
}

// List returns incidents matching the filter.
func (r *BehaviorRepository) List(ctx context.Context, filter models.IncidentFilter) ([]models.BehaviorIncident, int, error) {
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
	if filter.ActivityID != "" {
		where = append(where, fmt.Sprintf("activity_id = $%d", len(args)+1))
		args = append(args, filter.ActivityID)
	}
	if len(filter.Severities) > 0 {
		values := make([]string, len(filter.Severities))
		for i, s := range filter.Severities {
			values[i] = string(s)
		}
		where = append(where, fmt.Sprintf("severity = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(values))
	}
	if filter.Critical {
		where = append(where, "(severity = 'critical' OR harm_to_self OR harm_to_others)")
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("occurred_at >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("occurred_at <= $%d", len(args)+1))
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

	query := fmt.Sprintf("SELECT %s FROM behavior_incidents WHERE %s ORDER BY occurred_at DESC LIMIT %d OFFSET %d",
		incidentColumns, whereClause, size, offset)
	var incidents []models.BehaviorIncident
	if err := r.db.SelectContext(ctx, &incidents, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list incidents: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM behavior_incidents WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count incidents: %w", err)
	}
	return incidents, total, nil
}

// Create inserts a new incident.
func (r *BehaviorRepository) Create(ctx context.Context, incident *models.BehaviorIncident) error {
	if incident.ID == "" {
		incident.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	incident.CreatedAt = now
	incident.UpdatedAt = now
	query := `INSERT INTO behavior_incidents (id, carer_id, client_id, occurred_at, location, specific_location, activity_id, activity_log_id,
occurrence, behavior_type, behaviors, warning_signs, duration_minutes, severity, harm_to_self, harm_to_others,
property_damage, damage_description, intervention_used, intervention_effective, intervention_notes,
follow_up_required, follow_up_notes, media_refs, notes, created_at, updated_at)
VALUES (:id, :carer_id, :client_id, :occurred_at, :location, :specific_location, :activity_id, :activity_log_id,
:occurrence, :behavior_type, :behaviors, :warning_signs, :duration_minutes, :severity, :harm_to_self, :harm_to_others,
:property_damage, :damage_description, :intervention_used, :intervention_effective, :intervention_notes,
:follow_up_required, :follow_up_notes, :media_refs, :notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, incident); err != nil {
		return fmt.Errorf("create incident: %w", err)
	}
	return nil
}

// Update modifies an existing incident.
func (r *BehaviorRepository) Update(ctx context.Context, incident *models.BehaviorIncident) error {
	incident.UpdatedAt = time.Now().UTC()
	query := `UPDATE behavior_incidents SET occurred_at = :occurred_at, location = :location, specific_location = :specific_location,
activity_id = :activity_id, activity_log_id = :activity_log_id, occurrence = :occurrence, behavior_type = :behavior_type,
behaviors = :behaviors, warning_signs = :warning_signs, duration_minutes = :duration_minutes, severity = :severity,
harm_to_self = :harm_to_self, harm_to_others = :harm_to_others, property_damage = :property_damage,
damage_description = :damage_description, intervention_used = :intervention_used,
intervention_effective = :intervention_effective, intervention_notes = :intervention_notes,
follow_up_required = :follow_up_required, follow_up_notes = :follow_up_notes, media_refs = :media_refs,
notes = :notes, reviewed_by = :reviewed_by, reviewed_at = :reviewed_at, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, incident); err != nil {
		return fmt.Errorf("update incident: %w", err)
	}
	return nil
}

// CountsForActivity returns incident totals for one activity, optionally
// restricted to incidents at or after since.
func (r *BehaviorRepository) CountsForActivity(ctx context.Context, activityID string, since *time.Time) (*models.IncidentCounts, error) {
	query := `SELECT COUNT(*) AS total,
        COALESCE(SUM(CASE WHEN severity = 'critical' THEN 1 ELSE 0 END), 0) AS critical
FROM behavior_incidents WHERE activity_id = $1`
	args := []interface{}{activityID}
	if since != nil {
		query += " AND occurred_at >= $2"
		args = append(args, *since)
	}
	var counts models.IncidentCounts
	if err := r.db.GetContext(ctx, &counts, query, args...); err != nil {
		return nil, fmt.Errorf("incident counts: %w", err)
	}
	return &counts, nil
}

// RiskAggregates assembles the per-activity analytics view, minus the risk
// classification itself which is derived in the service layer.
func (r *BehaviorRepository) RiskAggregates(ctx context.Context, activityID string, since *time.Time) (*models.ActivityRiskSummary, error) {
	counts, err := r.CountsForActivity(ctx, activityID, since)
	if err != nil {
		return nil, err
	}
	summary := &models.ActivityRiskSummary{
		ActivityID:        activityID,
		TotalIncidents:    counts.Total,
		CriticalIncidents: counts.Critical,
	}
	if counts.Total == 0 {
		return summary, nil
	}

	windowClause := ""
	args := []interface{}{activityID}
	if since != nil {
		windowClause = " AND occurred_at >= $2"
		args = append(args, *since)
	}

	var behavior sql.NullString
	if err := r.db.GetContext(ctx, &behavior, fmt.Sprintf(
		`SELECT behavior_type FROM behavior_incidents WHERE activity_id = $1%s GROUP BY behavior_type ORDER BY COUNT(*) DESC LIMIT 1`,
		windowClause), args...); err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("most common behavior: %w", err)
	}
	if behavior.Valid {
		summary.MostCommonBehavior = &behavior.String
	}

	var occurrence sql.NullString
	if err := r.db.GetContext(ctx, &occurrence, fmt.Sprintf(
		`SELECT occurrence FROM behavior_incidents WHERE activity_id = $1%s GROUP BY occurrence ORDER BY COUNT(*) DESC LIMIT 1`,
		windowClause), args...); err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("most common occurrence: %w", err)
	}
	if occurrence.Valid {
		summary.MostCommonOccurrence = &occurrence.String
	}

	var withIntervention, effective int
	if err := r.db.QueryRowxContext(ctx, fmt.Sprintf(
		`SELECT COALESCE(SUM(CASE WHEN intervention_effective IS NOT NULL THEN 1 ELSE 0 END), 0),
        COALESCE(SUM(CASE WHEN intervention_effective = true THEN 1 ELSE 0 END), 0)
FROM behavior_incidents WHERE activity_id = $1%s`, windowClause), args...).Scan(&withIntervention, &effective); err != nil {
		return nil, fmt.Errorf("intervention effectiveness: %w", err)
	}
	if withIntervention > 0 {
		summary.InterventionSuccessRate = float64(effective) / float64(withIntervention) * 100
	}

	breakdown := make(map[string]int)
	rows, err := r.db.QueryxContext(ctx, fmt.Sprintf(
		`SELECT severity, COUNT(*) FROM behavior_incidents WHERE activity_id = $1%s GROUP BY severity`,
		windowClause), args...)
	if err != nil {
		return nil, fmt.Errorf("severity breakdown: %w", err)
	}
	defer rows.Close() //nolint:errcheck
	for rows.Next() {
		var severity string
		var count int
		if err := rows.Scan(&severity, &count); err != nil {
			return nil, fmt.Errorf("scan severity breakdown: %w", err)
		}
		breakdown[severity] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("severity breakdown rows: %w", err)
	}
	summary.SeverityBreakdown = breakdown
	return summary, nil
}
