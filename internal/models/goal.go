package models

import "time"

// GoalStatus enumerates goal lifecycle states.
type GoalStatus string

const (
	GoalStatusActive    GoalStatus = "active"
	GoalStatusCompleted GoalStatus = "completed"
	GoalStatusPaused    GoalStatus = "paused"
	GoalStatusCancelled GoalStatus = "cancelled"
)

// Valid returns true when the status is a supported value.
func (s GoalStatus) Valid() bool {
	switch s {
	case GoalStatusActive, GoalStatusCompleted, GoalStatusPaused, GoalStatusCancelled:
		return true
	default:
		return false
	}
}

// goalTransitions is the table of legal status edges. Completed, cancelled
// goals stay closed; paused goals can only resume.
var goalTransitions = map[GoalStatus][]GoalStatus{
	GoalStatusActive: {GoalStatusCompleted, GoalStatusPaused, GoalStatusCancelled},
	GoalStatusPaused: {GoalStatusActive},
}

// CanTransition reports whether moving from s to target is a legal edge.
func (s GoalStatus) CanTransition(target GoalStatus) bool {
	for _, allowed := range goalTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// GoalPriority ranks goal urgency.
type GoalPriority string

const (
	GoalPriorityLow    GoalPriority = "low"
	GoalPriorityMedium GoalPriority = "medium"
	GoalPriorityHigh   GoalPriority = "high"
	GoalPriorityUrgent GoalPriority = "urgent"
)

// Valid returns true when the priority is a supported value.
func (p GoalPriority) Valid() bool {
	switch p {
	case GoalPriorityLow, GoalPriorityMedium, GoalPriorityHigh, GoalPriorityUrgent:
		return true
	default:
		return false
	}
}

// Goal is a care goal tracked through weighted activity completions.
// Progress percentage is always derived from completion records, never
// stored as ground truth.
type Goal struct {
	ID                      string       `db:"id" json:"id"`
	Name                    string       `db:"name" json:"name"`
	Description             string       `db:"description" json:"description"`
	Category                *string      `db:"category" json:"category,omitempty"`
	TargetDate              *time.Time   `db:"target_date" json:"target_date,omitempty"`
	Status                  GoalStatus   `db:"status" json:"status"`
	Priority                GoalPriority `db:"priority" json:"priority"`
	CreatedBy               string       `db:"created_by" json:"created_by"`
	Notes                   *string      `db:"notes" json:"notes,omitempty"`
	RequiredActivitiesCount int          `db:"required_activities_count" json:"required_activities_count"`
	CompletionThreshold     int          `db:"completion_threshold" json:"completion_threshold"`
	CompletedAt             *time.Time   `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt               time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt               time.Time    `db:"updated_at" json:"updated_at"`

	// AssignedCarerIDs is loaded from the goal_assignments join table.
	AssignedCarerIDs []string `db:"-" json:"assigned_carer_ids"`
}

// IsOverdue reports whether an active goal has passed its target date.
func (g *Goal) IsOverdue(now time.Time) bool {
	return g.Status == GoalStatusActive && g.TargetDate != nil && g.TargetDate.Before(now)
}

// GoalProgress is the derived view returned by progress computation.
type GoalProgress struct {
	GoalID         string `json:"goal_id"`
	Percentage     int    `json:"percentage"`
	CompletedCount int    `json:"completed_count"`
	TotalRequired  int    `json:"total_required"`
}

// GoalFilter scopes goal listings.
type GoalFilter struct {
	Status    *GoalStatus
	Priority  *GoalPriority
	CarerID   string
	Overdue   bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// QualifyingCompletion is one completion record feeding goal progress:
// a completed log for a linked activity by an assigned carer.
type QualifyingCompletion struct {
	LogID       string    `db:"log_id" json:"log_id"`
	ActivityID  string    `db:"activity_id" json:"activity_id"`
	CarerID     string    `db:"carer_id" json:"carer_id"`
	Date        time.Time `db:"date" json:"date"`
	Weight      int       `db:"weight" json:"weight"`
	CompletedAt time.Time `db:"completed_at" json:"completed_at"`
}

// GoalAnalytics summarises the goal portfolio for dashboards.
type GoalAnalytics struct {
	TotalGoals      int     `json:"total_goals"`
	ActiveGoals     int     `json:"active_goals"`
	CompletedGoals  int     `json:"completed_goals"`
	PausedGoals     int     `json:"paused_goals"`
	CancelledGoals  int     `json:"cancelled_goals"`
	OverdueGoals    int     `json:"overdue_goals"`
	AverageProgress float64 `json:"average_progress"`
}
