package models

import (
	"time"

	"github.com/lib/pq"
)

// ActivityCategory classifies reusable activity templates.
type ActivityCategory string

const (
	ActivityCategoryDailyLiving  ActivityCategory = "daily_living"
	ActivityCategorySocial       ActivityCategory = "social"
	ActivityCategoryEducational  ActivityCategory = "educational"
	ActivityCategoryRecreational ActivityCategory = "recreational"
	ActivityCategoryTherapeutic  ActivityCategory = "therapeutic"
	ActivityCategoryOther        ActivityCategory = "other"
)

// Valid returns true when the category is a supported value.
func (c ActivityCategory) Valid() bool {
	switch c {
	case ActivityCategoryDailyLiving, ActivityCategorySocial, ActivityCategoryEducational,
		ActivityCategoryRecreational, ActivityCategoryTherapeutic, ActivityCategoryOther:
		return true
	default:
		return false
	}
}

// ActivityDifficulty grades how demanding an activity is.
type ActivityDifficulty string

const (
	ActivityDifficultyEasy   ActivityDifficulty = "easy"
	ActivityDifficultyMedium ActivityDifficulty = "medium"
	ActivityDifficultyHard   ActivityDifficulty = "hard"
)

// Valid returns true when the difficulty is a supported value.
func (d ActivityDifficulty) Valid() bool {
	switch d {
	case ActivityDifficultyEasy, ActivityDifficultyMedium, ActivityDifficultyHard:
		return true
	default:
		return false
	}
}

// Activity is a reusable care activity template. Templates referenced by
// completion records are never hard-deleted, only deactivated.
type Activity struct {
	ID                     string             `db:"id" json:"id"`
	Name                   string             `db:"name" json:"name"`
	Description            string             `db:"description" json:"description"`
	Category               ActivityCategory   `db:"category" json:"category"`
	Difficulty             ActivityDifficulty `db:"difficulty" json:"difficulty"`
	Instructions           string             `db:"instructions" json:"instructions"`
	Prerequisites          *string            `db:"prerequisites" json:"prerequisites,omitempty"`
	EstimatedDuration      *int               `db:"estimated_duration" json:"estimated_duration,omitempty"`
	PrimaryGoalID          *string            `db:"primary_goal_id" json:"primary_goal_id,omitempty"`
	GoalContributionWeight int                `db:"goal_contribution_weight" json:"goal_contribution_weight"`
	ImageURL               *string            `db:"image_url" json:"image_url,omitempty"`
	VideoURL               *string            `db:"video_url" json:"video_url,omitempty"`
	Active                 bool               `db:"active" json:"active"`
	CreatedBy              string             `db:"created_by" json:"created_by"`
	CreatedAt              time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time          `db:"updated_at" json:"updated_at"`

	// RelatedGoalIDs is loaded from the activity_related_goals join table.
	RelatedGoalIDs []string `db:"-" json:"related_goal_ids"`
}

// GoalIDs returns the primary and related goal references without duplicates.
func (a *Activity) GoalIDs() []string {
	seen := make(map[string]struct{}, len(a.RelatedGoalIDs)+1)
	ids := make([]string, 0, len(a.RelatedGoalIDs)+1)
	if a.PrimaryGoalID != nil && *a.PrimaryGoalID != "" {
		seen[*a.PrimaryGoalID] = struct{}{}
		ids = append(ids, *a.PrimaryGoalID)
	}
	for _, id := range a.RelatedGoalIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// ActivityFilter scopes activity listings.
type ActivityFilter struct {
	Category  *ActivityCategory
	GoalID    string
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// ActivityLogStatus tracks the lifecycle of a single completion attempt.
type ActivityLogStatus string

const (
	ActivityLogScheduled  ActivityLogStatus = "scheduled"
	ActivityLogInProgress ActivityLogStatus = "in_progress"
	ActivityLogCompleted  ActivityLogStatus = "completed"
	ActivityLogCancelled  ActivityLogStatus = "cancelled"
	ActivityLogSkipped    ActivityLogStatus = "skipped"
)

// Valid returns true when the status is a supported value.
func (s ActivityLogStatus) Valid() bool {
	switch s {
	case ActivityLogScheduled, ActivityLogInProgress, ActivityLogCompleted,
		ActivityLogCancelled, ActivityLogSkipped:
		return true
	default:
		return false
	}
}

// ActivityLog records one carer's attempt at an activity on a given date.
// Logs are the historical record feeding goal progress; they are superseded,
// never deleted.
type ActivityLog struct {
	ID                 string            `db:"id" json:"id"`
	ActivityID         string            `db:"activity_id" json:"activity_id"`
	CarerID            string            `db:"carer_id" json:"carer_id"`
	Date               time.Time         `db:"date" json:"date"`
	ScheduledTime      *time.Time        `db:"scheduled_time" json:"scheduled_time,omitempty"`
	StartTime          *time.Time        `db:"start_time" json:"start_time,omitempty"`
	EndTime            *time.Time        `db:"end_time" json:"end_time,omitempty"`
	Status             ActivityLogStatus `db:"status" json:"status"`
	Completed          bool              `db:"completed" json:"completed"`
	CompletionNotes    *string           `db:"completion_notes" json:"completion_notes,omitempty"`
	DifficultyRating   *int              `db:"difficulty_rating" json:"difficulty_rating,omitempty"`
	SatisfactionRating *int              `db:"satisfaction_rating" json:"satisfaction_rating,omitempty"`
	MediaRefs          pq.StringArray    `db:"media_refs" json:"media_refs"`
	Notes              *string           `db:"notes" json:"notes,omitempty"`
	CreatedAt          time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time         `db:"updated_at" json:"updated_at"`
}

// ActivityLogFilter scopes completion record listings.
type ActivityLogFilter struct {
	ActivityID string
	CarerID    string
	Status     *ActivityLogStatus
	Completed  *bool
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// ActivityStats summarises completion history for one activity template.
type ActivityStats struct {
	ActivityID     string  `json:"activity_id"`
	TotalLogs      int     `json:"total_logs"`
	CompletedLogs  int     `json:"completed_logs"`
	CompletionRate float64 `json:"completion_rate"`
}
