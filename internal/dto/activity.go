package dto

import (
	"time"

	"github.com/carebridge/carebridge-api/internal/models"
)

// CreateActivityRequest payload for defining an activity template.
type CreateActivityRequest struct {
	Name                   string                    `json:"name" validate:"required,min=2,max=200"`
	Description            string                    `json:"description" validate:"required"`
	Category               models.ActivityCategory   `json:"category" validate:"required"`
	Difficulty             models.ActivityDifficulty `json:"difficulty" validate:"required"`
	Instructions           string                    `json:"instructions"`
	Prerequisites          *string                   `json:"prerequisites,omitempty"`
	EstimatedDuration      *int                      `json:"estimated_duration,omitempty" validate:"omitempty,min=1"`
	PrimaryGoalID          *string                   `json:"primary_goal_id,omitempty"`
	RelatedGoalIDs         []string                  `json:"related_goal_ids,omitempty"`
	GoalContributionWeight int                       `json:"goal_contribution_weight" validate:"min=0"`
	ImageURL               *string                   `json:"image_url,omitempty"`
	VideoURL               *string                   `json:"video_url,omitempty"`
}

// UpdateActivityRequest carries mutable template fields.
type UpdateActivityRequest struct {
	Name                   *string                    `json:"name,omitempty" validate:"omitempty,min=2,max=200"`
	Description            *string                    `json:"description,omitempty"`
	Category               *models.ActivityCategory   `json:"category,omitempty"`
	Difficulty             *models.ActivityDifficulty `json:"difficulty,omitempty"`
	Instructions           *string                    `json:"instructions,omitempty"`
	Prerequisites          *string                    `json:"prerequisites,omitempty"`
	EstimatedDuration      *int                       `json:"estimated_duration,omitempty" validate:"omitempty,min=1"`
	PrimaryGoalID          *string                    `json:"primary_goal_id,omitempty"`
	RelatedGoalIDs         []string                   `json:"related_goal_ids,omitempty"`
	GoalContributionWeight *int                       `json:"goal_contribution_weight,omitempty" validate:"omitempty,min=0"`
	ImageURL               *string                    `json:"image_url,omitempty"`
	VideoURL               *string                    `json:"video_url,omitempty"`
}

// RecordCompletionRequest logs one attempt at an activity on a date.
type RecordCompletionRequest struct {
	ActivityID         string                   `json:"activity_id" validate:"required"`
	Date               time.Time                `json:"date" validate:"required"`
	Status             models.ActivityLogStatus `json:"status" validate:"required"`
	ScheduledTime      *time.Time               `json:"scheduled_time,omitempty"`
	StartTime          *time.Time               `json:"start_time,omitempty"`
	EndTime            *time.Time               `json:"end_time,omitempty"`
	CompletionNotes    *string                  `json:"completion_notes,omitempty"`
	DifficultyRating   *int                     `json:"difficulty_rating,omitempty"`
	SatisfactionRating *int                     `json:"satisfaction_rating,omitempty"`
	MediaRefs          []string                 `json:"media_refs,omitempty"`
	Notes              *string                  `json:"notes,omitempty"`
}

// UpdateCompletionRequest supersedes a log's status or ratings.
type UpdateCompletionRequest struct {
	Status             *models.ActivityLogStatus `json:"status,omitempty"`
	StartTime          *time.Time                `json:"start_time,omitempty"`
	EndTime            *time.Time                `json:"end_time,omitempty"`
	CompletionNotes    *string                   `json:"completion_notes,omitempty"`
	DifficultyRating   *int                      `json:"difficulty_rating,omitempty"`
	SatisfactionRating *int                      `json:"satisfaction_rating,omitempty"`
	MediaRefs          []string                  `json:"media_refs,omitempty"`
	Notes              *string                   `json:"notes,omitempty"`
}
