package dto

import (
	"time"

	"github.com/carebridge/carebridge-api/internal/models"
)

// CreateGoalRequest payload for defining a new care goal.
type CreateGoalRequest struct {
	Name                    string              `json:"name" validate:"required,min=2,max=200"`
	Description             string              `json:"description" validate:"required"`
	Category                *string             `json:"category,omitempty"`
	TargetDate              *time.Time          `json:"target_date,omitempty"`
	Priority                models.GoalPriority `json:"priority" validate:"required"`
	Notes                   *string             `json:"notes,omitempty"`
	RequiredActivitiesCount int                 `json:"required_activities_count" validate:"min=0"`
	CompletionThreshold     int                 `json:"completion_threshold" validate:"min=0,max=100"`
	AssignedCarerIDs        []string            `json:"assigned_carer_ids,omitempty"`
}

// UpdateGoalRequest carries mutable goal fields. Nil pointers leave the
// stored value untouched.
type UpdateGoalRequest struct {
	Name                    *string              `json:"name,omitempty" validate:"omitempty,min=2,max=200"`
	Description             *string              `json:"description,omitempty"`
	Category                *string              `json:"category,omitempty"`
	TargetDate              *time.Time           `json:"target_date,omitempty"`
	Priority                *models.GoalPriority `json:"priority,omitempty"`
	Notes                   *string              `json:"notes,omitempty"`
	RequiredActivitiesCount *int                 `json:"required_activities_count,omitempty" validate:"omitempty,min=0"`
	CompletionThreshold     *int                 `json:"completion_threshold,omitempty" validate:"omitempty,min=0,max=100"`
	AssignedCarerIDs        []string             `json:"assigned_carer_ids,omitempty"`
}

// UpdateGoalStatusRequest drives explicit status transitions.
type UpdateGoalStatusRequest struct {
	Status models.GoalStatus `json:"status" validate:"required"`
}

// GoalResponse wraps a goal with its derived progress view.
type GoalResponse struct {
	Goal     models.Goal          `json:"goal"`
	Progress *models.GoalProgress `json:"progress,omitempty"`
}
