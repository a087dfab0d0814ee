package dto

import (
	"time"

	"github.com/carebridge/carebridge-api/internal/models"
)

// CreateScheduleRequest plans an activity slot for a carer.
type CreateScheduleRequest struct {
	ActivityID       string                  `json:"activity_id" validate:"required"`
	CarerID          string                  `json:"carer_id" validate:"required"`
	ScheduledAt      time.Time               `json:"scheduled_at" validate:"required"`
	EstimatedMinutes *int                    `json:"estimated_minutes,omitempty" validate:"omitempty,min=1"`
	Priority         models.SchedulePriority `json:"priority,omitempty"`
	Location         *string                 `json:"location,omitempty"`
	Notes            *string                 `json:"notes,omitempty"`
	PreparationNotes *string                 `json:"preparation_notes,omitempty"`
}

// UpdateScheduleRequest edits a slot that has not started.
type UpdateScheduleRequest struct {
	ScheduledAt      *time.Time               `json:"scheduled_at,omitempty"`
	EstimatedMinutes *int                     `json:"estimated_minutes,omitempty" validate:"omitempty,min=1"`
	Priority         *models.SchedulePriority `json:"priority,omitempty"`
	Location         *string                  `json:"location,omitempty"`
	Notes            *string                  `json:"notes,omitempty"`
	PreparationNotes *string                  `json:"preparation_notes,omitempty"`
}

// RescheduleRequest moves a slot to a new time. The original slot is
// closed out and a linked replacement is created.
type RescheduleRequest struct {
	ScheduledAt      time.Time `json:"scheduled_at" validate:"required"`
	EstimatedMinutes *int      `json:"estimated_minutes,omitempty" validate:"omitempty,min=1"`
}

// CompleteScheduleRequest closes out an in-progress slot.
type CompleteScheduleRequest struct {
	CompletionNotes *string `json:"completion_notes,omitempty"`
}

// ResolveConflictRequest marks a recorded conflict handled.
type ResolveConflictRequest struct {
	ResolutionNotes *string `json:"resolution_notes,omitempty"`
}
