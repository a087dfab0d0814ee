package dto

import (
	"time"

	"github.com/carebridge/carebridge-api/internal/models"
)

// CreateShiftRequest schedules a shift for a carer.
type CreateShiftRequest struct {
	CarerID        string           `json:"carer_id" validate:"required"`
	Date           time.Time        `json:"date" validate:"required"`
	ShiftType      models.ShiftType `json:"shift_type" validate:"required"`
	ScheduledStart time.Time        `json:"scheduled_start" validate:"required"`
	ScheduledEnd   time.Time        `json:"scheduled_end" validate:"required"`
	BreakMinutes   int              `json:"break_minutes" validate:"min=0"`
	ClientID       *string          `json:"client_id,omitempty"`
	Location       *string          `json:"location,omitempty"`
	Notes          *string          `json:"notes,omitempty"`
}

// UpdateShiftRequest edits the schedule of a shift that has not started.
type UpdateShiftRequest struct {
	Date           *time.Time        `json:"date,omitempty"`
	ShiftType      *models.ShiftType `json:"shift_type,omitempty"`
	ScheduledStart *time.Time        `json:"scheduled_start,omitempty"`
	ScheduledEnd   *time.Time        `json:"scheduled_end,omitempty"`
	BreakMinutes   *int              `json:"break_minutes,omitempty" validate:"omitempty,min=0"`
	ClientID       *string           `json:"client_id,omitempty"`
	Location       *string           `json:"location,omitempty"`
	Notes          *string           `json:"notes,omitempty"`
}

// ClockRequest carries an optional client-reported timestamp and location
// for clock-in/clock-out. A zero timestamp means "now".
type ClockRequest struct {
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Location  *string    `json:"location,omitempty"`
}

// SupervisorReviewRequest sets post-shift rating and notes.
type SupervisorReviewRequest struct {
	PerformanceRating *int    `json:"performance_rating,omitempty" validate:"omitempty,min=1,max=5"`
	SupervisorNotes   *string `json:"supervisor_notes,omitempty"`
}
