package models

import "time"

// ScheduleStatus enumerates the lifecycle of a scheduled activity slot.
type ScheduleStatus string

const (
	ScheduleStatusScheduled   ScheduleStatus = "scheduled"
	ScheduleStatusInProgress  ScheduleStatus = "in_progress"
	ScheduleStatusCompleted   ScheduleStatus = "completed"
	ScheduleStatusCancelled   ScheduleStatus = "cancelled"
	ScheduleStatusRescheduled ScheduleStatus = "rescheduled"
	ScheduleStatusNoShow      ScheduleStatus = "no_show"
)

// Valid returns true when the status is a supported value.
func (s ScheduleStatus) Valid() bool {
	switch s {
	case ScheduleStatusScheduled, ScheduleStatusInProgress, ScheduleStatusCompleted,
		ScheduleStatusCancelled, ScheduleStatusRescheduled, ScheduleStatusNoShow:
		return true
	default:
		return false
	}
}

// scheduleTransitions is the table of legal status edges. Completed,
// cancelled, rescheduled and no_show are terminal; a rescheduled slot is
// replaced by a new schedule rather than reused.
var scheduleTransitions = map[ScheduleStatus][]ScheduleStatus{
	ScheduleStatusScheduled:  {ScheduleStatusInProgress, ScheduleStatusCancelled, ScheduleStatusRescheduled, ScheduleStatusNoShow},
	ScheduleStatusInProgress: {ScheduleStatusCompleted},
}

// CanTransition reports whether moving from s to target is a legal edge.
func (s ScheduleStatus) CanTransition(target ScheduleStatus) bool {
	for _, allowed := range scheduleTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// SchedulePriority ranks scheduled slots for the carer's day view.
type SchedulePriority string

const (
	SchedulePriorityLow    SchedulePriority = "low"
	SchedulePriorityMedium SchedulePriority = "medium"
	SchedulePriorityHigh   SchedulePriority = "high"
	SchedulePriorityUrgent SchedulePriority = "urgent"
)

// Valid returns true when the priority is a supported value.
func (p SchedulePriority) Valid() bool {
	switch p {
	case SchedulePriorityLow, SchedulePriorityMedium, SchedulePriorityHigh, SchedulePriorityUrgent:
		return true
	default:
		return false
	}
}

// DefaultScheduleMinutes is assumed for overlap checks when a slot has no
// estimated duration.
const DefaultScheduleMinutes = 60

// Schedule plans one activity occurrence for a carer at a point in time.
// Completion recording stays on the activity log; a schedule only tracks
// the planned slot and its lifecycle.
type Schedule struct {
	ID               string           `db:"id" json:"id"`
	ActivityID       string           `db:"activity_id" json:"activity_id"`
	CarerID          string           `db:"carer_id" json:"carer_id"`
	CreatedBy        string           `db:"created_by" json:"created_by"`
	ScheduledAt      time.Time        `db:"scheduled_at" json:"scheduled_at"`
	EstimatedMinutes *int             `db:"estimated_minutes" json:"estimated_minutes,omitempty"`
	Status           ScheduleStatus   `db:"status" json:"status"`
	Priority         SchedulePriority `db:"priority" json:"priority"`
	Location         *string          `db:"location" json:"location,omitempty"`
	Notes            *string          `db:"notes" json:"notes,omitempty"`
	PreparationNotes *string          `db:"preparation_notes" json:"preparation_notes,omitempty"`
	CompletionNotes  *string          `db:"completion_notes" json:"completion_notes,omitempty"`
	RescheduledFrom  *string          `db:"rescheduled_from" json:"rescheduled_from,omitempty"`
	StartedAt        *time.Time       `db:"started_at" json:"started_at,omitempty"`
	CompletedAt      *time.Time       `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}

// Window returns the planned start and end of the slot, falling back to
// the default duration when none was estimated.
func (s *Schedule) Window() (time.Time, time.Time) {
	minutes := DefaultScheduleMinutes
	if s.EstimatedMinutes != nil && *s.EstimatedMinutes > 0 {
		minutes = *s.EstimatedMinutes
	}
	return s.ScheduledAt, s.ScheduledAt.Add(time.Duration(minutes) * time.Minute)
}

// IsOverdue reports whether a still-scheduled slot has passed its start.
func (s *Schedule) IsOverdue(now time.Time) bool {
	return s.Status == ScheduleStatusScheduled && now.After(s.ScheduledAt)
}

// ScheduleConflictType classifies how two slots collide.
type ScheduleConflictType string

const (
	ConflictTimeOverlap   ScheduleConflictType = "time_overlap"
	ConflictDoubleBooking ScheduleConflictType = "user_double_booking"
	ConflictResource      ScheduleConflictType = "resource_conflict"
)

// ScheduleConflict records a detected collision between two slots. It is
// advisory: the colliding schedule still exists and an administrator
// resolves the conflict out of band.
type ScheduleConflict struct {
	ID              string               `db:"id" json:"id"`
	ScheduleID      string               `db:"schedule_id" json:"schedule_id"`
	ConflictingID   string               `db:"conflicting_id" json:"conflicting_id"`
	ConflictType    ScheduleConflictType `db:"conflict_type" json:"conflict_type"`
	Resolved        bool                 `db:"resolved" json:"resolved"`
	ResolutionNotes *string              `db:"resolution_notes" json:"resolution_notes,omitempty"`
	CreatedAt       time.Time            `db:"created_at" json:"created_at"`
	ResolvedAt      *time.Time           `db:"resolved_at" json:"resolved_at,omitempty"`
}

// ScheduleFilter scopes schedule listings.
type ScheduleFilter struct {
	CarerID    string
	ActivityID string
	Status     *ScheduleStatus
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	PageSize   int
}
