package models

import "time"

// ShiftStatus enumerates shift lifecycle states.
type ShiftStatus string

const (
	ShiftStatusScheduled  ShiftStatus = "scheduled"
	ShiftStatusInProgress ShiftStatus = "in_progress"
	ShiftStatusCompleted  ShiftStatus = "completed"
	ShiftStatusCancelled  ShiftStatus = "cancelled"
	ShiftStatusNoShow     ShiftStatus = "no_show"
)

// Valid returns true when the status is a supported value.
func (s ShiftStatus) Valid() bool {
	switch s {
	case ShiftStatusScheduled, ShiftStatusInProgress, ShiftStatusCompleted,
		ShiftStatusCancelled, ShiftStatusNoShow:
		return true
	default:
		return false
	}
}

// shiftTransitions is the table of legal status edges. Completed, cancelled
// and no_show are terminal.
var shiftTransitions = map[ShiftStatus][]ShiftStatus{
	ShiftStatusScheduled:  {ShiftStatusInProgress, ShiftStatusCancelled, ShiftStatusNoShow},
	ShiftStatusInProgress: {ShiftStatusCompleted},
}

// CanTransition reports whether moving from s to target is a legal edge.
func (s ShiftStatus) CanTransition(target ShiftStatus) bool {
	for _, allowed := range shiftTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// ShiftType labels the rostered slot of a shift.
type ShiftType string

const (
	ShiftTypeMorning   ShiftType = "morning"
	ShiftTypeAfternoon ShiftType = "afternoon"
	ShiftTypeEvening   ShiftType = "evening"
	ShiftTypeNight     ShiftType = "night"
	ShiftTypeFullDay   ShiftType = "full_day"
	ShiftTypeCustom    ShiftType = "custom"
)

// Shift represents one scheduled work shift for a carer, tracking the
// clock-in/clock-out state machine and derived duration metrics.
type Shift struct {
	ID               string      `db:"id" json:"id"`
	CarerID          string      `db:"carer_id" json:"carer_id"`
	Date             time.Time   `db:"date" json:"date"`
	ShiftType        ShiftType   `db:"shift_type" json:"shift_type"`
	ScheduledStart   time.Time   `db:"scheduled_start" json:"scheduled_start"`
	ScheduledEnd     time.Time   `db:"scheduled_end" json:"scheduled_end"`
	BreakMinutes     int         `db:"break_minutes" json:"break_minutes"`
	ClockIn          *time.Time  `db:"clock_in" json:"clock_in,omitempty"`
	ClockOut         *time.Time  `db:"clock_out" json:"clock_out,omitempty"`
	ClockInLocation  *string     `db:"clock_in_location" json:"clock_in_location,omitempty"`
	ClockOutLocation *string     `db:"clock_out_location" json:"clock_out_location,omitempty"`
	EarlyClockIn     bool        `db:"early_clock_in" json:"early_clock_in"`
	Status           ShiftStatus `db:"status" json:"status"`
	AssignedBy       *string     `db:"assigned_by" json:"assigned_by,omitempty"`
	ClientID         *string     `db:"client_id" json:"client_id,omitempty"`
	Location         *string     `db:"location" json:"location,omitempty"`
	Notes            *string     `db:"notes" json:"notes,omitempty"`
	ActualMinutes    *int        `db:"actual_minutes" json:"actual_minutes,omitempty"`
	PerformanceRating *int       `db:"performance_rating" json:"performance_rating,omitempty"`
	SupervisorNotes  *string     `db:"supervisor_notes" json:"supervisor_notes,omitempty"`
	CreatedAt        time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at" json:"updated_at"`
}

// IsLate reports whether the carer clocked in after the scheduled start.
func (s *Shift) IsLate() bool {
	return s.ClockIn != nil && s.ClockIn.After(s.ScheduledStart)
}

// IsEarlyLeave reports whether the carer clocked out before the scheduled end.
func (s *Shift) IsEarlyLeave() bool {
	return s.ClockOut != nil && s.ClockOut.Before(s.ScheduledEnd)
}

// ShiftFilter scopes shift listings.
type ShiftFilter struct {
	CarerID   string
	ClientID  string
	Status    *ShiftStatus
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// ShiftSummary aggregates worked time for reporting.
type ShiftSummary struct {
	CarerID         string  `json:"carer_id"`
	TotalShifts     int     `json:"total_shifts"`
	CompletedShifts int     `json:"completed_shifts"`
	NoShows         int     `json:"no_shows"`
	TotalMinutes    int     `json:"total_minutes"`
	AverageRating   float64 `json:"average_rating"`
}
