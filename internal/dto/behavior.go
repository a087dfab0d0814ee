package dto

import (
	"time"

	"github.com/carebridge/carebridge-api/internal/models"
)

// ReportIncidentRequest records a behavior incident, optionally tagged to
// the activity context it occurred in.
type ReportIncidentRequest struct {
	ClientID              *string                 `json:"client_id,omitempty"`
	OccurredAt            time.Time               `json:"occurred_at" validate:"required"`
	Location              models.IncidentLocation `json:"location" validate:"required"`
	SpecificLocation      *string                 `json:"specific_location,omitempty"`
	ActivityID            *string                 `json:"activity_id,omitempty"`
	ActivityLogID         *string                 `json:"activity_log_id,omitempty"`
	Occurrence            models.Occurrence       `json:"occurrence" validate:"required"`
	BehaviorType          models.BehaviorType     `json:"behavior_type" validate:"required"`
	Behaviors             []string                `json:"behaviors,omitempty"`
	WarningSigns          []string                `json:"warning_signs,omitempty"`
	DurationMinutes       *int                    `json:"duration_minutes,omitempty" validate:"omitempty,min=0"`
	Severity              models.IncidentSeverity `json:"severity" validate:"required"`
	HarmToSelf            bool                    `json:"harm_to_self"`
	HarmToOthers          bool                    `json:"harm_to_others"`
	PropertyDamage        bool                    `json:"property_damage"`
	DamageDescription     *string                 `json:"damage_description,omitempty"`
	InterventionUsed      string                  `json:"intervention_used" validate:"required"`
	InterventionEffective *bool                   `json:"intervention_effective,omitempty"`
	InterventionNotes     *string                 `json:"intervention_notes,omitempty"`
	FollowUpRequired      bool                    `json:"follow_up_required"`
	FollowUpNotes         *string                 `json:"follow_up_notes,omitempty"`
	MediaRefs             []string                `json:"media_refs,omitempty"`
	Notes                 *string                 `json:"notes,omitempty"`
}

// UpdateIncidentRequest amends follow-up and intervention details.
type UpdateIncidentRequest struct {
	DurationMinutes       *int    `json:"duration_minutes,omitempty" validate:"omitempty,min=0"`
	InterventionEffective *bool   `json:"intervention_effective,omitempty"`
	InterventionNotes     *string `json:"intervention_notes,omitempty"`
	FollowUpRequired      *bool   `json:"follow_up_required,omitempty"`
	FollowUpNotes         *string `json:"follow_up_notes,omitempty"`
	Notes                 *string `json:"notes,omitempty"`
}

// ActivityRiskResponse is the classification returned for one activity.
type ActivityRiskResponse struct {
	ActivityID string           `json:"activity_id"`
	RiskLevel  models.RiskLevel `json:"risk_level"`
	Total      int              `json:"total_incidents"`
	Critical   int              `json:"critical_incidents"`
}
