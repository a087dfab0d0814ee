package models

import (
	"time"

	"github.com/lib/pq"
)

// IncidentSeverity grades the seriousness of a behavior incident.
type IncidentSeverity string

const (
	SeverityLow      IncidentSeverity = "low"
	SeverityMedium   IncidentSeverity = "medium"
	SeverityHigh     IncidentSeverity = "high"
	SeverityCritical IncidentSeverity = "critical"
)

// Valid returns true when the severity is a supported value.
func (s IncidentSeverity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	default:
		return false
	}
}

// BehaviorType categorises the observed behavior.
type BehaviorType string

const (
	BehaviorAggression     BehaviorType = "aggression"
	BehaviorSelfInjury     BehaviorType = "self_injury"
	BehaviorPropertyDamage BehaviorType = "property_damage"
	BehaviorElopement      BehaviorType = "elopement"
	BehaviorNonCompliance  BehaviorType = "non_compliance"
	BehaviorDisruption     BehaviorType = "disruption"
	BehaviorOther          BehaviorType = "other"
)

// Valid returns true when the behavior type is a supported value.
func (t BehaviorType) Valid() bool {
	switch t {
	case BehaviorAggression, BehaviorSelfInjury, BehaviorPropertyDamage,
		BehaviorElopement, BehaviorNonCompliance, BehaviorDisruption, BehaviorOther:
		return true
	default:
		return false
	}
}

// IncidentLocation is the setting where an incident occurred.
type IncidentLocation string

const (
	LocationHome      IncidentLocation = "home"
	LocationSchool    IncidentLocation = "school"
	LocationCommunity IncidentLocation = "community"
	LocationTherapy   IncidentLocation = "therapy"
	LocationTransport IncidentLocation = "transport"
	LocationOther     IncidentLocation = "other"
)

// Occurrence classifies incident timing relative to an activity.
type Occurrence string

const (
	OccurrenceBeforeActivity Occurrence = "before_activity"
	OccurrenceDuringActivity Occurrence = "during_activity"
	OccurrenceAfterActivity  Occurrence = "after_activity"
	OccurrenceUnrelated      Occurrence = "unrelated"
)

// Valid returns true when the occurrence tag is a supported value.
func (o Occurrence) Valid() bool {
	switch o {
	case OccurrenceBeforeActivity, OccurrenceDuringActivity, OccurrenceAfterActivity, OccurrenceUnrelated:
		return true
	default:
		return false
	}
}

// RiskLevel is the derived behavioral risk classification of an activity.
// It is a recomputed view, never source of truth.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// BehaviorIncident captures one observed behavior event. An incident may
// reference the activity template it relates to and, more specifically, the
// completion record during which it happened; the pair must stay consistent.
type BehaviorIncident struct {
	ID                    string           `db:"id" json:"id"`
	CarerID               string           `db:"carer_id" json:"carer_id"`
	ClientID              *string          `db:"client_id" json:"client_id,omitempty"`
	OccurredAt            time.Time        `db:"occurred_at" json:"occurred_at"`
	Location              IncidentLocation `db:"location" json:"location"`
	SpecificLocation      *string          `db:"specific_location" json:"specific_location,omitempty"`
	ActivityID            *string          `db:"activity_id" json:"activity_id,omitempty"`
	ActivityLogID         *string          `db:"activity_log_id" json:"activity_log_id,omitempty"`
	Occurrence            Occurrence       `db:"occurrence" json:"occurrence"`
	BehaviorType          BehaviorType     `db:"behavior_type" json:"behavior_type"`
	Behaviors             pq.StringArray   `db:"behaviors" json:"behaviors"`
	WarningSigns          pq.StringArray   `db:"warning_signs" json:"warning_signs"`
	DurationMinutes       *int             `db:"duration_minutes" json:"duration_minutes,omitempty"`
	Severity              IncidentSeverity `db:"severity" json:"severity"`
	HarmToSelf            bool             `db:"harm_to_self" json:"harm_to_self"`
	HarmToOthers          bool             `db:"harm_to_others" json:"harm_to_others"`
	PropertyDamage        bool             `db:"property_damage" json:"property_damage"`
	DamageDescription     *string          `db:"damage_description" json:"damage_description,omitempty"`
	InterventionUsed      string           `db:"intervention_used" json:"intervention_used"`
	InterventionEffective *bool            `db:"intervention_effective" json:"intervention_effective,omitempty"`
	InterventionNotes     *string          `db:"intervention_notes" json:"intervention_notes,omitempty"`
	FollowUpRequired      bool             `db:"follow_up_required" json:"follow_up_required"`
	FollowUpNotes         *string          `db:"follow_up_notes" json:"follow_up_notes,omitempty"`
	MediaRefs             pq.StringArray   `db:"media_refs" json:"media_refs"`
	Notes                 *string          `db:"notes" json:"notes,omitempty"`
	ReviewedBy            *string          `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt            *time.Time       `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt             time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time        `db:"updated_at" json:"updated_at"`
}

// IsCritical reports whether the incident demands escalation.
func (i *BehaviorIncident) IsCritical() bool {
	return i.Severity == SeverityCritical || i.HarmToSelf || i.HarmToOthers
}

// IsActivityRelated reports whether the incident references any activity context.
func (i *BehaviorIncident) IsActivityRelated() bool {
	return i.ActivityID != nil || i.ActivityLogID != nil
}

// IncidentFilter scopes incident listings.
type IncidentFilter struct {
	CarerID    string
	ClientID   string
	ActivityID string
	Severities []IncidentSeverity
	Critical   bool
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// IncidentCounts are the raw aggregates driving risk classification.
type IncidentCounts struct {
	Total    int `db:"total" json:"total"`
	Critical int `db:"critical" json:"critical"`
}

// ActivityRiskSummary is the derived per-activity incident analytics view.
type ActivityRiskSummary struct {
	ActivityID              string         `json:"activity_id"`
	TotalIncidents          int            `json:"total_incidents"`
	CriticalIncidents       int            `json:"critical_incidents"`
	RiskLevel               RiskLevel      `json:"risk_level"`
	MostCommonBehavior      *string        `json:"most_common_behavior,omitempty"`
	MostCommonOccurrence    *string        `json:"most_common_occurrence,omitempty"`
	InterventionSuccessRate float64        `json:"intervention_success_rate"`
	SeverityBreakdown       map[string]int `json:"severity_breakdown,omitempty"`
}
