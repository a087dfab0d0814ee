package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/carebridge/carebridge-api/internal/dto"
	"github.com/carebridge/carebridge-api/internal/models"
	appErrors "github.com/carebridge/carebridge-api/pkg/errors"
)

type behaviorRepository interface {
	FindByID(ctx context.Context, id string) (*models.BehaviorIncident, error)
	List(ctx context.Context, filter models.IncidentFilter) ([]models.BehaviorIncident, int, error)
	Create(ctx context.Context, incident *models.BehaviorIncident) error
	Update(ctx context.Context, incident *models.BehaviorIncident) error
	CountsForActivity(ctx context.Context, activityID string, since *time.Time) (*models.IncidentCounts, error)
	RiskAggregates(ctx context.Context, activityID string, since *time.Time) (*models.ActivityRiskSummary, error)
}

type completionLookup interface {
	FindByID(ctx context.Context, id string) (*models.ActivityLog, error)
}

// RiskConfig holds the incident-count thresholds driving risk
// classification. A window of zero days means all recorded history.
type RiskConfig struct {
	WindowDays     int
	CriticalHigh   int
	TotalHigh      int
	CriticalMedium int
	TotalMedium    int
}

func (c RiskConfig) withDefaults() RiskConfig {
	if c.CriticalHigh <= 0 {
		c.CriticalHigh = 3
	}
	if c.TotalHigh <= 0 {
		c.TotalHigh = 10
	}
	if c.CriticalMedium <= 0 {
		c.CriticalMedium = 1
	}
	if c.TotalMedium <= 0 {
		c.TotalMedium = 3
	}
	return c
}

// BehaviorService records behavior incidents and derives per-activity
// risk. Risk is a read-side aggregation over the incident set; nothing
// here mutates incidents or activity templates when classifying.
type BehaviorService struct {
	repo      behaviorRepository
	logs      completionLookup
	cache     *CacheService
	events    eventEmitter
	validator *validator.Validate
	logger    *zap.Logger
	config    RiskConfig
	cacheTTL  time.Duration
}

// NewBehaviorService constructs a BehaviorService instance.
func NewBehaviorService(repo behaviorRepository, logs completionLookup, cache *CacheService, events eventEmitter, validate *validator.Validate, logger *zap.Logger, config RiskConfig, cacheTTL time.Duration) *BehaviorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &BehaviorService{
		repo:      repo,
		logs:      logs,
		cache:     cache,
		events:    events,
		validator: validate,
		logger:    logger,
		config:    config.withDefaults(),
		cacheTTL:  cacheTTL,
	}
}

// Report records an incident, resolving its activity context. When a
// completion record is referenced the activity is derived from it; an
// explicit conflicting activity reference is rejected. Without any
// activity context the occurrence must be unrelated.
func (s *BehaviorService) Report(ctx context.Context, claims *models.JWTClaims, req dto.ReportIncidentRequest) (*models.BehaviorIncident, error) {
	if !claims.CanRecordCare() {
		if claims.Role == models.RoleSupportWorker || claims.Role == models.RolePractitioner {
			return nil, appErrors.Clone(appErrors.ErrNotApproved, "account pending approval")
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only approved carers can report incidents")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid incident payload")
	}
	if !req.Severity.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown severity %q", req.Severity))
	}
	if !req.BehaviorType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown behavior type %q", req.BehaviorType))
	}
	if !req.Occurrence.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown occurrence %q", req.Occurrence))
	}

	activityID := req.ActivityID
	switch {
	case req.ActivityLogID != nil:
		log, err := s.logs.FindByID(ctx, *req.ActivityLogID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "completion record not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load completion record")
		}
		if activityID != nil && *activityID != log.ActivityID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "activity reference conflicts with the completion record")
		}
		activityID = &log.ActivityID
	case activityID == nil:
		if req.Occurrence != models.OccurrenceUnrelated {
			return nil, appErrors.Clone(appErrors.ErrValidation, "occurrence must be unrelated when no activity is referenced")
		}
	}

	incident := &models.BehaviorIncident{
		CarerID:               claims.UserID,
		ClientID:              req.ClientID,
		OccurredAt:            req.OccurredAt,
		Location:              req.Location,
		SpecificLocation:      req.SpecificLocation,
		ActivityID:            activityID,
		ActivityLogID:         req.ActivityLogID,
		Occurrence:            req.Occurrence,
		BehaviorType:          req.BehaviorType,
		Behaviors:             req.Behaviors,
		WarningSigns:          req.WarningSigns,
		DurationMinutes:       req.DurationMinutes,
		Severity:              req.Severity,
		HarmToSelf:            req.HarmToSelf,
		HarmToOthers:          req.HarmToOthers,
		PropertyDamage:        req.PropertyDamage,
		DamageDescription:     req.DamageDescription,
		InterventionUsed:      req.InterventionUsed,
		InterventionEffective: req.InterventionEffective,
		InterventionNotes:     req.InterventionNotes,
		FollowUpRequired:      req.FollowUpRequired,
		FollowUpNotes:         req.FollowUpNotes,
		MediaRefs:             req.MediaRefs,
		Notes:                 req.Notes,
	}
	if err := s.repo.Create(ctx, incident); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record incident")
	}

	if activityID != nil {
		s.invalidateRisk(ctx, *activityID)
		s.checkRiskEscalation(ctx, *activityID)
	}

	return incident, nil
}

// Get returns one incident.
func (s *BehaviorService) Get(ctx context.Context, id string) (*models.BehaviorIncident, error) {
	incident, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "incident not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load incident")
	}
	return incident, nil
}

// List returns incidents matching the filter. Non-admin callers only
// see incidents they reported.
func (s *BehaviorService) List(ctx context.Context, claims *models.JWTClaims, filter models.IncidentFilter) ([]models.BehaviorIncident, int, error) {
	if claims != nil && !claims.IsAdmin() {
		filter.CarerID = claims.UserID
	}
	incidents, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list incidents")
	}
	return incidents, total, nil
}

// Update amends follow-up and intervention details. The reporting carer
// may edit until the incident is reviewed; administrators always can.
func (s *BehaviorService) Update(ctx context.Context, claims *models.JWTClaims, id string, req dto.UpdateIncidentRequest) (*models.BehaviorIncident, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid incident payload")
	}

	incident, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !claims.IsAdmin() {
		if incident.CarerID != claims.UserID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "incident belongs to another carer")
		}
		if incident.ReviewedAt != nil {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "reviewed incidents can only be edited by administrators")
		}
	}

	if req.DurationMinutes != nil {
		incident.DurationMinutes = req.DurationMinutes
	}
	if req.InterventionEffective != nil {
		incident.InterventionEffective = req.InterventionEffective
	}
	if req.InterventionNotes != nil {
		incident.InterventionNotes = req.InterventionNotes
	}
	if req.FollowUpRequired != nil {
		incident.FollowUpRequired = *req.FollowUpRequired
	}
	if req.FollowUpNotes != nil {
		incident.FollowUpNotes = req.FollowUpNotes
	}
	if req.Notes != nil {
		incident.Notes = req.Notes
	}

	if err := s.repo.Update(ctx, incident); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update incident")
	}
	return incident, nil
}

// Review marks an incident as reviewed. Administrators only.
func (s *BehaviorService) Review(ctx context.Context, claims *models.JWTClaims, id string) (*models.BehaviorIncident, error) {
	if !claims.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can review incidents")
	}
	incident, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	incident.ReviewedBy = &claims.UserID
	incident.ReviewedAt = &now
	if err := s.repo.Update(ctx, incident); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to review incident")
	}
	return incident, nil
}

// Risk classifies one activity's behavioral risk from incident counts
// over the configured window. The second return reports whether the
// view was served from cache.
func (s *BehaviorService) Risk(ctx context.Context, activityID string) (*dto.ActivityRiskResponse, bool, error) {
	key := riskKey(activityID)
	var cached dto.ActivityRiskResponse
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, true, nil
	}

	counts, err := s.repo.CountsForActivity(ctx, activityID, s.windowStart())
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count incidents")
	}

	response := dto.ActivityRiskResponse{
		ActivityID: activityID,
		RiskLevel:  classifyRisk(*counts, s.config),
		Total:      counts.Total,
		Critical:   counts.Critical,
	}
	if err := s.cache.Set(ctx, key, response, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache activity risk", zap.String("activity_id", activityID), zap.Error(err))
	}
	return &response, false, nil
}

// RiskSummary returns the full derived analytics view for one activity.
func (s *BehaviorService) RiskSummary(ctx context.Context, activityID string) (*models.ActivityRiskSummary, error) {
	summary, err := s.repo.RiskAggregates(ctx, activityID, s.windowStart())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate incidents")
	}
	summary.RiskLevel = classifyRisk(models.IncidentCounts{Total: summary.TotalIncidents, Critical: summary.CriticalIncidents}, s.config)
	return summary, nil
}

func (s *BehaviorService) checkRiskEscalation(ctx context.Context, activityID string) {
	counts, err := s.repo.CountsForActivity(ctx, activityID, s.windowStart())
	if err != nil {
		s.logger.Warn("risk check failed", zap.String("activity_id", activityID), zap.Error(err))
		return
	}
	level := classifyRisk(*counts, s.config)
	if level != models.RiskHigh || s.events == nil {
		return
	}
	dedupeKey := fmt.Sprintf("high_risk_activity:%s:%s", activityID, level)
	payload := dto.ActivityRiskResponse{ActivityID: activityID, RiskLevel: level, Total: counts.Total, Critical: counts.Critical}
	if err := s.events.Emit(ctx, models.EventHighRiskActivity, activityID, dedupeKey, payload, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to emit high risk event", zap.String("activity_id", activityID), zap.Error(err))
	}
}

func (s *BehaviorService) windowStart() *time.Time {
	if s.config.WindowDays <= 0 {
		return nil
	}
	since := time.Now().UTC().AddDate(0, 0, -s.config.WindowDays)
	return &since
}

func (s *BehaviorService) invalidateRisk(ctx context.Context, activityID string) {
	if err := s.cache.Invalidate(ctx, riskKey(activityID)); err != nil {
		s.logger.Warn("failed to invalidate risk cache", zap.String("activity_id", activityID), zap.Error(err))
	}
}

func riskKey(activityID string) string {
	return "behavior:risk:" + activityID
}

// classifyRisk maps incident counts onto a risk level using the
// configured thresholds. Pure function of its inputs.
func classifyRisk(counts models.IncidentCounts, cfg RiskConfig) models.RiskLevel {
	cfg = cfg.withDefaults()
	switch {
	case counts.Critical >= cfg.CriticalHigh || counts.Total >= cfg.TotalHigh:
		return models.RiskHigh
	case counts.Critical >= cfg.CriticalMedium || counts.Total >= cfg.TotalMedium:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}
