package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/carebridge/carebridge-api/internal/dto"
	"github.com/carebridge/carebridge-api/internal/models"
	appErrors "github.com/carebridge/carebridge-api/pkg/errors"
)

type goalRepository interface {
	FindByID(ctx context.Context, id string) (*models.Goal, error)
	List(ctx context.Context, filter models.GoalFilter) ([]models.Goal, int, error)
	Create(ctx context.Context, goal *models.Goal) error
	Update(ctx context.Context, goal *models.Goal) error
	TransitionStatus(ctx context.Context, id string, from, to models.GoalStatus, ts time.Time) (bool, error)
	CompleteIfActive(ctx context.Context, id string, completedAt time.Time) (bool, error)
	ReplaceAssignedCarers(ctx context.Context, goalID string, carerIDs []string) error
	AssignedCarerIDs(ctx context.Context, goalID string) ([]string, error)
	QualifyingCompletions(ctx context.Context, goalID string) ([]models.QualifyingCompletion, error)
	Analytics(ctx context.Context) (*models.GoalAnalytics, error)
}

// eventEmitter is the slice of EventService the domain services need.
type eventEmitter interface {
	Emit(ctx context.Context, eventType models.EventType, resourceID, dedupeKey string, payload interface{}, occurredAt time.Time) error
}

// GoalConfig tunes progress derivation.
type GoalConfig struct {
	DefaultContributionWeight int
	CacheTTL                  time.Duration
}

// GoalService owns the goal lifecycle and the derived progress view.
// Progress is never stored: it is recomputed from the completion record
// set on read, and on each qualifying completion write.
type GoalService struct {
	repo      goalRepository
	events    eventEmitter
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	config    GoalConfig
}

// NewGoalService constructs a GoalService instance.
func NewGoalService(repo goalRepository, events eventEmitter, cache *CacheService, validate *validator.Validate, logger *zap.Logger, config GoalConfig) *GoalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.DefaultContributionWeight <= 0 {
		config.DefaultContributionWeight = 100
	}
	return &GoalService{repo: repo, events: events, cache: cache, validator: validate, logger: logger, config: config}
}

// Create defines a new goal. Administrators only.
func (s *GoalService) Create(ctx context.Context, claims *models.JWTClaims, req dto.CreateGoalRequest) (*models.Goal, error) {
	if !claims.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can create goals")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid goal payload")
	}
	if !req.Priority.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown priority %q", req.Priority))
	}

	threshold := req.CompletionThreshold
	if threshold == 0 {
		threshold = 80
	}

	goal := &models.Goal{
		Name:                    req.Name,
		Description:             req.Description,
		Category:                req.Category,
		TargetDate:              req.TargetDate,
		Status:                  models.GoalStatusActive,
		Priority:                req.Priority,
		CreatedBy:               claims.UserID,
		Notes:                   req.Notes,
		RequiredActivitiesCount: req.RequiredActivitiesCount,
		CompletionThreshold:     threshold,
	}
	if err := s.repo.Create(ctx, goal); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create goal")
	}

	if len(req.AssignedCarerIDs) > 0 {
		if err := s.repo.ReplaceAssignedCarers(ctx, goal.ID, req.AssignedCarerIDs); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign carers")
		}
		goal.AssignedCarerIDs = req.AssignedCarerIDs
	}

	return goal, nil
}

// Get returns a goal together with its derived progress.
func (s *GoalService) Get(ctx context.Context, id string) (*dto.GoalResponse, error) {
	goal, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "goal not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load goal")
	}

	progress, err := s.Progress(ctx, goal)
	if err != nil {
		return nil, err
	}
	return &dto.GoalResponse{Goal: *goal, Progress: progress}, nil
}

// List returns goals matching the filter.
func (s *GoalService) List(ctx context.Context, claims *models.JWTClaims, filter models.GoalFilter) ([]models.Goal, int, error) {
	if claims != nil && !claims.IsAdmin() && filter.CarerID == "" {
		// non-admin callers only see goals they are assigned to
		filter.CarerID = claims.UserID
	}
	goals, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list goals")
	}
	return goals, total, nil
}

// Update edits goal definition fields. Administrators only; a completed
// goal can only be touched through this administrative path.
func (s *GoalService) Update(ctx context.Context, claims *models.JWTClaims, id string, req dto.UpdateGoalRequest) (*models.Goal, error) {
	if !claims.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can edit goals")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid goal payload")
	}

	goal, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "goal not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load goal")
	}

	if req.Name != nil {
		goal.Name = *req.Name
	}
	if req.Description != nil {
		goal.Description = *req.Description
	}
	if req.Category != nil {
		goal.Category = req.Category
	}
	if req.TargetDate != nil {
		goal.TargetDate = req.TargetDate
	}
	if req.Priority != nil {
		if !req.Priority.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown priority %q", *req.Priority))
		}
		goal.Priority = *req.Priority
	}
	if req.Notes != nil {
		goal.Notes = req.Notes
	}
	if req.RequiredActivitiesCount != nil {
		goal.RequiredActivitiesCount = *req.RequiredActivitiesCount
	}
	if req.CompletionThreshold != nil {
		goal.CompletionThreshold = *req.CompletionThreshold
	}

	if err := s.repo.Update(ctx, goal); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update goal")
	}

	if req.AssignedCarerIDs != nil {
		if err := s.repo.ReplaceAssignedCarers(ctx, goal.ID, req.AssignedCarerIDs); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign carers")
		}
		goal.AssignedCarerIDs = req.AssignedCarerIDs
	}

	s.invalidateProgress(ctx, goal.ID)
	return goal, nil
}

// UpdateStatus applies an explicit lifecycle transition. The conditional
// update makes concurrent transitions race safely: exactly one caller
// wins, the loser gets a state conflict.
func (s *GoalService) UpdateStatus(ctx context.Context, claims *models.JWTClaims, id string, target models.GoalStatus) (*models.Goal, error) {
	if !claims.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can change goal status")
	}
	if !target.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", target))
	}

	goal, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "goal not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load goal")
	}

	if !goal.Status.CanTransition(target) {
		return nil, appErrors.Clone(appErrors.ErrState, fmt.Sprintf("cannot transition goal from %s to %s", goal.Status, target))
	}

	now := time.Now().UTC()
	won, err := s.repo.TransitionStatus(ctx, id, goal.Status, target, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to transition goal")
	}
	if !won {
		return nil, appErrors.Clone(appErrors.ErrState, "goal status changed concurrently")
	}

	goal.Status = target
	goal.UpdatedAt = now
	if target == models.GoalStatusCompleted {
		goal.CompletedAt = &now
	}
	s.invalidateProgress(ctx, id)
	return goal, nil
}

// Progress returns the derived progress view for a goal, memoized in
// cache with explicit invalidation on qualifying writes.
func (s *GoalService) Progress(ctx context.Context, goal *models.Goal) (*models.GoalProgress, error) {
	key := goalProgressKey(goal.ID)
	var cached models.GoalProgress
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	records, err := s.repo.QualifyingCompletions(ctx, goal.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load completions")
	}

	progress, _ := computeProgress(goal, records, s.config.DefaultContributionWeight)
	if err := s.cache.Set(ctx, key, progress, s.config.CacheTTL); err != nil {
		s.logger.Warn("failed to cache goal progress", zap.String("goal_id", goal.ID), zap.Error(err))
	}
	return &progress, nil
}

// RecomputeOnCompletion is the eager recomputation path invoked after a
// completed activity log is recorded. It re-derives progress for every
// linked goal and applies the completion transition when the threshold
// is crossed. The transition is conditional on the goal still being
// active, which makes racing recomputations converge: one transition
// wins, the rest are no-ops.
func (s *GoalService) RecomputeOnCompletion(ctx context.Context, goalIDs []string) {
	for _, goalID := range goalIDs {
		s.invalidateProgress(ctx, goalID)

		goal, err := s.repo.FindByID(ctx, goalID)
		if err != nil {
			s.logger.Warn("recompute skipped, goal unavailable", zap.String("goal_id", goalID), zap.Error(err))
			continue
		}
		if goal.Status != models.GoalStatusActive {
			continue
		}

		records, err := s.repo.QualifyingCompletions(ctx, goalID)
		if err != nil {
			s.logger.Warn("recompute skipped, completions unavailable", zap.String("goal_id", goalID), zap.Error(err))
			continue
		}

		progress, triggerAt := computeProgress(goal, records, s.config.DefaultContributionWeight)
		if progress.Percentage < goal.CompletionThreshold {
			continue
		}

		// Completion is dated to the record that crossed the threshold,
		// not to when this recomputation happened.
		completedAt := time.Now().UTC()
		if triggerAt != nil {
			completedAt = *triggerAt
		}

		won, err := s.repo.CompleteIfActive(ctx, goalID, completedAt)
		if err != nil {
			s.logger.Warn("goal completion transition failed", zap.String("goal_id", goalID), zap.Error(err))
			continue
		}
		if !won {
			continue
		}

		s.logger.Info("goal completed",
			zap.String("goal_id", goalID),
			zap.Int("percentage", progress.Percentage),
			zap.Time("completed_at", completedAt))

		if s.events != nil {
			dedupeKey := fmt.Sprintf("goal_completed:%s:%d", goalID, completedAt.Unix())
			if err := s.events.Emit(ctx, models.EventGoalCompleted, goalID, dedupeKey, progress, completedAt); err != nil {
				s.logger.Warn("failed to emit goal completed event", zap.String("goal_id", goalID), zap.Error(err))
			}
		}
	}
}

// Analytics summarises the goal portfolio.
func (s *GoalService) Analytics(ctx context.Context) (*models.GoalAnalytics, error) {
	analytics, err := s.repo.Analytics(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute goal analytics")
	}
	return analytics, nil
}

func (s *GoalService) invalidateProgress(ctx context.Context, goalID string) {
	if err := s.cache.Invalidate(ctx, goalProgressKey(goalID)); err != nil {
		s.logger.Warn("failed to invalidate goal progress cache", zap.String("goal_id", goalID), zap.Error(err))
	}
}

func goalProgressKey(goalID string) string {
	return "goals:progress:" + goalID
}

// computeProgress derives the progress view from an explicit snapshot of
// qualifying completion records. It is a pure function of its inputs:
// recomputing with the same records and goal configuration always yields
// the same result.
//
// Each record contributes the activity's contribution weight, capped to
// one contribution per activity per calendar day so repeat completions of
// the same activity on the same day never double count. Records are
// expected ordered by date then recording time; the returned timestamp is
// the completion time of the record that first pushed the percentage over
// the goal's threshold, nil if the threshold was never crossed.
func computeProgress(goal *models.Goal, records []models.QualifyingCompletion, defaultWeight int) (models.GoalProgress, *time.Time) {
	if defaultWeight <= 0 {
		defaultWeight = 100
	}

	counted := make(map[string]struct{}, len(records))
	var (
		sum       int
		count     int
		triggerAt *time.Time
	)

	for i := range records {
		record := records[i]
		day := record.ActivityID + "@" + record.Date.Format("2006-01-02")
		if _, seen := counted[day]; seen {
			continue
		}
		counted[day] = struct{}{}

		weight := record.Weight
		if weight <= 0 {
			weight = defaultWeight
		}
		sum += weight
		count++

		if triggerAt == nil && progressPercentage(sum, goal.RequiredActivitiesCount, count) >= goal.CompletionThreshold {
			at := record.CompletedAt
			triggerAt = &at
		}
	}

	return models.GoalProgress{
		GoalID:         goal.ID,
		Percentage:     progressPercentage(sum, goal.RequiredActivitiesCount, count),
		CompletedCount: count,
		TotalRequired:  goal.RequiredActivitiesCount,
	}, triggerAt
}

// progressPercentage maps the capped weight sum onto 0-100. A goal that
// requires no activities is complete as soon as anything qualifies.
func progressPercentage(sum, totalRequired, completedCount int) int {
	if totalRequired == 0 {
		if completedCount > 0 {
			return 100
		}
		return 0
	}
	pct := int(math.Round(float64(sum*100) / float64(totalRequired*100)))
	if pct > 100 {
		pct = 100
	}
	return pct
}
