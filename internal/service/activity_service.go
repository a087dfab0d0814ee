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

type activityRepository interface {
	FindByID(ctx context.Context, id string) (*models.Activity, error)
	List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, int, error)
	Create(ctx context.Context, activity *models.Activity) error
	Update(ctx context.Context, activity *models.Activity) error
	Deactivate(ctx context.Context, id string, ts time.Time) error
	ReplaceRelatedGoals(ctx context.Context, activityID string, goalIDs []string) error
	Stats(ctx context.Context, activityID string) (*models.ActivityStats, error)
}

type activityLogRepository interface {
	FindByID(ctx context.Context, id string) (*models.ActivityLog, error)
	List(ctx context.Context, filter models.ActivityLogFilter) ([]models.ActivityLog, int, error)
	Create(ctx context.Context, log *models.ActivityLog) error
	Update(ctx context.Context, log *models.ActivityLog) error
	ExistsForDate(ctx context.Context, activityID, carerID string, date time.Time) (bool, error)
}

// progressRecomputer is the slice of GoalService the recorder signals.
type progressRecomputer interface {
	RecomputeOnCompletion(ctx context.Context, goalIDs []string)
}

// ActivityService manages activity templates and completion records.
// Recording a completed log is the single event that makes linked goals
// eligible for recomputation; no goal state is mutated here.
type ActivityService struct {
	repo      activityRepository
	logs      activityLogRepository
	progress  progressRecomputer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewActivityService constructs an ActivityService instance.
func NewActivityService(repo activityRepository, logs activityLogRepository, progress progressRecomputer, validate *validator.Validate, logger *zap.Logger) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ActivityService{repo: repo, logs: logs, progress: progress, validator: validate, logger: logger}
}

// Create defines a new activity template. Administrators only.
func (s *ActivityService) Create(ctx context.Context, claims *models.JWTClaims, req dto.CreateActivityRequest) (*models.Activity, error) {
	if !claims.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can create activities")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid activity payload")
	}
	if !req.Category.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown category %q", req.Category))
	}
	if !req.Difficulty.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown difficulty %q", req.Difficulty))
	}

	activity := &models.Activity{
		Name:                   req.Name,
		Description:            req.Description,
		Category:               req.Category,
		Difficulty:             req.Difficulty,
		Instructions:           req.Instructions,
		Prerequisites:          req.Prerequisites,
		EstimatedDuration:      req.EstimatedDuration,
		PrimaryGoalID:          req.PrimaryGoalID,
		GoalContributionWeight: req.GoalContributionWeight,
		ImageURL:               req.ImageURL,
		VideoURL:               req.VideoURL,
		Active:                 true,
		CreatedBy:              claims.UserID,
	}
	if err := s.repo.Create(ctx, activity); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create activity")
	}

	if len(req.RelatedGoalIDs) > 0 {
		if err := s.repo.ReplaceRelatedGoals(ctx, activity.ID, req.RelatedGoalIDs); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to link related goals")
		}
		activity.RelatedGoalIDs = req.RelatedGoalIDs
	}

	return activity, nil
}

// Get returns an activity template by ID.
func (s *ActivityService) Get(ctx context.Context, id string) (*models.Activity, error) {
	activity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity")
	}
	return activity, nil
}

// List returns activity templates matching the filter.
func (s *ActivityService) List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, int, error) {
	activities, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list activities")
	}
	return activities, total, nil
}

// Update edits a template. Administrators only.
func (s *ActivityService) Update(ctx context.Context, claims *models.JWTClaims, id string, req dto.UpdateActivityRequest) (*models.Activity, error) {
	if !claims.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can edit activities")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid activity payload")
	}

	activity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity")
	}

	if req.Name != nil {
		activity.Name = *req.Name
	}
	if req.Description != nil {
		activity.Description = *req.Description
	}
	if req.Category != nil {
		if !req.Category.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown category %q", *req.Category))
		}
		activity.Category = *req.Category
	}
	if req.Difficulty != nil {
		if !req.Difficulty.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown difficulty %q", *req.Difficulty))
		}
		activity.Difficulty = *req.Difficulty
	}
	if req.Instructions != nil {
		activity.Instructions = *req.Instructions
	}
	if req.Prerequisites != nil {
		activity.Prerequisites = req.Prerequisites
	}
	if req.EstimatedDuration != nil {
		activity.EstimatedDuration = req.EstimatedDuration
	}
	if req.PrimaryGoalID != nil {
		activity.PrimaryGoalID = req.PrimaryGoalID
	}
	if req.GoalContributionWeight != nil {
		if *req.GoalContributionWeight < 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "contribution weight must be non-negative")
		}
		activity.GoalContributionWeight = *req.GoalContributionWeight
	}
	if req.ImageURL != nil {
		activity.ImageURL = req.ImageURL
	}
	if req.VideoURL != nil {
		activity.VideoURL = req.VideoURL
	}

	if err := s.repo.Update(ctx, activity); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update activity")
	}

	if req.RelatedGoalIDs != nil {
		if err := s.repo.ReplaceRelatedGoals(ctx, activity.ID, req.RelatedGoalIDs); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to link related goals")
		}
		activity.RelatedGoalIDs = req.RelatedGoalIDs
	}

	return activity, nil
}

// Deactivate soft-deletes a template. Templates referenced by logs are
// never hard-deleted.
func (s *ActivityService) Deactivate(ctx context.Context, claims *models.JWTClaims, id string) error {
	if !claims.IsAdmin() {
		return appErrors.Clone(appErrors.ErrForbidden, "only administrators can deactivate activities")
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity")
	}
	if err := s.repo.Deactivate(ctx, id, time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate activity")
	}
	return nil
}

// Stats summarises completion history for one template.
func (s *ActivityService) Stats(ctx context.Context, id string) (*models.ActivityStats, error) {
	stats, err := s.repo.Stats(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute activity stats")
	}
	return stats, nil
}

// RecordCompletion logs one attempt at an activity on a date. A log with
// completed status signals recomputation for every goal linked to the
// activity; nothing else mutates goal state.
func (s *ActivityService) RecordCompletion(ctx context.Context, claims *models.JWTClaims, req dto.RecordCompletionRequest) (*models.ActivityLog, error) {
	if !claims.CanRecordCare() {
		if claims.Role == models.RoleSupportWorker || claims.Role == models.RolePractitioner {
			return nil, appErrors.Clone(appErrors.ErrNotApproved, "account pending approval")
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only approved carers can record completions")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid completion payload")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", req.Status))
	}
	if err := validateRatings(req.DifficultyRating, req.SatisfactionRating); err != nil {
		return nil, err
	}

	activity, err := s.repo.FindByID(ctx, req.ActivityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity")
	}
	if !activity.Active {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "activity is inactive")
	}
	if req.Date.Before(startOfDay(activity.CreatedAt)) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "completion date precedes activity creation")
	}

	completed := req.Status == models.ActivityLogCompleted

	// A completed log for the same activity and day cannot move capped
	// progress, so the recompute signal is skipped for repeats.
	alreadyLogged := false
	if completed {
		alreadyLogged, err = s.logs.ExistsForDate(ctx, req.ActivityID, claims.UserID, req.Date)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing logs")
		}
	}

	log := &models.ActivityLog{
		ActivityID:         req.ActivityID,
		CarerID:            claims.UserID,
		Date:               req.Date,
		ScheduledTime:      req.ScheduledTime,
		StartTime:          req.StartTime,
		EndTime:            req.EndTime,
		Status:             req.Status,
		Completed:          completed,
		CompletionNotes:    req.CompletionNotes,
		DifficultyRating:   req.DifficultyRating,
		SatisfactionRating: req.SatisfactionRating,
		MediaRefs:          req.MediaRefs,
		Notes:              req.Notes,
	}
	if err := s.logs.Create(ctx, log); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record completion")
	}

	if completed && !alreadyLogged && s.progress != nil {
		s.progress.RecomputeOnCompletion(ctx, activity.GoalIDs())
	}

	return log, nil
}

// GetLog returns a single completion record.
func (s *ActivityService) GetLog(ctx context.Context, id string) (*models.ActivityLog, error) {
	log, err := s.logs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "completion record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load completion record")
	}
	return log, nil
}

// ListLogs returns completion records matching the filter. Non-admin
// callers only see their own records.
func (s *ActivityService) ListLogs(ctx context.Context, claims *models.JWTClaims, filter models.ActivityLogFilter) ([]models.ActivityLog, int, error) {
	if claims != nil && !claims.IsAdmin() {
		filter.CarerID = claims.UserID
	}
	logs, total, err := s.logs.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list completion records")
	}
	return logs, total, nil
}

// UpdateLog supersedes a record's status or ratings. Owned by the carer
// who created it; administrators may also amend.
func (s *ActivityService) UpdateLog(ctx context.Context, claims *models.JWTClaims, id string, req dto.UpdateCompletionRequest) (*models.ActivityLog, error) {
	log, err := s.logs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "completion record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load completion record")
	}
	if log.CarerID != claims.UserID && !claims.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "record belongs to another carer")
	}
	if err := validateRatings(req.DifficultyRating, req.SatisfactionRating); err != nil {
		return nil, err
	}

	wasCompleted := log.Completed

	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", *req.Status))
		}
		log.Status = *req.Status
		log.Completed = *req.Status == models.ActivityLogCompleted
	}
	if req.StartTime != nil {
		log.StartTime = req.StartTime
	}
	if req.EndTime != nil {
		log.EndTime = req.EndTime
	}
	if req.CompletionNotes != nil {
		log.CompletionNotes = req.CompletionNotes
	}
	if req.DifficultyRating != nil {
		log.DifficultyRating = req.DifficultyRating
	}
	if req.SatisfactionRating != nil {
		log.SatisfactionRating = req.SatisfactionRating
	}
	if req.MediaRefs != nil {
		log.MediaRefs = req.MediaRefs
	}
	if req.Notes != nil {
		log.Notes = req.Notes
	}

	if err := s.logs.Update(ctx, log); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update completion record")
	}

	if !wasCompleted && log.Completed && s.progress != nil {
		activity, err := s.repo.FindByID(ctx, log.ActivityID)
		if err != nil {
			s.logger.Warn("recompute skipped, activity unavailable", zap.String("activity_id", log.ActivityID), zap.Error(err))
		} else {
			s.progress.RecomputeOnCompletion(ctx, activity.GoalIDs())
		}
	}

	return log, nil
}

func validateRatings(ratings ...*int) error {
	for _, rating := range ratings {
		if rating == nil {
			continue
		}
		if *rating < 1 || *rating > 5 {
			return appErrors.Clone(appErrors.ErrValidation, "ratings must be between 1 and 5")
		}
	}
	return nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
