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

type scheduleRepository interface {
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error)
	Create(ctx context.Context, schedule *models.Schedule) error
	UpdateDetails(ctx context.Context, schedule *models.Schedule) error
	Transition(ctx context.Context, id string, from, to models.ScheduleStatus, ts time.Time) (bool, error)
	SetCompletionNotes(ctx context.Context, id string, notes *string, ts time.Time) error
	Overlapping(ctx context.Context, carerID string, from, to time.Time, excludeID string) ([]models.Schedule, error)
	CreateConflict(ctx context.Context, conflict *models.ScheduleConflict) error
	ListConflicts(ctx context.Context, resolved *bool) ([]models.ScheduleConflict, error)
	ResolveConflict(ctx context.Context, id string, notes *string, ts time.Time) (bool, error)
}

// ScheduleService plans activity slots for carers. Creating a slot that
// collides with an existing one succeeds but records an advisory
// conflict; rescheduling into a collision is rejected outright, since
// the point of a reschedule is to land in a free window.
type ScheduleService struct {
	repo      scheduleRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService constructs a ScheduleService instance.
func NewScheduleService(repo scheduleRepository, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ScheduleService{repo: repo, validator: validate, logger: logger}
}

// Create plans a slot. Administrators schedule anyone; carers may plan
// their own slots. Collisions with existing slots are recorded as
// conflicts rather than blocking creation.
func (s *ScheduleService) Create(ctx context.Context, claims *models.JWTClaims, req dto.CreateScheduleRequest) (*models.Schedule, error) {
	if !claims.IsAdmin() && !(claims.CanRecordCare() && req.CarerID == claims.UserID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot plan schedules for another carer")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	priority := req.Priority
	if priority == "" {
		priority = models.SchedulePriorityMedium
	}
	if !priority.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown priority %q", priority))
	}

	schedule := &models.Schedule{
		ActivityID:       req.ActivityID,
		CarerID:          req.CarerID,
		CreatedBy:        claims.UserID,
		ScheduledAt:      req.ScheduledAt.UTC(),
		EstimatedMinutes: req.EstimatedMinutes,
		Status:           models.ScheduleStatusScheduled,
		Priority:         priority,
		Location:         req.Location,
		Notes:            req.Notes,
		PreparationNotes: req.PreparationNotes,
	}
	if err := s.repo.Create(ctx, schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule")
	}

	s.recordOverlaps(ctx, schedule)
	return schedule, nil
}

// Get returns a schedule by ID.
func (s *ScheduleService) Get(ctx context.Context, id string) (*models.Schedule, error) {
	schedule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return schedule, nil
}

// List returns schedules matching the filter. Non-admin callers only
// see their own slots.
func (s *ScheduleService) List(ctx context.Context, claims *models.JWTClaims, filter models.ScheduleFilter) ([]models.Schedule, int, error) {
	if claims != nil && !claims.IsAdmin() {
		filter.CarerID = claims.UserID
	}
	schedules, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	return schedules, total, nil
}

// Update edits a slot that has not started. Administrators only.
func (s *ScheduleService) Update(ctx context.Context, claims *models.JWTClaims, id string, req dto.UpdateScheduleRequest) (*models.Schedule, error) {
	if !claims.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can edit schedules")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}

	schedule, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if schedule.Status != models.ScheduleStatusScheduled {
		return nil, appErrors.Clone(appErrors.ErrState, fmt.Sprintf("cannot edit a %s schedule", schedule.Status))
	}

	timeChanged := false
	if req.ScheduledAt != nil {
		schedule.ScheduledAt = req.ScheduledAt.UTC()
		timeChanged = true
	}
	if req.EstimatedMinutes != nil {
		schedule.EstimatedMinutes = req.EstimatedMinutes
		timeChanged = true
	}
	if req.Priority != nil {
		if !req.Priority.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown priority %q", *req.Priority))
		}
		schedule.Priority = *req.Priority
	}
	if req.Location != nil {
		schedule.Location = req.Location
	}
	if req.Notes != nil {
		schedule.Notes = req.Notes
	}
	if req.PreparationNotes != nil {
		schedule.PreparationNotes = req.PreparationNotes
	}

	if err := s.repo.UpdateDetails(ctx, schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule")
	}
	if timeChanged {
		s.recordOverlaps(ctx, schedule)
	}
	return schedule, nil
}

// Start moves a scheduled slot to in_progress. Only the assigned carer.
func (s *ScheduleService) Start(ctx context.Context, claims *models.JWTClaims, id string) (*models.Schedule, error) {
	schedule, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if schedule.CarerID != claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "schedule is assigned to another carer")
	}
	if !claims.CanRecordCare() {
		return nil, appErrors.Clone(appErrors.ErrNotApproved, "account pending approval")
	}
	if schedule.Status != models.ScheduleStatusScheduled {
		return nil, appErrors.Clone(appErrors.ErrState, fmt.Sprintf("cannot start a %s schedule", schedule.Status))
	}

	ts := time.Now().UTC()
	won, err := s.repo.Transition(ctx, id, models.ScheduleStatusScheduled, models.ScheduleStatusInProgress, ts)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start schedule")
	}
	if !won {
		return nil, appErrors.Clone(appErrors.ErrState, "schedule already started")
	}
	schedule.Status = models.ScheduleStatusInProgress
	schedule.StartedAt = &ts
	return schedule, nil
}

// Complete closes out an in-progress slot. Only the assigned carer.
func (s *ScheduleService) Complete(ctx context.Context, claims *models.JWTClaims, id string, req dto.CompleteScheduleRequest) (*models.Schedule, error) {
	schedule, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if schedule.CarerID != claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "schedule is assigned to another carer")
	}
	if schedule.Status != models.ScheduleStatusInProgress {
		return nil, appErrors.Clone(appErrors.ErrState, fmt.Sprintf("cannot complete a %s schedule", schedule.Status))
	}

	ts := time.Now().UTC()
	won, err := s.repo.Transition(ctx, id, models.ScheduleStatusInProgress, models.ScheduleStatusCompleted, ts)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete schedule")
	}
	if !won {
		return nil, appErrors.Clone(appErrors.ErrState, "schedule already completed")
	}
	if req.CompletionNotes != nil {
		if err := s.repo.SetCompletionNotes(ctx, id, req.CompletionNotes, ts); err != nil {
			s.logger.Warn("failed to save completion notes", zap.String("schedule_id", id), zap.Error(err))
		}
		schedule.CompletionNotes = req.CompletionNotes
	}
	schedule.Status = models.ScheduleStatusCompleted
	schedule.CompletedAt = &ts
	return schedule, nil
}

// Cancel voids a scheduled slot. Administrators only.
func (s *ScheduleService) Cancel(ctx context.Context, claims *models.JWTClaims, id string) error {
	if !claims.IsAdmin() {
		return appErrors.Clone(appErrors.ErrForbidden, "only administrators can cancel schedules")
	}
	schedule, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if schedule.Status != models.ScheduleStatusScheduled {
		return appErrors.Clone(appErrors.ErrState, fmt.Sprintf("cannot cancel a %s schedule", schedule.Status))
	}

	won, err := s.repo.Transition(ctx, id, models.ScheduleStatusScheduled, models.ScheduleStatusCancelled, time.Now().UTC())
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel schedule")
	}
	if !won {
		return appErrors.Clone(appErrors.ErrState, "schedule status changed concurrently")
	}
	return nil
}

// Reschedule closes out a scheduled slot and creates a linked
// replacement at the new time. The new window must be free: unlike
// Create, a collision here is rejected.
func (s *ScheduleService) Reschedule(ctx context.Context, claims *models.JWTClaims, id string, req dto.RescheduleRequest) (*models.Schedule, error) {
	if !claims.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can reschedule")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reschedule payload")
	}

	schedule, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if schedule.Status != models.ScheduleStatusScheduled {
		return nil, appErrors.Clone(appErrors.ErrState, fmt.Sprintf("cannot reschedule a %s schedule", schedule.Status))
	}

	minutes := req.EstimatedMinutes
	if minutes == nil {
		minutes = schedule.EstimatedMinutes
	}
	from, to := windowAt(req.ScheduledAt.UTC(), minutes)
	overlaps, err := s.repo.Overlapping(ctx, schedule.CarerID, from, to, schedule.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check for conflicts")
	}
	if len(overlaps) > 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("time conflict with existing schedule at %s", overlaps[0].ScheduledAt.Format(time.RFC3339)))
	}

	ts := time.Now().UTC()
	won, err := s.repo.Transition(ctx, id, models.ScheduleStatusScheduled, models.ScheduleStatusRescheduled, ts)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reschedule")
	}
	if !won {
		return nil, appErrors.Clone(appErrors.ErrState, "schedule status changed concurrently")
	}

	replacement := &models.Schedule{
		ActivityID:       schedule.ActivityID,
		CarerID:          schedule.CarerID,
		CreatedBy:        claims.UserID,
		ScheduledAt:      req.ScheduledAt.UTC(),
		EstimatedMinutes: minutes,
		Status:           models.ScheduleStatusScheduled,
		Priority:         schedule.Priority,
		Location:         schedule.Location,
		Notes:            schedule.Notes,
		PreparationNotes: schedule.PreparationNotes,
		RescheduledFrom:  &schedule.ID,
	}
	if err := s.repo.Create(ctx, replacement); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create replacement schedule")
	}
	return replacement, nil
}

// Conflicts lists recorded collisions. Administrators only.
func (s *ScheduleService) Conflicts(ctx context.Context, claims *models.JWTClaims, resolved *bool) ([]models.ScheduleConflict, error) {
	if !claims.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can view conflicts")
	}
	conflicts, err := s.repo.ListConflicts(ctx, resolved)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list conflicts")
	}
	return conflicts, nil
}

// ResolveConflict marks a collision handled. Administrators only.
func (s *ScheduleService) ResolveConflict(ctx context.Context, claims *models.JWTClaims, id string, req dto.ResolveConflictRequest) error {
	if !claims.IsAdmin() {
		return appErrors.Clone(appErrors.ErrForbidden, "only administrators can resolve conflicts")
	}
	won, err := s.repo.ResolveConflict(ctx, id, req.ResolutionNotes, time.Now().UTC())
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve conflict")
	}
	if !won {
		return appErrors.Clone(appErrors.ErrState, "conflict already resolved")
	}
	return nil
}

// recordOverlaps detects collisions with the carer's other scheduled
// slots and records one conflict row per collision. Detection failures
// are logged, not surfaced: the slot itself was already saved.
func (s *ScheduleService) recordOverlaps(ctx context.Context, schedule *models.Schedule) {
	from, to := schedule.Window()
	overlaps, err := s.repo.Overlapping(ctx, schedule.CarerID, from, to, schedule.ID)
	if err != nil {
		s.logger.Warn("overlap check failed", zap.String("schedule_id", schedule.ID), zap.Error(err))
		return
	}
	for _, other := range overlaps {
		conflict := &models.ScheduleConflict{
			ScheduleID:    schedule.ID,
			ConflictingID: other.ID,
			ConflictType:  models.ConflictDoubleBooking,
		}
		if err := s.repo.CreateConflict(ctx, conflict); err != nil {
			s.logger.Warn("failed to record schedule conflict",
				zap.String("schedule_id", schedule.ID), zap.String("conflicting_id", other.ID), zap.Error(err))
			continue
		}
		s.logger.Info("schedule conflict recorded",
			zap.String("schedule_id", schedule.ID), zap.String("conflicting_id", other.ID))
	}
}

func windowAt(start time.Time, estimatedMinutes *int) (time.Time, time.Time) {
	minutes := models.DefaultScheduleMinutes
	if estimatedMinutes != nil && *estimatedMinutes > 0 {
		minutes = *estimatedMinutes
	}
	return start, start.Add(time.Duration(minutes) * time.Minute)
}
