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

type shiftRepository interface {
	FindByID(ctx context.Context, id string) (*models.Shift, error)
	List(ctx context.Context, filter models.ShiftFilter) ([]models.Shift, int, error)
	Create(ctx context.Context, shift *models.Shift) error
	UpdateSchedule(ctx context.Context, shift *models.Shift) error
	ClockIn(ctx context.Context, id string, ts time.Time, location *string, early bool) (bool, error)
	ClockOut(ctx context.Context, id string, ts time.Time, location *string, actualMinutes int) (bool, error)
	Cancel(ctx context.Context, id string, ts time.Time) (bool, error)
	MarkNoShows(ctx context.Context, asOf time.Time, grace time.Duration) ([]string, error)
	SetSupervisorReview(ctx context.Context, id string, rating *int, notes *string, ts time.Time) error
	Summary(ctx context.Context, carerID string) (*models.ShiftSummary, error)
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// ShiftConfig governs clock-in policy and the no-show sweep.
type ShiftConfig struct {
	GracePeriod   time.Duration
	SweepInterval time.Duration
}

// ShiftService drives the shift state machine. Every transition runs as
// a conditional update on the current status, so two racing clock
// attempts resolve to one winner; the loser sees a state conflict.
type ShiftService struct {
	repo      shiftRepository
	audit     auditRecorder
	events    eventEmitter
	validator *validator.Validate
	logger    *zap.Logger
	config    ShiftConfig
}

// NewShiftService constructs a ShiftService instance.
func NewShiftService(repo shiftRepository, audit auditRecorder, events eventEmitter, validate *validator.Validate, logger *zap.Logger, config ShiftConfig) *ShiftService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.GracePeriod <= 0 {
		config.GracePeriod = 15 * time.Minute
	}
	return &ShiftService{repo: repo, audit: audit, events: events, validator: validate, logger: logger, config: config}
}

// Create schedules a shift. Administrators schedule anyone; carers may
// self-schedule their own shifts.
func (s *ShiftService) Create(ctx context.Context, claims *models.JWTClaims, req dto.CreateShiftRequest) (*models.Shift, error) {
	if !claims.IsAdmin() && !(claims.CanRecordCare() && req.CarerID == claims.UserID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot schedule shifts for another carer")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid shift payload")
	}
	if !req.ScheduledEnd.After(req.ScheduledStart) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "scheduled end must be after scheduled start")
	}

	assignedBy := claims.UserID
	shift := &models.Shift{
		CarerID:        req.CarerID,
		Date:           req.Date,
		ShiftType:      req.ShiftType,
		ScheduledStart: req.ScheduledStart,
		ScheduledEnd:   req.ScheduledEnd,
		BreakMinutes:   req.BreakMinutes,
		Status:         models.ShiftStatusScheduled,
		AssignedBy:     &assignedBy,
		ClientID:       req.ClientID,
		Location:       req.Location,
		Notes:          req.Notes,
	}
	if err := s.repo.Create(ctx, shift); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create shift")
	}
	return shift, nil
}

// Get returns a shift by ID.
func (s *ShiftService) Get(ctx context.Context, id string) (*models.Shift, error) {
	shift, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "shift not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load shift")
	}
	return shift, nil
}

// List returns shifts matching the filter. Non-admin callers only see
// their own shifts.
func (s *ShiftService) List(ctx context.Context, claims *models.JWTClaims, filter models.ShiftFilter) ([]models.Shift, int, error) {
	if claims != nil && !claims.IsAdmin() {
		filter.CarerID = claims.UserID
	}
	shifts, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list shifts")
	}
	return shifts, total, nil
}

// UpdateSchedule edits a shift that has not started. Administrators only.
func (s *ShiftService) UpdateSchedule(ctx context.Context, claims *models.JWTClaims, id string, req dto.UpdateShiftRequest) (*models.Shift, error) {
	if !claims.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can reschedule shifts")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid shift payload")
	}

	shift, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if shift.Status != models.ShiftStatusScheduled {
		return nil, appErrors.Clone(appErrors.ErrState, fmt.Sprintf("cannot reschedule a %s shift", shift.Status))
	}

	if req.Date != nil {
		shift.Date = *req.Date
	}
	if req.ShiftType != nil {
		shift.ShiftType = *req.ShiftType
	}
	if req.ScheduledStart != nil {
		shift.ScheduledStart = *req.ScheduledStart
	}
	if req.ScheduledEnd != nil {
		shift.ScheduledEnd = *req.ScheduledEnd
	}
	if !shift.ScheduledEnd.After(shift.ScheduledStart) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "scheduled end must be after scheduled start")
	}
	if req.BreakMinutes != nil {
		shift.BreakMinutes = *req.BreakMinutes
	}
	if req.ClientID != nil {
		shift.ClientID = req.ClientID
	}
	if req.Location != nil {
		shift.Location = req.Location
	}
	if req.Notes != nil {
		shift.Notes = req.Notes
	}

	if err := s.repo.UpdateSchedule(ctx, shift); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update shift")
	}
	return shift, nil
}

// ClockIn starts a scheduled shift. Only the assigned carer may clock
// in. A clock-in before the scheduled start is accepted and flagged
// rather than rejected; shifts in care settings often start early.
func (s *ShiftService) ClockIn(ctx context.Context, claims *models.JWTClaims, id string, req dto.ClockRequest) (*models.Shift, error) {
	shift, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if shift.CarerID != claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "shift is assigned to another carer")
	}
	if !claims.CanRecordCare() {
		return nil, appErrors.Clone(appErrors.ErrNotApproved, "account pending approval")
	}
	if shift.Status != models.ShiftStatusScheduled {
		return nil, appErrors.Clone(appErrors.ErrState, fmt.Sprintf("cannot clock in a %s shift", shift.Status))
	}

	ts := time.Now().UTC()
	if req.Timestamp != nil {
		ts = req.Timestamp.UTC()
	}
	early := ts.Before(shift.ScheduledStart)

	won, err := s.repo.ClockIn(ctx, id, ts, req.Location, early)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clock in")
	}
	if !won {
		return nil, appErrors.Clone(appErrors.ErrState, "shift already clocked in")
	}

	shift.Status = models.ShiftStatusInProgress
	shift.ClockIn = &ts
	shift.ClockInLocation = req.Location
	shift.EarlyClockIn = early

	s.recordAudit(ctx, claims.UserID, models.AuditActionClockIn, shift.ID)
	return shift, nil
}

// ClockOut completes an in-progress shift and derives the worked
// duration net of breaks, clamped to zero.
func (s *ShiftService) ClockOut(ctx context.Context, claims *models.JWTClaims, id string, req dto.ClockRequest) (*models.Shift, error) {
	shift, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if shift.CarerID != claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "shift is assigned to another carer")
	}
	if shift.Status != models.ShiftStatusInProgress {
		return nil, appErrors.Clone(appErrors.ErrState, fmt.Sprintf("cannot clock out a %s shift", shift.Status))
	}

	ts := time.Now().UTC()
	if req.Timestamp != nil {
		ts = req.Timestamp.UTC()
	}

	actualMinutes := 0
	if shift.ClockIn != nil {
		actualMinutes = int(ts.Sub(*shift.ClockIn).Minutes()) - shift.BreakMinutes
		if actualMinutes < 0 {
			actualMinutes = 0
		}
	}

	won, err := s.repo.ClockOut(ctx, id, ts, req.Location, actualMinutes)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clock out")
	}
	if !won {
		return nil, appErrors.Clone(appErrors.ErrState, "shift already clocked out")
	}

	shift.Status = models.ShiftStatusCompleted
	shift.ClockOut = &ts
	shift.ClockOutLocation = req.Location
	shift.ActualMinutes = &actualMinutes

	s.recordAudit(ctx, claims.UserID, models.AuditActionClockOut, shift.ID)
	return shift, nil
}

// Cancel voids a scheduled shift. Administrators only.
func (s *ShiftService) Cancel(ctx context.Context, claims *models.JWTClaims, id string) error {
	if !claims.IsAdmin() {
		return appErrors.Clone(appErrors.ErrForbidden, "only administrators can cancel shifts")
	}
	shift, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if shift.Status != models.ShiftStatusScheduled {
		return appErrors.Clone(appErrors.ErrState, fmt.Sprintf("cannot cancel a %s shift", shift.Status))
	}

	won, err := s.repo.Cancel(ctx, id, time.Now().UTC())
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel shift")
	}
	if !won {
		return appErrors.Clone(appErrors.ErrState, "shift status changed concurrently")
	}
	return nil
}

// MarkNoShows is the reconciliation sweep: any shift still scheduled
// past its start plus the grace period is marked no_show. Returns the
// number of shifts transitioned.
func (s *ShiftService) MarkNoShows(ctx context.Context, asOf time.Time) (int, error) {
	ids, err := s.repo.MarkNoShows(ctx, asOf, s.config.GracePeriod)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "no-show sweep failed")
	}

	for _, id := range ids {
		s.recordAudit(ctx, "", models.AuditActionShiftNoShow, id)
		if s.events != nil {
			if err := s.events.Emit(ctx, models.EventShiftNoShow, id, "shift_no_show:"+id, nil, asOf); err != nil {
				s.logger.Warn("failed to emit no-show event", zap.String("shift_id", id), zap.Error(err))
			}
		}
	}
	if len(ids) > 0 {
		s.logger.Info("no-show sweep transitioned shifts", zap.Int("count", len(ids)), zap.Time("as_of", asOf))
	}
	return len(ids), nil
}

// RunNoShowSweep periodically reconciles no-shows until the context is
// cancelled.
func (s *ShiftService) RunNoShowSweep(ctx context.Context) {
	interval := s.config.SweepInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if _, err := s.MarkNoShows(ctx, now.UTC()); err != nil {
				s.logger.Warn("no-show sweep failed", zap.Error(err))
			}
		}
	}
}

// SupervisorReview sets post-shift rating and notes. Editable after
// completion, by administrators only.
func (s *ShiftService) SupervisorReview(ctx context.Context, claims *models.JWTClaims, id string, req dto.SupervisorReviewRequest) (*models.Shift, error) {
	if !claims.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can review shifts")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}

	shift, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if shift.Status != models.ShiftStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrState, "only completed shifts can be reviewed")
	}

	now := time.Now().UTC()
	if err := s.repo.SetSupervisorReview(ctx, id, req.PerformanceRating, req.SupervisorNotes, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save review")
	}

	if req.PerformanceRating != nil {
		shift.PerformanceRating = req.PerformanceRating
	}
	if req.SupervisorNotes != nil {
		shift.SupervisorNotes = req.SupervisorNotes
	}
	return shift, nil
}

// Summary aggregates worked time for one carer.
func (s *ShiftService) Summary(ctx context.Context, claims *models.JWTClaims, carerID string) (*models.ShiftSummary, error) {
	if carerID == "" {
		carerID = claims.UserID
	}
	if carerID != claims.UserID && !claims.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot view another carer's summary")
	}
	summary, err := s.repo.Summary(ctx, carerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute shift summary")
	}
	return summary, nil
}

func (s *ShiftService) recordAudit(ctx context.Context, userID, action, shiftID string) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		Action:     action,
		Resource:   "shifts",
		ResourceID: &shiftID,
	}
	if userID != "" {
		log.UserID = &userID
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record shift audit log", zap.String("shift_id", shiftID), zap.Error(err))
	}
}
