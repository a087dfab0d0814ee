package service

import (
	"context"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/carebridge/carebridge-api/internal/dto"
	"github.com/carebridge/carebridge-api/internal/models"
	appErrors "github.com/carebridge/carebridge-api/pkg/errors"
)

type shiftListerStub struct {
	shifts []models.Shift
	filter models.ShiftFilter
}

func (s *shiftListerStub) List(ctx context.Context, filter models.ShiftFilter) ([]models.Shift, int, error) {
	s.filter = filter
	return s.shifts, len(s.shifts), nil
}

type incidentListerStub struct {
	incidents []models.BehaviorIncident
}

func (s *incidentListerStub) List(ctx context.Context, filter models.IncidentFilter) ([]models.BehaviorIncident, int, error) {
	return s.incidents, len(s.incidents), nil
}

func newReportService(shifts *shiftListerStub, incidents *incidentListerStub) *ReportService {
	if shifts == nil {
		shifts = &shiftListerStub{}
	}
	if incidents == nil {
		incidents = &incidentListerStub{}
	}
	return NewReportService(shifts, incidents, validator.New(), zap.NewNop())
}

func TestTimesheetCSV(t *testing.T) {
	minutes := 470
	shift := scheduledShift()
	shift.Status = models.ShiftStatusCompleted
	shift.ActualMinutes = &minutes
	shifts := &shiftListerStub{shifts: []models.Shift{shift}}
	svc := newReportService(shifts, nil)

	file, err := svc.Timesheet(context.Background(), carerClaims(), dto.TimesheetReportRequest{Format: dto.ReportFormatCSV})
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.True(t, strings.HasSuffix(file.FileName, ".csv"))

	body := string(file.Content)
	assert.Contains(t, body, "Date,Type,Scheduled Start")
	assert.Contains(t, body, "2026-03-02")
	assert.Contains(t, body, "470")
	// caller without an explicit carer defaults to their own timesheet
	assert.Equal(t, "carer-1", shifts.filter.CarerID)
}

func TestTimesheetOtherCarerForbidden(t *testing.T) {
	svc := newReportService(nil, nil)

	_, err := svc.Timesheet(context.Background(), carerClaims(), dto.TimesheetReportRequest{CarerID: "carer-9", Format: dto.ReportFormatCSV})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestTimesheetPDF(t *testing.T) {
	shifts := &shiftListerStub{shifts: []models.Shift{scheduledShift()}}
	svc := newReportService(shifts, nil)

	file, err := svc.Timesheet(context.Background(), carerClaims(), dto.TimesheetReportRequest{Format: dto.ReportFormatPDF})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.NotEmpty(t, file.Content)
}

func TestTimesheetUnknownFormat(t *testing.T) {
	svc := newReportService(nil, nil)

	_, err := svc.Timesheet(context.Background(), carerClaims(), dto.TimesheetReportRequest{Format: dto.ReportFormat("xlsx")})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestIncidentReportAdminOnly(t *testing.T) {
	svc := newReportService(nil, nil)

	_, err := svc.Incidents(context.Background(), carerClaims(), dto.IncidentReportRequest{Format: dto.ReportFormatCSV})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestIncidentReportCSV(t *testing.T) {
	activityID := "a1"
	incidents := &incidentListerStub{incidents: []models.BehaviorIncident{{
		OccurredAt:       day(3),
		Severity:         models.SeverityCritical,
		BehaviorType:     models.BehaviorAggression,
		Occurrence:       models.OccurrenceDuringActivity,
		Location:         models.LocationHome,
		ActivityID:       &activityID,
		HarmToSelf:       true,
		InterventionUsed: "redirection",
	}}}
	svc := newReportService(nil, incidents)

	file, err := svc.Incidents(context.Background(), adminClaims(), dto.IncidentReportRequest{Format: dto.ReportFormatCSV})
	require.NoError(t, err)

	body := string(file.Content)
	assert.Contains(t, body, "critical")
	assert.Contains(t, body, "aggression")
	assert.Contains(t, body, "self")
}
