package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/carebridge/carebridge-api/internal/dto"
	"github.com/carebridge/carebridge-api/internal/models"
	appErrors "github.com/carebridge/carebridge-api/pkg/errors"
	"github.com/carebridge/carebridge-api/pkg/export"
)

type reportShiftLister interface {
	List(ctx context.Context, filter models.ShiftFilter) ([]models.Shift, int, error)
}

type reportIncidentLister interface {
	List(ctx context.Context, filter models.IncidentFilter) ([]models.BehaviorIncident, int, error)
}

const reportPageSize = 1000

// ReportService renders timesheet and incident exports as CSV or PDF.
type ReportService struct {
	shifts    reportShiftLister
	incidents reportIncidentLister
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReportService constructs a ReportService instance.
func NewReportService(shifts reportShiftLister, incidents reportIncidentLister, validate *validator.Validate, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ReportService{
		shifts:    shifts,
		incidents: incidents,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		validator: validate,
		logger:    logger,
	}
}

// Timesheet exports shifts for a carer over a date range. Carers can
// export their own timesheet; administrators can export anyone's.
func (s *ReportService) Timesheet(ctx context.Context, claims *models.JWTClaims, req dto.TimesheetReportRequest) (*dto.ReportFile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report request")
	}
	if req.CarerID == "" {
		req.CarerID = claims.UserID
	}
	if req.CarerID != claims.UserID && !claims.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot export another carer's timesheet")
	}

	shifts, _, err := s.shifts.List(ctx, models.ShiftFilter{
		CarerID:  req.CarerID,
		DateFrom: req.DateFrom,
		DateTo:   req.DateTo,
		Page:     1,
		PageSize: reportPageSize,
		SortBy:   "date",
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load shifts")
	}

	dataset := export.Dataset{
		Headers: []string{"Date", "Type", "Scheduled Start", "Scheduled End", "Clock In", "Clock Out", "Break (min)", "Worked (min)", "Status", "Rating"},
	}
	for _, shift := range shifts {
		row := map[string]string{
			"Date":            shift.Date.Format("2006-01-02"),
			"Type":            string(shift.ShiftType),
			"Scheduled Start": shift.ScheduledStart.Format("15:04"),
			"Scheduled End":   shift.ScheduledEnd.Format("15:04"),
			"Clock In":        formatClock(shift.ClockIn),
			"Clock Out":       formatClock(shift.ClockOut),
			"Break (min)":     strconv.Itoa(shift.BreakMinutes),
			"Worked (min)":    formatIntPtr(shift.ActualMinutes),
			"Status":          string(shift.Status),
			"Rating":          formatIntPtr(shift.PerformanceRating),
		}
		dataset.Rows = append(dataset.Rows, row)
	}

	return s.render(req.Format, dataset, fmt.Sprintf("timesheet-%s", req.CarerID), "Shift Timesheet")
}

// Incidents exports behavior incidents. Administrators only.
func (s *ReportService) Incidents(ctx context.Context, claims *models.JWTClaims, req dto.IncidentReportRequest) (*dto.ReportFile, error) {
	if !claims.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can export incident reports")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report request")
	}

	incidents, _, err := s.incidents.List(ctx, models.IncidentFilter{
		ActivityID: req.ActivityID,
		ClientID:   req.ClientID,
		DateFrom:   req.DateFrom,
		DateTo:     req.DateTo,
		Page:       1,
		PageSize:   reportPageSize,
		SortBy:     "occurred_at",
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load incidents")
	}

	dataset := export.Dataset{
		Headers: []string{"Occurred At", "Severity", "Behavior", "Occurrence", "Location", "Activity", "Harm", "Intervention", "Effective", "Follow Up"},
	}
	for _, incident := range incidents {
		harm := "none"
		switch {
		case incident.HarmToSelf && incident.HarmToOthers:
			harm = "self+others"
		case incident.HarmToSelf:
			harm = "self"
		case incident.HarmToOthers:
			harm = "others"
		}
		row := map[string]string{
			"Occurred At":  incident.OccurredAt.Format(time.RFC3339),
			"Severity":     string(incident.Severity),
			"Behavior":     string(incident.BehaviorType),
			"Occurrence":   string(incident.Occurrence),
			"Location":     string(incident.Location),
			"Activity":     formatStrPtr(incident.ActivityID),
			"Harm":         harm,
			"Intervention": incident.InterventionUsed,
			"Effective":    formatBoolPtr(incident.InterventionEffective),
			"Follow Up":    strconv.FormatBool(incident.FollowUpRequired),
		}
		dataset.Rows = append(dataset.Rows, row)
	}

	return s.render(req.Format, dataset, "incident-report", "Behavior Incident Report")
}

func (s *ReportService) render(format dto.ReportFormat, dataset export.Dataset, baseName, title string) (*dto.ReportFile, error) {
	stamp := time.Now().UTC().Format("20060102-150405")
	switch format {
	case dto.ReportFormatCSV:
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &dto.ReportFile{FileName: fmt.Sprintf("%s-%s.csv", baseName, stamp), ContentType: "text/csv", Content: content}, nil
	case dto.ReportFormatPDF:
		content, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &dto.ReportFile{FileName: fmt.Sprintf("%s-%s.pdf", baseName, stamp), ContentType: "application/pdf", Content: content}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported report format %q", format))
	}
}

func formatClock(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("15:04")
}

func formatIntPtr(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatStrPtr(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func formatBoolPtr(v *bool) string {
	if v == nil {
		return ""
	}
	return strconv.FormatBool(*v)
}
