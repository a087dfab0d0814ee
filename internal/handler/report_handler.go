package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/carebridge/carebridge-api/internal/dto"
	"github.com/carebridge/carebridge-api/internal/service"
	"github.com/carebridge/carebridge-api/pkg/response"
)

// ReportHandler exposes export endpoints.
type ReportHandler struct {
	service *service.ReportService
}

// NewReportHandler creates a new report handler.
func NewReportHandler(svc *service.ReportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// Timesheet godoc
// @Summary Export timesheet
// @Description Export a carer's shifts as CSV or PDF
// @Tags Reports
// @Produce octet-stream
// @Param carer_id query string false "Carer ID (admins only, defaults to caller)"
// @Param format query string true "csv or pdf"
// @Param date_from query string false "Date lower bound"
// @Param date_to query string false "Date upper bound"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /reports/timesheet [get]
func (h *ReportHandler) Timesheet(c *gin.Context) {
	req := dto.TimesheetReportRequest{
		CarerID:  c.Query("carer_id"),
		Format:   dto.ReportFormat(c.DefaultQuery("format", "csv")),
		DateFrom: queryTime(c, "date_from"),
		DateTo:   queryTime(c, "date_to"),
	}

	file, err := h.service.Timesheet(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	serveReport(c, file)
}

// Incidents godoc
// @Summary Export incident report
// @Description Export behavior incidents as CSV or PDF
// @Tags Reports
// @Produce octet-stream
// @Param format query string true "csv or pdf"
// @Param activity_id query string false "Activity filter"
// @Param client_id query string false "Client filter"
// @Param date_from query string false "Date lower bound"
// @Param date_to query string false "Date upper bound"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /reports/incidents [get]
func (h *ReportHandler) Incidents(c *gin.Context) {
	req := dto.IncidentReportRequest{
		ActivityID: c.Query("activity_id"),
		ClientID:   c.Query("client_id"),
		Format:     dto.ReportFormat(c.DefaultQuery("format", "csv")),
		DateFrom:   queryTime(c, "date_from"),
		DateTo:     queryTime(c, "date_to"),
	}

	file, err := h.service.Incidents(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	serveReport(c, file)
}

func serveReport(c *gin.Context, file *dto.ReportFile) {
	c.Header("Content-Disposition", `attachment; filename="`+file.FileName+`"`)
	c.Data(200, file.ContentType, file.Content)
}
