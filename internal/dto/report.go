package dto

import "time"

// ReportFormat selects the export encoding.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// TimesheetReportRequest scopes a shift timesheet export.
type TimesheetReportRequest struct {
	CarerID  string       `json:"carer_id,omitempty"`
	DateFrom *time.Time   `json:"date_from,omitempty"`
	DateTo   *time.Time   `json:"date_to,omitempty"`
	Format   ReportFormat `json:"format" validate:"required"`
}

// IncidentReportRequest scopes a behavior incident export.
type IncidentReportRequest struct {
	ActivityID string       `json:"activity_id,omitempty"`
	ClientID   string       `json:"client_id,omitempty"`
	DateFrom   *time.Time   `json:"date_from,omitempty"`
	DateTo     *time.Time   `json:"date_to,omitempty"`
	Format     ReportFormat `json:"format" validate:"required"`
}

// ReportFile is a generated export returned for download.
type ReportFile struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Content     []byte `json:"-"`
}
