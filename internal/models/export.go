package models

import "time"

// ExportFormat enumerates downloadable schedule formats.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatPDF  ExportFormat = "pdf"
	ExportFormatXLSX ExportFormat = "xlsx"
)

// ExportRequest is the work item handed to the export worker.
type ExportRequest struct {
	ID          string       `json:"id"`
	Competition string       `json:"competition"`
	Format      ExportFormat `json:"format"`
}

// ExportResult describes a stored export document.
type ExportResult struct {
	ID          string       `json:"id"`
	Competition string       `json:"competition"`
	Format      ExportFormat `json:"format"`
	Version     int          `json:"version"`
	Path        string       `json:"-"`
	URL         string       `json:"url"`
	ExpiresAt   time.Time    `json:"expires_at"`
}

// ExportDownload points at a verified export file on disk.
type ExportDownload struct {
	Path        string
	Filename    string
	ContentType string
}
