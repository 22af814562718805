package dto

import "github.com/amal-center/rehab-center-api/internal/models"

// ReportRequest asks for an asynchronous register export.
type ReportRequest struct {
	Type          models.ReportType   `json:"type"`
	Format        models.ReportFormat `json:"format"`
	BeneficiaryID string              `json:"beneficiaryId,omitempty"`
}

// ReportJobResponse acknowledges a queued export.
type ReportJobResponse struct {
	ID     string              `json:"id"`
	Status models.ReportStatus `json:"status"`
}

// ReportStatusResponse exposes job progress to the polling client.
type ReportStatusResponse struct {
	ID        string              `json:"id"`
	Status    models.ReportStatus `json:"status"`
	ResultURL *string             `json:"result_url,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
