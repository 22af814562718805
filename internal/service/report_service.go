package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/amal-center/rehab-center-api/internal/dto"
	"github.com/amal-center/rehab-center-api/internal/models"
	"github.com/amal-center/rehab-center-api/pkg/config"
	appErrors "github.com/amal-center/rehab-center-api/pkg/errors"
	"github.com/amal-center/rehab-center-api/pkg/export"
	"github.com/amal-center/rehab-center-api/pkg/jobs"
	"github.com/amal-center/rehab-center-api/pkg/storage"
)

type reportStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	GetByID(ctx context.Context, id string) (*models.ReportJob, error)
	Update(ctx context.Context, job *models.ReportJob) error
	ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error)
}

type leaveLister interface {
	List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRequest, error)
}

type planLister interface {
	List(ctx context.Context, filter models.PlanFilter) ([]models.RehabPlan, error)
}

// ReportService generates register exports on a background worker pool and
// hands out short-lived signed download tokens.
type ReportService struct {
	repo    reportStore
	leaves  leaveLister
	plans   planLister
	store   *storage.LocalStorage
	signer  *storage.SignedURLSigner
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	queue   *jobs.Queue
	metrics *MetricsService
	logger  *zap.Logger
	ttl     time.Duration
}

// NewReportService constructs the service and its worker queue. Call Start
// before enqueueing work.
func NewReportService(repo reportStore, leaves leaveLister, plans planLister, store *storage.LocalStorage, signer *storage.SignedURLSigner, metrics *MetricsService, cfg config.ReportsConfig, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ReportService{
		repo:    repo,
		leaves:  leaves,
		plans:   plans,
		store:   store,
		signer:  signer,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		metrics: metrics,
		logger:  logger,
		ttl:     cfg.SignedURLTTL,
	}
	s.queue = jobs.NewQueue("reports", s.process, jobs.QueueConfig{
		Workers:    cfg.WorkerConcurrency,
		MaxRetries: cfg.WorkerRetries,
		Logger:     logger,
	})
	return s
}

// Start launches the worker pool and requeues jobs left over from a previous
// run.
func (s *ReportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
	pending, err := s.repo.ListQueued(ctx, 50)
	if err != nil {
		s.logger.Warn("failed to list queued report jobs", zap.Error(err))
		return
	}
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
			s.logger.Warn("failed to requeue report job", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
}

// Stop drains the worker pool.
func (s *ReportService) Stop() {
	s.queue.Stop()
}

// CreateJob validates and queues an export request.
func (s *ReportService) CreateJob(ctx context.Context, req dto.ReportRequest, actor *models.JWTClaims) (*dto.ReportJobResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	switch req.Type {
	case models.ReportTypeLeaveRegister, models.ReportTypePlanSummary:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported report type")
	}
	switch req.Format {
	case models.ReportFormatCSV, models.ReportFormatPDF:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	job := &models.ReportJob{
		Type:      req.Type,
		Params:    models.ReportJobParams{BeneficiaryID: req.BeneficiaryID, Format: req.Format},
		Status:    models.ReportStatusQueued,
		CreatedBy: actor.UserID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue report job")
	}
	return &dto.ReportJobResponse{ID: job.ID, Status: job.Status}, nil
}

// GetStatus returns job progress for polling clients.
func (s *ReportService) GetStatus(ctx context.Context, id string, actor *models.JWTClaims) (*dto.ReportStatusResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	return &dto.ReportStatusResponse{
		ID:        job.ID,
		Status:    job.Status,
		ResultURL: job.ResultURL,
		Error:     job.ErrorMessage,
	}, nil
}

// ResolveDownload validates a signed token and opens the referenced export
// file.
func (s *ReportService) ResolveDownload(ctx context.Context, token string) (*os.File, string, error) {
	jobID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "report job not found")
	}
	if job.Status != models.ReportStatusFinished {
		return nil, "", appErrors.Clone(appErrors.ErrPreconditionFailed, "report is not ready")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export file no longer available")
	}
	return file, filepath.Base(relPath), nil
}

// CleanupExpired deletes export files older than the signed URL TTL.
func (s *ReportService) CleanupExpired() {
	deleted, err := s.store.CleanupOlderThan(s.ttl)
	if err != nil {
		s.logger.Warn("export cleanup failed", zap.Error(err))
		return
	}
	if len(deleted) > 0 {
		s.logger.Info("expired exports removed", zap.Int("count", len(deleted)))
	}
}

func (s *ReportService) process(ctx context.Context, job jobs.Job) error {
	record, err := s.repo.GetByID(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("load report job %s: %w", job.ID, err)
	}
	if record.Status == models.ReportStatusFinished {
		return nil
	}

	record.Status = models.ReportStatusProcessing
	if err := s.repo.Update(ctx, record); err != nil {
		return fmt.Errorf("mark job processing: %w", err)
	}

	resultURL, err := s.generate(ctx, record)
	now := time.Now().UTC()
	record.FinishedAt = &now
	if err != nil {
		message := err.Error()
		record.Status = models.ReportStatusFailed
		record.ErrorMessage = &message
		s.metrics.RecordReportJob(string(models.ReportStatusFailed))
		if updateErr := s.repo.Update(ctx, record); updateErr != nil {
			s.logger.Error("failed to persist failed report job", zap.String("job_id", record.ID), zap.Error(updateErr))
		}
		return err
	}

	record.Status = models.ReportStatusFinished
	record.ResultURL = &resultURL
	record.ErrorMessage = nil
	s.metrics.RecordReportJob(string(models.ReportStatusFinished))
	if err := s.repo.Update(ctx, record); err != nil {
		return fmt.Errorf("persist finished report job: %w", err)
	}
	s.logger.Info("report job finished", zap.String("job_id", record.ID), zap.String("type", string(record.Type)))
	return nil
}

func (s *ReportService) generate(ctx context.Context, record *models.ReportJob) (string, error) {
	var (
		dataset export.Dataset
		title   string
		err     error
	)
	switch record.Type {
	case models.ReportTypeLeaveRegister:
		dataset, err = s.leaveRegisterDataset(ctx, record.Params.BeneficiaryID)
		title = "Leave Register"
	case models.ReportTypePlanSummary:
		dataset, err = s.planSummaryDataset(ctx, record.Params.BeneficiaryID)
		title = "Rehabilitation Plan Summary"
	default:
		return "", fmt.Errorf("unsupported report type %s", record.Type)
	}
	if err != nil {
		return "", err
	}

	var payload []byte
	ext := string(record.Params.Format)
	switch record.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		return "", fmt.Errorf("unsupported report format %s", record.Params.Format)
	}
	if err != nil {
		return "", err
	}

	filename := fmt.Sprintf("%s/%s-%s.%s", time.Now().UTC().Format("2006-01"), record.Type, record.ID, ext)
	relPath, err := s.store.Save(filename, payload)
	if err != nil {
		return "", err
	}
	token, _, err := s.signer.Generate(record.ID, relPath)
	if err != nil {
		return "", err
	}
	return "/reports/download/" + token, nil
}

func (s *ReportService) leaveRegisterDataset(ctx context.Context, beneficiaryID string) (export.Dataset, error) {
	requests, err := s.leaves.List(ctx, models.LeaveFilter{BeneficiaryID: beneficiaryID, Limit: 200})
	if err != nil {
		return export.Dataset{}, fmt.Errorf("collect leave register: %w", err)
	}
	headers := []string{"Beneficiary", "Type", "Status", "Start", "End", "Days", "Guardian", "Reason"}
	rows := make([]map[string]string, 0, len(requests))
	for _, r := range requests {
		rows = append(rows, map[string]string{
			"Beneficiary": r.BeneficiaryName,
			"Type":        string(r.Type),
			"Status":      string(r.Status),
			"Start":       r.StartDate.Format(leaveDateLayout),
			"End":         r.EndDate.Format(leaveDateLayout),
			"Days":        strconv.Itoa(r.DurationDays),
			"Guardian":    r.GuardianName,
			"Reason":      r.Reason,
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}, nil
}

func (s *ReportService) planSummaryDataset(ctx context.Context, beneficiaryID string) (export.Dataset, error) {
	plans, err := s.plans.List(ctx, models.PlanFilter{BeneficiaryID: beneficiaryID, Limit: 200})
	if err != nil {
		return export.Dataset{}, fmt.Errorf("collect plan summary: %w", err)
	}
	headers := []string{"Beneficiary", "Status", "Goals", "Approvals", "Diagnosis"}
	rows := make([]map[string]string, 0, len(plans))
	for _, p := range plans {
		approved := 0
		for _, a := range p.Approvals {
			if a.Status == models.ApprovalStatusApproved {
				approved++
			}
		}
		rows = append(rows, map[string]string{
			"Beneficiary": p.BeneficiaryName,
			"Status":      string(p.Status),
			"Goals":       strconv.Itoa(len(p.Goals)),
			"Approvals":   fmt.Sprintf("%d/%d", approved, len(p.Approvals)),
			"Diagnosis":   strings.TrimSpace(p.MedicalContext.Diagnosis),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}, nil
}
