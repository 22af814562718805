package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/amal-center/rehab-center-api/internal/models"
	appErrors "github.com/amal-center/rehab-center-api/pkg/errors"
)

type beneficiaryStore interface {
	List(ctx context.Context, filter models.BeneficiaryFilter) ([]models.Beneficiary, int, error)
	FindByID(ctx context.Context, id string) (*models.Beneficiary, error)
	Create(ctx context.Context, beneficiary *models.Beneficiary) error
}

// BeneficiaryService exposes the resident directory.
type BeneficiaryService struct {
	repo   beneficiaryStore
	logger *zap.Logger
}

// NewBeneficiaryService constructs the service.
func NewBeneficiaryService(repo beneficiaryStore, logger *zap.Logger) *BeneficiaryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BeneficiaryService{repo: repo, logger: logger}
}

// List returns beneficiaries with pagination metadata.
func (s *BeneficiaryService) List(ctx context.Context, filter models.BeneficiaryFilter) ([]models.Beneficiary, *models.Pagination, error) {
	beneficiaries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list beneficiaries")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return beneficiaries, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a single beneficiary.
func (s *BeneficiaryService) Get(ctx context.Context, id string) (*models.Beneficiary, error) {
	beneficiary, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "beneficiary not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load beneficiary")
	}
	return beneficiary, nil
}

// Create registers a new beneficiary record.
func (s *BeneficiaryService) Create(ctx context.Context, beneficiary *models.Beneficiary) (*models.Beneficiary, error) {
	if strings.TrimSpace(beneficiary.FullName) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "fullName is required")
	}
	if beneficiary.Age < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "age must not be negative")
	}
	if beneficiary.AdmissionDate.IsZero() {
		beneficiary.AdmissionDate = time.Now().UTC()
	}
	beneficiary.Active = true
	if err := s.repo.Create(ctx, beneficiary); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create beneficiary")
	}
	return beneficiary, nil
}
