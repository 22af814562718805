package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/amal-center/rehab-center-api/internal/models"
)

// BeneficiaryRepository manages persistence for beneficiaries.
type BeneficiaryRepository struct {
	db *sqlx.DB
}

// NewBeneficiaryRepository constructs a BeneficiaryRepository.
func NewBeneficiaryRepository(db *sqlx.DB) *BeneficiaryRepository {
	return &BeneficiaryRepository{db: db}
}

const beneficiaryColumns = `id, full_name, age, medical_diagnosis, social_status, notes, admission_date, active, created_at, updated_at`

// List returns beneficiaries matching filters along with total count.
func (r *BeneficiaryRepository) List(ctx context.Context, filter models.BeneficiaryFilter) ([]models.Beneficiary, int, error) {
	base := "FROM beneficiaries WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		search := "%" + strings.ToLower(filter.Search) + "%"
		conditions = append(conditions, fmt.Sprintf("(LOWER(full_name) LIKE $%d OR LOWER(medical_diagnosis) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, search)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY full_name ASC LIMIT %d OFFSET %d", beneficiaryColumns, base, size, offset)
	var beneficiaries []models.Beneficiary
	if err := r.db.SelectContext(ctx, &beneficiaries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list beneficiaries: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count beneficiaries: %w", err)
	}

	return beneficiaries, total, nil
}

// FindByID fetches a beneficiary by ID.
func (r *BeneficiaryRepository) FindByID(ctx context.Context, id string) (*models.Beneficiary, error) {
	query := fmt.Sprintf("SELECT %s FROM beneficiaries WHERE id = $1", beneficiaryColumns)
	var beneficiary models.Beneficiary
	if err := r.db.GetContext(ctx, &beneficiary, query, id); err != nil {
		return nil, err
	}
	return &beneficiary, nil
}

// Create inserts a beneficiary row.
func (r *BeneficiaryRepository) Create(ctx context.Context, beneficiary *models.Beneficiary) error {
	if beneficiary.ID == "" {
		beneficiary.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if beneficiary.CreatedAt.IsZero() {
		beneficiary.CreatedAt = now
	}
	beneficiary.UpdatedAt = now
	const query = `INSERT INTO beneficiaries
	(id, full_name, age, medical_diagnosis, social_status, notes, admission_date, active, created_at, updated_at)
	VALUES (:id, :full_name, :age, :medical_diagnosis, :social_status, :notes, :admission_date, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, beneficiary); err != nil {
		return fmt.Errorf("create beneficiary: %w", err)
	}
	return nil
}
