package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/amal-center/rehab-center-api/internal/models"
)

// MedicalRepository persists admission clinical snapshots.
type MedicalRepository struct {
	db *sqlx.DB
}

// NewMedicalRepository constructs the repository.
func NewMedicalRepository(db *sqlx.DB) *MedicalRepository {
	return &MedicalRepository{db: db}
}

const profileColumns = `id, beneficiary_id, admission_date, primary_diagnosis, is_epileptic,
       latest_vitals, history, infection_status, checkup_comment, created_by, created_at`

// Create inserts an admission profile row.
func (r *MedicalRepository) Create(ctx context.Context, profile *models.MedicalProfile) error {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO medical_profiles
	(id, beneficiary_id, admission_date, primary_diagnosis, is_epileptic, latest_vitals, history, infection_status, checkup_comment, created_by, created_at)
	VALUES (:id, :beneficiary_id, :admission_date, :primary_diagnosis, :is_epileptic, :latest_vitals, :history, :infection_status, :checkup_comment, :created_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("create medical profile: %w", err)
	}
	return nil
}

// LatestByBeneficiary returns the most recent admission snapshot for a
// beneficiary, used by the leave review advisory.
func (r *MedicalRepository) LatestByBeneficiary(ctx context.Context, beneficiaryID string) (*models.MedicalProfile, error) {
	query := fmt.Sprintf("SELECT %s FROM medical_profiles WHERE beneficiary_id = $1 ORDER BY created_at DESC LIMIT 1", profileColumns)
	var profile models.MedicalProfile
	if err := r.db.GetContext(ctx, &profile, query, beneficiaryID); err != nil {
		return nil, err
	}
	return &profile, nil
}
