package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/amal-center/rehab-center-api/internal/models"
)

// PlanRepository persists rehabilitation plan data.
type PlanRepository struct {
	db *sqlx.DB
}

// NewPlanRepository constructs the repository.
func NewPlanRepository(db *sqlx.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

const planColumns = `id, beneficiary_id, beneficiary_name, medical_context, social_context, goals,
       approvals, status, created_by, created_at, updated_at`

// Create inserts a new plan row.
func (r *PlanRepository) Create(ctx context.Context, plan *models.RehabPlan) error {
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	if plan.Status == "" {
		plan.Status = models.PlanStatusDraft
	}
	if plan.Approvals == nil {
		plan.Approvals = models.NewPlanApprovals()
	}
	now := time.Now().UTC()
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = now
	}
	plan.UpdatedAt = now
	const query = `INSERT INTO rehab_plans
	(id, beneficiary_id, beneficiary_name, medical_context, social_context, goals, approvals, status, created_by, created_at, updated_at)
	VALUES (:id, :beneficiary_id, :beneficiary_name, :medical_context, :social_context, :goals, :approvals, :status, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, plan); err != nil {
		return fmt.Errorf("create rehab plan: %w", err)
	}
	return nil
}

// GetByID fetches a plan by identifier.
func (r *PlanRepository) GetByID(ctx context.Context, id string) (*models.RehabPlan, error) {
	query := fmt.Sprintf("SELECT %s FROM rehab_plans WHERE id = $1", planColumns)
	var plan models.RehabPlan
	if err := r.db.GetContext(ctx, &plan, query, id); err != nil {
		return nil, err
	}
	return &plan, nil
}

// List returns plans matching the filter (latest first).
func (r *PlanRepository) List(ctx context.Context, filter models.PlanFilter) ([]models.RehabPlan, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 3)
	builder.WriteString(fmt.Sprintf("SELECT %s FROM rehab_plans", planColumns))

	conditions := make([]string, 0, 2)
	if filter.BeneficiaryID != "" {
		args = append(args, filter.BeneficiaryID)
		conditions = append(conditions, fmt.Sprintf("beneficiary_id = $%d", len(args)))
	}
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var plans []models.RehabPlan
	if err := r.db.SelectContext(ctx, &plans, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list rehab plans: %w", err)
	}
	return plans, nil
}

// UpdateGoals replaces the goal list wholesale.
func (r *PlanRepository) UpdateGoals(ctx context.Context, id string, goals models.SmartGoals, updatedAt time.Time) error {
	const query = `UPDATE rehab_plans SET goals = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, goals, updatedAt, id)
	if err != nil {
		return fmt.Errorf("update plan goals: %w", err)
	}
	return requireRow(result)
}

// UpdateApprovals replaces the approvals set wholesale.
func (r *PlanRepository) UpdateApprovals(ctx context.Context, id string, approvals models.PlanApprovals, updatedAt time.Time) error {
	const query = `UPDATE rehab_plans SET approvals = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, approvals, updatedAt, id)
	if err != nil {
		return fmt.Errorf("update plan approvals: %w", err)
	}
	return requireRow(result)
}

// UpdateStatus moves the caller-managed plan lifecycle.
func (r *PlanRepository) UpdateStatus(ctx context.Context, id string, status models.PlanStatus, updatedAt time.Time) error {
	const query = `UPDATE rehab_plans SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, status, updatedAt, id)
	if err != nil {
		return fmt.Errorf("update plan status: %w", err)
	}
	return requireRow(result)
}

func requireRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check affected rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
