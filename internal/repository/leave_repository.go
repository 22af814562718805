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

// LeaveRepository persists leave request workflow data.
type LeaveRepository struct {
	db *sqlx.DB
}

// NewLeaveRepository constructs the repository.
func NewLeaveRepository(db *sqlx.DB) *LeaveRepository {
	return &LeaveRepository{db: db}
}

const leaveColumns = `id, beneficiary_id, beneficiary_name, type, request_date, start_date, end_date,
       duration_days, guardian_name, guardian_phone, reason, status, medical_clearance, history, created_at, updated_at`

// Create inserts a new leave request row.
func (r *LeaveRepository) Create(ctx context.Context, request *models.LeaveRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if request.CreatedAt.IsZero() {
		request.CreatedAt = now
	}
	request.UpdatedAt = now
	const query = `INSERT INTO leave_requests
	(id, beneficiary_id, beneficiary_name, type, request_date, start_date, end_date, duration_days,
	 guardian_name, guardian_phone, reason, status, medical_clearance, history, created_at, updated_at)
	VALUES (:id, :beneficiary_id, :beneficiary_name, :type, :request_date, :start_date, :end_date, :duration_days,
	 :guardian_name, :guardian_phone, :reason, :status, :medical_clearance, :history, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create leave request: %w", err)
	}
	return nil
}

// GetByID fetches a leave request by identifier.
func (r *LeaveRepository) GetByID(ctx context.Context, id string) (*models.LeaveRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM leave_requests WHERE id = $1", leaveColumns)
	var request models.LeaveRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// List returns leave requests matching the filter (latest first).
func (r *LeaveRepository) List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRequest, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString(fmt.Sprintf("SELECT %s FROM leave_requests", leaveColumns))

	conditions := make([]string, 0, 3)
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.BeneficiaryID != "" {
		args = append(args, filter.BeneficiaryID)
		conditions = append(conditions, fmt.Sprintf("beneficiary_id = $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY request_date DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var requests []models.LeaveRequest
	if err := r.db.SelectContext(ctx, &requests, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list leave requests: %w", err)
	}
	return requests, nil
}

// LeaveTransitionParams groups the columns a workflow transition replaces.
// The update is guarded by the expected current status so the status change
// and its history append land atomically or not at all.
type LeaveTransitionParams struct {
	ID         string
	FromStatus models.LeaveStatus
	ToStatus   models.LeaveStatus
	Clearance  *models.MedicalClearance
	History    models.LeaveHistory
	UpdatedAt  time.Time
}

// ApplyTransition persists a workflow transition as a whole-record
// replacement of the mutable columns. Zero rows affected means the request
// was no longer in the expected state.
func (r *LeaveRepository) ApplyTransition(ctx context.Context, params LeaveTransitionParams) error {
	setParts := []string{
		"status = :to_status",
		"history = :history",
		"updated_at = :updated_at",
	}
	if params.Clearance != nil {
		setParts = append(setParts, "medical_clearance = :medical_clearance")
	}
	query := fmt.Sprintf("UPDATE leave_requests SET %s WHERE id = :id AND status = :from_status",
		strings.Join(setParts, ", "))
	args := map[string]interface{}{
		"id":          params.ID,
		"from_status": params.FromStatus,
		"to_status":   params.ToStatus,
		"history":     params.History,
		"updated_at":  params.UpdatedAt,
	}
	if params.Clearance != nil {
		args["medical_clearance"] = *params.Clearance
	}
	result, err := r.db.NamedExecContext(ctx, query, args)
	if err != nil {
		return fmt.Errorf("apply leave transition: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check leave transition rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
