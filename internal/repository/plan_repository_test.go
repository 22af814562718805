package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/amal-center/rehab-center-api/internal/models"
)

func newPlanRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestPlanRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newPlanRepoMock(t)
	defer cleanup()

	repo := NewPlanRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO rehab_plans")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	plan := &models.RehabPlan{
		BeneficiaryID:   "ben-1",
		BeneficiaryName: "Ahmed",
		MedicalContext:  models.MedicalContext{Diagnosis: "cerebral palsy"},
		SocialContext:   models.SocialContext{EconomicStatus: "low income", RiskLevel: models.RiskMedium},
		CreatedBy:       "sw-1",
	}
	require.NoError(t, repo.Create(context.Background(), plan))
	require.NotEmpty(t, plan.ID)
	require.Equal(t, models.PlanStatusDraft, plan.Status)
	require.Len(t, plan.Approvals, 3)
	require.False(t, plan.Approvals.Complete())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanRepositoryGetByID(t *testing.T) {
	db, mock, cleanup := newPlanRepoMock(t)
	defer cleanup()

	repo := NewPlanRepository(db)
	rows := sqlmock.NewRows([]string{"id", "beneficiary_id", "beneficiary_name", "medical_context", "social_context", "goals", "approvals", "status", "created_by", "created_at", "updated_at"}).
		AddRow("plan-1", "ben-1", "Ahmed", `{"diagnosis":"cerebral palsy","needs":["physiotherapy"]}`, `{"economicStatus":"low income","riskLevel":"medium"}`, `[]`, `[{"role":"DOCTOR","status":"approved"},{"role":"SOCIAL_WORKER","status":"pending"},{"role":"DIRECTOR","status":"pending"}]`, "draft", "sw-1", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, beneficiary_id, beneficiary_name")).
		WithArgs("plan-1").
		WillReturnRows(rows)

	plan, err := repo.GetByID(context.Background(), "plan-1")
	require.NoError(t, err)
	require.Equal(t, "cerebral palsy", plan.MedicalContext.Diagnosis)
	doctor, ok := plan.Approvals.Get(models.RoleDoctor)
	require.True(t, ok)
	require.Equal(t, models.ApprovalStatusApproved, doctor.Status)
	require.False(t, plan.Approvals.PeersApproved())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanRepositoryUpdateApprovalsMissingRow(t *testing.T) {
	db, mock, cleanup := newPlanRepoMock(t)
	defer cleanup()

	repo := NewPlanRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE rehab_plans SET approvals")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateApprovals(context.Background(), "missing", models.NewPlanApprovals(), time.Now().UTC())
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanRepositoryUpdateGoals(t *testing.T) {
	db, mock, cleanup := newPlanRepoMock(t)
	defer cleanup()

	repo := NewPlanRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE rehab_plans SET goals")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	goals := models.SmartGoals{{
		ID:     "goal-1",
		Type:   models.GoalTypePhysiotherapy,
		Title:  "Improve joint range of motion",
		Status: models.GoalStatusPending,
	}}
	require.NoError(t, repo.UpdateGoals(context.Background(), "plan-1", goals, time.Now().UTC()))
	require.NoError(t, mock.ExpectationsWereMet())
}
