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

func newLeaveRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestLeaveRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newLeaveRepoMock(t)
	defer cleanup()

	repo := NewLeaveRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO leave_requests")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	request := &models.LeaveRequest{
		BeneficiaryID:   "ben-1",
		BeneficiaryName: "Ahmed",
		Type:            models.LeaveTypeHomeVisit,
		RequestDate:     time.Now().UTC(),
		StartDate:       time.Now().UTC(),
		EndDate:         time.Now().UTC().AddDate(0, 0, 2),
		DurationDays:    3,
		GuardianName:    "Guardian",
		GuardianPhone:   "0500000000",
		Reason:          "family visit",
		Status:          models.LeaveStatusPendingMedical,
		History: models.LeaveHistory{{
			ActorID: "sw-1", ActorName: "Sara", Role: models.RoleSocialWorker,
			Action: models.LeaveActionRequest, Timestamp: time.Now().UTC(),
		}},
	}
	require.NoError(t, repo.Create(context.Background(), request))
	require.NotEmpty(t, request.ID)

	rows := sqlmock.NewRows([]string{"id", "beneficiary_id", "beneficiary_name", "type", "request_date", "start_date", "end_date", "duration_days", "guardian_name", "guardian_phone", "reason", "status", "medical_clearance", "history", "created_at", "updated_at"}).
		AddRow(request.ID, "ben-1", "Ahmed", "HOME_VISIT", time.Now(), time.Now(), time.Now(), 3, "Guardian", "0500000000", "family visit", "PENDING_MEDICAL", nil, `[{"action":"request"}]`, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, beneficiary_id, beneficiary_name")).
		WithArgs(request.ID).
		WillReturnRows(rows)

	found, err := repo.GetByID(context.Background(), request.ID)
	require.NoError(t, err)
	require.Equal(t, request.ID, found.ID)
	require.Len(t, found.History, 1)
	require.Nil(t, found.Clearance)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newLeaveRepoMock(t)
	defer cleanup()

	repo := NewLeaveRepository(db)
	rows := sqlmock.NewRows([]string{"id", "beneficiary_id", "beneficiary_name", "type", "request_date", "start_date", "end_date", "duration_days", "guardian_name", "guardian_phone", "reason", "status", "medical_clearance", "history", "created_at", "updated_at"}).
		AddRow("leave-1", "ben-1", "Ahmed", "HOSPITAL", time.Now(), time.Now(), time.Now(), 1, "Guardian", "0500000000", "checkup", "PENDING_MEDICAL", nil, `[]`, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, beneficiary_id, beneficiary_name")).
		WithArgs("PENDING_MEDICAL", "PENDING_DIRECTOR", "ben-1").
		WillReturnRows(rows)

	list, err := repo.List(context.Background(), models.LeaveFilter{
		Status:        []models.LeaveStatus{models.LeaveStatusPendingMedical, models.LeaveStatusPendingDirector},
		BeneficiaryID: "ben-1",
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "leave-1", list[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveRepositoryApplyTransition(t *testing.T) {
	db, mock, cleanup := newLeaveRepoMock(t)
	defer cleanup()

	repo := NewLeaveRepository(db)
	now := time.Now().UTC()
	params := LeaveTransitionParams{
		ID:         "leave-1",
		FromStatus: models.LeaveStatusPendingMedical,
		ToStatus:   models.LeaveStatusPendingDirector,
		Clearance: &models.MedicalClearance{
			ClearedBy: "doc-1", ClearedAt: now, IsFit: true,
		},
		History: models.LeaveHistory{{
			ActorID: "doc-1", Action: models.LeaveActionApprove, Timestamp: now,
		}},
		UpdatedAt: now,
	}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE leave_requests SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.ApplyTransition(context.Background(), params))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveRepositoryApplyTransitionConflict(t *testing.T) {
	db, mock, cleanup := newLeaveRepoMock(t)
	defer cleanup()

	repo := NewLeaveRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE leave_requests SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.ApplyTransition(context.Background(), LeaveTransitionParams{
		ID:         "leave-1",
		FromStatus: models.LeaveStatusPendingDirector,
		ToStatus:   models.LeaveStatusApproved,
		History:    models.LeaveHistory{},
		UpdatedAt:  time.Now().UTC(),
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
}
