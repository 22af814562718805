package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/amal-center/rehab-center-api/internal/dto"
	"github.com/amal-center/rehab-center-api/internal/models"
	appErrors "github.com/amal-center/rehab-center-api/pkg/errors"
)

type planServiceMock struct {
	planResp   *dto.PlanResponse
	plan       *models.RehabPlan
	approveErr error
	lastStatus models.PlanStatus
}

func (m *planServiceMock) Create(ctx context.Context, req dto.CreatePlanRequest, actor *models.JWTClaims) (*dto.PlanResponse, error) {
	return m.planResp, nil
}

func (m *planServiceMock) Get(ctx context.Context, id string, actor *models.JWTClaims) (*dto.PlanResponse, error) {
	return m.planResp, nil
}

func (m *planServiceMock) List(ctx context.Context, query dto.PlanQuery, actor *models.JWTClaims) ([]models.RehabPlan, error) {
	return nil, nil
}

func (m *planServiceMock) AddGoal(ctx context.Context, planID string, req dto.GoalRequest, actor *models.JWTClaims) (*models.RehabPlan, error) {
	return m.plan, nil
}

func (m *planServiceMock) UpdateGoal(ctx context.Context, planID, goalID string, req dto.GoalRequest, actor *models.JWTClaims) (*models.RehabPlan, error) {
	return m.plan, nil
}

func (m *planServiceMock) RemoveGoal(ctx context.Context, planID, goalID string, actor *models.JWTClaims) (*models.RehabPlan, error) {
	return m.plan, nil
}

func (m *planServiceMock) Approve(ctx context.Context, planID string, actor *models.JWTClaims) (*dto.PlanResponse, error) {
	return m.planResp, m.approveErr
}

func (m *planServiceMock) UpdateStatus(ctx context.Context, planID string, status models.PlanStatus, actor *models.JWTClaims) (*models.RehabPlan, error) {
	m.lastStatus = status
	return m.plan, nil
}

func TestPlanHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &planServiceMock{
		planResp: &dto.PlanResponse{Plan: &models.RehabPlan{ID: "plan-1", Status: models.PlanStatusDraft}},
	}
	handler := NewPlanHandler(mockSvc)

	payload, _ := json.Marshal(dto.CreatePlanRequest{BeneficiaryID: "ben-1"})
	c, w := newGinContext(http.MethodPost, "/plans", payload)
	setClaims(c, models.RoleSocialWorker)

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestPlanHandlerApproveDirectorTooEarly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &planServiceMock{
		approveErr: appErrors.Clone(appErrors.ErrPreconditionFailed, "both professional approvals are required first"),
	}
	handler := NewPlanHandler(mockSvc)

	c, w := newGinContext(http.MethodPost, "/plans/plan-1/approve", nil)
	c.Params = gin.Params{{Key: "id", Value: "plan-1"}}
	setClaims(c, models.RoleDirector)

	handler.Approve(c)
	require.Equal(t, http.StatusPreconditionFailed, w.Code)
}

func TestPlanHandlerUpdateStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &planServiceMock{
		plan: &models.RehabPlan{ID: "plan-1", Status: models.PlanStatusActive},
	}
	handler := NewPlanHandler(mockSvc)

	payload, _ := json.Marshal(dto.UpdatePlanStatusRequest{Status: models.PlanStatusActive})
	c, w := newGinContext(http.MethodPut, "/plans/plan-1/status", payload)
	c.Params = gin.Params{{Key: "id", Value: "plan-1"}}
	setClaims(c, models.RoleSocialWorker)

	handler.UpdateStatus(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, models.PlanStatusActive, mockSvc.lastStatus)
}

func TestPlanHandlerGoalValidationError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewPlanHandler(&planServiceMock{})

	c, w := newGinContext(http.MethodPost, "/plans/plan-1/goals", []byte("{not json"))
	c.Params = gin.Params{{Key: "id", Value: "plan-1"}}
	setClaims(c, models.RoleDoctor)

	handler.AddGoal(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
