package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/amal-center/rehab-center-api/internal/dto"
	"github.com/amal-center/rehab-center-api/internal/models"
	appErrors "github.com/amal-center/rehab-center-api/pkg/errors"
	"github.com/amal-center/rehab-center-api/pkg/response"
)

type planService interface {
	Create(ctx context.Context, req dto.CreatePlanRequest, actor *models.JWTClaims) (*dto.PlanResponse, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*dto.PlanResponse, error)
	List(ctx context.Context, query dto.PlanQuery, actor *models.JWTClaims) ([]models.RehabPlan, error)
	AddGoal(ctx context.Context, planID string, req dto.GoalRequest, actor *models.JWTClaims) (*models.RehabPlan, error)
	UpdateGoal(ctx context.Context, planID, goalID string, req dto.GoalRequest, actor *models.JWTClaims) (*models.RehabPlan, error)
	RemoveGoal(ctx context.Context, planID, goalID string, actor *models.JWTClaims) (*models.RehabPlan, error)
	Approve(ctx context.Context, planID string, actor *models.JWTClaims) (*dto.PlanResponse, error)
	UpdateStatus(ctx context.Context, planID string, status models.PlanStatus, actor *models.JWTClaims) (*models.RehabPlan, error)
}

// PlanHandler exposes REST endpoints for rehab plans and their sign-off.
type PlanHandler struct {
	service planService
}

// NewPlanHandler constructs the handler.
func NewPlanHandler(service planService) *PlanHandler {
	return &PlanHandler{service: service}
}

// Create godoc
// @Summary Open a draft rehab plan
// @Tags Plans
// @Accept json
// @Produce json
// @Param payload body dto.CreatePlanRequest true "Plan payload"
// @Success 201 {object} response.Envelope
// @Router /plans [post]
func (h *PlanHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid plan payload"))
		return
	}
	plan, err := h.service.Create(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, plan, nil)
}

// List godoc
// @Summary List rehab plans
// @Tags Plans
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param beneficiaryId query string false "Beneficiary ID"
// @Success 200 {object} response.Envelope
// @Router /plans [get]
func (h *PlanHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	query := dto.PlanQuery{
		BeneficiaryID: strings.TrimSpace(c.Query("beneficiaryId")),
	}
	if rawStatus := c.Query("status"); rawStatus != "" {
		for _, part := range strings.Split(rawStatus, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			query.Status = append(query.Status, models.PlanStatus(part))
		}
	}
	plans, err := h.service.List(c.Request.Context(), query, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plans, nil)
}

// Get godoc
// @Summary Get one plan with approval state and fresh suggestions
// @Tags Plans
// @Produce json
// @Param id path string true "Plan ID"
// @Success 200 {object} response.Envelope
// @Router /plans/{id} [get]
func (h *PlanHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	plan, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}

// AddGoal godoc
// @Summary Add a goal to a plan
// @Tags Plans
// @Accept json
// @Produce json
// @Param id path string true "Plan ID"
// @Param payload body dto.GoalRequest true "Goal payload"
// @Success 200 {object} response.Envelope
// @Router /plans/{id}/goals [post]
func (h *PlanHandler) AddGoal(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.GoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid goal payload"))
		return
	}
	plan, err := h.service.AddGoal(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}

// UpdateGoal godoc
// @Summary Update one goal on a plan
// @Tags Plans
// @Accept json
// @Produce json
// @Param id path string true "Plan ID"
// @Param goalId path string true "Goal ID"
// @Param payload body dto.GoalRequest true "Goal payload"
// @Success 200 {object} response.Envelope
// @Router /plans/{id}/goals/{goalId} [put]
func (h *PlanHandler) UpdateGoal(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.GoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid goal payload"))
		return
	}
	plan, err := h.service.UpdateGoal(c.Request.Context(), c.Param("id"), c.Param("goalId"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}

// RemoveGoal godoc
// @Summary Remove one goal from a plan
// @Tags Plans
// @Produce json
// @Param id path string true "Plan ID"
// @Param goalId path string true "Goal ID"
// @Success 200 {object} response.Envelope
// @Router /plans/{id}/goals/{goalId} [delete]
func (h *PlanHandler) RemoveGoal(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	plan, err := h.service.RemoveGoal(c.Request.Context(), c.Param("id"), c.Param("goalId"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}

// Approve godoc
// @Summary Record the caller's approval slot on a plan
// @Tags Plans
// @Produce json
// @Param id path string true "Plan ID"
// @Success 200 {object} response.Envelope
// @Router /plans/{id}/approve [post]
func (h *PlanHandler) Approve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	plan, err := h.service.Approve(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}

// UpdateStatus godoc
// @Summary Move a plan through its lifecycle
// @Tags Plans
// @Accept json
// @Produce json
// @Param id path string true "Plan ID"
// @Param payload body dto.UpdatePlanStatusRequest true "New status"
// @Success 200 {object} response.Envelope
// @Router /plans/{id}/status [put]
func (h *PlanHandler) UpdateStatus(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UpdatePlanStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid status payload"))
		return
	}
	plan, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}
