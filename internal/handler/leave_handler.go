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

type leaveService interface {
	Create(ctx context.Context, req dto.CreateLeaveRequest, actor *models.JWTClaims) (*models.LeaveRequest, error)
	Approve(ctx context.Context, id string, req dto.LeaveDecisionRequest, actor *models.JWTClaims) (*models.LeaveRequest, error)
	Reject(ctx context.Context, id string, req dto.LeaveDecisionRequest, actor *models.JWTClaims) (*models.LeaveRequest, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*dto.LeaveDetailResponse, error)
	List(ctx context.Context, query dto.LeaveQuery, actor *models.JWTClaims) ([]models.LeaveRequest, error)
}

// LeaveHandler exposes REST endpoints for the leave approval workflow.
type LeaveHandler struct {
	service leaveService
}

// NewLeaveHandler constructs the handler.
func NewLeaveHandler(service leaveService) *LeaveHandler {
	return &LeaveHandler{service: service}
}

// Create godoc
// @Summary File a leave request
// @Tags Leaves
// @Accept json
// @Produce json
// @Param payload body dto.CreateLeaveRequest true "Leave request payload"
// @Success 201 {object} response.Envelope
// @Router /leaves [post]
func (h *LeaveHandler) Create(c *gin.Context) {
	var req dto.CreateLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid leave request payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	request, err := h.service.Create(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, request, nil)
}

// List godoc
// @Summary List leave requests
// @Tags Leaves
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param beneficiaryId query string false "Beneficiary ID"
// @Success 200 {object} response.Envelope
// @Router /leaves [get]
func (h *LeaveHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	query := dto.LeaveQuery{
		BeneficiaryID: strings.TrimSpace(c.Query("beneficiaryId")),
	}
	if rawStatus := c.Query("status"); rawStatus != "" {
		parts := strings.Split(rawStatus, ",")
		statuses := make([]models.LeaveStatus, 0, len(parts))
		for _, part := range parts {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			statuses = append(statuses, models.LeaveStatus(part))
		}
		query.Status = statuses
	}
	requests, err := h.service.List(c.Request.Context(), query, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// Get godoc
// @Summary Get leave request detail
// @Tags Leaves
// @Produce json
// @Param id path string true "Leave request ID"
// @Success 200 {object} response.Envelope
// @Router /leaves/{id} [get]
func (h *LeaveHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Approve godoc
// @Summary Approve the current workflow step
// @Tags Leaves
// @Accept json
// @Produce json
// @Param id path string true "Leave request ID"
// @Param payload body dto.LeaveDecisionRequest false "Optional reviewer note"
// @Success 200 {object} response.Envelope
// @Router /leaves/{id}/approve [post]
func (h *LeaveHandler) Approve(c *gin.Context) {
	h.decide(c, h.service.Approve)
}

// Reject godoc
// @Summary Reject the request at the current workflow step
// @Tags Leaves
// @Accept json
// @Produce json
// @Param id path string true "Leave request ID"
// @Param payload body dto.LeaveDecisionRequest false "Optional reviewer note"
// @Success 200 {object} response.Envelope
// @Router /leaves/{id}/reject [post]
func (h *LeaveHandler) Reject(c *gin.Context) {
	h.decide(c, h.service.Reject)
}

func (h *LeaveHandler) decide(c *gin.Context, decision func(context.Context, string, dto.LeaveDecisionRequest, *models.JWTClaims) (*models.LeaveRequest, error)) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.LeaveDecisionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid decision payload"))
			return
		}
	}
	request, err := decision(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}
