package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/amal-center/rehab-center-api/internal/dto"
	"github.com/amal-center/rehab-center-api/internal/models"
	appErrors "github.com/amal-center/rehab-center-api/pkg/errors"
	"github.com/amal-center/rehab-center-api/pkg/response"
)

type admissionService interface {
	Validate(ctx context.Context, draft dto.AdmissionDraft, actor *models.JWTClaims) (models.ValidationResult, error)
	Admit(ctx context.Context, draft dto.AdmissionDraft, actor *models.JWTClaims) (*dto.AdmissionResponse, error)
}

// AdmissionHandler exposes the clinical intake endpoints.
type AdmissionHandler struct {
	service admissionService
}

// NewAdmissionHandler constructs the handler.
func NewAdmissionHandler(service admissionService) *AdmissionHandler {
	return &AdmissionHandler{service: service}
}

// Validate godoc
// @Summary Dry-run an admission draft against clinical rules
// @Tags Admissions
// @Accept json
// @Produce json
// @Param payload body dto.AdmissionDraft true "Admission draft"
// @Success 200 {object} response.Envelope
// @Router /admissions/validate [post]
func (h *AdmissionHandler) Validate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var draft dto.AdmissionDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid admission payload"))
		return
	}
	result, err := h.service.Validate(c.Request.Context(), draft, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Admit godoc
// @Summary Validate and persist a medical admission profile
// @Tags Admissions
// @Accept json
// @Produce json
// @Param payload body dto.AdmissionDraft true "Admission draft"
// @Success 201 {object} response.Envelope
// @Router /admissions [post]
func (h *AdmissionHandler) Admit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var draft dto.AdmissionDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid admission payload"))
		return
	}
	admission, err := h.service.Admit(c.Request.Context(), draft, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, admission, nil)
}
