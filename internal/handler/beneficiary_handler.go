package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/amal-center/rehab-center-api/internal/models"
	appErrors "github.com/amal-center/rehab-center-api/pkg/errors"
	"github.com/amal-center/rehab-center-api/pkg/response"
)

type beneficiaryService interface {
	List(ctx context.Context, filter models.BeneficiaryFilter) ([]models.Beneficiary, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Beneficiary, error)
	Create(ctx context.Context, beneficiary *models.Beneficiary) (*models.Beneficiary, error)
}

// BeneficiaryHandler exposes the resident roster endpoints.
type BeneficiaryHandler struct {
	service beneficiaryService
}

// NewBeneficiaryHandler constructs the handler.
func NewBeneficiaryHandler(service beneficiaryService) *BeneficiaryHandler {
	return &BeneficiaryHandler{service: service}
}

// List godoc
// @Summary List beneficiaries
// @Tags Beneficiaries
// @Produce json
// @Param search query string false "Name search"
// @Param active query bool false "Filter by active flag"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /beneficiaries [get]
func (h *BeneficiaryHandler) List(c *gin.Context) {
	filter := models.BeneficiaryFilter{
		Search: strings.TrimSpace(c.Query("search")),
	}
	if raw := c.Query("active"); raw != "" {
		if active, err := strconv.ParseBool(raw); err == nil {
			filter.Active = &active
		}
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	beneficiaries, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, beneficiaries, pagination)
}

// Get godoc
// @Summary Get one beneficiary
// @Tags Beneficiaries
// @Produce json
// @Param id path string true "Beneficiary ID"
// @Success 200 {object} response.Envelope
// @Router /beneficiaries/{id} [get]
func (h *BeneficiaryHandler) Get(c *gin.Context) {
	beneficiary, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, beneficiary, nil)
}

// Create godoc
// @Summary Register a beneficiary
// @Tags Beneficiaries
// @Accept json
// @Produce json
// @Param payload body models.Beneficiary true "Beneficiary payload"
// @Success 201 {object} response.Envelope
// @Router /beneficiaries [post]
func (h *BeneficiaryHandler) Create(c *gin.Context) {
	var beneficiary models.Beneficiary
	if err := c.ShouldBindJSON(&beneficiary); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid beneficiary payload"))
		return
	}
	created, err := h.service.Create(c.Request.Context(), &beneficiary)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, created, nil)
}
