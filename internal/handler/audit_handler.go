package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/amal-center/rehab-center-api/internal/models"
	appErrors "github.com/amal-center/rehab-center-api/pkg/errors"
	"github.com/amal-center/rehab-center-api/pkg/response"
)

type auditReader interface {
	ListByResource(ctx context.Context, resource, resourceID string, limit int) ([]models.AuditLog, error)
}

// AuditHandler exposes the per-resource audit trail.
type AuditHandler struct {
	repo auditReader
}

// NewAuditHandler constructs the handler.
func NewAuditHandler(repo auditReader) *AuditHandler {
	return &AuditHandler{repo: repo}
}

// ListByResource godoc
// @Summary List audit entries for one resource, newest first
// @Tags Audit
// @Produce json
// @Param resource path string true "Resource name"
// @Param id path string true "Resource ID"
// @Param limit query int false "Max entries"
// @Success 200 {object} response.Envelope
// @Router /audit/{resource}/{id} [get]
func (h *AuditHandler) ListByResource(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	logs, err := h.repo.ListByResource(c.Request.Context(), c.Param("resource"), c.Param("id"), limit)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit entries"))
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}
