package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/amal-center/rehab-center-api/internal/models"
	appErrors "github.com/amal-center/rehab-center-api/pkg/errors"
	"github.com/amal-center/rehab-center-api/pkg/response"
)

type authLoginService interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
}

// AuthHandler exposes the authentication endpoints.
type AuthHandler struct {
	service authLoginService
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(service authLoginService) *AuthHandler {
	return &AuthHandler{service: service}
}

// Login godoc
// @Summary Authenticate a staff member
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Credentials"
// @Success 200 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid login payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	result, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
