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

type admissionServiceMock struct {
	result   models.ValidationResult
	admitted *dto.AdmissionResponse
	admitErr error
}

func (m *admissionServiceMock) Validate(ctx context.Context, draft dto.AdmissionDraft, actor *models.JWTClaims) (models.ValidationResult, error) {
	return m.result, nil
}

func (m *admissionServiceMock) Admit(ctx context.Context, draft dto.AdmissionDraft, actor *models.JWTClaims) (*dto.AdmissionResponse, error) {
	return m.admitted, m.admitErr
}

func TestAdmissionHandlerValidate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &admissionServiceMock{
		result: models.ValidationResult{IsValid: true, Errors: map[string]string{}},
	}
	handler := NewAdmissionHandler(mockSvc)

	payload, _ := json.Marshal(dto.AdmissionDraft{BeneficiaryID: "ben-1"})
	c, w := newGinContext(http.MethodPost, "/admissions/validate", payload)
	setClaims(c, models.RoleDoctor)

	handler.Validate(c)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAdmissionHandlerAdmit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &admissionServiceMock{
		admitted: &dto.AdmissionResponse{
			Profile:    &models.MedicalProfile{ID: "prof-1", BeneficiaryID: "ben-1"},
			Validation: models.ValidationResult{IsValid: true},
		},
	}
	handler := NewAdmissionHandler(mockSvc)

	payload, _ := json.Marshal(dto.AdmissionDraft{BeneficiaryID: "ben-1"})
	c, w := newGinContext(http.MethodPost, "/admissions", payload)
	setClaims(c, models.RoleNurse)

	handler.Admit(c)
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestAdmissionHandlerAdmitRejectsInvalidDraft(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &admissionServiceMock{
		admitErr: appErrors.WithFields(appErrors.ErrValidation, map[string]string{"seizureHistory": "seizure history is required for epileptic residents"}),
	}
	handler := NewAdmissionHandler(mockSvc)

	payload, _ := json.Marshal(dto.AdmissionDraft{BeneficiaryID: "ben-1", IsEpileptic: true})
	c, w := newGinContext(http.MethodPost, "/admissions", payload)
	setClaims(c, models.RoleDoctor)

	handler.Admit(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
