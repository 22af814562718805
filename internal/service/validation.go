package service

import (
	"strings"

	"github.com/amal-center/rehab-center-api/internal/dto"
	"github.com/amal-center/rehab-center-api/internal/models"
)

// Clinical thresholds for the admission checkup rules.
const (
	tempLowerBound     = 36.0
	tempUpperBound     = 37.5
	feverIsolationTemp = 38.0
	systolicLowerBound = 90
	systolicUpperBound = 140
	pulseLowerBound    = 60
	pulseUpperBound    = 100
)

const isolationWarning = "temperature above 38.0 - infection suspicion protocol activated, immediate isolation recommended"

// EvaluateAdmission applies the clinical gating rules to an admission draft.
// It is a pure function: identical inputs always yield identical results, and
// every call recomputes the full result. Rules are independent; all must pass
// for IsValid, while the fever rule is advisory and never blocks.
func EvaluateAdmission(draft dto.AdmissionDraft) models.ValidationResult {
	errors := make(map[string]string)
	warnings := make([]string, 0)
	actions := models.ValidationActions{}

	if vitals := draft.Vitals; vitals != nil {
		// Unmeasured vitals (zero values) are skipped, not treated as abnormal.
		abnormal := (vitals.Temperature != 0 && (vitals.Temperature < tempLowerBound || vitals.Temperature > tempUpperBound)) ||
			(vitals.SystolicBP != 0 && (vitals.SystolicBP < systolicLowerBound || vitals.SystolicBP > systolicUpperBound)) ||
			(vitals.Pulse != 0 && (vitals.Pulse < pulseLowerBound || vitals.Pulse > pulseUpperBound))

		if abnormal && strings.TrimSpace(draft.CheckupComment) == "" {
			errors["checkup"] = "abnormal vital signs require a medical justification comment"
		}

		if vitals.Temperature > feverIsolationTemp {
			actions.RecommendIsolation = true
			warnings = append(warnings, isolationWarning)
		}
	}

	if draft.IsEpileptic {
		actions.RequireSeizureHistory = true
		if draft.SeizureHistory == nil || strings.TrimSpace(draft.SeizureHistory.LastSeizureDate) == "" {
			errors["seizureHistory"] = "last seizure date is required for beneficiaries diagnosed with epilepsy"
		}
	}

	return models.ValidationResult{
		IsValid:  len(errors) == 0,
		Errors:   errors,
		Warnings: warnings,
		Actions:  actions,
	}
}
