package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/amal-center/rehab-center-api/internal/models"
)

const riskCacheTTL = 5 * time.Minute

// ClinicalRiskService derives advisory risk flags from the latest admission
// snapshot of a beneficiary. Results are cached briefly since they back a
// read-heavy review screen.
type ClinicalRiskService struct {
	profiles medicalStore
	cache    *CacheService
	logger   *zap.Logger
}

// NewClinicalRiskService constructs the service.
func NewClinicalRiskService(profiles medicalStore, cache *CacheService, logger *zap.Logger) *ClinicalRiskService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClinicalRiskService{profiles: profiles, cache: cache, logger: logger}
}

// RiskFlags implements ClinicalRiskProvider. A beneficiary with no admission
// record yields clean flags, not an error.
func (s *ClinicalRiskService) RiskFlags(ctx context.Context, beneficiaryID string) (*models.ClinicalRiskFlags, error) {
	key := riskCacheKey(beneficiaryID)
	if s.cache != nil {
		var cached models.ClinicalRiskFlags
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	profile, err := s.profiles.LatestByBeneficiary(ctx, beneficiaryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.ClinicalRiskFlags{}, nil
		}
		return nil, fmt.Errorf("load latest profile: %w", err)
	}

	flags := deriveRiskFlags(profile)
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, flags, riskCacheTTL); err != nil {
			s.logger.Debug("risk flag cache write failed", zap.Error(err))
		}
	}
	return &flags, nil
}

// Invalidate drops the cached flags after a new admission snapshot lands.
func (s *ClinicalRiskService) Invalidate(ctx context.Context, beneficiaryID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, riskCacheKey(beneficiaryID)); err != nil {
		s.logger.Debug("risk flag cache invalidation failed", zap.Error(err))
	}
}

func deriveRiskFlags(profile *models.MedicalProfile) models.ClinicalRiskFlags {
	flags := models.ClinicalRiskFlags{}
	vitals := profile.LatestVitals

	if profile.Infection.SuspectedInfection || vitals.Temperature > feverIsolationTemp {
		flags.Infection = true
		flags.Notes = profile.Infection.IsolationReason
	}
	if (vitals.Temperature != 0 && (vitals.Temperature < tempLowerBound || vitals.Temperature > tempUpperBound)) ||
		(vitals.SystolicBP != 0 && (vitals.SystolicBP < systolicLowerBound || vitals.SystolicBP > systolicUpperBound)) ||
		(vitals.Pulse != 0 && (vitals.Pulse < pulseLowerBound || vitals.Pulse > pulseUpperBound)) {
		flags.UnstableVitals = true
	}
	return flags
}

func riskCacheKey(beneficiaryID string) string {
	return fmt.Sprintf("risk:flags:%s", beneficiaryID)
}
