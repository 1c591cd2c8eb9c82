package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/anime-warehouse/pkg/models"
	"github.com/ekaya-inc/anime-warehouse/pkg/repositories"
)

// VerifyResult holds warehouse row counts and integrity probe results.
type VerifyResult struct {
	TableCounts map[string]int64
	Checks      []models.IntegrityCheck
}

// Failed returns the checks that found violations.
func (r *VerifyResult) Failed() []models.IntegrityCheck {
	var out []models.IntegrityCheck
	for _, c := range r.Checks {
		if c.Violations > 0 {
			out = append(out, c)
		}
	}
	return out
}

// Verifier inspects a loaded warehouse without modifying it.
type Verifier struct {
	scopes        ScopeProvider
	warehouseRepo repositories.WarehouseRepository
	logger        *zap.Logger
}

// NewVerifier creates a Verifier.
func NewVerifier(scopes ScopeProvider, warehouseRepo repositories.WarehouseRepository, logger *zap.Logger) *Verifier {
	return &Verifier{
		scopes:        scopes,
		warehouseRepo: warehouseRepo,
		logger:        logger.Named("verify"),
	}
}

// Verify counts every table and runs the integrity probes.
func (v *Verifier) Verify(ctx context.Context) (*VerifyResult, error) {
	scoped, release, err := v.scopes.WithScope(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	counts, err := v.warehouseRepo.CountRows(scoped, models.AllTables())
	if err != nil {
		return nil, err
	}
	checks, err := v.warehouseRepo.IntegrityChecks(scoped)
	if err != nil {
		return nil, err
	}

	for _, c := range checks {
		if c.Violations > 0 {
			v.logger.Warn("Integrity check failed", zap.String("check", c.Name), zap.Int64("violations", c.Violations))
		} else {
			v.logger.Debug("Integrity check passed", zap.String("check", c.Name))
		}
	}
	return &VerifyResult{TableCounts: counts, Checks: checks}, nil
}
