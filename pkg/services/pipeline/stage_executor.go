// Package pipeline runs the warehouse load: schema reset, staging, dimension
// build, entity load and fact build, in that order.
package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/anime-warehouse/pkg/models"
)

// StageExecutor defines the interface for pipeline stage execution.
type StageExecutor interface {
	// Name returns the stage name (e.g., "DimensionBuild")
	Name() models.StageName

	// Execute runs the stage against the connection scoped in ctx and records
	// what it did in report. Returns an error if the stage fails.
	Execute(ctx context.Context, report *models.StageReport) error
}

// ScopeProvider hands out one pooled connection per stage.
// *database.DB satisfies it.
type ScopeProvider interface {
	WithScope(ctx context.Context) (context.Context, func(), error)
}

// BaseStage provides common functionality for all stages.
type BaseStage struct {
	stageName models.StageName
	logger    *zap.Logger
}

// NewBaseStage creates a new base stage with a logger named after it.
func NewBaseStage(name models.StageName, logger *zap.Logger) *BaseStage {
	return &BaseStage{
		stageName: name,
		logger:    logger.Named(string(name)),
	}
}

// Name returns the stage name.
func (b *BaseStage) Name() models.StageName {
	return b.stageName
}

// Logger returns the stage's logger.
func (b *BaseStage) Logger() *zap.Logger {
	return b.logger
}
