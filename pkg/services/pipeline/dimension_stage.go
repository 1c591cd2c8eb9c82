package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/anime-warehouse/pkg/database"
	"github.com/ekaya-inc/anime-warehouse/pkg/models"
	"github.com/ekaya-inc/anime-warehouse/pkg/repositories"
)

// DimensionStage adds newly observed staging values to the ten lookup tables.
type DimensionStage struct {
	*BaseStage
	dimensionRepo repositories.DimensionRepository
	dimensions    []models.Dimension
}

// NewDimensionStage creates the DimensionBuild stage over the full catalog.
func NewDimensionStage(dimensionRepo repositories.DimensionRepository, logger *zap.Logger) *DimensionStage {
	return &DimensionStage{
		BaseStage:     NewBaseStage(models.StageDimensionBuild, logger),
		dimensionRepo: dimensionRepo,
		dimensions:    models.AllDimensions(),
	}
}

var _ StageExecutor = (*DimensionStage)(nil)

// Execute implements StageExecutor. All dimensions commit together.
func (s *DimensionStage) Execute(ctx context.Context, report *models.StageReport) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no stage scope in context")
	}

	var counts []models.InsertCount
	err := scope.InTx(ctx, func(ctx context.Context) error {
		for _, dim := range s.dimensions {
			added, err := s.dimensionRepo.UpsertAbsent(ctx, dim)
			if err != nil {
				return err
			}
			counts = append(counts, models.InsertCount{Table: dim.Table(), Inserted: added})
			s.Logger().Debug("Built dimension",
				zap.String("dimension", string(dim.Name)),
				zap.String("table", dim.Table()),
				zap.Int64("added", added))
		}
		return nil
	})
	if err != nil {
		return err
	}

	var total int64
	for _, c := range counts {
		total += c.Inserted
	}
	s.Logger().Info("Dimensions built", zap.Int("dimensions", len(counts)), zap.Int64("added", total))

	report.Counts = append(report.Counts, counts...)
	return nil
}
