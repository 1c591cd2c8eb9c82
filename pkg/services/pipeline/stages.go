package pipeline

import (
	"fmt"
	"io/fs"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/anime-warehouse/pkg/apperrors"
	"github.com/ekaya-inc/anime-warehouse/pkg/config"
	"github.com/ekaya-inc/anime-warehouse/pkg/models"
	"github.com/ekaya-inc/anime-warehouse/pkg/repositories"
)

// Deps carries what the stages are built from.
type Deps struct {
	Config     *config.Config
	Scopes     ScopeProvider
	Migrations MigrationsFactory
	Logger     *zap.Logger

	StagingRepo   repositories.StagingRepository
	DimensionRepo repositories.DimensionRepository
	EntityRepo    repositories.EntityRepository
	FactRepo      repositories.FactRepository
	WarehouseRepo repositories.WarehouseRepository
}

// NewDeps wires the default repositories and the migrations in fsys.
func NewDeps(cfg *config.Config, scopes ScopeProvider, url string, fsys fs.FS, logger *zap.Logger) *Deps {
	return &Deps{
		Config:        cfg,
		Scopes:        scopes,
		Migrations:    NewMigrationsFactory(url, fsys, logger.Named("migrate")),
		Logger:        logger,
		StagingRepo:   repositories.NewStagingRepository(),
		DimensionRepo: repositories.NewDimensionRepository(),
		EntityRepo:    repositories.NewEntityRepository(),
		FactRepo:      repositories.NewFactRepository(),
		WarehouseRepo: repositories.NewWarehouseRepository(),
	}
}

// SourceInputs resolves the configured files for the named sources, or for
// every source when names is empty.
func SourceInputs(cfg *config.Config, names ...string) ([]SourceInput, error) {
	if len(names) == 0 {
		names = cfg.Sources.SourceNames()
	}

	seen := make(map[string]bool, len(names))
	var out []SourceInput
	for _, name := range names {
		file, ok := cfg.Sources.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown source %q", apperrors.ErrInvalidStagePlan, name)
		}
		spec, ok := models.LookupSource(strings.ToLower(name))
		if !ok {
			return nil, fmt.Errorf("%w: unknown source %q", apperrors.ErrInvalidStagePlan, name)
		}
		if seen[spec.Name] {
			continue
		}
		seen[spec.Name] = true
		out = append(out, SourceInput{
			Spec:      spec,
			Path:      cfg.Sources.Path(file.File),
			BatchSize: file.BatchSize,
		})
	}
	return out, nil
}

// BuildStages creates the executors for names in plan order. sources
// restricts StagingLoad to the given source names.
func BuildStages(deps *Deps, names []models.StageName, sources []string) ([]StageExecutor, error) {
	planned, err := Plan(names)
	if err != nil {
		return nil, err
	}

	cfg := deps.Config
	conflict := repositories.RatingConflictSkip
	if cfg.Facts.RatingConflict == config.RatingConflictUpdate {
		conflict = repositories.RatingConflictUpdate
	}

	stages := make([]StageExecutor, 0, len(planned))
	for _, name := range planned {
		switch name {
		case models.StageSchemaReset:
			stages = append(stages, NewSchemaStage(deps.WarehouseRepo, deps.Migrations, cfg.Pipeline.SkipReset, deps.Logger))
		case models.StageStagingLoad:
			inputs, err := SourceInputs(cfg, sources...)
			if err != nil {
				return nil, err
			}
			stages = append(stages, NewStagingStage(deps.StagingRepo, deps.Scopes, inputs, cfg.Staging.Parallel, deps.Logger))
		case models.StageDimensionBuild:
			stages = append(stages, NewDimensionStage(deps.DimensionRepo, deps.Logger))
		case models.StageEntityLoad:
			stages = append(stages, NewEntityStage(deps.EntityRepo, deps.DimensionRepo, cfg.Entities.PageSize, deps.Logger))
		case models.StageFactBuild:
			stages = append(stages, NewFactStage(deps.FactRepo, deps.EntityRepo, deps.DimensionRepo, cfg.Facts.PageSize, conflict, deps.Logger))
		default:
			return nil, fmt.Errorf("%w: no executor for stage %s", apperrors.ErrInvalidStagePlan, name)
		}
	}
	return stages, nil
}
