package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ekaya-inc/anime-warehouse/pkg/apperrors"
	"github.com/ekaya-inc/anime-warehouse/pkg/database"
	"github.com/ekaya-inc/anime-warehouse/pkg/models"
	"github.com/ekaya-inc/anime-warehouse/pkg/repositories"
	"github.com/ekaya-inc/anime-warehouse/pkg/source"
)

// SourceInput is one export to stage.
type SourceInput struct {
	Spec      models.SourceSpec
	Path      string
	BatchSize int
}

// StagingStage streams every source file into its staging table.
type StagingStage struct {
	*BaseStage
	stagingRepo repositories.StagingRepository
	scopes      ScopeProvider
	inputs      []SourceInput
	parallel    bool
}

// NewStagingStage creates the StagingLoad stage. When parallel is true each
// file is loaded on its own connection obtained from scopes.
func NewStagingStage(
	stagingRepo repositories.StagingRepository,
	scopes ScopeProvider,
	inputs []SourceInput,
	parallel bool,
	logger *zap.Logger,
) *StagingStage {
	return &StagingStage{
		BaseStage:   NewBaseStage(models.StageStagingLoad, logger),
		stagingRepo: stagingRepo,
		scopes:      scopes,
		inputs:      inputs,
		parallel:    parallel,
	}
}

var _ StageExecutor = (*StagingStage)(nil)

// Execute implements StageExecutor.
func (s *StagingStage) Execute(ctx context.Context, report *models.StageReport) error {
	if !s.parallel || len(s.inputs) < 2 {
		for _, in := range s.inputs {
			res, err := s.loadFile(ctx, in)
			if err != nil {
				return err
			}
			report.Loads = append(report.Loads, res)
		}
		return nil
	}

	results := make([]models.LoadResult, len(s.inputs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i, in := range s.inputs {
		i, in := i, in
		g.Go(func() error {
			fileCtx, release, err := s.scopes.WithScope(gctx)
			if err != nil {
				return &apperrors.StageError{Stage: string(s.Name()), Source: in.Path, Err: err}
			}
			defer release()

			res, err := s.loadFile(fileCtx, in)
			if err != nil {
				return err
			}
			mu.Lock()
			results[i] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	report.Loads = append(report.Loads, results...)
	return nil
}

// loadFile stages one export: validate the header, clear the table, then
// copy batches, committing each before the next is read.
func (s *StagingStage) loadFile(ctx context.Context, in SourceInput) (models.LoadResult, error) {
	start := time.Now()
	result := models.LoadResult{Source: in.Spec.Name, Table: in.Spec.Table}

	fail := func(err error) (models.LoadResult, error) {
		return result, &apperrors.StageError{Stage: string(s.Name()), Source: in.Path, Err: err}
	}

	scope, ok := database.GetScope(ctx)
	if !ok {
		return fail(fmt.Errorf("no stage scope in context"))
	}

	reader, err := source.Open(in.Path, in.Spec)
	if err != nil {
		return fail(err)
	}
	defer reader.Close()

	log := s.Logger().With(zap.String("source", in.Spec.Name), zap.String("table", in.Spec.Table))

	cleared, err := s.stagingRepo.Clear(ctx, in.Spec)
	if err != nil {
		return fail(err)
	}
	log.Debug("Cleared staging table", zap.Int64("rows", cleared))

	for {
		batch, err := reader.ReadBatch(in.BatchSize)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fail(fmt.Errorf("batch %d: %w", result.Batches+1, err))
		}

		var copied int64
		if err := scope.InTx(ctx, func(ctx context.Context) error {
			n, err := s.stagingRepo.CopyBatch(ctx, in.Spec, batch)
			copied = n
			return err
		}); err != nil {
			return fail(fmt.Errorf("batch %d: %w", result.Batches+1, err))
		}

		result.Batches++
		result.Rows += copied
		log.Info("Staged batch",
			zap.Int("batch", result.Batches),
			zap.Int64("batch_rows", copied),
			zap.Int64("total_rows", result.Rows))
	}

	staged, err := s.stagingRepo.Count(ctx, in.Spec)
	if err != nil {
		return fail(err)
	}
	if staged != result.Rows {
		return fail(fmt.Errorf("%s holds %d rows after copying %d", in.Spec.Table, staged, result.Rows))
	}

	result.Elapsed = time.Since(start)
	log.Info("Staged file",
		zap.String("path", in.Path),
		zap.Int64("total_rows", result.Rows),
		zap.Int("batches", result.Batches),
		zap.Duration("elapsed", result.Elapsed))

	return result, nil
}
