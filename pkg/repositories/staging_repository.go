package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/anime-warehouse/pkg/database"
	"github.com/ekaya-inc/anime-warehouse/pkg/models"
)

// StagingRepository writes raw export rows into the staging tables.
type StagingRepository interface {
	// Clear deletes every row of the source's staging table.
	Clear(ctx context.Context, source models.SourceSpec) (int64, error)
	// CopyBatch bulk-loads rows produced by source.Reader.
	CopyBatch(ctx context.Context, source models.SourceSpec, rows [][]any) (int64, error)
	// Count returns the number of staged rows for source.
	Count(ctx context.Context, source models.SourceSpec) (int64, error)
}

type stagingRepository struct{}

// NewStagingRepository creates a new StagingRepository.
func NewStagingRepository() StagingRepository {
	return &stagingRepository{}
}

var _ StagingRepository = (*stagingRepository)(nil)

func (r *stagingRepository) Clear(ctx context.Context, source models.SourceSpec) (int64, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return 0, fmt.Errorf("no stage scope in context")
	}

	tag, err := scope.Q().Exec(ctx, "DELETE FROM "+pgx.Identifier{source.Table}.Sanitize())
	if err != nil {
		return 0, fmt.Errorf("failed to clear %s: %w", source.Table, err)
	}
	return tag.RowsAffected(), nil
}

func (r *stagingRepository) CopyBatch(ctx context.Context, source models.SourceSpec, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	scope, ok := database.GetScope(ctx)
	if !ok {
		return 0, fmt.Errorf("no stage scope in context")
	}

	n, err := scope.Q().CopyFrom(ctx,
		pgx.Identifier{source.Table},
		source.StagingColumns(),
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to copy into %s: %w", source.Table, err)
	}
	return n, nil
}

func (r *stagingRepository) Count(ctx context.Context, source models.SourceSpec) (int64, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return 0, fmt.Errorf("no stage scope in context")
	}

	var n int64
	if err := scope.Q().QueryRow(ctx, "SELECT COUNT(*) FROM "+pgx.Identifier{source.Table}.Sanitize()).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", source.Table, err)
	}
	return n, nil
}
