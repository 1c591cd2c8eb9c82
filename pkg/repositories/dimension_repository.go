package repositories

import (
	"context"
	"fmt"

	"github.com/huandu/go-sqlbuilder"

	"github.com/ekaya-inc/anime-warehouse/pkg/database"
	"github.com/ekaya-inc/anime-warehouse/pkg/models"
)

// DimensionRepository maintains the lookup tables.
type DimensionRepository interface {
	// UpsertAbsent inserts every distinct non-empty staged value not yet in
	// the dimension and returns how many rows were added.
	UpsertAbsent(ctx context.Context, dim models.Dimension) (int64, error)
	// LoadMap returns natural value -> surrogate id for the whole dimension.
	LoadMap(ctx context.Context, dim models.Dimension) (map[string]int32, error)
}

type dimensionRepository struct{}

// NewDimensionRepository creates a new DimensionRepository.
func NewDimensionRepository() DimensionRepository {
	return &dimensionRepository{}
}

var _ DimensionRepository = (*dimensionRepository)(nil)

func (r *dimensionRepository) UpsertAbsent(ctx context.Context, dim models.Dimension) (int64, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return 0, fmt.Errorf("no stage scope in context")
	}

	query, args := buildUpsertAbsent(dim)
	tag, err := scope.Q().Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert %s: %w", dim.Table(), err)
	}
	return tag.RowsAffected(), nil
}

// buildUpsertAbsent inserts the distinct staged values missing from the
// dimension in ascending order, so surrogate ids follow natural-value order
// for every batch of new values. The NOT EXISTS filter keeps the sequence
// from advancing for values already present; ON CONFLICT covers a
// concurrent writer.
func buildUpsertAbsent(dim models.Dimension) (string, []any) {
	distinct := sqlbuilder.PostgreSQL.NewSelectBuilder()
	distinct.Distinct().Select(distinct.As(dim.StageColumn, "v"))
	distinct.From(dim.StageTable)
	distinct.Where(
		distinct.IsNotNull(dim.StageColumn),
		distinct.NotEqual(dim.StageColumn, ""),
	)
	inner, args := distinct.Build()

	table := dim.Table()
	query := fmt.Sprintf(`INSERT INTO %[1]s (%[2]s)
SELECT d.v FROM (%[3]s) d
WHERE NOT EXISTS (SELECT 1 FROM %[1]s t WHERE t.%[2]s = d.v)
ORDER BY d.v
ON CONFLICT (%[2]s) DO NOTHING`, table, dim.ValueColumn, inner)

	return query, args
}

func (r *dimensionRepository) LoadMap(ctx context.Context, dim models.Dimension) (map[string]int32, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no stage scope in context")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(dim.IDColumn, dim.ValueColumn).From(dim.Table())
	query, args := sb.Build()

	rows, err := scope.Q().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", dim.Table(), err)
	}
	defer rows.Close()

	out := make(map[string]int32)
	for rows.Next() {
		var id int32
		var value string
		if err := rows.Scan(&id, &value); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", dim.Table(), err)
		}
		out[value] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", dim.Table(), err)
	}
	return out, nil
}
