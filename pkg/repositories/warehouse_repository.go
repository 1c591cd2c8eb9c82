package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/anime-warehouse/pkg/database"
	"github.com/ekaya-inc/anime-warehouse/pkg/models"
)

// WarehouseRepository covers whole-warehouse operations: teardown, row
// counts and consistency checks.
type WarehouseRepository interface {
	// DropTables drops tables in the given order, tolerating absent ones.
	DropTables(ctx context.Context, tables []string) error
	// CountRows returns the row count of every table that exists.
	CountRows(ctx context.Context, tables []string) (map[string]int64, error)
	// IntegrityChecks runs the consistency probes; every count should be zero.
	IntegrityChecks(ctx context.Context) ([]models.IntegrityCheck, error)
}

type warehouseRepository struct{}

// NewWarehouseRepository creates a new WarehouseRepository.
func NewWarehouseRepository() WarehouseRepository {
	return &warehouseRepository{}
}

var _ WarehouseRepository = (*warehouseRepository)(nil)

func (r *warehouseRepository) DropTables(ctx context.Context, tables []string) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no stage scope in context")
	}

	for _, table := range tables {
		if _, err := scope.Q().Exec(ctx, "DROP TABLE IF EXISTS "+pgx.Identifier{table}.Sanitize()+" CASCADE"); err != nil {
			return fmt.Errorf("failed to drop %s: %w", table, err)
		}
	}
	return nil
}

func (r *warehouseRepository) CountRows(ctx context.Context, tables []string) (map[string]int64, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no stage scope in context")
	}

	present, err := existingTables(ctx, scope.Q(), tables)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(present))
	for _, table := range tables {
		if _, ok := present[table]; !ok {
			continue
		}
		var n int64
		if err := scope.Q().QueryRow(ctx, "SELECT COUNT(*) FROM "+pgx.Identifier{table}.Sanitize()).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

func existingTables(ctx context.Context, q database.Querier, tables []string) (map[string]struct{}, error) {
	rows, err := q.Query(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_name = ANY($1)`, tables)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	out := make(map[string]struct{}, len(tables))
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		out[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}
	return out, nil
}

// integrityProbes count rows that break referential completeness.
var integrityProbes = []struct {
	name  string
	query string
}{
	{"orphan_genre_tags", `
		SELECT COUNT(*) FROM anime_genres f
		WHERE NOT EXISTS (SELECT 1 FROM anime a WHERE a.anime_id = f.anime_id)
		   OR NOT EXISTS (SELECT 1 FROM genres g WHERE g.genre_id = f.genre_id)`},
	{"orphan_ratings", `
		SELECT COUNT(*) FROM user_anime_ratings f
		WHERE NOT EXISTS (SELECT 1 FROM users u WHERE u.user_id = f.user_id)
		   OR NOT EXISTS (SELECT 1 FROM anime a WHERE a.anime_id = f.anime_id)`},
	{"ratings_without_watch_status", `
		SELECT COUNT(*) FROM user_anime_ratings f
		WHERE f.watch_status_id IS NULL
		   OR NOT EXISTS (SELECT 1 FROM watch_statuses w WHERE w.watch_status_id = f.watch_status_id)`},
	{"anime_with_missing_dimension", `
		SELECT COUNT(*) FROM anime a
		WHERE (a.type_id IS NOT NULL AND NOT EXISTS (SELECT 1 FROM anime_types d WHERE d.type_id = a.type_id))
		   OR (a.status_id IS NOT NULL AND NOT EXISTS (SELECT 1 FROM anime_statuses d WHERE d.status_id = a.status_id))
		   OR (a.source_id IS NOT NULL AND NOT EXISTS (SELECT 1 FROM sources d WHERE d.source_id = a.source_id))
		   OR (a.studio_id IS NOT NULL AND NOT EXISTS (SELECT 1 FROM studios d WHERE d.studio_id = a.studio_id))
		   OR (a.rating_category_id IS NOT NULL AND NOT EXISTS (SELECT 1 FROM rating_categories d WHERE d.rating_category_id = a.rating_category_id))`},
	{"users_with_missing_dimension", `
		SELECT COUNT(*) FROM users u
		WHERE (u.country_id IS NOT NULL AND NOT EXISTS (SELECT 1 FROM countries d WHERE d.country_id = u.country_id))
		   OR (u.age_group_id IS NOT NULL AND NOT EXISTS (SELECT 1 FROM age_groups d WHERE d.age_group_id = u.age_group_id))
		   OR (u.gender_id IS NOT NULL AND NOT EXISTS (SELECT 1 FROM genders d WHERE d.gender_id = u.gender_id))`},
}

func (r *warehouseRepository) IntegrityChecks(ctx context.Context) ([]models.IntegrityCheck, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no stage scope in context")
	}

	out := make([]models.IntegrityCheck, 0, len(integrityProbes))
	for _, p := range integrityProbes {
		var n int64
		if err := scope.Q().QueryRow(ctx, p.query).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to run check %s: %w", p.name, err)
		}
		out = append(out, models.IntegrityCheck{Name: p.name, Violations: n})
	}
	return out, nil
}
