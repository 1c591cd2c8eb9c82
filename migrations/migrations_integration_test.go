//go:build integration

package migrations_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/anime-warehouse/pkg/database"
	"github.com/ekaya-inc/anime-warehouse/pkg/models"
	"github.com/ekaya-inc/anime-warehouse/pkg/testhelpers"
)

// Test_WarehouseTables verifies every warehouse table exists after migrating.
func Test_WarehouseTables(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	ctx := testDB.Scope(t)
	scope, _ := database.GetScope(ctx)

	for _, table := range models.AllTables() {
		var exists bool
		err := scope.Q().QueryRow(ctx, `
			SELECT EXISTS (
				SELECT FROM information_schema.tables
				WHERE table_schema = 'public'
				AND table_name = $1
			)
		`, table).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "%s table should exist", table)
	}
}

// Test_StagingColumnTypes verifies staging stays textual except for timestamps.
func Test_StagingColumnTypes(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	ctx := testDB.Scope(t)
	scope, _ := database.GetScope(ctx)

	for _, src := range models.AllSources() {
		for _, col := range src.Columns {
			var dataType string
			err := scope.Q().QueryRow(ctx, `
				SELECT data_type
				FROM information_schema.columns
				WHERE table_name = $1
				AND column_name = $2
			`, src.Table, col.Column).Scan(&dataType)
			require.NoError(t, err, "Column %s.%s should exist", src.Table, col.Column)

			expected := "text"
			if col.Kind == models.ColumnTimestamp {
				expected = "timestamp without time zone"
			}
			assert.Equal(t, expected, dataType, "Column %s.%s", src.Table, col.Column)
		}
	}
}

// Test_DimensionUniqueness verifies each dimension value column is unique.
func Test_DimensionUniqueness(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	ctx := testDB.Scope(t)
	scope, _ := database.GetScope(ctx)

	for _, dim := range models.AllDimensions() {
		var unique bool
		err := scope.Q().QueryRow(ctx, `
			SELECT EXISTS (
				SELECT FROM information_schema.table_constraints tc
				JOIN information_schema.constraint_column_usage ccu
				  ON tc.constraint_name = ccu.constraint_name
				WHERE tc.table_name = $1
				AND tc.constraint_type = 'UNIQUE'
				AND ccu.column_name = $2
			)
		`, dim.Table(), dim.ValueColumn).Scan(&unique)
		require.NoError(t, err)
		assert.True(t, unique, "%s.%s should be unique", dim.Table(), dim.ValueColumn)
	}
}

// Test_FactForeignKeys verifies the fact tables reference their entities.
func Test_FactForeignKeys(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	ctx := testDB.Scope(t)
	scope, _ := database.GetScope(ctx)

	var fkCount int
	err := scope.Q().QueryRow(ctx, `
		SELECT COUNT(*)
		FROM information_schema.table_constraints
		WHERE table_name IN ('anime_genres', 'user_anime_ratings')
		AND constraint_type = 'FOREIGN KEY'
	`).Scan(&fkCount)
	require.NoError(t, err)
	assert.Equal(t, 5, fkCount, "anime_genres has 2 foreign keys, user_anime_ratings has 3")
}

// Test_RatingNullability verifies a rating always carries its watch status
// while score and date stay optional.
func Test_RatingNullability(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	ctx := testDB.Scope(t)
	scope, _ := database.GetScope(ctx)

	columns := map[string]string{
		"user_id":         "NO",
		"anime_id":        "NO",
		"watch_status_id": "NO",
		"user_score":      "YES",
		"rating_date":     "YES",
	}
	for col, expected := range columns {
		var nullable string
		err := scope.Q().QueryRow(ctx, `
			SELECT is_nullable
			FROM information_schema.columns
			WHERE table_name = 'user_anime_ratings'
			AND column_name = $1
		`, col).Scan(&nullable)
		require.NoError(t, err, "Column %s should exist", col)
		assert.Equal(t, expected, nullable, "Column %s nullability", col)
	}
}
