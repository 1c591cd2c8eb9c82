package repositories

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/anime-warehouse/pkg/models"
)

func TestBuildUpsertAbsent(t *testing.T) {
	dim := models.MustDimension(models.DimensionAnimeStatus)

	query, args := buildUpsertAbsent(dim)

	assert.True(t, strings.HasPrefix(query, "INSERT INTO anime_statuses (status_desc)"), query)
	assert.Contains(t, query, "SELECT DISTINCT status AS v FROM stage_anime")
	assert.Contains(t, query, "status IS NOT NULL")
	assert.Contains(t, query, "WHERE NOT EXISTS (SELECT 1 FROM anime_statuses t WHERE t.status_desc = d.v)")
	assert.Contains(t, query, "ORDER BY d.v")
	assert.True(t, strings.HasSuffix(query, "ON CONFLICT (status_desc) DO NOTHING"), query)
	assert.Equal(t, []any{""}, args, "empty string is the only bound value")
}

func TestBuildUpsertAbsent_EveryDimension(t *testing.T) {
	for _, dim := range models.AllDimensions() {
		query, _ := buildUpsertAbsent(dim)
		assert.Contains(t, query, "INSERT INTO "+dim.Table()+" ("+dim.ValueColumn+")")
		assert.Contains(t, query, "FROM "+dim.StageTable)
	}
}

func TestBuildInsert(t *testing.T) {
	query, args := buildInsert(models.TableAnimeGenres, genreTagColumns, [][]any{
		{"A1", int32(1)},
		{"A2", int32(3)},
	}, genreTagConflict)

	assert.True(t, strings.HasPrefix(query, "INSERT INTO anime_genres (anime_id, genre_id) VALUES"), query)
	assert.Contains(t, query, "$4")
	assert.NotContains(t, query, "$5")
	assert.True(t, strings.HasSuffix(query, "ON CONFLICT (anime_id, genre_id) DO NOTHING"), query)
	assert.Equal(t, []any{"A1", int32(1), "A2", int32(3)}, args)
}

func TestRatingConflictClauses(t *testing.T) {
	assert.Contains(t, ratingSkipConflict, "DO NOTHING")
	assert.Contains(t, ratingUpdate, "DO UPDATE SET")
	assert.Contains(t, ratingUpdate, "user_score = EXCLUDED.user_score")
}

func TestRowsPerInsert(t *testing.T) {
	assert.Equal(t, 5461, rowsPerInsert(len(animeColumns)))
	assert.Equal(t, 13107, rowsPerInsert(len(ratingColumns)))
	assert.Equal(t, 1, rowsPerInsert(0))

	for _, cols := range [][]string{animeColumns, userColumns, genreTagColumns, ratingColumns} {
		assert.LessOrEqual(t, rowsPerInsert(len(cols))*len(cols), maxBindParams)
	}
}

func TestChunk(t *testing.T) {
	assert.Equal(t, [][2]int{{0, 2}, {2, 4}, {4, 5}}, chunk(5, 2))
	assert.Equal(t, [][2]int{{0, 3}}, chunk(3, 10))
	assert.Empty(t, chunk(0, 10))
}

func TestStagedPageQuery(t *testing.T) {
	query, args := stagedPageQuery(models.GenresSource.Table, []string{textCol("anime_id"), textCol("genre_name")}, 41, 100)

	require.True(t, strings.HasPrefix(query, "SELECT line_no, COALESCE(anime_id, ''), COALESCE(genre_name, '') FROM stage_genres"), query)
	assert.Contains(t, query, "line_no > $1")
	assert.Contains(t, query, "ORDER BY line_no")
	assert.Contains(t, query, "LIMIT")
	require.NotEmpty(t, args)
	assert.Equal(t, int64(41), args[0])
}
