package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDimension_TableNames(t *testing.T) {
	want := map[DimensionName]string{
		DimensionAnimeType:      "anime_types",
		DimensionAnimeStatus:    "anime_statuses",
		DimensionStudio:         "studios",
		DimensionSource:         "sources",
		DimensionRatingCategory: "rating_categories",
		DimensionGenre:          "genres",
		DimensionCountry:        "countries",
		DimensionAgeGroup:       "age_groups",
		DimensionGender:         "genders",
		DimensionWatchStatus:    "watch_statuses",
	}

	dims := AllDimensions()
	require.Len(t, dims, len(want))
	for _, d := range dims {
		assert.Equal(t, want[d.Name], d.Table(), "dimension %s", d.Name)
	}
}

func TestDimension_StagingColumnsExist(t *testing.T) {
	for _, d := range AllDimensions() {
		found := false
		for _, s := range AllSources() {
			if s.Table != d.StageTable {
				continue
			}
			for _, c := range s.Columns {
				if c.Column == d.StageColumn {
					found = true
				}
			}
		}
		assert.True(t, found, "dimension %s reads unknown column %s.%s", d.Name, d.StageTable, d.StageColumn)
	}
}

func TestDropOrder(t *testing.T) {
	order := DropOrder()
	require.Len(t, order, 18)

	index := make(map[string]int, len(order))
	for i, table := range order {
		index[table] = i
	}

	// Referencing tables are dropped before the tables they reference.
	assert.Less(t, index[TableUserAnimeRatings], index[TableUsers])
	assert.Less(t, index[TableAnimeGenres], index[TableAnime])
	assert.Less(t, index[TableAnime], index["anime_types"])
	assert.Less(t, index[TableUsers], index["countries"])
	assert.Less(t, index["watch_statuses"], index["stage_anime"])
	assert.Equal(t, "stage_anime", order[len(order)-1])
}

func TestLookupSource(t *testing.T) {
	s, ok := LookupSource(SourceRatings)
	require.True(t, ok)
	assert.Equal(t, "stage_ratings", s.Table)
	assert.Equal(t, []string{"UserID", "AnimeID", "UserScore", "RatingDate", "WatchStatus"}, s.Headers())
	assert.Equal(t, []string{"line_no", "user_id", "anime_id", "user_score", "rating_date", "watch_status"}, s.StagingColumns())

	_, ok = LookupSource("episodes")
	assert.False(t, ok)
}
