package models

import "github.com/jinzhu/inflection"

// ============================================================================
// Dimensions
// ============================================================================

// DimensionName identifies a lookup table by its singular name.
type DimensionName string

const (
	DimensionAnimeType      DimensionName = "anime_type"
	DimensionAnimeStatus    DimensionName = "anime_status"
	DimensionStudio         DimensionName = "studio"
	DimensionSource         DimensionName = "source"
	DimensionRatingCategory DimensionName = "rating_category"
	DimensionGenre          DimensionName = "genre"
	DimensionCountry        DimensionName = "country"
	DimensionAgeGroup       DimensionName = "age_group"
	DimensionGender         DimensionName = "gender"
	DimensionWatchStatus    DimensionName = "watch_status"
)

// Dimension describes one lookup table and the staging column feeding it.
type Dimension struct {
	Name        DimensionName
	IDColumn    string
	ValueColumn string
	StageTable  string
	StageColumn string
}

// Table returns the dimension table name, the plural of its name.
func (d Dimension) Table() string {
	return inflection.Plural(string(d.Name))
}

var dimensions = []Dimension{
	{Name: DimensionAnimeType, IDColumn: "type_id", ValueColumn: "type_name", StageTable: "stage_anime", StageColumn: "type"},
	{Name: DimensionAnimeStatus, IDColumn: "status_id", ValueColumn: "status_desc", StageTable: "stage_anime", StageColumn: "status"},
	{Name: DimensionStudio, IDColumn: "studio_id", ValueColumn: "studio_name", StageTable: "stage_anime", StageColumn: "studio_name"},
	{Name: DimensionSource, IDColumn: "source_id", ValueColumn: "source_name", StageTable: "stage_anime", StageColumn: "source"},
	{Name: DimensionRatingCategory, IDColumn: "rating_category_id", ValueColumn: "rating_code", StageTable: "stage_anime", StageColumn: "rating_category"},
	{Name: DimensionGenre, IDColumn: "genre_id", ValueColumn: "genre_name", StageTable: "stage_genres", StageColumn: "genre_name"},
	{Name: DimensionCountry, IDColumn: "country_id", ValueColumn: "country_name", StageTable: "stage_users", StageColumn: "country"},
	{Name: DimensionAgeGroup, IDColumn: "age_group_id", ValueColumn: "age_group_label", StageTable: "stage_users", StageColumn: "age_group"},
	{Name: DimensionGender, IDColumn: "gender_id", ValueColumn: "gender_desc", StageTable: "stage_users", StageColumn: "gender"},
	{Name: DimensionWatchStatus, IDColumn: "watch_status_id", ValueColumn: "status_desc", StageTable: "stage_ratings", StageColumn: "watch_status"},
}

// AllDimensions returns the dimension catalog in build order.
func AllDimensions() []Dimension {
	out := make([]Dimension, len(dimensions))
	copy(out, dimensions)
	return out
}

// LookupDimension returns the catalog entry for name.
func LookupDimension(name DimensionName) (Dimension, bool) {
	for _, d := range dimensions {
		if d.Name == name {
			return d, true
		}
	}
	return Dimension{}, false
}

// MustDimension is LookupDimension for names declared in this package.
func MustDimension(name DimensionName) Dimension {
	d, ok := LookupDimension(name)
	if !ok {
		panic("unknown dimension " + string(name))
	}
	return d
}

// ============================================================================
// Warehouse tables
// ============================================================================

const (
	TableAnime            = "anime"
	TableUsers            = "users"
	TableAnimeGenres      = "anime_genres"
	TableUserAnimeRatings = "user_anime_ratings"
)

// EntityTables lists the entity tables in load order.
func EntityTables() []string {
	return []string{TableAnime, TableUsers}
}

// FactTables lists the fact tables in build order.
func FactTables() []string {
	return []string{TableAnimeGenres, TableUserAnimeRatings}
}

// AllTables lists every warehouse table in creation order:
// staging, dimensions, entities, facts.
func AllTables() []string {
	var out []string
	for _, s := range AllSources() {
		out = append(out, s.Table)
	}
	for _, d := range dimensions {
		out = append(out, d.Table())
	}
	out = append(out, EntityTables()...)
	out = append(out, FactTables()...)
	return out
}

// DropOrder lists every warehouse table so that no table is dropped before
// a table referencing it: facts, entities, dimensions, staging.
func DropOrder() []string {
	all := AllTables()
	out := make([]string, len(all))
	for i, t := range all {
		out[len(all)-1-i] = t
	}
	return out
}
