package models

// ============================================================================
// Source Files and Staging Layout
// ============================================================================

// ColumnKind is the declared staging type of a source column.
type ColumnKind string

const (
	ColumnText      ColumnKind = "text"
	ColumnTimestamp ColumnKind = "timestamp"
)

// LineColumn holds the 1-based data row number of every staged record.
const LineColumn = "line_no"

// ColumnSpec maps one header name of a source export to its staging column.
type ColumnSpec struct {
	Header string
	Column string
	Kind   ColumnKind
}

// SourceSpec describes one delimited export and the staging table it fills.
type SourceSpec struct {
	Name    string
	Table   string
	Columns []ColumnSpec
}

// Headers returns the expected header names in declared order.
func (s SourceSpec) Headers() []string {
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Header
	}
	return out
}

// StagingColumns returns the staging table columns written by a load,
// starting with LineColumn.
func (s SourceSpec) StagingColumns() []string {
	out := make([]string, 0, len(s.Columns)+1)
	out = append(out, LineColumn)
	for _, c := range s.Columns {
		out = append(out, c.Column)
	}
	return out
}

const (
	SourceAnime   = "anime"
	SourceGenres  = "genres"
	SourceUsers   = "users"
	SourceRatings = "ratings"
)

var (
	AnimeSource = SourceSpec{
		Name:  SourceAnime,
		Table: "stage_anime",
		Columns: []ColumnSpec{
			{Header: "AnimeID", Column: "anime_id", Kind: ColumnText},
			{Header: "AnimeTitle", Column: "anime_title", Kind: ColumnText},
			{Header: "Type", Column: "type", Kind: ColumnText},
			{Header: "Episodes", Column: "episodes", Kind: ColumnText},
			{Header: "Status", Column: "status", Kind: ColumnText},
			{Header: "StartDate", Column: "start_date", Kind: ColumnTimestamp},
			{Header: "EndDate", Column: "end_date", Kind: ColumnTimestamp},
			{Header: "Source", Column: "source", Kind: ColumnText},
			{Header: "StudioName", Column: "studio_name", Kind: ColumnText},
			{Header: "RatingCategory", Column: "rating_category", Kind: ColumnText},
			{Header: "OverallScore", Column: "overall_score", Kind: ColumnText},
			{Header: "PopularityRank", Column: "popularity_rank", Kind: ColumnText},
		},
	}

	GenresSource = SourceSpec{
		Name:  SourceGenres,
		Table: "stage_genres",
		Columns: []ColumnSpec{
			{Header: "AnimeID", Column: "anime_id", Kind: ColumnText},
			{Header: "GenreName", Column: "genre_name", Kind: ColumnText},
		},
	}

	UsersSource = SourceSpec{
		Name:  SourceUsers,
		Table: "stage_users",
		Columns: []ColumnSpec{
			{Header: "UserID", Column: "user_id", Kind: ColumnText},
			{Header: "UserName", Column: "user_name", Kind: ColumnText},
			{Header: "Country", Column: "country", Kind: ColumnText},
			{Header: "AgeGroup", Column: "age_group", Kind: ColumnText},
			{Header: "Gender", Column: "gender", Kind: ColumnText},
		},
	}

	RatingsSource = SourceSpec{
		Name:  SourceRatings,
		Table: "stage_ratings",
		Columns: []ColumnSpec{
			{Header: "UserID", Column: "user_id", Kind: ColumnText},
			{Header: "AnimeID", Column: "anime_id", Kind: ColumnText},
			{Header: "UserScore", Column: "user_score", Kind: ColumnText},
			{Header: "RatingDate", Column: "rating_date", Kind: ColumnTimestamp},
			{Header: "WatchStatus", Column: "watch_status", Kind: ColumnText},
		},
	}
)

// AllSources returns every source in load order.
func AllSources() []SourceSpec {
	return []SourceSpec{AnimeSource, GenresSource, UsersSource, RatingsSource}
}

// LookupSource returns the source spec with the given name.
func LookupSource(name string) (SourceSpec, bool) {
	for _, s := range AllSources() {
		if s.Name == name {
			return s, true
		}
	}
	return SourceSpec{}, false
}
