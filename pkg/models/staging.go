package models

import "time"

// ============================================================================
// Raw staging rows
// ============================================================================
//
// Raw rows are read back from the staging tables. Text columns arrive with
// NULL folded to "". Timestamps were already parsed when the file was staged.

// RawAnime is one row of stage_anime.
type RawAnime struct {
	Line           int64
	AnimeID        string
	Title          string
	Type           string
	Episodes       string
	Status         string
	StartDate      *time.Time
	EndDate        *time.Time
	Source         string
	Studio         string
	RatingCategory string
	OverallScore   string
	PopularityRank string
}

// RawUser is one row of stage_users.
type RawUser struct {
	Line     int64
	UserID   string
	UserName string
	Country  string
	AgeGroup string
	Gender   string
}

// RawGenreTag is one row of stage_genres.
type RawGenreTag struct {
	Line      int64
	AnimeID   string
	GenreName string
}

// RawRating is one row of stage_ratings.
type RawRating struct {
	Line        int64
	UserID      string
	AnimeID     string
	UserScore   string
	RatingDate  *time.Time
	WatchStatus string
}

// ============================================================================
// Typed staging records
// ============================================================================

// StagedAnime is a parsed catalog item. Empty text means absent.
type StagedAnime struct {
	Line           int64
	AnimeID        string
	Title          string
	Type           string
	Status         string
	Episodes       *int32
	StartDate      *time.Time
	EndDate        *time.Time
	Source         string
	Studio         string
	RatingCategory string
	OverallScore   *float32
	PopularityRank *int32
}

// StagedUser is a parsed user.
type StagedUser struct {
	Line     int64
	UserID   string
	UserName string
	Country  string
	AgeGroup string
	Gender   string
}

// StagedGenreTag is a parsed item-genre tag.
type StagedGenreTag struct {
	Line      int64
	AnimeID   string
	GenreName string
}

// StagedRating is a parsed user-item rating.
type StagedRating struct {
	Line        int64
	UserID      string
	AnimeID     string
	UserScore   *float32
	RatingDate  *time.Time
	WatchStatus string
}

// Parse coerces the numeric fields of a staged anime row.
func (r RawAnime) Parse() (StagedAnime, error) {
	ref := FieldRef{Source: AnimeSource.Table, Line: r.Line}

	ref.Column = "episodes"
	episodes, err := ParseNullableInt32(ref, r.Episodes)
	if err != nil {
		return StagedAnime{}, err
	}
	ref.Column = "overall_score"
	score, err := ParseNullableReal(ref, r.OverallScore)
	if err != nil {
		return StagedAnime{}, err
	}
	ref.Column = "popularity_rank"
	rank, err := ParseNullableInt32(ref, r.PopularityRank)
	if err != nil {
		return StagedAnime{}, err
	}

	return StagedAnime{
		Line:           r.Line,
		AnimeID:        r.AnimeID,
		Title:          r.Title,
		Type:           r.Type,
		Status:         r.Status,
		Episodes:       episodes,
		StartDate:      r.StartDate,
		EndDate:        r.EndDate,
		Source:         r.Source,
		Studio:         r.Studio,
		RatingCategory: r.RatingCategory,
		OverallScore:   score,
		PopularityRank: rank,
	}, nil
}

// Parse converts a staged user row. Users carry no numeric fields.
func (r RawUser) Parse() (StagedUser, error) {
	return StagedUser(r), nil
}

// Parse converts a staged genre tag row.
func (r RawGenreTag) Parse() (StagedGenreTag, error) {
	return StagedGenreTag(r), nil
}

// Parse coerces the score of a staged rating row.
func (r RawRating) Parse() (StagedRating, error) {
	score, err := ParseNullableReal(FieldRef{Source: RatingsSource.Table, Line: r.Line, Column: "user_score"}, r.UserScore)
	if err != nil {
		return StagedRating{}, err
	}
	return StagedRating{
		Line:        r.Line,
		UserID:      r.UserID,
		AnimeID:     r.AnimeID,
		UserScore:   score,
		RatingDate:  r.RatingDate,
		WatchStatus: r.WatchStatus,
	}, nil
}
