package models

import "time"

// ============================================================================
// Resolved warehouse rows
// ============================================================================
//
// Dimension references are surrogate ids; nil means the source value was
// absent or did not match a dimension row.

// AnimeRow is one row of the anime entity table.
type AnimeRow struct {
	AnimeID          string
	Title            string
	TypeID           *int32
	StatusID         *int32
	Episodes         *int32
	StartDate        *time.Time
	EndDate          *time.Time
	SourceID         *int32
	StudioID         *int32
	RatingCategoryID *int32
	OverallScore     *float32
	PopularityRank   *int32
}

// UserRow is one row of the users entity table.
type UserRow struct {
	UserID     string
	UserName   string
	CountryID  *int32
	AgeGroupID *int32
	GenderID   *int32
}

// GenreTagRow is one row of the anime_genres fact table.
type GenreTagRow struct {
	AnimeID string
	GenreID int32
}

// RatingRow is one row of the user_anime_ratings fact table.
type RatingRow struct {
	UserID        string
	AnimeID       string
	UserScore     *float32
	RatingDate    *time.Time
	WatchStatusID int32
}
