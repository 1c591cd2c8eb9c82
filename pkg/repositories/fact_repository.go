package repositories

import (
	"context"
	"fmt"

	"github.com/ekaya-inc/anime-warehouse/pkg/database"
	"github.com/ekaya-inc/anime-warehouse/pkg/models"
)

// RatingConflict decides what happens when a rating for a (user, anime)
// pair already exists.
type RatingConflict int

const (
	// RatingConflictSkip keeps the existing rating (first occurrence wins).
	RatingConflictSkip RatingConflict = iota
	// RatingConflictUpdate overwrites it (last occurrence wins).
	RatingConflictUpdate
)

// FactRepository reads staged relationships and writes the fact tables.
type FactRepository interface {
	ReadGenrePage(ctx context.Context, afterLine int64, limit int) ([]models.RawGenreTag, error)
	ReadRatingPage(ctx context.Context, afterLine int64, limit int) ([]models.RawRating, error)

	// InsertGenreTags inserts tags, skipping pairs already present.
	InsertGenreTags(ctx context.Context, rows []models.GenreTagRow) (int64, error)
	// InsertRatings inserts ratings; rows must not repeat a (user, anime) pair.
	InsertRatings(ctx context.Context, rows []models.RatingRow, conflict RatingConflict) (int64, error)
}

type factRepository struct{}

// NewFactRepository creates a new FactRepository.
func NewFactRepository() FactRepository {
	return &factRepository{}
}

var _ FactRepository = (*factRepository)(nil)

var (
	genreTagColumns = []string{"anime_id", "genre_id"}
	ratingColumns   = []string{"user_id", "anime_id", "user_score", "rating_date", "watch_status_id"}
)

const (
	genreTagConflict   = "ON CONFLICT (anime_id, genre_id) DO NOTHING"
	ratingSkipConflict = "ON CONFLICT (user_id, anime_id) DO NOTHING"
	ratingUpdate       = "ON CONFLICT (user_id, anime_id) DO UPDATE SET " +
		"user_score = EXCLUDED.user_score, rating_date = EXCLUDED.rating_date, watch_status_id = EXCLUDED.watch_status_id"
)

func (r *factRepository) ReadGenrePage(ctx context.Context, afterLine int64, limit int) ([]models.RawGenreTag, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no stage scope in context")
	}

	query, args := stagedPageQuery(models.GenresSource.Table, []string{
		textCol("anime_id"), textCol("genre_name"),
	}, afterLine, limit)

	rows, err := scope.Q().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read staged genres: %w", err)
	}
	defer rows.Close()

	var out []models.RawGenreTag
	for rows.Next() {
		var g models.RawGenreTag
		if err := rows.Scan(&g.Line, &g.AnimeID, &g.GenreName); err != nil {
			return nil, fmt.Errorf("failed to scan staged genre: %w", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating staged genres: %w", err)
	}
	return out, nil
}

func (r *factRepository) ReadRatingPage(ctx context.Context, afterLine int64, limit int) ([]models.RawRating, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no stage scope in context")
	}

	query, args := stagedPageQuery(models.RatingsSource.Table, []string{
		textCol("user_id"), textCol("anime_id"), textCol("user_score"), "rating_date", textCol("watch_status"),
	}, afterLine, limit)

	rows, err := scope.Q().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read staged ratings: %w", err)
	}
	defer rows.Close()

	var out []models.RawRating
	for rows.Next() {
		var rt models.RawRating
		if err := rows.Scan(&rt.Line, &rt.UserID, &rt.AnimeID, &rt.UserScore, &rt.RatingDate, &rt.WatchStatus); err != nil {
			return nil, fmt.Errorf("failed to scan staged rating: %w", err)
		}
		out = append(out, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating staged ratings: %w", err)
	}
	return out, nil
}

func (r *factRepository) InsertGenreTags(ctx context.Context, rows []models.GenreTagRow) (int64, error) {
	values := make([][]any, len(rows))
	for i, g := range rows {
		values[i] = []any{g.AnimeID, g.GenreID}
	}
	return insertChunked(ctx, models.TableAnimeGenres, genreTagColumns, values, genreTagConflict)
}

func (r *factRepository) InsertRatings(ctx context.Context, rows []models.RatingRow, conflict RatingConflict) (int64, error) {
	values := make([][]any, len(rows))
	for i, rt := range rows {
		values[i] = []any{rt.UserID, rt.AnimeID, rt.UserScore, rt.RatingDate, rt.WatchStatusID}
	}
	suffix := ratingSkipConflict
	if conflict == RatingConflictUpdate {
		suffix = ratingUpdate
	}
	return insertChunked(ctx, models.TableUserAnimeRatings, ratingColumns, values, suffix)
}
