package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/anime-warehouse/pkg/database"
	"github.com/ekaya-inc/anime-warehouse/pkg/models"
	"github.com/ekaya-inc/anime-warehouse/pkg/repositories"
)

// FactStage builds genre tags and ratings from staging, keeping only rows
// whose entity and dimension references resolve.
type FactStage struct {
	*BaseStage
	factRepo       repositories.FactRepository
	entityRepo     repositories.EntityRepository
	dimensionRepo  repositories.DimensionRepository
	pageSize       int
	ratingConflict repositories.RatingConflict
}

// NewFactStage creates the FactBuild stage.
func NewFactStage(
	factRepo repositories.FactRepository,
	entityRepo repositories.EntityRepository,
	dimensionRepo repositories.DimensionRepository,
	pageSize int,
	ratingConflict repositories.RatingConflict,
	logger *zap.Logger,
) *FactStage {
	return &FactStage{
		BaseStage:      NewBaseStage(models.StageFactBuild, logger),
		factRepo:       factRepo,
		entityRepo:     entityRepo,
		dimensionRepo:  dimensionRepo,
		pageSize:       pageSize,
		ratingConflict: ratingConflict,
	}
}

var _ StageExecutor = (*FactStage)(nil)

// Execute implements StageExecutor. Both fact tables commit together.
func (s *FactStage) Execute(ctx context.Context, report *models.StageReport) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no stage scope in context")
	}

	var genreCount, ratingCount models.InsertCount
	err := scope.InTx(ctx, func(ctx context.Context) error {
		dims, err := loadDimensionMaps(ctx, s.dimensionRepo, models.DimensionGenre, models.DimensionWatchStatus)
		if err != nil {
			return err
		}

		if genreCount, err = s.buildGenreTags(ctx, dims); err != nil {
			return err
		}
		ratingCount, err = s.buildRatings(ctx, dims)
		return err
	})
	if err != nil {
		return err
	}

	for _, c := range []models.InsertCount{genreCount, ratingCount} {
		s.Logger().Info("Facts built",
			zap.String("table", c.Table),
			zap.Int64("read", c.Read),
			zap.Int64("inserted", c.Inserted),
			zap.Int64("skipped", c.Skipped),
			zap.Int64("dropped", c.Dropped))
	}
	report.Counts = append(report.Counts, genreCount, ratingCount)
	return nil
}

func (s *FactStage) buildGenreTags(ctx context.Context, dims dimensionMaps) (models.InsertCount, error) {
	count := models.InsertCount{Table: models.TableAnimeGenres}

	var after int64
	for {
		page, err := s.factRepo.ReadGenrePage(ctx, after, s.pageSize)
		if err != nil {
			return count, err
		}
		if len(page) == 0 {
			break
		}
		after = page[len(page)-1].Line
		count.Read += int64(len(page))

		ids := make([]string, len(page))
		for i, g := range page {
			ids[i] = g.AnimeID
		}
		known, err := s.entityRepo.ExistingAnimeIDs(ctx, distinctNonEmpty(ids))
		if err != nil {
			return count, err
		}

		rows, dropped, err := resolveGenrePage(page, dims, known)
		if err != nil {
			return count, err
		}
		count.Dropped += dropped

		inserted, err := s.factRepo.InsertGenreTags(ctx, rows)
		if err != nil {
			return count, err
		}
		count.Inserted += inserted
		count.Skipped += int64(len(page)) - dropped - inserted
	}
	return count, nil
}

// resolveGenrePage drops tags whose anime or genre is unknown and repeats
// of a pair within the page.
func resolveGenrePage(page []models.RawGenreTag, dims dimensionMaps, knownAnime map[string]struct{}) ([]models.GenreTagRow, int64, error) {
	rows := make([]models.GenreTagRow, 0, len(page))
	seen := make(map[models.GenreTagRow]struct{}, len(page))
	var dropped int64

	for _, raw := range page {
		g, err := raw.Parse()
		if err != nil {
			return nil, 0, err
		}
		genreID := dims.ref(models.DimensionGenre, g.GenreName)
		_, animeOK := knownAnime[g.AnimeID]
		if genreID == nil || !animeOK {
			dropped++
			continue
		}

		row := models.GenreTagRow{AnimeID: g.AnimeID, GenreID: *genreID}
		if _, dup := seen[row]; dup {
			continue
		}
		seen[row] = struct{}{}
		rows = append(rows, row)
	}
	return rows, dropped, nil
}

func (s *FactStage) buildRatings(ctx context.Context, dims dimensionMaps) (models.InsertCount, error) {
	count := models.InsertCount{Table: models.TableUserAnimeRatings}

	var after int64
	for {
		page, err := s.factRepo.ReadRatingPage(ctx, after, s.pageSize)
		if err != nil {
			return count, err
		}
		if len(page) == 0 {
			break
		}
		after = page[len(page)-1].Line
		count.Read += int64(len(page))

		userIDs := make([]string, len(page))
		animeIDs := make([]string, len(page))
		for i, r := range page {
			userIDs[i] = r.UserID
			animeIDs[i] = r.AnimeID
		}
		knownUsers, err := s.entityRepo.ExistingUserIDs(ctx, distinctNonEmpty(userIDs))
		if err != nil {
			return count, err
		}
		knownAnime, err := s.entityRepo.ExistingAnimeIDs(ctx, distinctNonEmpty(animeIDs))
		if err != nil {
			return count, err
		}

		rows, dropped, err := resolveRatingPage(page, dims, knownUsers, knownAnime, s.ratingConflict)
		if err != nil {
			return count, err
		}
		count.Dropped += dropped

		inserted, err := s.factRepo.InsertRatings(ctx, rows, s.ratingConflict)
		if err != nil {
			return count, err
		}
		count.Inserted += inserted
		count.Skipped += int64(len(page)) - dropped - inserted
	}
	return count, nil
}

type ratingKey struct {
	userID  string
	animeID string
}

// resolveRatingPage drops ratings whose user, anime or watch status is
// unknown, parses the scores of the rest, and collapses repeats of a (user, anime) pair: the
// first row is kept under RatingConflictSkip, the last under
// RatingConflictUpdate. A pair keeps the position of its first occurrence.
func resolveRatingPage(
	page []models.RawRating,
	dims dimensionMaps,
	knownUsers, knownAnime map[string]struct{},
	conflict repositories.RatingConflict,
) ([]models.RatingRow, int64, error) {
	rows := make([]models.RatingRow, 0, len(page))
	index := make(map[ratingKey]int, len(page))
	var dropped int64

	for _, raw := range page {
		// Orphans are dropped before their score is parsed.
		watchID := dims.ref(models.DimensionWatchStatus, raw.WatchStatus)
		_, userOK := knownUsers[raw.UserID]
		_, animeOK := knownAnime[raw.AnimeID]
		if watchID == nil || !userOK || !animeOK {
			dropped++
			continue
		}

		r, err := raw.Parse()
		if err != nil {
			return nil, 0, err
		}

		row := models.RatingRow{
			UserID:        r.UserID,
			AnimeID:       r.AnimeID,
			UserScore:     r.UserScore,
			RatingDate:    r.RatingDate,
			WatchStatusID: *watchID,
		}
		key := ratingKey{userID: r.UserID, animeID: r.AnimeID}
		if i, dup := index[key]; dup {
			if conflict == repositories.RatingConflictUpdate {
				rows[i] = row
			}
			continue
		}
		index[key] = len(rows)
		rows = append(rows, row)
	}
	return rows, dropped, nil
}
