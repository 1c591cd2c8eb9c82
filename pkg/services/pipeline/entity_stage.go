package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/anime-warehouse/pkg/database"
	"github.com/ekaya-inc/anime-warehouse/pkg/models"
	"github.com/ekaya-inc/anime-warehouse/pkg/repositories"
)

// EntityStage resolves staged anime and users against the dimensions and
// inserts the ones not yet loaded.
type EntityStage struct {
	*BaseStage
	entityRepo    repositories.EntityRepository
	dimensionRepo repositories.DimensionRepository
	pageSize      int
}

// NewEntityStage creates the EntityLoad stage.
func NewEntityStage(
	entityRepo repositories.EntityRepository,
	dimensionRepo repositories.DimensionRepository,
	pageSize int,
	logger *zap.Logger,
) *EntityStage {
	return &EntityStage{
		BaseStage:     NewBaseStage(models.StageEntityLoad, logger),
		entityRepo:    entityRepo,
		dimensionRepo: dimensionRepo,
		pageSize:      pageSize,
	}
}

var _ StageExecutor = (*EntityStage)(nil)

// Execute implements StageExecutor. Anime and users commit together; a value
// that fails to parse rolls back both.
func (s *EntityStage) Execute(ctx context.Context, report *models.StageReport) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no stage scope in context")
	}

	var animeCount, userCount models.InsertCount
	err := scope.InTx(ctx, func(ctx context.Context) error {
		dims, err := loadDimensionMaps(ctx, s.dimensionRepo,
			models.DimensionAnimeType, models.DimensionAnimeStatus, models.DimensionSource,
			models.DimensionStudio, models.DimensionRatingCategory,
			models.DimensionCountry, models.DimensionAgeGroup, models.DimensionGender,
		)
		if err != nil {
			return err
		}

		if animeCount, err = s.loadAnime(ctx, dims); err != nil {
			return err
		}
		userCount, err = s.loadUsers(ctx, dims)
		return err
	})
	if err != nil {
		return err
	}

	for _, c := range []models.InsertCount{animeCount, userCount} {
		s.Logger().Info("Entities loaded",
			zap.String("table", c.Table),
			zap.Int64("read", c.Read),
			zap.Int64("inserted", c.Inserted),
			zap.Int64("skipped", c.Skipped),
			zap.Int64("dropped", c.Dropped))
	}
	report.Counts = append(report.Counts, animeCount, userCount)
	return nil
}

func (s *EntityStage) loadAnime(ctx context.Context, dims dimensionMaps) (models.InsertCount, error) {
	count := models.InsertCount{Table: models.TableAnime}

	var after int64
	for {
		page, err := s.entityRepo.ReadAnimePage(ctx, after, s.pageSize)
		if err != nil {
			return count, err
		}
		if len(page) == 0 {
			break
		}
		after = page[len(page)-1].Line
		count.Read += int64(len(page))

		rows, dropped, err := resolveAnimePage(page, dims)
		if err != nil {
			return count, err
		}
		count.Dropped += dropped

		inserted, err := s.entityRepo.InsertAnime(ctx, rows)
		if err != nil {
			return count, err
		}
		count.Inserted += inserted
		count.Skipped += int64(len(page)) - dropped - inserted
	}
	return count, nil
}

// resolveAnimePage parses and resolves one page. Rows without an anime_id
// are dropped; a repeated anime_id keeps its first row.
func resolveAnimePage(page []models.RawAnime, dims dimensionMaps) ([]models.AnimeRow, int64, error) {
	rows := make([]models.AnimeRow, 0, len(page))
	seen := make(map[string]struct{}, len(page))
	var dropped int64

	for _, raw := range page {
		a, err := raw.Parse()
		if err != nil {
			return nil, 0, err
		}
		if a.AnimeID == "" {
			dropped++
			continue
		}
		if _, dup := seen[a.AnimeID]; dup {
			continue
		}
		seen[a.AnimeID] = struct{}{}

		rows = append(rows, models.AnimeRow{
			AnimeID:          a.AnimeID,
			Title:            a.Title,
			TypeID:           dims.ref(models.DimensionAnimeType, a.Type),
			StatusID:         dims.ref(models.DimensionAnimeStatus, a.Status),
			Episodes:         a.Episodes,
			StartDate:        a.StartDate,
			EndDate:          a.EndDate,
			SourceID:         dims.ref(models.DimensionSource, a.Source),
			StudioID:         dims.ref(models.DimensionStudio, a.Studio),
			RatingCategoryID: dims.ref(models.DimensionRatingCategory, a.RatingCategory),
			OverallScore:     a.OverallScore,
			PopularityRank:   a.PopularityRank,
		})
	}
	return rows, dropped, nil
}

func (s *EntityStage) loadUsers(ctx context.Context, dims dimensionMaps) (models.InsertCount, error) {
	count := models.InsertCount{Table: models.TableUsers}

	var after int64
	for {
		page, err := s.entityRepo.ReadUserPage(ctx, after, s.pageSize)
		if err != nil {
			return count, err
		}
		if len(page) == 0 {
			break
		}
		after = page[len(page)-1].Line
		count.Read += int64(len(page))

		rows, dropped, err := resolveUserPage(page, dims)
		if err != nil {
			return count, err
		}
		count.Dropped += dropped

		inserted, err := s.entityRepo.InsertUsers(ctx, rows)
		if err != nil {
			return count, err
		}
		count.Inserted += inserted
		count.Skipped += int64(len(page)) - dropped - inserted
	}
	return count, nil
}

// resolveUserPage parses and resolves one page. Rows without a user_id are
// dropped; a repeated user_id keeps its first row.
func resolveUserPage(page []models.RawUser, dims dimensionMaps) ([]models.UserRow, int64, error) {
	rows := make([]models.UserRow, 0, len(page))
	seen := make(map[string]struct{}, len(page))
	var dropped int64

	for _, raw := range page {
		u, err := raw.Parse()
		if err != nil {
			return nil, 0, err
		}
		if u.UserID == "" {
			dropped++
			continue
		}
		if _, dup := seen[u.UserID]; dup {
			continue
		}
		seen[u.UserID] = struct{}{}

		rows = append(rows, models.UserRow{
			UserID:     u.UserID,
			UserName:   u.UserName,
			CountryID:  dims.ref(models.DimensionCountry, u.Country),
			AgeGroupID: dims.ref(models.DimensionAgeGroup, u.AgeGroup),
			GenderID:   dims.ref(models.DimensionGender, u.Gender),
		})
	}
	return rows, dropped, nil
}
