package repositories

import (
	"context"
	"fmt"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/anime-warehouse/pkg/database"
	"github.com/ekaya-inc/anime-warehouse/pkg/models"
)

// EntityRepository reads staged entities and writes the entity tables.
type EntityRepository interface {
	// ReadAnimePage returns up to limit staged anime rows with line_no > afterLine.
	ReadAnimePage(ctx context.Context, afterLine int64, limit int) ([]models.RawAnime, error)
	// ReadUserPage returns up to limit staged user rows with line_no > afterLine.
	ReadUserPage(ctx context.Context, afterLine int64, limit int) ([]models.RawUser, error)

	// InsertAnime inserts rows, leaving existing anime_ids untouched.
	InsertAnime(ctx context.Context, rows []models.AnimeRow) (int64, error)
	// InsertUsers inserts rows, leaving existing user_ids untouched.
	InsertUsers(ctx context.Context, rows []models.UserRow) (int64, error)

	// ExistingAnimeIDs returns the subset of ids present in the anime table.
	ExistingAnimeIDs(ctx context.Context, ids []string) (map[string]struct{}, error)
	// ExistingUserIDs returns the subset of ids present in the users table.
	ExistingUserIDs(ctx context.Context, ids []string) (map[string]struct{}, error)
}

type entityRepository struct{}

// NewEntityRepository creates a new EntityRepository.
func NewEntityRepository() EntityRepository {
	return &entityRepository{}
}

var _ EntityRepository = (*entityRepository)(nil)

var (
	animeColumns = []string{
		"anime_id", "title", "type_id", "status_id", "episodes", "start_date", "end_date",
		"source_id", "studio_id", "rating_category_id", "overall_score", "popularity_rank",
	}
	userColumns = []string{"user_id", "user_name", "country_id", "age_group_id", "gender_id"}
)

// textCol folds a NULL staging text column to "".
func textCol(col string) string {
	return fmt.Sprintf("COALESCE(%s, '')", col)
}

// stagedPageQuery selects one keyset page of a staging table ordered by line_no.
func stagedPageQuery(table string, cols []string, afterLine int64, limit int) (string, []any) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(append([]string{models.LineColumn}, cols...)...)
	sb.From(table)
	sb.Where(sb.GreaterThan(models.LineColumn, afterLine))
	sb.OrderBy(models.LineColumn)
	sb.Limit(limit)
	return sb.Build()
}

func (r *entityRepository) ReadAnimePage(ctx context.Context, afterLine int64, limit int) ([]models.RawAnime, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no stage scope in context")
	}

	query, args := stagedPageQuery(models.AnimeSource.Table, []string{
		textCol("anime_id"), textCol("anime_title"), textCol("type"), textCol("episodes"),
		textCol("status"), "start_date", "end_date", textCol("source"), textCol("studio_name"),
		textCol("rating_category"), textCol("overall_score"), textCol("popularity_rank"),
	}, afterLine, limit)

	rows, err := scope.Q().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read staged anime: %w", err)
	}
	defer rows.Close()

	var out []models.RawAnime
	for rows.Next() {
		var a models.RawAnime
		if err := rows.Scan(
			&a.Line, &a.AnimeID, &a.Title, &a.Type, &a.Episodes, &a.Status,
			&a.StartDate, &a.EndDate, &a.Source, &a.Studio, &a.RatingCategory,
			&a.OverallScore, &a.PopularityRank,
		); err != nil {
			return nil, fmt.Errorf("failed to scan staged anime: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating staged anime: %w", err)
	}
	return out, nil
}

func (r *entityRepository) ReadUserPage(ctx context.Context, afterLine int64, limit int) ([]models.RawUser, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no stage scope in context")
	}

	query, args := stagedPageQuery(models.UsersSource.Table, []string{
		textCol("user_id"), textCol("user_name"), textCol("country"), textCol("age_group"), textCol("gender"),
	}, afterLine, limit)

	rows, err := scope.Q().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read staged users: %w", err)
	}
	defer rows.Close()

	var out []models.RawUser
	for rows.Next() {
		var u models.RawUser
		if err := rows.Scan(&u.Line, &u.UserID, &u.UserName, &u.Country, &u.AgeGroup, &u.Gender); err != nil {
			return nil, fmt.Errorf("failed to scan staged user: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating staged users: %w", err)
	}
	return out, nil
}

func (r *entityRepository) InsertAnime(ctx context.Context, rows []models.AnimeRow) (int64, error) {
	values := make([][]any, len(rows))
	for i, a := range rows {
		values[i] = []any{
			a.AnimeID, a.Title, a.TypeID, a.StatusID, a.Episodes, a.StartDate, a.EndDate,
			a.SourceID, a.StudioID, a.RatingCategoryID, a.OverallScore, a.PopularityRank,
		}
	}
	return insertChunked(ctx, models.TableAnime, animeColumns, values, "ON CONFLICT (anime_id) DO NOTHING")
}

func (r *entityRepository) InsertUsers(ctx context.Context, rows []models.UserRow) (int64, error) {
	values := make([][]any, len(rows))
	for i, u := range rows {
		values[i] = []any{u.UserID, u.UserName, u.CountryID, u.AgeGroupID, u.GenderID}
	}
	return insertChunked(ctx, models.TableUsers, userColumns, values, "ON CONFLICT (user_id) DO NOTHING")
}

func (r *entityRepository) ExistingAnimeIDs(ctx context.Context, ids []string) (map[string]struct{}, error) {
	return existingIDs(ctx, models.TableAnime, "anime_id", ids)
}

func (r *entityRepository) ExistingUserIDs(ctx context.Context, ids []string) (map[string]struct{}, error) {
	return existingIDs(ctx, models.TableUsers, "user_id", ids)
}

func existingIDs(ctx context.Context, table, column string, ids []string) (map[string]struct{}, error) {
	out := make(map[string]struct{}, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no stage scope in context")
	}

	col := pgx.Identifier{column}.Sanitize()
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ANY($1)", col, pgx.Identifier{table}.Sanitize(), col)
	rows, err := scope.Q().Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s ids: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan %s id: %w", table, err)
		}
		out[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s ids: %w", table, err)
	}
	return out, nil
}

// insertChunked runs as many multi-row inserts as the bind limit requires
// and returns the total rows affected.
func insertChunked(ctx context.Context, table string, cols []string, values [][]any, suffix string) (int64, error) {
	if len(values) == 0 {
		return 0, nil
	}

	scope, ok := database.GetScope(ctx)
	if !ok {
		return 0, fmt.Errorf("no stage scope in context")
	}

	var affected int64
	for _, span := range chunk(len(values), rowsPerInsert(len(cols))) {
		query, args := buildInsert(table, cols, values[span[0]:span[1]], suffix)
		tag, err := scope.Q().Exec(ctx, query, args...)
		if err != nil {
			return affected, fmt.Errorf("failed to insert into %s: %w", table, err)
		}
		affected += tag.RowsAffected()
	}
	return affected, nil
}
