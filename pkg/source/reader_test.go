package source

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/anime-warehouse/pkg/apperrors"
	"github.com/ekaya-inc/anime-warehouse/pkg/models"
)

func writeExport(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func readAll(t *testing.T, r *Reader) []Row {
	t.Helper()
	var rows []Row
	for {
		row, err := r.Next()
		if err == io.EOF {
			return rows
		}
		require.NoError(t, err)
		rows = append(rows, row)
	}
}

func TestOpen_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.txt")

	_, err := Open(path, models.GenresSource)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrMissingSourceFile))

	var missing *apperrors.MissingSourceFileError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, path, missing.Path)
}

func TestOpen_SchemaMismatchListsEveryMissingColumn(t *testing.T) {
	path := writeExport(t, "UserID\tUserName\tExtra\nU1\tamy\tx\n")

	_, err := Open(path, models.UsersSource)
	require.Error(t, err)

	var mismatch *apperrors.SchemaMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, path, mismatch.Path)
	assert.Equal(t, []string{"AgeGroup", "Country", "Gender"}, mismatch.Missing)
	assert.ErrorIs(t, err, apperrors.ErrSchemaMismatch)
}

func TestOpen_EmptyFileIsSchemaMismatch(t *testing.T) {
	path := writeExport(t, "")

	_, err := Open(path, models.GenresSource)
	assert.ErrorIs(t, err, apperrors.ErrSchemaMismatch)
}

func TestReader_StripsByteOrderMark(t *testing.T) {
	path := writeExport(t, "\ufeffAnimeID\tGenreName\nA1\tAction\n")

	r, err := Open(path, models.GenresSource)
	require.NoError(t, err)
	defer r.Close()

	rows := readAll(t, r)
	require.Len(t, rows, 1)
	assert.Equal(t, Row{int64(1), "A1", "Action"}, rows[0])
}

func TestReader_ReordersColumnsAndIgnoresExtras(t *testing.T) {
	path := writeExport(t, "GenreName\tNotes\tAnimeID\nDrama\tignored\tA7\n")

	r, err := Open(path, models.GenresSource)
	require.NoError(t, err)
	defer r.Close()

	rows := readAll(t, r)
	require.Len(t, rows, 1)
	assert.Equal(t, Row{int64(1), "A7", "Drama"}, rows[0])
}

func TestReader_ShortRowsBecomeNull(t *testing.T) {
	path := writeExport(t, "UserID\tUserName\tCountry\tAgeGroup\tGender\nU1\tamy\nU2\tbo\tJP\t18-24\tF\n")

	r, err := Open(path, models.UsersSource)
	require.NoError(t, err)
	defer r.Close()

	rows := readAll(t, r)
	require.Len(t, rows, 2)
	assert.Equal(t, Row{int64(1), "U1", "amy", nil, nil, nil}, rows[0])
	assert.Equal(t, Row{int64(2), "U2", "bo", "JP", "18-24", "F"}, rows[1])
}

func TestReader_Timestamps(t *testing.T) {
	path := writeExport(t, "UserID\tAnimeID\tUserScore\tRatingDate\tWatchStatus\n"+
		"U1\tA1\t9\t2021-03-04\tCompleted\n"+
		"U1\tA2\t\t\tDropped\n")

	r, err := Open(path, models.RatingsSource)
	require.NoError(t, err)
	defer r.Close()

	rows := readAll(t, r)
	require.Len(t, rows, 2)
	assert.Equal(t, time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC), rows[0][4])
	assert.Equal(t, "", rows[1][3], "empty text stays text")
	assert.Nil(t, rows[1][4], "empty timestamp is null")
}

func TestReader_MalformedTimestamp(t *testing.T) {
	path := writeExport(t, "UserID\tAnimeID\tUserScore\tRatingDate\tWatchStatus\n"+
		"U1\tA1\t9\t2021-03-04\tCompleted\n"+
		"U2\tA1\t9\tyesterday\tCompleted\n")

	r, err := Open(path, models.RatingsSource)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Next()
	require.NoError(t, err)

	_, err = r.Next()
	var coercion *apperrors.ValueCoercionError
	require.ErrorAs(t, err, &coercion)
	assert.Equal(t, "export.txt", coercion.Source)
	assert.Equal(t, int64(2), coercion.Line)
	assert.Equal(t, "RatingDate", coercion.Column)
	assert.Equal(t, "yesterday", coercion.Value)
}

func TestReader_ReadBatch(t *testing.T) {
	content := "AnimeID\tGenreName\n"
	for _, g := range []string{"Action", "Drama", "Comedy", "Horror", "Mecha"} {
		content += "A1\t" + g + "\n"
	}
	path := writeExport(t, content)

	r, err := Open(path, models.GenresSource)
	require.NoError(t, err)
	defer r.Close()

	var sizes []int
	for {
		batch, err := r.ReadBatch(2)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		sizes = append(sizes, len(batch))
	}
	assert.Equal(t, []int{2, 2, 1}, sizes)
	assert.Equal(t, int64(5), r.Line())

	_, err = r.ReadBatch(0)
	assert.Error(t, err)
}

func TestReader_LazyQuotes(t *testing.T) {
	path := writeExport(t, "AnimeID\tGenreName\nA1\tSlice \"of\" Life\n")

	r, err := Open(path, models.GenresSource)
	require.NoError(t, err)
	defer r.Close()

	rows := readAll(t, r)
	require.Len(t, rows, 1)
	assert.Equal(t, `Slice "of" Life`, rows[0][2])
}
