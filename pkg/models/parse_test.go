package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/anime-warehouse/pkg/apperrors"
)

func TestParseNullableInt32(t *testing.T) {
	ref := FieldRef{Source: "stage_anime", Line: 3, Column: "episodes"}

	tests := []struct {
		name    string
		input   string
		want    *int32
		wantErr bool
	}{
		{name: "empty is null", input: ""},
		{name: "blank is null", input: "   "},
		{name: "integer", input: "24", want: ptr(int32(24))},
		{name: "padded integer", input: " 12 ", want: ptr(int32(12))},
		{name: "negative", input: "-1", want: ptr(int32(-1))},
		{name: "decimal rejected", input: "12.0", wantErr: true},
		{name: "text rejected", input: "Unknown", wantErr: true},
		{name: "overflow rejected", input: "99999999999", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseNullableInt32(ref, tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, apperrors.ErrValueCoercion))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseNullableReal(t *testing.T) {
	ref := FieldRef{Source: "stage_anime", Line: 7, Column: "overall_score"}

	got, err := ParseNullableReal(ref, "")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = ParseNullableReal(ref, "8.5")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, float32(8.5), *got)

	_, err = ParseNullableReal(ref, "eight")
	require.Error(t, err)

	var coercion *apperrors.ValueCoercionError
	require.True(t, errors.As(err, &coercion))
	assert.Equal(t, "stage_anime", coercion.Source)
	assert.Equal(t, int64(7), coercion.Line)
	assert.Equal(t, "overall_score", coercion.Column)
	assert.Equal(t, "eight", coercion.Value)
	assert.Equal(t, "real", coercion.Kind)
}

func TestParseNullableTimestamp(t *testing.T) {
	ref := FieldRef{Source: "AnimeCorePopulatedTable.txt", Line: 1, Column: "StartDate"}

	tests := []struct {
		input string
		want  time.Time
	}{
		{"2019-04-06", time.Date(2019, 4, 6, 0, 0, 0, 0, time.UTC)},
		{"2019-04-06 10:30:00", time.Date(2019, 4, 6, 10, 30, 0, 0, time.UTC)},
		{"2019-04-06T10:30:00", time.Date(2019, 4, 6, 10, 30, 0, 0, time.UTC)},
		{"2019-04-06T10:30:00Z", time.Date(2019, 4, 6, 10, 30, 0, 0, time.UTC)},
		{"2019-04-06 10:30:00.250000", time.Date(2019, 4, 6, 10, 30, 0, 250_000_000, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseNullableTimestamp(ref, tt.input)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "got %v", got)
		})
	}

	got, err := ParseNullableTimestamp(ref, "")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = ParseNullableTimestamp(ref, "April 2019")
	assert.ErrorIs(t, err, apperrors.ErrValueCoercion)
}

// Whitespace-only fields count as empty for every typed column, so a blank
// score or date loads as NULL instead of failing the stage.
func TestParseNullable_WhitespaceIsNull(t *testing.T) {
	ref := FieldRef{Source: "stage_ratings", Line: 2, Column: "user_score"}

	for _, blank := range []string{" ", "\t", " \t  "} {
		i, err := ParseNullableInt32(ref, blank)
		require.NoError(t, err, "%q", blank)
		assert.Nil(t, i)

		r, err := ParseNullableReal(ref, blank)
		require.NoError(t, err, "%q", blank)
		assert.Nil(t, r)

		ts, err := ParseNullableTimestamp(ref, blank)
		require.NoError(t, err, "%q", blank)
		assert.Nil(t, ts)
	}

	r, err := ParseNullableReal(ref, " 7.25 ")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, float32(7.25), *r)
}

func TestRawAnime_Parse(t *testing.T) {
	raw := RawAnime{Line: 1, AnimeID: "A1", Title: "X", Type: "TV", OverallScore: ""}
	staged, err := raw.Parse()
	require.NoError(t, err)
	assert.Equal(t, "A1", staged.AnimeID)
	assert.Equal(t, "TV", staged.Type)
	assert.Nil(t, staged.OverallScore)
	assert.Nil(t, staged.Episodes)

	raw = RawAnime{Line: 2, AnimeID: "A2", Title: "Y", Type: "Movie", OverallScore: "8.5", Episodes: "1", PopularityRank: "10"}
	staged, err = raw.Parse()
	require.NoError(t, err)
	require.NotNil(t, staged.OverallScore)
	assert.Equal(t, float32(8.5), *staged.OverallScore)
	assert.Equal(t, int32(1), *staged.Episodes)
	assert.Equal(t, int32(10), *staged.PopularityRank)

	raw = RawAnime{Line: 9, AnimeID: "A9", OverallScore: "great"}
	_, err = raw.Parse()
	var coercion *apperrors.ValueCoercionError
	require.ErrorAs(t, err, &coercion)
	assert.Equal(t, int64(9), coercion.Line)
	assert.Equal(t, "overall_score", coercion.Column)
}

func TestRawRating_Parse(t *testing.T) {
	staged, err := RawRating{Line: 4, UserID: "U1", AnimeID: "A1", UserScore: "7", WatchStatus: "Completed"}.Parse()
	require.NoError(t, err)
	assert.Equal(t, float32(7), *staged.UserScore)
	assert.Equal(t, "Completed", staged.WatchStatus)

	_, err = RawRating{Line: 5, UserScore: "n/a"}.Parse()
	assert.ErrorIs(t, err, apperrors.ErrValueCoercion)
}

func ptr[T any](v T) *T {
	return &v
}
