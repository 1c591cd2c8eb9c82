package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/anime-warehouse/pkg/apperrors"
	"github.com/ekaya-inc/anime-warehouse/pkg/config"
	"github.com/ekaya-inc/anime-warehouse/pkg/models"
)

func testConfig() *config.Config {
	return &config.Config{
		Sources: config.SourcesConfig{
			DataDir: "/data",
			Anime:   config.SourceFileConfig{File: "anime.txt", BatchSize: 10},
			Genres:  config.SourceFileConfig{File: "genres.txt", BatchSize: 10},
			Users:   config.SourceFileConfig{File: "users.txt", BatchSize: 10},
			Ratings: config.SourceFileConfig{File: "/abs/ratings.txt", BatchSize: 1000},
		},
		Entities: config.EntitiesConfig{PageSize: 100},
		Facts:    config.FactsConfig{PageSize: 100, RatingConflict: config.RatingConflictUpdate},
	}
}

func TestSourceInputs(t *testing.T) {
	inputs, err := SourceInputs(testConfig())
	require.NoError(t, err)
	require.Len(t, inputs, 4)
	assert.Equal(t, models.AnimeSource.Table, inputs[0].Spec.Table)
	assert.Equal(t, filepath.Join("/data", "anime.txt"), inputs[0].Path)
	assert.Equal(t, "/abs/ratings.txt", inputs[3].Path)
	assert.Equal(t, 1000, inputs[3].BatchSize)

	inputs, err = SourceInputs(testConfig(), "Users", "users")
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	assert.Equal(t, models.SourceUsers, inputs[0].Spec.Name)

	_, err = SourceInputs(testConfig(), "episodes")
	assert.ErrorIs(t, err, apperrors.ErrInvalidStagePlan)
}

func TestBuildStages(t *testing.T) {
	deps := NewDeps(testConfig(), &fakeScopes{}, "postgres://localhost/test", nil, zap.NewNop())

	stages, err := BuildStages(deps, []models.StageName{models.StageFactBuild, models.StageSchemaReset, models.StageStagingLoad}, nil)
	require.NoError(t, err)

	var names []models.StageName
	for _, s := range stages {
		names = append(names, s.Name())
	}
	assert.Equal(t, []models.StageName{models.StageSchemaReset, models.StageStagingLoad, models.StageFactBuild}, names)

	fact, ok := stages[2].(*FactStage)
	require.True(t, ok)
	assert.Equal(t, 100, fact.pageSize)

	staging, ok := stages[1].(*StagingStage)
	require.True(t, ok)
	assert.Len(t, staging.inputs, 4)
}

func TestBuildStages_UnknownSource(t *testing.T) {
	deps := NewDeps(testConfig(), &fakeScopes{}, "", nil, zap.NewNop())
	_, err := BuildStages(deps, []models.StageName{models.StageStagingLoad}, []string{"episodes"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidStagePlan)
}
