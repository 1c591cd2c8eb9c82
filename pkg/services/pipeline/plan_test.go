package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/anime-warehouse/pkg/apperrors"
	"github.com/ekaya-inc/anime-warehouse/pkg/models"
)

func TestPlan_EmptyMeansEverything(t *testing.T) {
	got, err := Plan(nil)
	require.NoError(t, err)
	assert.Equal(t, models.AllStages(), got)
}

func TestPlan_SortsAndDeduplicates(t *testing.T) {
	got, err := Plan([]models.StageName{
		models.StageFactBuild,
		models.StageDimensionBuild,
		models.StageFactBuild,
		models.StageEntityLoad,
	})
	require.NoError(t, err)
	assert.Equal(t, []models.StageName{
		models.StageDimensionBuild,
		models.StageEntityLoad,
		models.StageFactBuild,
	}, got)
}

func TestPlan_RejectsUnknownStage(t *testing.T) {
	_, err := Plan([]models.StageName{"Publish"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidStagePlan)
}

func TestValidateOrder(t *testing.T) {
	tests := []struct {
		name    string
		stages  []models.StageName
		wantErr bool
	}{
		{name: "full pipeline", stages: models.AllStages()},
		{name: "single stage", stages: []models.StageName{models.StageFactBuild}},
		{name: "inputs from an earlier run", stages: []models.StageName{models.StageEntityLoad, models.StageFactBuild}},
		{
			name:    "entity before dimension",
			stages:  []models.StageName{models.StageEntityLoad, models.StageDimensionBuild},
			wantErr: true,
		},
		{
			name:    "facts before staging",
			stages:  []models.StageName{models.StageFactBuild, models.StageStagingLoad},
			wantErr: true,
		},
		{
			name:    "duplicate",
			stages:  []models.StageName{models.StageDimensionBuild, models.StageDimensionBuild},
			wantErr: true,
		},
		{
			name:    "unknown",
			stages:  []models.StageName{"Publish"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOrder(tt.stages)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrInvalidStagePlan)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
