package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/anime-warehouse/pkg/models"
)

func TestRootCommand_Subcommands(t *testing.T) {
	want := []string{"run", "reset", "stage", "dimensions", "entities", "facts", "verify"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestRootCommand_Flags(t *testing.T) {
	f := rootCmd.PersistentFlags().Lookup("config")
	require.NotNil(t, f)
	assert.Equal(t, "config.yaml", f.DefValue)

	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("log-level"))
}

func TestStageCommand_ValidSources(t *testing.T) {
	cmd, _, err := rootCmd.Find([]string{"stage"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"anime", "genres", "users", "ratings"}, cmd.ValidArgs)
}

func TestPrintStageSummary(t *testing.T) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	runID := uuid.New()
	printStageSummary(cmd, &models.RunReport{
		RunID:  runID,
		Status: models.RunStatusFailed,
		Stages: []models.StageReport{
			{Stage: models.StageSchemaReset, Status: models.RunStatusCompleted, Elapsed: time.Second},
			{Stage: models.StageStagingLoad, Status: models.RunStatusFailed},
		},
		TableCounts: map[string]int64{"users": 3, "anime": 5},
	})

	s := out.String()
	assert.Contains(t, s, "SchemaReset")
	assert.Contains(t, s, "StagingLoad")
	assert.Contains(t, s, "run "+runID.String()+" failed")
	assert.Less(t, bytes.Index(out.Bytes(), []byte("anime")), bytes.Index(out.Bytes(), []byte("users")))
}
