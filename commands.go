package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ekaya-inc/anime-warehouse/pkg/models"
	"github.com/ekaya-inc/anime-warehouse/pkg/services/pipeline"
)

func init() {
	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run the full pipeline from schema reset to fact build",
			Args:  cobra.NoArgs,
			RunE:  runPipeline(nil),
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Drop and recreate the warehouse schema",
			Args:  cobra.NoArgs,
			RunE:  runPipeline([]models.StageName{models.StageSchemaReset}),
		},
		&cobra.Command{
			Use:       "stage [source...]",
			Short:     "Load all or the named source files into the staging tables",
			ValidArgs: []string{models.SourceAnime, models.SourceGenres, models.SourceUsers, models.SourceRatings},
			RunE:      runPipeline([]models.StageName{models.StageStagingLoad}),
		},
		&cobra.Command{
			Use:   "dimensions",
			Short: "Insert absent dimension values from staging",
			Args:  cobra.NoArgs,
			RunE:  runPipeline([]models.StageName{models.StageDimensionBuild}),
		},
		&cobra.Command{
			Use:   "entities",
			Short: "Load anime and users from staging",
			Args:  cobra.NoArgs,
			RunE:  runPipeline([]models.StageName{models.StageEntityLoad}),
		},
		&cobra.Command{
			Use:   "facts",
			Short: "Build genre tags and user ratings from staging",
			Args:  cobra.NoArgs,
			RunE:  runPipeline([]models.StageName{models.StageFactBuild}),
		},
		&cobra.Command{
			Use:   "verify",
			Short: "Print table row counts and run the integrity checks",
			Args:  cobra.NoArgs,
			RunE:  runVerify,
		},
	)
}

// runPipeline returns a command that executes the given stages, or all of
// them when stages is nil. Positional args name staging sources.
func runPipeline(stages []models.StageName) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, cleanup, err := setup(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		deps := a.deps()
		executors, err := pipeline.BuildStages(deps, stages, args)
		if err != nil {
			return err
		}

		driver, err := pipeline.NewDriver(a.db, executors, deps.WarehouseRepo, a.cfg.Pipeline.ReportPath, a.logger)
		if err != nil {
			return err
		}

		report, err := driver.Run(ctx)
		if report != nil {
			printStageSummary(cmd, report)
		}
		return err
	}
}

func printStageSummary(cmd *cobra.Command, report *models.RunReport) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "STAGE\tSTATUS\tELAPSED\n")
	for _, s := range report.Stages {
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.Stage, s.Status, s.Elapsed)
	}
	w.Flush()

	if len(report.TableCounts) > 0 {
		printCounts(cmd, report.TableCounts)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "run %s %s\n", report.RunID, report.Status)
}

func printCounts(cmd *cobra.Command, counts map[string]int64) {
	tables := make([]string, 0, len(counts))
	for t := range counts {
		tables = append(tables, t)
	}
	sort.Strings(tables)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "TABLE\tROWS\n")
	for _, t := range tables {
		fmt.Fprintf(w, "%s\t%d\n", t, counts[t])
	}
	w.Flush()
}

func runVerify(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, cleanup, err := setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	deps := a.deps()
	result, err := pipeline.NewVerifier(a.db, deps.WarehouseRepo, a.logger).Verify(ctx)
	if err != nil {
		return err
	}

	printCounts(cmd, result.TableCounts)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "CHECK\tVIOLATIONS\n")
	for _, c := range result.Checks {
		fmt.Fprintf(w, "%s\t%d\n", c.Name, c.Violations)
	}
	w.Flush()

	if failed := result.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d integrity check(s) failed", len(failed))
	}
	return nil
}
