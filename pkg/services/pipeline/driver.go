package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/anime-warehouse/pkg/apperrors"
	"github.com/ekaya-inc/anime-warehouse/pkg/logging"
	"github.com/ekaya-inc/anime-warehouse/pkg/models"
	"github.com/ekaya-inc/anime-warehouse/pkg/repositories"
)

// Driver runs a validated sequence of stages, one pooled connection each.
type Driver struct {
	scopes        ScopeProvider
	stages        []StageExecutor
	warehouseRepo repositories.WarehouseRepository
	reportPath    string
	logger        *zap.Logger
}

// NewDriver validates that stages run in dependency order.
// reportPath, when non-empty, receives the run report as YAML.
func NewDriver(
	scopes ScopeProvider,
	stages []StageExecutor,
	warehouseRepo repositories.WarehouseRepository,
	reportPath string,
	logger *zap.Logger,
) (*Driver, error) {
	if len(stages) == 0 {
		return nil, fmt.Errorf("%w: no stages", apperrors.ErrInvalidStagePlan)
	}
	names := make([]models.StageName, len(stages))
	for i, s := range stages {
		names[i] = s.Name()
	}
	if err := ValidateOrder(names); err != nil {
		return nil, err
	}

	return &Driver{
		scopes:        scopes,
		stages:        stages,
		warehouseRepo: warehouseRepo,
		reportPath:    reportPath,
		logger:        logger.Named("pipeline"),
	}, nil
}

// Run executes every stage in order and stops at the first failure, which is
// returned as *apperrors.StageError. Cancellation is honoured only between
// stages. The report is returned in every case.
func (d *Driver) Run(ctx context.Context) (*models.RunReport, error) {
	report := &models.RunReport{
		RunID:     uuid.New(),
		Status:    models.RunStatusCompleted,
		StartedAt: time.Now(),
	}
	log := d.logger.With(zap.String("run_id", report.RunID.String()))

	names := make([]string, len(d.stages))
	for i, s := range d.stages {
		names[i] = string(s.Name())
	}
	log.Info("Starting pipeline run", zap.Strings("stages", names))

	runErr := d.runStages(ctx, log, report)
	if runErr != nil {
		report.Error = logging.SanitizeError(runErr)
		if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
			report.Status = models.RunStatusCancelled
		} else {
			report.Status = models.RunStatusFailed
		}
	}

	d.collectTableCounts(ctx, log, report)
	report.CompletedAt = time.Now()

	if err := d.writeReport(report); err != nil {
		log.Warn("Failed to write run report", zap.String("path", d.reportPath), zap.Error(err))
	}

	if runErr != nil {
		log.Error("Pipeline run failed",
			zap.String("status", string(report.Status)),
			zap.Duration("elapsed", report.CompletedAt.Sub(report.StartedAt)),
			zap.String("error", logging.SanitizeError(runErr)))
		return report, runErr
	}

	log.Info("Pipeline run completed", zap.Duration("elapsed", report.CompletedAt.Sub(report.StartedAt)))
	return report, nil
}

func (d *Driver) runStages(ctx context.Context, log *zap.Logger, report *models.RunReport) error {
	for _, stage := range d.stages {
		// Check for cancellation
		select {
		case <-ctx.Done():
			log.Info("Pipeline run cancelled", zap.String("next_stage", string(stage.Name())))
			return ctx.Err()
		default:
		}

		sr, err := d.executeStage(ctx, log, stage)
		report.Stages = append(report.Stages, sr)
		if err != nil {
			return err
		}
	}
	return nil
}

// executeStage runs one stage on its own connection and releases it.
func (d *Driver) executeStage(ctx context.Context, log *zap.Logger, stage StageExecutor) (models.StageReport, error) {
	sr := models.StageReport{Stage: stage.Name(), Status: models.RunStatusCompleted}
	log.Info("Executing stage", zap.String("stage", string(stage.Name())))

	// A running stage is never interrupted; Run checks ctx between stages.
	start := time.Now()
	err := func() error {
		stageCtx, release, err := d.scopes.WithScope(context.WithoutCancel(ctx))
		if err != nil {
			return err
		}
		defer release()
		return stage.Execute(stageCtx, &sr)
	}()
	sr.Elapsed = time.Since(start)

	if err != nil {
		var stageErr *apperrors.StageError
		if !errors.As(err, &stageErr) {
			err = &apperrors.StageError{Stage: string(stage.Name()), Err: err}
		}
		sr.Status = models.RunStatusFailed
		sr.Error = logging.SanitizeError(err)
		log.Error("Stage failed",
			zap.String("stage", string(stage.Name())),
			zap.Duration("elapsed", sr.Elapsed),
			zap.String("error", sr.Error))
		return sr, err
	}

	fields := []zap.Field{
		zap.String("stage", string(stage.Name())),
		zap.Duration("elapsed", sr.Elapsed),
	}
	for _, l := range sr.Loads {
		fields = append(fields, zap.Int64(l.Table, l.Rows))
	}
	for _, c := range sr.Counts {
		fields = append(fields, zap.Int64(c.Table, c.Inserted))
	}
	log.Info("Stage completed", fields...)
	return sr, nil
}

// collectTableCounts records the row count of every warehouse table. It is
// best effort: a failure is logged and leaves the counts empty.
func (d *Driver) collectTableCounts(ctx context.Context, log *zap.Logger, report *models.RunReport) {
	if d.warehouseRepo == nil {
		return
	}

	// A cancelled run still reports what it left behind.
	countCtx := context.WithoutCancel(ctx)
	scoped, release, err := d.scopes.WithScope(countCtx)
	if err != nil {
		log.Warn("Failed to acquire connection for row counts", zap.Error(err))
		return
	}
	defer release()

	counts, err := d.warehouseRepo.CountRows(scoped, models.AllTables())
	if err != nil {
		log.Warn("Failed to count warehouse rows", zap.Error(err))
		return
	}
	report.TableCounts = counts

	for _, table := range models.AllTables() {
		if n, ok := counts[table]; ok {
			log.Info("Table row count", zap.String("table", table), zap.Int64("rows", n))
		}
	}
}

func (d *Driver) writeReport(report *models.RunReport) error {
	if d.reportPath == "" {
		return nil
	}
	out, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal run report: %w", err)
	}
	if err := os.WriteFile(d.reportPath, out, 0o644); err != nil {
		return fmt.Errorf("failed to write run report: %w", err)
	}
	return nil
}
