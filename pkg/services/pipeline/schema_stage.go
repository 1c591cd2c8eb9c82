package pipeline

import (
	"context"
	"fmt"
	"io/fs"

	"go.uber.org/zap"

	"github.com/ekaya-inc/anime-warehouse/pkg/database"
	"github.com/ekaya-inc/anime-warehouse/pkg/models"
	"github.com/ekaya-inc/anime-warehouse/pkg/repositories"
)

// Migrations is the part of database.Migrator the schema stage drives.
type Migrations interface {
	ForgetHistory() error
	Up() error
	Close()
}

// MigrationsFactory opens a migrator for one stage execution.
type MigrationsFactory func(ctx context.Context) (Migrations, error)

// NewMigrationsFactory returns a factory applying the migrations in fsys to
// the database at url over a dedicated database/sql handle.
func NewMigrationsFactory(url string, fsys fs.FS, logger *zap.Logger) MigrationsFactory {
	return func(ctx context.Context) (Migrations, error) {
		sqlDB, err := database.OpenSQL(url)
		if err != nil {
			return nil, err
		}
		m, err := database.NewMigrator(sqlDB, fsys, logger)
		if err != nil {
			sqlDB.Close()
			return nil, err
		}
		return m, nil
	}
}

// SchemaStage drops and re-creates the warehouse schema.
type SchemaStage struct {
	*BaseStage
	warehouseRepo repositories.WarehouseRepository
	migrations    MigrationsFactory
	skipReset     bool
}

// NewSchemaStage creates the SchemaReset stage. With skipReset the existing
// tables are kept and only pending migrations are applied.
func NewSchemaStage(
	warehouseRepo repositories.WarehouseRepository,
	migrations MigrationsFactory,
	skipReset bool,
	logger *zap.Logger,
) *SchemaStage {
	return &SchemaStage{
		BaseStage:     NewBaseStage(models.StageSchemaReset, logger),
		warehouseRepo: warehouseRepo,
		migrations:    migrations,
		skipReset:     skipReset,
	}
}

var _ StageExecutor = (*SchemaStage)(nil)

// Execute implements StageExecutor.
func (s *SchemaStage) Execute(ctx context.Context, report *models.StageReport) error {
	m, err := s.migrations(ctx)
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}
	defer m.Close()

	if !s.skipReset {
		scope, ok := database.GetScope(ctx)
		if !ok {
			return fmt.Errorf("no stage scope in context")
		}

		tables := models.DropOrder()
		if err := scope.InTx(ctx, func(ctx context.Context) error {
			return s.warehouseRepo.DropTables(ctx, tables)
		}); err != nil {
			return err
		}
		s.Logger().Info("Dropped warehouse tables", zap.Int("tables", len(tables)))

		if err := m.ForgetHistory(); err != nil {
			return err
		}
	} else {
		s.Logger().Info("Keeping existing warehouse tables")
	}

	if err := m.Up(); err != nil {
		return err
	}
	return nil
}
